package geometry

import (
	"context"
	"fmt"

	"github.com/notargets/meshgeom/surfaces"
	"github.com/notargets/meshgeom/types"
	"go.uber.org/zap"
)

// Input is everything the Tagger writes besides the fixed metadata
type Input struct {
	Model     *surfaces.Model
	Materials []string                           // Material names by material index
	Bounds    func(valueBin int) (lo, hi float64) // Value interval of a bin, nil to skip the bin tags
	Vertex    func(v int) [3]float64             // Vertex coordinates in mesh units
}

type Tagger struct {
	Sink               Sink
	LengthScale        float64 // Mesh length unit to geometry length unit
	FacetingTolerance  float64
	GeometryResolution float64
	Logger             *zap.Logger
}

// Report lists what a Tag call wrote. Groups are keyed by material index, volumes by region ID and surfaces by
// patch ID.
type Report struct {
	Root     Handle
	Groups   []Handle
	Volumes  map[int]Handle
	Surfaces map[int]Handle
	Facets   int
}

// Tag writes the model into the sink in one transaction: root metadata, one group per material, one volume per
// region and one surface per patch. IDs are the material index plus one, the region ID and the patch ID. On any
// failure the transaction is rolled back and nothing is committed.
func (tg *Tagger) Tag(ctx context.Context, in Input) (report *Report, err error) {
	log := tg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err = tg.Sink.Begin(); err != nil {
		return nil, &types.SinkWriteError{Op: "begin", Err: err}
	}
	defer func() {
		if err == nil {
			return
		}
		report = nil
		if rbErr := tg.Sink.Rollback(); rbErr != nil {
			log.Error("rollback failed", zap.Error(rbErr))
		}
	}()

	w := &writer{sink: tg.Sink}
	report = &Report{
		Root:     tg.Sink.Root(),
		Volumes:  make(map[int]Handle, len(in.Model.Regions)),
		Surfaces: make(map[int]Handle, len(in.Model.Patches)),
	}

	w.setDouble(report.Root, types.TagFacetingTolerance, tg.FacetingTolerance)
	w.setDouble(report.Root, types.TagGeometryResolution, tg.GeometryResolution)
	w.setDouble(report.Root, types.TagLengthScale, tg.LengthScale)

	for i, name := range in.Materials {
		h := w.create(types.CategoryGroup)
		w.setInt(h, types.TagID, i+1)
		w.setString(h, types.TagCategory, string(types.CategoryGroup))
		w.setString(h, types.TagName, name)
		report.Groups = append(report.Groups, h)
	}
	if w.err != nil {
		return nil, w.err
	}
	log.Debug("groups written", zap.Int("groups", len(report.Groups)))

	if err = ctx.Err(); err != nil {
		return nil, err
	}
	for _, r := range in.Model.Regions {
		if r.Material < 0 || r.Material >= len(report.Groups) {
			return nil, &types.TopologyError{Region: r.ID, Element: -1,
				Reason: fmt.Sprintf("material index %d has no group", r.Material)}
		}
		h := w.create(types.CategoryVolume)
		w.setInt(h, types.TagID, r.ID)
		w.setString(h, types.TagCategory, string(types.CategoryVolume))
		w.setInt(h, types.TagGeomDimension, types.DimVolume)
		w.setString(h, types.TagMaterial, in.Materials[r.Material])
		if in.Bounds != nil {
			lo, hi := in.Bounds(r.ValueBin)
			w.setDouble(h, types.TagBinLower, lo)
			w.setDouble(h, types.TagBinUpper, hi)
		}
		w.group(report.Groups[r.Material], h)
		if w.err != nil {
			return nil, w.err
		}
		report.Volumes[r.ID] = h
	}
	log.Debug("volumes written", zap.Int("volumes", len(report.Volumes)))

	if err = ctx.Err(); err != nil {
		return nil, err
	}
	for i := range in.Model.Patches {
		p := &in.Model.Patches[i]
		h := w.create(types.CategorySurface)
		w.setInt(h, types.TagID, p.ID)
		w.setString(h, types.TagCategory, string(types.CategorySurface))
		w.setInt(h, types.TagGeomDimension, types.DimSurface)
		w.relate(report.Volumes[p.Forward], h, types.Forward)
		if p.Reverse != surfaces.Exterior {
			w.relate(report.Volumes[p.Reverse], h, types.Reverse)
		}
		facets := tg.facets(p, in.Vertex)
		w.facets(h, facets)
		if w.err != nil {
			return nil, w.err
		}
		report.Surfaces[p.ID] = h
		report.Facets += len(facets)
	}
	log.Debug("surfaces written",
		zap.Int("surfaces", len(report.Surfaces)), zap.Int("facets", report.Facets))

	if err = tg.Sink.Commit(); err != nil {
		return nil, &types.SinkWriteError{Op: "commit", Err: err}
	}
	return report, nil
}

// facets fans each patch face into triangles, keeping its orientation, and scales the coordinates
func (tg *Tagger) facets(p *surfaces.Patch, vertex func(v int) [3]float64) (facets []Facet) {
	scale := func(v int) (xyz [3]float64) {
		xyz = vertex(v)
		for i := range xyz {
			xyz[i] *= tg.LengthScale
		}
		return
	}
	for _, face := range p.Faces {
		a := scale(face.Vertices[0])
		for i := 1; i+1 < len(face.Vertices); i++ {
			facets = append(facets, Facet{a, scale(face.Vertices[i]), scale(face.Vertices[i+1])})
		}
	}
	return
}

// writer keeps the first sink error and skips every write after it
type writer struct {
	sink Sink
	err  error
}

func (w *writer) fail(op string, err error) {
	if err != nil && w.err == nil {
		w.err = &types.SinkWriteError{Op: op, Err: err}
	}
}

func (w *writer) create(category types.Category) (h Handle) {
	if w.err != nil {
		return
	}
	var err error
	h, err = w.sink.CreateSet(category)
	w.fail("create "+string(category), err)
	return
}

func (w *writer) setInt(h Handle, name string, value int) {
	if w.err == nil {
		w.fail(fmt.Sprintf("set %s=%d on %d", name, value, h), w.sink.SetIntTag(h, name, value))
	}
}

func (w *writer) setDouble(h Handle, name string, value float64) {
	if w.err == nil {
		w.fail(fmt.Sprintf("set %s=%g on %d", name, value, h), w.sink.SetDoubleTag(h, name, value))
	}
}

func (w *writer) setString(h Handle, name, value string) {
	if w.err == nil {
		w.fail(fmt.Sprintf("set %s=%q on %d", name, value, h), w.sink.SetStringTag(h, name, value))
	}
}

func (w *writer) group(group, member Handle) {
	if w.err == nil {
		w.fail(fmt.Sprintf("add %d to group %d", member, group), w.sink.AddToGroup(group, member))
	}
}

// relate makes the surface a child of the volume and records its sense
func (w *writer) relate(volume, surface Handle, sense types.Sense) {
	if w.err == nil {
		w.fail(fmt.Sprintf("add surface %d to volume %d", surface, volume), w.sink.AddChild(volume, surface))
	}
	if w.err == nil {
		w.fail(fmt.Sprintf("set %s sense of surface %d on volume %d", sense, surface, volume),
			w.sink.SetSense(surface, volume, sense))
	}
}

func (w *writer) facets(surface Handle, facets []Facet) {
	if w.err == nil {
		w.fail(fmt.Sprintf("add %d facets to surface %d", len(facets), surface), w.sink.AddFacets(surface, facets))
	}
}
