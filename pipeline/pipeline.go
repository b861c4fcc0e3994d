package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/notargets/meshgeom/binning"
	"github.com/notargets/meshgeom/geometry"
	"github.com/notargets/meshgeom/regions"
	"github.com/notargets/meshgeom/surfaces"
	"github.com/notargets/meshgeom/types"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

type Pipeline struct {
	cfg     Config
	scheme  *binning.Scheme
	logger  *zap.Logger
	workers int
}

type Option func(*Pipeline)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithWorkers sets the parallel degree of region discovery and skinning
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// New validates the configuration. Invalid binning or run parameters return a *types.ConfigError.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	scheme, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:     cfg,
		scheme:  scheme,
		logger:  zap.NewNop(),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Pipeline) Scheme() *binning.Scheme { return p.scheme }

// BinStat summarizes the field values of one non empty bin. Min, Max and Mean are zero when binning is disabled and
// no variable is named.
type BinStat struct {
	Material     int
	ValueBin     int
	Lower, Upper float64 // Nominal value interval of the bin
	Elements     int
	Regions      int
	Min, Max     float64
	Mean         float64
	Volume       float64
	Area         float64 // Total boundary area of the bin's regions, shared surfaces counted once per side
}

type Result struct {
	Materials []Material
	Regions   []regions.Region
	Model     *surfaces.Model
	Report    *geometry.Report
	Index     *Index
	Skipped   []int // IDs of elements left out under the skip policy
	BinStats  []BinStat
}

// Run classifies the elements, builds the regions, extracts their surfaces and writes the geometry into the sink.
// Every container is created fresh, so a Pipeline can be run again on new results. Any error aborts the run and
// nothing is committed to the sink.
func (p *Pipeline) Run(ctx context.Context, m MeshAccess, sink geometry.Sink) (*Result, error) {
	log := p.logger
	materials, matOfBlock := p.materials(m)
	log.Debug("materials resolved", zap.Int("materials", len(materials)))

	var (
		K       = m.ElementCount()
		values  = make([]float64, K)
		skipped []int
	)
	matOf := func(k int) (int, error) {
		if mat, ok := matOfBlock[m.ElementBlock(k)]; ok {
			return mat, nil
		}
		return -1, &types.TopologyError{Element: m.ElementID(k),
			Reason: fmt.Sprintf("block %d is not assigned to a material", m.ElementBlock(k))}
	}
	classify := func(k int) (int, error) {
		if p.scheme.Mode() == binning.Disabled && p.cfg.VarName == "" {
			return 0, nil
		}
		v, err := m.FieldValue(p.cfg.VarName, k)
		if err != nil {
			return 0, err
		}
		values[k] = v
		if p.scheme.Mode() == binning.Disabled {
			return 0, nil
		}
		bin, err := p.scheme.Bin(v)
		var de *types.DomainError
		if !errors.As(err, &de) {
			return bin, err
		}
		de.Element = m.ElementID(k)
		switch p.cfg.DomainPolicy {
		case Clamp:
			log.Debug("value clamped to bin 0", zap.Int("element", de.Element), zap.Float64("value", v))
			return 0, nil
		case Skip:
			log.Warn("element skipped", zap.Int("element", de.Element), zap.Float64("value", v),
				zap.String("reason", de.Reason))
			skipped = append(skipped, de.Element)
			return -1, nil
		}
		return 0, de
	}
	bins, err := regions.Sort(ctx, classify, matOf, len(materials), p.scheme.NumValueBins(), K)
	if err != nil {
		return nil, fmt.Errorf("classifying elements: %w", err)
	}
	log.Debug("elements binned", zap.Int("elements", bins.Count()), zap.Int("skipped", len(skipped)))

	if err = ctx.Err(); err != nil {
		return nil, err
	}
	rs, err := regions.Build(ctx, bins, m, regions.Options{Workers: p.workers})
	if err != nil {
		return nil, fmt.Errorf("building regions: %w", err)
	}
	log.Debug("regions built", zap.Int("regions", len(rs)))

	if err = ctx.Err(); err != nil {
		return nil, err
	}
	model, err := surfaces.Extract(ctx, rs, m, surfaces.Options{Workers: p.workers})
	if err != nil {
		return nil, fmt.Errorf("extracting surfaces: %w", err)
	}
	if err = model.CheckClosed(); err != nil {
		return nil, fmt.Errorf("extracting surfaces: %w", err)
	}
	log.Debug("surfaces extracted", zap.Int("surfaces", len(model.Patches)), zap.Int("faces", model.NumFaces()))

	if err = ctx.Err(); err != nil {
		return nil, err
	}
	names := make([]string, len(materials))
	for i, mat := range materials {
		names[i] = mat.Name
	}
	tagger := &geometry.Tagger{
		Sink:               sink,
		LengthScale:        p.cfg.LengthScale,
		FacetingTolerance:  p.cfg.FacetingTolerance,
		GeometryResolution: p.cfg.GeometryResolution,
		Logger:             log,
	}
	in := geometry.Input{
		Model:     model,
		Materials: names,
		Bounds:    p.scheme.Bounds,
		Vertex:    m.Vertex,
	}
	if p.scheme.Mode() == binning.Disabled {
		// the single bin has no finite bounds
		in.Bounds = nil
	}
	report, err := tagger.Tag(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("tagging geometry: %w", err)
	}

	res := &Result{
		Materials: materials,
		Regions:   rs,
		Model:     model,
		Report:    report,
		Index:     newIndex(m, regions.Lookup(rs, K), report),
		Skipped:   skipped,
		BinStats:  p.binStats(m, bins, model, values),
	}
	log.Info("geometry written",
		zap.Int("materials", len(materials)),
		zap.Int("volumes", len(rs)),
		zap.Int("surfaces", len(model.Patches)),
		zap.Int("facets", report.Facets),
		zap.Int("skipped", len(skipped)))
	return res, nil
}

// materials returns the configured materials, or one per mesh block in ascending block order, and the material
// index of every block
func (p *Pipeline) materials(m MeshAccess) (materials []Material, matOfBlock map[int]int) {
	materials = p.cfg.Materials
	if len(materials) == 0 {
		for _, block := range m.Blocks() {
			materials = append(materials, Material{Name: m.BlockName(block), Blocks: []int{block}})
		}
	}
	matOfBlock = make(map[int]int)
	for i, mat := range materials {
		for _, block := range mat.Blocks {
			matOfBlock[block] = i
		}
	}
	return
}

func (p *Pipeline) binStats(m MeshAccess, bins *regions.Bins, model *surfaces.Model, values []float64) (stats []BinStat) {
	patchArea := make([]float64, len(model.Patches))
	for i, patch := range model.Patches {
		for _, face := range patch.Faces {
			patchArea[i] += m.FaceArea(face.Vertices)
		}
	}
	var (
		regionCount = make(map[int]int)
		binArea     = make(map[int]float64)
	)
	for _, r := range model.Regions {
		regionCount[r.Bin]++
		for _, ref := range model.SurfacesOf(r.ID) {
			binArea[r.Bin] += patchArea[ref.Patch-1]
		}
	}
	for b, elems := range bins.Elems {
		if len(elems) == 0 {
			continue
		}
		var (
			vals = make([]float64, len(elems))
			vols = make([]float64, len(elems))
		)
		for i, k := range elems {
			vals[i] = values[k]
			vols[i] = m.ElementVolume(k)
		}
		mat, bin := b/bins.NumValueBins, b%bins.NumValueBins
		lo, hi := p.scheme.Bounds(bin)
		stats = append(stats, BinStat{
			Material: mat,
			ValueBin: bin,
			Lower:    lo,
			Upper:    hi,
			Elements: len(elems),
			Regions:  regionCount[b],
			Min:      floats.Min(vals),
			Max:      floats.Max(vals),
			Mean:     floats.Sum(vals) / float64(len(vals)),
			Volume:   floats.Sum(vols),
			Area:     binArea[b],
		})
	}
	return
}
