package surfaces

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/notargets/meshgeom/regions"
	"github.com/notargets/meshgeom/types"
	"github.com/notargets/meshgeom/utils"
)

// Exterior is the neighbor key of faces on the domain boundary
const Exterior = 0

// Topology is the mesh access needed to skin regions
type Topology interface {
	regions.Adjacency
	ElementCount() int
	// FaceVertices returns the vertices of face f of element k ordered so the right hand normal points out of k
	FaceVertices(k, f int) []int
}

// Face is one mesh face of a patch, seen from the element of the Forward region
type Face struct {
	Element  int   // Element index in the Forward region
	Local    int   // Local face index within Element
	Vertices []int // Ordered so the right hand normal points out of the Forward region
}

// Patch is a maximal edge connected set of boundary faces between two regions, or a region and the exterior
type Patch struct {
	ID      int // 1-based surface ID
	Forward int // Region on the side the normals point away from
	Reverse int // Region on the other side, Exterior for the domain boundary
	Faces   []Face
}

// SurfaceRef is a patch bounding a region, with the sense of the patch relative to that region
type SurfaceRef struct {
	Patch int // Patch ID
	Sense types.Sense
}

type Model struct {
	Regions  []regions.Region
	Patches  []Patch        // Patches[i].ID == i+1
	Surfaces [][]SurfaceRef // Per region index, ascending patch ID
}

// Patch returns the patch with the given ID
func (m *Model) Patch(id int) *Patch {
	return &m.Patches[id-1]
}

// SurfacesOf returns the patches bounding a region
func (m *Model) SurfacesOf(regionID int) []SurfaceRef {
	return m.Surfaces[regionID-1]
}

// NumFaces returns the total number of patch faces
func (m *Model) NumFaces() (n int) {
	for _, p := range m.Patches {
		n += len(p.Faces)
	}
	return
}

type Options struct {
	Workers int // Parallel degree, defaults to GOMAXPROCS
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// ownedGroup is the set of patches a region owns towards one neighbor key
type ownedGroup struct {
	key     int
	patches [][]Face
}

// Extract skins every region and groups its boundary faces into patches. A boundary face has its neighbor outside
// the region, either across the domain boundary or in another region. Elements that belong to no region count as
// exterior. Each patch is created once by the region that owns it: the region itself for an exterior patch, the lower
// region ID for a patch between two regions. The owner references it with Forward sense and the neighbor with Reverse
// sense. Patch IDs follow the owning region, then the neighbor key, then discovery order.
func Extract(ctx context.Context, rs []regions.Region, topo Topology, opts Options) (*Model, error) {
	for i := range rs {
		if rs[i].ID != i+1 {
			return nil, fmt.Errorf("region IDs must be 1..%d in order, have %d at position %d", len(rs), rs[i].ID, i)
		}
	}
	var (
		regionOf = regions.Lookup(rs, topo.ElementCount())
		owned    = make([][]ownedGroup, len(rs)) // shards write disjoint slots
		workers  = opts.workers()
	)
	if workers > len(rs) {
		workers = len(rs)
	}
	pm := utils.NewPartitionMap(workers, len(rs))
	err := pm.Run(ctx, func(ctx context.Context, bn, rMin, rMax int) (err error) {
		for i := rMin; i < rMax; i++ {
			if err = ctx.Err(); err != nil {
				return
			}
			if owned[i], err = skin(&rs[i], regionOf, topo); err != nil {
				return
			}
		}
		return
	})
	if err != nil {
		return nil, err
	}

	model := &Model{
		Regions:  rs,
		Surfaces: make([][]SurfaceRef, len(rs)),
	}
	for i, groups := range owned {
		owner := rs[i].ID
		for _, group := range groups {
			for _, faces := range group.patches {
				id := len(model.Patches) + 1
				model.Patches = append(model.Patches, Patch{
					ID:      id,
					Forward: owner,
					Reverse: group.key,
					Faces:   faces,
				})
				model.Surfaces[owner-1] = append(model.Surfaces[owner-1], SurfaceRef{Patch: id, Sense: types.Forward})
				if group.key != Exterior {
					model.Surfaces[group.key-1] = append(model.Surfaces[group.key-1],
						SurfaceRef{Patch: id, Sense: types.Reverse})
				}
			}
		}
	}
	return model, nil
}

// skin finds the boundary faces of one region and splits the ones it owns into patches
func skin(r *regions.Region, regionOf []int, topo Topology) (groups []ownedGroup, err error) {
	if len(r.Elements) == 0 {
		return nil, &types.TopologyError{Region: r.ID, Element: -1, Reason: "region has no elements"}
	}
	var (
		boundary int
		byKey    = make(map[int][]Face)
	)
	for _, k := range r.Elements {
		for f := 0; f < topo.NumFaces(k); f++ {
			key := Exterior
			if nbr, _ := topo.Neighbor(k, f); nbr >= 0 {
				key = regionOf[nbr]
			}
			if key == r.ID {
				continue
			}
			boundary++
			if key != Exterior && key < r.ID {
				continue // owned by the neighbor
			}
			byKey[key] = append(byKey[key], Face{Element: k, Local: f, Vertices: topo.FaceVertices(k, f)})
		}
	}
	if boundary == 0 {
		return nil, &types.TopologyError{Region: r.ID, Element: -1, Reason: "region has no boundary faces"}
	}

	keys := make([]int, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	for _, key := range keys {
		groups = append(groups, ownedGroup{key: key, patches: splitByEdges(byKey[key])})
	}
	return
}

// splitByEdges splits faces into edge connected patches. Seeds are taken in face order and each patch keeps the face
// order of its members.
func splitByEdges(faces []Face) (patches [][]Face) {
	edgeFaces := make(map[types.EdgeKey][]int)
	for i, face := range faces {
		for _, e := range types.FaceEdges(face.Vertices) {
			ek := e.GetKey()
			edgeFaces[ek] = append(edgeFaces[ek], i)
		}
	}
	var (
		assigned = make([]bool, len(faces))
		queue    = make([]int, 0, len(faces))
	)
	for seed := range faces {
		if assigned[seed] {
			continue
		}
		assigned[seed] = true
		queue = append(queue[:0], seed)
		for head := 0; head < len(queue); head++ {
			for _, e := range types.FaceEdges(faces[queue[head]].Vertices) {
				for _, j := range edgeFaces[e.GetKey()] {
					if !assigned[j] {
						assigned[j] = true
						queue = append(queue, j)
					}
				}
			}
		}
		members := make([]int, len(queue))
		copy(members, queue)
		sort.Ints(members)
		patch := make([]Face, len(members))
		for n, j := range members {
			patch[n] = faces[j]
		}
		patches = append(patches, patch)
	}
	return
}

// CheckClosed verifies that the boundary of every region is watertight: walking the faces of its patches outward
// from the region uses each directed edge as often as its reverse.
func (m *Model) CheckClosed() error {
	for i := range m.Regions {
		id := m.Regions[i].ID
		count := make(map[types.EdgeInt]int)
		for _, ref := range m.SurfacesOf(id) {
			for _, face := range m.Patch(ref.Patch).Faces {
				for _, e := range types.FaceEdges(face.Vertices) {
					if ref.Sense == types.Reverse {
						e = e.Reverse()
					}
					count[e]++
				}
			}
		}
		for e, n := range count {
			if count[e.Reverse()] != n {
				v := e.GetVertices()
				return &types.TopologyError{Region: id, Element: -1,
					Reason: fmt.Sprintf("boundary is not closed at edge %d-%d", v[0], v[1])}
			}
		}
	}
	return nil
}
