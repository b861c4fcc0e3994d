package regions

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/notargets/meshgeom/types"
	"github.com/notargets/meshgeom/utils"
)

// Adjacency is the face adjacency of the mesh elements. Neighbor returns nbr < 0 across an exterior face.
type Adjacency interface {
	NumFaces(k int) int
	Neighbor(k, f int) (nbr, nbrFace int)
}

// Bins holds the element indices of every (material, value bin) pair, at flat index mat*NumValueBins+bin. Each bin
// lists its elements in ascending order.
type Bins struct {
	NumMaterials int
	NumValueBins int
	Elems        [][]int
}

func NewBins(nMat, nValueBins int) *Bins {
	return &Bins{
		NumMaterials: nMat,
		NumValueBins: nValueBins,
		Elems:        make([][]int, nMat*nValueBins),
	}
}

func (b *Bins) FlatIndex(mat, bin int) int { return mat*b.NumValueBins + bin }

// Count returns the number of binned elements
func (b *Bins) Count() (n int) {
	for _, elems := range b.Elems {
		n += len(elems)
	}
	return
}

// Classifier returns the value bin of element k. A negative bin leaves the element out of every bin.
type Classifier func(k int) (bin int, err error)

// MaterialOf returns the material index of element k
type MaterialOf func(k int) (mat int, err error)

// Sort classifies the elements 0..K-1 in ascending order into bins. The first error aborts the sort.
func Sort(ctx context.Context, classify Classifier, matOf MaterialOf, nMat, nValueBins, K int) (*Bins, error) {
	bins := NewBins(nMat, nValueBins)
	for k := 0; k < K; k++ {
		if k%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		mat, err := matOf(k)
		if err != nil {
			return nil, err
		}
		if mat < 0 || mat >= nMat {
			return nil, fmt.Errorf("element index %d: material %d out of range [0,%d)", k, mat, nMat)
		}
		bin, err := classify(k)
		if err != nil {
			return nil, err
		}
		if bin < 0 {
			continue
		}
		if bin >= nValueBins {
			return nil, fmt.Errorf("element index %d: value bin %d out of range [0,%d)", k, bin, nValueBins)
		}
		flat := bins.FlatIndex(mat, bin)
		bins.Elems[flat] = append(bins.Elems[flat], k)
	}
	return bins, nil
}

// Region is a maximal face connected set of elements of one bin
type Region struct {
	ID       int // 1-based volume ID
	Bin      int // Flat bin index
	Material int
	ValueBin int
	Elements []int // Ascending element indices
}

func (r *Region) String() string {
	return fmt.Sprintf("Region %d: material %d, value bin %d, %d elements",
		r.ID, r.Material, r.ValueBin, len(r.Elements))
}

// GroupLocal splits elems into face connected components, membership of a neighbor decided by member. Seeds are
// taken in the order of elems and neighbors in local face order, so the components come out in a reproducible order.
// Each component is returned sorted ascending.
func GroupLocal(elems []int, adj Adjacency, member func(k int) bool) (groups [][]int) {
	var (
		visited = make(map[int]struct{}, len(elems))
		queue   = make([]int, 0, len(elems)) // arena, reset per component
	)
	for _, seed := range elems {
		if _, done := visited[seed]; done {
			continue
		}
		visited[seed] = struct{}{}
		queue = append(queue[:0], seed)
		for head := 0; head < len(queue); head++ {
			k := queue[head]
			for f := 0; f < adj.NumFaces(k); f++ {
				nbr, _ := adj.Neighbor(k, f)
				if nbr < 0 {
					continue
				}
				if _, done := visited[nbr]; done || !member(nbr) {
					continue
				}
				visited[nbr] = struct{}{}
				queue = append(queue, nbr)
			}
		}
		group := make([]int, len(queue))
		copy(group, queue)
		sort.Ints(group)
		groups = append(groups, group)
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

// Build finds the regions of every non empty bin. Bins are split in contiguous shards, one goroutine each, and region
// IDs are assigned after the join in bin order then discovery order, starting at 1.
func Build(ctx context.Context, bins *Bins, adj Adjacency, opts Options) ([]Region, error) {
	binOf := make(map[int]int, bins.Count())
	for b, elems := range bins.Elems {
		for _, k := range elems {
			binOf[k] = b
		}
	}

	var (
		nBins   = len(bins.Elems)
		perBin  = make([][][]int, nBins) // shards write disjoint slots
		workers = opts.workers()
	)
	if workers > nBins {
		workers = nBins
	}
	pm := utils.NewPartitionMap(workers, nBins)
	err := pm.Run(ctx, func(ctx context.Context, bn, bMin, bMax int) error {
		for b := bMin; b < bMax; b++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if len(bins.Elems[b]) == 0 {
				continue
			}
			perBin[b] = GroupLocal(bins.Elems[b], adj, func(k int) bool {
				nb, ok := binOf[k]
				return ok && nb == b
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var regions []Region
	for b, groups := range perBin {
		for _, group := range groups {
			if len(group) == 0 {
				return nil, &types.TopologyError{Element: -1, Reason: fmt.Sprintf("empty region in bin %d", b)}
			}
			regions = append(regions, Region{
				ID:       len(regions) + 1,
				Bin:      b,
				Material: b / bins.NumValueBins,
				ValueBin: b % bins.NumValueBins,
				Elements: group,
			})
		}
	}
	return regions, nil
}

// Lookup returns the region ID of each of the K elements, 0 for elements in no region
func Lookup(regions []Region, K int) (regionOf []int) {
	regionOf = make([]int, K)
	for _, r := range regions {
		for _, k := range r.Elements {
			regionOf[k] = r.ID
		}
	}
	return
}
