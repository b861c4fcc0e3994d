package pipeline

import (
	"github.com/notargets/meshgeom/geometry"
	"github.com/notargets/meshgeom/surfaces"
)

// Index maps between mesh elements, regions, patches and the geometry handles written for them. It belongs to one
// Run and is rebuilt from scratch by the next.
type Index struct {
	elementIDs   []int       // element index -> element ID
	elementIndex map[int]int // element ID -> element index
	regionOf     []int       // element index -> region ID, 0 when in no region

	volumes  map[int]geometry.Handle // region ID -> volume handle
	regions  map[geometry.Handle]int
	surfaces map[int]geometry.Handle // patch ID -> surface handle
	patches  map[geometry.Handle]int
}

func newIndex(m MeshAccess, regionOf []int, report *geometry.Report) *Index {
	n := m.ElementCount()
	idx := &Index{
		elementIDs:   make([]int, n),
		elementIndex: make(map[int]int, n),
		regionOf:     regionOf,
		volumes:      report.Volumes,
		regions:      make(map[geometry.Handle]int, len(report.Volumes)),
		surfaces:     report.Surfaces,
		patches:      make(map[geometry.Handle]int, len(report.Surfaces)),
	}
	for k := 0; k < n; k++ {
		id := m.ElementID(k)
		idx.elementIDs[k] = id
		idx.elementIndex[id] = k
	}
	for id, h := range report.Volumes {
		idx.regions[h] = id
	}
	for id, h := range report.Surfaces {
		idx.patches[h] = id
	}
	return idx
}

func (idx *Index) ElementID(k int) int { return idx.elementIDs[k] }

func (idx *Index) ElementIndex(id int) (k int, ok bool) {
	k, ok = idx.elementIndex[id]
	return
}

// RegionOfElement returns the region ID of the element with the given ID, 0 when it is in no region
func (idx *Index) RegionOfElement(id int) int {
	if k, ok := idx.elementIndex[id]; ok {
		return idx.regionOf[k]
	}
	return 0
}

func (idx *Index) VolumeHandle(regionID int) (h geometry.Handle, ok bool) {
	h, ok = idx.volumes[regionID]
	return
}

func (idx *Index) RegionOfVolume(h geometry.Handle) (regionID int, ok bool) {
	regionID, ok = idx.regions[h]
	return
}

func (idx *Index) SurfaceHandle(patchID int) (h geometry.Handle, ok bool) {
	h, ok = idx.surfaces[patchID]
	return
}

func (idx *Index) PatchOfSurface(h geometry.Handle) (patchID int, ok bool) {
	patchID, ok = idx.patches[h]
	return
}

// VolumeOfElement returns the volume handle holding the element with the given ID
func (idx *Index) VolumeOfElement(id int) (h geometry.Handle, ok bool) {
	if r := idx.RegionOfElement(id); r != surfaces.Exterior {
		return idx.VolumeHandle(r)
	}
	return
}
