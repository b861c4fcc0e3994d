package mesh

import (
	"fmt"
	"sort"

	"github.com/notargets/meshgeom/types"
)

// ElementType represents different element types
type ElementType int

const (
	Line ElementType = iota
	Triangle
	Quad
	Tet
	Hex
	Prism
	Pyramid
)

func (e ElementType) String() string {
	return [...]string{"Line", "Triangle", "Quad", "Tet", "Hex", "Prism", "Pyramid"}[e]
}

// GetDimension returns the topological dimension of the element type
func (e ElementType) GetDimension() int {
	switch e {
	case Line:
		return 1
	case Triangle, Quad:
		return 2
	default:
		return 3
	}
}

// GetNumNodes returns the number of corner nodes
func (e ElementType) GetNumNodes() int {
	return [...]int{2, 3, 4, 4, 8, 6, 5}[e]
}

// Face represents a unique face of the mesh
type Face struct {
	Key      types.FaceKey
	Elements [2]int // Elements sharing the face, [1] is -1 on the domain boundary
	LocalIDs [2]int // Local face index within each element
}

// ElementGroup is a named physical group (block) of elements
type ElementGroup struct {
	Dimension int
	Tag       int
	Name      string
	Elements  []int // Element indices
}

// Mesh represents a complete unstructured volume mesh with all connectivity
type Mesh struct {
	// Geometry
	Vertices [][]float64 // Vertex coordinates [nvertices][3]

	// Element data
	EtoV         [][]int       // Element to vertex connectivity [nelems][nverts_per_elem]
	ElementTypes []ElementType // Element type for each element
	ElementTags  [][]int       // Gmsh tags for each element, [0] is the physical group (block)
	ElementIDs   []int         // Stable element ID from the mesh file

	// ID maps
	NodeIDs      []int       // Vertex index -> node ID
	NodeIDMap    map[int]int // Node ID -> vertex index
	ElementIDMap map[int]int // Element ID -> element index

	// Connectivity (built by BuildConnectivity)
	EToE [][]int // Element to element connectivity [nelems][nfaces_per_elem], -1 on the boundary
	EToF [][]int // Neighbor's local face index [nelems][nfaces_per_elem], -1 on the boundary

	// Face data
	Faces   []Face
	FaceMap map[types.FaceKey]int

	// Physical groups keyed by tag
	ElementGroups map[int]*ElementGroup

	// Element fields keyed by name
	Fields map[string]*ElementField

	// File metadata
	FormatVersion string

	// Mesh statistics
	NumElements    int
	NumVertices    int
	NumUniqueFaces int
}

// NewMesh creates an empty mesh
func NewMesh() *Mesh {
	return &Mesh{
		NodeIDMap:     make(map[int]int),
		ElementIDMap:  make(map[int]int),
		FaceMap:       make(map[types.FaceKey]int),
		ElementGroups: make(map[int]*ElementGroup),
		Fields:        make(map[string]*ElementField),
	}
}

// AddNode appends a vertex with the given file node ID
func (m *Mesh) AddNode(nodeID int, coords []float64) {
	var xyz [3]float64
	copy(xyz[:], coords)
	m.NodeIDMap[nodeID] = len(m.Vertices)
	m.NodeIDs = append(m.NodeIDs, nodeID)
	m.Vertices = append(m.Vertices, xyz[:])
	m.NumVertices = len(m.Vertices)
}

// GetNodeIndex returns the vertex index for a file node ID
func (m *Mesh) GetNodeIndex(nodeID int) (idx int, ok bool) {
	idx, ok = m.NodeIDMap[nodeID]
	return
}

// AddElement appends a volume element, converting file node IDs to vertex indices
func (m *Mesh) AddElement(elemID int, etype ElementType, tags []int, nodeIDs []int) error {
	if etype.GetDimension() != 3 {
		return fmt.Errorf("element %d: %s is not a volume element", elemID, etype)
	}
	if len(nodeIDs) < etype.GetNumNodes() {
		return fmt.Errorf("element %d: %s needs %d nodes, have %d",
			elemID, etype, etype.GetNumNodes(), len(nodeIDs))
	}
	if _, dup := m.ElementIDMap[elemID]; dup {
		return fmt.Errorf("duplicate element ID %d", elemID)
	}
	verts := make([]int, etype.GetNumNodes())
	for i := range verts {
		idx, ok := m.GetNodeIndex(nodeIDs[i])
		if !ok {
			return fmt.Errorf("element %d references unknown node %d", elemID, nodeIDs[i])
		}
		verts[i] = idx
	}
	k := len(m.EtoV)
	m.EtoV = append(m.EtoV, verts)
	m.ElementTypes = append(m.ElementTypes, etype)
	m.ElementTags = append(m.ElementTags, append([]int(nil), tags...))
	m.ElementIDs = append(m.ElementIDs, elemID)
	m.ElementIDMap[elemID] = k
	m.NumElements = len(m.EtoV)

	block := m.ElementBlock(k)
	group, ok := m.ElementGroups[block]
	if !ok {
		group = &ElementGroup{Dimension: 3, Tag: block}
		m.ElementGroups[block] = group
	}
	group.Elements = append(group.Elements, k)
	return nil
}

// BuildConnectivity builds element-to-element and face connectivity
func (m *Mesh) BuildConnectivity() error {
	m.EToE = make([][]int, m.NumElements)
	m.EToF = make([][]int, m.NumElements)
	m.Faces = m.Faces[:0]
	m.FaceMap = make(map[types.FaceKey]int)

	for elemID := 0; elemID < m.NumElements; elemID++ {
		faceVertices := GetElementFaces(m.ElementTypes[elemID], m.EtoV[elemID])

		m.EToE[elemID] = make([]int, len(faceVertices))
		m.EToF[elemID] = make([]int, len(faceVertices))
		for i := range m.EToE[elemID] {
			m.EToE[elemID][i] = -1
			m.EToF[elemID][i] = -1
		}

		for localFaceID, faceVerts := range faceVertices {
			key := types.NewFaceKey(faceVerts)
			faceID, exists := m.FaceMap[key]
			if !exists {
				m.FaceMap[key] = len(m.Faces)
				m.Faces = append(m.Faces, Face{
					Key:      key,
					Elements: [2]int{elemID, -1},
					LocalIDs: [2]int{localFaceID, -1},
				})
				continue
			}
			face := &m.Faces[faceID]
			if face.Elements[1] >= 0 {
				return &types.TopologyError{Element: m.ElementIDs[elemID],
					Reason: fmt.Sprintf("face %v is shared by more than two elements", key.Vertices())}
			}
			neighborElem, neighborLocalID := face.Elements[0], face.LocalIDs[0]
			face.Elements[1], face.LocalIDs[1] = elemID, localFaceID

			// EToF holds the neighbor's local face index so the connection is reciprocal
			m.EToE[elemID][localFaceID] = neighborElem
			m.EToE[neighborElem][neighborLocalID] = elemID
			m.EToF[elemID][localFaceID] = neighborLocalID
			m.EToF[neighborElem][neighborLocalID] = localFaceID
		}
	}

	m.NumUniqueFaces = len(m.Faces)
	return nil
}

// GetElementFaces returns the face vertices for each element type, ordered so the right hand normal points out of a
// positively oriented element
func GetElementFaces(elemType ElementType, vertices []int) [][]int {
	switch elemType {
	case Tet:
		return [][]int{
			{vertices[0], vertices[2], vertices[1]}, // Face 0
			{vertices[0], vertices[1], vertices[3]}, // Face 1
			{vertices[1], vertices[2], vertices[3]}, // Face 2
			{vertices[0], vertices[3], vertices[2]}, // Face 3
		}
	case Hex:
		return [][]int{
			{vertices[0], vertices[3], vertices[2], vertices[1]}, // Face 0 (bottom)
			{vertices[4], vertices[5], vertices[6], vertices[7]}, // Face 1 (top)
			{vertices[0], vertices[1], vertices[5], vertices[4]}, // Face 2
			{vertices[1], vertices[2], vertices[6], vertices[5]}, // Face 3
			{vertices[2], vertices[3], vertices[7], vertices[6]}, // Face 4
			{vertices[3], vertices[0], vertices[4], vertices[7]}, // Face 5
		}
	case Prism:
		return [][]int{
			{vertices[0], vertices[2], vertices[1]},              // Face 0 (bottom tri)
			{vertices[3], vertices[4], vertices[5]},              // Face 1 (top tri)
			{vertices[0], vertices[1], vertices[4], vertices[3]}, // Face 2 (quad)
			{vertices[1], vertices[2], vertices[5], vertices[4]}, // Face 3 (quad)
			{vertices[2], vertices[0], vertices[3], vertices[5]}, // Face 4 (quad)
		}
	case Pyramid:
		return [][]int{
			{vertices[0], vertices[3], vertices[2], vertices[1]}, // Face 0 (base quad)
			{vertices[0], vertices[1], vertices[4]},              // Face 1 (tri)
			{vertices[1], vertices[2], vertices[4]},              // Face 2 (tri)
			{vertices[2], vertices[3], vertices[4]},              // Face 3 (tri)
			{vertices[3], vertices[0], vertices[4]},              // Face 4 (tri)
		}
	default:
		return [][]int{}
	}
}

// Blocks returns the distinct physical group tags of the volume elements in ascending order
func (m *Mesh) Blocks() (blocks []int) {
	for tag, group := range m.ElementGroups {
		if group.Dimension == 3 && len(group.Elements) > 0 {
			blocks = append(blocks, tag)
		}
	}
	sort.Ints(blocks)
	return
}

// PrintStatistics prints mesh statistics
func (m *Mesh) PrintStatistics() {
	fmt.Printf("Mesh Statistics:\n")
	fmt.Printf("  Vertices: %d\n", m.NumVertices)
	fmt.Printf("  Elements: %d\n", m.NumElements)
	fmt.Printf("  Faces: %d\n", m.NumUniqueFaces)

	typeCounts := make(map[ElementType]int)
	for _, t := range m.ElementTypes {
		typeCounts[t]++
	}
	fmt.Printf("  Element types:\n")
	for t := Tet; t <= Pyramid; t++ {
		if count := typeCounts[t]; count > 0 {
			fmt.Printf("    %s: %d\n", t, count)
		}
	}

	boundaryFaces := 0
	for _, face := range m.Faces {
		if face.Elements[1] < 0 {
			boundaryFaces++
		}
	}
	fmt.Printf("  Boundary faces: %d\n", boundaryFaces)
	for _, block := range m.Blocks() {
		fmt.Printf("  Block %d (%s): %d elements\n", block, m.BlockName(block),
			len(m.ElementGroups[block].Elements))
	}
}
