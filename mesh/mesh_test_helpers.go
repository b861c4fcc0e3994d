package mesh

import (
	"fmt"
	"math"
)

// TestMeshes provides a collection of standard test meshes that can be used across packages
type TestMeshes struct {
	// Node definitions
	CubeNodes  NodeSet
	TetraNodes NodeSet

	// Element definitions
	SingleTet ElementSet
	SingleHex ElementSet

	// Complete mesh definitions
	TwoTetMesh      CompleteMesh
	DisjointTetMesh CompleteMesh
	TwoBlockHexMesh CompleteMesh
}

// NodeSet represents a set of nodes with their coordinates
type NodeSet struct {
	Nodes     [][]float64    // Coordinates [N][3]
	NodeMap   map[string]int // Logical name -> array index
	NodeIDMap map[string]int // Logical name -> node ID (1-based)
}

// ElementSet represents a set of elements with connectivity
type ElementSet struct {
	Type       ElementType
	Elements   [][]string     // Connectivity using logical node names
	Properties []ElementProps // Additional properties per element
}

// ElementProps holds additional element properties
type ElementProps struct {
	PhysicalTag  int
	GeometricTag int
}

// CompleteMesh represents a complete mesh with nodes and elements
type CompleteMesh struct {
	Nodes         NodeSet
	Elements      []ElementSet
	PhysicalNames map[int]string
}

// GetStandardTestMeshes returns a set of standard test meshes
func GetStandardTestMeshes() *TestMeshes {
	tm := &TestMeshes{}

	tm.CubeNodes = createCubeNodes()
	tm.TetraNodes = createTetraNodes()

	tm.SingleTet = createSingleTet()
	tm.SingleHex = createSingleHex()

	tm.TwoTetMesh = createTwoTetMesh()
	tm.DisjointTetMesh = createDisjointTetMesh()
	tm.TwoBlockHexMesh = createTwoBlockHexMesh()

	return tm
}

func namedNodes(nodes [][]float64, names ...string) NodeSet {
	ns := NodeSet{
		Nodes:     nodes,
		NodeMap:   make(map[string]int),
		NodeIDMap: make(map[string]int),
	}
	for i, name := range names {
		ns.NodeMap[name] = i
		ns.NodeIDMap[name] = i + 1 // Node IDs are 1-based
	}
	return ns
}

func createCubeNodes() NodeSet {
	return namedNodes([][]float64{
		{0, 0, 0}, // 0: origin
		{1, 0, 0}, // 1: x
		{1, 1, 0}, // 2: xy
		{0, 1, 0}, // 3: y
		{0, 0, 1}, // 4: z
		{1, 0, 1}, // 5: xz
		{1, 1, 1}, // 6: xyz
		{0, 1, 1}, // 7: yz
	}, "origin", "x", "xy", "y", "z", "xz", "xyz", "yz")
}

func createTetraNodes() NodeSet {
	// Standard tetrahedron with vertices at:
	// (0,0,0), (1,0,0), (0,1,0), (0,0,1)
	return namedNodes([][]float64{
		{0, 0, 0},
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}, "v0", "v1", "v2", "v3")
}

func createSingleTet() ElementSet {
	return ElementSet{
		Type:       Tet,
		Elements:   [][]string{{"v0", "v1", "v2", "v3"}},
		Properties: []ElementProps{{PhysicalTag: 1, GeometricTag: 1}},
	}
}

func createSingleHex() ElementSet {
	return ElementSet{
		Type:       Hex,
		Elements:   [][]string{{"origin", "x", "xy", "y", "z", "xz", "xyz", "yz"}},
		Properties: []ElementProps{{PhysicalTag: 1, GeometricTag: 1}},
	}
}

func createTwoTetMesh() CompleteMesh {
	// Two tetrahedra sharing the face {v1,v2,v3}
	nodes := namedNodes([][]float64{
		{0, 0, 0},
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{1, 1, 1},
	}, "v0", "v1", "v2", "v3", "v4")

	return CompleteMesh{
		Nodes: nodes,
		Elements: []ElementSet{
			{
				Type: Tet,
				Elements: [][]string{
					{"v0", "v1", "v2", "v3"},
					{"v1", "v2", "v3", "v4"},
				},
				Properties: []ElementProps{
					{PhysicalTag: 1, GeometricTag: 1},
					{PhysicalTag: 1, GeometricTag: 1},
				},
			},
		},
	}
}

func createDisjointTetMesh() CompleteMesh {
	// Two tetrahedra that share no vertex, edge or face
	nodes := namedNodes([][]float64{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1},
		{5, 0, 0}, {6, 0, 0}, {5, 1, 0}, {5, 0, 1},
	}, "a0", "a1", "a2", "a3", "b0", "b1", "b2", "b3")

	return CompleteMesh{
		Nodes: nodes,
		Elements: []ElementSet{
			{
				Type: Tet,
				Elements: [][]string{
					{"a0", "a1", "a2", "a3"},
					{"b0", "b1", "b2", "b3"},
				},
				Properties: []ElementProps{
					{PhysicalTag: 1, GeometricTag: 1},
					{PhysicalTag: 1, GeometricTag: 1},
				},
			},
		},
		PhysicalNames: map[int]string{1: "steel"},
	}
}

func createTwoBlockHexMesh() CompleteMesh {
	// Two unit hexes stacked in x, in different physical groups
	nodes := namedNodes([][]float64{
		{0, 0, 0}, {1, 0, 0}, {2, 0, 0},
		{0, 1, 0}, {1, 1, 0}, {2, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {2, 0, 1},
		{0, 1, 1}, {1, 1, 1}, {2, 1, 1},
	}, "p000", "p100", "p200", "p010", "p110", "p210",
		"p001", "p101", "p201", "p011", "p111", "p211")

	return CompleteMesh{
		Nodes: nodes,
		Elements: []ElementSet{
			{
				Type: Hex,
				Elements: [][]string{
					{"p000", "p100", "p110", "p010", "p001", "p101", "p111", "p011"},
					{"p100", "p200", "p210", "p110", "p101", "p201", "p211", "p111"},
				},
				Properties: []ElementProps{
					{PhysicalTag: 1, GeometricTag: 1},
					{PhysicalTag: 2, GeometricTag: 2},
				},
			},
		},
		PhysicalNames: map[int]string{1: "fuel", 2: "water"},
	}
}

// ConvertToMesh converts a CompleteMesh to an actual Mesh structure
func (cm *CompleteMesh) ConvertToMesh() *Mesh {
	mesh := NewMesh()

	for tag, name := range cm.PhysicalNames {
		mesh.ElementGroups[tag] = &ElementGroup{Dimension: 3, Tag: tag, Name: name}
	}

	// Add nodes in array order so vertex indices match the node set
	names := make([]string, len(cm.Nodes.Nodes))
	for name, idx := range cm.Nodes.NodeMap {
		names[idx] = name
	}
	for idx, name := range names {
		mesh.AddNode(cm.Nodes.NodeIDMap[name], cm.Nodes.Nodes[idx])
	}

	elemID := 1
	for _, elemSet := range cm.Elements {
		for i, elemNodes := range elemSet.Elements {
			nodeIDs := make([]int, len(elemNodes))
			for j, nodeName := range elemNodes {
				nodeIDs[j] = cm.Nodes.NodeIDMap[nodeName]
			}

			props := ElementProps{}
			if i < len(elemSet.Properties) {
				props = elemSet.Properties[i]
			}

			if err := mesh.AddElement(elemID, elemSet.Type,
				[]int{props.PhysicalTag, props.GeometricTag}, nodeIDs); err != nil {
				panic(err)
			}
			elemID++
		}
	}

	if err := mesh.BuildConnectivity(); err != nil {
		panic(err)
	}
	return mesh
}

// BlockFunc assigns a physical tag to the structured cell (i,j,k)
type BlockFunc func(i, j, k int) int

func boxNodes(m *Mesh, nx, ny, nz int, size [3]float64) (nodeID func(i, j, k int) int) {
	nodeID = func(i, j, k int) int {
		return 1 + i + (nx+1)*(j+(ny+1)*k)
	}
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				m.AddNode(nodeID(i, j, k), []float64{
					size[0] * float64(i) / float64(nx),
					size[1] * float64(j) / float64(ny),
					size[2] * float64(k) / float64(nz),
				})
			}
		}
	}
	return
}

// NewHexBoxMesh builds a structured nx*ny*nz hexahedral mesh of a box with the given edge lengths. Element IDs are
// 1-based in x fastest order. A nil block function puts every cell in block 1.
func NewHexBoxMesh(nx, ny, nz int, size [3]float64, block BlockFunc) *Mesh {
	if block == nil {
		block = func(i, j, k int) int { return 1 }
	}
	m := NewMesh()
	nodeID := boxNodes(m, nx, ny, nz, size)
	elemID := 1
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				tag := block(i, j, k)
				nodes := []int{
					nodeID(i, j, k), nodeID(i+1, j, k), nodeID(i+1, j+1, k), nodeID(i, j+1, k),
					nodeID(i, j, k+1), nodeID(i+1, j, k+1), nodeID(i+1, j+1, k+1), nodeID(i, j+1, k+1),
				}
				if err := m.AddElement(elemID, Hex, []int{tag, tag}, nodes); err != nil {
					panic(err)
				}
				elemID++
			}
		}
	}
	if err := m.BuildConnectivity(); err != nil {
		panic(err)
	}
	return m
}

// NewTetBoxMesh builds a conforming tetrahedral mesh of a box, each structured cell split into six tetrahedra
// along its main diagonal (Freudenthal split). Half of the tetrahedra are negatively oriented.
func NewTetBoxMesh(nx, ny, nz int, size [3]float64, block BlockFunc) *Mesh {
	if block == nil {
		block = func(i, j, k int) int { return 1 }
	}
	axisPerms := [6][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	m := NewMesh()
	nodeID := boxNodes(m, nx, ny, nz, size)
	elemID := 1
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				tag := block(i, j, k)
				for _, perm := range axisPerms {
					p := [3]int{i, j, k}
					nodes := []int{nodeID(p[0], p[1], p[2])}
					for _, axis := range perm {
						p[axis]++
						nodes = append(nodes, nodeID(p[0], p[1], p[2]))
					}
					if err := m.AddElement(elemID, Tet, []int{tag, tag}, nodes); err != nil {
						panic(err)
					}
					elemID++
				}
			}
		}
	}
	if err := m.BuildConnectivity(); err != nil {
		panic(err)
	}
	return m
}

// SetCentroidField stores a field evaluated at each element centroid
func (m *Mesh) SetCentroidField(name string, f func(c [3]float64) float64) {
	field := m.NewField(name, 0, 0)
	for k := 0; k < m.NumElements; k++ {
		field.Values[k] = f(m.Centroid(k))
	}
}

// Validation helpers

// ValidateNodeCoordinates checks if node coordinates match expected values
func ValidateNodeCoordinates(nodes [][]float64, expected [][]float64, tolerance float64) error {
	if len(nodes) != len(expected) {
		return fmt.Errorf("node count mismatch: got %d, expected %d", len(nodes), len(expected))
	}

	for i := range nodes {
		for j := 0; j < 3; j++ {
			diff := math.Abs(nodes[i][j] - expected[i][j])
			if diff > tolerance {
				return fmt.Errorf("node %d coord %d: got %f, expected %f (diff %f > tol %f)",
					i, j, nodes[i][j], expected[i][j], diff, tolerance)
			}
		}
	}

	return nil
}
