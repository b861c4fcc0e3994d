package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// gmshElementType22 maps Gmsh v2.2 element type numbers to our ElementType, first order elements only
var gmshElementType22 = map[int]ElementType{
	1: Line,     // 2-node line
	2: Triangle, // 3-node triangle
	3: Quad,     // 4-node quadrangle
	4: Tet,      // 4-node tetrahedron
	5: Hex,      // 8-node hexahedron
	6: Prism,    // 6-node prism
	7: Pyramid,  // 5-node pyramid
}

var elementTypeToGmsh22 = map[ElementType]int{
	Line:     1,
	Triangle: 2,
	Quad:     3,
	Tet:      4,
	Hex:      5,
	Prism:    6,
	Pyramid:  7,
}

// ReadMeshFile reads a mesh file based on extension
func ReadMeshFile(filename string) (*Mesh, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".msh":
		return ReadGmsh22(filename)
	default:
		return nil, fmt.Errorf("unsupported mesh format: %s", ext)
	}
}

// ReadGmsh22 reads a Gmsh MSH file format version 2.2 (ASCII), including $ElementData views
func ReadGmsh22(filename string) (*Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	msh, err := ParseGmsh22(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return msh, nil
}

// ParseGmsh22 reads a Gmsh 2.2 ASCII mesh from r and builds its connectivity
func ParseGmsh22(r io.Reader) (*Mesh, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	msh := NewMesh()

	// Element data can precede nothing but elements, keep it until all elements are known
	var views []*pendingView

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "$MeshFormat":
			if err := readMeshFormat22(scanner, msh); err != nil {
				return nil, err
			}

		case "$PhysicalNames":
			if err := readPhysicalNames(scanner, msh); err != nil {
				return nil, err
			}

		case "$Nodes":
			if err := readNodes22(scanner, msh); err != nil {
				return nil, err
			}

		case "$Elements":
			if err := readElements22(scanner, msh); err != nil {
				return nil, err
			}

		case "$ElementData":
			view, err := readElementData22(scanner)
			if err != nil {
				return nil, err
			}
			views = append(views, view)

		default:
			if strings.HasPrefix(line, "$") && !strings.HasPrefix(line, "$End") {
				// Skip sections we do not use ($Periodic, $NodeData, ...)
				if err := skipSection(scanner, "$End"+line[1:]); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	if msh.NumElements == 0 {
		return nil, fmt.Errorf("mesh has no volume elements")
	}

	for _, view := range views {
		field := msh.NewField(view.name, view.time, view.step)
		for _, ev := range view.values {
			k, ok := msh.ElementIDMap[ev.id]
			if !ok {
				return nil, fmt.Errorf("element data %q references unknown element %d", view.name, ev.id)
			}
			field.Values[k] = ev.value
		}
	}

	if err := msh.BuildConnectivity(); err != nil {
		return nil, err
	}
	return msh, nil
}

// readMeshFormat22 reads the MeshFormat section
func readMeshFormat22(scanner *bufio.Scanner, msh *Mesh) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in MeshFormat")
	}

	parts := strings.Fields(scanner.Text())
	if len(parts) < 3 {
		return fmt.Errorf("invalid MeshFormat line")
	}

	msh.FormatVersion = parts[0]
	if !strings.HasPrefix(msh.FormatVersion, "2.") {
		return fmt.Errorf("unsupported Gmsh format version: %s", msh.FormatVersion)
	}
	if fileType, _ := strconv.Atoi(parts[1]); fileType == 1 {
		return fmt.Errorf("binary Gmsh files are not supported")
	}
	return skipSection(scanner, "$EndMeshFormat")
}

// readPhysicalNames reads physical group names, only volume groups are kept
func readPhysicalNames(scanner *bufio.Scanner, msh *Mesh) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in PhysicalNames")
	}

	numNames, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return fmt.Errorf("invalid PhysicalNames count: %w", err)
	}

	for i := 0; i < numNames; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF reading physical names")
		}

		parts := strings.Fields(scanner.Text())
		if len(parts) < 3 {
			return fmt.Errorf("invalid physical name line: %s", scanner.Text())
		}
		dimension, _ := strconv.Atoi(parts[0])
		tag, _ := strconv.Atoi(parts[1])
		// Join remaining parts if name contains spaces
		name := strings.Trim(strings.Join(parts[2:], " "), "\"")

		if dimension != 3 {
			continue
		}
		if group, ok := msh.ElementGroups[tag]; ok {
			group.Name = name
			continue
		}
		msh.ElementGroups[tag] = &ElementGroup{
			Dimension: dimension,
			Tag:       tag,
			Name:      name,
		}
	}

	return skipSection(scanner, "$EndPhysicalNames")
}

// readNodes22 reads nodes in v2.2 format
func readNodes22(scanner *bufio.Scanner, msh *Mesh) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in Nodes")
	}

	numNodes, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return fmt.Errorf("invalid node count: %w", err)
	}
	msh.Vertices = make([][]float64, 0, numNodes)

	for i := 0; i < numNodes; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF reading nodes")
		}

		parts := strings.Fields(scanner.Text())
		if len(parts) < 4 {
			return fmt.Errorf("invalid node line: %s", scanner.Text())
		}

		nodeID, err := strconv.Atoi(parts[0])
		if err != nil {
			return fmt.Errorf("invalid node ID %q: %w", parts[0], err)
		}
		var xyz [3]float64
		for j := range xyz {
			if xyz[j], err = strconv.ParseFloat(parts[1+j], 64); err != nil {
				return fmt.Errorf("node %d: invalid coordinate %q: %w", nodeID, parts[1+j], err)
			}
		}
		msh.AddNode(nodeID, xyz[:])
	}

	return skipSection(scanner, "$EndNodes")
}

// readElements22 reads elements in v2.2 format, lower dimensional elements are skipped
func readElements22(scanner *bufio.Scanner, msh *Mesh) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in Elements")
	}

	numElements, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return fmt.Errorf("invalid element count: %w", err)
	}

	for i := 0; i < numElements; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF reading elements")
		}

		parts := strings.Fields(scanner.Text())
		if len(parts) < 3 {
			return fmt.Errorf("invalid element line: %s", scanner.Text())
		}

		elemID, _ := strconv.Atoi(parts[0])
		elemType, _ := strconv.Atoi(parts[1])
		numTags, _ := strconv.Atoi(parts[2])

		if len(parts) < 3+numTags {
			return fmt.Errorf("element %d: invalid element tags", elemID)
		}

		tags := make([]int, numTags)
		for j := 0; j < numTags; j++ {
			tags[j], _ = strconv.Atoi(parts[3+j])
		}

		etype, ok := gmshElementType22[elemType]
		if !ok || etype.GetDimension() < 3 {
			// Points, boundary faces and higher order elements do not take part in the volume mesh
			continue
		}

		nodeStart := 3 + numTags
		expectedNodes := etype.GetNumNodes()
		if len(parts) < nodeStart+expectedNodes {
			return fmt.Errorf("element %d: expected %d nodes, got %d",
				elemID, expectedNodes, len(parts)-nodeStart)
		}

		nodeIDs := make([]int, expectedNodes)
		for j := 0; j < expectedNodes; j++ {
			nodeIDs[j], _ = strconv.Atoi(parts[nodeStart+j])
		}

		if err := msh.AddElement(elemID, etype, tags, nodeIDs); err != nil {
			return err
		}
	}

	return skipSection(scanner, "$EndElements")
}

type elementValue struct {
	id    int
	value float64
}

type pendingView struct {
	name   string
	time   float64
	step   int
	values []elementValue
}

// readElementData22 reads one scalar $ElementData view
func readElementData22(scanner *bufio.Scanner) (*pendingView, error) {
	view := &pendingView{}

	stringTags, err := readTagBlock(scanner)
	if err != nil {
		return nil, err
	}
	if len(stringTags) == 0 {
		return nil, fmt.Errorf("element data view has no name")
	}
	view.name = strings.Trim(stringTags[0], "\"")

	realTags, err := readTagBlock(scanner)
	if err != nil {
		return nil, err
	}
	if len(realTags) > 0 {
		view.time, _ = strconv.ParseFloat(realTags[0], 64)
	}

	intTags, err := readTagBlock(scanner)
	if err != nil {
		return nil, err
	}
	// Integer tags: time step, number of components, number of values
	if len(intTags) < 3 {
		return nil, fmt.Errorf("element data %q: expected 3 integer tags, got %d", view.name, len(intTags))
	}
	view.step, _ = strconv.Atoi(intTags[0])
	if nComp, _ := strconv.Atoi(intTags[1]); nComp != 1 {
		return nil, fmt.Errorf("element data %q: only scalar views are supported, have %d components",
			view.name, nComp)
	}
	numValues, err := strconv.Atoi(intTags[2])
	if err != nil {
		return nil, fmt.Errorf("element data %q: invalid value count: %w", view.name, err)
	}

	view.values = make([]elementValue, 0, numValues)
	for i := 0; i < numValues; i++ {
		if !scanner.Scan() {
			return nil, fmt.Errorf("unexpected EOF reading element data %q", view.name)
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			return nil, fmt.Errorf("element data %q: invalid line: %s", view.name, scanner.Text())
		}
		id, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("element data %q: invalid element ID %q", view.name, parts[0])
		}
		value, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("element data %q: element %d: invalid value %q", view.name, id, parts[1])
		}
		view.values = append(view.values, elementValue{id: id, value: value})
	}

	return view, skipSection(scanner, "$EndElementData")
}

// readTagBlock reads a count line followed by that many tag lines
func readTagBlock(scanner *bufio.Scanner) (tags []string, err error) {
	if !scanner.Scan() {
		return nil, fmt.Errorf("unexpected EOF reading tag count")
	}
	n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return nil, fmt.Errorf("invalid tag count %q", scanner.Text())
	}
	for i := 0; i < n; i++ {
		if !scanner.Scan() {
			return nil, fmt.Errorf("unexpected EOF reading tags")
		}
		tags = append(tags, strings.TrimSpace(scanner.Text()))
	}
	return
}

func skipSection(scanner *bufio.Scanner, endTag string) error {
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == endTag {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("unexpected EOF looking for %s", endTag)
}
