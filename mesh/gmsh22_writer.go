package mesh

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// WriteGmsh22File writes the mesh and its element fields to a Gmsh 2.2 ASCII file
func WriteGmsh22File(filename string, m *Mesh) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err = WriteGmsh22(file, m); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteGmsh22 writes the mesh and one $ElementData view per field
func WriteGmsh22(w io.Writer, m *Mesh) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n")

	var named []*ElementGroup
	for _, block := range m.Blocks() {
		if group := m.ElementGroups[block]; group.Name != "" {
			named = append(named, group)
		}
	}
	if len(named) > 0 {
		fmt.Fprintf(bw, "$PhysicalNames\n%d\n", len(named))
		for _, group := range named {
			fmt.Fprintf(bw, "%d %d %s\n", group.Dimension, group.Tag, strconv.Quote(group.Name))
		}
		fmt.Fprintf(bw, "$EndPhysicalNames\n")
	}

	fmt.Fprintf(bw, "$Nodes\n%d\n", len(m.Vertices))
	for i, xyz := range m.Vertices {
		fmt.Fprintf(bw, "%d %s %s %s\n", m.nodeID(i),
			formatFloat(xyz[0]), formatFloat(xyz[1]), formatFloat(xyz[2]))
	}
	fmt.Fprintf(bw, "$EndNodes\n")

	fmt.Fprintf(bw, "$Elements\n%d\n", m.NumElements)
	for k := 0; k < m.NumElements; k++ {
		tags := m.ElementTags[k]
		fmt.Fprintf(bw, "%d %d %d", m.ElementIDs[k], elementTypeToGmsh22[m.ElementTypes[k]], len(tags))
		for _, tag := range tags {
			fmt.Fprintf(bw, " %d", tag)
		}
		for _, v := range m.EtoV[k] {
			fmt.Fprintf(bw, " %d", m.nodeID(v))
		}
		fmt.Fprintf(bw, "\n")
	}
	fmt.Fprintf(bw, "$EndElements\n")

	for _, name := range m.FieldNames() {
		field := m.Fields[name]
		var count int
		for _, v := range field.Values {
			if !math.IsNaN(v) {
				count++
			}
		}
		fmt.Fprintf(bw, "$ElementData\n1\n%s\n1\n%s\n3\n%d\n1\n%d\n",
			strconv.Quote(field.Name), formatFloat(field.Time), field.Step, count)
		for k, v := range field.Values {
			if !math.IsNaN(v) {
				fmt.Fprintf(bw, "%d %s\n", m.ElementIDs[k], formatFloat(v))
			}
		}
		fmt.Fprintf(bw, "$EndElementData\n")
	}

	return bw.Flush()
}

func (m *Mesh) nodeID(v int) int {
	if v < len(m.NodeIDs) {
		return m.NodeIDs[v]
	}
	return v + 1
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
