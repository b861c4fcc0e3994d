package mesh

import (
	"fmt"
	"math"
	"sort"
)

// ElementField is a scalar result stored per element, as in a gmsh $ElementData view
type ElementField struct {
	Name   string
	Time   float64
	Step   int
	Values []float64 // Indexed by element index, NaN where the view has no value
}

// ElementID returns the stable file ID of element k
func (m *Mesh) ElementID(k int) int {
	return m.ElementIDs[k]
}

// ElementBlock returns the physical group tag of element k, 0 when the element carries no tags
func (m *Mesh) ElementBlock(k int) int {
	if len(m.ElementTags[k]) == 0 {
		return 0
	}
	return m.ElementTags[k][0]
}

// BlockName returns the physical name of a block, or block_<tag> when the mesh file did not name it
func (m *Mesh) BlockName(block int) string {
	if group, ok := m.ElementGroups[block]; ok && group.Name != "" {
		return group.Name
	}
	return fmt.Sprintf("block_%d", block)
}

// FieldNames returns the names of the element fields in sorted order
func (m *Mesh) FieldNames() (names []string) {
	for name := range m.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

// FieldValue returns the value of the named field on element k
func (m *Mesh) FieldValue(name string, k int) (float64, error) {
	field, ok := m.Fields[name]
	if !ok {
		return 0, fmt.Errorf("mesh has no element field %q", name)
	}
	if k < 0 || k >= len(field.Values) {
		return 0, fmt.Errorf("field %q has no value for element index %d", name, k)
	}
	return field.Values[k], nil
}

// NewField creates (or replaces) a field filled with NaN
func (m *Mesh) NewField(name string, time float64, step int) *ElementField {
	field := &ElementField{
		Name:   name,
		Time:   time,
		Step:   step,
		Values: make([]float64, m.NumElements),
	}
	for i := range field.Values {
		field.Values[i] = math.NaN()
	}
	m.Fields[name] = field
	return field
}

// SetSolution stores a result vector, indexed by element index, as the named field. Each value is multiplied by
// scaleFactor and, when normToVol is set, divided by the element volume, which turns tallies into densities.
func (m *Mesh) SetSolution(name string, results []float64, scaleFactor float64, normToVol bool) error {
	if len(results) != m.NumElements {
		return fmt.Errorf("solution %q has %d values for %d elements", name, len(results), m.NumElements)
	}
	values := make([]float64, len(results))
	for k, r := range results {
		val := r * scaleFactor
		if normToVol {
			vol := m.ElementVolume(k)
			if vol == 0 {
				return fmt.Errorf("element %d has zero volume, cannot normalise %q", m.ElementIDs[k], name)
			}
			val /= vol
		}
		values[k] = val
	}
	var (
		time float64
		step int
	)
	if prev, ok := m.Fields[name]; ok {
		time, step = prev.Time, prev.Step+1
	}
	m.Fields[name] = &ElementField{Name: name, Time: time, Step: step, Values: values}
	return nil
}

// ElementCount returns the number of volume elements
func (m *Mesh) ElementCount() int { return m.NumElements }
