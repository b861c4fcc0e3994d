package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSolution(t *testing.T) {
	m := NewHexBoxMesh(2, 1, 1, [3]float64{4, 1, 1}, nil) // two elements of volume 2

	require.NoError(t, m.SetSolution("tally", []float64{1, 3}, 10, false))
	assert.Equal(t, []float64{10, 30}, m.Fields["tally"].Values)
	assert.Equal(t, 0, m.Fields["tally"].Step)

	// A second solution under the same name advances the step
	require.NoError(t, m.SetSolution("tally", []float64{1, 3}, 10, true))
	assert.InDeltaSlice(t, []float64{5, 15}, m.Fields["tally"].Values, 1e-12)
	assert.Equal(t, 1, m.Fields["tally"].Step)

	assert.Error(t, m.SetSolution("tally", []float64{1}, 1, false))
}

func TestSetSolution_ZeroVolume(t *testing.T) {
	m := NewMesh()
	for i, xyz := range [][]float64{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0}} {
		m.AddNode(i+1, xyz)
	}
	require.NoError(t, m.AddElement(1, Tet, []int{1}, []int{1, 2, 3, 4}))
	assert.Error(t, m.SetSolution("heat", []float64{1}, 1, true))
}

func TestSetSolution_FailureKeepsPreviousField(t *testing.T) {
	m := NewMesh()
	for i, xyz := range [][]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {2, 0, 0}, {3, 0, 0}} {
		m.AddNode(i+1, xyz)
	}
	require.NoError(t, m.AddElement(1, Tet, []int{1}, []int{1, 2, 3, 4}))
	require.NoError(t, m.AddElement(2, Tet, []int{1}, []int{1, 2, 5, 6})) // all nodes on the x axis
	require.NoError(t, m.SetSolution("heat", []float64{7, 7}, 1, false))

	err := m.SetSolution("heat", []float64{1, 2}, 1, true)
	assert.ErrorContains(t, err, "element 2 has zero volume")
	field := m.Fields["heat"]
	assert.Equal(t, []float64{7, 7}, field.Values)
	assert.Equal(t, 0, field.Step)
}

func TestFieldsAndIDs(t *testing.T) {
	m := NewHexBoxMesh(2, 2, 1, [3]float64{1, 1, 1}, func(i, j, k int) int { return 1 + j })
	assert.Equal(t, []int{1, 2}, m.Blocks())
	assert.Equal(t, 3, m.ElementID(2))
	assert.Equal(t, 2, m.ElementBlock(2))
	assert.Equal(t, "block_2", m.BlockName(2))

	m.SetCentroidField("x", func(c [3]float64) float64 { return c[0] })
	assert.Equal(t, []string{"x"}, m.FieldNames())
	v, err := m.FieldValue("x", 1)
	require.NoError(t, err)
	assert.Equal(t, 0.75, v)
	_, err = m.FieldValue("x", 4)
	assert.Error(t, err)
}
