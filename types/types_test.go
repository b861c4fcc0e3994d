package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypes(t *testing.T) {
	{ // Test packed int for edge labeling
		en := NewEdgeKey([2]int{1, 0})
		assert.Equal(t, EdgeKey(1<<32), en)
		assert.Equal(t, [2]int{0, 1}, en.GetVertices(false))

		en = NewEdgeKey([2]int{0, 10})
		assert.Equal(t, EdgeKey(10*(1<<32)), en)
		assert.Equal(t, [2]int{10, 0}, en.GetVertices(true))

		en = NewEdgeKey([2]int{100, 100001})
		assert.Equal(t, EdgeKey(100001*(1<<32)+100), en)
		assert.Equal(t, [2]int{100, 100001}, en.GetVertices(false))

		en = NewEdgeKey([2]int{1<<32 - 1, 1<<32 - 1})
		assert.Equal(t, EdgeKey(1<<64-1), en)
	}
	{ // Directed edges keep their direction and share a key with their reverse
		e := NewEdgeInt([2]int{7, 3})
		assert.Equal(t, [2]int{7, 3}, e.GetVertices())
		assert.Equal(t, [2]int{3, 7}, e.Reverse().GetVertices())
		assert.Equal(t, e.GetKey(), e.Reverse().GetKey())
		assert.Equal(t, NewEdgeInt([2]int{3, 7}), e.Reverse())
	}
	{
		edges := FaceEdges([]int{4, 5, 6})
		require.Len(t, edges, 3)
		assert.Equal(t, [2]int{4, 5}, edges[0].GetVertices())
		assert.Equal(t, [2]int{5, 6}, edges[1].GetVertices())
		assert.Equal(t, [2]int{6, 4}, edges[2].GetVertices())
	}
}

func TestFaceKey(t *testing.T) {
	assert.Equal(t, NewFaceKey([]int{3, 1, 2}), NewFaceKey([]int{2, 3, 1}))
	assert.Equal(t, FaceKey{1, 2, 3, -1}, NewFaceKey([]int{3, 1, 2}))
	assert.Equal(t, []int{0, 1, 4, 5}, NewFaceKey([]int{5, 4, 0, 1}).Vertices())
	assert.NotEqual(t, NewFaceKey([]int{0, 1, 2}), NewFaceKey([]int{0, 1, 2, 3}))
	assert.Panics(t, func() { NewFaceKey([]int{0, 1}) })
}

func TestSense(t *testing.T) {
	assert.Equal(t, Reverse, Forward.Flip())
	assert.Equal(t, Forward, Reverse.Flip())
	assert.Equal(t, "forward", Forward.String())
	assert.Equal(t, "reverse", Reverse.String())
}

func TestErrorKinds(t *testing.T) {
	var err error = fmt.Errorf("wrapped: %w", &ConfigError{Param: "NumVarBins", Reason: "must be positive"})
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "NumVarBins", ce.Param)

	de := &DomainError{Element: 12, Value: -1, Reason: "log of non-positive value"}
	assert.Contains(t, de.Error(), "element 12")
	de.Element = -1
	assert.NotContains(t, de.Error(), "element")

	te := &TopologyError{Region: 3, Element: -1, Reason: "no boundary faces"}
	assert.Contains(t, te.Error(), "region 3")

	cause := errors.New("duplicate id")
	se := &SinkWriteError{Op: "set id", Err: cause}
	assert.True(t, errors.Is(se, cause))
}
