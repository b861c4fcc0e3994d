package InputParameters

import (
	"errors"
	"testing"

	"github.com/notargets/meshgeom/binning"
	"github.com/notargets/meshgeom/pipeline"
	"github.com/notargets/meshgeom/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var inputFile = []byte(`
Title: "Fuel pin temperature"
BinningMode: log
VarName: temperature
PowMin: 2
PowMax: 4
NumMinor: 5
LengthScale: 100
GeometryResolution: 1.e-6
DomainPolicy: skip
Materials:
  - Name: fuel
    Blocks: [1, 3]
  - Name: clad
    Blocks: [2]
`)

func TestGeometryParameters_Parse(t *testing.T) {
	gp := NewGeometryParameters()
	require.NoError(t, gp.Parse(inputFile))
	assert.Equal(t, "Fuel pin temperature", gp.Title)
	assert.Equal(t, "log", gp.BinningMode)
	assert.Equal(t, 5, gp.NumMinor)
	assert.Equal(t, 1.e-4, gp.FacetingTolerance, "defaults survive for missing keys")
	require.Len(t, gp.Materials, 2)
	assert.Equal(t, []int{1, 3}, gp.Materials[0].Blocks)

	cfg, err := gp.PipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, binning.Config{Mode: binning.Log, PowMin: 2, PowMax: 4, NumMinor: 5}, cfg.Binning)
	assert.Equal(t, pipeline.Skip, cfg.DomainPolicy)
	assert.Equal(t, 100., cfg.LengthScale)
	assert.Equal(t, []pipeline.Material{{Name: "fuel", Blocks: []int{1, 3}}, {Name: "clad", Blocks: []int{2}}},
		cfg.Materials)

	_, err = pipeline.New(cfg)
	assert.NoError(t, err)
}

func TestGeometryParameters_Invalid(t *testing.T) {
	gp := NewGeometryParameters()
	require.NoError(t, gp.Parse([]byte("BinningMode: cubic\n")))
	_, err := gp.PipelineConfig()
	var ce *types.ConfigError
	assert.True(t, errors.As(err, &ce))

	gp = NewGeometryParameters()
	require.NoError(t, gp.Parse([]byte("DomainPolicy: retry\n")))
	_, err = gp.PipelineConfig()
	assert.True(t, errors.As(err, &ce))

	assert.Error(t, NewGeometryParameters().Parse([]byte("NumVarBins: [1")))
}
