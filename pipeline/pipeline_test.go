package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/notargets/meshgeom/binning"
	"github.com/notargets/meshgeom/geometry"
	"github.com/notargets/meshgeom/mesh"
	"github.com/notargets/meshgeom/surfaces"
	"github.com/notargets/meshgeom/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func linearConfig(varName string, min, max float64, n int) Config {
	return Config{
		Binning:            binning.Config{Mode: binning.Linear, VarMin: min, VarMax: max, NumVarBins: n},
		VarName:            varName,
		LengthScale:        1,
		FacetingTolerance:  1e-4,
		GeometryResolution: 1e-6,
	}
}

func TestRun_CubeSplitByField(t *testing.T) {
	m := mesh.NewHexBoxMesh(2, 2, 2, [3]float64{1, 1, 1}, nil)
	m.SetCentroidField("temperature", func(c [3]float64) float64 { return c[0] })

	p, err := New(linearConfig("temperature", 0, 1, 2))
	require.NoError(t, err)
	st := geometry.NewStore()
	res, err := p.Run(context.Background(), m, st)
	require.NoError(t, err)

	require.Len(t, res.Regions, 2, "each bin is one face connected region")
	assert.Len(t, res.Regions[0].Elements, 4)
	assert.Len(t, res.Regions[1].Elements, 4)

	var internal, exterior int
	for _, patch := range res.Model.Patches {
		if patch.Reverse == surfaces.Exterior {
			exterior++
		} else {
			internal++
			assert.Equal(t, 1, patch.Forward)
			assert.Equal(t, 2, patch.Reverse)
		}
	}
	assert.Equal(t, 1, internal)
	assert.Equal(t, 2, exterior)

	snap := st.Committed()
	require.NotNil(t, snap)
	assert.Len(t, snap.ByCategory(types.CategoryGroup), 1)
	assert.Equal(t, "block_1", snap.ByCategory(types.CategoryGroup)[0].StringTags[types.TagName])
	assert.Len(t, snap.ByCategory(types.CategoryVolume), 2)
	assert.Len(t, snap.ByCategory(types.CategorySurface), 3)

	require.Len(t, res.BinStats, 2)
	for i, stat := range res.BinStats {
		assert.Equal(t, 0, stat.Material)
		assert.Equal(t, i, stat.ValueBin)
		assert.Equal(t, 4, stat.Elements)
		assert.Equal(t, 1, stat.Regions)
		assert.InDelta(t, 0.25+0.5*float64(i), stat.Min, 1e-12)
		assert.InDelta(t, 0.25+0.5*float64(i), stat.Max, 1e-12)
		assert.InDelta(t, 0.5, stat.Volume, 1e-12)
		assert.InDelta(t, 4., stat.Area, 1e-12, "boundary of a 0.5x1x1 box")
		assert.InDelta(t, 0.5*float64(i), stat.Lower, 1e-12)
	}
}

func TestRun_DisconnectedElementsStaySeparate(t *testing.T) {
	m := mesh.GetStandardTestMeshes().DisjointTetMesh.ConvertToMesh()
	m.SetCentroidField("density", func(c [3]float64) float64 { return 0.5 })

	p, err := New(linearConfig("density", 0, 1, 4))
	require.NoError(t, err)
	st := geometry.NewStore()
	res, err := p.Run(context.Background(), m, st)
	require.NoError(t, err)

	require.Len(t, res.Regions, 2)
	require.Len(t, res.Model.Patches, 2)
	for i, patch := range res.Model.Patches {
		assert.Equal(t, i+1, patch.Forward)
		assert.Equal(t, surfaces.Exterior, patch.Reverse)
		assert.Len(t, patch.Faces, 4)
	}
	assert.Equal(t, "steel", st.Committed().ByCategory(types.CategoryGroup)[0].StringTags[types.TagName])
}

func TestRun_Deterministic(t *testing.T) {
	m := mesh.NewTetBoxMesh(3, 3, 2, [3]float64{1, 1, 1}, func(i, j, k int) int { return 1 + (i+j)%2 })
	m.SetCentroidField("heat", func(c [3]float64) float64 { return c[0]*c[1] + c[2] })

	var exports [2]string
	for i := range exports {
		p, err := New(linearConfig("heat", 0, 2, 3), WithWorkers(1+3*i))
		require.NoError(t, err)
		st := geometry.NewStore()
		_, err = p.Run(context.Background(), m, st)
		require.NoError(t, err)
		data, err := st.Committed().YAML()
		require.NoError(t, err)
		exports[i] = string(data)
	}
	assert.Equal(t, exports[0], exports[1])
}

func TestRun_RerunReplacesGeometry(t *testing.T) {
	m := mesh.NewHexBoxMesh(4, 1, 1, [3]float64{4, 1, 1}, nil)
	m.SetCentroidField("t", func(c [3]float64) float64 { return c[0] })
	p, err := New(linearConfig("t", 0, 4, 4))
	require.NoError(t, err)
	st := geometry.NewStore()

	res, err := p.Run(context.Background(), m, st)
	require.NoError(t, err)
	assert.Len(t, res.Regions, 4)

	// New results on the same mesh: one bin everywhere
	require.NoError(t, m.SetSolution("t", []float64{1, 1, 1, 1}, 0.5, false))
	res, err = p.Run(context.Background(), m, st)
	require.NoError(t, err)
	assert.Len(t, res.Regions, 1)
	assert.Len(t, st.Committed().ByCategory(types.CategoryVolume), 1)
	assert.Len(t, st.Committed().ByCategory(types.CategorySurface), 1)
}

func TestRun_Materials(t *testing.T) {
	m := mesh.GetStandardTestMeshes().TwoBlockHexMesh.ConvertToMesh()
	disabled := Config{Binning: binning.Config{Mode: binning.Disabled}, LengthScale: 1}

	// One material per block by default, named from the mesh
	p, err := New(disabled)
	require.NoError(t, err)
	res, err := p.Run(context.Background(), m, geometry.NewStore())
	require.NoError(t, err)
	assert.Equal(t, []Material{{"fuel", []int{1}}, {"water", []int{2}}}, res.Materials)
	require.Len(t, res.Regions, 2)
	assert.Equal(t, 1, res.Regions[1].Material)
	assert.Len(t, res.Model.Patches, 3)

	// Both blocks in one material merge into one region
	cfg := disabled
	cfg.Materials = []Material{{Name: "core", Blocks: []int{1, 2}}}
	p, err = New(cfg)
	require.NoError(t, err)
	res, err = p.Run(context.Background(), m, geometry.NewStore())
	require.NoError(t, err)
	require.Len(t, res.Regions, 1)
	assert.Equal(t, []int{0, 1}, res.Regions[0].Elements)

	// A block without material
	cfg.Materials = []Material{{Name: "core", Blocks: []int{1}}}
	p, err = New(cfg)
	require.NoError(t, err)
	_, err = p.Run(context.Background(), m, geometry.NewStore())
	var te *types.TopologyError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Equal(t, 2, te.Element)
}

func TestRun_DisabledBinningExports(t *testing.T) {
	m := mesh.GetStandardTestMeshes().TwoBlockHexMesh.ConvertToMesh()
	p, err := New(Config{Binning: binning.Config{Mode: binning.Disabled}, LengthScale: 1})
	require.NoError(t, err)
	st := geometry.NewStore()
	_, err = p.Run(context.Background(), m, st)
	require.NoError(t, err)

	for _, vol := range st.Committed().ByCategory(types.CategoryVolume) {
		assert.NotContains(t, vol.DoubleTags, types.TagBinLower)
		assert.NotContains(t, vol.DoubleTags, types.TagBinUpper)
	}
	for _, format := range []string{"yaml", "json"} {
		var buf bytes.Buffer
		require.NoError(t, st.Export(&buf, format), format)
		assert.Contains(t, buf.String(), "water", format)
	}
}

func TestNew_ConfigErrors(t *testing.T) {
	base := linearConfig("t", 0, 1, 2)
	tests := []struct {
		name   string
		modify func(*Config)
		param  string
	}{
		{"no bins", func(c *Config) { c.Binning.NumVarBins = 0 }, "num_var_bins"},
		{"zero width", func(c *Config) { c.Binning.VarMax = 0 }, "var_min/var_max"},
		{"no variable", func(c *Config) { c.VarName = "" }, "var_name"},
		{"zero length scale", func(c *Config) { c.LengthScale = 0 }, "length_scale"},
		{"negative tolerance", func(c *Config) { c.FacetingTolerance = -1 }, "faceting_tolerance"},
		{"negative resolution", func(c *Config) { c.GeometryResolution = -1 }, "geometry_resolution"},
		{"bad policy", func(c *Config) { c.DomainPolicy = 7 }, "domain_policy"},
		{"unnamed material", func(c *Config) { c.Materials = []Material{{Blocks: []int{1}}} }, "materials"},
		{"empty material", func(c *Config) { c.Materials = []Material{{Name: "a"}} }, "materials"},
		{"shared block", func(c *Config) {
			c.Materials = []Material{{Name: "a", Blocks: []int{1}}, {Name: "b", Blocks: []int{2, 1}}}
		}, "materials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.modify(&cfg)
			_, err := New(cfg)
			var ce *types.ConfigError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.param, ce.Param)
		})
	}

	policy, err := ParseDomainPolicy("Skip")
	require.NoError(t, err)
	assert.Equal(t, Skip, policy)
	_, err = ParseDomainPolicy("ignore")
	assert.Error(t, err)
}

func logConfig(policy DomainPolicy) Config {
	return Config{
		Binning:      binning.Config{Mode: binning.Log, PowMin: 0, PowMax: 2, NumMinor: 1},
		VarName:      "flux",
		LengthScale:  1,
		DomainPolicy: policy,
	}
}

func TestRun_DomainPolicy(t *testing.T) {
	m := mesh.NewHexBoxMesh(3, 1, 1, [3]float64{3, 1, 1}, nil)
	require.NoError(t, m.SetSolution("flux", []float64{5, -1, 50}, 1, false))

	p, err := New(logConfig(Abort))
	require.NoError(t, err)
	st := geometry.NewStore()
	_, err = p.Run(context.Background(), m, st)
	var de *types.DomainError
	require.True(t, errors.As(err, &de), "got %v", err)
	assert.Equal(t, 2, de.Element)
	assert.Equal(t, -1., de.Value)
	assert.Nil(t, st.Committed())

	p, err = New(logConfig(Clamp))
	require.NoError(t, err)
	res, err := p.Run(context.Background(), m, geometry.NewStore())
	require.NoError(t, err)
	assert.Empty(t, res.Skipped)
	require.Len(t, res.Regions, 2, "the clamped element joins bin 0 with element 1")
	assert.Equal(t, []int{0, 1}, res.Regions[0].Elements)

	core, logs := observer.New(zap.WarnLevel)
	p, err = New(logConfig(Skip), WithLogger(zap.New(core)))
	require.NoError(t, err)
	res, err = p.Run(context.Background(), m, geometry.NewStore())
	require.NoError(t, err)
	assert.Equal(t, []int{2}, res.Skipped)
	require.Len(t, res.Regions, 2, "the skipped element splits the row")
	assert.Equal(t, 0, res.Index.RegionOfElement(2))
	assert.Equal(t, 1, logs.FilterMessage("element skipped").Len())
	// Faces towards the skipped element are exterior
	for _, patch := range res.Model.Patches {
		assert.Equal(t, surfaces.Exterior, patch.Reverse)
	}
}

func TestRun_Errors(t *testing.T) {
	m := mesh.NewHexBoxMesh(2, 1, 1, [3]float64{2, 1, 1}, nil)
	p, err := New(linearConfig("missing", 0, 1, 2))
	require.NoError(t, err)
	_, err = p.Run(context.Background(), m, geometry.NewStore())
	assert.Error(t, err)

	m.SetCentroidField("t", func(c [3]float64) float64 { return c[0] })
	p, err = New(linearConfig("t", 0, 2, 2))
	require.NoError(t, err)

	busy := geometry.NewStore()
	require.NoError(t, busy.Begin())
	_, err = p.Run(context.Background(), m, busy)
	var swe *types.SinkWriteError
	assert.True(t, errors.As(err, &swe), "got %v", err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Run(ctx, m, geometry.NewStore())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndex(t *testing.T) {
	tm := mesh.GetStandardTestMeshes()
	m := tm.TwoBlockHexMesh.ConvertToMesh()
	p, err := New(Config{Binning: binning.Config{Mode: binning.Disabled}, LengthScale: 1})
	require.NoError(t, err)
	res, err := p.Run(context.Background(), m, geometry.NewStore())
	require.NoError(t, err)

	idx := res.Index
	for k := 0; k < m.NumElements; k++ {
		id := idx.ElementID(k)
		back, ok := idx.ElementIndex(id)
		require.True(t, ok)
		assert.Equal(t, k, back)
	}
	_, ok := idx.ElementIndex(99)
	assert.False(t, ok)

	for _, r := range res.Regions {
		h, ok := idx.VolumeHandle(r.ID)
		require.True(t, ok)
		back, ok := idx.RegionOfVolume(h)
		require.True(t, ok)
		assert.Equal(t, r.ID, back)
		for _, k := range r.Elements {
			vh, ok := idx.VolumeOfElement(idx.ElementID(k))
			require.True(t, ok)
			assert.Equal(t, h, vh)
		}
	}
	for _, patch := range res.Model.Patches {
		h, ok := idx.SurfaceHandle(patch.ID)
		require.True(t, ok)
		back, ok := idx.PatchOfSurface(h)
		require.True(t, ok)
		assert.Equal(t, patch.ID, back)
	}
	_, ok = idx.VolumeOfElement(99)
	assert.False(t, ok)
}
