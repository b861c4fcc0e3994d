package binning

import (
	"errors"
	"math"
	"testing"

	"github.com/notargets/meshgeom/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheme_ConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		param string
	}{
		{"zero bins", Config{Mode: Linear, VarMin: 0, VarMax: 1, NumVarBins: 0}, "num_var_bins"},
		{"negative bins", Config{Mode: Linear, VarMin: 0, VarMax: 1, NumVarBins: -2}, "num_var_bins"},
		{"zero width", Config{Mode: Linear, VarMin: 1, VarMax: 1, NumVarBins: 4}, "var_min/var_max"},
		{"inverted", Config{Mode: Linear, VarMin: 2, VarMax: 1, NumVarBins: 4}, "var_min/var_max"},
		{"infinite", Config{Mode: Linear, VarMin: 0, VarMax: math.Inf(1), NumVarBins: 4}, "var_min/var_max"},
		{"empty decades", Config{Mode: Log, PowMin: 2, PowMax: 2, NumMinor: 4}, "pow_min/pow_max"},
		{"no minor bins", Config{Mode: Log, PowMin: 0, PowMax: 2, NumMinor: 0}, "num_minor"},
		{"unknown mode", Config{Mode: Mode(9)}, "binning_mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewScheme(tt.cfg)
			assert.Nil(t, s)
			var ce *types.ConfigError
			require.True(t, errors.As(err, &ce), "expected a config error, got %v", err)
			assert.Equal(t, tt.param, ce.Param)
		})
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"linear": Linear, "LOG": Log, "logarithmic": Log, " disabled ": Disabled, "none": Disabled,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("quadratic")
	var ce *types.ConfigError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, "log", Log.String())
}

func TestLinearBin(t *testing.T) {
	s, err := NewScheme(Config{Mode: Linear, VarMin: 0, VarMax: 1, NumVarBins: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, s.NumValueBins())

	tests := []struct {
		v    float64
		want int
	}{
		{0, 0},      // var_min is the first bin
		{1, 9},      // var_max lands in the last bin, not past it
		{-5, 0},     // saturate low
		{42, 9},     // saturate high
		{1e300, 9},  // no integer overflow
		{-1e300, 0},
		{0.05, 0},
		{0.15, 1},
		{0.999, 9},
	}
	for _, tt := range tests {
		got, err := s.Bin(tt.v)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "v=%g", tt.v)
	}

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := s.Bin(v)
		var de *types.DomainError
		assert.True(t, errors.As(err, &de), "v=%g", v)
	}
}

func TestLinearBin_Total(t *testing.T) {
	// Every finite value gets exactly one bin in range
	s, err := NewScheme(Config{Mode: Linear, VarMin: -3, VarMax: 7, NumVarBins: 7})
	require.NoError(t, err)
	for v := -10.; v <= 10; v += 0.01 {
		b, err := s.Bin(v)
		require.NoError(t, err)
		require.True(t, b >= 0 && b < 7)
		if v >= -3 && v < 7 {
			lo, hi := s.Bounds(b)
			assert.True(t, v >= lo-1e-12 && v < hi+1e-12, "v=%g bin %d [%g,%g)", v, b, lo, hi)
		}
	}
}

func TestLogBin(t *testing.T) {
	s, err := NewScheme(Config{Mode: Log, PowMin: -1, PowMax: 3, NumMinor: 2})
	require.NoError(t, err)
	assert.Equal(t, 8, s.NumValueBins())

	tests := []struct {
		v    float64
		want int
	}{
		{0.1, 0},    // 10^powMin is the first bin
		{1000, 7},   // 10^powMax lands in the last bin
		{1e9, 7},    // saturate high
		{1e300, 7},  // no integer overflow
		{1e-9, 0},   // saturate low
		{1, 2},      // exact decade boundaries start a decade
		{10, 4},
		{100, 6},
		{1.2, 2},    // m = floor(2*(0.2)) = 0
		{1.6, 3},    // m = floor(2*(0.6)) = 1
		{9.99, 3},   // m clamps to nMinor-1
		{0.17, 1},
		{999.9, 7},
		{0.999, 1},
		{0.0999, 0},
	}
	for _, tt := range tests {
		got, err := s.Bin(tt.v)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "v=%g", tt.v)
	}

	for _, v := range []float64{0, -1, math.NaN()} {
		_, err := s.Bin(v)
		var de *types.DomainError
		require.True(t, errors.As(err, &de), "v=%g", v)
		assert.Equal(t, -1, de.Element)
	}
}

func TestLogBounds(t *testing.T) {
	s, err := NewScheme(Config{Mode: Log, PowMin: 0, PowMax: 2, NumMinor: 2})
	require.NoError(t, err)
	lo, hi := s.Bounds(0)
	assert.InDelta(t, 1., lo, 1e-12)
	assert.InDelta(t, 1.5, hi, 1e-12)
	lo, hi = s.Bounds(1)
	assert.InDelta(t, 1.5, lo, 1e-12)
	assert.InDelta(t, 10., hi, 1e-12)
	lo, hi = s.Bounds(3)
	assert.InDelta(t, 15., lo, 1e-12)
	assert.InDelta(t, 100., hi, 1e-12)
}

func TestDisabled(t *testing.T) {
	s, err := NewScheme(Config{Mode: Disabled})
	require.NoError(t, err)
	assert.Equal(t, 1, s.NumValueBins())
	for _, v := range []float64{-1, 0, 1e10, math.NaN()} {
		b, err := s.Bin(v)
		require.NoError(t, err)
		assert.Equal(t, 0, b)
	}
	lo, hi := s.Bounds(0)
	assert.True(t, math.IsInf(lo, -1) && math.IsInf(hi, 1))
}

func TestFlatIndex(t *testing.T) {
	s, err := NewScheme(Config{Mode: Linear, VarMin: 0, VarMax: 1, NumVarBins: 3})
	require.NoError(t, err)
	assert.Equal(t, 0, s.FlatIndex(0, 0))
	assert.Equal(t, 5, s.FlatIndex(1, 2))
	mat, bin := s.Split(7)
	assert.Equal(t, 2, mat)
	assert.Equal(t, 1, bin)
}

func TestDecade(t *testing.T) {
	for p := -20; p <= 20; p++ {
		assert.Equal(t, p, decade(math.Pow10(p)), "10^%d", p)
	}
	assert.Equal(t, 2, decade(999.999))
	assert.Equal(t, -3, decade(0.00999))
}
