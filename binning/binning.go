package binning

import (
	"fmt"
	"math"
	"strings"

	"github.com/notargets/meshgeom/types"
)

// Mode selects how a scalar value is mapped to a value bin
type Mode uint8

const (
	Linear Mode = iota
	Log
	Disabled
)

func (m Mode) String() string {
	switch m {
	case Linear:
		return "linear"
	case Log:
		return "log"
	case Disabled:
		return "disabled"
	}
	return fmt.Sprintf("Mode(%d)", m)
}

// ParseMode accepts linear, log (or logarithmic) and disabled, case insensitive
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear":
		return Linear, nil
	case "log", "logarithmic":
		return Log, nil
	case "disabled", "none":
		return Disabled, nil
	}
	return 0, &types.ConfigError{Param: "binning_mode", Reason: fmt.Sprintf("unknown mode %q", s)}
}

type Config struct {
	Mode Mode

	// Linear
	VarMin, VarMax float64
	NumVarBins     int

	// Logarithmic, bins span the decades 10^PowMin .. 10^PowMax
	PowMin, PowMax int
	NumMinor       int
}

// Scheme is a validated binning configuration
type Scheme struct {
	cfg     Config
	width   float64
	numBins int
}

// NewScheme validates the configuration, returning a *types.ConfigError when it cannot produce bins
func NewScheme(cfg Config) (*Scheme, error) {
	s := &Scheme{cfg: cfg}
	switch cfg.Mode {
	case Linear:
		if cfg.NumVarBins <= 0 {
			return nil, &types.ConfigError{Param: "num_var_bins",
				Reason: fmt.Sprintf("need at least one bin, have %d", cfg.NumVarBins)}
		}
		if math.IsNaN(cfg.VarMin) || math.IsNaN(cfg.VarMax) || math.IsInf(cfg.VarMin, 0) || math.IsInf(cfg.VarMax, 0) {
			return nil, &types.ConfigError{Param: "var_min/var_max", Reason: "bounds must be finite"}
		}
		if cfg.VarMax <= cfg.VarMin {
			return nil, &types.ConfigError{Param: "var_min/var_max",
				Reason: fmt.Sprintf("var_max %g must exceed var_min %g, bins would have zero or negative width",
					cfg.VarMax, cfg.VarMin)}
		}
		s.width = (cfg.VarMax - cfg.VarMin) / float64(cfg.NumVarBins)
		s.numBins = cfg.NumVarBins
	case Log:
		if cfg.PowMax <= cfg.PowMin {
			return nil, &types.ConfigError{Param: "pow_min/pow_max",
				Reason: fmt.Sprintf("pow_max %d must exceed pow_min %d", cfg.PowMax, cfg.PowMin)}
		}
		if cfg.NumMinor <= 0 {
			return nil, &types.ConfigError{Param: "num_minor",
				Reason: fmt.Sprintf("need at least one minor division per decade, have %d", cfg.NumMinor)}
		}
		s.numBins = (cfg.PowMax - cfg.PowMin) * cfg.NumMinor
	case Disabled:
		s.numBins = 1
	default:
		return nil, &types.ConfigError{Param: "binning_mode", Reason: fmt.Sprintf("unknown mode %d", cfg.Mode)}
	}
	return s, nil
}

func (s *Scheme) Config() Config { return s.cfg }

func (s *Scheme) Mode() Mode { return s.cfg.Mode }

// NumValueBins returns the number of value bins per material
func (s *Scheme) NumValueBins() int { return s.numBins }

// FlatIndex flattens (material, value bin) into the bin array position
func (s *Scheme) FlatIndex(mat, bin int) int {
	return mat*s.numBins + bin
}

// Split is the inverse of FlatIndex
func (s *Scheme) Split(flat int) (mat, bin int) {
	return flat / s.numBins, flat % s.numBins
}

// Bin maps a value to its value bin. Out of range values saturate to the edge bins. Values the scheme cannot
// represent return a *types.DomainError with Element set to -1.
func (s *Scheme) Bin(v float64) (int, error) {
	if s.cfg.Mode == Disabled {
		return 0, nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &types.DomainError{Element: -1, Value: v, Reason: "value is not finite"}
	}
	switch s.cfg.Mode {
	case Linear:
		b := math.Floor((v - s.cfg.VarMin) / s.width)
		switch {
		case b < 0:
			return 0, nil
		case b > float64(s.numBins-1):
			return s.numBins - 1, nil
		}
		return int(b), nil
	case Log:
		if v <= 0 {
			return 0, &types.DomainError{Element: -1, Value: v, Reason: "logarithmic binning needs a positive value"}
		}
		p := clamp(decade(v), s.cfg.PowMin, s.cfg.PowMax-1)
		m := math.Floor(float64(s.cfg.NumMinor) * (v/math.Pow10(p) - 1))
		m = math.Max(0, math.Min(m, float64(s.cfg.NumMinor-1)))
		return (p-s.cfg.PowMin)*s.cfg.NumMinor + int(m), nil
	}
	return 0, nil
}

// Bounds returns the value interval [lo, hi) a value bin stands for. Edge bins saturate, the interval is the nominal
// one. Disabled binning covers the whole real line.
func (s *Scheme) Bounds(bin int) (lo, hi float64) {
	switch s.cfg.Mode {
	case Linear:
		lo = s.cfg.VarMin + float64(bin)*s.width
		hi = lo + s.width
		if bin == s.numBins-1 {
			hi = s.cfg.VarMax
		}
	case Log:
		n := s.cfg.NumMinor
		p := s.cfg.PowMin + bin/n
		m := bin % n
		decadeBase := math.Pow10(p)
		lo = decadeBase * (1 + float64(m)/float64(n))
		hi = decadeBase * (1 + float64(m+1)/float64(n))
		if m == n-1 {
			hi = 10 * decadeBase
		}
	default:
		lo, hi = math.Inf(-1), math.Inf(1)
	}
	return
}

// decade returns floor(log10(v)) corrected for rounding at exact powers of ten
func decade(v float64) (p int) {
	p = int(math.Floor(math.Log10(v)))
	for math.Pow10(p+1) <= v {
		p++
	}
	for p > -324 && math.Pow10(p) > v {
		p--
	}
	return
}

func clamp(i, lo, hi int) int {
	if i < lo {
		return lo
	}
	if i > hi {
		return hi
	}
	return i
}
