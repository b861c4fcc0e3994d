package pipeline

import (
	"fmt"
	"strings"

	"github.com/notargets/meshgeom/binning"
	"github.com/notargets/meshgeom/types"
)

// DomainPolicy decides what happens to an element whose value the binning scheme cannot represent
type DomainPolicy uint8

const (
	Abort DomainPolicy = iota // fail the run
	Clamp                     // put the element in value bin 0 of its material
	Skip                      // leave the element out of every region
)

func (p DomainPolicy) String() string {
	return [...]string{"abort", "clamp", "skip"}[p]
}

func ParseDomainPolicy(s string) (DomainPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return Abort, nil
	case "clamp":
		return Clamp, nil
	case "skip":
		return Skip, nil
	}
	return Abort, &types.ConfigError{Param: "domain_policy", Reason: fmt.Sprintf("unknown policy %q", s)}
}

// Material is a named set of element blocks
type Material struct {
	Name   string `json:"name"`
	Blocks []int  `json:"blocks"`
}

type Config struct {
	Binning            binning.Config
	VarName            string // Element field to bin, only summarized when binning is disabled
	LengthScale        float64
	FacetingTolerance  float64
	GeometryResolution float64
	DomainPolicy       DomainPolicy
	Materials          []Material // Empty to make one material per mesh block
}

func (cfg *Config) validate() (*binning.Scheme, error) {
	scheme, err := binning.NewScheme(cfg.Binning)
	if err != nil {
		return nil, err
	}
	if cfg.Binning.Mode != binning.Disabled && cfg.VarName == "" {
		return nil, &types.ConfigError{Param: "var_name", Reason: "a variable is needed to bin by value"}
	}
	if !(cfg.LengthScale > 0) {
		return nil, &types.ConfigError{Param: "length_scale", Reason: fmt.Sprintf("must be positive, have %g",
			cfg.LengthScale)}
	}
	if cfg.FacetingTolerance < 0 {
		return nil, &types.ConfigError{Param: "faceting_tolerance", Reason: "must not be negative"}
	}
	if cfg.GeometryResolution < 0 {
		return nil, &types.ConfigError{Param: "geometry_resolution", Reason: "must not be negative"}
	}
	if cfg.DomainPolicy > Skip {
		return nil, &types.ConfigError{Param: "domain_policy", Reason: fmt.Sprintf("unknown policy %d",
			cfg.DomainPolicy)}
	}
	owner := make(map[int]string)
	for i, mat := range cfg.Materials {
		if mat.Name == "" {
			return nil, &types.ConfigError{Param: "materials", Reason: fmt.Sprintf("material %d has no name", i)}
		}
		if len(mat.Blocks) == 0 {
			return nil, &types.ConfigError{Param: "materials", Reason: fmt.Sprintf("material %q has no blocks",
				mat.Name)}
		}
		for _, block := range mat.Blocks {
			if other, dup := owner[block]; dup {
				return nil, &types.ConfigError{Param: "materials",
					Reason: fmt.Sprintf("block %d is in both %q and %q", block, other, mat.Name)}
			}
			owner[block] = mat.Name
		}
	}
	return scheme, nil
}
