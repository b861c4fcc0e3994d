package InputParameters

import (
	"fmt"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/notargets/meshgeom/binning"
	"github.com/notargets/meshgeom/pipeline"
)

type MaterialParameters struct {
	Name   string `json:"Name"`
	Blocks []int  `json:"Blocks"`
}

// Parameters obtained from the YAML input file
type GeometryParameters struct {
	Title              string               `json:"Title"`
	BinningMode        string               `json:"BinningMode"` // linear, log or disabled
	VarName            string               `json:"VarName"`
	VarMin             float64              `json:"VarMin"`
	VarMax             float64              `json:"VarMax"`
	NumVarBins         int                  `json:"NumVarBins"`
	PowMin             int                  `json:"PowMin"`
	PowMax             int                  `json:"PowMax"`
	NumMinor           int                  `json:"NumMinor"`
	LengthScale        float64              `json:"LengthScale"`
	FacetingTolerance  float64              `json:"FacetingTolerance"`
	GeometryResolution float64              `json:"GeometryResolution"`
	DomainPolicy       string               `json:"DomainPolicy"` // abort, clamp or skip
	Materials          []MaterialParameters `json:"Materials"`
}

// NewGeometryParameters returns the defaults that apply to keys missing from the input file
func NewGeometryParameters() *GeometryParameters {
	return &GeometryParameters{
		BinningMode:       "linear",
		LengthScale:       1,
		FacetingTolerance: 1.e-4,
		DomainPolicy:      "abort",
	}
}

func (gp *GeometryParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, gp)
}

// PipelineConfig converts the parameters, reporting invalid mode or policy names as *types.ConfigError
func (gp *GeometryParameters) PipelineConfig() (cfg pipeline.Config, err error) {
	var mode binning.Mode
	if mode, err = binning.ParseMode(gp.BinningMode); err != nil {
		return
	}
	if cfg.DomainPolicy, err = pipeline.ParseDomainPolicy(gp.DomainPolicy); err != nil {
		return
	}
	cfg.Binning = binning.Config{
		Mode:       mode,
		VarMin:     gp.VarMin,
		VarMax:     gp.VarMax,
		NumVarBins: gp.NumVarBins,
		PowMin:     gp.PowMin,
		PowMax:     gp.PowMax,
		NumMinor:   gp.NumMinor,
	}
	cfg.VarName = gp.VarName
	cfg.LengthScale = gp.LengthScale
	cfg.FacetingTolerance = gp.FacetingTolerance
	cfg.GeometryResolution = gp.GeometryResolution
	for _, mat := range gp.Materials {
		cfg.Materials = append(cfg.Materials, pipeline.Material{Name: mat.Name, Blocks: mat.Blocks})
	}
	return
}

func (gp *GeometryParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", gp.Title)
	fmt.Printf("[%s]\t\t\t= Binning Mode\n", gp.BinningMode)
	fmt.Printf("[%s]\t\t\t= Variable\n", gp.VarName)
	switch strings.ToLower(gp.BinningMode) {
	case "log", "logarithmic":
		fmt.Printf("[%d, %d]\t\t\t= Decades (10^PowMin, 10^PowMax)\n", gp.PowMin, gp.PowMax)
		fmt.Printf("[%d]\t\t\t\t= Minor Divisions\n", gp.NumMinor)
	case "linear":
		fmt.Printf("[%8.5g, %8.5g]\t= Variable Range\n", gp.VarMin, gp.VarMax)
		fmt.Printf("[%d]\t\t\t\t= Number of Bins\n", gp.NumVarBins)
	}
	fmt.Printf("%8.5g\t\t= Length Scale\n", gp.LengthScale)
	fmt.Printf("%8.5g\t\t= Faceting Tolerance\n", gp.FacetingTolerance)
	fmt.Printf("%8.5g\t\t= Geometry Resolution\n", gp.GeometryResolution)
	fmt.Printf("[%s]\t\t\t= Domain Policy\n", gp.DomainPolicy)
	for _, mat := range gp.Materials {
		fmt.Printf("Materials[%s] = %v\n", mat.Name, mat.Blocks)
	}
}
