/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/notargets/meshgeom/InputParameters"
	"github.com/notargets/meshgeom/geometry"
	"github.com/notargets/meshgeom/mesh"
	"github.com/notargets/meshgeom/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Discretize struct {
	MeshFile   string
	ParamsFile string
	OutputFile string
	Quiet      bool
}

const exampleParamsFile = `
########################################
Title: "Reactor tally"
BinningMode: log     # linear, log or disabled
VarName: heating
PowMin: -3
PowMax: 2
NumMinor: 2
LengthScale: 100     # mesh units to geometry units
FacetingTolerance: 1.e-4
DomainPolicy: abort  # abort, clamp or skip
Materials:
  - Name: fuel
    Blocks: [1, 2]
########################################
`

// DiscretizeCmd represents the discretize command
var DiscretizeCmd = &cobra.Command{
	Use:   "discretize",
	Short: "Bins an element field of a volume mesh and writes the tagged geometry",
	Long: `Reads a Gmsh 2.2 volume mesh and a YAML parameters file, bins the elements by material and field value,
builds the connected regions of every bin and exports their surfaces and volumes as YAML or JSON`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		d := &Discretize{}
		if d.MeshFile, err = cmd.Flags().GetString("meshFile"); err != nil {
			return
		}
		if d.ParamsFile, err = cmd.Flags().GetString("inputParametersFile"); err != nil {
			return
		}
		if d.OutputFile, err = cmd.Flags().GetString("output"); err != nil {
			return
		}
		d.Quiet, _ = cmd.Flags().GetBool("quiet")
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
		return RunDiscretize(ctx, d, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(DiscretizeCmd)
	DiscretizeCmd.Flags().StringP("meshFile", "F", "", "volume mesh file to read in Gmsh 2.2 (.msh) format")
	DiscretizeCmd.Flags().StringP("inputParametersFile", "I", "", "YAML file for the binning, scaling and material parameters")
	DiscretizeCmd.Flags().StringP("output", "o", "geometry.yaml", "geometry export, .yaml, .yml or .json")
	DiscretizeCmd.Flags().BoolP("quiet", "q", false, "skip the parameter and mesh summaries")
}

func readParameters(d *Discretize) (gp *InputParameters.GeometryParameters, err error) {
	var (
		path string
		data []byte
	)
	if path, err = expandPath("an input parameters file (-I, --inputParametersFile)", d.ParamsFile); err != nil {
		return nil, fmt.Errorf("%w\nExample File:%s", err, exampleParamsFile)
	}
	if data, err = ioutil.ReadFile(path); err != nil {
		return
	}
	gp = InputParameters.NewGeometryParameters()
	if err = gp.Parse(data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return
}

func RunDiscretize(ctx context.Context, d *Discretize, out io.Writer) (err error) {
	var (
		gp       *InputParameters.GeometryParameters
		cfg      pipeline.Config
		m        *mesh.Mesh
		meshPath string
		outPath  string
		logger   *zap.Logger
	)
	if gp, err = readParameters(d); err != nil {
		return
	}
	if cfg, err = gp.PipelineConfig(); err != nil {
		return
	}
	if meshPath, err = expandPath("a mesh file (-F, --meshFile)", d.MeshFile); err != nil {
		return
	}
	if outPath, err = expandPath("an output file (-o, --output)", d.OutputFile); err != nil {
		return
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(outPath)), ".")
	if format != "yaml" && format != "yml" && format != "json" {
		return fmt.Errorf("output %s: unknown format %q, use .yaml or .json", outPath, format)
	}
	if logger, err = newLogger(); err != nil {
		return
	}
	defer func() { _ = logger.Sync() }()

	if !d.Quiet {
		gp.Print()
	}
	if m, err = mesh.ReadMeshFile(meshPath); err != nil {
		return
	}
	if !d.Quiet {
		m.PrintStatistics()
	}

	p, err := pipeline.New(cfg, pipeline.WithLogger(logger), pipeline.WithWorkers(viper.GetInt("workers")))
	if err != nil {
		return
	}
	store := geometry.NewStore()
	start := time.Now()
	res, err := p.Run(ctx, m, store)
	if err != nil {
		return
	}
	printSummary(out, res, store.Committed(), time.Since(start))

	if err = writeExport(outPath, store, format); err != nil {
		return
	}
	fmt.Fprintf(out, "Geometry written to %s\n", outPath)
	return
}

// writeExport encodes the committed geometry before touching the output file, so a failed export leaves any
// earlier file in place
func writeExport(path string, store *geometry.Store, format string) error {
	var buf bytes.Buffer
	if err := store.Export(&buf, format); err != nil {
		return err
	}
	return ioutil.WriteFile(path, buf.Bytes(), 0644)
}

func printSummary(out io.Writer, res *pipeline.Result, snap *geometry.Snapshot, elapsed time.Duration) {
	fmt.Fprintf(out, "%d materials, %d regions, %d patches, %d facets in %v\n",
		len(res.Materials), len(res.Regions), len(res.Model.Patches), res.Report.Facets, elapsed.Round(time.Millisecond))
	for _, st := range res.BinStats {
		fmt.Fprintf(out, "  %-12s bin %3d [%10.4g, %10.4g): %6d elements %4d regions  mean %10.4g  volume %10.4g  area %10.4g\n",
			res.Materials[st.Material].Name, st.ValueBin, st.Lower, st.Upper, st.Elements, st.Regions, st.Mean, st.Volume,
			st.Area)
	}
	if len(res.Skipped) > 0 {
		fmt.Fprintf(out, "  %d elements skipped outside the binning domain\n", len(res.Skipped))
	}
	if len(res.Regions) == 0 {
		return
	}
	adj := snap.VolumeAdjacency()
	r, _ := adj.Dims()
	fmt.Fprintf(out, "Volume adjacency: %d volumes, %d adjacent pairs\n", r, adj.NNZ()/2)
}
