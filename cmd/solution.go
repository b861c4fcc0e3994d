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
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/notargets/meshgeom/mesh"
	"github.com/spf13/cobra"
)

type Solution struct {
	MeshFile    string
	ResultsFile string
	Name        string
	Scale       float64
	Normalize   bool
	OutputFile  string
}

// SolutionCmd represents the solution command
var SolutionCmd = &cobra.Command{
	Use:   "solution",
	Short: "Attaches a per element result vector to a mesh as a named field",
	Long: `Reads a results file holding one value per volume element in mesh order, scales it, optionally divides it
by the element volumes and writes the mesh back out with the values as a Gmsh $ElementData view`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		s := &Solution{}
		if s.MeshFile, err = cmd.Flags().GetString("meshFile"); err != nil {
			return
		}
		if s.ResultsFile, err = cmd.Flags().GetString("results"); err != nil {
			return
		}
		if s.Name, err = cmd.Flags().GetString("name"); err != nil {
			return
		}
		if s.OutputFile, err = cmd.Flags().GetString("output"); err != nil {
			return
		}
		s.Scale, _ = cmd.Flags().GetFloat64("scale")
		s.Normalize, _ = cmd.Flags().GetBool("normalize")
		return RunSolution(s, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(SolutionCmd)
	SolutionCmd.Flags().StringP("meshFile", "F", "", "volume mesh file to read in Gmsh 2.2 (.msh) format")
	SolutionCmd.Flags().StringP("results", "r", "", "results file, one value per element, # starts a comment")
	SolutionCmd.Flags().StringP("name", "n", "result", "name of the element field")
	SolutionCmd.Flags().Float64("scale", 1, "factor applied to every value")
	SolutionCmd.Flags().Bool("normalize", false, "divide each value by its element volume")
	SolutionCmd.Flags().StringP("output", "o", "", "mesh file to write, defaults to the input mesh")
}

func RunSolution(s *Solution, out io.Writer) (err error) {
	var (
		meshPath, resultsPath, outPath string
		m                              *mesh.Mesh
		results                        []float64
	)
	if meshPath, err = expandPath("a mesh file (-F, --meshFile)", s.MeshFile); err != nil {
		return
	}
	if resultsPath, err = expandPath("a results file (-r, --results)", s.ResultsFile); err != nil {
		return
	}
	outPath = meshPath
	if s.OutputFile != "" {
		if outPath, err = expandPath("an output file (-o, --output)", s.OutputFile); err != nil {
			return
		}
	}
	if s.Name == "" || strings.ContainsAny(s.Name, "\"\n") {
		return fmt.Errorf("invalid field name %q", s.Name)
	}
	if m, err = mesh.ReadMeshFile(meshPath); err != nil {
		return
	}
	if results, err = readResults(resultsPath); err != nil {
		return
	}
	if err = m.SetSolution(s.Name, results, s.Scale, s.Normalize); err != nil {
		return
	}
	if err = mesh.WriteGmsh22File(outPath, m); err != nil {
		return
	}
	fmt.Fprintf(out, "Field %q (step %d) with %d values written to %s\n",
		s.Name, m.Fields[s.Name].Step, len(results), outPath)
	return
}

// readResults reads the first column of a whitespace separated file
func readResults(path string) (results []float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		v, perr := strconv.ParseFloat(fields[0], 64)
		if perr != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, perr)
		}
		results = append(results, v)
	}
	return results, sc.Err()
}
