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
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/oldenj/shallow-water-equations/InputParameters"
	"github.com/oldenj/shallow-water-equations/model_problems/SWE2D"
	"github.com/oldenj/shallow-water-equations/types"
	"github.com/oldenj/shallow-water-equations/writer"
)

// RunCmd represents the run command
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a shallow water simulation from a YAML parameter file",
	Long: `Run a shallow water simulation from a YAML parameter file, like:

########################################
Title: "Radial Dam Break"
CellCountX: 100
CellCountY: 100
BlockCountX: 2
BlockCountY: 2
DomainSizeX: 1000
DomainSizeY: 1000
SimulationDuration: 15
CheckpointCount: 20
Scenario: RadialDamBreak
OutputPrefix: out/radial
Boundaries:
  left: wall
  right: wall
  bottom: wall
  top: wall
########################################
`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		inputFile, err := cmd.Flags().GetString("inputFile")
		if err != nil {
			panic(err)
		}
		verbose, _ := cmd.Flags().GetBool("verbose")
		ip, err := processInput(inputFile)
		if err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
		if err = RunSWE(ip, verbose); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(RunCmd)
	RunCmd.Flags().StringP("inputFile", "I", "", "YAML file with the simulation parameters")
	RunCmd.Flags().BoolP("verbose", "v", false, "per-checkpoint progress and debug logging")
}

func processInput(inputFile string) (ip *InputParameters.InputParametersSWE, err error) {
	if len(inputFile) == 0 {
		return nil, fmt.Errorf("must supply an input parameters file (-I, --inputFile)")
	}
	var data []byte
	if data, err = os.ReadFile(inputFile); err != nil {
		return nil, err
	}
	ip = &InputParameters.InputParametersSWE{}
	if err = ip.Parse(data); err != nil {
		return nil, err
	}
	return
}

// RunSWE assembles the simulation from the parsed parameters and runs it to
// completion.
func RunSWE(ip *InputParameters.InputParametersSWE, verbose bool) (err error) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
		ip.Print()
	}

	scenario, err := SWE2D.NewScenario(ip.Scenario)
	if err != nil {
		return
	}
	boundaries, err := resolveBoundaries(ip.Boundaries)
	if err != nil {
		return
	}
	if ip.CellCountX < 1 || ip.CellCountY < 1 {
		return fmt.Errorf("invalid cell counts (%d, %d)", ip.CellCountX, ip.CellCountY)
	}

	cfg := SWE2D.Config{
		CellCountX:         ip.CellCountX,
		CellCountY:         ip.CellCountY,
		BlockCountX:        ip.BlockCountX,
		BlockCountY:        ip.BlockCountY,
		CellSizeX:          ip.DomainSizeX / float64(ip.CellCountX),
		CellSizeY:          ip.DomainSizeY / float64(ip.CellCountY),
		OriginX:            ip.OriginX,
		OriginY:            ip.OriginY,
		SimulationDuration: ip.SimulationDuration,
		CheckpointCount:    ip.CheckpointCount,
		Boundaries:         boundaries,
		Scenario:           scenario,
		ParallelDegree:     ip.ParallelDegree,
		Verbose:            verbose,
	}
	if len(ip.OutputPrefix) != 0 {
		cfg.WriterFactory = func(blk *SWE2D.Block) (SWE2D.Writer, error) {
			path := fmt.Sprintf("%s_%d_%d.nc", ip.OutputPrefix, blk.PosX, blk.PosY)
			return writer.NewNetCdfWriter(path, blk.Bathymetry(), [4]int{1, 1, 1, 1},
				blk.Nx, blk.Ny, blk.Dx, blk.Dy, blk.OriginX, blk.OriginY)
		}
	}

	sim, err := SWE2D.NewSimulation(cfg, logger)
	if err != nil {
		return
	}
	return sim.Run()
}

func resolveBoundaries(names map[string]string) (
	boundaries [types.NumBoundaries]types.BoundaryType, err error) {
	var (
		edges = map[string]types.Boundary{
			"left":   types.BND_Left,
			"right":  types.BND_Right,
			"bottom": types.BND_Bottom,
			"top":    types.BND_Top,
		}
	)
	for i := range boundaries {
		boundaries[i] = types.BC_Wall
	}
	for name, typeName := range names {
		edge, ok := edges[name]
		if !ok {
			err = fmt.Errorf("unknown boundary edge %q", name)
			return
		}
		bt, ok := types.NewBoundaryType(typeName)
		if !ok {
			err = fmt.Errorf("unknown boundary type %q on %s edge", typeName, name)
			return
		}
		if bt == types.BC_Connect {
			err = fmt.Errorf("outer %s edge cannot be connect", name)
			return
		}
		boundaries[edge] = bt
	}
	return
}
