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
	"io/ioutil"
	"os"

	"github.com/pkg/profile"
	"github.com/pradeep-pyro/triangle"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gofea/InputParameters"
	"github.com/notargets/gofea/assembler"
	"github.com/notargets/gofea/contact"
	"github.com/notargets/gofea/mesh"
	"github.com/notargets/gofea/solver"
	"github.com/notargets/gofea/utils"
)

// RunCmd solves a cantilevered block problem on a Delaunay-triangulated unit
// square, static or time stepping per the input parameters.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Solve a deformable block problem from a YAML parameter file",
	Long:  `Solve a deformable block problem from a YAML parameter file`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		icFile, err := cmd.Flags().GetString("inputConditionsFile")
		if err != nil {
			panic(err)
		}
		stats, _ := cmd.Flags().GetBool("matrixStats")
		prof, _ := cmd.Flags().GetBool("profile")
		if prof {
			defer profile.Start(profile.CPUProfile).Stop()
		}
		sp := processInput(icFile)
		sp.Print()
		RunSimulation(sp, stats)
	},
}

func init() {
	rootCmd.AddCommand(RunCmd)
	RunCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- DT\n\t- FinalTime\n\t- Formulation")
	RunCmd.Flags().BoolP("matrixStats", "m", false, "print reduced Hessian statistics before solving")
	RunCmd.Flags().BoolP("profile", "p", false, "write a CPU profile for the solve")
}

func processInput(icFile string) (sp *InputParameters.SimulationParameters) {
	if len(icFile) == 0 {
		err := fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile)")
		fmt.Printf("error: %s\n", err.Error())
		exampleFile := `
########################################
Title: "Cantilever"
Formulation: LinearElasticity
YoungsModulus: 1.e6
PoissonRatio: 0.3
Density: 1000.
BodyForce: [0., -9.81]
DT: 0.01
FinalTime: 0.25
GridN: 8
########################################
`
		fmt.Printf("Example File:%s\n", exampleFile)
		os.Exit(1)
	}
	data, err := ioutil.ReadFile(icFile)
	if err != nil {
		panic(err)
	}
	sp = &InputParameters.SimulationParameters{}
	if err = sp.Parse(data); err != nil {
		panic(err)
	}
	return
}

// delaunaySquare triangulates a GridN x GridN point lattice on the unit
// square.
func delaunaySquare(n int) (verts *mat.Dense, elements [][]int) {
	var (
		np  = n + 1
		h   = 1.0 / float64(n)
		pts = make([][2]float64, 0, np*np)
	)
	for j := 0; j < np; j++ {
		for i := 0; i < np; i++ {
			pts = append(pts, [2]float64{float64(i) * h, float64(j) * h})
		}
	}
	faces := triangle.Delaunay(pts)
	verts = mat.NewDense(len(pts), 2, nil)
	for i, p := range pts {
		verts.Set(i, 0, p[0])
		verts.Set(i, 1, p[1])
	}
	for _, f := range faces {
		elements = append(elements, []int{int(f[0]), int(f[1]), int(f[2])})
	}
	return
}

func RunSimulation(sp *InputParameters.SimulationParameters, stats bool) {
	var (
		form        = assembler.NewFormulation(sp.Formulation)
		verts, elem = delaunaySquare(sp.GridN)
	)
	// Clamp the left edge of the block
	fixed := mesh.SelectNodes(verts, func(pos []float64) bool { return pos[0] < 1.e-12 })
	m, err := mesh.NewDiscretization(2, verts, elem, mesh.ConstrainNodes(2, fixed), sp.Density)
	if err != nil {
		panic(err)
	}
	fa := assembler.NewFEAssembler(m, assembler.Material{
		YoungsModulus:   sp.YoungsModulus,
		PoissonRatio:    sp.PoissonRatio,
		SpringStiffness: sp.SpringStiffness,
	}, 0)
	ra := assembler.NewRhsAssembler(m, form, assembler.BoundarySpec{
		BodyForce: func(pos []float64, t float64) []float64 {
			if len(sp.BodyForce) == 2 {
				return sp.BodyForce
			}
			return []float64{0, 0}
		},
	})
	cfg := solver.DefaultConfig()
	cfg.TimeDependent = sp.DT > 0 && sp.FinalTime > 0
	cfg.HasCollision = sp.HasCollision
	if sp.BarrierStiffness > 0 {
		cfg.BarrierStiffness = sp.BarrierStiffness
	}
	if sp.DHatSquared > 0 {
		cfg.DHatSquared = sp.DHatSquared
	}
	var ce contact.Evaluator
	if cfg.HasCollision {
		ce = contact.NewBarrierEvaluator()
	}
	p := solver.NewNLProblem(m, fa, ra, ce, cfg, 0)

	ns := solver.NewNewtonSolver()
	ns.MaxIterations = sp.MaxNewtonIterations
	ns.GradTol = sp.NewtonTolerance

	if stats {
		H := p.Hessian(make([]float64, p.ReducedSize()))
		utils.ShowMatrixStats(utils.CSRToDense(H))
	}

	if !cfg.TimeDependent {
		x, err := solver.SolveStatic(p, ns)
		if err != nil {
			fmt.Printf("solve failed: %s\n", err.Error())
			os.Exit(1)
		}
		fmt.Printf("static solve done, |u|_max = %.6e\n", maxAbs(x))
		return
	}
	x0 := make([]float64, p.FullSize())
	_, err = solver.Simulate(p, ns, x0, sp.DT, sp.FinalTime,
		func(step int, t float64, x []float64) {
			fmt.Printf("step %4d  t = %8.4f  |u|_max = %.6e\n", step, t, maxAbs(x))
		})
	if err != nil {
		fmt.Printf("simulation failed: %s\n", err.Error())
		os.Exit(1)
	}
}

func maxAbs(v []float64) (m float64) {
	for _, x := range v {
		if x < 0 {
			x = -x
		}
		if x > m {
			m = x
		}
	}
	return
}
