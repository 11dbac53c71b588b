package solver

import (
	"fmt"
)

// StepFunc observes each accepted time step.
type StepFunc func(step int, t float64, x []float64)

// Simulate advances a time-dependent problem from the full-DOF initial state
// x0 with implicit steps of size dt until tEnd: each step seeds the previous
// state, minimizes the incremental potential with Newton, and accepts the
// result through UpdateQuantities. The final full-DOF state is returned.
func Simulate(p *NLProblem, ns *NewtonSolver, x0 []float64, dt, tEnd float64, onStep StepFunc) (x []float64, err error) {
	if !p.Cfg.TimeDependent {
		panic(fmt.Errorf("solver: Simulate requires a time-dependent problem"))
	}
	var (
		v    = make([]float64, p.FullSize())
		t    = p.Time()
		step int
	)
	x = append([]float64(nil), x0...)
	for t < tEnd-1e-12 {
		p.InitTimestep(x, v, dt)
		var sol []float64
		if sol, err = ns.Solve(p, p.FullToReduced(x)); err != nil {
			return x, fmt.Errorf("step %d (t = %g): %w", step, t, err)
		}
		full := p.ReducedToFull(sol)
		t += dt
		p.UpdateQuantities(t, full)
		x = full
		copy(v, p.vPrev)
		step++
		if onStep != nil {
			onStep(step, t, x)
		}
	}
	return x, nil
}

// SolveStatic minimizes a static problem from the zero reduced state and
// returns the full-DOF equilibrium configuration.
func SolveStatic(p *NLProblem, ns *NewtonSolver) (x []float64, err error) {
	if p.Cfg.TimeDependent {
		panic(fmt.Errorf("solver: SolveStatic requires a static problem"))
	}
	var sol []float64
	if sol, err = ns.Solve(p, make([]float64, p.ReducedSize())); err != nil {
		return nil, err
	}
	return p.ReducedToFull(sol), nil
}
