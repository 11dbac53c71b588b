package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gofea/utils"
)

// NewtonSolver is the unconstrained optimizer consuming the NLProblem
// objective: damped Newton with Armijo backtracking, the step additionally
// gated by the problem's contact-feasibility check. The reduced linear system
// is factored dense, Cholesky first with an LU fallback for indefinite
// Hessians.
type NewtonSolver struct {
	MaxIterations    int
	GradTol          float64
	MaxLineSearchIts int
	ArmijoC          float64
	Verbose          bool
}

func NewNewtonSolver() *NewtonSolver {
	return &NewtonSolver{
		MaxIterations:    100,
		GradTol:          1e-10,
		MaxLineSearchIts: 40,
		ArmijoC:          1e-4,
	}
}

// Solve minimizes the problem energy starting from the reduced vector x0 and
// returns the reduced minimizer. Non-convergence and failed line searches are
// ordinary errors; an infeasible step proposal is handled by shrinking, never
// reported as failure.
func (ns *NewtonSolver) Solve(p *NLProblem, x0 []float64) (x []float64, err error) {
	if len(x0) != p.ReducedSize() {
		panic(fmt.Errorf("solver: Newton start vector has length %d, reduced size is %d",
			len(x0), p.ReducedSize()))
	}
	x = append([]float64(nil), x0...)
	for iter := 0; iter < ns.MaxIterations; iter++ {
		g := p.Gradient(x)
		gNorm := norm2(g)
		if ns.Verbose {
			fmt.Printf("newton iter %3d: |grad| = %.6e\n", iter, gNorm)
		}
		if gNorm < ns.GradTol {
			return x, nil
		}
		d, solveErr := ns.solveStep(p, x, g)
		if solveErr != nil {
			return x, solveErr
		}
		x, err = ns.lineSearch(p, x, g, d)
		if err != nil {
			return x, err
		}
	}
	return x, fmt.Errorf("newton: no convergence after %d iterations", ns.MaxIterations)
}

// solveStep solves H d = -g on the reduced DOFs.
func (ns *NewtonSolver) solveStep(p *NLProblem, x, g []float64) (d []float64, err error) {
	var (
		H    = utils.CSRToDense(p.Hessian(x))
		n    = len(g)
		rhs  = mat.NewVecDense(n, nil)
		sol  mat.VecDense
		chol mat.Cholesky
	)
	for i, v := range g {
		rhs.SetVec(i, -v)
	}
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(H.At(i, j)+H.At(j, i)))
		}
	}
	if chol.Factorize(sym) {
		if err = chol.SolveVecTo(&sol, rhs); err == nil {
			return sol.RawVector().Data, nil
		}
	}
	var lu mat.LU
	lu.Factorize(H)
	if err = lu.SolveVecTo(&sol, false, rhs); err != nil {
		return nil, fmt.Errorf("newton: linear solve failed: %w", err)
	}
	return sol.RawVector().Data, nil
}

// lineSearch backtracks from the unit step until the step is contact-feasible
// and achieves Armijo decrease.
func (ns *NewtonSolver) lineSearch(p *NLProblem, x, g, d []float64) (next []float64, err error) {
	var (
		f0    = p.Value(x)
		slope float64
		alpha = 1.0
	)
	for i := range g {
		slope += g[i] * d[i]
	}
	if slope >= 0 {
		return nil, fmt.Errorf("newton: search direction is not a descent direction (slope %g)", slope)
	}
	next = make([]float64, len(x))
	for it := 0; it < ns.MaxLineSearchIts; it++ {
		for i := range x {
			next[i] = x[i] + alpha*d[i]
		}
		if p.IsStepValid(x, next) && p.Value(next) <= f0+ns.ArmijoC*alpha*slope {
			return next, nil
		}
		alpha /= 2
	}
	return nil, fmt.Errorf("newton: line search failed after %d halvings", ns.MaxLineSearchIts)
}

func norm2(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}
