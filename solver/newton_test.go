package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gofea/assembler"
	"github.com/notargets/gofea/utils"
)

func TestNewtonStaticLinear(t *testing.T) {
	var (
		p  = clampedProblem(t, assembler.LinearElasticity, DefaultConfig())
		ns = NewNewtonSolver()
	)
	x, err := SolveStatic(p, ns)
	assert.NoError(t, err)
	assert.Equal(t, p.FullSize(), len(x))

	// At the minimum the reduced gradient vanishes
	assert.InDelta(t, 0., norm2(p.Gradient(p.FullToReduced(x))), 1.e-8)

	// A quadratic energy is minimized in one linear solve: the Newton result
	// matches the direct solution of H d = -g(0)
	{
		var (
			zero = make([]float64, p.ReducedSize())
			H    = utils.CSRToDense(p.Hessian(zero))
			g    = p.Gradient(zero)
			rhs  = mat.NewVecDense(len(g), nil)
			sol  mat.VecDense
			lu   mat.LU
		)
		for i, v := range g {
			rhs.SetVec(i, -v)
		}
		lu.Factorize(H)
		assert.NoError(t, lu.SolveVecTo(&sol, false, rhs))
		got := p.FullToReduced(x)
		for i := range got {
			assert.InDelta(t, sol.AtVec(i), got[i], 1.e-8)
		}
	}

	// Dirichlet values at t=0 are zero, so the clamped DOFs stay at rest
	for _, i := range p.Mesh.ConstrainedDOFs {
		assert.InDelta(t, 0., x[i], 1.e-12)
	}
}

func TestNewtonStaticMassSpring(t *testing.T) {
	var (
		p  = clampedProblem(t, assembler.MassSpring, DefaultConfig())
		ns = NewNewtonSolver()
	)
	ns.GradTol = 1e-9
	x, err := SolveStatic(p, ns)
	assert.NoError(t, err)
	assert.InDelta(t, 0., norm2(p.Gradient(p.FullToReduced(x))), 1.e-7)
}

func TestNewtonContracts(t *testing.T) {
	p := clampedProblem(t, assembler.LinearElasticity, DefaultConfig())
	ns := NewNewtonSolver()
	assert.Panics(t, func() { ns.Solve(p, make([]float64, p.FullSize())) })
	assert.Panics(t, func() { Simulate(p, ns, make([]float64, p.FullSize()), 0.1, 1, nil) })
}

func TestSimulate(t *testing.T) {
	var (
		cfg = Config{TimeDependent: true, BarrierStiffness: 1e8, DHatSquared: 1e-6}
		p   = clampedProblem(t, assembler.LinearElasticity, cfg)
		ns  = NewNewtonSolver()
		dt  = 0.1
	)
	assert.Panics(t, func() { SolveStatic(p, ns) })

	var steps int
	x, err := Simulate(p, ns, make([]float64, p.FullSize()), dt, 0.3,
		func(step int, tm float64, x []float64) {
			steps++
			assert.Equal(t, steps, step)
			assert.InDelta(t, float64(step)*dt, tm, 1.e-12)
			assert.Equal(t, p.FullSize(), len(x))
		})
	assert.NoError(t, err)
	assert.Equal(t, 3, steps)
	assert.InDelta(t, 0.3, p.Time(), 1.e-12)

	// Gravity pulls the free nodes down
	var down bool
	for i := 1; i < len(x); i += 2 {
		if x[i] < -1.e-6 {
			down = true
		}
	}
	assert.True(t, down)

	// The stored previous velocity is the last position delta over dt
	xp, vp := p.PrevPosition(), p.PrevVelocity()
	assert.Equal(t, x, xp)
	assert.Equal(t, p.FullSize(), len(vp))
}
