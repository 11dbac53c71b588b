package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/gofea/assembler"
	"github.com/notargets/gofea/contact"
	"github.com/notargets/gofea/mesh"
	"github.com/notargets/gofea/utils"
)

func TestProblemConstructionContracts(t *testing.T) {
	// Mixed formulations are rejected up front
	assert.Panics(t, func() { clampedProblem(t, assembler.StokesVelocityPressure, DefaultConfig()) })
	// Collision handling needs an evaluator
	assert.Panics(t, func() {
		clampedProblem(t, assembler.LinearElasticity, Config{HasCollision: true})
	})
	// Zero barrier constants select the defaults
	p := clampedProblem(t, assembler.LinearElasticity, Config{})
	assert.Equal(t, 1e8, p.Cfg.BarrierStiffness)
	assert.Equal(t, 1e-6, p.Cfg.DHatSquared)
}

func TestGradientMatchesEnergy(t *testing.T) {
	for _, form := range []assembler.Formulation{assembler.LinearElasticity, assembler.MassSpring} {
		var (
			p = clampedProblem(t, form, DefaultConfig())
			x = make([]float64, p.ReducedSize())
			h = 1.e-6
		)
		for i := range x {
			x[i] = 0.01 * float64(i%5)
		}
		grad := p.Gradient(x)
		assert.Equal(t, p.ReducedSize(), len(grad))
		for i := range x {
			x[i] += h
			ep := p.Value(x)
			x[i] -= 2 * h
			em := p.Value(x)
			x[i] += h
			fd := (ep - em) / (2 * h)
			assert.InDelta(t, fd, grad[i], 1.e-4*math.Max(1, math.Abs(fd)))
		}
	}
}

func TestHessianMatchesGradient(t *testing.T) {
	var (
		p = clampedProblem(t, assembler.MassSpring, DefaultConfig())
		x = make([]float64, p.ReducedSize())
		h = 1.e-6
	)
	for i := range x {
		x[i] = 0.02 * float64(i%3)
	}
	H := utils.CSRToDense(p.Hessian(x))
	nr, nc := H.Dims()
	assert.Equal(t, p.ReducedSize(), nr)
	assert.Equal(t, p.ReducedSize(), nc)
	for i := range x {
		x[i] += h
		gp := p.Gradient(x)
		x[i] -= 2 * h
		gm := p.Gradient(x)
		x[i] += h
		for j := range x {
			fd := (gp[j] - gm[j]) / (2 * h)
			assert.InDelta(t, fd, H.At(j, i), 1.e-4*math.Max(1, math.Abs(fd)))
		}
	}
}

func TestStiffnessCachedForLinear(t *testing.T) {
	p := clampedProblem(t, assembler.LinearElasticity, DefaultConfig())
	x := make([]float64, p.ReducedSize())
	p.Hessian(x)
	cached := p.cachedStiffness
	assert.NotNil(t, cached)
	x[0] = 0.5
	p.Hessian(x)
	// Same instance: the stiffness is assembled once for linear formulations
	assert.Same(t, cached, p.cachedStiffness)

	pn := clampedProblem(t, assembler.MassSpring, DefaultConfig())
	pn.Hessian(make([]float64, pn.ReducedSize()))
	assert.Nil(t, pn.cachedStiffness)
}

func TestTimestepUpdate(t *testing.T) {
	var (
		cfg = Config{TimeDependent: true, BarrierStiffness: 1e8, DHatSquared: 1e-6}
		p   = clampedProblem(t, assembler.LinearElasticity, cfg)
		x0  = make([]float64, p.FullSize())
		v0  = make([]float64, p.FullSize())
		x1  = make([]float64, p.FullSize())
		dt  = 0.25
	)
	for i := range x0 {
		x0[i] = 0.01 * float64(i)
		x1[i] = 0.01*float64(i) + 0.002*float64(i%4)
	}
	p.InitTimestep(x0, v0, dt)
	p.UpdateQuantities(dt, x1)
	assert.Equal(t, dt, p.Time())
	assert.Equal(t, x1, p.PrevPosition())
	v := p.PrevVelocity()
	for i := range v {
		assert.InDelta(t, (x1[i]-x0[i])/dt, v[i], 1.e-12)
	}
	// Accessors hand out copies, not the internal state
	v[0] = 1.e9
	assert.NotEqual(t, 1.e9, p.PrevVelocity()[0])
}

func TestRHSRecomputedAfterStep(t *testing.T) {
	var (
		cfg = Config{TimeDependent: true, BarrierStiffness: 1e8, DHatSquared: 1e-6}
		p   = clampedProblem(t, assembler.LinearElasticity, cfg)
	)
	p.InitTimestep(make([]float64, p.FullSize()), make([]float64, p.FullSize()), 0.5)
	r0 := append([]float64(nil), p.CurrentRHS()...)
	p.UpdateQuantities(0.5, make([]float64, p.FullSize()))
	r1 := p.CurrentRHS()
	// The Dirichlet values scale with time, so constrained entries must move
	var changed bool
	for _, i := range p.Mesh.ConstrainedDOFs {
		if r0[i] != r1[i] {
			changed = true
		}
	}
	assert.True(t, changed)
}

func TestTimeDependentGradient(t *testing.T) {
	var (
		cfg = Config{TimeDependent: true, BarrierStiffness: 1e8, DHatSquared: 1e-6}
		p   = clampedProblem(t, assembler.LinearElasticity, cfg)
		x   = make([]float64, p.ReducedSize())
		h   = 1.e-6
	)
	x0 := make([]float64, p.FullSize())
	v0 := make([]float64, p.FullSize())
	for i := range x0 {
		x0[i] = 0.005 * float64(i%7)
		v0[i] = -0.002 * float64(i%3)
	}
	p.InitTimestep(x0, v0, 0.1)
	for i := range x {
		x[i] = 0.01 * float64(i%4)
	}
	// The incremental potential gradient includes the dt^2/2 scaling, the
	// inertia term and the folded load; on the free DOFs it is the exact
	// derivative of Value
	grad := p.Gradient(x)
	for i := range x {
		x[i] += h
		ep := p.Value(x)
		x[i] -= 2 * h
		em := p.Value(x)
		x[i] += h
		fd := (ep - em) / (2 * h)
		assert.InDelta(t, fd, grad[i], 1.e-4*math.Max(1, math.Abs(fd)))
	}
}

func TestIsStepValid(t *testing.T) {
	// Without collision handling every proposal passes
	{
		p := clampedProblem(t, assembler.LinearElasticity, DefaultConfig())
		a := make([]float64, p.ReducedSize())
		b := make([]float64, p.ReducedSize())
		b[0] = 1.e6
		assert.True(t, p.IsStepValid(a, b))
	}
	// With collision handling a stationary separated mesh is still valid
	{
		verts, elements := mesh.UnitSquare(2)
		m, err := mesh.NewDiscretization(2, verts, elements, nil, 1.)
		assert.NoError(t, err)
		var (
			fa = assembler.NewFEAssembler(m, assembler.Material{YoungsModulus: 1., PoissonRatio: 0.3}, 1)
			ra = assembler.NewRhsAssembler(m, assembler.LinearElasticity, assembler.BoundarySpec{})
			ce = contact.NewBarrierEvaluator()
			p  = NewNLProblem(m, fa, ra, ce, Config{HasCollision: true}, 0)
			x  = make([]float64, p.ReducedSize())
		)
		assert.True(t, p.IsStepValid(x, x))
	}
}
