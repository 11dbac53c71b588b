// Package solver formulates the boundary-constrained, optionally
// contact-constrained equilibrium problem as a scalar energy with analytic
// gradient and Hessian over the reduced (free) DOFs, and provides the Newton
// driver that minimizes it.
package solver

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gofea/assembler"
	"github.com/notargets/gofea/contact"
	"github.com/notargets/gofea/mesh"
	"github.com/notargets/gofea/utils"
)

// Config holds the optional-physics switches of a problem instance. Behavior
// is fully determined by these explicit inputs; there are no process-wide
// toggles.
type Config struct {
	// TimeDependent enables inertia terms and the dt^2/2 energy scaling.
	TimeDependent bool
	// HasCollision enables the barrier terms and the step-validity gate.
	HasCollision bool
	// BarrierStiffness weights the collision barrier against the elastic
	// energy. Zero selects the default of 1e8.
	BarrierStiffness float64
	// DHatSquared is the squared-distance activation threshold of the
	// barrier. Zero selects the default of 1e-6.
	DHatSquared float64
}

// DefaultConfig returns a static, contact-free configuration with the
// standard barrier constants.
func DefaultConfig() Config {
	return Config{
		BarrierStiffness: 1e8,
		DHatSquared:      1e-6,
	}
}

// NLProblem composes the element assembler, the boundary data and the
// collision evaluator into the objective consumed by an unconstrained
// optimizer. An instance is single-threaded: Value, Gradient, Hessian and
// IsStepValid are synchronous and share the lazily cached right-hand side.
type NLProblem struct {
	Mesh    *mesh.Discretization
	Asm     assembler.Assembler
	Rhs     *assembler.RhsAssembler
	Contact contact.Evaluator
	Cfg     Config

	fullSize    int
	reducedSize int
	reducedIdx  utils.Index // full DOF -> reduced DOF, -1 for constrained

	t, dt        float64
	xPrev, vPrev []float64

	rhsComputed bool
	currentRHS  []float64

	cachedStiffness *sparse.CSR // linear formulations only, write-once
}

// NewNLProblem builds a problem over the free DOFs of the discretization.
// Mixed formulations are rejected; a collision-enabled configuration requires
// an evaluator.
func NewNLProblem(m *mesh.Discretization, asm assembler.Assembler, rhs *assembler.RhsAssembler, ce contact.Evaluator, cfg Config, t float64) (p *NLProblem) {
	if asm.IsMixed(rhs.Formulation()) {
		panic(fmt.Errorf("solver: mixed formulation %v is not supported", rhs.Formulation()))
	}
	if cfg.HasCollision && ce == nil {
		panic(fmt.Errorf("solver: collision enabled without a contact evaluator"))
	}
	if cfg.BarrierStiffness == 0 {
		cfg.BarrierStiffness = 1e8
	}
	if cfg.DHatSquared == 0 {
		cfg.DHatSquared = 1e-6
	}
	p = &NLProblem{
		Mesh:        m,
		Asm:         asm,
		Rhs:         rhs,
		Contact:     ce,
		Cfg:         cfg,
		fullSize:    m.FullSize(),
		reducedSize: m.FullSize() - len(m.ConstrainedDOFs),
		t:           t,
	}
	p.reducedIdx = buildReducedIndex(p.fullSize, m.ConstrainedDOFs)
	p.xPrev = make([]float64, p.fullSize)
	p.vPrev = make([]float64, p.fullSize)
	return
}

func (p *NLProblem) FullSize() int    { return p.fullSize }
func (p *NLProblem) ReducedSize() int { return p.reducedSize }
func (p *NLProblem) Time() float64    { return p.t }

// PrevPosition and PrevVelocity return copies of the previous-step state.
func (p *NLProblem) PrevPosition() []float64 { return append([]float64(nil), p.xPrev...) }
func (p *NLProblem) PrevVelocity() []float64 { return append([]float64(nil), p.vPrev...) }

// InitTimestep seeds the previous-step position and velocity and the step
// size for one time step.
func (p *NLProblem) InitTimestep(xPrev, vPrev []float64, dt float64) {
	if len(xPrev) != p.fullSize || len(vPrev) != p.fullSize {
		panic(fmt.Errorf("solver: timestep state must be full-sized (%d), got %d and %d",
			p.fullSize, len(xPrev), len(vPrev)))
	}
	p.xPrev = append(p.xPrev[:0], xPrev...)
	p.vPrev = append(p.vPrev[:0], vPrev...)
	p.dt = dt
}

// UpdateQuantities accepts the step result x at time t: the previous-step
// velocity is recomputed from the position delta, and the cached
// right-hand side is invalidated.
func (p *NLProblem) UpdateQuantities(t float64, x []float64) {
	if !p.Cfg.TimeDependent {
		return
	}
	if len(x) != p.fullSize {
		panic(fmt.Errorf("solver: UpdateQuantities needs a full DOF vector, got length %d", len(x)))
	}
	for i := range x {
		p.vPrev[i] = (x[i] - p.xPrev[i]) / p.dt
	}
	p.xPrev = append(p.xPrev[:0], x...)
	p.rhsComputed = false
	p.t = t
}

// CurrentRHS lazily evaluates the external-load right-hand side for the
// current time, folding in the implicit inertia contribution for
// time-dependent problems and applying the boundary values last. The returned
// slice is owned by the problem; treat it as read-only.
func (p *NLProblem) CurrentRHS() []float64 {
	if !p.rhsComputed {
		rhs := p.Rhs.ComputeEnergyGrad(p.t)
		if len(rhs) != p.fullSize {
			panic(fmt.Errorf("solver: rhs assembler returned length %d, full size is %d", len(rhs), p.fullSize))
		}
		if p.Cfg.TimeDependent {
			tmp := make([]float64, p.fullSize)
			for i := range tmp {
				tmp[i] = p.xPrev[i] + p.dt*p.vPrev[i]
			}
			inertia := utils.CSRMulVec(p.Mesh.Mass, tmp)
			s := p.dt * p.dt / 2
			for i := range rhs {
				rhs[i] = rhs[i]*s + inertia[i]
			}
		}
		p.Rhs.SetBC(rhs, p.t)
		p.currentRHS = rhs
		p.rhsComputed = true
	}
	return p.currentRHS
}

// Value returns the total energy at x (reduced or full):
// scaling*(elastic + external + w*collision) + inertia.
func (p *NLProblem) Value(x []float64) float64 {
	var (
		full            = p.expandToFull(x)
		elasticEnergy   = p.Asm.AssembleEnergy(p.Rhs.Formulation(), full)
		bodyEnergy      = p.Rhs.ComputeEnergy(full, p.t)
		inertiaEnergy   float64
		collisionEnergy float64
		scaling         = 1.0
	)
	if p.Cfg.TimeDependent {
		scaling = p.dt * p.dt / 2
		tmp := make([]float64, p.fullSize)
		for i := range tmp {
			tmp[i] = full[i] - (p.xPrev[i] + p.dt*p.vPrev[i])
		}
		mtmp := utils.CSRMulVec(p.Mesh.Mass, tmp)
		for i := range tmp {
			inertiaEnergy += 0.5 * tmp[i] * mtmp[i]
		}
	}
	if p.Cfg.HasCollision {
		pos := p.displacedBoundary(full)
		set := p.Contact.ConstructConstraintSet(pos, p.Mesh.BoundaryEdges, p.Mesh.BoundaryTriangles, p.Cfg.DHatSquared)
		collisionEnergy = p.Contact.ComputeBarrierPotential(p.Mesh.Verts, pos,
			p.Mesh.BoundaryEdges, p.Mesh.BoundaryTriangles, set, p.Cfg.DHatSquared)
	}
	return scaling*(elasticEnergy+bodyEnergy+p.Cfg.BarrierStiffness*collisionEnergy) + inertiaEnergy
}

// Gradient returns the reduced-DOF gradient at x (reduced or full).
func (p *NLProblem) Gradient(x []float64) (reduced []float64) {
	var (
		grad = p.gradientNoRHS(x)
	)
	if p.Cfg.TimeDependent {
		full := p.expandToFull(x)
		mfull := utils.CSRMulVec(p.Mesh.Mass, full)
		s := p.dt * p.dt / 2
		for i := range grad {
			grad[i] = grad[i]*s + mfull[i]
		}
	}
	rhs := p.CurrentRHS()
	for i := range grad {
		grad[i] -= rhs[i]
	}
	return p.FullToReduced(grad)
}

// gradientNoRHS computes the elastic plus collision gradient over full DOFs,
// before time scaling and load subtraction.
func (p *NLProblem) gradientNoRHS(x []float64) (grad []float64) {
	var (
		full = p.expandToFull(x)
	)
	grad = p.Asm.AssembleEnergyGradient(p.Rhs.Formulation(), full)
	if p.Cfg.HasCollision {
		pos := p.displacedBoundary(full)
		set := p.Contact.ConstructConstraintSet(pos, p.Mesh.BoundaryEdges, p.Mesh.BoundaryTriangles, p.Cfg.DHatSquared)
		cGrad := p.Contact.ComputeBarrierPotentialGradient(p.Mesh.Verts, pos,
			p.Mesh.BoundaryEdges, p.Mesh.BoundaryTriangles, set, p.Cfg.DHatSquared)
		for i := range grad {
			grad[i] += p.Cfg.BarrierStiffness * cGrad[i]
		}
	}
	return
}

// Hessian returns the reduced-DOF Hessian at x: the full Hessian with
// constrained rows and columns dropped entirely via the index table.
func (p *NLProblem) Hessian(x []float64) *sparse.CSR {
	var (
		raw     = p.hessianFull(x).RawMatrix()
		entries []utils.Triplet
	)
	for i := 0; i < raw.I; i++ {
		ri := p.reducedIdx[i]
		if ri < 0 {
			continue
		}
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			rj := p.reducedIdx[raw.Ind[k]]
			if rj < 0 {
				continue
			}
			entries = append(entries, utils.Triplet{I: ri, J: rj, V: raw.Data[k]})
		}
	}
	return utils.CompressTriplets(p.reducedSize, entries)
}

// hessianFull composes the full-DOF Hessian: elastic stiffness (cached for
// linear formulations), scaled and mass-augmented if time-dependent, plus the
// weighted barrier Hessian. The barrier sparsity changes with the constraint
// set, so the combining cache stays in triplet mode.
func (p *NLProblem) hessianFull(x []float64) *sparse.CSR {
	var (
		full  = p.expandToFull(x)
		form  = p.Rhs.Formulation()
		comb  utils.SparseMatrixCache
		scale = 1.0
	)
	comb.Init(p.fullSize)
	var stiffness *sparse.CSR
	if p.Asm.IsLinear(form) {
		if p.cachedStiffness == nil {
			p.cachedStiffness = p.Asm.AssembleProblem(form)
		}
		stiffness = p.cachedStiffness
	} else {
		stiffness = p.Asm.AssembleEnergyHessian(form, full)
	}
	if p.Cfg.TimeDependent {
		scale = p.dt * p.dt / 2
	}
	for _, t := range utils.CSRTriplets(stiffness) {
		comb.AddValue(t.I, t.J, scale*t.V)
	}
	if p.Cfg.TimeDependent {
		for _, t := range utils.CSRTriplets(p.Mesh.Mass) {
			comb.AddValue(t.I, t.J, t.V)
		}
	}
	if p.Cfg.HasCollision {
		pos := p.displacedBoundary(full)
		set := p.Contact.ConstructConstraintSet(pos, p.Mesh.BoundaryEdges, p.Mesh.BoundaryTriangles, p.Cfg.DHatSquared)
		for _, t := range p.Contact.ComputeBarrierPotentialHessian(p.Mesh.Verts, pos,
			p.Mesh.BoundaryEdges, p.Mesh.BoundaryTriangles, set, p.Cfg.DHatSquared) {
			comb.AddValue(t.I, t.J, p.Cfg.BarrierStiffness*t.V)
		}
	}
	return comb.GetMatrix(false)
}

// IsStepValid gates a line-search step on contact feasibility. With collision
// handling disabled every step is valid.
func (p *NLProblem) IsStepValid(x0, x1 []float64) bool {
	if !p.Cfg.HasCollision {
		return true
	}
	var (
		full0 = p.expandToFull(x0)
		full1 = p.expandToFull(x1)
	)
	return p.Contact.IsStepCollisionFree(
		p.displacedBoundary(full0), p.displacedBoundary(full1),
		p.Mesh.BoundaryEdges, p.Mesh.BoundaryTriangles)
}

// expandToFull auto-detects reduced vs full input by length. Any other length
// is a contract violation.
func (p *NLProblem) expandToFull(x []float64) (full []float64) {
	switch len(x) {
	case p.reducedSize:
		return p.ReducedToFull(x)
	case p.fullSize:
		return append([]float64(nil), x...)
	}
	panic(fmt.Errorf("solver: DOF vector has length %d, want reduced %d or full %d",
		len(x), p.reducedSize, p.fullSize))
}

// displacedBoundary reshapes the flat displacement into per-node coordinate
// rows and offsets the rest positions.
func (p *NLProblem) displacedBoundary(full []float64) (pos *mat.Dense) {
	var (
		dim = p.Mesh.Dim
		n   = p.fullSize / dim
	)
	pos = mat.NewDense(n, dim, nil)
	for i := 0; i < n; i++ {
		for c := 0; c < dim; c++ {
			pos.Set(i, c, p.Mesh.Verts.At(i, c)+full[i*dim+c])
		}
	}
	return
}
