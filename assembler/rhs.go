package assembler

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gofea/mesh"
)

// BoundarySpec supplies the time-varying boundary data: prescribed
// displacement for constrained nodes and the body force density field. Nil
// fields mean zero.
type BoundarySpec struct {
	// Dirichlet returns the prescribed displacement of a node at time t,
	// one component per dimension.
	Dirichlet func(node int, t float64) []float64
	// BodyForce returns the force density at a rest position at time t.
	BodyForce func(pos []float64, t float64) []float64
}

// RhsAssembler evaluates the external-load side of the problem: the load
// vector, the external work energy, and the in-place application of Dirichlet
// values to constrained entries.
type RhsAssembler struct {
	Mesh *mesh.Discretization
	Form Formulation
	Spec BoundarySpec

	lumpedVol []float64 // per-node volume share for load lumping
}

func NewRhsAssembler(m *mesh.Discretization, form Formulation, spec BoundarySpec) (ra *RhsAssembler) {
	ra = &RhsAssembler{
		Mesh: m,
		Form: form,
		Spec: spec,
	}
	ra.lumpedVol = make([]float64, m.NNodes())
	nper := float64(m.Dim + 1)
	for e, elem := range m.Elements {
		share := m.ElementVolume(e) / nper
		for _, v := range elem {
			ra.lumpedVol[v] += share
		}
	}
	return
}

func (ra *RhsAssembler) Formulation() Formulation { return ra.Form }

// ComputeEnergyGrad evaluates the external load vector F(t) over full DOFs,
// lumping the body force at the nodes.
func (ra *RhsAssembler) ComputeEnergyGrad(t float64) (rhs []float64) {
	var (
		dim = ra.Mesh.Dim
	)
	rhs = make([]float64, ra.Mesh.FullSize())
	if ra.Spec.BodyForce == nil {
		return
	}
	pos := make([]float64, dim)
	for n := 0; n < ra.Mesh.NNodes(); n++ {
		mat.Row(pos, n, ra.Mesh.Verts)
		f := ra.Spec.BodyForce(pos, t)
		if len(f) != dim {
			panic(fmt.Errorf("rhs: body force returned %d components, want %d", len(f), dim))
		}
		for c := 0; c < dim; c++ {
			rhs[n*dim+c] = f[c] * ra.lumpedVol[n]
		}
	}
	return
}

// ComputeEnergy evaluates the external work energy -F(t).u so that its
// gradient with respect to the displacement is -F.
func (ra *RhsAssembler) ComputeEnergy(full []float64, t float64) (energy float64) {
	rhs := ra.ComputeEnergyGrad(t)
	for i, f := range rhs {
		energy -= f * full[i]
	}
	return
}

// SetBC overwrites the constrained entries of vec with the prescribed
// boundary values at time t.
func (ra *RhsAssembler) SetBC(vec []float64, t float64) {
	var (
		dim = ra.Mesh.Dim
	)
	if len(vec) != ra.Mesh.FullSize() {
		panic(fmt.Errorf("rhs: SetBC vector has length %d, full size is %d", len(vec), ra.Mesh.FullSize()))
	}
	for _, dof := range ra.Mesh.ConstrainedDOFs {
		if ra.Spec.Dirichlet == nil {
			vec[dof] = 0
			continue
		}
		node, comp := dof/dim, dof%dim
		u := ra.Spec.Dirichlet(node, t)
		if len(u) != dim {
			panic(fmt.Errorf("rhs: Dirichlet returned %d components, want %d", len(u), dim))
		}
		vec[dof] = u[comp]
	}
}
