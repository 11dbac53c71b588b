package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/gofea/assembler"
	"github.com/notargets/gofea/mesh"
)

func clampedProblem(t *testing.T, form assembler.Formulation, cfg Config) *NLProblem {
	verts, elements := mesh.UnitSquare(2)
	fixed := mesh.SelectNodes(verts, func(pos []float64) bool { return pos[0] < 1.e-12 })
	m, err := mesh.NewDiscretization(2, verts, elements, mesh.ConstrainNodes(2, fixed), 1.)
	assert.NoError(t, err)
	var (
		fa = assembler.NewFEAssembler(m,
			assembler.Material{YoungsModulus: 1., PoissonRatio: 0.3, SpringStiffness: 2.}, 1)
		ra = assembler.NewRhsAssembler(m, form, assembler.BoundarySpec{
			Dirichlet: func(node int, tm float64) []float64 { return []float64{0.1 * tm, -0.05 * tm} },
			BodyForce: func(pos []float64, tm float64) []float64 { return []float64{0, -1} },
		})
	)
	return NewNLProblem(m, fa, ra, nil, cfg, 0)
}

func TestReductionRoundTrip(t *testing.T) {
	p := clampedProblem(t, assembler.LinearElasticity, DefaultConfig())
	assert.Equal(t, p.FullSize()-len(p.Mesh.ConstrainedDOFs), p.ReducedSize())

	reduced := make([]float64, p.ReducedSize())
	for i := range reduced {
		reduced[i] = float64(i)*0.1 - 0.4
	}
	full := p.ReducedToFull(reduced)
	assert.Equal(t, p.FullSize(), len(full))
	assert.Equal(t, reduced, p.FullToReduced(full))
}

func TestReductionBoundaryFill(t *testing.T) {
	p := clampedProblem(t, assembler.LinearElasticity, DefaultConfig())
	p.t = 2.
	// Constrained entries come back as the Dirichlet values at the current time
	full := p.ReducedToFull(make([]float64, p.ReducedSize()))
	for _, i := range p.Mesh.ConstrainedDOFs {
		if i%2 == 0 {
			assert.InDelta(t, 0.2, full[i], 1.e-15)
		} else {
			assert.InDelta(t, -0.1, full[i], 1.e-15)
		}
	}
}

func TestReductionContracts(t *testing.T) {
	p := clampedProblem(t, assembler.LinearElasticity, DefaultConfig())
	assert.Panics(t, func() { p.FullToReduced(make([]float64, 3)) })
	assert.Panics(t, func() { p.ReducedToFull(make([]float64, p.FullSize())) })
	assert.Panics(t, func() { p.Value(make([]float64, 3)) })
	// -1 marks exactly the constrained slots
	for i, ri := range p.reducedIdx {
		assert.Equal(t, p.Mesh.ConstrainedDOFs.Contains(i), ri < 0)
	}
	assert.Panics(t, func() { buildReducedIndex(4, []int{2, 9}) })
}
