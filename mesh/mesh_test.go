package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/gofea/utils"
)

func TestUnitSquare(t *testing.T) {
	n := 4
	verts, elements := UnitSquare(n)
	nr, nc := verts.Dims()
	assert.Equal(t, (n+1)*(n+1), nr)
	assert.Equal(t, 2, nc)
	assert.Equal(t, 2*n*n, len(elements))

	m, err := NewDiscretization(2, verts, elements, nil, 1000.)
	assert.NoError(t, err)
	// The square has 4n boundary edges
	assert.Equal(t, 4*n, len(m.BoundaryEdges))
	// Lumped mass conserves total mass: density * area per dimension
	var total float64
	for _, tr := range utils.CSRTriplets(m.Mass) {
		assert.Equal(t, tr.I, tr.J)
		total += tr.V
	}
	assert.InDelta(t, 1000.*1.0*2, total, 1.e-9)
}

func TestUnitCube(t *testing.T) {
	n := 2
	verts, elements := UnitCube(n)
	nr, _ := verts.Dims()
	assert.Equal(t, (n+1)*(n+1)*(n+1), nr)
	assert.Equal(t, 6*n*n*n, len(elements))

	m, err := NewDiscretization(3, verts, elements, nil, 1.)
	assert.NoError(t, err)
	// Kuhn subdivision tiles the cube exactly
	var vol float64
	for e := range elements {
		vol += m.ElementVolume(e)
	}
	assert.InDelta(t, 1.0, vol, 1.e-12)
	assert.NotEmpty(t, m.BoundaryTriangles)
}

func TestDiscretizationInvariants(t *testing.T) {
	verts, elements := UnitSquare(2)
	// Constrained DOF set must be sorted ascending and disjoint
	{
		_, err := NewDiscretization(2, verts, elements, utils.Index{4, 2}, 1.)
		assert.Error(t, err)
		_, err = NewDiscretization(2, verts, elements, utils.Index{2, 2}, 1.)
		assert.Error(t, err)
		_, err = NewDiscretization(2, verts, elements, utils.Index{0, 10000}, 1.)
		assert.Error(t, err)
	}
	// ConstrainNodes flattens and sorts
	{
		dofs := ConstrainNodes(2, []int{3, 1})
		assert.Equal(t, utils.Index{2, 3, 6, 7}, dofs)
		assert.True(t, dofs.IsSortedStrict())
	}
	// SelectNodes finds the clamped edge
	{
		nodes := SelectNodes(verts, func(pos []float64) bool { return pos[0] < 1.e-12 })
		assert.Equal(t, 3, len(nodes))
	}
}
