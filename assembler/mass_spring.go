package assembler

import (
	"math"

	"github.com/james-bowman/sparse"

	"github.com/notargets/gofea/utils"
)

// The mass-spring formulation treats every mesh edge as a Hookean spring at
// its rest length: E = sum over edges of 0.5*k*(|d| - L)^2 with d the current
// edge vector. Energy, gradient and Hessian are analytic, and the Hessian
// sparsity pattern is fixed by the edge list, so the pattern cache applies
// across nonlinear iterations.

// edgeLength returns the length of edge ed under displacement full (rest
// length when full is nil) and, if dir is non-nil, the unit edge vector.
func (fa *FEAssembler) edgeLength(ed [2]int, full []float64) float64 {
	d, _ := fa.edgeVector(ed, full)
	return d
}

func (fa *FEAssembler) edgeVector(ed [2]int, full []float64) (length float64, dir []float64) {
	var (
		dim = fa.Mesh.Dim
		v   = fa.Mesh.Verts
	)
	dir = make([]float64, dim)
	for c := 0; c < dim; c++ {
		dir[c] = v.At(ed[0], c) - v.At(ed[1], c)
		if full != nil {
			dir[c] += full[ed[0]*dim+c] - full[ed[1]*dim+c]
		}
	}
	for _, x := range dir {
		length += x * x
	}
	length = math.Sqrt(length)
	return
}

func (fa *FEAssembler) springEnergy(full []float64) (energy float64) {
	var (
		k = fa.Mat.SpringStiffness
	)
	for i, ed := range fa.Mesh.Edges {
		l := fa.edgeLength(ed, full)
		e := l - fa.restLen[i]
		energy += 0.5 * k * e * e
	}
	return
}

func (fa *FEAssembler) springGradient(full []float64) (grad []float64) {
	var (
		dim = fa.Mesh.Dim
		k   = fa.Mat.SpringStiffness
	)
	grad = make([]float64, len(full))
	for i, ed := range fa.Mesh.Edges {
		l, d := fa.edgeVector(ed, full)
		f := k * (l - fa.restLen[i]) / l
		for c := 0; c < dim; c++ {
			grad[ed[0]*dim+c] += f * d[c]
			grad[ed[1]*dim+c] -= f * d[c]
		}
	}
	return
}

// springHessian scatters the exact per-edge Hessian blocks
// k*(dhat dhat' + (1 - L/|d|)(I - dhat dhat')) through the pattern cache.
func (fa *FEAssembler) springHessian(full []float64) *sparse.CSR {
	return fa.scatterWithState(&fa.sCache, full)
}

func (fa *FEAssembler) scatterWithState(cache *utils.SparseMatrixCache, full []float64) *sparse.CSR {
	scatter := func(i int, dst *utils.SparseMatrixCache) {
		fa.scatterEdge(i, full, dst)
	}
	return fa.scatterParallel(cache, len(fa.Mesh.Edges), scatter)
}

func (fa *FEAssembler) scatterEdge(i int, full []float64, dst *utils.SparseMatrixCache) {
	var (
		dim = fa.Mesh.Dim
		k   = fa.Mat.SpringStiffness
		ed  = fa.Mesh.Edges[i]
	)
	l, d := fa.edgeVector(ed, full)
	ratio := fa.restLen[i] / l
	for a := 0; a < dim; a++ {
		for b := 0; b < dim; b++ {
			outer := d[a] * d[b] / (l * l)
			h := k * (outer + (1-ratio)*(ident(a, b)-outer))
			dofA0, dofB0 := ed[0]*dim+a, ed[0]*dim+b
			dofA1, dofB1 := ed[1]*dim+a, ed[1]*dim+b
			dst.AddValue(dofA0, dofB0, h)
			dst.AddValue(dofA1, dofB1, h)
			dst.AddValue(dofA0, dofB1, -h)
			dst.AddValue(dofA1, dofB0, -h)
		}
	}
}

func ident(a, b int) float64 {
	if a == b {
		return 1
	}
	return 0
}
