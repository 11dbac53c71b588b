package contact

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gofea/utils"
)

// BarrierEvaluator implements the Evaluator contract with point-point
// candidates and a smooth log barrier in squared distance,
// b(s) = -(s - dhat^2)^2 * ln(s/dhat^2) for s < dhat^2 and 0 otherwise.
// Candidate pairs are surface vertices that do not share a boundary edge or
// triangle. The continuous check minimizes each pair separation in closed
// form along the linear trajectory between two configurations.
type BarrierEvaluator struct {
	// MinSeparation is the distance below which two surface vertices count
	// as colliding.
	MinSeparation float64
}

func NewBarrierEvaluator() *BarrierEvaluator {
	return &BarrierEvaluator{
		MinSeparation: 1e-12,
	}
}

// IsStepCollisionFree checks every non-adjacent surface vertex pair along the
// linear trajectory from p0 to p1. The relative motion of a pair is linear in
// the step parameter, so the minimum separation over the step is closed-form.
func (be *BarrierEvaluator) IsStepCollisionFree(p0, p1 *mat.Dense, edges [][2]int, tris [][3]int) bool {
	var (
		surface, adjacent = surfaceTopology(edges, tris)
		_, dim            = p0.Dims()
		r0                = make([]float64, dim)
		dr                = make([]float64, dim)
	)
	for ia := 0; ia < len(surface); ia++ {
		for ib := ia + 1; ib < len(surface); ib++ {
			a, b := surface[ia], surface[ib]
			if adjacent[[2]int{a, b}] {
				continue
			}
			var drdr, r0dr float64
			for c := 0; c < dim; c++ {
				r0[c] = p0.At(a, c) - p0.At(b, c)
				dr[c] = (p1.At(a, c) - p1.At(b, c)) - r0[c]
				drdr += dr[c] * dr[c]
				r0dr += r0[c] * dr[c]
			}
			alpha := 0.0
			if drdr > 0 {
				alpha = -r0dr / drdr
			}
			if alpha < 0 {
				alpha = 0
			} else if alpha > 1 {
				alpha = 1
			}
			var d2 float64
			for c := 0; c < dim; c++ {
				d := r0[c] + alpha*dr[c]
				d2 += d * d
			}
			if d2 < be.MinSeparation*be.MinSeparation {
				return false
			}
		}
	}
	return true
}

func (be *BarrierEvaluator) ConstructConstraintSet(pos *mat.Dense, edges [][2]int, tris [][3]int, dhatSquared float64) (set ConstraintSet) {
	var (
		surface, adjacent = surfaceTopology(edges, tris)
		_, dim            = pos.Dims()
	)
	for ia := 0; ia < len(surface); ia++ {
		for ib := ia + 1; ib < len(surface); ib++ {
			a, b := surface[ia], surface[ib]
			if adjacent[[2]int{a, b}] {
				continue
			}
			var d2 float64
			for c := 0; c < dim; c++ {
				d := pos.At(a, c) - pos.At(b, c)
				d2 += d * d
			}
			if d2 < dhatSquared {
				set.Pairs = append(set.Pairs, [2]int{a, b})
			}
		}
	}
	return
}

func (be *BarrierEvaluator) ComputeBarrierPotential(rest, pos *mat.Dense, edges [][2]int, tris [][3]int, set ConstraintSet, dhatSquared float64) (energy float64) {
	var (
		_, dim = pos.Dims()
	)
	for _, p := range set.Pairs {
		s := pairDistSq(pos, p, dim)
		energy += barrier(s, dhatSquared)
	}
	return
}

func (be *BarrierEvaluator) ComputeBarrierPotentialGradient(rest, pos *mat.Dense, edges [][2]int, tris [][3]int, set ConstraintSet, dhatSquared float64) (grad []float64) {
	var (
		nr, dim = pos.Dims()
	)
	grad = make([]float64, nr*dim)
	for _, p := range set.Pairs {
		s := pairDistSq(pos, p, dim)
		db := barrierGrad(s, dhatSquared)
		for c := 0; c < dim; c++ {
			// ds/dxa = 2(xa - xb), ds/dxb the negative
			d := pos.At(p[0], c) - pos.At(p[1], c)
			grad[p[0]*dim+c] += db * 2 * d
			grad[p[1]*dim+c] -= db * 2 * d
		}
	}
	return
}

func (be *BarrierEvaluator) ComputeBarrierPotentialHessian(rest, pos *mat.Dense, edges [][2]int, tris [][3]int, set ConstraintSet, dhatSquared float64) (ts []utils.Triplet) {
	var (
		_, dim = pos.Dims()
	)
	for _, p := range set.Pairs {
		s := pairDistSq(pos, p, dim)
		db := barrierGrad(s, dhatSquared)
		d2b := barrierHess(s, dhatSquared)
		for a := 0; a < dim; a++ {
			for b := 0; b < dim; b++ {
				da := pos.At(p[0], a) - pos.At(p[1], a)
				dc := pos.At(p[0], b) - pos.At(p[1], b)
				h := d2b*4*da*dc + db*2*delta(a, b)
				aa, bb := p[0]*dim+a, p[0]*dim+b
				ba, cb := p[1]*dim+a, p[1]*dim+b
				ts = append(ts,
					utils.Triplet{I: aa, J: bb, V: h},
					utils.Triplet{I: ba, J: cb, V: h},
					utils.Triplet{I: aa, J: cb, V: -h},
					utils.Triplet{I: ba, J: bb, V: -h})
			}
		}
	}
	return
}

// barrier and its derivatives in the squared distance s.
func barrier(s, dhatSq float64) float64 {
	if s >= dhatSq {
		return 0
	}
	e := s - dhatSq
	return -e * e * math.Log(s/dhatSq)
}

func barrierGrad(s, dhatSq float64) float64 {
	if s >= dhatSq {
		return 0
	}
	e := s - dhatSq
	return -2*e*math.Log(s/dhatSq) - e*e/s
}

func barrierHess(s, dhatSq float64) float64 {
	if s >= dhatSq {
		return 0
	}
	e := s - dhatSq
	return -2*math.Log(s/dhatSq) - 4*e/s + e*e/(s*s)
}

func pairDistSq(pos *mat.Dense, p [2]int, dim int) (s float64) {
	for c := 0; c < dim; c++ {
		d := pos.At(p[0], c) - pos.At(p[1], c)
		s += d * d
	}
	return
}

func delta(a, b int) float64 {
	if a == b {
		return 1
	}
	return 0
}

// surfaceTopology collects the sorted surface vertex set and the adjacency
// relation (sharing a boundary edge or triangle) that excludes a pair from
// candidacy.
func surfaceTopology(edges [][2]int, tris [][3]int) (surface []int, adjacent map[[2]int]bool) {
	var (
		seen = make(map[int]bool)
	)
	adjacent = make(map[[2]int]bool)
	mark := func(a, b int) {
		if a > b {
			a, b = b, a
		}
		adjacent[[2]int{a, b}] = true
	}
	for _, e := range edges {
		seen[e[0]], seen[e[1]] = true, true
		mark(e[0], e[1])
	}
	for _, t := range tris {
		for i := 0; i < 3; i++ {
			seen[t[i]] = true
			mark(t[i], t[(i+1)%3])
		}
	}
	for v := range seen {
		surface = append(surface, v)
	}
	sort.Ints(surface)
	return
}
