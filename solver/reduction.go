package solver

import (
	"fmt"

	"github.com/notargets/gofea/utils"
)

// buildReducedIndex builds the full -> reduced DOF table once per problem
// instance: -1 for constrained indices, otherwise the reduced position.
func buildReducedIndex(fullSize int, constrained utils.Index) (idx utils.Index) {
	idx = utils.NewIndex(fullSize)
	var (
		next int
		kk   int
	)
	for i := 0; i < fullSize; i++ {
		if kk < len(constrained) && constrained[kk] == i {
			kk++
			idx[i] = -1
			continue
		}
		idx[i] = next
		next++
	}
	if kk != len(constrained) {
		panic(fmt.Errorf("solver: %d constrained DOF indices out of range", len(constrained)-kk))
	}
	return
}

// FullToReduced drops the constrained entries of a full vector, preserving
// the relative order of the free entries.
func (p *NLProblem) FullToReduced(full []float64) (reduced []float64) {
	if len(full) != p.fullSize {
		panic(fmt.Errorf("solver: FullToReduced needs length %d, got %d", p.fullSize, len(full)))
	}
	reduced = make([]float64, p.reducedSize)
	for i, ri := range p.reducedIdx {
		if ri >= 0 {
			reduced[ri] = full[i]
		}
	}
	return
}

// ReducedToFull restores the free entries of a reduced vector and fills each
// constrained index with the current boundary value from the right-hand-side
// evaluation. It is the exact inverse of FullToReduced on the free subspace.
func (p *NLProblem) ReducedToFull(reduced []float64) (full []float64) {
	if len(reduced) != p.reducedSize {
		panic(fmt.Errorf("solver: ReducedToFull needs length %d, got %d", p.reducedSize, len(reduced)))
	}
	var (
		rhs = p.CurrentRHS()
	)
	full = make([]float64, p.fullSize)
	for i, ri := range p.reducedIdx {
		if ri >= 0 {
			full[i] = reduced[ri]
		} else {
			full[i] = rhs[i]
		}
	}
	return
}
