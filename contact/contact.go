// Package contact defines the collision collaborator contract consumed by the
// nonlinear problem, and a point-based barrier implementation of it. The
// contract mirrors a CCD/barrier library: the caller never looks inside the
// constraint set, it only threads it back into the potential evaluations.
package contact

import (
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gofea/utils"
)

// ConstraintSet holds the active candidate pairs for barrier evaluation. The
// set is rebuilt for each configuration; pair order is unspecified.
type ConstraintSet struct {
	// Pairs lists candidate surface vertex pairs within the activation
	// threshold, low index first.
	Pairs [][2]int
}

// Evaluator is the collision collaborator. Positions are nNodes x dim
// matrices; edges and triangles index rows of the position matrices and
// describe the boundary geometry. Gradients are returned over flattened DOFs
// (node-major, components consecutive) and Hessians in triplet form over the
// same indexing.
type Evaluator interface {
	IsStepCollisionFree(p0, p1 *mat.Dense, edges [][2]int, tris [][3]int) bool
	ConstructConstraintSet(pos *mat.Dense, edges [][2]int, tris [][3]int, dhatSquared float64) ConstraintSet
	ComputeBarrierPotential(rest, pos *mat.Dense, edges [][2]int, tris [][3]int, set ConstraintSet, dhatSquared float64) float64
	ComputeBarrierPotentialGradient(rest, pos *mat.Dense, edges [][2]int, tris [][3]int, set ConstraintSet, dhatSquared float64) []float64
	ComputeBarrierPotentialHessian(rest, pos *mat.Dense, edges [][2]int, tris [][3]int, set ConstraintSet, dhatSquared float64) []utils.Triplet
}
