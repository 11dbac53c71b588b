package assembler

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gofea/mesh"
	"github.com/notargets/gofea/utils"
)

// Assembler produces energy, gradient and Hessian contributions over the full
// (unconstrained) DOF vector for a given formulation.
type Assembler interface {
	AssembleEnergy(form Formulation, full []float64) float64
	AssembleEnergyGradient(form Formulation, full []float64) []float64
	AssembleEnergyHessian(form Formulation, full []float64) *sparse.CSR
	// AssembleProblem assembles the state-independent stiffness matrix of a
	// linear formulation.
	AssembleProblem(form Formulation) *sparse.CSR
	IsLinear(form Formulation) bool
	IsMixed(form Formulation) bool
}

// Material carries the constitutive constants of the supported formulations.
type Material struct {
	YoungsModulus   float64 // LinearElasticity
	PoissonRatio    float64 // LinearElasticity
	SpringStiffness float64 // MassSpring
}

// FEAssembler assembles P1 elements over a Discretization. Element stiffness
// matrices for the linear formulation depend only on the rest geometry and
// are precomputed at construction. Scattering into the global matrix runs in
// parallel across element ranges, each worker accumulating into a private
// SparseMatrixCache seeded from the shared-shape template, merged
// single-threaded afterwards.
type FEAssembler struct {
	Mesh *mesh.Discretization
	Mat  Material
	NP   int // worker count for parallel scatter

	elemK   []*mat.Dense // per-element stiffness, linear elasticity
	restLen []float64    // per-edge rest length, mass-spring

	kCache utils.SparseMatrixCache // stiffness pattern cache
	sCache utils.SparseMatrixCache // spring Hessian pattern cache
}

func NewFEAssembler(m *mesh.Discretization, material Material, np int) (fa *FEAssembler) {
	if np <= 0 {
		np = runtime.NumCPU()
	}
	fa = &FEAssembler{
		Mesh: m,
		Mat:  material,
		NP:   np,
	}
	fa.elemK = make([]*mat.Dense, len(m.Elements))
	for e := range m.Elements {
		fa.elemK[e] = fa.elementStiffness(e)
	}
	fa.restLen = make([]float64, len(m.Edges))
	for i, ed := range m.Edges {
		fa.restLen[i] = fa.edgeLength(ed, nil)
	}
	fa.kCache.Init(m.FullSize())
	fa.sCache.Init(m.FullSize())
	return
}

func (fa *FEAssembler) IsLinear(form Formulation) bool { return form == LinearElasticity }

func (fa *FEAssembler) IsMixed(form Formulation) bool { return form == StokesVelocityPressure }

func (fa *FEAssembler) AssembleEnergy(form Formulation, full []float64) float64 {
	fa.checkFull(full)
	switch form {
	case LinearElasticity:
		return fa.elasticEnergy(full)
	case MassSpring:
		return fa.springEnergy(full)
	}
	panic(fmt.Errorf("assembler: no energy for formulation %v", form))
}

func (fa *FEAssembler) AssembleEnergyGradient(form Formulation, full []float64) []float64 {
	fa.checkFull(full)
	switch form {
	case LinearElasticity:
		return fa.elasticGradient(full)
	case MassSpring:
		return fa.springGradient(full)
	}
	panic(fmt.Errorf("assembler: no gradient for formulation %v", form))
}

func (fa *FEAssembler) AssembleEnergyHessian(form Formulation, full []float64) *sparse.CSR {
	fa.checkFull(full)
	switch form {
	case LinearElasticity:
		return fa.AssembleProblem(form)
	case MassSpring:
		return fa.springHessian(full)
	}
	panic(fmt.Errorf("assembler: no Hessian for formulation %v", form))
}

// AssembleProblem assembles the global stiffness matrix of the linear
// formulation by parallel scatter of the precomputed element matrices.
func (fa *FEAssembler) AssembleProblem(form Formulation) *sparse.CSR {
	if !fa.IsLinear(form) {
		panic(fmt.Errorf("assembler: formulation %v is not linear", form))
	}
	return fa.scatterParallel(&fa.kCache, len(fa.Mesh.Elements), fa.scatterElement)
}

func (fa *FEAssembler) checkFull(full []float64) {
	if len(full) != fa.Mesh.FullSize() {
		panic(fmt.Errorf("assembler: DOF vector has length %d, full size is %d", len(full), fa.Mesh.FullSize()))
	}
}

// scatterParallel splits n work items across NP workers, each with a private
// cache shaped like the template, and merges the partial assemblies into the
// template before extracting the matrix. The first pass runs the caches in
// triplet mode and freezes the pattern; later passes run fully mapped.
func (fa *FEAssembler) scatterParallel(cache *utils.SparseMatrixCache, n int, scatter func(k int, dst *utils.SparseMatrixCache)) *sparse.CSR {
	var (
		np      = fa.NP
		pm      = utils.NewPartitionMap(np, n)
		workers = make([]utils.SparseMatrixCache, np)
		wg      sync.WaitGroup
	)
	for w := 0; w < np; w++ {
		if cache.Mapped() {
			workers[w].InitFrom(cache)
		} else {
			workers[w].Init(cache.Size())
		}
	}
	wg.Add(np)
	for w := 0; w < np; w++ {
		go func(w int) {
			defer wg.Done()
			kMin, kMax := pm.GetBucketRange(w)
			for k := kMin; k < kMax; k++ {
				scatter(k, &workers[w])
			}
		}(w)
	}
	wg.Wait()
	for w := 0; w < np; w++ {
		cache.AddTo(&workers[w])
	}
	return cache.GetMatrix(true)
}

func (fa *FEAssembler) scatterElement(e int, dst *utils.SparseMatrixCache) {
	var (
		dim  = fa.Mesh.Dim
		elem = fa.Mesh.Elements[e]
		Ke   = fa.elemK[e]
		nd   = len(elem) * dim
	)
	dofs := make([]int, nd)
	for v, node := range elem {
		for c := 0; c < dim; c++ {
			dofs[v*dim+c] = node*dim + c
		}
	}
	for i := 0; i < nd; i++ {
		for j := 0; j < nd; j++ {
			dst.AddValue(dofs[i], dofs[j], Ke.At(i, j))
		}
	}
}
