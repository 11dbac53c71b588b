package mesh

import (
	"fmt"
	"math"
	"sort"

	"github.com/james-bowman/sparse"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gofea/utils"
)

// Discretization holds the mesh-owned state the nonlinear problem references:
// rest geometry, connectivity, the constrained (Dirichlet) DOF set, the
// boundary geometry used for contact, and the lumped mass matrix. All of it is
// read-only once constructed.
type Discretization struct {
	Dim      int
	Verts    *mat.Dense // nNodes x Dim rest positions
	Elements [][]int    // 3 vertices per triangle, 4 per tetrahedron
	Edges    [][2]int   // unique element edges, low vertex first

	// ConstrainedDOFs is the sorted set of full-DOF indices fixed by Dirichlet
	// boundary conditions. Every full-DOF index is either constrained or free.
	ConstrainedDOFs utils.Index

	BoundaryEdges     [][2]int // surface edges for contact (2D and 3D)
	BoundaryTriangles [][3]int // surface triangles for contact (3D only)

	Density float64
	Mass    *sparse.CSR // lumped mass matrix over full DOFs
}

// NewDiscretization validates the connectivity and constrained-DOF invariants,
// extracts the surface geometry, and builds the lumped mass matrix.
func NewDiscretization(dim int, verts *mat.Dense, elements [][]int, constrained utils.Index, density float64) (d *Discretization, err error) {
	var (
		nNodes, vDim = verts.Dims()
	)
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("unsupported dimension %d, want 2 or 3", dim)
	}
	if vDim != dim {
		return nil, fmt.Errorf("vertex table is %d-dimensional, mesh is %d-dimensional", vDim, dim)
	}
	nodesPerElem := dim + 1
	for e, elem := range elements {
		if len(elem) != nodesPerElem {
			return nil, fmt.Errorf("element %d has %d vertices, want %d", e, len(elem), nodesPerElem)
		}
		for _, v := range elem {
			if v < 0 || v >= nNodes {
				return nil, fmt.Errorf("element %d references vertex %d, mesh has %d", e, v, nNodes)
			}
		}
	}
	if !constrained.IsSortedStrict() {
		return nil, fmt.Errorf("constrained DOF indices must be sorted ascending and disjoint")
	}
	if len(constrained) > 0 && (constrained[0] < 0 || constrained[len(constrained)-1] >= nNodes*dim) {
		return nil, fmt.Errorf("constrained DOF index out of range [0,%d)", nNodes*dim)
	}
	d = &Discretization{
		Dim:             dim,
		Verts:           verts,
		Elements:        elements,
		ConstrainedDOFs: constrained,
		Density:         density,
	}
	d.Edges = uniqueEdges(elements)
	if dim == 2 {
		d.BoundaryEdges = surfaceEdges(elements)
	} else {
		d.BoundaryTriangles = surfaceTriangles(elements)
		d.BoundaryEdges = trianglesToEdges(d.BoundaryTriangles)
	}
	d.Mass = d.lumpedMass()
	return
}

func (d *Discretization) NNodes() int {
	n, _ := d.Verts.Dims()
	return n
}

// FullSize is the full DOF count, constrained DOFs included.
func (d *Discretization) FullSize() int { return d.NNodes() * d.Dim }

func (d *Discretization) IsVolume() bool { return d.Dim == 3 }

// ElementVolume returns the area (2D) or volume (3D) of element e.
func (d *Discretization) ElementVolume(e int) float64 {
	var (
		elem = d.Elements[e]
	)
	if d.Dim == 2 {
		x1, y1 := d.Verts.At(elem[0], 0), d.Verts.At(elem[0], 1)
		x2, y2 := d.Verts.At(elem[1], 0), d.Verts.At(elem[1], 1)
		x3, y3 := d.Verts.At(elem[2], 0), d.Verts.At(elem[2], 1)
		return 0.5 * math.Abs((x2-x1)*(y3-y1)-(x3-x1)*(y2-y1))
	}
	J := mat.NewDense(3, 3, nil)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			J.Set(r, c, d.Verts.At(elem[r+1], c)-d.Verts.At(elem[0], c))
		}
	}
	return math.Abs(mat.Det(J)) / 6
}

// lumpedMass distributes each element's mass evenly over its vertices, one
// diagonal entry per DOF.
func (d *Discretization) lumpedMass() *sparse.CSR {
	var (
		cache utils.SparseMatrixCache
		nper  = float64(d.Dim + 1)
	)
	cache.Init(d.FullSize())
	for e, elem := range d.Elements {
		share := d.Density * d.ElementVolume(e) / nper
		for _, v := range elem {
			for c := 0; c < d.Dim; c++ {
				dof := v*d.Dim + c
				cache.AddValue(dof, dof, share)
			}
		}
	}
	return cache.GetMatrix(false)
}

// ConstrainNodes flattens a set of node indices into the sorted full-DOF
// index set that fixes every component of those nodes.
func ConstrainNodes(dim int, nodes []int) (dofs utils.Index) {
	for _, n := range nodes {
		for c := 0; c < dim; c++ {
			dofs = append(dofs, n*dim+c)
		}
	}
	sort.Ints(dofs)
	return
}

// SelectNodes returns the indices of vertices whose rest position satisfies
// the predicate, ascending.
func SelectNodes(verts *mat.Dense, pred func(pos []float64) bool) (nodes []int) {
	nr, nc := verts.Dims()
	pos := make([]float64, nc)
	for i := 0; i < nr; i++ {
		mat.Row(pos, i, verts)
		if pred(pos) {
			nodes = append(nodes, i)
		}
	}
	return
}

func uniqueEdges(elements [][]int) (edges [][2]int) {
	var all [][2]int
	for _, elem := range elements {
		for i := 0; i < len(elem); i++ {
			for j := i + 1; j < len(elem); j++ {
				a, b := elem[i], elem[j]
				if a > b {
					a, b = b, a
				}
				all = append(all, [2]int{a, b})
			}
		}
	}
	slices.SortFunc(all, compareEdges)
	for i, e := range all {
		if i == 0 || e != all[i-1] {
			edges = append(edges, e)
		}
	}
	return
}

func compareEdges(a, b [2]int) int {
	if a[0] != b[0] {
		return a[0] - b[0]
	}
	return a[1] - b[1]
}

// surfaceEdges finds the triangle edges that belong to exactly one element.
func surfaceEdges(tris [][]int) (edges [][2]int) {
	count := make(map[[2]int]int)
	for _, t := range tris {
		for i := 0; i < 3; i++ {
			a, b := t[i], t[(i+1)%3]
			if a > b {
				a, b = b, a
			}
			count[[2]int{a, b}]++
		}
	}
	for e, n := range count {
		if n == 1 {
			edges = append(edges, e)
		}
	}
	slices.SortFunc(edges, compareEdges)
	return
}

// surfaceTriangles finds the tetrahedron faces that belong to exactly one
// element.
func surfaceTriangles(tets [][]int) (tris [][3]int) {
	count := make(map[[3]int]int)
	faces := [4][3]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}}
	for _, t := range tets {
		for _, f := range faces {
			key := [3]int{t[f[0]], t[f[1]], t[f[2]]}
			sort.Ints(key[:])
			count[key]++
		}
	}
	for f, n := range count {
		if n == 1 {
			tris = append(tris, f)
		}
	}
	slices.SortFunc(tris, func(a, b [3]int) int {
		for i := 0; i < 3; i++ {
			if a[i] != b[i] {
				return a[i] - b[i]
			}
		}
		return 0
	})
	return
}

func trianglesToEdges(tris [][3]int) (edges [][2]int) {
	seen := make(map[[2]int]bool)
	for _, t := range tris {
		for i := 0; i < 3; i++ {
			a, b := t[i], t[(i+1)%3]
			if a > b {
				a, b = b, a
			}
			key := [2]int{a, b}
			if !seen[key] {
				seen[key] = true
				edges = append(edges, key)
			}
		}
	}
	slices.SortFunc(edges, compareEdges)
	return
}
