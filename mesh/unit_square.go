package mesh

import (
	"gonum.org/v1/gonum/mat"
)

// UnitSquare builds a structured triangulation of [0,1]^2 with n x n cells,
// two triangles per cell. Vertices are laid out row-major from the origin.
func UnitSquare(n int) (verts *mat.Dense, elements [][]int) {
	var (
		np = n + 1
		h  = 1.0 / float64(n)
	)
	verts = mat.NewDense(np*np, 2, nil)
	for j := 0; j < np; j++ {
		for i := 0; i < np; i++ {
			verts.Set(j*np+i, 0, float64(i)*h)
			verts.Set(j*np+i, 1, float64(j)*h)
		}
	}
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			v00 := j*np + i
			v10 := v00 + 1
			v01 := v00 + np
			v11 := v01 + 1
			elements = append(elements,
				[]int{v00, v10, v11},
				[]int{v00, v11, v01})
		}
	}
	return
}

// UnitCube builds a structured tetrahedralization of [0,1]^3 with n x n x n
// cells, six tetrahedra per cell (Kuhn subdivision).
func UnitCube(n int) (verts *mat.Dense, elements [][]int) {
	var (
		np = n + 1
		h  = 1.0 / float64(n)
	)
	verts = mat.NewDense(np*np*np, 3, nil)
	id := func(i, j, k int) int { return (k*np+j)*np + i }
	for k := 0; k < np; k++ {
		for j := 0; j < np; j++ {
			for i := 0; i < np; i++ {
				verts.Set(id(i, j, k), 0, float64(i)*h)
				verts.Set(id(i, j, k), 1, float64(j)*h)
				verts.Set(id(i, j, k), 2, float64(k)*h)
			}
		}
	}
	// Each cube corner indexed by bit pattern (i, j, k); the six tets share
	// the main diagonal 000-111.
	tets := [6][4][3]int{
		{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {1, 1, 1}},
		{{0, 0, 0}, {1, 1, 0}, {0, 1, 0}, {1, 1, 1}},
		{{0, 0, 0}, {0, 1, 0}, {0, 1, 1}, {1, 1, 1}},
		{{0, 0, 0}, {0, 1, 1}, {0, 0, 1}, {1, 1, 1}},
		{{0, 0, 0}, {0, 0, 1}, {1, 0, 1}, {1, 1, 1}},
		{{0, 0, 0}, {1, 0, 1}, {1, 0, 0}, {1, 1, 1}},
	}
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				for _, t := range tets {
					elem := make([]int, 4)
					for v, c := range t {
						elem[v] = id(i+c[0], j+c[1], k+c[2])
					}
					elements = append(elements, elem)
				}
			}
		}
	}
	return
}
