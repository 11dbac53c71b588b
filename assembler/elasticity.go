package assembler

import (
	"gonum.org/v1/gonum/mat"
)

// elasticEnergy computes 0.5 * u'Ku elementwise from the precomputed element
// stiffness matrices.
func (fa *FEAssembler) elasticEnergy(full []float64) (energy float64) {
	var (
		dim = fa.Mesh.Dim
	)
	for e, elem := range fa.Mesh.Elements {
		var (
			Ke = fa.elemK[e]
			nd = len(elem) * dim
			ue = make([]float64, nd)
		)
		for v, node := range elem {
			for c := 0; c < dim; c++ {
				ue[v*dim+c] = full[node*dim+c]
			}
		}
		for i := 0; i < nd; i++ {
			var row float64
			for j := 0; j < nd; j++ {
				row += Ke.At(i, j) * ue[j]
			}
			energy += 0.5 * ue[i] * row
		}
	}
	return
}

// elasticGradient computes Ku by per-element scatter.
func (fa *FEAssembler) elasticGradient(full []float64) (grad []float64) {
	var (
		dim = fa.Mesh.Dim
	)
	grad = make([]float64, len(full))
	for e, elem := range fa.Mesh.Elements {
		var (
			Ke = fa.elemK[e]
			nd = len(elem) * dim
			ue = make([]float64, nd)
		)
		dofs := make([]int, nd)
		for v, node := range elem {
			for c := 0; c < dim; c++ {
				dofs[v*dim+c] = node*dim + c
				ue[v*dim+c] = full[node*dim+c]
			}
		}
		for i := 0; i < nd; i++ {
			var row float64
			for j := 0; j < nd; j++ {
				row += Ke.At(i, j) * ue[j]
			}
			grad[dofs[i]] += row
		}
	}
	return
}

// elementStiffness builds the P1 element stiffness matrix Ke = vol * B'DB for
// element e from the rest geometry.
func (fa *FEAssembler) elementStiffness(e int) *mat.Dense {
	if fa.Mesh.Dim == 2 {
		return fa.triangleStiffness(e)
	}
	return fa.tetStiffness(e)
}

// triangleStiffness assembles the 6x6 plane-strain stiffness of a linear
// triangle.
func (fa *FEAssembler) triangleStiffness(e int) *mat.Dense {
	var (
		elem = fa.Mesh.Elements[e]
		v    = fa.Mesh.Verts
		area = fa.Mesh.ElementVolume(e)
	)
	x1, y1 := v.At(elem[0], 0), v.At(elem[0], 1)
	x2, y2 := v.At(elem[1], 0), v.At(elem[1], 1)
	x3, y3 := v.At(elem[2], 0), v.At(elem[2], 1)

	// Shape function gradient coefficients over 2*area
	b := [3]float64{y2 - y3, y3 - y1, y1 - y2}
	c := [3]float64{x3 - x2, x1 - x3, x2 - x1}
	det := (x2-x1)*(y3-y1) - (x3-x1)*(y2-y1)

	B := mat.NewDense(3, 6, nil)
	for i := 0; i < 3; i++ {
		B.Set(0, 2*i, b[i]/det)
		B.Set(1, 2*i+1, c[i]/det)
		B.Set(2, 2*i, c[i]/det)
		B.Set(2, 2*i+1, b[i]/det)
	}
	D := planeStrainD(fa.Mat.YoungsModulus, fa.Mat.PoissonRatio)
	return btdb(B, D, area)
}

// tetStiffness assembles the 12x12 stiffness of a linear tetrahedron.
func (fa *FEAssembler) tetStiffness(e int) *mat.Dense {
	var (
		elem = fa.Mesh.Elements[e]
		v    = fa.Mesh.Verts
		vol  = fa.Mesh.ElementVolume(e)
	)
	// Rows of A are the edge vectors from vertex 0; shape gradients of
	// vertices 1..3 are the columns of inv(A), vertex 0 closes the partition
	// of unity.
	A := mat.NewDense(3, 3, nil)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			A.Set(r, c, v.At(elem[r+1], c)-v.At(elem[0], c))
		}
	}
	var Ainv mat.Dense
	if err := Ainv.Inverse(A); err != nil {
		panic(err)
	}
	var g [4][3]float64
	for i := 1; i < 4; i++ {
		for c := 0; c < 3; c++ {
			g[i][c] = Ainv.At(c, i-1)
			g[0][c] -= Ainv.At(c, i-1)
		}
	}
	B := mat.NewDense(6, 12, nil)
	for i := 0; i < 4; i++ {
		gx, gy, gz := g[i][0], g[i][1], g[i][2]
		B.Set(0, 3*i, gx)
		B.Set(1, 3*i+1, gy)
		B.Set(2, 3*i+2, gz)
		B.Set(3, 3*i, gy)
		B.Set(3, 3*i+1, gx)
		B.Set(4, 3*i+1, gz)
		B.Set(4, 3*i+2, gy)
		B.Set(5, 3*i, gz)
		B.Set(5, 3*i+2, gx)
	}
	D := isotropicD3(fa.Mat.YoungsModulus, fa.Mat.PoissonRatio)
	return btdb(B, D, vol)
}

func planeStrainD(E, nu float64) (D *mat.Dense) {
	f := E / ((1 + nu) * (1 - 2*nu))
	return mat.NewDense(3, 3, []float64{
		f * (1 - nu), f * nu, 0,
		f * nu, f * (1 - nu), 0,
		0, 0, f * (1 - 2*nu) / 2,
	})
}

func isotropicD3(E, nu float64) (D *mat.Dense) {
	var (
		lambda = E * nu / ((1 + nu) * (1 - 2*nu))
		mu     = E / (2 * (1 + nu))
	)
	D = mat.NewDense(6, 6, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			D.Set(i, j, lambda)
		}
		D.Set(i, i, lambda+2*mu)
		D.Set(i+3, i+3, mu)
	}
	return
}

func btdb(B, D *mat.Dense, vol float64) (Ke *mat.Dense) {
	var tmp mat.Dense
	tmp.Mul(D, B)
	Ke = &mat.Dense{}
	Ke.Mul(B.T(), &tmp)
	Ke.Scale(vol, Ke)
	return
}
