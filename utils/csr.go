package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// CSRMulVec computes y = M*x over the raw compressed row arrays.
func CSRMulVec(m *sparse.CSR, x []float64) (y []float64) {
	var (
		raw = m.RawMatrix()
	)
	if raw.J != len(x) {
		panic(fmt.Errorf("CSRMulVec: dimension mismatch, matrix is %dx%d, len(x) = %d", raw.I, raw.J, len(x)))
	}
	y = make([]float64, raw.I)
	for i := 0; i < raw.I; i++ {
		var sum float64
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			sum += raw.Data[k] * x[raw.Ind[k]]
		}
		y[i] = sum
	}
	return
}

// CSRToDense densifies a compressed matrix.
func CSRToDense(m *sparse.CSR) (d *mat.Dense) {
	var (
		raw = m.RawMatrix()
	)
	d = mat.NewDense(raw.I, raw.J, nil)
	for i := 0; i < raw.I; i++ {
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			d.Set(i, raw.Ind[k], raw.Data[k])
		}
	}
	return
}

// CSRTriplets expands a compressed matrix back into triplet form.
func CSRTriplets(m *sparse.CSR) (ts []Triplet) {
	var (
		raw = m.RawMatrix()
	)
	ts = make([]Triplet, 0, len(raw.Data))
	for i := 0; i < raw.I; i++ {
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			ts = append(ts, Triplet{i, raw.Ind[k], raw.Data[k]})
		}
	}
	return
}
