package utils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ShowMatrixStats prints determinant, extreme singular values, condition
// number and invertibility of a dense matrix. Diagnostic only - the SVD makes
// this expensive for large systems.
func ShowMatrixStats(M *mat.Dense) {
	var (
		svd mat.SVD
		lu  mat.LU
	)
	if ok := svd.Factorize(M, mat.SVDNone); !ok {
		fmt.Printf("matrix stats: SVD failed to converge\n")
		return
	}
	sv := svd.Values(nil)
	s1, s2 := sv[0], sv[len(sv)-1]
	lu.Factorize(M)
	fmt.Printf("----------------------------------------\n")
	fmt.Printf("-- Determinant: %g\n", lu.Det())
	fmt.Printf("-- Singular values: %g %g\n", s1, s2)
	fmt.Printf("-- Cond: %g\n", s1/s2)
	fmt.Printf("-- Invertible: %v\n", s2 > 1.e-14*s1)
	fmt.Printf("----------------------------------------\n")
}
