package lkf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultPSDTolerance is the default relative tolerance below which a
// negative covariance eigenvalue is treated as a positive semi-definite violation.
const DefaultPSDTolerance = 1e-9

// Symmetrize returns (P + P')/2 as a symmetric matrix.
// P must be square.
func Symmetrize(P mat.Matrix) *mat.SymDense {
	n, c := P.Dims()
	if n != c {
		panic(fmt.Sprintf("lkf: cannot symmetrize a (%dx%d) matrix", n, c))
	}
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, (P.At(i, j)+P.At(j, i))/2)
		}
	}
	return sym
}

// Stabilize forces P to be symmetric and, if its smallest eigenvalue is below
// -tol*max(1, |λ|max), clamps the negative eigenvalues to zero and rebuilds
// the matrix from its eigen decomposition. The returned bool reports whether
// such a regularization took place.
// An error wrapping ErrNumericalInstability is returned if P holds NaN or Inf
// values, has a negative trace, or cannot be made positive semi-definite.
func Stabilize(P mat.Matrix, tol float64) (*mat.SymDense, bool, error) {
	if r, c := P.Dims(); r != c {
		return nil, false, fmt.Errorf("%w: covariance must be square, got (%dx%d)", ErrDimensionMismatch, r, c)
	}
	if !isFinite(P) {
		return nil, false, fmt.Errorf("%w: covariance holds NaN or Inf values", ErrNumericalInstability)
	}
	sym := Symmetrize(P)

	vals, ok := eigenvalues(sym)
	if !ok {
		return nil, false, fmt.Errorf("%w: eigen decomposition of covariance failed", ErrNumericalInstability)
	}
	floor := -tol * eigenScale(vals)
	if tr := mat.Trace(sym); tr < floor {
		return nil, false, fmt.Errorf("%w: covariance trace is negative (%g)", ErrNumericalInstability, tr)
	}
	if vals[0] >= floor {
		return sym, false, nil
	}

	// Clamp the negative part of the spectrum.
	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		return nil, false, fmt.Errorf("%w: eigen decomposition of covariance failed", ErrNumericalInstability)
	}
	λ := eig.Values(nil)
	for i := range λ {
		if λ[i] < 0 {
			λ[i] = 0
		}
	}
	var V, rebuilt mat.Dense
	eig.VectorsTo(&V)
	rebuilt.Product(&V, mat.NewDiagDense(len(λ), λ), V.T())
	out := Symmetrize(&rebuilt)

	after, ok := eigenvalues(out)
	if !ok || !isFinite(out) || after[0] < floor {
		return nil, true, fmt.Errorf("%w: could not restore a positive semi-definite covariance (min eigenvalue %g)", ErrNumericalInstability, vals[0])
	}
	return out, true, nil
}

// IsPSD returns whether all eigenvalues of the symmetric matrix s are at
// least -tol*max(1, |λ|max).
func IsPSD(s mat.Symmetric, tol float64) bool {
	vals, ok := eigenvalues(s)
	if !ok {
		return false
	}
	return vals[0] >= -tol*eigenScale(vals)
}

// eigenvalues returns the eigenvalues of s in ascending order.
func eigenvalues(s mat.Symmetric) ([]float64, bool) {
	var eig mat.EigenSym
	if !eig.Factorize(s, false) {
		return nil, false
	}
	return eig.Values(nil), true
}

func eigenScale(vals []float64) float64 {
	scale := 1.0
	for _, v := range vals {
		if a := math.Abs(v); a > scale {
			scale = a
		}
	}
	return scale
}
