package lkf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// symmetryTolerance is the relative tolerance used when accepting a
// caller-provided covariance as symmetric.
const symmetryTolerance = 1e-9

// Identity returns an identity matrix of the provided size.
func Identity(n int) *mat.SymDense {
	return ScaledIdentity(n, 1)
}

// ScaledIdentity returns an identity matrix scaled by s.
func ScaledIdentity(n int, s float64) *mat.SymDense {
	if n < 1 {
		panic(fmt.Sprintf("lkf: invalid identity size %d", n))
	}
	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		m.SetSym(i, i, s)
	}
	return m
}

// IsNil returns whether the provided matrix only has zero values
func IsNil(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}

// AsSymDense returns a symmetric copy of the provided square matrix. The
// matrix is accepted if every pair m(i,j), m(j,i) agrees within a relative
// tolerance of tol, and the two are then averaged.
func AsSymDense(m mat.Matrix, tol float64) (*mat.SymDense, error) {
	r, c := m.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: matrix must be square, got (%dx%d)", ErrDimensionMismatch, r, c)
	}
	scale := maxAbs(m)
	if scale < 1 {
		scale = 1
	}
	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < c; j++ {
			a, b := m.At(i, j), m.At(j, i)
			if math.Abs(a-b) > tol*scale {
				return nil, fmt.Errorf("%w: (%d,%d)=%g and (%d,%d)=%g", ErrNotSymmetric, i, j, a, j, i, b)
			}
			sym.SetSym(i, j, (a+b)/2)
		}
	}
	return sym, nil
}

// maxAbs returns the largest absolute entry of m.
func maxAbs(m mat.Matrix) float64 {
	r, c := m.Dims()
	var largest float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := math.Abs(m.At(i, j)); v > largest {
				largest = v
			}
		}
	}
	return largest
}

// isFinite returns false if any entry of m is NaN or infinite.
func isFinite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

func copyVec(v mat.Vector) *mat.VecDense {
	return mat.VecDenseCopyOf(v)
}

func copySym(s mat.Symmetric) *mat.SymDense {
	c := mat.NewSymDense(s.SymmetricDim(), nil)
	c.CopySym(s)
	return c
}
