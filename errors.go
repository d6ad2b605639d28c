package lkf

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrDimensionMismatch is returned when a matrix or vector does not have the
	// shape fixed at construction.
	ErrDimensionMismatch = errors.New("lkf: dimension mismatch")
	// ErrNotConfigured is returned by Predict and Update when a matrix they need
	// has not been set.
	ErrNotConfigured = errors.New("lkf: filter not configured")
	// ErrSingularInnovationCovariance is returned by Update when S = H*P*H' + R
	// cannot be factorized within the singularity tolerance.
	ErrSingularInnovationCovariance = errors.New("lkf: singular innovation covariance")
	// ErrNumericalInstability is returned when a covariance could not be brought
	// back to a symmetric positive semi-definite matrix.
	ErrNumericalInstability = errors.New("lkf: numerical instability")
	// ErrNotSymmetric is returned when a covariance input is not symmetric.
	ErrNotSymmetric = errors.New("lkf: matrix is not symmetric")
	// ErrNotPSD is returned when a covariance input has a negative eigenvalue.
	ErrNotPSD = errors.New("lkf: matrix is not positive semi-definite")
)

// DimensionAgreement defines how two matrices' dimensions should agree.
type DimensionAgreement uint8

const (
	dimErrMsg                    = "dimensions must agree: "
	cols2rows DimensionAgreement = iota + 1
	cols2cols
	rows2rows
	rowsAndcols
)

// checkMatDims checks the matrix dimensions match provided a DimensionAgreement.
// The returned error wraps ErrDimensionMismatch.
func checkMatDims(m1, m2 mat.Matrix, name1, name2 string, method DimensionAgreement) error {
	r1, c1 := m1.Dims()
	r2, c2 := m2.Dims()
	switch method {
	case cols2rows:
		if c1 != r2 {
			return fmt.Errorf("%w: %s%s(...x%d) %s(%dx...)", ErrDimensionMismatch, dimErrMsg, name1, c1, name2, r2)
		}
	case cols2cols:
		if c1 != c2 {
			return fmt.Errorf("%w: %s%s(...x%d) %s(...x%d)", ErrDimensionMismatch, dimErrMsg, name1, c1, name2, c2)
		}
	case rows2rows:
		if r1 != r2 {
			return fmt.Errorf("%w: %s%s(%dx...) %s(%dx...)", ErrDimensionMismatch, dimErrMsg, name1, r1, name2, r2)
		}
	case rowsAndcols:
		if c1 != c2 || r1 != r2 {
			return fmt.Errorf("%w: %s%s(%dx%d) %s(%dx%d)", ErrDimensionMismatch, dimErrMsg, name1, r1, c1, name2, r2, c2)
		}
	}
	return nil
}

// checkShape checks that m is exactly r x c.
func checkShape(m mat.Matrix, name string, r, c int) error {
	if m == nil {
		return fmt.Errorf("%w: %s is nil", ErrDimensionMismatch, name)
	}
	return checkMatDims(m, shape{r, c}, name, "expected", rowsAndcols)
}

// shape is a zero-storage mat.Matrix only used to describe expected dimensions.
type shape struct{ r, c int }

func (s shape) Dims() (int, int) { return s.r, s.c }
func (s shape) At(i, j int) float64 { return 0 }
func (s shape) T() mat.Matrix { return shape{s.c, s.r} }
