package lkf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestCheckDims(t *testing.T) {
	i22 := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	i33 := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	methods := []DimensionAgreement{cols2rows, cols2cols, rows2rows, rowsAndcols}
	for _, meth := range methods {
		require.NoError(t, checkMatDims(i22, i22, "i22", "i22", meth), "method %+v", meth)
		err := checkMatDims(i22, i33, "i22", "i33", meth)
		require.Error(t, err, "method %+v does not error when using i22 and i33", meth)
		require.True(t, errors.Is(err, ErrDimensionMismatch))
	}
}

func TestCheckShape(t *testing.T) {
	require.NoError(t, checkShape(mat.NewDense(3, 6, nil), "H", 3, 6))

	err := checkShape(mat.NewDense(5, 5, nil), "F", 6, 6)
	require.ErrorIs(t, err, ErrDimensionMismatch)
	require.Contains(t, err.Error(), "F(5x5) expected(6x6)")

	require.ErrorIs(t, checkShape(nil, "Q", 6, 6), ErrDimensionMismatch)
}
