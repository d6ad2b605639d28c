package lkf

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ConstantVelocity returns the state transition and measurement matrices of a
// constant velocity model in dims spatial dimensions sampled every dt.
// The state is laid out as [p_1..p_dims, v_1..v_dims] and only the positions
// are measured.
func ConstantVelocity(dims int, dt float64) (F, H *mat.Dense) {
	if dims < 1 {
		panic(fmt.Sprintf("lkf: invalid number of dimensions %d", dims))
	}
	n := 2 * dims
	F = mat.NewDense(n, n, nil)
	H = mat.NewDense(dims, n, nil)
	for i := 0; i < n; i++ {
		F.Set(i, i, 1)
	}
	for i := 0; i < dims; i++ {
		F.Set(i, i+dims, dt)
		H.Set(i, i, 1)
	}
	return F, H
}

// WhiteNoiseAcceleration returns the discrete process noise of a constant
// velocity model driven by a continuous white noise acceleration of spectral
// density q on each axis.
func WhiteNoiseAcceleration(dims int, dt, q float64) (*mat.SymDense, error) {
	if dims < 1 {
		return nil, fmt.Errorf("%w: invalid number of dimensions %d", ErrDimensionMismatch, dims)
	}
	if q < 0 {
		return nil, fmt.Errorf("%w: negative spectral density %g", ErrNotPSD, q)
	}
	n := 2 * dims
	A := mat.NewDense(n, n, nil)
	Γ := mat.NewDense(n, dims, nil)
	for i := 0; i < dims; i++ {
		A.Set(i, i+dims, 1)
		Γ.Set(i+dims, i, 1)
	}
	_, Q, err := VanLoan(A, Γ, ScaledIdentity(dims, q), dt)
	if err != nil {
		return nil, err
	}
	return Q, nil
}
