package lkf

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// VanLoan computes the discrete F and Q matrices from the continuous time
// system ẋ = Ax + Γw, with w white noise of spectral density W, sampled at Δt.
// A Nyquist violation is reported as an error along with the matrices, which
// remain usable.
func VanLoan(A, Γ, W mat.Matrix, Δt float64) (*mat.Dense, *mat.SymDense, error) {
	rA, cA := A.Dims()
	if rA != cA {
		return nil, nil, fmt.Errorf("%w: A must be square, got (%dx%d)", ErrDimensionMismatch, rA, cA)
	}
	if err := checkMatDims(A, Γ, "A", "Γ", rows2rows); err != nil {
		return nil, nil, err
	}
	if err := checkMatDims(Γ, W, "Γ", "W", cols2rows); err != nil {
		return nil, nil, err
	}
	if rW, cW := W.Dims(); rW != cW {
		return nil, nil, fmt.Errorf("%w: W must be square, got (%dx%d)", ErrDimensionMismatch, rW, cW)
	}
	if Δt <= 0 {
		return nil, nil, fmt.Errorf("lkf: sampling interval must be positive, got %g", Δt)
	}

	var nyquist error
	var eig mat.Eigen
	if !eig.Factorize(A, mat.EigenNone) {
		return nil, nil, fmt.Errorf("%w: eigen decomposition of A failed", ErrNumericalInstability)
	}
	var λmax float64
	for _, λ := range eig.Values(nil) {
		if a := cmplx.Abs(λ); a > λmax {
			λmax = a
		}
	}
	if 2*λmax*Δt >= math.Pi {
		nyquist = fmt.Errorf("lkf: Nyquist sampling criterion not fulfilled with Δt=%g", Δt)
	}

	var ΓW, ΓWΓ, Ap mat.Dense
	ΓW.Mul(Γ, W)
	ΓWΓ.Mul(&ΓW, Γ.T())
	ΓWΓ.Scale(Δt, &ΓWΓ)
	Ap.Scale(Δt, A)

	// M = [ -AΔt  ΓWΓ'Δt ]
	//     [   0    A'Δt  ]
	M := mat.NewDense(2*rA, 2*rA, nil)
	for i := 0; i < rA; i++ {
		for j := 0; j < rA; j++ {
			M.Set(i, j, -Ap.At(i, j))
			M.Set(i, j+rA, ΓWΓ.At(i, j))
			M.Set(i+rA, j+rA, Ap.At(j, i))
		}
	}

	var expM mat.Dense
	expM.Exp(M)

	// The lower right block is F' and the upper right one is F⁻¹Q.
	F := mat.NewDense(rA, rA, nil)
	F1Q := mat.NewDense(rA, rA, nil)
	for i := 0; i < rA; i++ {
		for j := 0; j < rA; j++ {
			F1Q.Set(i, j, expM.At(i, j+rA))
			F.Set(i, j, expM.At(j+rA, i+rA))
		}
	}
	var Q mat.Dense
	Q.Mul(F, F1Q)
	QSym, err := AsSymDense(&Q, 1e-6)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: discretized process noise", err)
	}
	return F, QSym, nyquist
}
