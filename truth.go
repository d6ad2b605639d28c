package lkf

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// GroundTruth holds a simulated trajectory and the measurements taken on it.
// States[k] is the true state after k+1 transitions from x0 and
// Measurements[k] = H*States[k] + v_k, so Measurements[k] is the input of the
// k-th KF.Step.
type GroundTruth struct {
	States       []*mat.VecDense
	Measurements []*mat.VecDense
}

// Simulate propagates x0 through x_{k+1} = F*x_k + w_k for the given number of
// steps and measures each state through z_k = H*x_k + v_k.
func Simulate(F, H mat.Matrix, x0 mat.Vector, noise Noise, steps int) (*GroundTruth, error) {
	n, c := F.Dims()
	if n != c {
		return nil, fmt.Errorf("%w: F must be square, got (%dx%d)", ErrDimensionMismatch, n, c)
	}
	if err := checkMatDims(F, H, "F", "H", cols2cols); err != nil {
		return nil, err
	}
	if x0 == nil || x0.Len() != n {
		return nil, fmt.Errorf("%w: %sx0(%d) expected(%d)", ErrDimensionMismatch, dimErrMsg, vecLen(x0), n)
	}
	if noise == nil {
		return nil, fmt.Errorf("%w: no noise source", ErrNotConfigured)
	}
	m, _ := H.Dims()
	if q, r := noise.ProcessMatrix().SymmetricDim(), noise.MeasurementMatrix().SymmetricDim(); q != n || r != m {
		return nil, fmt.Errorf("%w: noise is (%d, %d) but the model is (%d, %d)", ErrDimensionMismatch, q, r, n, m)
	}
	if steps < 0 {
		return nil, fmt.Errorf("lkf: invalid number of steps %d", steps)
	}

	truth := &GroundTruth{
		States:       make([]*mat.VecDense, steps),
		Measurements: make([]*mat.VecDense, steps),
	}
	x := mat.VecDenseCopyOf(x0)
	for k := 0; k < steps; k++ {
		next := mat.NewVecDense(n, nil)
		next.MulVec(F, x)
		next.AddVec(next, noise.Process(k))
		z := mat.NewVecDense(m, nil)
		z.MulVec(H, next)
		z.AddVec(z, noise.Measurement(k))
		truth.States[k] = next
		truth.Measurements[k] = z
		x = next
	}
	return truth, nil
}

// Len returns the number of simulated steps.
func (t *GroundTruth) Len() int {
	return len(t.States)
}

// Error returns an Estimate whose state is est.State() minus the true state
// at step k, and whose measurement is the predicted measurement minus the
// actual measurement. The covariances of est are kept so the result can be
// checked with IsWithin2σ.
func (t *GroundTruth) Error(k int, est *Estimate) (*Estimate, error) {
	if k < 0 || k >= len(t.States) {
		return nil, fmt.Errorf("lkf: no ground truth at step k=%d", k)
	}
	if est == nil {
		return nil, fmt.Errorf("lkf: no estimate at step k=%d", k)
	}
	if est.state.Len() != t.States[k].Len() {
		return nil, fmt.Errorf("%w: ground truth state size different from estimated state size (k=%d)", ErrDimensionMismatch, k)
	}
	if est.meas.Len() != t.Measurements[k].Len() {
		return nil, fmt.Errorf("%w: ground truth measurement size different from estimated measurement size (k=%d)", ErrDimensionMismatch, k)
	}
	var state, meas mat.VecDense
	state.SubVec(est.state, t.States[k])
	meas.SubVec(est.meas, t.Measurements[k])

	errEst := *est
	errEst.state = &state
	errEst.meas = &meas
	return &errEst, nil
}
