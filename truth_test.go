package lkf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSimulateNoiseless(t *testing.T) {
	F, H := ConstantVelocity(1, 0.5)
	noise := NewNoiseless(Identity(2), Identity(1))
	truth, err := Simulate(F, H, mat.NewVecDense(2, []float64{0, 2}), noise, 4)
	require.NoError(t, err)
	require.Equal(t, 4, truth.Len())
	for k := 0; k < 4; k++ {
		pos := float64(k + 1)
		assert.InDeltaSlice(t, []float64{pos, 2}, truth.States[k].RawVector().Data, 1e-12)
		assert.InDeltaSlice(t, []float64{pos}, truth.Measurements[k].RawVector().Data, 1e-12)
	}
}

func TestSimulateBatchNoise(t *testing.T) {
	F, H := ConstantVelocity(1, 1)
	noise := NewBatchNoise(
		[]*mat.VecDense{mat.NewVecDense(2, []float64{0, 1}), mat.NewVecDense(2, []float64{0, 0})},
		[]*mat.VecDense{mat.NewVecDense(1, []float64{0.5}), mat.NewVecDense(1, []float64{-0.5})},
	)
	truth, err := Simulate(F, H, mat.NewVecDense(2, nil), noise, 2)
	require.NoError(t, err)
	// x1 = [0 1], x2 = [1 1]
	assert.Equal(t, []float64{0, 1}, truth.States[0].RawVector().Data)
	assert.Equal(t, []float64{1, 1}, truth.States[1].RawVector().Data)
	assert.Equal(t, []float64{0.5}, truth.Measurements[0].RawVector().Data)
	assert.Equal(t, []float64{0.5}, truth.Measurements[1].RawVector().Data)
}

func TestSimulateErrors(t *testing.T) {
	F, H := ConstantVelocity(3, 0.1)
	noise := NewNoiseless(Identity(6), Identity(3))
	_, err := Simulate(F, H, mat.NewVecDense(5, nil), noise, 1)
	require.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = Simulate(F, H, mat.NewVecDense(6, nil), NewNoiseless(Identity(6), Identity(2)), 1)
	require.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = Simulate(F, mat.NewDense(3, 5, nil), mat.NewVecDense(6, nil), noise, 1)
	require.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = Simulate(F, H, mat.NewVecDense(6, nil), nil, 1)
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestGroundTruthError(t *testing.T) {
	truth := &GroundTruth{
		States:       []*mat.VecDense{mat.NewVecDense(2, []float64{1, 1}), mat.NewVecDense(2, []float64{2, 2})},
		Measurements: []*mat.VecDense{mat.NewVecDense(2, []float64{3, 3}), mat.NewVecDense(2, []float64{4, 4})},
	}
	est := &Estimate{
		state: mat.NewVecDense(2, []float64{1, 1}),
		meas:  mat.NewVecDense(2, []float64{4, 4}),
		covar: ScaledIdentity(2, 1),
	}
	for k, exp := range []struct {
		state, meas []float64
	}{
		{state: []float64{0, 0}, meas: []float64{1, 1}},
		{state: []float64{-1, -1}, meas: []float64{0, 0}},
	} {
		errEst, err := truth.Error(k, est)
		require.NoError(t, err)
		assert.Equal(t, exp.state, errEst.State().RawVector().Data, "state at k=%d", k)
		assert.Equal(t, exp.meas, errEst.Measurement().RawVector().Data, "measurement at k=%d", k)
		assert.True(t, errEst.IsWithin2σ())
	}
	// The estimate itself is untouched.
	assert.Equal(t, []float64{1, 1}, est.State().RawVector().Data)

	_, err := truth.Error(2, est)
	require.Error(t, err)
	wrongState := &Estimate{state: mat.NewVecDense(3, nil), meas: mat.NewVecDense(2, nil), covar: Identity(3)}
	_, err = truth.Error(0, wrongState)
	require.ErrorIs(t, err, ErrDimensionMismatch)
	wrongMeas := &Estimate{state: mat.NewVecDense(2, nil), meas: mat.NewVecDense(3, nil), covar: Identity(2)}
	_, err = truth.Error(0, wrongMeas)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}
