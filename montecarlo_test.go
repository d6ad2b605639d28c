package lkf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// consistentKF returns a 3D constant velocity filter whose Q and R match the
// simulated noise and which starts exactly on the true initial state.
func consistentKF(t *testing.T, x0 *mat.VecDense) (*KF, Noise) {
	t.Helper()
	F, H := ConstantVelocity(3, 0.1)
	Q, err := WhiteNoiseAcceleration(3, 0.1, 1)
	require.NoError(t, err)
	R := Identity(3)

	kf, err := New(6, 3)
	require.NoError(t, err)
	require.NoError(t, kf.SetStateTransition(F))
	require.NoError(t, kf.SetMeasurementMatrix(H))
	require.NoError(t, kf.SetProcessNoise(Q))
	require.NoError(t, kf.SetMeasurementNoise(R))
	require.NoError(t, kf.SetState(x0))
	require.NoError(t, kf.SetCovariance(mat.NewSymDense(6, nil)))

	noise, err := NewAWGN(Q, R, 2024)
	require.NoError(t, err)
	return kf, noise
}

func TestMCRuns(t *testing.T) {
	x0 := mat.NewVecDense(6, []float64{1, 2, 3, 0.5, -0.5, 0})
	kf, noise := consistentKF(t, x0)

	runs, err := NewMonteCarloRuns(kf, noise, x0, 200, 20)
	require.NoError(t, err)
	r, s := runs.Len()
	require.Equal(t, 200, r)
	require.Equal(t, 20, s)
	for i, run := range runs.Runs {
		require.Len(t, run.Estimates, 20, "sample #%d", i)
		require.Equal(t, 20, run.Truth.Len())
	}

	// Errors are unbiased and their spread matches the filter covariance.
	P := runs.Runs[0].Estimates[19].Covariance()
	mean, dev := runs.Mean(19), runs.StdDev(19)
	require.Len(t, mean, 6)
	for i := range mean {
		expected := math.Sqrt(P.At(i, i))
		assert.InDelta(t, 0, mean[i], 4*expected/14, "mean of component %d", i)
		assert.InDelta(t, expected, dev[i], 0.25*expected, "stddev of component %d", i)
	}

	assertPanic(t, func() { runs.Mean(20) })

	_, err = NewMonteCarloRuns(kf, noise, x0, 0, 10)
	require.Error(t, err)
	unconfigured, err := New(6, 3)
	require.NoError(t, err)
	_, err = NewMonteCarloRuns(unconfigured, noise, x0, 1, 1)
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestChiSquare(t *testing.T) {
	x0 := mat.NewVecDense(6, []float64{0, 0, 0, 1, 1, 1})
	kf, noise := consistentKF(t, x0)
	runs, err := NewMonteCarloRuns(kf, noise, x0, 200, 30)
	require.NoError(t, err)

	NEESmeans, NISmeans, err := NewChiSquare(runs, true, true)
	require.NoError(t, err)
	require.Len(t, NEESmeans, 30)
	require.Len(t, NISmeans, 30)
	assert.InDelta(t, 6, stat.Mean(NEESmeans, nil), 0.6, "NEES should average to the state dimension")
	assert.InDelta(t, 3, stat.Mean(NISmeans, nil), 0.3, "NIS should average to the measurement dimension")

	NEESmeans, NISmeans, err = NewChiSquare(runs, false, true)
	require.NoError(t, err)
	require.Nil(t, NEESmeans)
	require.Len(t, NISmeans, 30)

	_, _, err = NewChiSquare(runs, false, false)
	require.Error(t, err, "attempting to run Chisquare with neither NIS nor NEES fails")
	_, _, err = NewChiSquare(nil, true, true)
	require.Error(t, err)
}

func TestNEES(t *testing.T) {
	est := &Estimate{state: mat.NewVecDense(2, []float64{1, 1}), covar: mat.NewSymDense(2, []float64{4, 0, 0, 1})}
	nees, err := NEES(est, mat.NewVecDense(2, []float64{3, 2}))
	require.NoError(t, err)
	// 2²/4 + 1²/1
	require.InDelta(t, 2, nees, 1e-12)

	_, err = NEES(est, mat.NewVecDense(3, nil))
	require.ErrorIs(t, err, ErrDimensionMismatch)
	singular := &Estimate{state: mat.NewVecDense(2, nil), covar: mat.NewSymDense(2, nil)}
	_, err = NEES(singular, mat.NewVecDense(2, nil))
	require.ErrorIs(t, err, ErrNumericalInstability)
}
