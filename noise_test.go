package lkf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestImplementsNoise(t *testing.T) {
	implements := func(Noise) {}
	implements(new(Noiseless))
	implements(new(BatchNoise))
	implements(new(AWGN))
}

func TestNoiseless(t *testing.T) {
	nl := NewNoiseless(Identity(2), ScaledIdentity(3, 2))
	require.Equal(t, 2, nl.Process(1).Len())
	require.Equal(t, 3, nl.Measurement(1).Len())
	require.True(t, IsNil(nl.Process(4)))
	require.True(t, IsNil(nl.Measurement(4)))
	require.True(t, mat.Equal(Identity(2), nl.ProcessMatrix()))
	require.Contains(t, nl.String(), "Noiseless")

	assertPanic(t, func() { NewNoiseless(nil, Identity(2)) })
}

func TestBatchNoise(t *testing.T) {
	process := make([]*mat.VecDense, 4)
	measurements := make([]*mat.VecDense, 4)
	for i := 0; i < 4; i++ {
		f := float64(i)
		process[i] = mat.NewVecDense(3, []float64{f + 1, f + 2, f + 3})
		measurements[i] = mat.NewVecDense(2, []float64{f*2 + 1, f*2 + 2})
	}
	batch := NewBatchNoise(process, measurements)
	for k := 0; k < 4; k++ {
		assert.True(t, mat.Equal(process[k], batch.Process(k)))
		assert.True(t, mat.Equal(measurements[k], batch.Measurement(k)))
	}
	// Returned samples are copies.
	batch.Process(0).SetVec(0, 100)
	assert.Equal(t, 1.0, batch.Process(0).AtVec(0))

	require.Equal(t, 3, batch.ProcessMatrix().SymmetricDim())
	require.True(t, IsNil(batch.ProcessMatrix()))
	require.Equal(t, 2, batch.MeasurementMatrix().SymmetricDim())

	assertPanic(t, func() { batch.Process(4) })
	assertPanic(t, func() { batch.Measurement(4) })
	assertPanic(t, func() { NewBatchNoise(nil, measurements) })
}

func TestAWGNErrors(t *testing.T) {
	badQ := mat.NewSymDense(2, []float64{1, 1, 1, 1})
	badR := mat.NewSymDense(3, []float64{2, 3, 1, 3, 4, 6, 1, 6, 7})
	_, err := NewAWGN(badQ, Identity(3), 1)
	require.ErrorIs(t, err, ErrNotPSD)
	_, err = NewAWGN(Identity(2), badR, 1)
	require.ErrorIs(t, err, ErrNotPSD)
	_, err = NewAWGN(nil, badR, 1)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestAWGNStatistics(t *testing.T) {
	Q := mat.NewSymDense(2, []float64{1, 0, 0, 4})
	R := mat.NewSymDense(2, []float64{20, 0.05, 0.05, 20})
	n, err := NewAWGN(Q, R, 42)
	require.NoError(t, err)
	require.True(t, mat.Equal(Q, n.ProcessMatrix()))
	require.True(t, mat.Equal(R, n.MeasurementMatrix()))

	const samples = 20000
	w0 := make([]float64, samples)
	w1 := make([]float64, samples)
	for k := 0; k < samples; k++ {
		w := n.Process(k)
		w0[k], w1[k] = w.AtVec(0), w.AtVec(1)
	}
	assert.InDelta(t, 0, stat.Mean(w0, nil), 0.05)
	assert.InDelta(t, 0, stat.Mean(w1, nil), 0.1)
	assert.InDelta(t, 1, stat.Variance(w0, nil), 0.05)
	assert.InDelta(t, 4, stat.Variance(w1, nil), 0.2)

	require.False(t, mat.Equal(n.Measurement(0), n.Measurement(1)), "measurement noise at two different time steps is identical")
}

func TestAWGNSeed(t *testing.T) {
	a, err := NewAWGN(Identity(3), Identity(2), 7)
	require.NoError(t, err)
	b, err := NewAWGN(Identity(3), Identity(2), 7)
	require.NoError(t, err)
	for k := 0; k < 5; k++ {
		require.True(t, mat.Equal(a.Process(k), b.Process(k)))
		require.True(t, mat.Equal(a.Measurement(k), b.Measurement(k)))
	}
}

func TestAWGNZeroCovariance(t *testing.T) {
	n, err := NewAWGN(mat.NewSymDense(2, nil), Identity(1), 3)
	require.NoError(t, err)
	require.True(t, IsNil(n.Process(0)))
	require.Equal(t, 1, n.Measurement(0).Len())
}
