package lkf

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Noise allows to handle the noise for a KF.
type Noise interface {
	Process(k int) *mat.VecDense      // Returns the process noise w at step k
	Measurement(k int) *mat.VecDense  // Returns the measurement noise v at step k
	ProcessMatrix() mat.Symmetric     // Returns the process noise matrix Q
	MeasurementMatrix() mat.Symmetric // Returns the measurement noise matrix R
	String() string                   // Stringer interface implementation
}

// Noiseless is noiseless and implements the Noise interface.
type Noiseless struct {
	Q, R                         mat.Symmetric
	processSize, measurementSize int
}

// NewNoiseless creates a noiseless source reporting the provided Q and R.
func NewNoiseless(Q, R mat.Symmetric) *Noiseless {
	if Q == nil || R == nil {
		panic("lkf: Q and R must be specified")
	}
	return &Noiseless{Q, R, Q.SymmetricDim(), R.SymmetricDim()}
}

// Process returns a zero vector of the correct size.
func (n Noiseless) Process(k int) *mat.VecDense {
	return mat.NewVecDense(n.processSize, nil)
}

// Measurement returns a zero vector of the correct size.
func (n Noiseless) Measurement(k int) *mat.VecDense {
	return mat.NewVecDense(n.measurementSize, nil)
}

// ProcessMatrix implements the Noise interface.
func (n Noiseless) ProcessMatrix() mat.Symmetric {
	return n.Q
}

// MeasurementMatrix implements the Noise interface.
func (n Noiseless) MeasurementMatrix() mat.Symmetric {
	return n.R
}

// String implements the Stringer interface.
func (n Noiseless) String() string {
	return fmt.Sprintf("Noiseless{\nQ=%v\nR=%v}\n", mat.Formatted(n.Q, mat.Prefix("  ")), mat.Formatted(n.R, mat.Prefix("  ")))
}

// BatchNoise replays recorded noise samples and implements the Noise interface.
type BatchNoise struct {
	process     []*mat.VecDense
	measurement []*mat.VecDense
}

// NewBatchNoise returns a BatchNoise replaying the provided samples. Both
// slices must hold at least one vector.
func NewBatchNoise(process, measurement []*mat.VecDense) *BatchNoise {
	if len(process) == 0 || len(measurement) == 0 {
		panic("lkf: batch noise requires at least one process and one measurement sample")
	}
	return &BatchNoise{process, measurement}
}

// Process implements the Noise interface.
func (n BatchNoise) Process(k int) *mat.VecDense {
	if k >= len(n.process) {
		panic(fmt.Errorf("lkf: no process noise defined at step k=%d", k))
	}
	return mat.VecDenseCopyOf(n.process[k])
}

// Measurement implements the Noise interface.
func (n BatchNoise) Measurement(k int) *mat.VecDense {
	if k >= len(n.measurement) {
		panic(fmt.Errorf("lkf: no measurement noise defined at step k=%d", k))
	}
	return mat.VecDenseCopyOf(n.measurement[k])
}

// ProcessMatrix implements the Noise interface.
func (n BatchNoise) ProcessMatrix() mat.Symmetric {
	return mat.NewSymDense(n.process[0].Len(), nil)
}

// MeasurementMatrix implements the Noise interface.
func (n BatchNoise) MeasurementMatrix() mat.Symmetric {
	return mat.NewSymDense(n.measurement[0].Len(), nil)
}

// String implements the Stringer interface.
func (n BatchNoise) String() string {
	return fmt.Sprintf("BatchNoise{steps=%d}", len(n.process))
}

// AWGN implements the Noise interface and generates an additive white
// Gaussian noise. A zero Q or R yields zero samples.
type AWGN struct {
	Q, R        mat.Symmetric
	process     *distmv.Normal
	measurement *distmv.Normal
}

// NewAWGN creates a new AWGN source of covariances Q and R. The samples are
// drawn from a PCG generator seeded with seed so runs are reproducible.
func NewAWGN(Q, R mat.Symmetric, seed uint64) (*AWGN, error) {
	if Q == nil || R == nil {
		return nil, fmt.Errorf("%w: Q and R must be specified", ErrDimensionMismatch)
	}
	src := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	process, err := newNormal(Q, src, "process")
	if err != nil {
		return nil, err
	}
	meas, err := newNormal(R, src, "measurement")
	if err != nil {
		return nil, err
	}
	return &AWGN{Q: Q, R: R, process: process, measurement: meas}, nil
}

func newNormal(sigma mat.Symmetric, src rand.Source, name string) (*distmv.Normal, error) {
	if IsNil(sigma) {
		return nil, nil
	}
	dist, ok := distmv.NewNormal(make([]float64, sigma.SymmetricDim()), sigma, src)
	if !ok {
		return nil, fmt.Errorf("%w: %s noise covariance is not positive definite", ErrNotPSD, name)
	}
	return dist, nil
}

// ProcessMatrix implements the Noise interface.
func (n AWGN) ProcessMatrix() mat.Symmetric {
	return n.Q
}

// MeasurementMatrix implements the Noise interface.
func (n AWGN) MeasurementMatrix() mat.Symmetric {
	return n.R
}

// Process implements the Noise interface.
func (n AWGN) Process(k int) *mat.VecDense {
	if n.process == nil {
		return mat.NewVecDense(n.Q.SymmetricDim(), nil)
	}
	return mat.NewVecDense(n.Q.SymmetricDim(), n.process.Rand(nil))
}

// Measurement implements the Noise interface.
func (n AWGN) Measurement(k int) *mat.VecDense {
	if n.measurement == nil {
		return mat.NewVecDense(n.R.SymmetricDim(), nil)
	}
	return mat.NewVecDense(n.R.SymmetricDim(), n.measurement.Rand(nil))
}

// String implements the Stringer interface.
func (n AWGN) String() string {
	return fmt.Sprintf("AWGN{\nQ=%v\nR=%v}\n", mat.Formatted(n.Q, mat.Prefix("  ")), mat.Formatted(n.R, mat.Prefix("  ")))
}
