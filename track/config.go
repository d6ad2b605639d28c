package track

import (
	"fmt"
	"log/slog"

	"github.com/ChristopherRabotin/lkf"
	"gonum.org/v1/gonum/mat"
)

// Process noise models.
const (
	NoiseScaled = "scaled" // Q = q*I
	NoiseWNA    = "wna"    // continuous white noise acceleration of density q
)

// Config describes a constant velocity tracker.
type Config struct {
	Dims             int     `mapstructure:"dims"`
	Dt               float64 `mapstructure:"dt"`
	ProcessNoise     float64 `mapstructure:"process_noise"`
	MeasurementNoise float64 `mapstructure:"measurement_noise"`
	InitialVariance  float64 `mapstructure:"initial_variance"`
	NoiseModel       string  `mapstructure:"noise_model"`
}

// DefaultConfig is a 3D tracker sampled at 10Hz.
var DefaultConfig = Config{
	Dims:             3,
	Dt:               0.1,
	ProcessNoise:     0.1,
	MeasurementNoise: 1,
	InitialVariance:  1,
	NoiseModel:       NoiseScaled,
}

// Validate reports the first invalid field of c.
func (c Config) Validate() error {
	switch {
	case c.Dims < 1:
		return fmt.Errorf("track: dims must be positive, got %d", c.Dims)
	case c.Dt <= 0:
		return fmt.Errorf("track: dt must be positive, got %g", c.Dt)
	case c.ProcessNoise < 0:
		return fmt.Errorf("track: process noise must not be negative, got %g", c.ProcessNoise)
	case c.MeasurementNoise <= 0:
		return fmt.Errorf("track: measurement noise must be positive, got %g", c.MeasurementNoise)
	case c.InitialVariance < 0:
		return fmt.Errorf("track: initial variance must not be negative, got %g", c.InitialVariance)
	case c.NoiseModel != NoiseScaled && c.NoiseModel != NoiseWNA:
		return fmt.Errorf("track: unknown noise model %q", c.NoiseModel)
	}
	return nil
}

// ProcessNoiseMatrix returns Q for the configured noise model.
func (c Config) ProcessNoiseMatrix() (*mat.SymDense, error) {
	if c.NoiseModel == NoiseWNA {
		return lkf.WhiteNoiseAcceleration(c.Dims, c.Dt, c.ProcessNoise)
	}
	return lkf.ScaledIdentity(2*c.Dims, c.ProcessNoise), nil
}

// BuildFilter returns a configured and initialized constant velocity filter.
func (c Config) BuildFilter(logger *slog.Logger) (*lkf.KF, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	n := 2 * c.Dims
	kf, err := lkf.New(n, c.Dims, lkf.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	F, H := lkf.ConstantVelocity(c.Dims, c.Dt)
	Q, err := c.ProcessNoiseMatrix()
	if err != nil {
		return nil, err
	}
	for _, err := range []error{
		kf.SetStateTransition(F),
		kf.SetMeasurementMatrix(H),
		kf.SetProcessNoise(Q),
		kf.SetMeasurementNoise(lkf.ScaledIdentity(c.Dims, c.MeasurementNoise)),
		kf.SetCovariance(lkf.ScaledIdentity(n, c.InitialVariance)),
	} {
		if err != nil {
			return nil, err
		}
	}
	return kf, nil
}
