package lkf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Status is the lifecycle state of a KF.
type Status uint8

const (
	// Unconfigured means none of F, H, Q and R has been set.
	Unconfigured Status = iota
	// Configured means some but not all of F, H, Q and R are set.
	Configured
	// Ready means F, H, Q and R are all set.
	Ready
)

func (s Status) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configured:
		return "configured"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Estimate is recorded after each successful Update.
// All returned matrices are owned by the Estimate and never alias the filter.
type Estimate struct {
	state, meas, innovation      *mat.VecDense
	covar, predCovar, innovCovar *mat.SymDense
	gain                         *mat.Dense
	nis                          float64
}

// IsWithinNσ returns whether every state component lies within N standard
// deviations of zero. This is meaningful on estimation errors, see GroundTruth.
func (e Estimate) IsWithinNσ(N float64) bool {
	for i := 0; i < e.state.Len(); i++ {
		nσ := N * math.Sqrt(e.covar.At(i, i))
		if e.state.AtVec(i) > nσ || e.state.AtVec(i) < -nσ {
			return false
		}
	}
	return true
}

// IsWithin2σ returns whether the estimation is within the 2σ bounds.
func (e Estimate) IsWithin2σ() bool {
	return e.IsWithinNσ(2)
}

// State returns \hat{x}_{k}^{+}
func (e Estimate) State() *mat.VecDense {
	return e.state
}

// Measurement returns the predicted measurement H*\hat{x}_{k}^{-}
func (e Estimate) Measurement() *mat.VecDense {
	return e.meas
}

// Innovation returns z_{k} - H*\hat{x}_{k}^{-}
func (e Estimate) Innovation() *mat.VecDense {
	return e.innovation
}

// Covariance returns P_{k}^{+}
func (e Estimate) Covariance() *mat.SymDense {
	return e.covar
}

// PredCovariance returns P_{k}^{-}
func (e Estimate) PredCovariance() *mat.SymDense {
	return e.predCovar
}

// InnovationCovariance returns S_{k} = H*P_{k}^{-}*H' + R
func (e Estimate) InnovationCovariance() *mat.SymDense {
	return e.innovCovar
}

// Gain returns the Kalman gain K_{k}.
func (e Estimate) Gain() *mat.Dense {
	return e.gain
}

// NIS returns the normalized innovation squared y'*S^-1*y.
func (e Estimate) NIS() float64 {
	return e.nis
}

func (e Estimate) String() string {
	state := mat.Formatted(e.state, mat.Prefix("  "))
	meas := mat.Formatted(e.meas, mat.Prefix("  "))
	covar := mat.Formatted(e.covar, mat.Prefix("  "))
	gain := mat.Formatted(e.gain, mat.Prefix("  "))
	innov := mat.Formatted(e.innovation, mat.Prefix("  "))
	predp := mat.Formatted(e.predCovar, mat.Prefix("  "))
	return fmt.Sprintf("{\ns=%v\ny=%v\nP=%v\nK=%v\nP-=%v\ni=%v\n}", state, meas, covar, gain, predp, innov)
}
