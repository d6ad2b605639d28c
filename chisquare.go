package lkf

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// NewChiSquare computes the per step means over all Monte Carlo runs of the
// normalized estimation error squared (NEES) and of the normalized innovation
// squared (NIS). A consistent filter has NEES means close to n and NIS means
// close to m. The slice of a test which was not requested is nil.
func NewChiSquare(runs *MonteCarloRuns, withNEES, withNIS bool) (NEESmeans, NISmeans []float64, err error) {
	if !withNEES && !withNIS {
		return nil, nil, errors.New("lkf: chi square requires either NEES or NIS or both")
	}
	if runs == nil || len(runs.Runs) == 0 {
		return nil, nil, errors.New("lkf: chi square requires at least one Monte Carlo run")
	}

	numRuns, numSteps := runs.Len()
	if withNEES {
		NEESmeans = make([]float64, numSteps)
	}
	if withNIS {
		NISmeans = make([]float64, numSteps)
	}
	NEESsamples := make([]float64, numRuns)
	NISsamples := make([]float64, numRuns)

	for k := 0; k < numSteps; k++ {
		for rNo, run := range runs.Runs {
			est := run.Estimates[k]
			if withNEES {
				nees, err := NEES(est, run.Truth.States[k])
				if err != nil {
					return nil, nil, fmt.Errorf("run %d: step %d: %w", rNo, k, err)
				}
				NEESsamples[rNo] = nees
			}
			if withNIS {
				NISsamples[rNo] = est.NIS()
			}
		}
		if withNEES {
			NEESmeans[k] = stat.Mean(NEESsamples, nil)
		}
		if withNIS {
			NISmeans[k] = stat.Mean(NISsamples, nil)
		}
	}
	return NEESmeans, NISmeans, nil
}

// NEES returns e'*P^-1*e with e the difference between the true state and the
// estimated one, and P the estimated covariance.
func NEES(est *Estimate, truth mat.Vector) (float64, error) {
	if truth == nil || truth.Len() != est.state.Len() {
		return 0, fmt.Errorf("%w: %struth(%d) expected(%d)", ErrDimensionMismatch, dimErrMsg, vecLen(truth), est.state.Len())
	}
	var e, Pie mat.VecDense
	e.SubVec(truth, est.state)

	var chol mat.Cholesky
	if ok := chol.Factorize(est.covar); !ok {
		return 0, fmt.Errorf("%w: covariance is not positive definite", ErrNumericalInstability)
	}
	if err := chol.SolveVecTo(&Pie, &e); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNumericalInstability, err)
	}
	return mat.Dot(&e, &Pie), nil
}
