package lkf

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MonteCarloRun stores the results of a single Monte Carlo run.
type MonteCarloRun struct {
	Truth     *GroundTruth
	Estimates []*Estimate
}

// MonteCarloRuns stores MC runs.
type MonteCarloRuns struct {
	runs, steps int
	Runs        []MonteCarloRun
}

// NewMonteCarloRuns simulates samples independent trajectories of the given
// number of steps from x0 with the model of kf and the provided noise, and
// filters each of them. The filter is reset before every run and is left in
// the state of the last run.
func NewMonteCarloRuns(kf *KF, noise Noise, x0 mat.Vector, samples, steps int) (*MonteCarloRuns, error) {
	if samples < 1 || steps < 1 {
		return nil, fmt.Errorf("lkf: Monte Carlo requires at least one sample and one step, got %d and %d", samples, steps)
	}
	F, H := kf.StateTransition(), kf.MeasurementMatrix()
	if F == nil || H == nil {
		return nil, fmt.Errorf("%w: Monte Carlo requires %s", ErrNotConfigured, kf.missing("F", "H"))
	}

	runs := make([]MonteCarloRun, samples)
	for sample := range runs {
		truth, err := Simulate(F, H, x0, noise, steps)
		if err != nil {
			return nil, err
		}
		kf.Reset()
		run := MonteCarloRun{Truth: truth, Estimates: make([]*Estimate, steps)}
		for k, z := range truth.Measurements {
			est, err := kf.Step(z)
			if err != nil {
				return nil, fmt.Errorf("run %d: step %d: %w", sample, k, err)
			}
			run.Estimates[k] = est
		}
		runs[sample] = run
	}
	return &MonteCarloRuns{runs: samples, steps: steps, Runs: runs}, nil
}

// Len returns the number of runs and steps per run.
func (mc *MonteCarloRuns) Len() (runs, steps int) {
	return mc.runs, mc.steps
}

// Mean returns, per state component, the mean estimation error over all runs
// at the given step.
func (mc *MonteCarloRuns) Mean(step int) []float64 {
	errs := mc.stateErrors(step)
	means := make([]float64, len(errs))
	for i, samples := range errs {
		means[i] = stat.Mean(samples, nil)
	}
	return means
}

// StdDev returns, per state component, the standard deviation of the
// estimation error over all runs at the given step.
func (mc *MonteCarloRuns) StdDev(step int) []float64 {
	errs := mc.stateErrors(step)
	devs := make([]float64, len(errs))
	for i, samples := range errs {
		devs[i] = stat.StdDev(samples, nil)
	}
	return devs
}

// stateErrors gathers the estimation errors at step, one slice per component.
func (mc *MonteCarloRuns) stateErrors(step int) [][]float64 {
	if step < 0 || step >= mc.steps {
		panic(fmt.Sprintf("lkf: step %d out of range [0, %d)", step, mc.steps))
	}
	rows := mc.Runs[0].Truth.States[step].Len()
	errs := make([][]float64, rows)
	for i := range errs {
		errs[i] = make([]float64, mc.runs)
	}
	for r, run := range mc.Runs {
		est := run.Estimates[step].State()
		truth := run.Truth.States[step]
		for i := 0; i < rows; i++ {
			errs[i][r] = est.AtVec(i) - truth.AtVec(i)
		}
	}
	return errs
}
