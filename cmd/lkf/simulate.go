package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ChristopherRabotin/lkf"
	"github.com/ChristopherRabotin/lkf/track"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

func newSimulateCmd(a *app) *cobra.Command {
	var output string
	var steps int
	var seed uint64
	var x0 []float64
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate noisy measurements of a constant velocity trajectory",
		Long: `Simulates a constant velocity trajectory with the configured process and
measurement noise. Each CSV record holds the measurement followed by the true
position and velocity.

Examples:

  lkf simulate --steps 50 --x0 1,2,3,0,0,0 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tc := a.cfg.Track
			truth, err := simulate(tc, x0, steps, seed)
			if err != nil {
				return err
			}
			out, err := createOutput(cmd, output)
			if err != nil {
				return err
			}
			if err := writeTruth(out, tc.Dims, truth); err != nil {
				out.Close()
				return err
			}
			a.logger.Info("simulation written", "steps", steps, "seed", seed)
			return out.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output CSV file, stdout when -")
	cmd.Flags().IntVarP(&steps, "steps", "n", 100, "number of measurements")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "noise generator seed")
	cmd.Flags().Float64SliceVar(&x0, "x0", nil, "initial state, positions then velocities (default zero)")
	return cmd
}

// writeTruth writes one CSV record per step: the measurement followed by the
// true state.
func writeTruth(out io.Writer, dims int, truth *lkf.GroundTruth) error {
	w := csv.NewWriter(out)
	hdr := make([]string, 0, 3*dims)
	for _, prefix := range []string{"", "true_", "true_v"} {
		for i := 0; i < dims; i++ {
			hdr = append(hdr, prefix+track.Axis(i))
		}
	}
	if err := w.Write(hdr); err != nil {
		return err
	}
	for k := range truth.States {
		rec := make([]string, 0, len(hdr))
		for _, vec := range []*mat.VecDense{truth.Measurements[k], truth.States[k]} {
			for i := 0; i < vec.Len(); i++ {
				rec = append(rec, strconv.FormatFloat(vec.AtVec(i), 'f', 6, 64))
			}
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// simulate draws a trajectory of the configured model starting at x0.
func simulate(tc track.Config, x0 []float64, steps int, seed uint64) (*lkf.GroundTruth, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	n := 2 * tc.Dims
	if x0 == nil {
		x0 = make([]float64, n)
	}
	if len(x0) != n {
		return nil, fmt.Errorf("%w: x0 has %d values, expected %d", lkf.ErrDimensionMismatch, len(x0), n)
	}
	noise, err := newNoise(tc, seed)
	if err != nil {
		return nil, err
	}
	F, H := lkf.ConstantVelocity(tc.Dims, tc.Dt)
	return lkf.Simulate(F, H, mat.NewVecDense(n, append([]float64(nil), x0...)), noise, steps)
}

func newNoise(tc track.Config, seed uint64) (*lkf.AWGN, error) {
	Q, err := tc.ProcessNoiseMatrix()
	if err != nil {
		return nil, err
	}
	return lkf.NewAWGN(Q, lkf.ScaledIdentity(tc.Dims, tc.MeasurementNoise), seed)
}
