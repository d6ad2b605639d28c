package main

import (
	"fmt"
	"io"

	"github.com/ChristopherRabotin/lkf"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func newConsistencyCmd(a *app) *cobra.Command {
	var runs, steps, rows int
	var seed uint64
	cmd := &cobra.Command{
		Use:   "consistency",
		Short: "Run Monte Carlo NEES and NIS tests on the configured filter",
		Long: `Filters independent simulated trajectories and reports, per step, the mean
normalized estimation error squared (NEES) and normalized innovation squared
(NIS). A consistent filter averages close to the state and measurement
dimensions respectively.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tc := a.cfg.Track
			kf, err := tc.BuildFilter(a.logger)
			if err != nil {
				return err
			}
			noise, err := newNoise(tc, seed)
			if err != nil {
				return err
			}
			n, m := kf.Dims()
			mc, err := lkf.NewMonteCarloRuns(kf, noise, mat.NewVecDense(n, nil), runs, steps)
			if err != nil {
				return err
			}
			NEESmeans, NISmeans, err := lkf.NewChiSquare(mc, true, true)
			if err != nil {
				return err
			}
			a.logger.Info("consistency done", "runs", runs, "steps", steps)
			printConsistency(cmd.OutOrStdout(), NEESmeans, NISmeans, n, m, runs, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&runs, "runs", 50, "number of Monte Carlo runs")
	cmd.Flags().IntVarP(&steps, "steps", "n", 100, "steps per run")
	cmd.Flags().IntVar(&rows, "rows", 10, "number of steps shown in the table")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "noise generator seed")
	return cmd
}

func printConsistency(w io.Writer, NEESmeans, NISmeans []float64, n, m, runs, rows int) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle(fmt.Sprintf("%s Monte Carlo runs", humanize.Comma(int64(runs))))
	tw.AppendHeader(table.Row{"STEP", "NEES", "NIS"})
	stride := 1
	if rows > 0 && len(NEESmeans) > rows {
		stride = len(NEESmeans) / rows
	}
	for k := 0; k < len(NEESmeans); k += stride {
		tw.AppendRow(table.Row{k, fmt.Sprintf("%.3f", NEESmeans[k]), fmt.Sprintf("%.3f", NISmeans[k])})
	}
	tw.AppendFooter(table.Row{
		"MEAN",
		fmt.Sprintf("%.3f (n=%d)", stat.Mean(NEESmeans, nil), n),
		fmt.Sprintf("%.3f (m=%d)", stat.Mean(NISmeans, nil), m),
	})
	tw.Render()
}
