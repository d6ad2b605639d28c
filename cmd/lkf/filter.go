package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ChristopherRabotin/lkf/track"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newFilterCmd(a *app) *cobra.Command {
	var input, output, format string
	var quiet bool
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Filter position measurements",
		Long: `Reads one position per line, either as CSV (x,y,z with an optional header)
or as JSON lines ({"x":..,"y":..,"z":..}), and writes the raw and filtered
positions and the filtered velocities as CSV.

Examples:

  lkf simulate --steps 200 | lkf filter > filtered.csv
  lkf filter --input track.jsonl --format json --dt 1 --measurement-noise 25`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(cmd, input)
			if err != nil {
				return err
			}
			defer in.Close()
			points, err := readPoints(in, input, format, a.cfg.Track.Dims)
			if err != nil {
				return err
			}

			s, err := track.NewSession(a.cfg.Track, track.WithLogger(a.logger))
			if err != nil {
				return err
			}
			for i, p := range points {
				if _, err := s.Add(p); err != nil {
					a.logger.Warn("skipping measurement", "line", i, "error", err)
				}
			}

			out, err := createOutput(cmd, output)
			if err != nil {
				return err
			}
			cw := &countingWriter{w: out}
			if err := track.WriteCSV(cw, a.cfg.Track.Dims, s.History()); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
			if !quiet {
				printSummary(cmd.ErrOrStderr(), s, cw.n)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "measurements file, stdin when -")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output CSV file, stdout when -")
	cmd.Flags().StringVar(&format, "format", "auto", "input format: auto, csv or json")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the summary")
	return cmd
}

// countingWriter counts the bytes written through it.
type countingWriter struct {
	w io.Writer
	n uint64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += uint64(n)
	return n, err
}

func readPoints(r io.Reader, name, format string, dims int) ([]track.Point, error) {
	if format == "auto" {
		switch strings.ToLower(filepath.Ext(name)) {
		case ".json", ".jsonl", ".ndjson":
			format = "json"
		default:
			format = "csv"
		}
	}
	switch format {
	case "csv":
		return track.ReadCSV(r, dims)
	case "json":
		return track.ReadJSONLines(r, dims)
	}
	return nil, fmt.Errorf("unknown input format %q", format)
}

func printSummary(w io.Writer, s *track.Session, written uint64) {
	st := s.Stats()
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"METRIC", "VALUE"})
	tw.AppendRow(table.Row{"samples", humanize.Comma(st.Samples)})
	tw.AppendRow(table.Row{"rejected", humanize.Comma(st.Rejected)})
	tw.AppendRow(table.Row{"mean NIS", fmt.Sprintf("%.3f (expected %d)", st.MeanNIS, s.Config().Dims)})
	tw.AppendRow(table.Row{"max NIS", fmt.Sprintf("%.3f", st.MaxNIS)})
	tw.AppendRow(table.Row{"regularizations", humanize.Comma(int64(st.Regularizations))})
	tw.AppendRow(table.Row{"mean step", st.MeanStep.String()})
	tw.AppendRow(table.Row{"output", humanize.Bytes(written)})
	if last, ok := s.Last(); ok {
		tw.AppendSeparator()
		for i, v := range last.Position {
			tw.AppendRow(table.Row{"last " + track.Axis(i), fmt.Sprintf("%.4f", v)})
		}
	}
	tw.Render()
}
