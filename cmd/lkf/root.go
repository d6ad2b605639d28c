package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/ChristopherRabotin/lkf/internal/config"
	"github.com/ChristopherRabotin/lkf/internal/logging"
	"github.com/spf13/cobra"
)

// app holds what the subcommands share once the flags are parsed.
type app struct {
	cfgFile string
	cfg     config.Config
	logger  *slog.Logger
	closer  io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "lkf",
		Short: "Linear Kalman filter for noisy position measurements",
		Long: `lkf smooths noisy 1D, 2D or 3D position measurements with a constant
velocity Kalman filter.

Configuration is read from the --config file, then LKF_* environment
variables (e.g. LKF_PROCESS_NOISE, LKF_LOG_LEVEL), then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			logger, closer, err := logging.New(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.cfg, a.logger, a.closer = cfg, logger, closer
			a.logger.Debug("configuration loaded", "file", a.cfgFile, "dims", cfg.Track.Dims, "dt", cfg.Track.Dt,
				"q", cfg.Track.ProcessNoise, "r", cfg.Track.MeasurementNoise, "model", cfg.Track.NoiseModel)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closer != nil {
				return a.closer.Close()
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "configuration file (yaml, toml or json)")
	pf.String("log-level", logging.DefaultConfig.Level, "log level: debug, info, warn or error")
	pf.String("log-file", "", "rotated log file, stderr when empty")
	config.RegisterFlags(pf)

	cmd.AddCommand(newFilterCmd(a), newSimulateCmd(a), newConsistencyCmd(a))
	return cmd
}

// openInput returns stdin for "-" or an empty name.
func openInput(cmd *cobra.Command, name string) (io.ReadCloser, error) {
	if name == "" || name == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(name)
}

// createOutput returns stdout for "-" or an empty name.
func createOutput(cmd *cobra.Command, name string) (io.WriteCloser, error) {
	if name == "" || name == "-" {
		return nopWriteCloser{cmd.OutOrStdout()}, nil
	}
	return os.Create(name)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
