package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ChristopherRabotin/lkf/track"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet(t *testing.T) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	fs.String("log-level", "", "")
	fs.String("log-file", "", "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, track.DefaultConfig, cfg.Track)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Log.MaxSize)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lkf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dims: 2
dt: 0.5
process_noise: 0.2
noise_model: wna
log:
  level: debug
  file: /tmp/lkf.log
`), 0o644))

	t.Setenv("LKF_PROCESS_NOISE", "0.3")
	t.Setenv("LKF_LOG_LEVEL", "error")

	fs := newFlagSet(t)
	require.NoError(t, fs.Parse([]string{"--dt", "0.25"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Track.Dims)           // file
	assert.Equal(t, 0.25, cfg.Track.Dt)          // flag over file
	assert.Equal(t, 0.3, cfg.Track.ProcessNoise) // env over file
	assert.Equal(t, track.NoiseWNA, cfg.Track.NoiseModel)
	assert.Equal(t, 1.0, cfg.Track.MeasurementNoise) // default
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "/tmp/lkf.log", cfg.Log.Filename)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)

	fs := newFlagSet(t)
	require.NoError(t, fs.Parse([]string{"--noise-model", "pink"}))
	_, err = Load("", fs)
	require.Error(t, err)

	fs = newFlagSet(t)
	require.NoError(t, fs.Parse([]string{"--log-level", "loud"}))
	_, err = Load("", fs)
	require.Error(t, err)
}
