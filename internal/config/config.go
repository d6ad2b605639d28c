// Package config loads the lkf command configuration from defaults, an
// optional file, LKF_* environment variables and command line flags, in
// increasing order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/ChristopherRabotin/lkf/internal/logging"
	"github.com/ChristopherRabotin/lkf/track"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables, e.g. LKF_PROCESS_NOISE or
// LKF_LOG_LEVEL.
const EnvPrefix = "LKF"

// Config is the full command configuration.
type Config struct {
	Track track.Config   `mapstructure:",squash"`
	Log   logging.Config `mapstructure:"log"`
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"dims":              "dims",
	"dt":                "dt",
	"process-noise":     "process_noise",
	"measurement-noise": "measurement_noise",
	"initial-variance":  "initial_variance",
	"noise-model":       "noise_model",
	"log-level":         "log.level",
	"log-file":          "log.file",
}

// RegisterFlags adds the filter flags to fs, with their defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := track.DefaultConfig
	fs.Int("dims", d.Dims, "number of spatial dimensions")
	fs.Float64("dt", d.Dt, "sampling interval in seconds")
	fs.Float64("process-noise", d.ProcessNoise, "process noise intensity q")
	fs.Float64("measurement-noise", d.MeasurementNoise, "measurement noise variance r")
	fs.Float64("initial-variance", d.InitialVariance, "initial state variance")
	fs.String("noise-model", d.NoiseModel, "process noise model: scaled or wna")
}

// Load reads the configuration file at path, if not empty, then the
// environment, then the flags of fs which were explicitly set.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}
	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Track.Validate(); err != nil {
		return Config{}, err
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	t := track.DefaultConfig
	v.SetDefault("dims", t.Dims)
	v.SetDefault("dt", t.Dt)
	v.SetDefault("process_noise", t.ProcessNoise)
	v.SetDefault("measurement_noise", t.MeasurementNoise)
	v.SetDefault("initial_variance", t.InitialVariance)
	v.SetDefault("noise_model", t.NoiseModel)

	l := logging.DefaultConfig
	v.SetDefault("log.level", l.Level)
	v.SetDefault("log.file", l.Filename)
	v.SetDefault("log.max_size", l.MaxSize)
	v.SetDefault("log.max_backups", l.MaxBackups)
	v.SetDefault("log.max_age", l.MaxAge)
	v.SetDefault("log.compress", l.Compress)
	v.SetDefault("log.json", l.JSON)
}
