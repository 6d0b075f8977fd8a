package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/san-kum/gravsim/internal/collision"
)

const EnvPrefix = "GRAVSIM"

// Settings are the process-level options shared by every command. They
// layer as flags over GRAVSIM_* environment variables over an optional
// settings file over defaults.
type Settings struct {
	DataDir  string `mapstructure:"data"`
	LogLevel string `mapstructure:"log_level"`
	Listen   string `mapstructure:"listen"`
}

// Override keys accepted on top of a scenario's simulation block. None of
// them has a viper default, so IsSet means a user supplied the value.
const (
	KeyIntegrator    = "integrator"
	KeyEvaluator     = "evaluator"
	KeyTickRate      = "tick_rate"
	KeyTimeScale     = "time_scale"
	KeySubsteps      = "max_substeps"
	KeySoftening     = "softening"
	KeyTheta         = "theta"
	KeyCollisionMode = "collision_mode"
	KeySteps         = "steps"
	KeyWorkers       = "workers"
)

// NewViper returns a viper instance with defaults and environment binding
// applied. When file is non-empty it is read as a settings file.
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("data", "./runs")
	v.SetDefault("log_level", "info")
	v.SetDefault("listen", ":8080")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read settings %s: %w", file, err)
			}
		}
	}
	return v, nil
}

func LoadSettings(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &s, nil
}

// ApplyOverrides copies every override key explicitly set in v (by flag,
// environment or settings file) onto the scenario, then revalidates it.
func ApplyOverrides(cfg *Config, v *viper.Viper) error {
	sc := &cfg.Simulation
	if v.IsSet(KeyIntegrator) {
		sc.Integrator = v.GetString(KeyIntegrator)
	}
	if v.IsSet(KeyEvaluator) {
		sc.Evaluator = v.GetString(KeyEvaluator)
	}
	if v.IsSet(KeyTickRate) {
		sc.TickRate = v.GetFloat64(KeyTickRate)
	}
	if v.IsSet(KeyTimeScale) {
		sc.TimeScale = v.GetFloat64(KeyTimeScale)
	}
	if v.IsSet(KeySubsteps) {
		sc.MaxSubsteps = v.GetInt(KeySubsteps)
	}
	if v.IsSet(KeySoftening) {
		sc.Softening = v.GetFloat64(KeySoftening)
	}
	if v.IsSet(KeyTheta) {
		sc.Theta = v.GetFloat64(KeyTheta)
	}
	if v.IsSet(KeyCollisionMode) {
		sc.CollisionMode = collision.Mode(v.GetString(KeyCollisionMode))
	}
	if v.IsSet(KeyWorkers) {
		sc.Workers = v.GetInt(KeyWorkers)
	}
	if v.IsSet(KeySteps) {
		cfg.Steps = v.GetInt(KeySteps)
	}
	return cfg.Validate()
}
