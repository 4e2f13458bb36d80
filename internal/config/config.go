// Package config loads arcane settings from a YAML file and ARCANE_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/eval"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/solver"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// #region types
// Config is the top-level configuration. Load order is defaults, then file,
// then environment.
type Config struct {
	DB      string       `yaml:"db" validate:"required"`
	Addr    string       `yaml:"addr" validate:"required,hostname_port"`
	Metrics string       `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
	Log     LogConfig    `yaml:"log"`
	Solver  SolverConfig `yaml:"solver"`
	Eval    EvalSettings `yaml:"eval"`
}

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
}

// SolverConfig mirrors solver.Config.
type SolverConfig struct {
	Epsilon   float64 `yaml:"epsilon" validate:"gt=0,lt=1"`
	MaxPasses int     `yaml:"max_passes" validate:"min=1,max=10000"`
}

// EvalSettings mirrors eval.EvalConfig.
type EvalSettings struct {
	RelTolerance float64 `yaml:"rel_tolerance" validate:"gt=0"`
	AbsTolerance float64 `yaml:"abs_tolerance" validate:"gte=0"`
}

// #endregion types

// #region defaults
// Default returns the built-in configuration.
func Default() Config {
	sc := solver.DefaultConfig()
	ec := eval.DefaultEvalConfig()
	return Config{
		DB:      "arcane.db",
		Addr:    "localhost:50061",
		Metrics: "localhost:9461",
		Log:     LogConfig{Level: "info"},
		Solver:  SolverConfig{Epsilon: sc.Epsilon, MaxPasses: sc.MaxPasses},
		Eval:    EvalSettings{RelTolerance: ec.RelTolerance, AbsTolerance: ec.AbsTolerance},
	}
}

// EngineConfig converts to the solver engine configuration.
func (c Config) EngineConfig() solver.Config {
	return solver.Config{Epsilon: c.Solver.Epsilon, MaxPasses: c.Solver.MaxPasses}
}

// HarnessConfig converts to the eval harness configuration.
func (c Config) HarnessConfig() eval.EvalConfig {
	return eval.EvalConfig{RelTolerance: c.Eval.RelTolerance, AbsTolerance: c.Eval.AbsTolerance}
}

// #endregion defaults

// #region load
// Load reads path (skipped when empty) over the defaults, applies environment
// overrides and validates the result. A path that does not exist is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.DB = envOr("ARCANE_DB", cfg.DB)
	cfg.Addr = envOr("ARCANE_ADDR", cfg.Addr)
	cfg.Metrics = envOr("ARCANE_METRICS_ADDR", cfg.Metrics)
	cfg.Log.Level = strings.ToLower(envOr("ARCANE_LOG_LEVEL", cfg.Log.Level))
	if v := os.Getenv("ARCANE_LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ARCANE_LOG_JSON: %w", err)
		}
		cfg.Log.JSON = b
	}
	if v := os.Getenv("ARCANE_MAX_PASSES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ARCANE_MAX_PASSES: %w", err)
		}
		cfg.Solver.MaxPasses = n
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion load

// #region validate
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg against its field constraints. The error names every
// failing field by its YAML path.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", yamlPath(fe.StructNamespace()), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

var yamlNames = map[string]string{
	"DB":           "db",
	"Addr":         "addr",
	"Metrics":      "metrics_addr",
	"Log":          "log",
	"Level":        "level",
	"Solver":       "solver",
	"Epsilon":      "epsilon",
	"MaxPasses":    "max_passes",
	"Eval":         "eval",
	"RelTolerance": "rel_tolerance",
	"AbsTolerance": "abs_tolerance",
}

func yamlPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if n, ok := yamlNames[p]; ok {
			parts[i] = n
		}
	}
	return strings.Join(parts, ".")
}

// #endregion validate
