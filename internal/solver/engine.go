// Package solver deduces unknown projectile quantities by running an ordered
// rule table to a fixed point.
package solver

import (
	"math"

	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/state"
	"go.uber.org/zap"
)

// #region engine
// Engine runs the deduction loop. It holds only immutable configuration and is
// safe for concurrent use.
type Engine struct {
	config Config
	rules  []Rule
	logger *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger logs each deduction at debug level.
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine. Non-positive config values fall back to the
// defaults.
func NewEngine(config Config, opts ...EngineOption) *Engine {
	def := DefaultConfig()
	if config.Epsilon <= 0 {
		config.Epsilon = def.Epsilon
	}
	if config.MaxPasses <= 0 {
		config.MaxPasses = def.MaxPasses
	}
	e := &Engine{
		config: config,
		rules:  Rules(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config {
	return e.config
}

var defaultEngine = NewEngine(DefaultConfig())

// Solve runs q through an engine with the default configuration.
func Solve(q state.Quantities) Result {
	return defaultEngine.Solve(q)
}

// #endregion engine

// #region solve
// Solve deduces as many unknown quantities as the known set allows. Each pass
// walks the rule table top to bottom and folds every successful rule into the
// working set immediately, so later rules in the same pass see the value.
// Passes repeat while at least one rule fired, up to MaxPasses.
//
// Known fields are never changed or removed, and re-solving a result deduces
// nothing further.
func (e *Engine) Solve(q state.Quantities) Result {
	res := Result{Quantities: q, Converged: true}

	for pass := 1; pass <= e.config.MaxPasses; pass++ {
		res.Passes = pass
		fired := false

		for _, r := range e.rules {
			if !r.Ready(res.Quantities) {
				continue
			}
			v, ok := r.Apply(res.Quantities, e.config.Epsilon)
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			res.Quantities = res.Quantities.With(r.Target, v)
			res.Deductions = append(res.Deductions, Deduction{
				Pass:  pass,
				Rule:  r.ID,
				Name:  r.Name,
				Field: r.Target,
				Value: v,
			})
			e.logger.Debug("deduced quantity",
				zap.Int("pass", pass),
				zap.Int("rule", r.ID),
				zap.String("field", r.Target.String()),
				zap.Float64("value", v),
			)
			fired = true
		}

		if !fired {
			return res
		}
	}

	// The cap ended a loop whose last pass was still productive.
	res.Converged = false
	e.logger.Warn("deduction pass cap reached",
		zap.Int("max_passes", e.config.MaxPasses),
		zap.Int("deductions", len(res.Deductions)),
	)
	return res
}

// #endregion solve
