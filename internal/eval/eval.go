package eval

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/state"
)

// #region eval-harness
// EvalHarness checks a quantity set against the projectile relations.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

type relation struct {
	name     string
	requires []state.Field
	// residual returns lhs-rhs and a magnitude for the relative tolerance.
	residual func(q state.Quantities) (float64, float64)
}

var relations = []relation{
	{
		name:     "horizontal",
		requires: []state.Field{state.D, state.Vi, state.Theta, state.Time},
		residual: func(q state.Quantities) (float64, float64) {
			d, vi, th, t := get(q, state.D), get(q, state.Vi), get(q, state.Theta), get(q, state.Time)
			rhs := vi * math.Cos(th) * t
			return d - rhs, math.Max(math.Abs(d), math.Abs(rhs))
		},
	},
	{
		name:     "vertical",
		requires: []state.Field{state.Yi, state.Yf, state.Vi, state.Theta, state.Time, state.Gravity},
		residual: func(q state.Quantities) (float64, float64) {
			yi, yf, vi, th, t, g := get(q, state.Yi), get(q, state.Yf), get(q, state.Vi), get(q, state.Theta), get(q, state.Time), get(q, state.Gravity)
			rise := vi * math.Sin(th) * t
			fall := 0.5 * g * t * t
			return yf - (yi + rise - fall), math.Max(math.Abs(yf), math.Max(math.Abs(rise), math.Abs(fall)))
		},
	},
	{
		name:     "final_speed",
		requires: []state.Field{state.Vf, state.Vi, state.Theta, state.Time, state.Gravity},
		residual: func(q state.Quantities) (float64, float64) {
			vf, vi, th, t, g := get(q, state.Vf), get(q, state.Vi), get(q, state.Theta), get(q, state.Time), get(q, state.Gravity)
			vx := vi * math.Cos(th)
			vy := vi*math.Sin(th) - g*t
			speed := math.Sqrt(vx*vx + vy*vy)
			return vf - speed, math.Max(math.Abs(vf), speed)
		},
	},
}

// Run evaluates every relation whose quantities are all known.
func (h *EvalHarness) Run(q state.Quantities) EvalResult {
	var metrics []EvalMetric
	var skipped []string
	var failReasons []string

	for _, rel := range relations {
		if !q.KnownAll(rel.requires...) {
			skipped = append(skipped, rel.name)
			continue
		}
		res, scale := rel.residual(q)
		pass := h.within(res, scale)
		metrics = append(metrics, EvalMetric{
			Name:  rel.name + "_residual",
			Value: res,
			Pass:  pass,
		})
		if !pass {
			failReasons = append(failReasons, fmt.Sprintf("%s residual %.6g exceeds tolerance", rel.name, res))
		}
	}

	reason := "all checks passed"
	switch {
	case len(failReasons) == 1:
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
	case len(failReasons) > 1:
		reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
	case len(metrics) == 0:
		reason = "no relation fully known"
	}

	return EvalResult{
		Passed:  len(failReasons) == 0,
		Metrics: metrics,
		Skipped: skipped,
		Reason:  reason,
	}
}

// #endregion eval-harness

// #region helpers
func (h *EvalHarness) within(residual, scale float64) bool {
	if math.IsNaN(residual) {
		return false
	}
	r := math.Abs(residual)
	return r <= h.config.AbsTolerance || r <= h.config.RelTolerance*scale
}

func get(q state.Quantities, f state.Field) float64 {
	v, _ := q.Get(f)
	return v
}

// #endregion helpers
