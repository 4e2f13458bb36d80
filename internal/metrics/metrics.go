// Package metrics exposes Prometheus counters for solver activity.
package metrics

import (
	"net/http"

	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/solver"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "arcane"

// Outcome labels for SolvesTotal.
const (
	OutcomeComplete = "complete"
	OutcomePartial  = "partial"
	OutcomeCapped   = "capped"
)

// #region solver-metrics
// SolverMetrics holds the solver collectors registered on one registry.
type SolverMetrics struct {
	SolvesTotal     *prometheus.CounterVec
	DeductionsTotal *prometheus.CounterVec
	SolvePasses     prometheus.Histogram
	DemotedInputs   *prometheus.CounterVec
}

// NewSolverMetrics registers the solver collectors on reg.
func NewSolverMetrics(reg prometheus.Registerer) *SolverMetrics {
	factory := promauto.With(reg)
	return &SolverMetrics{
		SolvesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "solves_total",
				Help:      "Solves by outcome (complete, partial, capped)",
			},
			[]string{"outcome"},
		),
		DeductionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deductions_total",
				Help:      "Rule firings by rule name",
			},
			[]string{"rule"},
		),
		SolvePasses: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "solve_passes",
				Help:      "Deduction passes per solve",
				Buckets:   []float64{1, 2, 3, 4, 5, 8, 13, 25, 50, 100},
			},
		),
		DemotedInputs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "demoted_inputs_total",
				Help:      "Inputs marked known but dropped as non-finite, by field",
			},
			[]string{"field"},
		),
	}
}

// Observe records one solve. in is the validated input set.
func (m *SolverMetrics) Observe(in state.Quantities, res solver.Result) {
	outcome := OutcomePartial
	switch {
	case !res.Converged:
		outcome = OutcomeCapped
	case res.Complete():
		outcome = OutcomeComplete
	}
	m.SolvesTotal.WithLabelValues(outcome).Inc()
	m.SolvePasses.Observe(float64(res.Passes))
	for _, d := range res.Deductions {
		m.DeductionsTotal.WithLabelValues(d.Name).Inc()
	}
	for _, f := range in.Demoted() {
		m.DemotedInputs.WithLabelValues(f.String()).Inc()
	}
}

// #endregion solver-metrics

// #region registry
// NewRegistry returns a registry carrying the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics gathered from g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// #endregion registry
