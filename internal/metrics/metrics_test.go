package metrics

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/solver"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) (*SolverMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewSolverMetrics(reg), reg
}

func TestObserve_CompleteSolve(t *testing.T) {
	m, _ := newTestMetrics(t)
	in := state.FromMap(map[state.Field]float64{
		state.Gravity: 9.8,
		state.D:       50,
		state.Theta:   45,
		state.Time:    10,
	})

	m.Observe(in, solver.Solve(in))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SolvesTotal.WithLabelValues(OutcomeComplete)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SolvesTotal.WithLabelValues(OutcomePartial)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeductionsTotal.WithLabelValues("speed_from_horizontal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeductionsTotal.WithLabelValues("final_speed")))
	assert.Equal(t, 4, testutil.CollectAndCount(m.DeductionsTotal))
}

func TestObserve_PartialAndDemoted(t *testing.T) {
	m, _ := newTestMetrics(t)
	vals := []float64{math.NaN(), 0, 0, 20, 0, 0, 45, 0}
	known := []bool{true, false, false, true, false, false, true, false}
	in := state.New(vals, known)

	m.Observe(in, solver.Solve(in))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SolvesTotal.WithLabelValues(OutcomePartial)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DemotedInputs.WithLabelValues("gravity")))
	assert.Equal(t, 0, testutil.CollectAndCount(m.DeductionsTotal))
}

func TestObserve_Capped(t *testing.T) {
	m, _ := newTestMetrics(t)
	in := state.FromMap(map[state.Field]float64{
		state.Gravity: 9.8,
		state.D:       50,
		state.Theta:   45,
		state.Time:    10,
	})
	engine := solver.NewEngine(solver.Config{Epsilon: 1e-6, MaxPasses: 1})

	m.Observe(in, engine.Solve(in))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SolvesTotal.WithLabelValues(OutcomeCapped)))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m, reg := newTestMetrics(t)
	in := state.FromMap(map[state.Field]float64{state.Theta: 45, state.Vi: 20})
	m.Observe(in, solver.Solve(in))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `arcane_solves_total{outcome="partial"} 1`), body)
	assert.Contains(t, body, "arcane_solve_passes_count 1")
}

func TestNewRegistry_HasRuntimeCollectors(t *testing.T) {
	reg := NewRegistry()
	NewSolverMetrics(reg)

	families, err := reg.Gather()
	require.NoError(t, err)

	var sawGo bool
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), "go_") {
			sawGo = true
		}
	}
	assert.True(t, sawGo, "expected go runtime metrics")
}

func TestNewSolverMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewSolverMetrics(reg)
	assert.Panics(t, func() { NewSolverMetrics(reg) })
}
