package replay

import (
	"context"
	"fmt"
	"math"

	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/eval"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/solver"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/state"
	"golang.org/x/sync/errgroup"
)

// #region types
// Scenario is one solve with the values it must produce. Inputs and Expected
// are in external units (theta in degrees).
type Scenario struct {
	Name              string
	Inputs            map[state.Field]float64
	Expected          map[state.Field]float64
	Unknown           []state.Field
	Tolerance         float64 // relative; 0 means DefaultTolerance
	AllowInconsistent bool
}

// DefaultTolerance is the relative tolerance for expected values.
const DefaultTolerance = 1e-4

// ReplayResult captures the outcome of one scenario.
type ReplayResult struct {
	Name       string
	Passed     bool
	Mismatches []string
	Result     solver.Result
	Eval       eval.EvalResult
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	Total    int
	Passed   int
	Failed   int
	Complete int
	Partial  int
}

// #endregion types

// #region replay
// Replay runs every scenario through construction, the solver and the
// consistency check, in order.
func Replay(engine *solver.Engine, harness *eval.EvalHarness, scenarios []Scenario) []ReplayResult {
	results := make([]ReplayResult, 0, len(scenarios))
	for _, sc := range scenarios {
		results = append(results, runScenario(engine, harness, sc))
	}
	return results
}

// ReplayParallel runs scenarios concurrently, at most limit at a time (limit
// <= 0 means unbounded). Results keep the scenario order.
func ReplayParallel(ctx context.Context, engine *solver.Engine, harness *eval.EvalHarness, scenarios []Scenario, limit int) ([]ReplayResult, error) {
	results := make([]ReplayResult, len(scenarios))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = runScenario(engine, harness, sc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	return results, nil
}

func runScenario(engine *solver.Engine, harness *eval.EvalHarness, sc Scenario) ReplayResult {
	res := engine.Solve(state.FromMap(sc.Inputs))
	ev := harness.Run(res.Quantities)

	tol := sc.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}

	var mismatches []string
	out := res.Quantities.External()
	for _, f := range state.Fields() {
		want, ok := sc.Expected[f]
		if !ok {
			continue
		}
		got, known := out[f]
		if !known {
			mismatches = append(mismatches, fmt.Sprintf("%s: expected %g, still unknown", f, want))
			continue
		}
		if math.Abs(got-want) > tol*math.Max(1, math.Abs(want)) {
			mismatches = append(mismatches, fmt.Sprintf("%s: expected %g, got %g", f, want, got))
		}
	}
	for _, f := range sc.Unknown {
		if got, known := out[f]; known {
			mismatches = append(mismatches, fmt.Sprintf("%s: expected unknown, got %g", f, got))
		}
	}
	if !ev.Passed && !sc.AllowInconsistent {
		mismatches = append(mismatches, ev.Reason)
	}

	return ReplayResult{
		Name:       sc.Name,
		Passed:     len(mismatches) == 0,
		Mismatches: mismatches,
		Result:     res,
		Eval:       ev,
	}
}

// #endregion replay

// #region summarize
// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{Total: len(results)}
	for _, r := range results {
		if r.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
		if r.Result.Complete() {
			s.Complete++
		} else {
			s.Partial++
		}
	}
	return s
}

// #endregion summarize
