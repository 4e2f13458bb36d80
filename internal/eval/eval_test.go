package eval

import (
	"strings"
	"testing"

	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/solver"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/state"
)

func solvedScenario() state.Quantities {
	return solver.Solve(state.FromMap(map[state.Field]float64{
		state.Gravity: 9.8,
		state.D:       50,
		state.Theta:   45,
		state.Time:    10,
	})).Quantities
}

func TestEvalPassesOnSolvedState(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())

	result := h.Run(solvedScenario())

	if !result.Passed {
		t.Fatalf("expected pass on solved state, got fail: %s", result.Reason)
	}
	if len(result.Metrics) != 3 {
		t.Fatalf("expected 3 metrics, got %d", len(result.Metrics))
	}
	if len(result.Skipped) != 0 {
		t.Fatalf("expected nothing skipped, got %v", result.Skipped)
	}
}

func TestEvalFailsOnInconsistentDistance(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	ext := solvedScenario().External()
	ext[state.D] = 55
	result := h.Run(state.FromMap(ext))

	if result.Passed {
		t.Fatal("expected fail on inconsistent horizontal motion")
	}
	if !strings.Contains(result.Reason, "horizontal") {
		t.Fatalf("expected horizontal in reason, got %q", result.Reason)
	}
}

func TestEvalFailsOnMultipleRelations(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	ext := solvedScenario().External()
	ext[state.Vi] = 9

	result := h.Run(state.FromMap(ext))

	if result.Passed {
		t.Fatal("expected fail")
	}
	if !strings.Contains(result.Reason, "3 checks") {
		t.Fatalf("expected all three relations to fail, got %q", result.Reason)
	}
}

func TestEvalSkipsPartialRelations(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	q := state.FromMap(map[state.Field]float64{state.Theta: 45, state.Vi: 20})

	result := h.Run(q)

	if !result.Passed {
		t.Fatalf("nothing to check should pass, got %s", result.Reason)
	}
	if len(result.Skipped) != 3 {
		t.Fatalf("expected 3 skipped relations, got %v", result.Skipped)
	}
	if result.Reason != "no relation fully known" {
		t.Fatalf("unexpected reason %q", result.Reason)
	}
}

func TestEvalToleranceIsConfigurable(t *testing.T) {
	ext := solvedScenario().External()
	ext[state.D] = 50.01

	strict := NewEvalHarness(DefaultEvalConfig()).Run(state.FromMap(ext))
	if strict.Passed {
		t.Fatal("expected default tolerance to reject a 2e-4 relative error")
	}

	loose := NewEvalHarness(EvalConfig{RelTolerance: 1e-3, AbsTolerance: 1e-6}).Run(state.FromMap(ext))
	if !loose.Passed {
		t.Fatalf("expected loose tolerance to pass, got %s", loose.Reason)
	}
}
