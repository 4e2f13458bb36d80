package solver

import (
	"math"
	"testing"

	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-6

var sqrt50 = math.Sqrt(50)

func ruleByID(t *testing.T, id int) Rule {
	t.Helper()
	for _, r := range Rules() {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("rule %d not found", id)
	return Rule{}
}

func TestRules_OrderAndTargets(t *testing.T) {
	want := []state.Field{
		state.Time, state.D, state.Vi, state.Theta, state.Yi, state.Yf,
		state.Yi, state.Vi, state.Theta, state.Time, state.Vf,
	}
	rs := Rules()
	require.Len(t, rs, len(want))
	for i, r := range rs {
		assert.Equal(t, i+1, r.ID)
		assert.Equal(t, want[i], r.Target, "rule %d", r.ID)
		assert.NotEmpty(t, r.Name)
	}

	rs[0].ID = 99
	assert.Equal(t, 1, Rules()[0].ID, "Rules must return a copy")
}

func TestRule_Apply(t *testing.T) {
	tests := []struct {
		name string
		rule int
		in   map[state.Field]float64
		want float64
	}{
		{"time from d, vi, theta", 1, map[state.Field]float64{state.D: 50, state.Vi: sqrt50, state.Theta: 45}, 10},
		{"d from vi, theta, time", 2, map[state.Field]float64{state.Vi: sqrt50, state.Theta: 45, state.Time: 10}, 50},
		{"vi from d, theta, time", 3, map[state.Field]float64{state.D: 50, state.Theta: 45, state.Time: 10}, sqrt50},
		{"theta from d, vi, time", 4, map[state.Field]float64{state.D: 50, state.Vi: sqrt50, state.Time: 10}, math.Pi / 4},
		{"ground launch", 5, map[state.Field]float64{state.Vi: 1, state.Time: 1, state.Gravity: 9.8, state.Theta: 30}, 0},
		{"yf", 6, map[state.Field]float64{state.Yi: 0, state.Vi: sqrt50, state.Time: 10, state.Gravity: 9.8, state.Theta: 45}, -440},
		{"yi", 7, map[state.Field]float64{state.Yf: -440, state.Vi: sqrt50, state.Time: 10, state.Gravity: 9.8, state.Theta: 45}, 0},
		{"vi from vertical", 8, map[state.Field]float64{state.Yi: 0, state.Yf: -440, state.Time: 10, state.Gravity: 9.8, state.Theta: 45}, sqrt50},
		{"theta from vertical", 9, map[state.Field]float64{state.Yi: 0, state.Yf: -440, state.Vi: sqrt50, state.Time: 10, state.Gravity: 9.8}, math.Pi / 4},
		{"time from vertical", 10, map[state.Field]float64{state.Yi: 0, state.Yf: -440, state.Vi: sqrt50, state.Gravity: 9.8, state.Theta: 45}, 10},
		{"final speed", 11, map[state.Field]float64{state.Vi: sqrt50, state.Gravity: 9.8, state.Time: 10, state.Theta: 45}, math.Sqrt(25 + 93*93)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := ruleByID(t, tc.rule)
			q := state.FromMap(tc.in)
			require.True(t, r.Ready(q))

			got, ok := r.Apply(q, eps)
			require.True(t, ok)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestRule_Guards(t *testing.T) {
	tests := []struct {
		name string
		rule int
		in   map[state.Field]float64
	}{
		{"time with vertical launch", 1, map[state.Field]float64{state.D: 10, state.Vi: 20, state.Theta: 90}},
		{"vi with vertical launch", 3, map[state.Field]float64{state.D: 10, state.Theta: 90, state.Time: 2}},
		{"vi with zero time", 3, map[state.Field]float64{state.D: 10, state.Theta: 30, state.Time: 0}},
		{"theta with zero vi·t", 4, map[state.Field]float64{state.D: 10, state.Vi: 0, state.Time: 2}},
		{"theta acos out of domain", 4, map[state.Field]float64{state.D: 100, state.Vi: 5, state.Time: 1}},
		{"vi with flat launch", 8, map[state.Field]float64{state.Yi: 0, state.Yf: 0, state.Time: 2, state.Gravity: 9.8, state.Theta: 0}},
		{"vi with zero time vertical", 8, map[state.Field]float64{state.Yi: 0, state.Yf: 0, state.Time: 0, state.Gravity: 9.8, state.Theta: 30}},
		{"theta with zero vi·t vertical", 9, map[state.Field]float64{state.Yi: 0, state.Yf: 0, state.Vi: 0, state.Time: 1, state.Gravity: 9.8}},
		{"theta asin out of domain", 9, map[state.Field]float64{state.Yi: 0, state.Yf: 1000, state.Vi: 1, state.Time: 1, state.Gravity: 9.8}},
		{"time never reaches height", 10, map[state.Field]float64{state.Yi: 0, state.Yf: 100, state.Vi: 10, state.Gravity: 9.8, state.Theta: 90}},
		{"time without gravity", 10, map[state.Field]float64{state.Yi: 0, state.Yf: 0, state.Vi: 10, state.Gravity: 0, state.Theta: 45}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := ruleByID(t, tc.rule)
			q := state.FromMap(tc.in)
			require.True(t, r.Ready(q))

			_, ok := r.Apply(q, eps)
			assert.False(t, ok)
		})
	}
}

func TestRule_GroundLaunchNeedsBothHeightsUnknown(t *testing.T) {
	r := ruleByID(t, 5)
	base := map[state.Field]float64{state.Vi: 1, state.Time: 1, state.Gravity: 9.8, state.Theta: 30}

	assert.True(t, r.Ready(state.FromMap(base)))

	withYf := state.FromMap(base).With(state.Yf, 3)
	assert.False(t, r.Ready(withYf))

	withYi := state.FromMap(base).With(state.Yi, 3)
	assert.False(t, r.Ready(withYi))
}

func TestRule_NotReadyWhenTargetKnown(t *testing.T) {
	r := ruleByID(t, 2)
	q := state.FromMap(map[state.Field]float64{state.Vi: 1, state.Theta: 0, state.Time: 1, state.D: 7})
	assert.False(t, r.Ready(q))
}

func TestQuadraticTime_RootSelection(t *testing.T) {
	// Rising through yf=5 from yi=0 straight up at 20 m/s: first crossing wins.
	got, ok := quadraticTime(-4.9, 20, -5, eps)
	require.True(t, ok)
	assert.InDelta(t, (-20+math.Sqrt(302))/-9.8, got, 1e-12)

	// Dropped from 20 m: only the positive root is physical and t1 is negative.
	got, ok = quadraticTime(-4.9, 0, 20, eps)
	require.True(t, ok)
	assert.InDelta(t, math.Sqrt(392)/9.8, got, 1e-12)

	_, ok = quadraticTime(-4.9, 10, -100, eps)
	assert.False(t, ok, "negative discriminant")

	_, ok = quadraticTime(0, 10, -1, eps)
	assert.False(t, ok, "degenerate leading coefficient")
}
