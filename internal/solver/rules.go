package solver

import (
	"math"

	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/state"
)

// #region rule
// Rule deduces one quantity from others. Apply is only called once Target is
// unknown, every Requires field is known and every Absent field is unknown; it
// returns false when the inputs are numerically degenerate for this relation.
type Rule struct {
	ID       int
	Name     string
	Target   state.Field
	Requires []state.Field
	Absent   []state.Field
	Apply    func(q state.Quantities, eps float64) (float64, bool)
}

// Ready reports whether r may fire against q.
func (r Rule) Ready(q state.Quantities) bool {
	if q.Known(r.Target) || !q.KnownAll(r.Requires...) {
		return false
	}
	for _, f := range r.Absent {
		if q.Known(f) {
			return false
		}
	}
	return true
}

// #endregion rule

// #region rule-table
// Rules returns the deduction rules in evaluation order. Horizontal motion
// comes first, then vertical motion, then final speed.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

var rules = []Rule{
	{
		// d = vi·cosθ·t
		ID: 1, Name: "time_from_horizontal", Target: state.Time,
		Requires: []state.Field{state.D, state.Vi, state.Theta},
		Apply: func(q state.Quantities, eps float64) (float64, bool) {
			d, vi, th := get(q, state.D), get(q, state.Vi), get(q, state.Theta)
			cos := math.Cos(th)
			if math.Abs(cos) <= eps {
				return 0, false
			}
			return d / (vi * cos), true
		},
	},
	{
		ID: 2, Name: "distance_from_horizontal", Target: state.D,
		Requires: []state.Field{state.Vi, state.Theta, state.Time},
		Apply: func(q state.Quantities, _ float64) (float64, bool) {
			vi, th, t := get(q, state.Vi), get(q, state.Theta), get(q, state.Time)
			return vi * math.Cos(th) * t, true
		},
	},
	{
		ID: 3, Name: "speed_from_horizontal", Target: state.Vi,
		Requires: []state.Field{state.D, state.Theta, state.Time},
		Apply: func(q state.Quantities, eps float64) (float64, bool) {
			d, th, t := get(q, state.D), get(q, state.Theta), get(q, state.Time)
			cos := math.Cos(th)
			if math.Abs(cos) <= eps || math.Abs(t) <= eps {
				return 0, false
			}
			return d / (cos * t), true
		},
	},
	{
		ID: 4, Name: "angle_from_horizontal", Target: state.Theta,
		Requires: []state.Field{state.D, state.Vi, state.Time},
		Apply: func(q state.Quantities, eps float64) (float64, bool) {
			d, vi, t := get(q, state.D), get(q, state.Vi), get(q, state.Time)
			denom := vi * t
			if math.Abs(denom) <= eps {
				return 0, false
			}
			cos := d / denom
			if cos < -1 || cos > 1 {
				return 0, false
			}
			return math.Acos(cos), true
		},
	},
	{
		// Ground-level launch is assumed when neither height is given but the
		// motion is otherwise characterised.
		ID: 5, Name: "assume_ground_launch", Target: state.Yi,
		Requires: []state.Field{state.Vi, state.Time, state.Gravity, state.Theta},
		Absent:   []state.Field{state.Yf},
		Apply: func(state.Quantities, float64) (float64, bool) {
			return 0, true
		},
	},
	{
		// yf = yi + vi·sinθ·t − ½g·t²
		ID: 6, Name: "final_height", Target: state.Yf,
		Requires: []state.Field{state.Yi, state.Vi, state.Time, state.Gravity, state.Theta},
		Apply: func(q state.Quantities, _ float64) (float64, bool) {
			yi, vi, t, g, th := get(q, state.Yi), get(q, state.Vi), get(q, state.Time), get(q, state.Gravity), get(q, state.Theta)
			return yi + vi*math.Sin(th)*t - 0.5*g*t*t, true
		},
	},
	{
		ID: 7, Name: "initial_height", Target: state.Yi,
		Requires: []state.Field{state.Yf, state.Vi, state.Time, state.Gravity, state.Theta},
		Apply: func(q state.Quantities, _ float64) (float64, bool) {
			yf, vi, t, g, th := get(q, state.Yf), get(q, state.Vi), get(q, state.Time), get(q, state.Gravity), get(q, state.Theta)
			return yf - vi*math.Sin(th)*t + 0.5*g*t*t, true
		},
	},
	{
		ID: 8, Name: "speed_from_vertical", Target: state.Vi,
		Requires: []state.Field{state.Yi, state.Yf, state.Time, state.Gravity, state.Theta},
		Apply: func(q state.Quantities, eps float64) (float64, bool) {
			yi, yf, t, g, th := get(q, state.Yi), get(q, state.Yf), get(q, state.Time), get(q, state.Gravity), get(q, state.Theta)
			sin := math.Sin(th)
			if math.Abs(sin) <= eps || math.Abs(t) <= eps {
				return 0, false
			}
			return (yf - yi + 0.5*g*t*t) / (sin * t), true
		},
	},
	{
		ID: 9, Name: "angle_from_vertical", Target: state.Theta,
		Requires: []state.Field{state.Yi, state.Yf, state.Vi, state.Time, state.Gravity},
		Apply: func(q state.Quantities, eps float64) (float64, bool) {
			yi, yf, vi, t, g := get(q, state.Yi), get(q, state.Yf), get(q, state.Vi), get(q, state.Time), get(q, state.Gravity)
			denom := vi * t
			if math.Abs(denom) <= eps {
				return 0, false
			}
			sin := (yf - yi + 0.5*g*t*t) / denom
			if sin < -1 || sin > 1 {
				return 0, false
			}
			return math.Asin(sin), true
		},
	},
	{
		// −½g·t² + vi·sinθ·t + (yi − yf) = 0
		ID: 10, Name: "time_from_vertical", Target: state.Time,
		Requires: []state.Field{state.Yi, state.Yf, state.Vi, state.Gravity, state.Theta},
		Apply: func(q state.Quantities, eps float64) (float64, bool) {
			yi, yf, vi, g, th := get(q, state.Yi), get(q, state.Yf), get(q, state.Vi), get(q, state.Gravity), get(q, state.Theta)
			a := -0.5 * g
			b := vi * math.Sin(th)
			c := yi - yf
			return quadraticTime(a, b, c, eps)
		},
	},
	{
		ID: 11, Name: "final_speed", Target: state.Vf,
		Requires: []state.Field{state.Vi, state.Gravity, state.Time, state.Theta},
		Apply: func(q state.Quantities, _ float64) (float64, bool) {
			vi, g, t, th := get(q, state.Vi), get(q, state.Gravity), get(q, state.Time), get(q, state.Theta)
			vx := vi * math.Cos(th)
			vy := vi*math.Sin(th) - g*t
			return math.Sqrt(vx*vx + vy*vy), true
		},
	},
}

// #endregion rule-table

// #region helpers
// quadraticTime solves a·t² + b·t + c = 0 and picks the first root above eps,
// falling back to the other root.
func quadraticTime(a, b, c, eps float64) (float64, bool) {
	disc := b*b - 4*a*c
	if disc < 0 || math.Abs(a) <= eps {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t1 := (-b + sq) / (2 * a)
	t2 := (-b - sq) / (2 * a)
	if t1 > eps {
		return t1, true
	}
	return t2, true
}

func get(q state.Quantities, f state.Field) float64 {
	v, _ := q.Get(f)
	return v
}

// #endregion helpers
