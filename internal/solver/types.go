package solver

import "github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/state"

// #region config
// Config holds the numeric threshold and the pass cap of the deduction loop.
type Config struct {
	Epsilon   float64 // near-zero threshold for divisors, discriminants and root selection
	MaxPasses int     // upper bound on deduction passes
}

// DefaultConfig returns the standard threshold (1e-6) and pass cap (100).
func DefaultConfig() Config {
	return Config{
		Epsilon:   1e-6,
		MaxPasses: 100,
	}
}

// #endregion config

// #region deduction
// Deduction records one rule firing.
type Deduction struct {
	Pass  int
	Rule  int
	Name  string
	Field state.Field
	Value float64 // internal units (theta in radians)
}

// #endregion deduction

// #region result
// Result is the outcome of a solve. An incomplete set is a normal outcome, not
// an error.
type Result struct {
	Quantities state.Quantities
	Passes     int
	Deductions []Deduction

	// Converged is false only when the pass cap stopped a loop that was still
	// deducing.
	Converged bool
}

// Complete reports whether all eight quantities are known.
func (r Result) Complete() bool {
	return r.Quantities.Len() == state.NumFields
}

// Unknown lists the quantities left undetermined.
func (r Result) Unknown() []state.Field {
	return r.Quantities.UnknownFields()
}

// #endregion result
