package eval

// #region eval-config
// EvalConfig holds tolerances for the consistency check. A residual passes when
// it is within AbsTolerance or within RelTolerance of the relation's scale.
type EvalConfig struct {
	RelTolerance float64
	AbsTolerance float64
}

// DefaultEvalConfig returns the default tolerances.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		RelTolerance: 1e-4,
		AbsTolerance: 1e-6,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures the residual of one physical relation.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of a consistency check. Relations whose quantities
// are not all known are skipped and listed in Skipped.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Skipped []string
	Reason  string
}

// #endregion eval-result
