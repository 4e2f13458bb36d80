package logging

import "time"

// #region deduction-entry
// DeductionEntry is a single row in the deduction_log table. Value is in
// external units (theta in degrees).
type DeductionEntry struct {
	SolveID   string    `json:"solve_id"`
	Pass      int       `json:"pass"`
	RuleID    int       `json:"rule_id"`
	RuleName  string    `json:"rule_name"`
	Field     string    `json:"field"`
	Value     float64   `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// #endregion deduction-entry
