package logging

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/solver"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/state"
)

// #region log-deduction
// Execer is satisfied by both *sql.DB and *sql.Tx.
type Execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// LogDeduction writes one entry to the deduction_log table.
func LogDeduction(db Execer, entry DeductionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO deduction_log (solve_id, pass, rule_id, rule_name, field, value, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.SolveID,
		entry.Pass,
		entry.RuleID,
		entry.RuleName,
		entry.Field,
		entry.Value,
		entry.CreatedAt.UTC().Format(state.TimeLayout),
	)
	if err != nil {
		return fmt.Errorf("log deduction: %w", err)
	}
	return nil
}

// #endregion log-deduction

// #region log-result
// LogResult writes every deduction of a solve in one transaction.
func LogResult(db *sql.DB, solveID string, deductions []solver.Deduction) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, d := range deductions {
		value := d.Value
		if d.Field == state.Theta {
			value = state.RadiansToDegrees(value)
		}
		err := LogDeduction(tx, DeductionEntry{
			SolveID:   solveID,
			Pass:      d.Pass,
			RuleID:    d.Rule,
			RuleName:  d.Name,
			Field:     d.Field.String(),
			Value:     value,
			CreatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("rule %d: %w", d.Rule, err)
		}
	}
	return tx.Commit()
}

// #endregion log-result

// #region list-deductions
// ListDeductions returns the logged deductions of a solve in firing order.
func ListDeductions(db *sql.DB, solveID string) ([]DeductionEntry, error) {
	rows, err := db.Query(
		`SELECT solve_id, pass, rule_id, rule_name, field, value, created_at
		 FROM deduction_log WHERE solve_id = ? ORDER BY id ASC`, solveID,
	)
	if err != nil {
		return nil, fmt.Errorf("list deductions: %w", err)
	}
	defer rows.Close()

	var entries []DeductionEntry
	for rows.Next() {
		var e DeductionEntry
		var createdStr string
		if err := rows.Scan(&e.SolveID, &e.Pass, &e.RuleID, &e.RuleName, &e.Field, &e.Value, &createdStr); err != nil {
			return nil, fmt.Errorf("scan deduction: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion list-deductions

// #region record-solve
// RecordSolve journals one solve: the run row in solve_runs followed by its
// deductions. parentID may be empty.
func RecordSolve(store *state.Store, in state.Quantities, res solver.Result, parentID string) (state.RunRecord, error) {
	known := make([]string, 0, res.Quantities.Len())
	for _, f := range res.Quantities.KnownFields() {
		known = append(known, f.String())
	}
	rec, err := store.SaveRun(state.RunRecord{
		ParentID:  parentID,
		Inputs:    state.InputsFromQuantities(in),
		Outputs:   state.InputsFromQuantities(res.Quantities),
		Known:     known,
		Passes:    res.Passes,
		Converged: res.Converged,
	})
	if err != nil {
		return state.RunRecord{}, fmt.Errorf("record solve: %w", err)
	}
	if err := LogResult(store.DB(), rec.SolveID, res.Deductions); err != nil {
		return rec, fmt.Errorf("record solve %s: %w", rec.SolveID, err)
	}
	return rec, nil
}

// #endregion record-solve
