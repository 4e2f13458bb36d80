package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/logging"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/state"
	"github.com/spf13/cobra"
)

// #region inspect-cmd
func newInspectCmd() *cobra.Command {
	var (
		last    int
		runID   string
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List journaled solves or show one with its deduction log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := state.NewStore(cfg.DB)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer store.Close()

			if runID != "" {
				return runDetailMode(cmd.OutOrStdout(), store, runID, jsonOut)
			}
			return runListMode(cmd.OutOrStdout(), store, last, jsonOut)
		},
	}
	cmd.Flags().IntVar(&last, "last", 20, "show N most recent runs")
	cmd.Flags().StringVar(&runID, "run", "", "show single run detail")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON instead of table")
	return cmd
}

// #endregion inspect-cmd

// #region list-mode
type listRow struct {
	SolveID   string `json:"solve_id"`
	ParentID  string `json:"parent_id,omitempty"`
	Known     int    `json:"known"`
	Passes    int    `json:"passes"`
	Converged bool   `json:"converged"`
	CreatedAt string `json:"created_at"`
}

func runListMode(w io.Writer, store *state.Store, last int, jsonOut bool) error {
	runs, err := store.ListRuns(last)
	if err != nil {
		return err
	}

	// store returns newest first, show chronological
	rows := make([]listRow, len(runs))
	for i, r := range runs {
		rows[len(runs)-1-i] = listRow{
			SolveID:   r.SolveID,
			ParentID:  r.ParentID,
			Known:     len(r.Known),
			Passes:    r.Passes,
			Converged: r.Converged,
			CreatedAt: r.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(w, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "no runs found")
		return nil
	}
	fmt.Fprintf(w, "%-36s  %-8s  %5s  %6s  %-9s  %s\n", "Solve ID", "Parent", "Known", "Passes", "Converged", "Time")
	fmt.Fprintf(w, "%-36s+-%-8s+-%5s+-%6s+-%-9s+-%s\n",
		strings.Repeat("-", 36), "--------", "-----", "------", "---------", "--------------------")
	for _, r := range rows {
		parent := "-"
		if r.ParentID != "" {
			parent = shortID(r.ParentID)
		}
		fmt.Fprintf(w, "%-36s  %-8s  %5d  %6d  %-9v  %s\n", r.SolveID, parent, r.Known, r.Passes, r.Converged, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode
type detailView struct {
	state.RunRecord
	Deductions []logging.DeductionEntry `json:"deductions"`
}

func runDetailMode(w io.Writer, store *state.Store, runID string, jsonOut bool) error {
	rec, err := store.GetRun(runID)
	if err != nil {
		return err
	}
	deductions, err := logging.ListDeductions(store.DB(), runID)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(w, detailView{RunRecord: rec, Deductions: deductions})
	}

	fmt.Fprintf(w, "Solve:     %s\n", rec.SolveID)
	if rec.ParentID != "" {
		fmt.Fprintf(w, "Parent:    %s\n", rec.ParentID)
	}
	fmt.Fprintf(w, "Created:   %s\n", rec.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(w, "Passes:    %d  converged: %v\n", rec.Passes, rec.Converged)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-8s  %14s  %14s\n", "Field", "Input", "Output")
	for _, f := range state.Fields() {
		name := f.String()
		fmt.Fprintf(w, "%-8s  %14s  %14s\n", name, cell(rec.Inputs, name), cell(rec.Outputs, name))
	}

	if len(deductions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Deductions:")
		for _, d := range deductions {
			fmt.Fprintf(w, "  pass %d  rule %2d  %-24s %s = %g\n", d.Pass, d.RuleID, d.RuleName, d.Field, d.Value)
		}
	}
	return nil
}

func cell(m map[string]float64, name string) string {
	if v, ok := m[name]; ok {
		return fmt.Sprintf("%g", v)
	}
	return "?"
}

// #endregion detail-mode

// #region helpers
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion helpers
