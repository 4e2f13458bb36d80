package main

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/replay"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/state"
	"github.com/spf13/cobra"
)

// #region export-cmd
func newExportCmd() *cobra.Command {
	var (
		last    int
		runID   string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "export --out fixture.json",
		Short: "Write journaled runs out as a replay fixture",
		Long: `Each exported run becomes a scenario whose inputs are the run's inputs and
whose expectations are its recorded outputs. Replaying the fixture later
catches drift in the deduction rules.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return errors.New("--out is required")
			}
			n, err := runExport(runID, last, outPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d scenario(s) to %s\n", n, outPath)
			return nil
		},
	}
	cmd.Flags().IntVar(&last, "last", 10, "number of most recent runs to export")
	cmd.Flags().StringVar(&runID, "run", "", "export a single run")
	cmd.Flags().StringVar(&outPath, "out", "", "output fixture path (.json, .yaml or .yml)")
	return cmd
}

// #endregion export-cmd

// #region run-export
func runExport(runID string, last int, outPath string) (int, error) {
	store, err := state.NewStore(cfg.DB)
	if err != nil {
		return 0, fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	var runs []state.RunRecord
	if runID != "" {
		rec, err := store.GetRun(runID)
		if err != nil {
			return 0, err
		}
		runs = []state.RunRecord{rec}
	} else {
		runs, err = store.ListRuns(last)
		if err != nil {
			return 0, err
		}
	}
	if len(runs) == 0 {
		return 0, errors.New("no runs to export")
	}

	f := &replay.Fixture{
		Description: fmt.Sprintf("exported from %s", cfg.DB),
		Config: replay.FixtureConfig{
			Epsilon:      cfg.Solver.Epsilon,
			MaxPasses:    cfg.Solver.MaxPasses,
			RelTolerance: cfg.Eval.RelTolerance,
			AbsTolerance: cfg.Eval.AbsTolerance,
		},
	}
	harness := f.Config.ToEvalHarness()
	// store returns newest first, export chronological
	for i := len(runs) - 1; i >= 0; i-- {
		f.Scenarios = append(f.Scenarios, replay.ScenarioFromRecord(runs[i], harness))
	}
	if err := replay.WriteFixture(outPath, f); err != nil {
		return 0, err
	}
	return len(f.Scenarios), nil
}

// #endregion run-export
