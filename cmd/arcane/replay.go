package main

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/replay"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// #region replay-cmd
func newReplayCmd() *cobra.Command {
	var parallel int
	cmd := &cobra.Command{
		Use:   "replay fixture.json [fixture.yaml ...]",
		Short: "Run scenario fixtures and report mismatches",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				n, err := replayFile(cmd, path, parallel)
				if err != nil {
					return err
				}
				failed += n
			}
			if failed > 0 {
				return fmt.Errorf("replay: %d scenario(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&parallel, "parallel", 0, "run up to N scenarios concurrently (0 runs them in order)")
	return cmd
}

// #endregion replay-cmd

// #region replay-file
func replayFile(cmd *cobra.Command, path string, parallel int) (int, error) {
	f, err := replay.LoadFixture(path)
	if err != nil {
		return 0, err
	}
	scenarios, err := f.ToScenarios()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	fc := f.Config
	if fc.Epsilon == 0 {
		fc.Epsilon = cfg.Solver.Epsilon
	}
	if fc.MaxPasses == 0 {
		fc.MaxPasses = cfg.Solver.MaxPasses
	}
	if fc.RelTolerance == 0 {
		fc.RelTolerance = cfg.Eval.RelTolerance
	}
	if fc.AbsTolerance == 0 {
		fc.AbsTolerance = cfg.Eval.AbsTolerance
	}
	engine, harness := fc.ToEngine(), fc.ToEvalHarness()

	var results []replay.ReplayResult
	if parallel > 0 {
		results, err = replay.ReplayParallel(cmd.Context(), engine, harness, scenarios, parallel)
		if err != nil {
			return 0, err
		}
	} else {
		results = replay.Replay(engine, harness, scenarios)
	}

	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.Passed {
			fmt.Fprintf(out, "PASS  %s\n", r.Name)
			continue
		}
		fmt.Fprintf(out, "FAIL  %s: %s\n", r.Name, strings.Join(r.Mismatches, "; "))
	}
	s := replay.Summarize(results)
	fmt.Fprintf(out, "%s: %d scenarios, %d passed, %d failed (%d complete, %d partial)\n",
		path, s.Total, s.Passed, s.Failed, s.Complete, s.Partial)
	logger.Debug("replayed fixture",
		zap.String("path", path),
		zap.Int("total", s.Total),
		zap.Int("failed", s.Failed),
	)
	return s.Failed, nil
}

// #endregion replay-file
