package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/codec"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/eval"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/logging"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/solver"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/state"
	"github.com/spf13/cobra"
)

// #region solve-cmd
type solveOptions struct {
	values  [state.NumFields]float64
	jsonOut bool
	check   bool
	save    bool
	from    string
	remote  string
}

func newSolveCmd() *cobra.Command {
	opts := &solveOptions{}
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Deduce unknown quantities from the ones given as flags",
		Long: `Each quantity flag that is set marks that quantity as known; unset
flags are unknown. Theta is in degrees.

  arcane solve --gravity 9.8 --d 50 --theta 45 --time 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, opts)
		},
	}
	for _, f := range state.Fields() {
		cmd.Flags().Float64Var(&opts.values[f], f.String(), 0, fmt.Sprintf("known %s", f))
	}
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&opts.check, "check", false, "verify the result against the projectile relations")
	cmd.Flags().BoolVar(&opts.save, "save", false, "journal the solve in the configured database")
	cmd.Flags().StringVar(&opts.from, "from", "", "seed known quantities from a journaled run (or \"latest\")")
	cmd.Flags().StringVar(&opts.remote, "remote", "", "solve through the gRPC service at this address")
	return cmd
}

// #endregion solve-cmd

// #region run-solve
func runSolve(cmd *cobra.Command, opts *solveOptions) error {
	if opts.save && opts.remote != "" {
		return errors.New("--save cannot be combined with --remote; the server journals its own solves")
	}

	inputs, parentID, err := seedInputs(opts.from)
	if err != nil {
		return err
	}
	for _, f := range state.Fields() {
		if cmd.Flags().Changed(f.String()) {
			inputs[f] = opts.values[f]
		}
	}

	var resp codec.SolveResponse
	var dump string
	if opts.remote != "" {
		client, err := codec.NewSolverClient(opts.remote)
		if err != nil {
			return err
		}
		defer client.Close()
		resp, err = client.Solve(cmd.Context(), inputs)
		if err != nil {
			return err
		}
		dump = state.FromMap(resp.Quantities).String()
	} else {
		q := state.FromMap(inputs, state.WithLogger(logger))
		engine := solver.NewEngine(cfg.EngineConfig(), solver.WithLogger(logger))
		res := engine.Solve(q)

		var solveID string
		if opts.save {
			store, err := state.NewStore(cfg.DB)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer store.Close()
			rec, err := logging.RecordSolve(store, q, res, parentID)
			if err != nil {
				return err
			}
			solveID = rec.SolveID
		}
		resp = codec.ResponseFromResult(res, q.Demoted(), solveID)
		dump = res.Quantities.String()
	}

	var check *eval.EvalResult
	if opts.check {
		ev := eval.NewEvalHarness(cfg.HarnessConfig()).Run(state.FromMap(resp.Quantities))
		check = &ev
	}

	out := cmd.OutOrStdout()
	if opts.jsonOut {
		if err := printSolveJSON(out, resp, check); err != nil {
			return err
		}
	} else {
		printSolveText(out, resp, dump, check)
	}

	if check != nil && !check.Passed {
		return fmt.Errorf("consistency check failed: %s", check.Reason)
	}
	return nil
}

// seedInputs loads the outputs of a journaled run, or of the newest run when
// from is "latest".
func seedInputs(from string) (map[state.Field]float64, string, error) {
	if from == "" {
		return make(map[state.Field]float64), "", nil
	}
	store, err := state.NewStore(cfg.DB)
	if err != nil {
		return nil, "", fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	var rec state.RunRecord
	if from == "latest" {
		rec, err = store.LatestRun()
	} else {
		rec, err = store.GetRun(from)
	}
	if err != nil {
		return nil, "", err
	}
	q, err := state.QuantitiesFromRecord(rec.Outputs, state.WithLogger(logger))
	if err != nil {
		return nil, "", fmt.Errorf("run %s: %w", rec.SolveID, err)
	}
	return q.External(), rec.SolveID, nil
}

// #endregion run-solve

// #region output
type solveJSON struct {
	SolveID    string             `json:"solve_id,omitempty"`
	Quantities map[string]float64 `json:"quantities"`
	Values     []float64          `json:"values"`
	Known      []string           `json:"known"`
	Demoted    []string           `json:"demoted"`
	Passes     int                `json:"passes"`
	Converged  bool               `json:"converged"`
	Deductions []deductionJSON    `json:"deductions"`
	Check      *checkJSON         `json:"check,omitempty"`
}

type deductionJSON struct {
	Pass  int     `json:"pass"`
	Rule  int     `json:"rule"`
	Name  string  `json:"name"`
	Field string  `json:"field"`
	Value float64 `json:"value"`
}

type checkJSON struct {
	Passed    bool               `json:"passed"`
	Reason    string             `json:"reason"`
	Residuals map[string]float64 `json:"residuals"`
	Skipped   []string           `json:"skipped,omitempty"`
}

func printSolveJSON(w io.Writer, resp codec.SolveResponse, check *eval.EvalResult) error {
	out := solveJSON{
		SolveID:    resp.SolveID,
		Quantities: make(map[string]float64, len(resp.Quantities)),
		Values:     resp.Values[:],
		Known:      names(resp.Known),
		Demoted:    names(resp.Demoted),
		Passes:     resp.Passes,
		Converged:  resp.Converged,
		Deductions: make([]deductionJSON, 0, len(resp.Deductions)),
	}
	for f, v := range resp.Quantities {
		out.Quantities[f.String()] = v
	}
	for _, d := range resp.Deductions {
		out.Deductions = append(out.Deductions, deductionJSON{
			Pass: d.Pass, Rule: d.Rule, Name: d.Name, Field: d.Field.String(), Value: d.Value,
		})
	}
	if check != nil {
		out.Check = &checkJSON{
			Passed:    check.Passed,
			Reason:    check.Reason,
			Residuals: make(map[string]float64, len(check.Metrics)),
			Skipped:   check.Skipped,
		}
		for _, m := range check.Metrics {
			out.Check.Residuals[m.Name] = m.Value
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printSolveText(w io.Writer, resp codec.SolveResponse, dump string, check *eval.EvalResult) {
	fmt.Fprintln(w, dump)
	fmt.Fprintf(w, "known: %s\n", strings.Join(names(resp.Known), " "))
	if len(resp.Demoted) > 0 {
		fmt.Fprintf(w, "demoted: %s\n", strings.Join(names(resp.Demoted), " "))
	}
	fmt.Fprintf(w, "passes: %d  converged: %v\n", resp.Passes, resp.Converged)
	for _, d := range resp.Deductions {
		fmt.Fprintf(w, "  pass %d  rule %2d  %-24s %s = %g\n", d.Pass, d.Rule, d.Name, d.Field, d.Value)
	}
	if resp.SolveID != "" {
		fmt.Fprintf(w, "solve id: %s\n", resp.SolveID)
	}
	if check != nil {
		fmt.Fprintf(w, "check: %s\n", check.Reason)
	}
}

func names(fs []state.Field) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.String()
	}
	return out
}

// #endregion output
