package replay

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/eval"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/solver"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/state"
	"gopkg.in/yaml.v3"
)

// #region fixture-types

// Fixture is the top-level structure of a scenario fixture file.
type Fixture struct {
	Description string            `json:"description" yaml:"description"`
	Config      FixtureConfig     `json:"config" yaml:"config"`
	Scenarios   []FixtureScenario `json:"scenarios" yaml:"scenarios"`
}

// FixtureConfig overrides solver and eval settings for a fixture. Zero values
// keep the defaults.
type FixtureConfig struct {
	Epsilon      float64 `json:"epsilon,omitempty" yaml:"epsilon,omitempty"`
	MaxPasses    int     `json:"max_passes,omitempty" yaml:"max_passes,omitempty"`
	RelTolerance float64 `json:"rel_tolerance,omitempty" yaml:"rel_tolerance,omitempty"`
	AbsTolerance float64 `json:"abs_tolerance,omitempty" yaml:"abs_tolerance,omitempty"`
}

// FixtureScenario is one solve with its expectations. Inputs and Expected are
// keyed by quantity name with theta in degrees. JSON cannot carry NaN or
// infinities, so NonFinite marks inputs as "nan", "+inf" or "-inf".
type FixtureScenario struct {
	Name              string             `json:"name" yaml:"name"`
	Inputs            map[string]float64 `json:"inputs" yaml:"inputs"`
	NonFinite         map[string]string  `json:"non_finite,omitempty" yaml:"non_finite,omitempty"`
	Expected          map[string]float64 `json:"expected,omitempty" yaml:"expected,omitempty"`
	Unknown           []string           `json:"unknown,omitempty" yaml:"unknown,omitempty"`
	Tolerance         float64            `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
	AllowInconsistent bool               `json:"allow_inconsistent,omitempty" yaml:"allow_inconsistent,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads a fixture file. Files ending in .yaml or .yml are parsed
// as YAML, everything else as JSON.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture writes f as indented JSON, or YAML when path ends in .yaml/.yml.
func WriteFixture(path string, f *Fixture) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(f)
	default:
		data, err = json.MarshalIndent(f, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToScenario converts a fixture scenario to its domain form.
func (fs *FixtureScenario) ToScenario() (Scenario, error) {
	sc := Scenario{
		Name:              fs.Name,
		Inputs:            make(map[state.Field]float64, len(fs.Inputs)+len(fs.NonFinite)),
		Tolerance:         fs.Tolerance,
		AllowInconsistent: fs.AllowInconsistent,
	}
	inputs, err := state.ParseFields(fs.Inputs)
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario %s inputs: %w", fs.Name, err)
	}
	for f, v := range inputs {
		sc.Inputs[f] = v
	}
	for name, raw := range fs.NonFinite {
		f, err := state.ParseField(name)
		if err != nil {
			return Scenario{}, fmt.Errorf("scenario %s non_finite: %w", fs.Name, err)
		}
		if _, dup := sc.Inputs[f]; dup {
			return Scenario{}, fmt.Errorf("scenario %s non_finite: %w: %s", fs.Name, state.ErrDuplicateField, f)
		}
		v, err := parseNonFinite(raw)
		if err != nil {
			return Scenario{}, fmt.Errorf("scenario %s non_finite %s: %w", fs.Name, name, err)
		}
		sc.Inputs[f] = v
	}
	if sc.Expected, err = state.ParseFields(fs.Expected); err != nil {
		return Scenario{}, fmt.Errorf("scenario %s expected: %w", fs.Name, err)
	}
	for _, name := range fs.Unknown {
		f, err := state.ParseField(name)
		if err != nil {
			return Scenario{}, fmt.Errorf("scenario %s unknown: %w", fs.Name, err)
		}
		sc.Unknown = append(sc.Unknown, f)
	}
	return sc, nil
}

// ToScenarios converts every fixture scenario.
func (f *Fixture) ToScenarios() ([]Scenario, error) {
	out := make([]Scenario, 0, len(f.Scenarios))
	for i := range f.Scenarios {
		sc, err := f.Scenarios[i].ToScenario()
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

// ToEngine builds a solver engine from the fixture config.
func (fc *FixtureConfig) ToEngine() *solver.Engine {
	return solver.NewEngine(solver.Config{
		Epsilon:   fc.Epsilon,
		MaxPasses: fc.MaxPasses,
	})
}

// ToEvalHarness builds an eval harness from the fixture config.
func (fc *FixtureConfig) ToEvalHarness() *eval.EvalHarness {
	config := eval.DefaultEvalConfig()
	if fc.RelTolerance > 0 {
		config.RelTolerance = fc.RelTolerance
	}
	if fc.AbsTolerance > 0 {
		config.AbsTolerance = fc.AbsTolerance
	}
	return eval.NewEvalHarness(config)
}

// ScenarioFromRecord turns a journaled run into a fixture scenario whose
// expectations are the run's recorded outputs. A run whose outputs already
// fail the consistency check under harness (nil means the default
// tolerances) is exported with AllowInconsistent set, so replay only flags
// drift in the deductions.
func ScenarioFromRecord(rec state.RunRecord, harness *eval.EvalHarness) FixtureScenario {
	if harness == nil {
		harness = eval.NewEvalHarness(eval.DefaultEvalConfig())
	}
	known := make(map[string]bool, len(rec.Known))
	for _, k := range rec.Known {
		known[k] = true
	}
	expected := make(map[string]float64, len(rec.Known))
	var unknown []string
	for _, f := range state.Fields() {
		name := f.String()
		if known[name] {
			expected[name] = rec.Outputs[name]
		} else {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)

	inconsistent := false
	if out, err := state.QuantitiesFromRecord(rec.Outputs); err == nil {
		inconsistent = !harness.Run(out).Passed
	}
	return FixtureScenario{
		Name:              rec.SolveID,
		Inputs:            rec.Inputs,
		Expected:          expected,
		Unknown:           unknown,
		AllowInconsistent: inconsistent,
	}
}

func parseNonFinite(s string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nan":
		return math.NaN(), nil
	case "inf", "+inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	}
	return 0, fmt.Errorf("unrecognised non-finite value %q", s)
}

// #endregion fixture-loader
