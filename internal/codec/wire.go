package codec

import (
	"fmt"

	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/solver"
	"github.com/danielpatrickdp/arcane-dynamics/go-solver/internal/state"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region types
// SolveResponse is the decoded form of a Solve reply. Quantities, Values and
// deduction values are in external units (theta in degrees).
type SolveResponse struct {
	SolveID    string
	Quantities map[state.Field]float64
	Values     [state.NumFields]float64
	Known      []state.Field
	Demoted    []state.Field
	Passes     int
	Converged  bool
	Deductions []Deduction
}

// Deduction is one fired rule as carried on the wire.
type Deduction struct {
	Pass  int
	Rule  int
	Name  string
	Field state.Field
	Value float64
}

// #endregion types

// #region encode
// EncodeRequest builds a Solve request from known quantities keyed by field,
// theta in degrees. NaN and infinities are sent as-is and demoted by the server.
func EncodeRequest(in map[state.Field]float64) (*structpb.Struct, error) {
	q := make(map[string]interface{}, len(in))
	for f, v := range in {
		if !f.Valid() {
			return nil, fmt.Errorf("encode request: invalid field %d", int(f))
		}
		q[f.String()] = v
	}
	return structpb.NewStruct(map[string]interface{}{"quantities": q})
}

// ResponseFromResult converts a local solve into the reply form. demoted lists
// the inputs dropped during construction.
func ResponseFromResult(res solver.Result, demoted []state.Field, solveID string) SolveResponse {
	resp := SolveResponse{
		SolveID:    solveID,
		Quantities: res.Quantities.External(),
		Values:     res.Quantities.Values(),
		Known:      res.Quantities.KnownFields(),
		Demoted:    demoted,
		Passes:     res.Passes,
		Converged:  res.Converged,
	}
	for _, d := range res.Deductions {
		value := d.Value
		if d.Field == state.Theta {
			value = state.RadiansToDegrees(value)
		}
		resp.Deductions = append(resp.Deductions, Deduction{
			Pass:  d.Pass,
			Rule:  d.Rule,
			Name:  d.Name,
			Field: d.Field,
			Value: value,
		})
	}
	return resp
}

// EncodeResult builds a Solve reply; solveID is omitted when empty.
func EncodeResult(res solver.Result, demoted []state.Field, solveID string) (*structpb.Struct, error) {
	resp := ResponseFromResult(res, demoted, solveID)

	quantities := make(map[string]interface{}, len(resp.Quantities))
	for f, v := range resp.Quantities {
		quantities[f.String()] = v
	}
	values := make([]interface{}, len(resp.Values))
	for i, v := range resp.Values {
		values[i] = v
	}
	deductions := make([]interface{}, len(resp.Deductions))
	for i, d := range resp.Deductions {
		deductions[i] = map[string]interface{}{
			"pass":  d.Pass,
			"rule":  d.Rule,
			"name":  d.Name,
			"field": d.Field.String(),
			"value": d.Value,
		}
	}

	m := map[string]interface{}{
		"quantities": quantities,
		"values":     values,
		"known":      fieldNames(resp.Known),
		"demoted":    fieldNames(resp.Demoted),
		"passes":     resp.Passes,
		"converged":  resp.Converged,
		"deductions": deductions,
	}
	if solveID != "" {
		m["solve_id"] = solveID
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return s, nil
}

func fieldNames(fs []state.Field) []interface{} {
	out := make([]interface{}, len(fs))
	for i, f := range fs {
		out[i] = f.String()
	}
	return out
}

// #endregion encode

// #region decode
// DecodeRequest validates a Solve request into a quantity set. A missing
// "quantities" object yields an empty set; null entries are treated as unknown.
// Naming one quantity twice (e.g. "g" and "gravity") is an error.
func DecodeRequest(s *structpb.Struct, opts ...state.Option) (state.Quantities, error) {
	in := make(map[state.Field]float64)
	seen := make(map[state.Field]bool)
	qv, ok := s.GetFields()["quantities"]
	if !ok {
		return state.FromMap(in, opts...), nil
	}
	qs := qv.GetStructValue()
	if qs == nil {
		return state.Quantities{}, fmt.Errorf("decode request: quantities must be an object")
	}
	for name, v := range qs.GetFields() {
		f, err := state.ParseField(name)
		if err != nil {
			return state.Quantities{}, fmt.Errorf("decode request: %w", err)
		}
		if seen[f] {
			return state.Quantities{}, fmt.Errorf("decode request: %w: %s", state.ErrDuplicateField, f)
		}
		seen[f] = true
		switch kind := v.GetKind().(type) {
		case *structpb.Value_NumberValue:
			in[f] = kind.NumberValue
		case *structpb.Value_NullValue:
		default:
			return state.Quantities{}, fmt.Errorf("decode request: %s must be a number", name)
		}
	}
	return state.FromMap(in, opts...), nil
}

// DecodeResult parses a Solve reply.
func DecodeResult(s *structpb.Struct) (SolveResponse, error) {
	fields := s.GetFields()
	resp := SolveResponse{
		SolveID:    fields["solve_id"].GetStringValue(),
		Quantities: make(map[state.Field]float64),
		Passes:     int(fields["passes"].GetNumberValue()),
		Converged:  fields["converged"].GetBoolValue(),
	}

	for name, v := range fields["quantities"].GetStructValue().GetFields() {
		f, err := state.ParseField(name)
		if err != nil {
			return SolveResponse{}, fmt.Errorf("decode result quantities: %w", err)
		}
		resp.Quantities[f] = v.GetNumberValue()
	}

	values := fields["values"].GetListValue().GetValues()
	if len(values) != state.NumFields {
		return SolveResponse{}, fmt.Errorf("decode result: expected %d values, got %d", state.NumFields, len(values))
	}
	for i, v := range values {
		resp.Values[i] = v.GetNumberValue()
	}

	var err error
	if resp.Known, err = decodeFields(fields["known"]); err != nil {
		return SolveResponse{}, fmt.Errorf("decode result known: %w", err)
	}
	if resp.Demoted, err = decodeFields(fields["demoted"]); err != nil {
		return SolveResponse{}, fmt.Errorf("decode result demoted: %w", err)
	}

	for _, v := range fields["deductions"].GetListValue().GetValues() {
		d := v.GetStructValue().GetFields()
		f, err := state.ParseField(d["field"].GetStringValue())
		if err != nil {
			return SolveResponse{}, fmt.Errorf("decode result deduction: %w", err)
		}
		resp.Deductions = append(resp.Deductions, Deduction{
			Pass:  int(d["pass"].GetNumberValue()),
			Rule:  int(d["rule"].GetNumberValue()),
			Name:  d["name"].GetStringValue(),
			Field: f,
			Value: d["value"].GetNumberValue(),
		})
	}
	return resp, nil
}

func decodeFields(v *structpb.Value) ([]state.Field, error) {
	list := v.GetListValue().GetValues()
	out := make([]state.Field, 0, len(list))
	for _, item := range list {
		f, err := state.ParseField(item.GetStringValue())
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// #endregion decode
