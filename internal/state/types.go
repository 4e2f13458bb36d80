package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// #region field
// Field identifies one of the eight projectile quantities. The numeric order is
// the positional order used at the array boundary.
type Field int

const (
	Gravity Field = iota // gravitational acceleration magnitude, m/s²
	Yi                   // initial vertical position, m
	Yf                   // final vertical position, m
	Vi                   // initial speed, m/s
	Vf                   // final speed magnitude, m/s
	D                    // horizontal displacement, m
	Theta                // launch angle, degrees outside / radians inside
	Time                 // elapsed time, s
)

// NumFields is the length of the positional value and known sequences.
const NumFields = 8

var fieldNames = [NumFields]string{"gravity", "yi", "yf", "vi", "vf", "d", "theta", "time"}

// short labels used by the one-line dump
var fieldLabels = [NumFields]string{"g", "yi", "yf", "vi", "vf", "d", "theta", "t"}

func (f Field) String() string {
	if f < 0 || int(f) >= NumFields {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldNames[f]
}

// Valid reports whether f is one of the eight quantities.
func (f Field) Valid() bool {
	return f >= 0 && int(f) < NumFields
}

// Fields returns every field in positional order.
func Fields() []Field {
	out := make([]Field, NumFields)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// ParseField maps a label such as "theta" or "t" back to its Field.
func ParseField(s string) (Field, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range fieldNames {
		if n == name || fieldLabels[i] == name {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("unknown quantity %q", s)
}

// ErrDuplicateField is returned when one quantity appears under two names,
// such as "t" and "time".
var ErrDuplicateField = errors.New("quantity given more than once")

// ParseFields maps a name-keyed set of values to fields, rejecting unknown
// names and aliases of the same quantity.
func ParseFields(m map[string]float64) (map[Field]float64, error) {
	out := make(map[Field]float64, len(m))
	for name, v := range m {
		f, err := ParseField(name)
		if err != nil {
			return nil, err
		}
		if _, dup := out[f]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateField, f)
		}
		out[f] = v
	}
	return out, nil
}

// #endregion field

// #region run-record
// RunRecord is one journaled solve: the caller's inputs and the exported result,
// both in external units (theta in degrees), keyed by field name.
type RunRecord struct {
	SolveID   string             `json:"solve_id"`
	ParentID  string             `json:"parent_id,omitempty"`
	Inputs    map[string]float64 `json:"inputs"`
	Outputs   map[string]float64 `json:"outputs"`
	Known     []string           `json:"known"`
	Passes    int                `json:"passes"`
	Converged bool               `json:"converged"`
	CreatedAt time.Time          `json:"created_at"`
}

// #endregion run-record
