package state

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
)

// #region quantities
// Quantities is the set of projectile quantities known so far. A field is known
// exactly when it has a value; known values are always finite. Theta is held in
// radians and only converted to degrees on export.
//
// The zero value is an empty set. Quantities is never modified in place: With
// returns a new set.
type Quantities struct {
	vals    map[Field]float64
	demoted []Field
}

// Option configures construction.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger routes construction diagnostics to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// #endregion quantities

// #region construct
// New builds a validated set from positionally aligned value and known
// sequences (gravity, yi, yf, vi, vf, d, theta, time) with theta in degrees.
// If either sequence is nil every field is unknown. Positions past the end of
// the shorter sequence are unknown.
//
// A field marked known with a NaN or infinite value is demoted to unknown and a
// warning is logged; construction never fails.
func New(values []float64, known []bool, opts ...Option) Quantities {
	in := make(map[Field]float64, NumFields)
	if values != nil && known != nil {
		n := min(len(values), len(known), NumFields)
		for i := 0; i < n; i++ {
			if known[i] {
				in[Field(i)] = values[i]
			}
		}
	}
	return validate(in, buildOptions(opts))
}

// FromMap builds a validated set from the fields present in in, theta in degrees.
// Entries with an invalid Field are ignored.
func FromMap(in map[Field]float64, opts ...Option) Quantities {
	cp := make(map[Field]float64, len(in))
	for f, v := range in {
		if f.Valid() {
			cp[f] = v
		}
	}
	return validate(cp, buildOptions(opts))
}

func validate(in map[Field]float64, o options) Quantities {
	q := Quantities{vals: make(map[Field]float64, len(in))}
	for _, f := range Fields() {
		v, ok := in[f]
		if !ok {
			continue
		}
		if !isFinite(v) {
			o.logger.Warn(fmt.Sprintf("field %s marked known but not finite; ignoring", f),
				zap.String("field", f.String()),
				zap.Float64("value", v),
			)
			q.demoted = append(q.demoted, f)
			continue
		}
		if f == Theta {
			v = DegreesToRadians(v)
		}
		q.vals[f] = v
	}
	return q
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// #endregion construct

// #region accessors
// Get returns the value of f in internal units (theta in radians).
func (q Quantities) Get(f Field) (float64, bool) {
	v, ok := q.vals[f]
	return v, ok
}

// Known reports whether f has a value.
func (q Quantities) Known(f Field) bool {
	_, ok := q.vals[f]
	return ok
}

// KnownAll reports whether every field in fs has a value.
func (q Quantities) KnownAll(fs ...Field) bool {
	for _, f := range fs {
		if !q.Known(f) {
			return false
		}
	}
	return true
}

// Len is the number of known fields.
func (q Quantities) Len() int {
	return len(q.vals)
}

// KnownFields lists the known fields in positional order.
func (q Quantities) KnownFields() []Field {
	var out []Field
	for _, f := range Fields() {
		if q.Known(f) {
			out = append(out, f)
		}
	}
	return out
}

// UnknownFields lists the fields still without a value, in positional order.
func (q Quantities) UnknownFields() []Field {
	var out []Field
	for _, f := range Fields() {
		if !q.Known(f) {
			out = append(out, f)
		}
	}
	return out
}

// Demoted lists fields that were marked known at construction but rejected as
// non-finite.
func (q Quantities) Demoted() []Field {
	return append([]Field(nil), q.demoted...)
}

// With returns a copy of q with f set to v (internal units). Existing values are
// never removed.
func (q Quantities) With(f Field, v float64) Quantities {
	next := Quantities{
		vals:    make(map[Field]float64, len(q.vals)+1),
		demoted: q.demoted,
	}
	for k, val := range q.vals {
		next.vals[k] = val
	}
	next.vals[f] = v
	return next
}

// Equal reports whether both sets know the same fields with identical values.
func (q Quantities) Equal(other Quantities) bool {
	if len(q.vals) != len(other.vals) {
		return false
	}
	for f, v := range q.vals {
		ov, ok := other.vals[f]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// #endregion accessors

// #region export
// Values exports all eight values in positional order with theta in degrees.
// Unknown fields export as 0; use KnownFields to tell them apart.
func (q Quantities) Values() [NumFields]float64 {
	var out [NumFields]float64
	for f, v := range q.vals {
		out[f] = external(f, v)
	}
	return out
}

// External returns the known fields only, in external units.
func (q Quantities) External() map[Field]float64 {
	out := make(map[Field]float64, len(q.vals))
	for f, v := range q.vals {
		out[f] = external(f, v)
	}
	return out
}

func external(f Field, v float64) float64 {
	if f == Theta {
		return RadiansToDegrees(v)
	}
	return v
}

// String dumps all eight labeled values on one line, theta in degrees.
func (q Quantities) String() string {
	vals := q.Values()
	parts := make([]string, NumFields)
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%s = %g", fieldLabels[i], v)
	}
	return strings.Join(parts, ", ")
}

// #endregion export
