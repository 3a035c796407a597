// Package datarecording collects one record per tick and forwards it to sinks
// at each sink's own cadence.
package datarecording

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/sarchlab/tickrun/sim"
)

// Fields every record carries, ahead of the block outputs.
const (
	FieldStateID   = "state_id"
	FieldTimestamp = "timestamp"
	FieldAppTimeUs = "app_time_us"
)

// ErrUnknownField is returned when setting a field the schema does not have.
var ErrUnknownField = errors.New("datarecording: unknown field")

// Schema is the ordered list of fields of the records of a run. It is built
// once at startup and shared by every record.
type Schema struct {
	fields []string
	index  map[string]int
}

// NewSchema creates a schema. Empty or duplicated field names are
// configuration errors.
func NewSchema(fields ...string) (*Schema, error) {
	s := &Schema{
		fields: make([]string, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}

	for _, f := range fields {
		if f == "" {
			return nil, fmt.Errorf("%w: empty record field name",
				sim.ErrConfiguration)
		}

		if _, dup := s.index[f]; dup {
			return nil, fmt.Errorf("%w: duplicated record field %q",
				sim.ErrConfiguration, f)
		}

		s.index[f] = len(s.fields)
		s.fields = append(s.fields, f)
	}

	return s, nil
}

// NewTickSchema creates a schema with the standard tick fields followed by
// the given output fields.
func NewTickSchema(outputs ...string) (*Schema, error) {
	fields := append([]string{FieldStateID, FieldTimestamp, FieldAppTimeUs},
		outputs...)

	return NewSchema(fields...)
}

// Fields returns a copy of the field names in order.
func (s *Schema) Fields() []string {
	dup := make([]string, len(s.fields))
	copy(dup, s.fields)

	return dup
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	return len(s.fields)
}

// Has tells if the schema contains field.
func (s *Schema) Has(field string) bool {
	_, ok := s.index[field]
	return ok
}

// NewRecord creates a record with every field unset.
func (s *Schema) NewRecord() *Record {
	return &Record{schema: s, values: make([]any, len(s.fields))}
}

// A Record maps each schema field to an optional scalar. A nil value means the
// field was not set during the tick.
type Record struct {
	schema *Schema
	values []any
}

// Schema returns the schema of the record.
func (r *Record) Schema() *Schema {
	return r.schema
}

// Set assigns a scalar to a field. Passing nil unsets the field.
func (r *Record) Set(field string, value any) error {
	i, ok := r.schema.index[field]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownField, field)
	}

	if !isScalar(value) {
		return fmt.Errorf("datarecording: field %q cannot hold %T", field, value)
	}

	r.values[i] = value

	return nil
}

func isScalar(value any) bool {
	switch value.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// Get returns the value of a field and whether it is set.
func (r *Record) Get(field string) (any, bool) {
	i, ok := r.schema.index[field]
	if !ok || r.values[i] == nil {
		return nil, false
	}

	return r.values[i], true
}

// Values returns a copy of the values in schema order.
func (r *Record) Values() []any {
	dup := make([]any, len(r.values))
	copy(dup, r.values)

	return dup
}

// Floats returns every set float64 field.
func (r *Record) Floats() map[string]float64 {
	out := make(map[string]float64)
	for i, v := range r.values {
		if f, ok := v.(float64); ok {
			out[r.schema.fields[i]] = f
		}
	}

	return out
}

// Reset unsets every field.
func (r *Record) Reset() {
	for i := range r.values {
		r.values[i] = nil
	}
}

// MarshalJSON writes the record as a JSON object with fields in schema order.
// Unset fields and non-finite floats are written as null.
func (r *Record) MarshalJSON() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteByte('{')

	for i, f := range r.schema.fields {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')

		v := r.values[i]
		if fv, ok := v.(float64); ok && (math.IsNaN(fv) || math.IsInf(fv, 0)) {
			v = nil
		}

		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}

		buf.Write(val)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}
