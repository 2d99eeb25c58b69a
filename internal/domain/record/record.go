// Package record provides the ordered name → value record that evaluators
// emit for one candidate.
package record

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"

	"github.com/okian/miniiso/internal/domain/model"
)

// Evaluator computes a record of variables for one candidate of type C.
type Evaluator[C any] interface {
	Evaluate(ctx context.Context, cand C, ev model.EventContext) (*Record, error)
}

var (
	errNotObject = errors.New("record: json value is not an object")
	errNotNumber = errors.New("record: value is not a number")
)

// Record is an insertion-ordered mapping from variable name to value.
// It is not safe for concurrent mutation.
type Record struct {
	keys   []string
	values map[string]float64
}

// New returns an empty record with room for n variables.
func New(n int) *Record {
	return &Record{
		keys:   make([]string, 0, n),
		values: make(map[string]float64, n),
	}
}

// Add sets name to value. A new name is appended; an existing one keeps
// its position.
func (r *Record) Add(name string, value float64) {
	if _, ok := r.values[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.values[name] = value
}

// Get returns the value stored under name.
func (r *Record) Get(name string) (float64, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Keys returns the variable names in insertion order.
func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len returns the number of variables.
func (r *Record) Len() int {
	return len(r.keys)
}

// Merge adds every variable of other, in its order.
func (r *Record) Merge(other *Record) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		r.Add(k, other.values[k])
	}
}

// MarshalJSON encodes the record as a JSON object in insertion order.
// Values JSON cannot represent (NaN, ±Inf) are encoded as strings.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(encodeValue(r.values[k]))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object produced by MarshalJSON, keeping the
// order of the keys in the input.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errNotObject
	}
	*r = *New(0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		v, err := decodeValue(raw)
		if err != nil {
			return err
		}
		r.Add(name, v)
	}
	_, err = dec.Token()
	return err
}

func encodeValue(v float64) []byte {
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`)
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`)
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`)
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64)
}

func decodeValue(raw any) (float64, error) {
	switch x := raw.(type) {
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, errNotNumber
	}
}
