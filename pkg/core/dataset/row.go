package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Value is a scalar cell value or nil (NULL). After Normalize it is one of
// nil, int64, float64, bool, string, time.Time or []byte.
type Value = any

// Row is an ordered field to value mapping. Keys keep insertion order, which
// for database sources is the SELECT column order.
type Row struct {
	keys   []string
	values map[string]Value
}

// NewRow builds a row from parallel keys and values. A repeated key overwrites
// the value and keeps its first position.
func NewRow(keys []string, values []Value) Row {
	r := Row{
		keys:   make([]string, 0, len(keys)),
		values: make(map[string]Value, len(keys)),
	}
	for i, k := range keys {
		var v Value
		if i < len(values) {
			v = values[i]
		}
		r.Set(k, v)
	}
	return r
}

// Set stores v under key, appending the key the first time it is seen.
func (r *Row) Set(key string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = Normalize(v)
}

// Get returns the value of key; ok is false when the row has no such field.
func (r Row) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns a copy of the keys in row order.
func (r Row) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Len returns the number of fields.
func (r Row) Len() int {
	return len(r.keys)
}

// Values returns the values of fields; missing fields are nil.
func (r Row) Values(fields []string) []Value {
	out := make([]Value, len(fields))
	for i, f := range fields {
		out[i] = r.values[f]
	}
	return out
}

// MarshalJSON writes the row as a JSON object in key order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping document key order. Integral
// numbers become int64, others float64.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("row must be a JSON object")
	}

	*r = Row{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		r.Set(key, raw)
	}
	_, err = dec.Token()
	return err
}
