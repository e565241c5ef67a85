package insight

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Cell is a single named value in a [Row].
type Cell struct {
	Key   string
	Value any
}

// Row is a record returned by the analysis backend.
//
// A [Row] remembers the order in which its fields were received: chart bindings are inferred
// from this order, so it is preserved when decoding and encoding JSON.
//
// Numbers decoded from JSON are held as [json.Number].
type Row struct {
	keys   []string
	values map[string]any
}

// NewRow builds a [Row] from cells, in order. A repeated key overrides the earlier value but keeps its position.
func NewRow(cells ...Cell) Row {
	r := Row{values: make(map[string]any, len(cells))}
	for _, c := range cells {
		r.set(c.Key, c.Value)
	}

	return r
}

// Keys returns the field names in their original order.
func (r Row) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)

	return keys
}

// Get returns the value of a field.
func (r Row) Get(key string) (any, bool) {
	v, ok := r.values[key]

	return v, ok
}

// Len returns the number of fields.
func (r Row) Len() int {
	return len(r.keys)
}

// Cells returns the fields of the row, in order.
func (r Row) Cells() []Cell {
	cells := make([]Cell, 0, len(r.keys))
	for _, k := range r.keys {
		cells = append(cells, Cell{Key: k, Value: r.values[k]})
	}

	return cells
}

func (r *Row) set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}

	if _, seen := r.values[key]; !seen {
		r.keys = append(r.keys, key)
	}

	r.values[key] = value
}

// MarshalJSON encodes the row as a JSON object, keeping the field order.
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

		value, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("encoding field %q: %w", k, err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the field order. A JSON null yields an empty row.
func (r *Row) UnmarshalJSON(data []byte) error {
	*r = Row{values: make(map[string]any)}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if tok == nil {
		return nil
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("row: expected a JSON object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}

		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("row: unexpected token %v", tok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("row: decoding field %q: %w", key, err)
		}

		r.set(key, value)
	}

	_, err = dec.Token() // closing brace

	return err
}
