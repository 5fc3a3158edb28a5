// Package dataset holds the columnar data fetched for a file.
//
// A Dataset maps column names to equally long sequences of cells. It is
// immutable once built: accessors hand out copies, never the backing slices.
// The JSON form is the backend's column-oriented object:
//
//	{"city": ["A", "B"], "age": [10, 20]}
package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrRaggedColumns is returned when columns disagree on the row count.
var ErrRaggedColumns = errors.New("columns have different lengths")

// Column is a named sequence of cells.
type Column struct {
	Name   string
	Values []Value
}

// Dataset is an immutable set of equally long columns.
type Dataset struct {
	names   []string
	columns map[string][]Value
	rows    int
}

// Empty returns a dataset with no columns and no rows.
func Empty() *Dataset {
	return &Dataset{columns: map[string][]Value{}}
}

// New builds a dataset from columns, keeping their order.
func New(cols ...Column) (*Dataset, error) {
	d := &Dataset{
		names:   make([]string, 0, len(cols)),
		columns: make(map[string][]Value, len(cols)),
	}
	for i, c := range cols {
		if _, dup := d.columns[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if i == 0 {
			d.rows = len(c.Values)
		} else if len(c.Values) != d.rows {
			return nil, fmt.Errorf("%w: %q has %d rows, want %d", ErrRaggedColumns, c.Name, len(c.Values), d.rows)
		}
		d.names = append(d.names, c.Name)
		d.columns[c.Name] = slices.Clone(c.Values)
	}
	return d, nil
}

// FromMap builds a dataset from an unordered map. Columns are sorted by name.
func FromMap(m map[string][]Value) (*Dataset, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		cols = append(cols, Column{Name: name, Values: m[name]})
	}
	return New(cols...)
}

// RowCount returns the shared column length.
func (d *Dataset) RowCount() int {
	if d == nil {
		return 0
	}
	return d.rows
}

// IsEmpty reports whether the dataset has no rows.
func (d *Dataset) IsEmpty() bool {
	return d.RowCount() == 0
}

// ColumnNames returns the column names in their original order.
func (d *Dataset) ColumnNames() []string {
	if d == nil {
		return nil
	}
	return slices.Clone(d.names)
}

// Has reports whether the dataset carries the named column.
func (d *Dataset) Has(name string) bool {
	if d == nil {
		return false
	}
	_, ok := d.columns[name]
	return ok
}

// Column returns a copy of the named column.
func (d *Dataset) Column(name string) ([]Value, bool) {
	if d == nil {
		return nil, false
	}
	vals, ok := d.columns[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(vals), true
}

// Labels renders the named column as strings, one per row.
func (d *Dataset) Labels(name string) ([]string, bool) {
	if d == nil {
		return nil, false
	}
	vals, ok := d.columns[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.String()
	}
	return out, true
}

// Floats returns the numeric cells of the named column, skipping missing and
// non-numeric ones.
func (d *Dataset) Floats(name string) ([]float64, bool) {
	if d == nil {
		return nil, false
	}
	vals, ok := d.columns[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if f, ok := v.Float(); ok {
			out = append(out, f)
		}
	}
	return out, true
}

// MarshalJSON encodes the dataset as a column-oriented object, preserving
// column order.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if d != nil {
		for i, name := range d.names {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(name)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			vals, err := json.Marshal(d.columns[name])
			if err != nil {
				return nil, err
			}
			buf.Write(vals)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a column-oriented object, preserving the key order of
// the payload. Ragged columns are rejected with ErrRaggedColumns.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading dataset: %w", err)
	}
	if tok == nil {
		*d = *Empty()
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("dataset must be a JSON object")
	}

	var cols []Column
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("reading column name: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected column name token %v", keyTok)
		}
		var vals []Value
		if err := dec.Decode(&vals); err != nil {
			return fmt.Errorf("decoding column %q: %w", name, err)
		}
		cols = append(cols, Column{Name: name, Values: vals})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("reading dataset end: %w", err)
	}

	built, err := New(cols...)
	if err != nil {
		return err
	}
	*d = *built
	return nil
}
