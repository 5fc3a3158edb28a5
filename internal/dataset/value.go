package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind classifies a single cell.
type Kind uint8

const (
	// Missing covers JSON null and the NaN/Inf values the backend scrubs to null.
	Missing Kind = iota
	Number
	Text
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case Text:
		return "text"
	default:
		return "missing"
	}
}

// Value is one cell of a column: numeric, categorical, or missing.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Num returns a numeric value. NaN and infinities become Missing.
func Num(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: Number, num: f}
}

// Str returns a categorical value.
func Str(s string) Value {
	return Value{kind: Text, text: s}
}

// Null returns a missing value.
func Null() Value {
	return Value{}
}

// Kind reports the cell kind.
func (v Value) Kind() Kind {
	return v.kind
}

// IsMissing reports whether the cell has no value.
func (v Value) IsMissing() bool {
	return v.kind == Missing
}

// Float returns the numeric reading of the cell. Text cells that parse as a
// finite number are accepted; everything else reports false.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case Number:
		return v.num, true
	case Text:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// String renders the cell as an axis label.
func (v Value) String() string {
	switch v.kind {
	case Number:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case Text:
		return v.text
	default:
		return ""
	}
}

// MarshalJSON encodes the cell as a JSON number, string, or null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Number:
		return json.Marshal(v.num)
	case Text:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a scalar cell. Booleans are kept as text; nested
// arrays and objects are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Str(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Str(strconv.FormatBool(b))
	case '[', '{':
		return fmt.Errorf("cell must be a scalar, got %q", truncate(data, 32))
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("parsing number %q: %w", truncate(data, 32), err)
		}
		*v = Num(f)
	}
	return nil
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
