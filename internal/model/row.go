package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

// Row is a dynamically-shaped record that remembers the order in which its
// columns were declared. The zero value is an empty row.
type Row struct {
	keys   []string
	values map[string]any
}

// Field is one column/value pair used to build a Row.
type Field struct {
	Key   string
	Value any
}

// NewRow builds a row from fields in declaration order. A repeated key keeps
// its first position and takes the last value.
func NewRow(fields ...Field) Row {
	r := Row{values: make(map[string]any, len(fields))}
	for _, f := range fields {
		r.Set(f.Key, f.Value)
	}
	return r
}

// Set assigns a value, appending the key when it is new.
func (r *Row) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Keys returns the column names in declaration order.
func (r Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// FirstKey returns the first declared column.
func (r Row) FirstKey() (string, bool) {
	if len(r.keys) == 0 {
		return "", false
	}
	return r.keys[0], true
}

// Len returns the number of columns.
func (r Row) Len() int { return len(r.keys) }

// Get returns the raw value stored under key.
func (r Row) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// String renders the value under key as text. Integral numbers are rendered
// without a fractional part so numeric identifiers compare as strings.
func (r Row) String(key string) (string, bool) {
	v, ok := r.values[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case json.Number:
		return numberText(t), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return fmt.Sprint(t), true
	}
}

// Float returns the value under key as a float64. Numeric strings are
// accepted because the service may serialize numbers as text.
func (r Row) Float(key string) (float64, bool) {
	v, ok := r.values[key]
	if !ok {
		return 0, false
	}
	return ToFloat(v)
}

// Clone returns a copy that shares no mutable state with r.
func (r Row) Clone() Row {
	out := Row{keys: r.Keys(), values: make(map[string]any, len(r.values))}
	for k, v := range r.values {
		out.values[k] = v
	}
	return out
}

// MarshalJSON encodes the row as an object with keys in declaration order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, eris.Wrap(err, "model: marshal row key")
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, eris.Wrapf(err, "model: marshal row value %s", k)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping its key order.
func (r *Row) UnmarshalJSON(data []byte) error {
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return eris.New("model: row is not a JSON object")
	}
	*r = RowFromJSON(res)
	return nil
}

// RowFromJSON converts a parsed JSON object into a Row, preserving key order.
func RowFromJSON(res gjson.Result) Row {
	row := Row{values: make(map[string]any)}
	res.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.Number {
			row.Set(key.String(), json.Number(value.Raw))
		} else {
			row.Set(key.String(), value.Value())
		}
		return true
	})
	return row
}

// numberText keeps integer literals verbatim so identifiers wider than a
// float64 mantissa survive. Fractional literals are normalized like floats.
func numberText(n json.Number) string {
	raw := n.String()
	if !strings.ContainsAny(raw, ".eE") {
		return raw
	}
	f, err := n.Float64()
	if err != nil {
		return raw
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToFloat coerces numbers and numeric strings to float64.
func ToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
