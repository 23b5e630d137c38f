// internal/toolcode/value.go
package toolcode

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Kind identifies which member of the Value union is set.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "string"
	}
}

// Value is a coerced argument literal: Bool, Int, Float or String.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
}

// BoolValue wraps b.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// IntValue wraps i.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue wraps f.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// StringValue wraps s.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// Kind reports the member that is set.
func (v Value) Kind() Kind { return v.kind }

// Bool returns the boolean member and whether v is a Bool.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Int returns the integer member and whether v is an Int.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Float returns the float member and whether v is a Float.
func (v Value) Float() (float64, bool) { return v.f, v.kind == KindFloat }

// Str returns the string member and whether v is a String.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Interface returns v as a plain Go value (bool, int64, float64 or string).
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	default:
		return v.s
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	default:
		return v.s
	}
}

// MarshalJSON renders floats with a fractional part so 5.0 stays distinguishable from 5.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool, KindInt:
		return []byte(v.String()), nil
	case KindFloat:
		return []byte(formatFloat(v.f)), nil
	default:
		return marshalString(v.s)
	}
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Arguments is an ordered key/value mapping. Keys keep first-seen order and a
// repeated key overwrites the earlier value in place.
type Arguments struct {
	keys   []string
	values map[string]Value
}

// Set stores value under key.
func (a *Arguments) Set(key string, value Value) {
	if a.values == nil {
		a.values = make(map[string]Value)
	}
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

// Get returns the value stored under key.
func (a Arguments) Get(key string) (Value, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Keys returns the keys in first-seen order.
func (a Arguments) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Len returns the number of distinct keys.
func (a Arguments) Len() int { return len(a.keys) }

// Map converts the arguments to a plain map, e.g. for schema validation.
func (a Arguments) Map() map[string]any {
	out := make(map[string]any, len(a.keys))
	for _, k := range a.keys {
		out[k] = a.values[k].Interface()
	}
	return out
}

// MarshalJSON renders the arguments as a JSON object in key order.
func (a Arguments) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalString(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := a.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ParseArgument splits a key=value segment and coerces the value. It reports
// false when the segment has no '='.
func ParseArgument(segment string) (string, Value, bool) {
	key, raw, found := strings.Cut(segment, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" {
		return "", Value{}, false
	}
	return key, Coerce(unquote(strings.TrimSpace(raw))), true
}

// unquote strips one matching pair of single or double quotes.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if first == last && (first == '\'' || first == '"') {
		return s[1 : len(s)-1]
	}
	return s
}

// Coerce maps a literal to the first matching type: bool, int, float, negative
// int or float, then string. Quoted numerals are coerced too, because callers
// strip quotes first.
func Coerce(s string) Value {
	switch strings.ToLower(s) {
	case "true":
		return BoolValue(true)
	case "false":
		return BoolValue(false)
	}
	if isDigits(s) {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return IntValue(i)
		}
		return StringValue(s)
	}
	if isDecimal(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return FloatValue(f)
		}
		return StringValue(s)
	}
	if rest, ok := strings.CutPrefix(s, "-"); ok && (isDigits(rest) || isDecimal(rest)) {
		if strings.Contains(rest, ".") {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return FloatValue(f)
			}
		} else if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return IntValue(i)
		}
	}
	return StringValue(s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// isDecimal reports exactly one '.' with digits around it; either side may be empty.
func isDecimal(s string) bool {
	if strings.Count(s, ".") != 1 {
		return false
	}
	return isDigits(strings.Replace(s, ".", "", 1))
}
