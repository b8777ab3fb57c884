package conditions

import (
	"fmt"
	"strconv"
)

// Kind discriminates attribute value variants.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
)

// Value is a tagged attribute value.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// String wraps a string attribute value.
func String(value string) Value {
	return Value{kind: KindString, str: value}
}

// Number wraps a numeric attribute value.
func Number(value float64) Value {
	return Value{kind: KindNumber, num: value}
}

// Int wraps an integer attribute value as a number.
func Int(value int) Value {
	return Number(float64(value))
}

// Bool wraps a boolean attribute value.
func Bool(value bool) Value {
	return Value{kind: KindBool, b: value}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind {
	return v.kind
}

// AsString returns the string form of the value.
func (v Value) AsString() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// AsNumber returns the numeric form and whether the conversion is exact.
// Strings convert when they parse as a float; booleans never convert.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		parsed, err := strconv.ParseFloat(v.str, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// AsBool returns the boolean form and whether the conversion is exact.
func (v Value) AsBool() (bool, bool) {
	if v.kind == KindBool {
		return v.b, true
	}
	return false, false
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return fmt.Sprintf("string(%q)", v.str)
	case KindNumber:
		return fmt.Sprintf("number(%s)", strconv.FormatFloat(v.num, 'f', -1, 64))
	case KindBool:
		return fmt.Sprintf("bool(%t)", v.b)
	default:
		return "unknown"
	}
}

// AttributeSet maps attribute paths to typed values for one episode.
type AttributeSet map[string]Value

// Lookup returns the attribute value for a path.
func (a AttributeSet) Lookup(path string) (Value, bool) {
	value, ok := a[path]
	return value, ok
}
