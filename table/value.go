// Package table provides the immutable, column-oriented tables that carry
// per-ticker time series and the assembled cross-sectional panels.
package table

import (
	"math"
	"strconv"
	"time"
)

// Kind identifies the type held by a Value or declared by a Column.
type Kind uint8

const (
	NullKind Kind = iota
	Float
	Int
	Bool
	String
	Time
)

func (k Kind) String() string {
	switch k {
	case NullKind:
		return "null"
	case Float:
		return "float"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case String:
		return "string"
	case Time:
		return "time"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k := NullKind; k <= Time; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return NullKind, false
}

// Value is a single cell: either missing (null) or a value of one kind.
// The zero Value is null.
type Value struct {
	kind Kind
	f    float64
	i    int64
	s    string
	t    time.Time
}

// Null returns the missing value.
func Null() Value { return Value{} }

// F returns a float value. NaN and infinities are treated as missing.
func F(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: Float, f: f}
}

// I returns an integer value.
func I(i int64) Value { return Value{kind: Int, i: i} }

// B returns a boolean value.
func B(b bool) Value {
	v := Value{kind: Bool}
	if b {
		v.i = 1
	}
	return v
}

// S returns a string value.
func S(s string) Value { return Value{kind: String, s: s} }

// T returns a time value.
func T(t time.Time) Value { return Value{kind: Time, t: t} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == NullKind }

// Float returns the numeric value. Ints and bools widen to float64.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case Float:
		return v.f, true
	case Int, Bool:
		return float64(v.i), true
	}
	return 0, false
}

// Int returns the integer value. Bools widen; floats are not truncated.
func (v Value) Int() (int64, bool) {
	switch v.kind {
	case Int, Bool:
		return v.i, true
	}
	return 0, false
}

func (v Value) Bool() (bool, bool) {
	if v.kind != Bool {
		return false, false
	}
	return v.i == 1, true
}

func (v Value) Str() (string, bool) {
	if v.kind != String {
		return "", false
	}
	return v.s, true
}

func (v Value) Time() (time.Time, bool) {
	if v.kind != Time {
		return time.Time{}, false
	}
	return v.t, true
}

// String renders the value the way it is written to delimited text.
// Null renders as the empty string, times as dates when they fall on midnight UTC.
func (v Value) String() string {
	switch v.kind {
	case Float:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Bool:
		return strconv.FormatBool(v.i == 1)
	case String:
		return v.s
	case Time:
		return FormatTime(v.t)
	}
	return ""
}

// Equal reports whether both values have the same kind and content.
// Two nulls are equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case NullKind:
		return true
	case Float:
		return v.f == o.f
	case Int, Bool:
		return v.i == o.i
	case String:
		return v.s == o.s
	case Time:
		return v.t.Equal(o.t)
	}
	return false
}

// Any returns the value as a plain Go value (nil for null).
func (v Value) Any() any {
	switch v.kind {
	case Float:
		return v.f
	case Int:
		return v.i
	case Bool:
		return v.i == 1
	case String:
		return v.s
	case Time:
		return v.t
	}
	return nil
}

// FormatTime writes midnight-UTC instants as plain dates and everything else as RFC3339.
func FormatTime(t time.Time) string {
	u := t.UTC()
	if u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0 {
		return u.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339Nano)
}

func lift(a, b Value, fn func(x, y float64) float64) Value {
	x, ok := a.Float()
	if !ok {
		return Value{}
	}
	y, ok := b.Float()
	if !ok {
		return Value{}
	}
	return F(fn(x, y))
}

// Add, Sub, Mul and Div are null-propagating: a null operand yields null, as
// does any non-finite result such as a division by zero.
func (v Value) Add(o Value) Value {
	return lift(v, o, func(x, y float64) float64 { return x + y })
}

func (v Value) Sub(o Value) Value {
	return lift(v, o, func(x, y float64) float64 { return x - y })
}

func (v Value) Mul(o Value) Value {
	return lift(v, o, func(x, y float64) float64 { return x * y })
}

func (v Value) Div(o Value) Value {
	return lift(v, o, func(x, y float64) float64 { return x / y })
}

// Log is the natural logarithm; non-positive inputs yield null.
func (v Value) Log() Value {
	x, ok := v.Float()
	if !ok || x <= 0 {
		return Value{}
	}
	return F(math.Log(x))
}

// Gt compares numerically and yields a Bool value, or null if either side is missing.
func (v Value) Gt(o Value) Value {
	x, ok := v.Float()
	if !ok {
		return Value{}
	}
	y, ok := o.Float()
	if !ok {
		return Value{}
	}
	return B(x > y)
}

func (v Value) Lt(o Value) Value {
	return o.Gt(v)
}
