package storage

import (
	"math"
	"strconv"
	"strings"
)

// Value is a tagged scalar: NULL, INT (int64), FLOAT (float64), TEXT (shared
// immutable handle) or BOOL. Only the field matching kind is meaningful.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    Text
	b    bool
}

// Row is an ordered sequence of values, one per column.
type Row []Value

func NullValue() Value           { return Value{} }
func IntValue(v int64) Value     { return Value{kind: KindInt, i: v} }
func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }
func TextValue(v Text) Value     { return Value{kind: KindText, s: v} }
func StringValue(s string) Value { return TextValue(NewText(s)) }
func BoolValue(v bool) Value     { return Value{kind: KindBool, b: v} }
func (v Value) Kind() Kind       { return v.kind }
func (v Value) IsNull() bool     { return v.kind == KindNull }

func (v Value) AsInt() (int64, bool)     { return v.i, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }
func (v Value) AsText() (Text, bool)     { return v.s, v.kind == KindText }
func (v Value) AsBool() (bool, bool)     { return v.b, v.kind == KindBool }

// AsString returns the payload of a TEXT value.
func (v Value) AsString() (string, bool) { return v.s.String(), v.kind == KindText }

// Any converts the value to a plain Go value (nil, int64, float64, string,
// bool). Used by the database/sql driver and by tests.
func (v Value) Any() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindText:
		return v.s.String()
	case KindBool:
		return v.b
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return v.s.String()
	case KindBool:
		if v.b {
			return "TRUE"
		}
		return "FALSE"
	}
	return "NULL"
}

// Equal reports structural equality: same kind and same payload. NULL equals
// NULL here; SQL comparison semantics live in the engine.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindText:
		return v.s.String() == o.s.String()
	case KindBool:
		return v.b == o.b
	}
	return true
}

// Compare orders two non-NULL values. INT and FLOAT compare numerically with
// each other; every other pairing requires identical kinds. ok is false for
// incomparable kinds or when either side is NULL.
func Compare(a, b Value) (c int, ok bool) {
	if a.kind == KindNull || b.kind == KindNull {
		return 0, false
	}
	switch {
	case a.kind == KindInt && b.kind == KindInt:
		return cmpOrdered(a.i, b.i), true
	case a.kind.Numeric() && b.kind.Numeric():
		return compareNumeric(a, b), true
	case a.kind == KindText && b.kind == KindText:
		return strings.Compare(a.s.String(), b.s.String()), true
	case a.kind == KindBool && b.kind == KindBool:
		switch {
		case a.b == b.b:
			return 0, true
		case !a.b:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

// compareNumeric compares mixed INT/FLOAT operands. Integers beyond 2^53
// are compared against the float's integral part to avoid rounding the int.
func compareNumeric(a, b Value) int {
	if a.kind == KindFloat && b.kind == KindFloat {
		return cmpFloat(a.f, b.f)
	}
	if a.kind == KindInt {
		return -compareIntFloat(b.f, a.i)
	}
	return compareIntFloat(a.f, b.i)
}

func compareIntFloat(f float64, i int64) int {
	switch {
	case math.IsNaN(f):
		return -1
	case f >= 9.223372036854775807e18:
		return 1
	case f < -9.223372036854775808e18:
		return -1
	}
	whole := math.Trunc(f)
	if c := cmpOrdered(int64(whole), i); c != 0 {
		return c
	}
	return cmpOrdered(f-whole, 0)
}

// cmpFloat orders NaN below every other float and equal to itself.
func cmpFloat(a, b float64) int {
	an, bn := math.IsNaN(a), math.IsNaN(b)
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}
	return cmpOrdered(a, b)
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
