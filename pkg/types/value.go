package types

import (
	"fmt"
	"math"
	"strconv"
)

// ValueKind identifies the scalar type stored at a configuration path.
type ValueKind int

const (
	// KindNull is the zero kind. Writing a null value clears the path.
	KindNull ValueKind = iota
	KindInt
	KindLong
	KindDouble
	KindText
	// KindBool is stored as an integer 0 or 1; the store has no native
	// boolean column.
	KindBool
)

var kindNames = map[ValueKind]string{
	KindNull:   "null",
	KindInt:    "int",
	KindLong:   "long",
	KindDouble: "double",
	KindText:   "string",
	KindBool:   "bool",
}

func (k ValueKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ValueKind(%d)", int(k))
}

// ParseKind converts a kind name ("int", "long", "double", "string", "bool")
// into a ValueKind. "text", "float" and "boolean" are accepted as aliases.
func ParseKind(s string) (ValueKind, error) {
	switch s {
	case "int", "integer":
		return KindInt, nil
	case "long":
		return KindLong, nil
	case "double", "float":
		return KindDouble, nil
	case "string", "text":
		return KindText, nil
	case "bool", "boolean":
		return KindBool, nil
	default:
		return KindNull, fmt.Errorf("%w: %q", ErrUnsupportedType, s)
	}
}

// Value is a closed variant over the scalar kinds a path can hold.
// The zero Value is null.
type Value struct {
	kind ValueKind
	i    int64
	f    float64
	s    string
}

// Null returns the null value.
func Null() Value { return Value{} }

// Int returns an int value.
func Int(v int) Value { return Value{kind: KindInt, i: int64(v)} }

// Long returns a 64-bit integer value.
func Long(v int64) Value { return Value{kind: KindLong, i: v} }

// Double returns a floating point value.
func Double(v float64) Value { return Value{kind: KindDouble, f: v} }

// Text returns a string value.
func Text(v string) Value { return Value{kind: KindText, s: v} }

// Bool returns a boolean value.
func Bool(v bool) Value {
	if v {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool}
}

// Kind returns the kind of v.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Storage returns the kind and the Go value bound into the value column.
// Booleans are mapped to the integers 0 and 1.
func (v Value) Storage() (ValueKind, any) {
	switch v.kind {
	case KindInt:
		return KindInt, v.i
	case KindLong:
		return KindLong, v.i
	case KindDouble:
		return KindDouble, v.f
	case KindText:
		return KindText, v.s
	case KindBool:
		return KindInt, v.i
	default:
		return v.kind, nil
	}
}

// Interface returns v as a plain Go value: int, int64, float64, string,
// bool, or nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindInt:
		return int(v.i)
	case KindLong:
		return v.i
	case KindDouble:
		return v.f
	case KindText:
		return v.s
	case KindBool:
		return v.i != 0
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindInt, KindLong:
		return strconv.FormatInt(v.i, 10)
	case KindDouble:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.i != 0)
	default:
		return ""
	}
}

// ValueOf converts a Go value into a Value. Integers that fit in 32 bits
// become KindInt, wider ones KindLong. uint32, uint and uint64 always become
// KindLong; unsigned values above math.MaxInt64 are unsupported. Lists, maps, structs and any other
// type return ErrUnsupportedType.
func ValueOf(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case int:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return Long(int64(v)), nil
		}
		return Int(v), nil
	case int8:
		return Int(int(v)), nil
	case int16:
		return Int(int(v)), nil
	case int32:
		return Int(int(v)), nil
	case int64:
		return Long(v), nil
	case uint8:
		return Int(int(v)), nil
	case uint16:
		return Int(int(v)), nil
	case uint32:
		return Long(int64(v)), nil
	case uint:
		return unsignedValue(uint64(v))
	case uint64:
		return unsignedValue(v)
	case float32:
		return Double(float64(v)), nil
	case float64:
		return Double(v), nil
	case string:
		return Text(v), nil
	case bool:
		return Bool(v), nil
	default:
		return Null(), fmt.Errorf("%w: %T", ErrUnsupportedType, x)
	}
}

// unsignedValue maps n to KindLong, or ErrUnsupportedType when it does not
// fit in an int64.
func unsignedValue(n uint64) (Value, error) {
	if n > math.MaxInt64 {
		return Null(), fmt.Errorf("%w: integer %d overflows int64", ErrUnsupportedType, n)
	}
	return Long(int64(n)), nil
}

// ParseValue parses s as a value of the given kind.
func ParseValue(kind ValueKind, s string) (Value, error) {
	switch kind {
	case KindInt:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return Null(), fmt.Errorf("parse int: %w", err)
		}
		return Int(int(n)), nil
	case KindLong:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Null(), fmt.Errorf("parse long: %w", err)
		}
		return Long(n), nil
	case KindDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Null(), fmt.Errorf("parse double: %w", err)
		}
		return Double(f), nil
	case KindText:
		return Text(s), nil
	case KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Null(), fmt.Errorf("parse bool: %w", err)
		}
		return Bool(b), nil
	default:
		return Null(), fmt.Errorf("%w: %s", ErrUnsupportedType, kind)
	}
}
