package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"
)

// DataType represents the supported column types.
type DataType string

const (
	TypeString  DataType = "string"
	TypeNumber  DataType = "number"
	TypeBoolean DataType = "boolean"
)

// ParseDataType maps a schema type name to its DataType.
func ParseDataType(name string) (DataType, bool) {
	switch DataType(name) {
	case TypeString, TypeNumber, TypeBoolean:
		return DataType(name), true
	}
	return "", false
}

// Valid reports whether t is one of the declared types.
func (t DataType) Valid() bool {
	_, ok := ParseDataType(string(t))
	return ok
}

// Value holds the data for a single cell.
// Val is always a string, a finite float64 or a bool, matching Type.
type Value struct {
	Type DataType
	Val  interface{}
}

// String builds a String value.
func String(s string) Value { return Value{Type: TypeString, Val: s} }

// Number builds a Number value.
func Number(f float64) Value { return Value{Type: TypeNumber, Val: f} }

// Boolean builds a Boolean value.
func Boolean(b bool) Value { return Value{Type: TypeBoolean, Val: b} }

// Check verifies if the internal Val matches the Type.
func (v Value) Check() error {
	switch v.Type {
	case TypeString:
		str, ok := v.Val.(string)
		if !ok {
			return fmt.Errorf("expected string, got type %T", v.Val)
		}
		if !utf8.ValidString(str) {
			return fmt.Errorf("string is not valid UTF-8: %q", str)
		}
	case TypeNumber:
		f, ok := v.Val.(float64)
		if !ok {
			return fmt.Errorf("expected number, got type %T", v.Val)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("number is not finite: %v", f)
		}
	case TypeBoolean:
		if _, ok := v.Val.(bool); !ok {
			return fmt.Errorf("expected boolean, got type %T", v.Val)
		}
	default:
		return fmt.Errorf("unknown type: %q", v.Type)
	}
	return nil
}

// String returns a human readable representation of the value.
func (v Value) String() string {
	if v.Val == nil {
		return "null"
	}
	switch val := v.Val.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	}
	return fmt.Sprintf("%v", v.Val)
}

// AsString returns the value as string.
func (v Value) AsString() (string, error) {
	if v.Type != TypeString {
		return "", fmt.Errorf("not a string")
	}
	s, ok := v.Val.(string)
	if !ok {
		return "", fmt.Errorf("val is not string: %v", v.Val)
	}
	return s, nil
}

// AsNumber returns the value as float64.
func (v Value) AsNumber() (float64, error) {
	if v.Type != TypeNumber {
		return 0, fmt.Errorf("not a number")
	}
	f, ok := v.Val.(float64)
	if !ok {
		return 0, fmt.Errorf("val is not number: %v", v.Val)
	}
	return f, nil
}

// AsBool returns the value as bool.
func (v Value) AsBool() (bool, error) {
	if v.Type != TypeBoolean {
		return false, fmt.Errorf("not a boolean")
	}
	b, ok := v.Val.(bool)
	if !ok {
		return false, fmt.Errorf("val is not boolean: %v", v.Val)
	}
	return b, nil
}

// Compare returns -1 if v < other, 0 if v == other, 1 if v > other.
// Strings order by code point, booleans order false before true.
func (v Value) Compare(other Value) (int, error) {
	if v.Type != other.Type {
		return 0, fmt.Errorf("type mismatch: %s vs %s", v.Type, other.Type)
	}
	switch v.Type {
	case TypeNumber:
		f1, err := v.AsNumber()
		if err != nil {
			return 0, err
		}
		f2, err := other.AsNumber()
		if err != nil {
			return 0, err
		}
		return cmp(f1 < f2, f1 > f2), nil
	case TypeString:
		s1, err := v.AsString()
		if err != nil {
			return 0, err
		}
		s2, err := other.AsString()
		if err != nil {
			return 0, err
		}
		return cmp(s1 < s2, s1 > s2), nil
	case TypeBoolean:
		b1, err := v.AsBool()
		if err != nil {
			return 0, err
		}
		b2, err := other.AsBool()
		if err != nil {
			return 0, err
		}
		return cmp(!b1 && b2, b1 && !b2), nil
	}
	return 0, fmt.Errorf("unsupported comparison type: %s", v.Type)
}

func cmp(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

// MarshalJSON encodes the bare JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	if err := v.Check(); err != nil {
		return nil, err
	}
	return json.Marshal(v.Val)
}
