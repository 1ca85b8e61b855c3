package domain

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
)

// ValueKind identifies the variant held by a Value
type ValueKind int

const (
	KindInvalid ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindMap
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// Value is an extended property value: a string, a number, a bool or a
// nested map of values. The zero Value is invalid and is never persisted.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	m    map[string]Value
}

// String creates a string value
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number creates a numeric value
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool creates a boolean value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Map creates a nested map value. The map is copied.
func Map(m map[string]Value) Value {
	return Value{kind: KindMap, m: maps.Clone(m)}
}

// Kind returns the variant held by v
func (v Value) Kind() ValueKind { return v.kind }

// IsValid reports whether v holds a variant
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// AsString returns the string held by v
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsNumber returns the number held by v
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsBool returns the bool held by v
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsMap returns a copy of the map held by v
func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return maps.Clone(v.m), true
}

// Equal reports whether two values hold the same variant and content
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindMap:
		return maps.EqualFunc(v.m, o.m, Value.Equal)
	default:
		return true
	}
}

// Any converts v into plain Go values suitable for generic encoders:
// string, float64, bool or map[string]any.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, child := range v.m {
			out[k] = child.Any()
		}
		return out
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return strconv.Quote(v.str)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindMap:
		keys := slices.Sorted(maps.Keys(v.m))
		s := "{"
		for i, k := range keys {
			if i > 0 {
				s += ", "
			}
			s += k + ": " + v.m[k].String()
		}
		return s + "}"
	default:
		return "<invalid>"
	}
}

// ValueFromAny converts a decoded generic value back into a Value.
// Integer kinds produced by binary decoders are widened to float64.
func ValueFromAny(x any) (Value, error) {
	switch t := x.(type) {
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, child := range t {
			cv, err := ValueFromAny(child)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			m[k] = cv
		}
		return Value{kind: KindMap, m: m}, nil
	default:
		return Value{}, fmt.Errorf("unsupported property value of type %T", x)
	}
}

// Properties is the open, string-keyed map of extended fields carried by
// nodes and edges
type Properties map[string]Value

// Clone returns a shallow copy of p; nil stays nil
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// Equal compares two property maps; nil and empty are equal
func (p Properties) Equal(o Properties) bool {
	return maps.EqualFunc(p, o, Value.Equal)
}

// Any converts p for generic encoders. Empty maps become nil so that
// records without properties encode without the field.
func (p Properties) Any() map[string]any {
	if len(p) == 0 {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v.Any()
	}
	return out
}

// PropertiesFromAny converts a decoded generic map into Properties
func PropertiesFromAny(m map[string]any) (Properties, error) {
	if len(m) == 0 {
		return nil, nil
	}
	p := make(Properties, len(m))
	for k, x := range m {
		v, err := ValueFromAny(x)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", k, err)
		}
		p[k] = v
	}
	return p, nil
}

// Validate rejects empty keys and invalid values
func (p Properties) Validate() error {
	for k, v := range p {
		if k == "" {
			return &ValidationError{Field: "extendedProperties", Message: "property key must not be empty"}
		}
		if err := validateValue(k, v); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(key string, v Value) error {
	switch v.kind {
	case KindInvalid:
		return &ValidationError{Field: "extendedProperties", Message: fmt.Sprintf("property %s has no value", key)}
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return &ValidationError{Field: "extendedProperties", Message: fmt.Sprintf("property %s is not a finite number", key)}
		}
	case KindMap:
		for k, child := range v.m {
			if k == "" {
				return &ValidationError{Field: "extendedProperties", Message: fmt.Sprintf("property %s has an empty nested key", key)}
			}
			if err := validateValue(key+"."+k, child); err != nil {
				return err
			}
		}
	}
	return nil
}
