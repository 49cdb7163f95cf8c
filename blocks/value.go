package blocks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
)

func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "null"
	}
}

// Value is a loosely typed attribute value. Only the variant matching Kind is
// meaningful.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
	list []Value
	m    map[string]Value
}

// Constructors for each variant.
func Null() Value                  { return Value{} }
func Bool(v bool) Value            { return Value{kind: KindBool, b: v} }
func Int(v int64) Value            { return Value{kind: KindInt, i: v} }
func Float(v float64) Value        { return Value{kind: KindFloat, f: v} }
func String(v string) Value        { return Value{kind: KindString, s: v} }
func List(v ...Value) Value        { return Value{kind: KindList, list: v} }
func Map(v map[string]Value) Value { return Value{kind: KindMap, m: v} }

// Kind reports which variant v holds.
func (v Value) Kind() ValueKind {
	return v.kind
}

// AsString returns the string variant.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// AsBool returns the bool variant.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsInt returns the value as an integer. Floats with no fractional part are
// accepted since JSON does not distinguish the two.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if v.f == math.Trunc(v.f) && math.Abs(v.f) < 1<<53 {
			return int64(v.f), true
		}
	}
	return 0, false
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindString:
		return json.Marshal(v.s)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindMap:
		if v.m == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.m)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler. Integral numbers decode as
// KindInt, everything else numeric as KindFloat.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	val, err := fromAny(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func fromAny(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("blocks: bad number %q: %w", x, err)
		}
		return Float(f), nil
	case []any:
		list := make([]Value, len(x))
		for i, item := range x {
			val, err := fromAny(item)
			if err != nil {
				return Value{}, err
			}
			list[i] = val
		}
		return List(list...), nil
	case map[string]any:
		m := make(map[string]Value, len(x))
		for k, item := range x {
			val, err := fromAny(item)
			if err != nil {
				return Value{}, err
			}
			m[k] = val
		}
		return Map(m), nil
	default:
		return Value{}, fmt.Errorf("blocks: unsupported attribute type %T", raw)
	}
}
