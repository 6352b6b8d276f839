package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type AttributeKind uint8

const (
	KindString AttributeKind = iota + 1
	KindNumber
	KindBool
	KindMap
)

func (k AttributeKind) String() string {
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

var ErrUnsupportedAttribute = errors.New("unsupported attribute value")

// AttributeValue is one value in an item's user attributes. Exactly one of
// the variants is set, selected by Kind. Numbers are kept as decimals so
// that a value survives a JSONB round trip without float rounding.
type AttributeValue struct {
	kind AttributeKind
	str  string
	num  decimal.Decimal
	b    bool
	m    Attributes
}

// Attributes is the schema-less extension map stored in user_attributes.
type Attributes map[string]AttributeValue

func StringValue(s string) AttributeValue { return AttributeValue{kind: KindString, str: s} }

func NumberValue(d decimal.Decimal) AttributeValue { return AttributeValue{kind: KindNumber, num: d} }

func IntValue(i int64) AttributeValue { return NumberValue(decimal.NewFromInt(i)) }

func BoolValue(b bool) AttributeValue { return AttributeValue{kind: KindBool, b: b} }

func MapValue(m Attributes) AttributeValue {
	if m == nil {
		m = Attributes{}
	}
	return AttributeValue{kind: KindMap, m: m}
}

func (v AttributeValue) Kind() AttributeKind { return v.kind }

func (v AttributeValue) AsString() (string, bool) { return v.str, v.kind == KindString }

func (v AttributeValue) AsNumber() (decimal.Decimal, bool) { return v.num, v.kind == KindNumber }

func (v AttributeValue) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

func (v AttributeValue) AsMap() (Attributes, bool) { return v.m, v.kind == KindMap }

// Equal compares by value; numbers compare numerically so 1.50 equals 1.5.
func (v AttributeValue) Equal(other AttributeValue) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindNumber:
		return v.num.Equal(other.num)
	case KindBool:
		return v.b == other.b
	case KindMap:
		return v.m.Equal(other.m)
	default:
		return true
	}
}

func (v AttributeValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return []byte(v.num.String()), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindMap:
		return json.Marshal(v.m)
	default:
		return nil, fmt.Errorf("marshal attribute: %w: empty value", ErrUnsupportedAttribute)
	}
}

func (v *AttributeValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("unmarshal attribute: %w", err)
	}

	parsed, err := fromRaw(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func fromRaw(raw interface{}) (AttributeValue, error) {
	switch t := raw.(type) {
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return AttributeValue{}, fmt.Errorf("unmarshal attribute number %q: %w", t, err)
		}
		return NumberValue(d), nil
	case map[string]interface{}:
		m := make(Attributes, len(t))
		for key, nested := range t {
			val, err := fromRaw(nested)
			if err != nil {
				return AttributeValue{}, fmt.Errorf("%s: %w", key, err)
			}
			m[key] = val
		}
		return MapValue(m), nil
	case nil:
		return AttributeValue{}, fmt.Errorf("%w: null", ErrUnsupportedAttribute)
	default:
		return AttributeValue{}, fmt.Errorf("%w: %T", ErrUnsupportedAttribute, raw)
	}
}

func (a Attributes) Equal(other Attributes) bool {
	if len(a) != len(other) {
		return false
	}
	for key, val := range a {
		o, ok := other[key]
		if !ok || !val.Equal(o) {
			return false
		}
	}
	return true
}

// Value stores the map as JSONB text. A nil map is written as an empty object.
func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (a *Attributes) Scan(src interface{}) error {
	var data []byte
	switch t := src.(type) {
	case nil:
		*a = Attributes{}
		return nil
	case []byte:
		data = t
	case string:
		data = []byte(t)
	default:
		return fmt.Errorf("scan attributes: unexpected type %T", src)
	}

	m := Attributes{}
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("scan attributes: %w", err)
	}
	*a = m
	return nil
}
