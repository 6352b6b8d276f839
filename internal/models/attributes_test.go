package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributesDecodeVariants(t *testing.T) {
	var attrs Attributes
	err := json.Unmarshal([]byte(`{
		"color": "red",
		"weight": 12.500,
		"fragile": true,
		"dims": {"w": 10, "h": 0.1, "unit": "cm"}
	}`), &attrs)
	require.NoError(t, err)

	color, ok := attrs["color"].AsString()
	assert.True(t, ok)
	assert.Equal(t, "red", color)

	weight, ok := attrs["weight"].AsNumber()
	assert.True(t, ok)
	assert.True(t, weight.Equal(decimal.RequireFromString("12.5")))

	fragile, ok := attrs["fragile"].AsBool()
	assert.True(t, ok)
	assert.True(t, fragile)

	dims, ok := attrs["dims"].AsMap()
	require.True(t, ok)
	assert.Equal(t, KindNumber, dims["h"].Kind())
	assert.Equal(t, KindString, dims["unit"].Kind())
}

func TestAttributesKeepDecimalPrecision(t *testing.T) {
	attrs := Attributes{"price": NumberValue(decimal.RequireFromString("0.1000000000000000000000001"))}

	data, err := json.Marshal(attrs)
	require.NoError(t, err)
	assert.JSONEq(t, `{"price": 0.1000000000000000000000001}`, string(data))

	var back Attributes
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, attrs.Equal(back))
}

func TestAttributesRejectArraysAndNull(t *testing.T) {
	var attrs Attributes
	err := json.Unmarshal([]byte(`{"tags": ["a", "b"]}`), &attrs)
	assert.ErrorIs(t, err, ErrUnsupportedAttribute)

	err = json.Unmarshal([]byte(`{"nested": {"gone": null}}`), &attrs)
	assert.ErrorIs(t, err, ErrUnsupportedAttribute)
}

func TestAttributeZeroValueDoesNotMarshal(t *testing.T) {
	_, err := json.Marshal(Attributes{"empty": {}})
	assert.Error(t, err)
}

func TestAttributesValueAndScan(t *testing.T) {
	var nilAttrs Attributes
	v, err := nilAttrs.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)

	attrs := Attributes{
		"aisle": IntValue(4),
		"meta":  MapValue(Attributes{"checked": BoolValue(false)}),
	}
	v, err = attrs.Value()
	require.NoError(t, err)

	var scanned Attributes
	require.NoError(t, scanned.Scan(v))
	assert.True(t, attrs.Equal(scanned))

	require.NoError(t, scanned.Scan(`{"x":"y"}`))
	assert.True(t, scanned.Equal(Attributes{"x": StringValue("y")}))

	require.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)

	assert.Error(t, scanned.Scan(42))
}

func TestAttributeEqual(t *testing.T) {
	assert.True(t, NumberValue(decimal.RequireFromString("1.50")).Equal(NumberValue(decimal.RequireFromString("1.5"))))
	assert.False(t, StringValue("1").Equal(IntValue(1)))
	assert.False(t, Attributes{"a": BoolValue(true)}.Equal(Attributes{"b": BoolValue(true)}))
}
