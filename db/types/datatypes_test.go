package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataType(t *testing.T) {
	for _, name := range []string{"string", "number", "boolean"} {
		dt, ok := ParseDataType(name)
		assert.True(t, ok, name)
		assert.Equal(t, DataType(name), dt)
	}
	for _, name := range []string{"", "int", "String", "bool", "date"} {
		_, ok := ParseDataType(name)
		assert.False(t, ok, name)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b Value
		want int
	}{
		{Number(1), Number(2), -1},
		{Number(2.5), Number(2.5), 0},
		{Number(-1), Number(-2), 1},
		{String("Alice"), String("Bob"), -1},
		{String("b"), String("B"), 1},
		{String(""), String(""), 0},
		{Boolean(false), Boolean(true), -1},
		{Boolean(true), Boolean(true), 0},
		{Boolean(true), Boolean(false), 1},
	}
	for _, tt := range tests {
		got, err := tt.a.Compare(tt.b)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v vs %v", tt.a, tt.b)
	}

	_, err := Number(1).Compare(String("1"))
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	assert.NoError(t, String("x").Check())
	assert.NoError(t, Number(0).Check())
	assert.NoError(t, Boolean(false).Check())

	assert.Error(t, Number(math.NaN()).Check())
	assert.Error(t, Number(math.Inf(1)).Check())
	assert.Error(t, Value{Type: TypeString, Val: 3.0}.Check())
	assert.Error(t, Value{Type: "date", Val: "2024-01-01"}.Check())
	assert.Error(t, String("a\xffb").Check())
	assert.NoError(t, String("ünïcode").Check())
}

func TestMarshalJSON(t *testing.T) {
	b, err := String(`say "hi"`).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"say \"hi\""`, string(b))

	b, err = Number(30).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `30`, string(b))

	b, err = Boolean(true).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `true`, string(b))

	_, err = Number(math.Inf(-1)).MarshalJSON()
	assert.Error(t, err)
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "41.5", Number(41.5).String())
	assert.Equal(t, "false", Boolean(false).String())
	assert.Equal(t, "Bob", String("Bob").String())
	assert.Equal(t, "null", Value{}.String())
}
