package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pngdb/db/types"
)

func people(t *testing.T) *Schema {
	t.Helper()
	s, err := Parse(`{"name":"string","age":"number"}`)
	require.NoError(t, err)
	return s
}

func TestDecodeRecord(t *testing.T) {
	s := people(t)

	data, err := s.DecodeRecord(`{"age":30,"name":"Alice"}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]types.Value{
		"name": types.String("Alice"),
		"age":  types.Number(30),
	}, data)

	b, err := s.EncodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Alice","age":30}`, string(b))
}

func TestDecodeRecordErrors(t *testing.T) {
	s := people(t)

	tests := []struct {
		text   string
		column string
		actual string
	}{
		{`{"name":"Alice"}`, "age", "missing"},
		{`{"name":"Alice","age":"30"}`, "age", "string"},
		{`{"name":true,"age":30}`, "name", "boolean"},
		{`{"name":"Alice","age":30,"email":"a@b"}`, "email", "string"},
		{`{"name":"Alice","age":[30]}`, "age", "array"},
		{`{"name":"Alice","age":1e999}`, "age", "number"},
	}
	for _, tt := range tests {
		_, err := s.DecodeRecord(tt.text)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, tt.text)
		assert.Equal(t, tt.column, ve.Column, tt.text)
		assert.Equal(t, tt.actual, ve.Actual, tt.text)
		assert.ErrorIs(t, err, ErrValidation)
	}

	for _, text := range []string{``, `null`, `[]`, `"Alice"`, `{"name":"A","age":1`} {
		_, err := s.DecodeRecord(text)
		assert.ErrorIs(t, err, ErrValidation, text)
	}

	_, err := s.DecodeRecord(`{"name":"A","name":"B","age":1}`)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "duplicate key", ve.Reason)
}

func TestDecodeRecordRejectsInvalidUTF8(t *testing.T) {
	s := people(t)

	_, err := s.DecodeRecord("{\"name\":\"a\xffb\",\"age\":1}")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Column)
	assert.Contains(t, ve.Reason, "UTF-8")

	_, err = s.EncodeRecord(map[string]types.Value{"name": types.String("a\xffb"), "age": types.Number(1)})
	assert.ErrorIs(t, err, ErrValidation)

	// Escaped code points are valid and survive encoding unchanged.
	data, err := s.DecodeRecord(`{"name":"caf\u00e9","age":1}`)
	require.NoError(t, err)
	assert.Equal(t, types.String("café"), data["name"])
}

func TestValidate(t *testing.T) {
	s := people(t)

	assert.NoError(t, s.Validate(map[string]types.Value{
		"name": types.String(""),
		"age":  types.Number(-1),
	}))

	err := s.Validate(map[string]types.Value{
		"name":  types.String("a"),
		"age":   types.Number(1),
		"zz":    types.Boolean(true),
		"extra": types.Boolean(true),
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "extra", ve.Column)
	assert.Contains(t, err.Error(), "not declared in schema")

	err = s.Validate(map[string]types.Value{
		"name": types.Number(1),
		"age":  types.Number(1),
	})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Column)
	assert.Equal(t, "string", ve.Expected)
	assert.Equal(t, "number", ve.Actual)
}

func TestEncodeRecordRejectsInvalid(t *testing.T) {
	s := people(t)
	_, err := s.EncodeRecord(map[string]types.Value{"name": types.String("a")})
	assert.ErrorIs(t, err, ErrValidation)
}
