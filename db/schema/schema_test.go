package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pngdb/db/types"
)

func TestParseKeepsDeclarationOrder(t *testing.T) {
	s, err := Parse(`{"zeta":"number","alpha":"string","mid":"boolean"}`)
	require.NoError(t, err)

	assert.Equal(t, []ColumnDef{
		{Name: "zeta", Type: types.TypeNumber},
		{Name: "alpha", Type: types.TypeString},
		{Name: "mid", Type: types.TypeBoolean},
	}, s.Columns())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1, s.GetColumnIndex("alpha"))
	assert.Equal(t, -1, s.GetColumnIndex("missing"))

	b, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"number","alpha":"string","mid":"boolean"}`, string(b))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		text string
		want error
	}{
		{`{"name":`, ErrInvalidJSON},
		{`"name"`, ErrInvalidJSON},
		{`[{"name":"string"}]`, ErrInvalidJSON},
		{`{}`, ErrEmpty},
		{`{"name":"text"}`, ErrUnknownType},
		{`{"name":"String"}`, ErrUnknownType},
		{`{"name":1}`, ErrUnknownType},
		{`{"name":"string","name":"number"}`, ErrDuplicateColumn},
		{`{"":"string"}`, ErrInvalidColumn},
		{"{\"a\xffb\":\"string\"}", ErrInvalidColumn},
	}
	for _, tt := range tests {
		_, err := Parse(tt.text)
		assert.ErrorIs(t, err, tt.want, tt.text)
	}
}

func TestParseSpec(t *testing.T) {
	s, err := ParseSpec("name:string, age:Number,,active:boolean")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"string","age":"number","active":"boolean"}`, s.String())

	_, err = ParseSpec("name")
	assert.ErrorIs(t, err, ErrInvalidColumn)
	_, err = ParseSpec("name:float")
	assert.ErrorIs(t, err, ErrUnknownType)
	_, err = ParseSpec(" , ")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestNewRejectsInvalidUTF8Name(t *testing.T) {
	_, err := New([]ColumnDef{{Name: "ok", Type: types.TypeString}, {Name: "bad\xc3", Type: types.TypeNumber}})
	assert.ErrorIs(t, err, ErrInvalidColumn)

	_, err = ParseSpec("na\xffme:string")
	assert.ErrorIs(t, err, ErrInvalidColumn)
}

func TestParseAny(t *testing.T) {
	fromJSON, err := ParseAny(` {"name":"string","age":"number"}`)
	require.NoError(t, err)
	fromSpec, err := ParseAny("name:string,age:number")
	require.NoError(t, err)
	assert.True(t, fromJSON.Equal(fromSpec))

	_, err = ParseAny(`{"name":`)
	assert.ErrorIs(t, err, ErrInvalidJSON)
	_, err = ParseAny("name")
	assert.ErrorIs(t, err, ErrInvalidColumn)
	_, err = ParseAny("")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestEqual(t *testing.T) {
	a, err := Parse(`{"a":"string","b":"number"}`)
	require.NoError(t, err)
	b, err := ParseSpec("a:string,b:number")
	require.NoError(t, err)
	c, err := Parse(`{"b":"number","a":"string"}`)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}

func TestColumnsIsACopy(t *testing.T) {
	s, err := Parse(`{"a":"string"}`)
	require.NoError(t, err)

	cols := s.Columns()
	cols[0].Name = "changed"
	_, ok := s.GetColumn("a")
	assert.True(t, ok)
}
