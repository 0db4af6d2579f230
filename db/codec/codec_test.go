package codec

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pngdb/db/schema"
	"pngdb/db/storage"
	"pngdb/db/types"
)

func samplePayload(t *testing.T) Payload {
	t.Helper()
	def, err := schema.Parse(`{"name":"string","age":"number","ok":"boolean"}`)
	require.NoError(t, err)
	return Payload{
		Width:  16,
		Height: 8,
		Schema: def,
		Rows: []storage.Row{
			{X: 10, Y: 2, Data: map[string]types.Value{"name": types.String("Alice"), "age": types.Number(30), "ok": types.Boolean(true)}},
			{X: 0, Y: 7, Data: map[string]types.Value{"name": types.String("Bob"), "age": types.Number(-2.5), "ok": types.Boolean(false)}},
		},
	}
}

func TestEncodeLayout(t *testing.T) {
	def, err := schema.Parse(`{"n":"number"}`)
	require.NoError(t, err)
	b, err := Encode(Payload{Width: 2, Height: 3, Schema: def, Rows: []storage.Row{
		{X: 1, Y: 2, Data: map[string]types.Value{"n": types.Number(5)}},
	}})
	require.NoError(t, err)

	want := []byte("PNDB")
	want = append(want, Version)
	want = append(want, 0, 0, 0, 2, 0, 0, 0, 3) // width, height
	want = append(want, 0, 1, 0, 1, 'n', tagNumber)
	want = append(want, 0, 0, 0, 1) // row count
	want = append(want, 0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0, 7)
	want = append(want, `{"n":5}`...)
	assert.Equal(t, want, b)
	assert.Equal(t, HeaderSize(def)+RowSize(7), len(b))
}

func TestRoundTrip(t *testing.T) {
	p := samplePayload(t)

	b, err := Encode(p)
	require.NoError(t, err)

	again, err := Encode(p)
	require.NoError(t, err)
	assert.Equal(t, b, again)

	// Trailing zero padding from the pixel buffer is ignored.
	padded := append(append([]byte{}, b...), make([]byte, 64)...)
	got, err := Decode(padded)
	require.NoError(t, err)

	assert.Equal(t, p.Width, got.Width)
	assert.Equal(t, p.Height, got.Height)
	assert.True(t, p.Schema.Equal(got.Schema))
	assert.Equal(t, p.Rows, got.Rows)
}

func TestDecodeEmptyTable(t *testing.T) {
	p := samplePayload(t)
	p.Rows = nil

	b, err := Encode(p)
	require.NoError(t, err)
	got, err := Decode(b)
	require.NoError(t, err)
	assert.Empty(t, got.Rows)
}

func TestDecodeErrors(t *testing.T) {
	b, err := Encode(samplePayload(t))
	require.NoError(t, err)
	def := samplePayload(t).Schema
	header := HeaderSize(def)

	mutate := func(f func(b []byte) []byte) []byte {
		return f(append([]byte{}, b...))
	}

	tests := []struct {
		name  string
		input []byte
		kind  error
	}{
		{"empty", nil, ErrTruncated},
		{"short magic", []byte("PN"), ErrTruncated},
		{"zeros", make([]byte, 64), ErrBadMagic},
		{"bad magic", mutate(func(b []byte) []byte { b[0] = 'X'; return b }), ErrBadMagic},
		{"bad version", mutate(func(b []byte) []byte { b[4] = 9; return b }), ErrBadVersion},
		{"zero width", mutate(func(b []byte) []byte { binary.BigEndian.PutUint32(b[5:], 0); return b }), ErrMalformed},
		{"cut in header", b[:header-3], ErrTruncated},
		{"cut in row", b[:len(b)-5], ErrTruncated},
		{"bad type tag", mutate(func(b []byte) []byte { b[15+2+4] = 9; return b }), ErrMalformed},
		{"huge row count", mutate(func(b []byte) []byte {
			binary.BigEndian.PutUint32(b[header-4:], 1<<30)
			return b
		}), ErrTruncated},
		{"row outside image", mutate(func(b []byte) []byte {
			binary.BigEndian.PutUint32(b[header:], 16)
			return b
		}), ErrMalformed},
		{"bad row json", mutate(func(b []byte) []byte {
			b[header+12] = '['
			return b
		}), ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input)
			assert.ErrorIs(t, err, tt.kind)
			var fe *FormatError
			assert.ErrorAs(t, err, &fe)
		})
	}
}

func TestDecodeDuplicateColumn(t *testing.T) {
	b := []byte("PNDB")
	b = append(b, Version, 0, 0, 0, 1, 0, 0, 0, 1)
	b = append(b, 0, 2, 0, 1, 'a', tagString, 0, 1, 'a', tagNumber)
	b = append(b, 0, 0, 0, 0)

	_, err := Decode(b)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.ErrorIs(t, err, schema.ErrDuplicateColumn)
}

func TestEncodeRejectsInvalidRow(t *testing.T) {
	p := samplePayload(t)
	p.Rows[1].Data = map[string]types.Value{"name": types.String("Bob")}

	_, err := Encode(p)
	assert.ErrorIs(t, err, schema.ErrValidation)
}
