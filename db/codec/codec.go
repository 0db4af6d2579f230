package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"pngdb/db/schema"
	"pngdb/db/storage"
	"pngdb/db/types"
)

const (
	// Magic opens every payload written by Encode.
	Magic = "PNDB"
	// Version is the layout version written after Magic.
	Version byte = 1
)

// Column type tags.
const (
	tagString  byte = 1
	tagNumber  byte = 2
	tagBoolean byte = 3
)

// Fixed part of the header: magic, version, width, height, column count and row count.
const fixedHeaderSize = len(Magic) + 1 + 4 + 4 + 2 + 4

// Per row: x, y and payload length.
const rowPrefixSize = 4 + 4 + 4

// Payload is everything a database persists.
type Payload struct {
	Width  uint32
	Height uint32
	Schema *schema.Schema
	Rows   []storage.Row
}

// HeaderSize returns the number of bytes Encode spends before the first row.
func HeaderSize(s *schema.Schema) int {
	n := fixedHeaderSize
	for _, c := range s.Columns() {
		n += 2 + len(c.Name) + 1
	}
	return n
}

// RowSize returns the number of bytes Encode spends on a row whose JSON
// payload is payloadLen bytes long.
func RowSize(payloadLen int) int {
	return rowPrefixSize + payloadLen
}

// Encode serializes p in a single forward pass. The output is a pure
// function of p: columns in declaration order, rows in slice order.
func Encode(p Payload) ([]byte, error) {
	if p.Schema == nil {
		return nil, fmt.Errorf("encode: missing schema")
	}
	if uint64(len(p.Rows)) > math.MaxUint32 {
		return nil, fmt.Errorf("encode: %d rows exceeds the limit of %d", len(p.Rows), uint32(math.MaxUint32))
	}

	size := HeaderSize(p.Schema)
	records := make([][]byte, len(p.Rows))
	for i, r := range p.Rows {
		rec, err := p.Schema.EncodeRecord(r.Data)
		if err != nil {
			return nil, fmt.Errorf("encode row %d: %w", i, err)
		}
		if uint64(len(rec)) > math.MaxUint32 {
			return nil, fmt.Errorf("encode row %d: payload of %d bytes is too large", i, len(rec))
		}
		records[i] = rec
		size += RowSize(len(rec))
	}

	buf := make([]byte, 0, size)
	buf = append(buf, Magic...)
	buf = append(buf, Version)
	buf = binary.BigEndian.AppendUint32(buf, p.Width)
	buf = binary.BigEndian.AppendUint32(buf, p.Height)

	columns := p.Schema.Columns()
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(columns)))
	for _, c := range columns {
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(c.Name)))
		buf = append(buf, c.Name...)
		buf = append(buf, typeTag(c.Type))
	}

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(p.Rows)))
	for i, r := range p.Rows {
		buf = binary.BigEndian.AppendUint32(buf, r.X)
		buf = binary.BigEndian.AppendUint32(buf, r.Y)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(records[i])))
		buf = append(buf, records[i]...)
	}
	return buf, nil
}

// Decode reads a payload written by Encode. Bytes after the last row are
// ignored, so b may be a whole pixel buffer.
func Decode(b []byte) (Payload, error) {
	r := &reader{buf: b}

	magic, err := r.take(len(Magic), "magic")
	if err != nil {
		return Payload{}, err
	}
	if string(magic) != Magic {
		return Payload{}, &FormatError{Kind: ErrBadMagic, Offset: 0, Detail: fmt.Sprintf("got %q", magic)}
	}
	version, err := r.u8("version")
	if err != nil {
		return Payload{}, err
	}
	if version != Version {
		return Payload{}, &FormatError{Kind: ErrBadVersion, Offset: r.off - 1, Detail: fmt.Sprintf("version %d, want %d", version, Version)}
	}

	var p Payload
	if p.Width, err = r.u32("width"); err != nil {
		return Payload{}, err
	}
	if p.Height, err = r.u32("height"); err != nil {
		return Payload{}, err
	}
	if p.Width == 0 || p.Height == 0 {
		return Payload{}, r.malformed(fmt.Sprintf("zero dimension %dx%d", p.Width, p.Height), nil)
	}

	if p.Schema, err = r.schema(); err != nil {
		return Payload{}, err
	}

	count, err := r.u32("row count")
	if err != nil {
		return Payload{}, err
	}
	// Every row needs at least its prefix; refuse counts the buffer cannot hold.
	if uint64(count)*rowPrefixSize > uint64(r.remaining()) {
		return Payload{}, &FormatError{Kind: ErrTruncated, Offset: r.off,
			Detail: fmt.Sprintf("%d rows need at least %d bytes, %d left", count, uint64(count)*rowPrefixSize, r.remaining())}
	}

	p.Rows = make([]storage.Row, 0, count)
	for i := uint32(0); i < count; i++ {
		row, err := r.row(i, p)
		if err != nil {
			return Payload{}, err
		}
		p.Rows = append(p.Rows, row)
	}
	return p, nil
}

func (r *reader) schema() (*schema.Schema, error) {
	n, err := r.u16("column count")
	if err != nil {
		return nil, err
	}
	columns := make([]schema.ColumnDef, 0, n)
	for i := uint16(0); i < n; i++ {
		nameLen, err := r.u16("column name length")
		if err != nil {
			return nil, err
		}
		name, err := r.take(int(nameLen), "column name")
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(name) {
			return nil, r.malformed(fmt.Sprintf("column %d name is not UTF-8", i), nil)
		}
		tag, err := r.u8("column type")
		if err != nil {
			return nil, err
		}
		t, ok := tagType(tag)
		if !ok {
			return nil, r.malformed(fmt.Sprintf("column %q has type tag %d", name, tag), nil)
		}
		columns = append(columns, schema.ColumnDef{Name: string(name), Type: t})
	}
	s, err := schema.New(columns)
	if err != nil {
		return nil, r.malformed("invalid schema", err)
	}
	return s, nil
}

func (r *reader) row(i uint32, p Payload) (storage.Row, error) {
	start := r.off
	x, err := r.u32("row x")
	if err != nil {
		return storage.Row{}, err
	}
	y, err := r.u32("row y")
	if err != nil {
		return storage.Row{}, err
	}
	n, err := r.u32("row payload length")
	if err != nil {
		return storage.Row{}, err
	}
	if uint64(n) > uint64(r.remaining()) {
		return storage.Row{}, &FormatError{Kind: ErrTruncated, Offset: r.off,
			Detail: fmt.Sprintf("row %d payload needs %d bytes, %d left", i, n, r.remaining())}
	}
	raw, _ := r.take(int(n), "row payload")

	if x >= p.Width || y >= p.Height {
		return storage.Row{}, &FormatError{Kind: ErrMalformed, Offset: start,
			Detail: fmt.Sprintf("row %d at (%d, %d) outside %dx%d", i, x, y, p.Width, p.Height)}
	}
	data, err := p.Schema.DecodeRecord(string(raw))
	if err != nil {
		return storage.Row{}, &FormatError{Kind: ErrMalformed, Offset: start + rowPrefixSize,
			Detail: fmt.Sprintf("row %d payload", i), Err: err}
	}
	return storage.Row{X: x, Y: y, Data: data}, nil
}

func typeTag(t types.DataType) byte {
	switch t {
	case types.TypeString:
		return tagString
	case types.TypeNumber:
		return tagNumber
	case types.TypeBoolean:
		return tagBoolean
	}
	return 0
}

func tagType(tag byte) (types.DataType, bool) {
	switch tag {
	case tagString:
		return types.TypeString, true
	case tagNumber:
		return types.TypeNumber, true
	case tagBoolean:
		return types.TypeBoolean, true
	}
	return "", false
}
