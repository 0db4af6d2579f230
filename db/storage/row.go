package storage

import (
	"bytes"
	"strconv"

	"pngdb/db/schema"
	"pngdb/db/types"
)

// Row represents a single record tagged with the pixel coordinates it was
// inserted at. Coordinates are not a key; two rows may share them.
type Row struct {
	X    uint32
	Y    uint32
	Data map[string]types.Value
}

// Get returns the value stored for column name.
func (r Row) Get(name string) (types.Value, bool) {
	v, ok := r.Data[name]
	return v, ok
}

// Clone returns a copy that shares no map with r.
func (r Row) Clone() Row {
	data := make(map[string]types.Value, len(r.Data))
	for k, v := range r.Data {
		data[k] = v
	}
	return Row{X: r.X, Y: r.Y, Data: data}
}

// MarshalRows writes rows as a JSON array of {"x":..,"y":..,"data":{..}}
// objects, data keys in the schema's declaration order.
func MarshalRows(s *schema.Schema, rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := s.EncodeRecord(r.Data)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`{"x":`)
		buf.WriteString(strconv.FormatUint(uint64(r.X), 10))
		buf.WriteString(`,"y":`)
		buf.WriteString(strconv.FormatUint(uint64(r.Y), 10))
		buf.WriteString(`,"data":`)
		buf.Write(data)
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
