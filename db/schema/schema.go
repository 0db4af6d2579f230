package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"pngdb/db/types"
)

var (
	ErrInvalidJSON     = errors.New("invalid schema json")
	ErrUnknownType     = errors.New("unknown column type")
	ErrEmpty           = errors.New("schema declares no columns")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrInvalidColumn   = errors.New("invalid column")
)

// ColumnDef defines a single column.
type ColumnDef struct {
	Name string
	Type types.DataType
}

// Schema is the ordered set of column definitions of a database.
// It is immutable once built.
type Schema struct {
	columns []ColumnDef
	index   map[string]int
}

// New builds a schema from columns in declaration order.
func New(columns []ColumnDef) (*Schema, error) {
	if len(columns) == 0 {
		return nil, ErrEmpty
	}
	if len(columns) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d columns exceeds the limit of %d", ErrInvalidColumn, len(columns), math.MaxUint16)
	}

	s := &Schema{
		columns: make([]ColumnDef, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: empty column name", ErrInvalidColumn)
		}
		if !utf8.ValidString(c.Name) {
			return nil, fmt.Errorf("%w: column name %q is not valid UTF-8", ErrInvalidColumn, c.Name)
		}
		if len(c.Name) > math.MaxUint16 {
			return nil, fmt.Errorf("%w: column name longer than %d bytes", ErrInvalidColumn, math.MaxUint16)
		}
		if !c.Type.Valid() {
			return nil, fmt.Errorf("%w: column %q has type %q", ErrUnknownType, c.Name, c.Type)
		}
		if _, exists := s.index[c.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		s.index[c.Name] = len(s.columns)
		s.columns = append(s.columns, c)
	}
	return s, nil
}

// Parse reads a schema from a JSON object mapping column names to type
// names, e.g. {"name":"string","age":"number"}. Member order is kept as
// the declaration order.
func Parse(text string) (*Schema, error) {
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("%w: malformed json", ErrInvalidJSON)
	}
	root := gjson.Parse(text)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: expected a JSON object, got %s", ErrInvalidJSON, kindOf(root))
	}

	var (
		columns []ColumnDef
		err     error
	)
	root.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if value.Type != gjson.String {
			err = fmt.Errorf("%w: column %q: type must be a string, got %s", ErrUnknownType, name, kindOf(value))
			return false
		}
		t, ok := types.ParseDataType(value.Str)
		if !ok {
			err = fmt.Errorf("%w: column %q: %q (want string, number or boolean)", ErrUnknownType, name, value.Str)
			return false
		}
		columns = append(columns, ColumnDef{Name: name, Type: t})
		return true
	})
	if err != nil {
		return nil, err
	}
	return New(columns)
}

// ParseSpec reads the compact "name:type,name:type" form used on the
// command line. Empty segments are ignored.
func ParseSpec(spec string) (*Schema, error) {
	var columns []ColumnDef
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, typeName, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not name:type", ErrInvalidColumn, part)
		}
		name = strings.TrimSpace(name)
		typeName = strings.ToLower(strings.TrimSpace(typeName))
		t, ok := types.ParseDataType(typeName)
		if !ok {
			return nil, fmt.Errorf("%w: column %q: %q (want string, number or boolean)", ErrUnknownType, name, typeName)
		}
		columns = append(columns, ColumnDef{Name: name, Type: t})
	}
	return New(columns)
}

// ParseAny accepts either a JSON object or the compact name:type form.
func ParseAny(text string) (*Schema, error) {
	if strings.HasPrefix(strings.TrimSpace(text), "{") {
		return Parse(text)
	}
	return ParseSpec(text)
}

// Columns returns a copy of the column definitions in declaration order.
func (s *Schema) Columns() []ColumnDef {
	out := make([]ColumnDef, len(s.columns))
	copy(out, s.columns)
	return out
}

// Len returns the number of columns.
func (s *Schema) Len() int {
	return len(s.columns)
}

// GetColumn finds a column definition by name.
func (s *Schema) GetColumn(name string) (ColumnDef, bool) {
	i, ok := s.index[name]
	if !ok {
		return ColumnDef{}, false
	}
	return s.columns[i], true
}

// GetColumnIndex returns the declaration position of the column, or -1.
func (s *Schema) GetColumnIndex(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Equal reports whether both schemas declare the same columns in the same order.
func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.columns) != len(other.columns) {
		return false
	}
	for i, c := range s.columns {
		if other.columns[i] != c {
			return false
		}
	}
	return true
}

// MarshalJSON writes the schema as a JSON object in declaration order.
func (s *Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range s.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, c.Name, string(c.Type)); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// String returns the JSON form of the schema.
func (s *Schema) String() string {
	b, err := s.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid schema: %v>", err)
	}
	return string(b)
}

func writeMember(buf *bytes.Buffer, key string, value interface{}) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// kindOf names the JSON kind of a parsed value for error messages.
func kindOf(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return "string"
	case gjson.Number:
		return "number"
	case gjson.True, gjson.False:
		return "boolean"
	case gjson.Null:
		return "null"
	case gjson.JSON:
		if r.IsArray() {
			return "array"
		}
		return "object"
	}
	return "nothing"
}
