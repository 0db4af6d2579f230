package schema

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"

	"pngdb/db/types"
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError reports the first way a row's data disagrees with the schema.
type ValidationError struct {
	Column   string // empty when the payload as a whole is rejected
	Expected string // declared type, empty for undeclared columns
	Actual   string // kind found, "missing" for absent columns
	Reason   string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Column == "":
		return "validation: " + e.Reason
	case e.Reason != "":
		return fmt.Sprintf("validation: column %q: %s", e.Column, e.Reason)
	case e.Actual == "missing":
		return fmt.Sprintf("validation: column %q is missing (expected %s)", e.Column, e.Expected)
	default:
		return fmt.Sprintf("validation: column %q: expected %s, got %s", e.Column, e.Expected, e.Actual)
	}
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validate checks that data has exactly the schema's columns and that
// every value has the declared type.
func (s *Schema) Validate(data map[string]types.Value) error {
	for _, c := range s.columns {
		v, ok := data[c.Name]
		if !ok {
			return &ValidationError{Column: c.Name, Expected: string(c.Type), Actual: "missing"}
		}
		if v.Type != c.Type {
			return &ValidationError{Column: c.Name, Expected: string(c.Type), Actual: string(v.Type)}
		}
		if err := v.Check(); err != nil {
			return &ValidationError{Column: c.Name, Expected: string(c.Type), Actual: string(v.Type), Reason: err.Error()}
		}
	}

	if len(data) != len(s.columns) {
		var extra []string
		for name := range data {
			if _, ok := s.index[name]; !ok {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)
		return &ValidationError{Column: extra[0], Actual: string(data[extra[0]].Type), Reason: "not declared in schema"}
	}
	return nil
}

// DecodeRecord parses a row payload such as {"name":"Alice","age":30}
// and validates it against the schema.
func (s *Schema) DecodeRecord(text string) (map[string]types.Value, error) {
	if !gjson.Valid(text) {
		return nil, &ValidationError{Reason: "row data is not valid JSON"}
	}
	root := gjson.Parse(text)
	if !root.IsObject() {
		return nil, &ValidationError{Reason: "row data must be a JSON object, got " + kindOf(root)}
	}

	data := make(map[string]types.Value, len(s.columns))
	var err error
	root.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if _, dup := data[name]; dup {
			err = &ValidationError{Column: name, Reason: "duplicate key"}
			return false
		}
		col, ok := s.GetColumn(name)
		if !ok {
			err = &ValidationError{Column: name, Actual: kindOf(value), Reason: "not declared in schema"}
			return false
		}
		v, ok := toValue(value)
		if !ok || v.Type != col.Type {
			err = &ValidationError{Column: name, Expected: string(col.Type), Actual: kindOf(value)}
			return false
		}
		if checkErr := v.Check(); checkErr != nil {
			err = &ValidationError{Column: name, Expected: string(col.Type), Actual: kindOf(value), Reason: checkErr.Error()}
			return false
		}
		data[name] = v
		return true
	})
	if err != nil {
		return nil, err
	}
	if err := s.Validate(data); err != nil {
		return nil, err
	}
	return data, nil
}

// EncodeRecord writes data as a JSON object with keys in declaration order.
func (s *Schema) EncodeRecord(data map[string]types.Value) ([]byte, error) {
	if err := s.Validate(data); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range s.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, c.Name, data[c.Name]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func toValue(r gjson.Result) (types.Value, bool) {
	switch r.Type {
	case gjson.String:
		return types.String(r.Str), true
	case gjson.Number:
		// 1e999 parses to +Inf; Check rejects it.
		return types.Number(r.Num), true
	case gjson.True:
		return types.Boolean(true), true
	case gjson.False:
		return types.Boolean(false), true
	}
	return types.Value{}, false
}
