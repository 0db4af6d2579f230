package engine

import (
	"errors"
	"fmt"

	"pngdb/db/parser"
	"pngdb/db/schema"
	"pngdb/db/storage"
	"pngdb/db/types"
)

var (
	ErrUnknownColumn = errors.New("unknown column")
	ErrTypeMismatch  = errors.New("type mismatch")
)

// QueryError reports a predicate that does not fit the schema.
type QueryError struct {
	Kind   error // ErrUnknownColumn or ErrTypeMismatch
	Column string
	Detail string
}

func (e *QueryError) Error() string {
	msg := fmt.Sprintf("query: %v %q", e.Kind, e.Column)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *QueryError) Unwrap() error { return e.Kind }

// Evaluate returns true if the row satisfies the expression.
func Evaluate(expr parser.Expression, def *schema.Schema, row storage.Row) (bool, error) {
	pred, err := bind(expr, def)
	if err != nil {
		return false, err
	}
	return pred(row), nil
}

// bind resolves every column of expr against the schema once, so that
// the returned predicate can run over many rows without failing.
func bind(expr parser.Expression, def *schema.Schema) (func(storage.Row) bool, error) {
	if expr == nil {
		return func(storage.Row) bool { return true }, nil
	}

	switch e := expr.(type) {
	case *parser.ComparisonExpression:
		return bindComparison(e, def)

	case *parser.InfixExpression:
		left, err := bind(e.Left, def)
		if err != nil {
			return nil, err
		}
		right, err := bind(e.Right, def)
		if err != nil {
			return nil, err
		}

		switch e.Operator {
		case "AND":
			return func(r storage.Row) bool { return left(r) && right(r) }, nil
		default:
			return nil, fmt.Errorf("unsupported operator %q", e.Operator)
		}
	}
	return nil, fmt.Errorf("unsupported expression %T", expr)
}

func bindComparison(e *parser.ComparisonExpression, def *schema.Schema) (func(storage.Row) bool, error) {
	colType, get, err := resolve(e.Column, def)
	if err != nil {
		return nil, err
	}
	if e.Value.Type != colType {
		return nil, &QueryError{Kind: ErrTypeMismatch, Column: e.Column,
			Detail: fmt.Sprintf("column is %s, literal is %s", colType, e.Value.Type)}
	}
	if colType == types.TypeBoolean && e.Operator.Ordering() {
		return nil, &QueryError{Kind: ErrTypeMismatch, Column: e.Column,
			Detail: fmt.Sprintf("boolean columns support only = and !=, not %s", e.Operator)}
	}

	lit, op := e.Value, e.Operator
	return func(r storage.Row) bool {
		v, ok := get(r)
		if !ok {
			return false
		}
		cmp, err := v.Compare(lit)
		if err != nil {
			return false
		}
		return op.Holds(cmp)
	}, nil
}

// resolve finds the type and accessor of a column. Schema columns win;
// otherwise x and y name the row's coordinates.
func resolve(name string, def *schema.Schema) (types.DataType, func(storage.Row) (types.Value, bool), error) {
	if col, ok := def.GetColumn(name); ok {
		return col.Type, func(r storage.Row) (types.Value, bool) { return r.Get(name) }, nil
	}
	switch name {
	case "x":
		return types.TypeNumber, func(r storage.Row) (types.Value, bool) { return types.Number(float64(r.X)), true }, nil
	case "y":
		return types.TypeNumber, func(r storage.Row) (types.Value, bool) { return types.Number(float64(r.Y)), true }, nil
	}
	return "", nil, &QueryError{Kind: ErrUnknownColumn, Column: name}
}
