package parser

import (
	"fmt"
	"strconv"

	"pngdb/db/types"
)

// Operator is a comparison operator.
type Operator string

const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
)

// Ordering reports whether the operator needs an order rather than just equality.
func (o Operator) Ordering() bool {
	return o != OpEqual && o != OpNotEqual
}

// Holds reports whether a comparison result (-1, 0, 1) satisfies the operator.
func (o Operator) Holds(cmp int) bool {
	switch o {
	case OpEqual:
		return cmp == 0
	case OpNotEqual:
		return cmp != 0
	case OpLess:
		return cmp < 0
	case OpLessEqual:
		return cmp <= 0
	case OpGreater:
		return cmp > 0
	case OpGreaterEqual:
		return cmp >= 0
	}
	return false
}

// Expressions

type Expression interface {
	String() string
	expressionNode()
}

// InfixExpression joins two predicates. Only AND is produced by the parser.
type InfixExpression struct {
	Left     Expression
	Operator string
	Right    Expression
}

func (e *InfixExpression) expressionNode() {}

func (e *InfixExpression) String() string {
	return "(" + e.Left.String() + " " + e.Operator + " " + e.Right.String() + ")"
}

// ComparisonExpression is a single predicate: column op literal.
type ComparisonExpression struct {
	Column   string
	Operator Operator
	Value    types.Value
}

func (e *ComparisonExpression) expressionNode() {}

func (e *ComparisonExpression) String() string {
	lit := e.Value.String()
	if e.Value.Type == types.TypeString {
		lit = strconv.Quote(lit)
	}
	return fmt.Sprintf("%s %s %s", e.Column, e.Operator, lit)
}

// Comparisons lists the predicates of expr from left to right.
func Comparisons(expr Expression) []*ComparisonExpression {
	switch e := expr.(type) {
	case *ComparisonExpression:
		return []*ComparisonExpression{e}
	case *InfixExpression:
		return append(Comparisons(e.Left), Comparisons(e.Right)...)
	}
	return nil
}
