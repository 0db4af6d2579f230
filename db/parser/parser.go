package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"pngdb/db/types"
)

// ErrSyntax matches every *SyntaxError via errors.Is.
var ErrSyntax = errors.New("syntax error")

// SyntaxError reports where a WHERE clause stopped making sense.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

var operators = map[TokenType]Operator{
	TokenEqual:        OpEqual,
	TokenNotEqual:     OpNotEqual,
	TokenLess:         OpLess,
	TokenLessEqual:    OpLessEqual,
	TokenGreater:      OpGreater,
	TokenGreaterEqual: OpGreaterEqual,
}

type Parser struct {
	l         *Tokenizer
	curToken  Token
	peekToken Token
}

func NewParser(l *Tokenizer) *Parser {
	p := &Parser{l: l}
	p.nextToken()
	p.nextToken()
	return p
}

// Parse reads a predicate such as `age > 28`, `WHERE name = "Bob"` or
// `age >= 18 AND active = true`.
func Parse(input string) (Expression, error) {
	return NewParser(NewTokenizer(input)).ParseWhere()
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) errorf(tok Token, format string, args ...interface{}) error {
	return &SyntaxError{Pos: tok.Pos, Msg: fmt.Sprintf(format, args...)}
}

// ParseWhere parses a whole clause and requires the input to end after it.
func (p *Parser) ParseWhere() (Expression, error) {
	if p.curTokenIs(TokenWhere) {
		p.nextToken()
	}
	if p.curTokenIs(TokenEOF) {
		return nil, p.errorf(p.curToken, "empty predicate")
	}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if !p.peekTokenIs(TokenEOF) {
		if p.peekTokenIs(TokenOr) {
			return nil, p.errorf(p.peekToken, "OR is not supported, only AND")
		}
		return nil, p.errorf(p.peekToken, "unexpected %s", describe(p.peekToken))
	}
	return expr, nil
}

func (p *Parser) parseExpression() (Expression, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}

	for p.peekTokenIs(TokenAnd) {
		p.nextToken() // AND
		op := strings.ToUpper(p.curToken.Literal)
		p.nextToken()

		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &InfixExpression{Left: left, Operator: op, Right: right}
	}
	return left, nil
}

// column op value
func (p *Parser) parseComparison() (Expression, error) {
	if !p.curTokenIs(TokenIdent) || p.curToken.Literal == "" {
		return nil, p.errorf(p.curToken, "expected column name, got %s", describe(p.curToken))
	}
	col := p.curToken.Literal

	p.nextToken()
	op, ok := operators[p.curToken.Type]
	if !ok {
		return nil, p.errorf(p.curToken, "expected comparison operator after %q, got %s", col, describe(p.curToken))
	}

	p.nextToken()
	val, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return &ComparisonExpression{Column: col, Operator: op, Value: val}, nil
}

func (p *Parser) parseValue() (types.Value, error) {
	tok := p.curToken
	switch tok.Type {
	case TokenNumber:
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil || math.IsInf(f, 0) {
			return types.Value{}, p.errorf(tok, "invalid number %q", tok.Literal)
		}
		return types.Number(f), nil
	case TokenString:
		s, err := unquote(tok.Literal)
		if err != nil {
			return types.Value{}, p.errorf(tok, "invalid string %s: %v", tok.Literal, err)
		}
		return types.String(s), nil
	case TokenTrue:
		return types.Boolean(true), nil
	case TokenFalse:
		return types.Boolean(false), nil
	case TokenIllegal:
		return types.Value{}, p.errorf(tok, "cannot read value %q", tok.Literal)
	default:
		return types.Value{}, p.errorf(tok, "expected a string, number or boolean, got %s", describe(tok))
	}
}

func unquote(lit string) (string, error) {
	if strings.HasPrefix(lit, "'") {
		return lit[1 : len(lit)-1], nil
	}
	var s string
	if err := json.Unmarshal([]byte(lit), &s); err != nil {
		return "", err
	}
	return s, nil
}

func describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of input"
	case TokenIllegal:
		return fmt.Sprintf("illegal input %q", tok.Literal)
	}
	return fmt.Sprintf("%s %q", tok.Type, tok.Literal)
}
