package parser

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type TokenType int

const (
	TokenIllegal TokenType = iota
	TokenEOF

	// Literals
	TokenIdent  // age, `first name`
	TokenString // "value" or 'value'
	TokenNumber // 30, -1.5, 2e3

	// Keywords
	TokenWhere
	TokenAnd
	TokenOr
	TokenTrue
	TokenFalse

	// Operators
	TokenEqual        // =
	TokenNotEqual     // !=
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=
)

var tokenNames = map[TokenType]string{
	TokenIllegal:      "illegal",
	TokenEOF:          "end of input",
	TokenIdent:        "identifier",
	TokenString:       "string",
	TokenNumber:       "number",
	TokenWhere:        "WHERE",
	TokenAnd:          "AND",
	TokenOr:           "OR",
	TokenTrue:         "true",
	TokenFalse:        "false",
	TokenEqual:        "=",
	TokenNotEqual:     "!=",
	TokenLess:         "<",
	TokenLessEqual:    "<=",
	TokenGreater:      ">",
	TokenGreaterEqual: ">=",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

type Token struct {
	Type    TokenType
	Literal string
	Pos     int // byte offset in the input
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q)", t.Type, t.Literal)
}

// Tokenizer scans a WHERE clause.
type Tokenizer struct {
	input        string
	position     int
	readPosition int
	ch           rune
}

func NewTokenizer(input string) *Tokenizer {
	t := &Tokenizer{input: input}
	t.readChar()
	return t
}

func (t *Tokenizer) readChar() {
	t.position = t.readPosition
	if t.readPosition >= len(t.input) {
		t.ch = 0
		return
	}
	r, size := utf8.DecodeRuneInString(t.input[t.readPosition:])
	t.ch = r
	t.readPosition += size
}

func (t *Tokenizer) peekChar() rune {
	if t.readPosition >= len(t.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(t.input[t.readPosition:])
	return r
}

func (t *Tokenizer) skipWhitespace() {
	for unicode.IsSpace(t.ch) {
		t.readChar()
	}
}

func (t *Tokenizer) NextToken() Token {
	t.skipWhitespace()

	start := t.position
	tok := Token{Pos: start}

	switch t.ch {
	case 0:
		tok.Type = TokenEOF
		return tok
	case '=':
		tok.Type, tok.Literal = TokenEqual, "="
	case '!':
		if t.peekChar() != '=' {
			tok.Type, tok.Literal = TokenIllegal, "!"
			break
		}
		t.readChar()
		tok.Type, tok.Literal = TokenNotEqual, "!="
	case '<':
		tok.Type, tok.Literal = TokenLess, "<"
		if t.peekChar() == '=' {
			t.readChar()
			tok.Type, tok.Literal = TokenLessEqual, "<="
		}
	case '>':
		tok.Type, tok.Literal = TokenGreater, ">"
		if t.peekChar() == '=' {
			t.readChar()
			tok.Type, tok.Literal = TokenGreaterEqual, ">="
		}
	case '"':
		return t.readDoubleQuoted()
	case '\'':
		return t.readSingleQuoted()
	case '`':
		return t.readQuotedIdent()
	default:
		if isDigit(t.ch) || ((t.ch == '-' || t.ch == '+' || t.ch == '.') && (isDigit(t.peekChar()) || t.peekChar() == '.')) {
			tok.Type = TokenNumber
			tok.Literal = t.readNumber()
			return tok
		}
		if isLetter(t.ch) {
			tok.Literal = t.readIdentifier()
			tok.Type = LookupIdent(tok.Literal)
			return tok
		}
		tok.Type, tok.Literal = TokenIllegal, string(t.ch)
	}

	t.readChar()
	return tok
}

// readDoubleQuoted reads a "..." literal with backslash escapes.
// The literal keeps its quotes; the parser unquotes it.
func (t *Tokenizer) readDoubleQuoted() Token {
	start := t.position
	t.readChar() // opening quote
	for t.ch != '"' {
		if t.ch == 0 {
			return Token{Type: TokenIllegal, Literal: t.input[start:], Pos: start}
		}
		if t.ch == '\\' {
			t.readChar()
			if t.ch == 0 {
				return Token{Type: TokenIllegal, Literal: t.input[start:], Pos: start}
			}
		}
		t.readChar()
	}
	t.readChar() // closing quote
	return Token{Type: TokenString, Literal: t.input[start:t.position], Pos: start}
}

// readSingleQuoted reads a '...' literal; a doubled '' stands for one quote.
func (t *Tokenizer) readSingleQuoted() Token {
	start := t.position
	var sb strings.Builder
	t.readChar() // opening quote
	for {
		if t.ch == 0 {
			return Token{Type: TokenIllegal, Literal: t.input[start:], Pos: start}
		}
		if t.ch == '\'' {
			if t.peekChar() != '\'' {
				break
			}
			t.readChar()
		}
		sb.WriteRune(t.ch)
		t.readChar()
	}
	t.readChar() // closing quote
	return Token{Type: TokenString, Literal: "'" + sb.String() + "'", Pos: start}
}

// readQuotedIdent reads a `...` column name, which may contain any
// character except a backtick.
func (t *Tokenizer) readQuotedIdent() Token {
	start := t.position
	t.readChar() // opening backtick
	nameStart := t.position
	for t.ch != '`' {
		if t.ch == 0 {
			return Token{Type: TokenIllegal, Literal: t.input[start:], Pos: start}
		}
		t.readChar()
	}
	name := t.input[nameStart:t.position]
	t.readChar() // closing backtick
	return Token{Type: TokenIdent, Literal: name, Pos: start}
}

func (t *Tokenizer) readIdentifier() string {
	position := t.position
	for isLetter(t.ch) || isDigit(t.ch) {
		t.readChar()
	}
	return t.input[position:t.position]
}

func (t *Tokenizer) readNumber() string {
	position := t.position
	if t.ch == '-' || t.ch == '+' {
		t.readChar()
	}
	for isDigit(t.ch) {
		t.readChar()
	}
	if t.ch == '.' {
		t.readChar()
		for isDigit(t.ch) {
			t.readChar()
		}
	}
	if t.ch == 'e' || t.ch == 'E' {
		t.readChar()
		if t.ch == '-' || t.ch == '+' {
			t.readChar()
		}
		for isDigit(t.ch) {
			t.readChar()
		}
	}
	return t.input[position:t.position]
}

func isLetter(ch rune) bool {
	return ch == '_' || ch == '.' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

var keywords = map[string]TokenType{
	"WHERE": TokenWhere,
	"AND":   TokenAnd,
	"OR":    TokenOr,
	"TRUE":  TokenTrue,
	"FALSE": TokenFalse,
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[strings.ToUpper(ident)]; ok {
		return tok
	}
	return TokenIdent
}
