package sql

import (
	"strings"
)

// TokenType represents the type of token
type TokenType int

const (
	TokenIllegal TokenType = iota
	TokenEOF

	TokenIdent       // bare identifiers and keywords
	TokenQuotedIdent // "x", `x`, [x]
	TokenString      // 'text'
	TokenNumber      // 123, 1.5e3, 0x1F
	TokenBlob        // x'00ff'
	TokenPlaceholder // ?, ?NNN, :name, @name, $name
	TokenSemicolon   // ;
	TokenComment     // -- line, /* block */
	TokenPunctuation // any other operator or delimiter
)

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string
	Pos     int // byte offset in the input
}

// Keyword returns the upper-cased literal for identifiers, "" otherwise
func (t Token) Keyword() string {
	if t.Type != TokenIdent {
		return ""
	}
	return strings.ToUpper(t.Literal)
}

// Lexer scans SQLite statement text. It knows enough of the grammar to find
// statement boundaries and parameter placeholders, and nothing more.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
}

// NewLexer creates a new lexer instance
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) atEOF() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) skipWhitespace() {
	for !l.atEOF() && (l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f') {
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for !l.atEOF() && (isLetter(l.ch) || isDigit(l.ch) || l.ch == '$') {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber() string {
	position := l.position
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		for !l.atEOF() && isHexDigit(l.ch) {
			l.readChar()
		}
		return l.input[position:l.position]
	}
	for !l.atEOF() && (isDigit(l.ch) || l.ch == '.') {
		l.readChar()
	}
	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for !l.atEOF() && isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[position:l.position]
}

// readQuoted consumes a quoted run ending in closing. A doubled closing
// character is an escaped one. ok is false when the input ends first.
func (l *Lexer) readQuoted(closing byte) (literal string, ok bool) {
	position := l.position
	l.readChar() // opening
	for {
		if l.atEOF() {
			return l.input[position:], false
		}
		if l.ch == closing {
			if l.peekChar() == closing && closing != ']' {
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar()
			return l.input[position:l.position], true
		}
		l.readChar()
	}
}

func (l *Lexer) readLineComment() string {
	position := l.position
	for !l.atEOF() && l.ch != '\n' {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readBlockComment() string {
	position := l.position
	l.readChar()
	l.readChar()
	for !l.atEOF() {
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			break
		}
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readPlaceholder() string {
	position := l.position
	prefix := l.ch
	l.readChar()
	if prefix == '?' {
		for !l.atEOF() && isDigit(l.ch) {
			l.readChar()
		}
		return l.input[position:l.position]
	}
	for !l.atEOF() && (isLetter(l.ch) || isDigit(l.ch)) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// NextToken returns the next token
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	pos := l.position
	if l.atEOF() {
		return Token{Type: TokenEOF, Pos: pos}
	}

	switch l.ch {
	case ';':
		l.readChar()
		return Token{Type: TokenSemicolon, Literal: ";", Pos: pos}
	case '\'':
		lit, ok := l.readQuoted('\'')
		return Token{Type: quotedType(TokenString, ok), Literal: lit, Pos: pos}
	case '"':
		lit, ok := l.readQuoted('"')
		return Token{Type: quotedType(TokenQuotedIdent, ok), Literal: lit, Pos: pos}
	case '`':
		lit, ok := l.readQuoted('`')
		return Token{Type: quotedType(TokenQuotedIdent, ok), Literal: lit, Pos: pos}
	case '[':
		lit, ok := l.readQuoted(']')
		return Token{Type: quotedType(TokenQuotedIdent, ok), Literal: lit, Pos: pos}
	case '-':
		if l.peekChar() == '-' {
			return Token{Type: TokenComment, Literal: l.readLineComment(), Pos: pos}
		}
	case '/':
		if l.peekChar() == '*' {
			return Token{Type: TokenComment, Literal: l.readBlockComment(), Pos: pos}
		}
	case '?':
		return Token{Type: TokenPlaceholder, Literal: l.readPlaceholder(), Pos: pos}
	case ':', '@', '$':
		if isLetter(l.peekChar()) || isDigit(l.peekChar()) {
			return Token{Type: TokenPlaceholder, Literal: l.readPlaceholder(), Pos: pos}
		}
	}

	switch {
	case (l.ch == 'x' || l.ch == 'X') && l.peekChar() == '\'':
		l.readChar()
		lit, ok := l.readQuoted('\'')
		return Token{Type: quotedType(TokenBlob, ok), Literal: "x" + lit, Pos: pos}
	case isLetter(l.ch):
		return Token{Type: TokenIdent, Literal: l.readIdentifier(), Pos: pos}
	case isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())):
		return Token{Type: TokenNumber, Literal: l.readNumber(), Pos: pos}
	}

	ch := l.ch
	l.readChar()
	return Token{Type: TokenPunctuation, Literal: string(ch), Pos: pos}
}

func quotedType(t TokenType, terminated bool) TokenType {
	if !terminated {
		return TokenIllegal
	}
	return t
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch >= 0x80
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || 'a' <= ch && ch <= 'f' || 'A' <= ch && ch <= 'F'
}

// String returns the name of the token type
func (t TokenType) String() string {
	switch t {
	case TokenIllegal:
		return "ILLEGAL"
	case TokenEOF:
		return "EOF"
	case TokenIdent:
		return "IDENT"
	case TokenQuotedIdent:
		return "QUOTED_IDENT"
	case TokenString:
		return "STRING"
	case TokenNumber:
		return "NUMBER"
	case TokenBlob:
		return "BLOB"
	case TokenPlaceholder:
		return "PLACEHOLDER"
	case TokenSemicolon:
		return "SEMICOLON"
	case TokenComment:
		return "COMMENT"
	case TokenPunctuation:
		return "PUNCT"
	default:
		return "UNKNOWN"
	}
}
