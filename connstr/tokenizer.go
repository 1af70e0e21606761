package connstr

import (
	"fmt"
	"strings"
)

// Pair is one key=value entry as written in a connection string
type Pair struct {
	Key   string // normalized: lower case, inner spaces and underscores removed
	Raw   string // key as written, trimmed
	Value string // trimmed, unquoted
	Pos   int    // byte offset of the segment
}

// SyntaxError reports a malformed segment
type SyntaxError struct {
	Pos     int
	Segment string
	Msg     string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("connection string: %s at offset %d (%q)", e.Msg, e.Pos, e.Segment)
}

// Tokenize splits s into key=value pairs.
//
// Segments are separated by commas. Blank segments are skipped. A value may be
// wrapped in single or double quotes to carry commas or equals signs; a doubled
// quote inside a quoted value stands for one quote character.
func Tokenize(s string) ([]Pair, error) {
	var pairs []Pair

	t := &tokenizer{input: s}
	for !t.eof() {
		start := t.pos
		key, value, sawEq, err := t.segment()
		if err != nil {
			return nil, err
		}
		text := strings.TrimSpace(s[start:t.pos])
		t.skipComma()

		if !sawEq {
			if text == "" {
				continue
			}
			return nil, &SyntaxError{Pos: start, Segment: text, Msg: "missing '='"}
		}

		raw := strings.TrimSpace(key)
		if raw == "" {
			return nil, &SyntaxError{Pos: start, Segment: text, Msg: "empty key"}
		}
		pairs = append(pairs, Pair{
			Key:   NormalizeKey(raw),
			Raw:   raw,
			Value: value,
			Pos:   start,
		})
	}

	return pairs, nil
}

// NormalizeKey folds case and drops spaces and underscores, so that
// "Data Source", "data_source" and "DATASOURCE" compare equal.
func NormalizeKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		if r == ' ' || r == '\t' || r == '_' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type tokenizer struct {
	input string
	pos   int
}

func (t *tokenizer) eof() bool {
	return t.pos >= len(t.input)
}

func (t *tokenizer) peek() byte {
	if t.eof() {
		return 0
	}
	return t.input[t.pos]
}

func (t *tokenizer) skipSpace() {
	for !t.eof() && isSpace(t.peek()) {
		t.pos++
	}
}

func (t *tokenizer) skipComma() {
	if t.peek() == ',' {
		t.pos++
	}
}

// segment consumes one segment up to (not including) the next top-level comma
func (t *tokenizer) segment() (key, value string, sawEq bool, err error) {
	start := t.pos
	for !t.eof() && t.peek() != ',' && t.peek() != '=' {
		t.pos++
	}
	key = t.input[start:t.pos]

	if t.peek() != '=' {
		return key, "", false, nil
	}
	t.pos++ // '='
	t.skipSpace()

	switch q := t.peek(); q {
	case '"', '\'':
		value, err = t.quoted(q)
		if err != nil {
			return "", "", true, err
		}
		t.skipSpace()
		if !t.eof() && t.peek() != ',' {
			return "", "", true, t.errorf(start, "unexpected text after quoted value")
		}
	default:
		vstart := t.pos
		for !t.eof() && t.peek() != ',' {
			if t.peek() == '=' {
				return "", "", true, t.errorf(start, "too many '=' delimiters")
			}
			t.pos++
		}
		value = strings.TrimSpace(t.input[vstart:t.pos])
	}

	return key, value, true, nil
}

func (t *tokenizer) quoted(q byte) (string, error) {
	start := t.pos
	t.pos++ // opening quote

	var b strings.Builder
	for {
		if t.eof() {
			return "", t.errorf(start, "unterminated quoted value")
		}
		ch := t.peek()
		t.pos++
		if ch != q {
			b.WriteByte(ch)
			continue
		}
		if t.peek() == q {
			b.WriteByte(q)
			t.pos++
			continue
		}
		return b.String(), nil
	}
}

func (t *tokenizer) errorf(start int, msg string) error {
	end := t.pos
	for end < len(t.input) && t.input[end] != ',' {
		end++
	}
	return &SyntaxError{Pos: start, Segment: strings.TrimSpace(t.input[start:end]), Msg: msg}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
