package sql

import (
	"fmt"
	"strconv"
	"strings"
)

// PlaceholderKind distinguishes the SQLite parameter forms
type PlaceholderKind int

const (
	// Positional is a bare "?"
	Positional PlaceholderKind = iota
	// Numbered is "?NNN"
	Numbered
	// Named is ":name", "@name" or "$name"
	Named
)

// Placeholder is a parameter reference found in a statement
type Placeholder struct {
	Kind   PlaceholderKind
	Prefix byte   // '?', ':', '@' or '$'
	Name   string // without prefix; empty for Positional
	Index  int    // for Numbered
	Pos    int    // byte offset in the original command text
}

// Text returns the placeholder as written
func (p Placeholder) Text() string {
	switch p.Kind {
	case Positional:
		return "?"
	case Numbered:
		return "?" + strconv.Itoa(p.Index)
	default:
		return string(p.Prefix) + p.Name
	}
}

// Statement is one semicolon-terminated statement of a command text
type Statement struct {
	Text         string
	Placeholders []Placeholder
	Keyword      string // first keyword, upper case
	Returning    bool   // has a top-level RETURNING clause
	dml          bool
}

// IsQuery reports whether the statement is expected to produce rows
func (s Statement) IsQuery() bool {
	switch s.Keyword {
	case "SELECT", "VALUES", "PRAGMA", "EXPLAIN":
		return true
	case "WITH":
		return !s.dml || s.Returning
	}
	return s.Returning
}

// Modifies reports whether the statement changes table rows. Only such
// statements have a meaningful affected-row count; after DDL the engine
// still reports the count of the previous DML statement.
func (s Statement) Modifies() bool {
	switch s.Keyword {
	case "INSERT", "UPDATE", "DELETE", "REPLACE":
		return true
	}
	return s.dml
}

// Split breaks command text into statements. Empty statements (blank text,
// stray semicolons, comment-only runs) are dropped. Semicolons inside
// CREATE TRIGGER bodies do not terminate the statement.
func Split(text string) ([]Statement, error) {
	var (
		stmts     []Statement
		cur       Statement
		start     = -1
		end       = 0
		trigger   bool
		inBody    bool
		caseDepth int
		depth     int
	)

	flush := func() {
		if start >= 0 {
			cur.Text = strings.TrimSpace(text[start:end])
			stmts = append(stmts, cur)
		}
		cur = Statement{}
		start = -1
		trigger, inBody, caseDepth, depth = false, false, 0, 0
	}

	lexer := NewLexer(text)
	for {
		tok := lexer.NextToken()
		switch tok.Type {
		case TokenEOF:
			flush()
			return stmts, nil
		case TokenIllegal:
			return nil, fmt.Errorf("unterminated literal at offset %d: %.20q", tok.Pos, tok.Literal)
		case TokenComment:
			continue
		case TokenSemicolon:
			if inBody {
				end = tok.Pos + 1
				continue
			}
			flush()
			continue
		}

		if start < 0 {
			start = tok.Pos
			cur.Keyword = tok.Keyword()
		}
		end = tok.Pos + len(tok.Literal)

		switch kw := tok.Keyword(); {
		case kw == "TRIGGER" && cur.Keyword == "CREATE":
			trigger = true
		case kw == "BEGIN" && trigger && !inBody:
			inBody = true
		case kw == "CASE" && inBody:
			caseDepth++
		case kw == "END" && inBody:
			if caseDepth > 0 {
				caseDepth--
			} else {
				inBody = false
			}
		case kw == "RETURNING" && !inBody:
			cur.Returning = true
		case cur.Keyword == "WITH" && depth == 0 && (kw == "INSERT" || kw == "UPDATE" || kw == "DELETE" || kw == "REPLACE"):
			cur.dml = true
		}

		if tok.Type == TokenPunctuation {
			switch tok.Literal {
			case "(":
				depth++
			case ")":
				depth--
			}
		}

		if tok.Type == TokenPlaceholder {
			p, err := placeholderFrom(tok)
			if err != nil {
				return nil, err
			}
			cur.Placeholders = append(cur.Placeholders, p)
		}
	}
}

func placeholderFrom(tok Token) (Placeholder, error) {
	lit := tok.Literal
	p := Placeholder{Prefix: lit[0], Pos: tok.Pos}
	switch {
	case lit == "?":
		p.Kind = Positional
	case lit[0] == '?':
		n, err := strconv.Atoi(lit[1:])
		if err != nil || n < 1 {
			return p, fmt.Errorf("invalid numbered placeholder %q at offset %d", lit, tok.Pos)
		}
		p.Kind = Numbered
		p.Index = n
	default:
		p.Kind = Named
		p.Name = lit[1:]
	}
	return p, nil
}
