package sqlite

import (
	"database/sql"
	"strings"
	"unicode"
	"unicode/utf8"

	sqltext "github.com/rediwo/redi-ado/sql"
)

// Parameter is a value bound to a command. Name may be written with or
// without its placeholder prefix (":id", "@id", "$id" and "id" are the same
// parameter); an empty Name binds to the next "?" placeholder.
type Parameter struct {
	Name  string
	Value any
}

func (p *Parameter) key() string {
	return normalizeParamName(p.Name)
}

func normalizeParamName(name string) string {
	name = strings.TrimSpace(name)
	if name != "" && strings.ContainsRune(":@$", rune(name[0])) {
		name = name[1:]
	}
	return strings.ToLower(name)
}

// ParameterCollection holds the parameters of a command in insertion order.
// Adding only accumulates values; matching against placeholders happens when
// the command executes.
type ParameterCollection struct {
	items []*Parameter
}

// Add binds a named parameter, replacing the value of an existing parameter
// of the same name
func (pc *ParameterCollection) Add(name string, value any) *Parameter {
	if name == "" {
		return pc.AddPositional(value)
	}
	if p, ok := pc.Get(name); ok {
		p.Value = value
		return p
	}
	p := &Parameter{Name: name, Value: value}
	pc.items = append(pc.items, p)
	return p
}

// AddPositional appends an unnamed parameter for the next "?" placeholder
func (pc *ParameterCollection) AddPositional(value any) *Parameter {
	p := &Parameter{Value: value}
	pc.items = append(pc.items, p)
	return p
}

// Len returns the number of parameters
func (pc *ParameterCollection) Len() int {
	return len(pc.items)
}

// Get finds a named parameter, ignoring prefix and case
func (pc *ParameterCollection) Get(name string) (*Parameter, bool) {
	key := normalizeParamName(name)
	if key == "" {
		return nil, false
	}
	for _, p := range pc.items {
		if p.key() == key {
			return p, true
		}
	}
	return nil, false
}

// At returns the parameter at index i, or nil when i is out of range
func (pc *ParameterCollection) At(i int) *Parameter {
	if i < 0 || i >= len(pc.items) {
		return nil
	}
	return pc.items[i]
}

// Remove deletes a named parameter and reports whether it existed
func (pc *ParameterCollection) Remove(name string) bool {
	key := normalizeParamName(name)
	for i, p := range pc.items {
		if key != "" && p.key() == key {
			pc.items = append(pc.items[:i], pc.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes all parameters
func (pc *ParameterCollection) Clear() {
	pc.items = nil
}

// bind matches the parameters against the placeholders of every statement
// and returns the engine arguments per statement. Every placeholder must find
// a parameter and every parameter must be used by some placeholder.
func (pc *ParameterCollection) bind(stmts []sqltext.Statement, c *coercer) ([][]any, error) {
	const op = "failed to bind parameters"

	named := make(map[string]*Parameter)
	var positional []*Parameter
	for _, p := range pc.items {
		if k := p.key(); k != "" {
			named[k] = p
		} else {
			positional = append(positional, p)
		}
	}

	used := make(map[*Parameter]bool, len(pc.items))
	nextPositional := 0
	args := make([][]any, len(stmts))

	for i, stmt := range stmts {
		written := make(map[string]bool)
		for _, ph := range stmt.Placeholders {
			switch ph.Kind {
			case sqltext.Numbered:
				return nil, newError(KindEngine, op, nil,
					"numbered placeholder %s at offset %d is not supported", ph.Text(), ph.Pos)

			case sqltext.Positional:
				if nextPositional >= len(positional) {
					return nil, newError(KindBinding, op, nil,
						"no value for positional placeholder at offset %d", ph.Pos)
				}
				p := positional[nextPositional]
				nextPositional++
				used[p] = true
				v, err := c.bindValue(p.Value)
				if err != nil {
					return nil, err
				}
				args[i] = append(args[i], v)

			case sqltext.Named:
				if !bindableName(ph.Name) {
					return nil, newError(KindBinding, op, nil,
						"placeholder %s at offset %d: parameter names must begin with a letter", ph.Text(), ph.Pos)
				}
				p, ok := named[strings.ToLower(ph.Name)]
				if !ok {
					return nil, newError(KindBinding, op, nil,
						"no parameter bound for placeholder %s", ph.Text())
				}
				used[p] = true
				// the engine binds each distinct spelling once
				if written[ph.Name] {
					continue
				}
				written[ph.Name] = true
				v, err := c.bindValue(p.Value)
				if err != nil {
					return nil, err
				}
				args[i] = append(args[i], sql.Named(ph.Name, v))
			}
		}
	}

	for _, p := range pc.items {
		if !used[p] {
			if p.Name == "" {
				return nil, newError(KindBinding, op, nil,
					"%d positional parameters bound but only %d placeholders found", len(positional), nextPositional)
			}
			return nil, newError(KindBinding, op, nil, "parameter %s matches no placeholder", p.Name)
		}
	}
	return args, nil
}

// bindableName reports whether database/sql can carry name as a named
// argument
func bindableName(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsLetter(r)
}
