// Package filter evaluates free-form board filters over tasks and columns.
// A raw filter string is tokenized into text and tag tokens; together with
// optional status and column constraints they form a State. A task matches
// when every facet of the State matches (AND across facets and across tag
// tokens). Nothing here touches storage.
package filter

import (
	"strings"

	"github.com/papapumpkin/lanes/internal/board"
)

// TokenType distinguishes free-text tokens from tag tokens.
type TokenType string

const (
	TokenText TokenType = "text"
	TokenTag  TokenType = "tag"
)

const tagPrefix = "tag:"

// Token is one parsed element of a filter string. Tag values are lower-case.
type Token struct {
	Type  TokenType
	Value string
}

// ParseTaskFilter splits raw on whitespace. Tokens starting with '#' or
// "tag:" (any case) become tag tokens with the prefix stripped and the value
// lower-cased; tags with an empty value are dropped. Everything else is a
// text token kept verbatim.
func ParseTaskFilter(raw string) []Token {
	var tokens []Token
	for _, field := range strings.Fields(raw) {
		switch {
		case strings.HasPrefix(field, "#"):
			tokens = appendTag(tokens, field[1:])
		case len(field) >= len(tagPrefix) && strings.EqualFold(field[:len(tagPrefix)], tagPrefix):
			tokens = appendTag(tokens, field[len(tagPrefix):])
		default:
			tokens = append(tokens, Token{Type: TokenText, Value: field})
		}
	}
	return tokens
}

func appendTag(tokens []Token, value string) []Token {
	value = strings.ToLower(strings.TrimLeft(value, "#"))
	if value == "" {
		return tokens
	}
	return append(tokens, Token{Type: TokenTag, Value: value})
}

// State is a complete filter: parsed tokens plus optional status and column
// equality constraints. The zero State matches everything.
type State struct {
	Tokens   []Token
	Status   board.Status
	ColumnID string
}

// NewState parses raw into a State without status or column constraints.
func NewState(raw string) State {
	return State{Tokens: ParseTaskFilter(raw)}
}

// IsEmpty reports whether the state constrains nothing.
func (s State) IsEmpty() bool {
	return len(s.Tokens) == 0 && s.Status == "" && s.ColumnID == ""
}

// TextTokens returns the values of the text tokens.
func (s State) TextTokens() []string {
	return s.values(TokenText)
}

// Tags returns the values of the tag tokens.
func (s State) Tags() []string {
	return s.values(TokenTag)
}

func (s State) values(typ TokenType) []string {
	var out []string
	for _, tok := range s.Tokens {
		if tok.Type == typ {
			out = append(out, tok.Value)
		}
	}
	return out
}

// String renders the state back into filter syntax.
func (s State) String() string {
	parts := make([]string, 0, len(s.Tokens)+2)
	for _, tok := range s.Tokens {
		if tok.Type == TokenTag {
			parts = append(parts, "#"+tok.Value)
		} else {
			parts = append(parts, tok.Value)
		}
	}
	if s.Status != "" {
		parts = append(parts, "status="+string(s.Status))
	}
	if s.ColumnID != "" {
		parts = append(parts, "column="+s.ColumnID)
	}
	return strings.Join(parts, " ")
}

// ApplyFilters returns the tasks matching st, preserving input order. When
// column is non-nil it is the column being rendered: a column constraint
// naming another column then excludes every task.
func ApplyFilters(tasks []board.Task, column *board.Column, st State) []board.Task {
	if column != nil && st.ColumnID != "" && column.ID != st.ColumnID {
		return []board.Task{}
	}
	chain := TaskChain(st)
	out := make([]board.Task, 0, len(tasks))
	for _, t := range tasks {
		if chain.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// ColumnMatchesFilters reports whether a column's name alone satisfies the
// text facet, so the column stays visible with zero matching tasks. It
// requires at least one text token, every text token contained in the column
// name (case-insensitive), and the column constraint, if any, to name this
// column. Tag and status facets do not apply to columns.
func ColumnMatchesFilters(column board.Column, st State) bool {
	text := st.TextTokens()
	if len(text) == 0 {
		return false
	}
	if st.ColumnID != "" && st.ColumnID != column.ID {
		return false
	}
	name := strings.ToLower(column.Name)
	for _, tok := range text {
		if !strings.Contains(name, strings.ToLower(tok)) {
			return false
		}
	}
	return true
}
