package filter

import (
	"strings"

	"github.com/papapumpkin/lanes/internal/board"
)

// Check is a single named predicate in a filter chain.
type Check struct {
	Name string
	Fn   func(t board.Task) bool
}

// Chain evaluates checks in order and stops at the first one that fails.
type Chain struct {
	Checks []Check
}

// Match reports whether every check accepts t.
func (c *Chain) Match(t board.Task) bool {
	return c.FirstFailure(t) == ""
}

// FirstFailure returns the name of the first check rejecting t, or "" when
// all checks pass.
func (c *Chain) FirstFailure(t board.Task) string {
	for _, check := range c.Checks {
		if !check.Fn(t) {
			return check.Name
		}
	}
	return ""
}

// TaskChain compiles a State into a chain with one check per present facet:
// "column", "status", "tags" and "text", cheapest first.
func TaskChain(st State) *Chain {
	var checks []Check
	if st.ColumnID != "" {
		checks = append(checks, Check{Name: "column", Fn: columnCheck(st.ColumnID)})
	}
	if st.Status != "" {
		checks = append(checks, Check{Name: "status", Fn: statusCheck(st.Status)})
	}
	if tags := st.Tags(); len(tags) > 0 {
		checks = append(checks, Check{Name: "tags", Fn: tagsCheck(tags)})
	}
	if text := st.TextTokens(); len(text) > 0 {
		checks = append(checks, Check{Name: "text", Fn: textCheck(text)})
	}
	return &Chain{Checks: checks}
}

func columnCheck(columnID string) func(board.Task) bool {
	return func(t board.Task) bool { return t.ColumnID == columnID }
}

// statusCheck compares against the effective status, so a task with no
// stored status matches the initial one.
func statusCheck(status board.Status) func(board.Task) bool {
	return func(t board.Task) bool { return t.CurrentStatus() == status }
}

func tagsCheck(tags []string) func(board.Task) bool {
	return func(t board.Task) bool {
		for _, tag := range tags {
			if !t.HasTag(tag) {
				return false
			}
		}
		return true
	}
}

// textCheck requires every token to appear in the title, summary or owner.
func textCheck(tokens []string) func(board.Task) bool {
	lowered := make([]string, len(tokens))
	for i, tok := range tokens {
		lowered[i] = strings.ToLower(tok)
	}
	return func(t board.Task) bool {
		fields := [...]string{strings.ToLower(t.Title), strings.ToLower(t.Summary), strings.ToLower(t.Owner)}
		for _, tok := range lowered {
			found := false
			for _, f := range fields {
				if strings.Contains(f, tok) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}
}
