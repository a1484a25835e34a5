// Package template loads board layouts: the initial set of columns for a new
// board plus which of them is the entry and the terminal column. Layouts are
// TOML; a few are built in and custom ones are read from a file.
package template

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/papapumpkin/lanes/internal/board"
	"github.com/papapumpkin/lanes/internal/ordering"
)

//go:embed layouts/*.toml
var builtins embed.FS

// Default is the layout used when none is named.
const Default = "kanban"

// ColumnSpec describes one column of a layout.
type ColumnSpec struct {
	ID       string `toml:"id"`
	Name     string `toml:"name"`
	WIPLimit int    `toml:"wip_limit"`
}

// Layout is a parsed board template.
type Layout struct {
	Name        string       `toml:"name"`
	Description string       `toml:"description"`
	Entry       string       `toml:"entry"`
	Terminal    string       `toml:"terminal"`
	Columns     []ColumnSpec `toml:"columns"`
}

// ErrUnknownTemplate is returned by Resolve for a name that is neither a
// built-in layout nor a readable file.
var ErrUnknownTemplate = errors.New("unknown board template")

// Parse decodes and validates a TOML layout. Column ids left empty are
// derived from the column names.
func Parse(data []byte) (Layout, error) {
	var l Layout
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&l); err != nil {
		return Layout{}, fmt.Errorf("parsing board template: %w", err)
	}
	for i := range l.Columns {
		if l.Columns[i].ID == "" {
			l.Columns[i].ID = ordering.ColumnIDFor(l.Columns[i].Name)
		}
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// Load reads a layout from a TOML file.
func Load(file string) (Layout, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Layout{}, fmt.Errorf("reading board template: %w", err)
	}
	l, err := Parse(data)
	if err != nil {
		return Layout{}, fmt.Errorf("%s: %w", file, err)
	}
	return l, nil
}

// Builtin returns the built-in layout with the given name.
func Builtin(name string) (Layout, bool) {
	data, err := builtins.ReadFile(path.Join("layouts", name+".toml"))
	if err != nil {
		return Layout{}, false
	}
	l, err := Parse(data)
	if err != nil {
		// Built-in layouts are tested; failing here is a packaging bug.
		panic(fmt.Sprintf("template: built-in layout %q: %v", name, err))
	}
	return l, true
}

// Names lists the built-in layouts, sorted.
func Names() []string {
	entries, _ := builtins.ReadDir("layouts")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".toml"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Resolve returns the built-in layout called nameOrPath, or else loads it as
// a file. An empty argument resolves to Default.
func Resolve(nameOrPath string) (Layout, error) {
	if nameOrPath == "" {
		nameOrPath = Default
	}
	if l, ok := Builtin(nameOrPath); ok {
		return l, nil
	}
	if _, err := os.Stat(nameOrPath); err != nil {
		return Layout{}, fmt.Errorf("%w %q (built-in: %s)", ErrUnknownTemplate, nameOrPath, strings.Join(Names(), ", "))
	}
	return Load(nameOrPath)
}

// Validate checks that the layout has columns with unique ids, non-negative
// WIP limits, and entry/terminal designations naming its own columns.
func (l Layout) Validate() error {
	if len(l.Columns) == 0 {
		return errors.New("board template: at least one column is required")
	}
	seen := make(map[string]bool, len(l.Columns))
	for _, c := range l.Columns {
		if seen[c.ID] {
			return fmt.Errorf("board template: duplicate column id %q", c.ID)
		}
		seen[c.ID] = true
		if c.WIPLimit < 0 {
			return fmt.Errorf("board template: column %q: wip_limit must be >= 0", c.ID)
		}
	}
	if l.Entry != "" && !seen[l.Entry] {
		return fmt.Errorf("board template: entry column %q is not defined", l.Entry)
	}
	if l.Terminal != "" && !seen[l.Terminal] {
		return fmt.Errorf("board template: terminal column %q is not defined", l.Terminal)
	}
	return nil
}

// EntryColumn returns the designated entry column id, defaulting to the
// first column.
func (l Layout) EntryColumn() string {
	if l.Entry != "" {
		return l.Entry
	}
	return l.Columns[0].ID
}

// TerminalColumn returns the designated terminal column id, defaulting to
// the last column.
func (l Layout) TerminalColumn() string {
	if l.Terminal != "" {
		return l.Terminal
	}
	return l.Columns[len(l.Columns)-1].ID
}

// Board builds an empty board holding the layout's columns in order.
func (l Layout) Board() *board.Board {
	b := board.New()
	for i, c := range l.Columns {
		b.Columns = append(b.Columns, board.Column{
			ID:       c.ID,
			Name:     c.Name,
			Position: i + 1,
			TaskIDs:  []string{},
			WIPLimit: c.WIPLimit,
		})
	}
	return b
}
