package ordering

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/papapumpkin/lanes/internal/board"
)

// ColumnIDPrefix prefixes ids derived from column names.
const ColumnIDPrefix = "col-"

var (
	nonAlphanumHyphen = regexp.MustCompile(`[^a-z0-9-]`)
	multiHyphen       = regexp.MustCompile(`-{2,}`)
)

// ColumnIDFor derives a column id from a display name, e.g. "In Progress"
// becomes "col-in-progress". Names with no usable characters yield
// "col-column".
func ColumnIDFor(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")
	s = nonAlphanumHyphen.ReplaceAllString(s, "")
	s = multiHyphen.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 40 {
		s = strings.TrimRight(s[:40], "-")
	}
	if s == "" {
		s = "column"
	}
	return ColumnIDPrefix + s
}

// AddColumn appends col at the end of the board and returns it as stored.
// An empty ID is derived from the name and made unique with a numeric
// suffix; an explicit ID that already exists is rejected.
func AddColumn(b *board.Board, col board.Column) (board.Column, error) {
	const op = "add column"
	col.Name = strings.TrimSpace(col.Name)
	if col.WIPLimit < 0 {
		return board.Column{}, board.Invalid(op, col.ID, "wip limit must be >= 0, got %d", col.WIPLimit)
	}
	if col.ID == "" {
		col.ID = uniqueColumnID(b, ColumnIDFor(col.Name))
	} else if strings.ContainsAny(col.ID, " \t\n") {
		return board.Column{}, board.Invalid(op, col.ID, "column id must not contain whitespace")
	} else if b.Column(col.ID) != nil {
		return board.Column{}, board.Invalid(op, col.ID, "column already exists")
	}

	Renumber(b)
	col.Position = len(b.Columns) + 1
	col.TaskIDs = []string{}
	b.Columns = append(b.Columns, col)
	return col, nil
}

func uniqueColumnID(b *board.Board, base string) string {
	id := base
	for n := 2; b.Column(id) != nil; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}

// RemoveColumn deletes a column. A column that still holds tasks requires
// relocateTo, an existing other column that receives the tasks at its end;
// removing the only column while tasks remain is rejected outright. It
// returns the ids of the relocated tasks in their former order.
func RemoveColumn(b *board.Board, id, relocateTo string, now time.Time) ([]string, error) {
	const op = "remove column"
	if b.Column(id) == nil {
		return nil, board.NotFound(op, id, "no column with this id")
	}
	tasks := b.OrderedTaskIDs(id)
	if len(tasks) > 0 {
		switch {
		case len(b.Columns) == 1:
			return nil, board.Invalid(op, id, "cannot remove the last column while it holds %d task(s)", len(tasks))
		case relocateTo == "":
			return nil, board.Invalid(op, id, "column holds %d task(s); a relocation target is required", len(tasks))
		}
	}
	if relocateTo != "" {
		if relocateTo == id {
			return nil, board.Invalid(op, id, "cannot relocate tasks into the column being removed")
		}
		if b.Column(relocateTo) == nil {
			return nil, board.NotFound(op, id, "relocation column %q does not exist", relocateTo)
		}
	}

	if len(tasks) > 0 {
		target := b.Materialize(relocateTo)
		target.TaskIDs = append(target.TaskIDs, tasks...)
		for _, tid := range tasks {
			t := b.Task(tid)
			t.ColumnID = relocateTo
			t.UpdatedAt = now
		}
	}
	b.Columns = slices.DeleteFunc(b.Columns, func(c board.Column) bool { return c.ID == id })
	Renumber(b)
	return tasks, nil
}

// RenameColumn sets a column's display name. An empty name is allowed and is
// shown with the fallback label.
func RenameColumn(b *board.Board, id, name string) (bool, error) {
	col := b.Column(id)
	if col == nil {
		return false, board.NotFound("rename column", id, "no column with this id")
	}
	name = strings.TrimSpace(name)
	if col.Name == name {
		return false, nil
	}
	col.Name = name
	return true, nil
}

// SetWIPLimit sets a column's advisory WIP limit; zero clears it.
func SetWIPLimit(b *board.Board, id string, limit int) (bool, error) {
	const op = "set wip limit"
	col := b.Column(id)
	if col == nil {
		return false, board.NotFound(op, id, "no column with this id")
	}
	if limit < 0 {
		return false, board.Invalid(op, id, "wip limit must be >= 0, got %d", limit)
	}
	if col.WIPLimit == limit {
		return false, nil
	}
	col.WIPLimit = limit
	return true, nil
}
