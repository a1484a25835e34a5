// Package ordering maintains column membership and intra-column order. Every
// function mutates the given board in place and leaves it satisfying
// board.Validate, or returns an error and leaves it untouched.
package ordering

import (
	"slices"
	"time"

	"github.com/papapumpkin/lanes/internal/board"
)

// MoveTask moves a task to the end of targetColumnID, updating its ColumnID
// and UpdatedAt. Status is left alone. Moving a task into the column that
// already holds it is a no-op and reports false.
func MoveTask(b *board.Board, taskID, targetColumnID string, now time.Time) (bool, error) {
	const op = "move task"
	t := b.Task(taskID)
	if t == nil {
		return false, board.NotFound(op, taskID, "no task with this id")
	}
	if b.Column(targetColumnID) == nil {
		return false, board.NotFound(op, taskID, "target column %q does not exist", targetColumnID)
	}
	if t.ColumnID == targetColumnID {
		return false, nil
	}

	detach(b, t.ColumnID, taskID)
	target := b.Materialize(targetColumnID)
	target.TaskIDs = append(target.TaskIDs, taskID)
	t.ColumnID = targetColumnID
	t.UpdatedAt = now
	return true, nil
}

// ReorderTask places a task at index within targetColumnID. The index is
// clamped to the length of the column (not counting the task itself); a
// negative index is rejected. When the target differs from the task's
// column the move and the reorder happen together. It reports false when the
// resulting order equals the current one.
func ReorderTask(b *board.Board, taskID, targetColumnID string, index int, now time.Time) (bool, error) {
	const op = "reorder task"
	if index < 0 {
		return false, board.Invalid(op, taskID, "index must be >= 0, got %d", index)
	}
	t := b.Task(taskID)
	if t == nil {
		return false, board.NotFound(op, taskID, "no task with this id")
	}
	if b.Column(targetColumnID) == nil {
		return false, board.NotFound(op, taskID, "target column %q does not exist", targetColumnID)
	}

	current := b.OrderedTaskIDs(targetColumnID)
	without := slices.DeleteFunc(slices.Clone(current), func(id string) bool { return id == taskID })
	index = min(index, len(without))
	reordered := slices.Insert(without, index, taskID)

	if t.ColumnID == targetColumnID && slices.Equal(current, reordered) {
		return false, nil
	}

	detach(b, t.ColumnID, taskID)
	b.Column(targetColumnID).TaskIDs = reordered
	t.ColumnID = targetColumnID
	t.UpdatedAt = now
	return true, nil
}

// detach removes taskID from the explicit order of columnID, if any. Columns
// with derived order need no change.
func detach(b *board.Board, columnID, taskID string) {
	col := b.Column(columnID)
	if col == nil || col.TaskIDs == nil {
		return
	}
	col.TaskIDs = slices.DeleteFunc(col.TaskIDs, func(id string) bool { return id == taskID })
}

// MoveColumn moves sourceID so that it sits immediately before beforeID, or
// at the end when beforeID is empty. Positions are renumbered to 1..N. It
// reports whether the column order changed.
func MoveColumn(b *board.Board, sourceID, beforeID string) (bool, error) {
	const op = "move column"
	if b.Column(sourceID) == nil {
		return false, board.NotFound(op, sourceID, "no column with this id")
	}
	if beforeID != "" && b.Column(beforeID) == nil {
		return false, board.NotFound(op, sourceID, "anchor column %q does not exist", beforeID)
	}
	if beforeID == sourceID {
		return false, nil
	}

	changed := Renumber(b)
	before := columnIDs(b)

	src := b.Columns[b.ColumnIndex(sourceID)]
	cols := slices.DeleteFunc(slices.Clone(b.Columns), func(c board.Column) bool { return c.ID == sourceID })
	at := len(cols)
	if beforeID != "" {
		at = slices.IndexFunc(cols, func(c board.Column) bool { return c.ID == beforeID })
	}
	b.Columns = slices.Insert(cols, at, src)
	for i := range b.Columns {
		b.Columns[i].Position = i + 1
	}
	return changed || !slices.Equal(before, columnIDs(b)), nil
}

// Renumber sorts columns by position and rewrites positions as 1..N. It
// reports whether the order or any position changed.
func Renumber(b *board.Board) bool {
	before := columnIDs(b)
	b.SortColumns()
	changed := !slices.Equal(before, columnIDs(b))
	for i := range b.Columns {
		if b.Columns[i].Position != i+1 {
			changed = true
			b.Columns[i].Position = i + 1
		}
	}
	return changed
}

func columnIDs(b *board.Board) []string {
	ids := make([]string, len(b.Columns))
	for i, c := range b.Columns {
		ids[i] = c.ID
	}
	return ids
}
