package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/papapumpkin/lanes/internal/board"
	"github.com/papapumpkin/lanes/internal/filter"
)

// minColumnWidth is the narrowest a rendered column may get.
const minColumnWidth = 18

// BoardView renders the board's columns side by side and tracks a cursor
// of (column, row) over the tasks that pass the active filter.
type BoardView struct {
	Board  *board.Board
	Filter filter.State
	Col    int
	Row    int
	Width  int
	Height int
}

// NewBoardView creates an empty board view.
func NewBoardView() BoardView {
	return BoardView{Board: board.New()}
}

// SetBoard replaces the rendered board, keeping the cursor on the same task
// when it is still visible.
func (bv *BoardView) SetBoard(b *board.Board) {
	selected := bv.SelectedTask()
	bv.Board = b
	if selected != nil && bv.focus(selected.ID) {
		return
	}
	bv.clamp()
}

// SetFilter replaces the filter and re-clamps the cursor.
func (bv *BoardView) SetFilter(st filter.State) {
	bv.Filter = st
	bv.clamp()
}

// visible returns the filtered tasks of column i in canonical order.
func (bv BoardView) visible(i int) []board.Task {
	if bv.Board == nil || i < 0 || i >= len(bv.Board.Columns) {
		return nil
	}
	col := &bv.Board.Columns[i]
	return filter.ApplyFilters(bv.Board.TasksIn(col.ID), col, bv.Filter)
}

// SelectedColumn returns the focused column, or nil on an empty board.
func (bv BoardView) SelectedColumn() *board.Column {
	if bv.Board == nil || bv.Col < 0 || bv.Col >= len(bv.Board.Columns) {
		return nil
	}
	return &bv.Board.Columns[bv.Col]
}

// SelectedTask returns the task under the cursor.
func (bv BoardView) SelectedTask() *board.Task {
	tasks := bv.visible(bv.Col)
	if bv.Row < 0 || bv.Row >= len(tasks) {
		return nil
	}
	t := tasks[bv.Row]
	return &t
}

// MoveUp moves the cursor to the previous task in the column.
func (bv *BoardView) MoveUp() {
	if bv.Row > 0 {
		bv.Row--
	}
}

// MoveDown moves the cursor to the next task in the column.
func (bv *BoardView) MoveDown() {
	if bv.Row < len(bv.visible(bv.Col))-1 {
		bv.Row++
	}
}

// MoveLeft focuses the previous column.
func (bv *BoardView) MoveLeft() {
	if bv.Col > 0 {
		bv.Col--
		bv.clamp()
	}
}

// MoveRight focuses the next column.
func (bv *BoardView) MoveRight() {
	if bv.Board != nil && bv.Col < len(bv.Board.Columns)-1 {
		bv.Col++
		bv.clamp()
	}
}

// NeighborColumn returns the id of the column delta positions away from the
// focused one, or "" at the board edge.
func (bv BoardView) NeighborColumn(delta int) string {
	i := bv.Col + delta
	if bv.Board == nil || i < 0 || i >= len(bv.Board.Columns) {
		return ""
	}
	return bv.Board.Columns[i].ID
}

// focus puts the cursor on the task with the given id.
func (bv *BoardView) focus(id string) bool {
	if bv.Board == nil {
		return false
	}
	for ci := range bv.Board.Columns {
		for ri, t := range bv.visible(ci) {
			if t.ID == id {
				bv.Col, bv.Row = ci, ri
				return true
			}
		}
	}
	return false
}

func (bv *BoardView) clamp() {
	n := 0
	if bv.Board != nil {
		n = len(bv.Board.Columns)
	}
	bv.Col = max(0, min(bv.Col, n-1))
	bv.Row = max(0, min(bv.Row, len(bv.visible(bv.Col))-1))
}

// columnWidth splits the terminal width across the columns.
func (bv BoardView) columnWidth() int {
	n := len(bv.Board.Columns)
	if n == 0 {
		return minColumnWidth
	}
	// Two border cells and two padding cells per column.
	return max(minColumnWidth, bv.Width/n-4)
}

// View renders the board.
func (bv BoardView) View() string {
	if bv.Board == nil || len(bv.Board.Columns) == 0 {
		return styleCardMeta.Render("(empty board; run lanes init)")
	}
	width := bv.columnWidth()
	cols := make([]string, 0, len(bv.Board.Columns))
	for i := range bv.Board.Columns {
		cols = append(cols, bv.renderColumn(i, width))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (bv BoardView) renderColumn(i, width int) string {
	col := bv.Board.Columns[i]
	total := bv.Board.CountIn(col.ID)

	header := col.DisplayName()
	if col.WIPLimit > 0 {
		header = fmt.Sprintf("%s %d/%d", header, total, col.WIPLimit)
	} else {
		header = fmt.Sprintf("%s %d", header, total)
	}
	headerStyle := styleColumnHeader
	if bv.Board.OverWIPLimit(col.ID) {
		headerStyle = styleColumnOverLimit
	}

	lines := []string{headerStyle.Render(truncate(header, width)), ""}
	tasks := bv.visible(i)
	if len(tasks) == 0 {
		lines = append(lines, styleCardMeta.Render("—"))
	}
	for ri, t := range tasks {
		lines = append(lines, bv.renderCard(t, width, i == bv.Col && ri == bv.Row))
	}

	style := styleColumn
	if i == bv.Col {
		style = styleColumnFocused
	}
	style = style.Width(width)
	if bv.Height > 0 {
		style = style.Height(max(3, bv.Height-2))
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (bv BoardView) renderCard(t board.Task, width int, selected bool) string {
	icon, color := statusIcon(t.CurrentStatus())
	prefix := " "
	titleStyle := styleCardNormal
	if selected {
		prefix = selectionIndicator
		titleStyle = styleCardSelected
	}
	title := prefix + lipgloss.NewStyle().Foreground(color).Render(icon) + " " + titleStyle.Render(truncate(t.Title, width-4))

	var meta []string
	meta = append(meta, t.ID)
	if t.Owner != "" {
		meta = append(meta, "@"+t.Owner)
	}
	for _, tag := range t.Tags {
		meta = append(meta, "#"+tag)
	}
	return title + "\n   " + styleCardMeta.Render(truncate(strings.Join(meta, " "), width-3))
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
