package ordering

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/papapumpkin/lanes/internal/board"
)

var (
	created = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	now     = created.Add(time.Hour)
)

func newBoard() *board.Board {
	mk := func(id, col string, st board.Status) board.Task {
		return board.Task{ID: id, ColumnID: col, Title: id, Status: st, CreatedAt: created, UpdatedAt: created}
	}
	return &board.Board{
		Version: board.CurrentVersion,
		Columns: []board.Column{
			{ID: "col-a", Name: "A", Position: 1, TaskIDs: []string{"T-1", "T-2", "T-3"}},
			{ID: "col-b", Name: "B", Position: 2},
			{ID: "col-c", Name: "C", Position: 3, TaskIDs: []string{}},
		},
		Items: []board.Task{
			mk("T-1", "col-a", board.StatusReady),
			mk("T-2", "col-a", board.StatusInProgress),
			mk("T-3", "col-a", board.StatusReady),
			mk("T-4", "col-b", board.StatusBlocked),
			mk("T-5", "col-b", board.StatusReady),
		},
	}
}

func mustValid(t *testing.T, b *board.Board) {
	t.Helper()
	if errs := board.Validate(b); len(errs) > 0 {
		t.Fatalf("board invalid after operation: %v", board.JoinValidation(errs))
	}
}

func positions(b *board.Board) []int {
	out := make([]int, len(b.Columns))
	for i, c := range b.Columns {
		out[i] = c.Position
	}
	return out
}

func TestMoveTask_PreservesStatus(t *testing.T) {
	t.Parallel()
	b := newBoard()

	changed, err := MoveTask(b, "T-2", "col-b", now)
	if err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	if !changed {
		t.Fatal("MoveTask reported no change")
	}
	mustValid(t, b)

	got := b.Task("T-2")
	if got.Status != board.StatusInProgress {
		t.Errorf("status = %q, want %q", got.Status, board.StatusInProgress)
	}
	if got.ColumnID != "col-b" || !got.UpdatedAt.Equal(now) {
		t.Errorf("task = %+v, want column col-b and bumped updatedAt", *got)
	}
	if diff := cmp.Diff([]string{"T-1", "T-3"}, b.Column("col-a").TaskIDs); diff != "" {
		t.Errorf("source taskIds mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"T-4", "T-5", "T-2"}, b.OrderedTaskIDs("col-b")); diff != "" {
		t.Errorf("target order mismatch (-want +got):\n%s", diff)
	}
}

func TestMoveTask_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		task   string
		target string
	}{
		{"unknown task", "T-99", "col-b"},
		{"unknown column", "T-1", "col-missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := newBoard()
			before := b.Clone()

			_, err := MoveTask(b, tt.task, tt.target, now)
			if !errors.Is(err, board.ErrNotFound) {
				t.Fatalf("error = %v, want ErrNotFound", err)
			}
			if diff := cmp.Diff(before, b); diff != "" {
				t.Errorf("board changed on error (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMoveTask_SameColumnIsNoOp(t *testing.T) {
	t.Parallel()
	b := newBoard()
	before := b.Clone()

	changed, err := MoveTask(b, "T-1", "col-a", now)
	if err != nil || changed {
		t.Fatalf("MoveTask = (%v, %v), want (false, nil)", changed, err)
	}
	if diff := cmp.Diff(before, b); diff != "" {
		t.Errorf("board changed (-want +got):\n%s", diff)
	}
}

func TestReorderTask_RoundTrip(t *testing.T) {
	t.Parallel()
	b := newBoard()
	original := b.OrderedTaskIDs("col-a")

	if _, err := ReorderTask(b, "T-3", "col-a", 0, now); err != nil {
		t.Fatalf("ReorderTask to 0: %v", err)
	}
	if diff := cmp.Diff([]string{"T-3", "T-1", "T-2"}, b.Column("col-a").TaskIDs); diff != "" {
		t.Errorf("after reorder (-want +got):\n%s", diff)
	}
	if _, err := ReorderTask(b, "T-3", "col-a", 2, now); err != nil {
		t.Fatalf("ReorderTask back: %v", err)
	}
	if diff := cmp.Diff(original, b.Column("col-a").TaskIDs); diff != "" {
		t.Errorf("round trip did not restore order (-want +got):\n%s", diff)
	}
	mustValid(t, b)
}

func TestReorderTask_SamePositionIsNoOp(t *testing.T) {
	t.Parallel()
	b := newBoard()
	before := b.Clone()

	changed, err := ReorderTask(b, "T-2", "col-a", 1, now)
	if err != nil || changed {
		t.Fatalf("ReorderTask = (%v, %v), want (false, nil)", changed, err)
	}
	if diff := cmp.Diff(before, b); diff != "" {
		t.Errorf("board changed (-want +got):\n%s", diff)
	}
}

func TestReorderTask_ClampsAndRejectsNegative(t *testing.T) {
	t.Parallel()
	b := newBoard()

	if _, err := ReorderTask(b, "T-1", "col-a", -1, now); !errors.Is(err, board.ErrInvalidInput) {
		t.Fatalf("negative index error = %v, want ErrInvalidInput", err)
	}
	if _, err := ReorderTask(b, "T-1", "col-a", 99, now); err != nil {
		t.Fatalf("ReorderTask: %v", err)
	}
	if diff := cmp.Diff([]string{"T-2", "T-3", "T-1"}, b.Column("col-a").TaskIDs); diff != "" {
		t.Errorf("clamped reorder (-want +got):\n%s", diff)
	}
}

func TestReorderTask_CrossColumn(t *testing.T) {
	t.Parallel()
	b := newBoard()

	changed, err := ReorderTask(b, "T-1", "col-b", 1, now)
	if err != nil || !changed {
		t.Fatalf("ReorderTask = (%v, %v), want (true, nil)", changed, err)
	}
	mustValid(t, b)
	if diff := cmp.Diff([]string{"T-4", "T-1", "T-5"}, b.Column("col-b").TaskIDs); diff != "" {
		t.Errorf("target order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"T-2", "T-3"}, b.Column("col-a").TaskIDs); diff != "" {
		t.Errorf("source order (-want +got):\n%s", diff)
	}
	if got := b.Task("T-1"); got.ColumnID != "col-b" || got.Status != board.StatusReady {
		t.Errorf("task = %+v", *got)
	}
}

func TestMoveColumn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
		before string
		want   []string
	}{
		{"to end", "col-a", "", []string{"col-b", "col-c", "col-a"}},
		{"before first", "col-c", "col-a", []string{"col-c", "col-a", "col-b"}},
		{"before itself", "col-b", "col-b", []string{"col-a", "col-b", "col-c"}},
		{"already in place", "col-a", "col-b", []string{"col-a", "col-b", "col-c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := newBoard()
			if _, err := MoveColumn(b, tt.source, tt.before); err != nil {
				t.Fatalf("MoveColumn: %v", err)
			}
			if diff := cmp.Diff(tt.want, columnIDs(b)); diff != "" {
				t.Errorf("column order (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]int{1, 2, 3}, positions(b)); diff != "" {
				t.Errorf("positions (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMoveColumn_UnknownIDs(t *testing.T) {
	t.Parallel()
	b := newBoard()
	if _, err := MoveColumn(b, "col-x", ""); !errors.Is(err, board.ErrNotFound) {
		t.Errorf("unknown source error = %v, want ErrNotFound", err)
	}
	if _, err := MoveColumn(b, "col-a", "col-x"); !errors.Is(err, board.ErrNotFound) {
		t.Errorf("unknown anchor error = %v, want ErrNotFound", err)
	}
}

func TestAddAndRemoveColumn_PositionsStayContiguous(t *testing.T) {
	t.Parallel()
	b := newBoard()

	col, err := AddColumn(b, board.Column{Name: "In Review"})
	if err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	if col.ID != "col-in-review" || col.Position != 4 {
		t.Errorf("added column = %+v", col)
	}
	dup, err := AddColumn(b, board.Column{Name: "in review"})
	if err != nil {
		t.Fatalf("AddColumn duplicate name: %v", err)
	}
	if dup.ID != "col-in-review-2" {
		t.Errorf("derived id = %q, want col-in-review-2", dup.ID)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, positions(b)); diff != "" {
		t.Errorf("positions after add (-want +got):\n%s", diff)
	}

	if _, err := RemoveColumn(b, "col-b", "col-c", now); err != nil {
		t.Fatalf("RemoveColumn: %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4}, positions(b)); diff != "" {
		t.Errorf("positions after remove (-want +got):\n%s", diff)
	}
	mustValid(t, b)
}

func TestAddColumn_Rejects(t *testing.T) {
	t.Parallel()
	b := newBoard()
	if _, err := AddColumn(b, board.Column{ID: "col-a", Name: "again"}); !errors.Is(err, board.ErrInvalidInput) {
		t.Errorf("duplicate id error = %v, want ErrInvalidInput", err)
	}
	if _, err := AddColumn(b, board.Column{Name: "x", WIPLimit: -1}); !errors.Is(err, board.ErrInvalidInput) {
		t.Errorf("negative wip error = %v, want ErrInvalidInput", err)
	}
}

func TestRemoveColumn_RelocatesTasks(t *testing.T) {
	t.Parallel()
	b := newBoard()

	moved, err := RemoveColumn(b, "col-a", "col-b", now)
	if err != nil {
		t.Fatalf("RemoveColumn: %v", err)
	}
	if diff := cmp.Diff([]string{"T-1", "T-2", "T-3"}, moved); diff != "" {
		t.Errorf("relocated ids (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"T-4", "T-5", "T-1", "T-2", "T-3"}, b.Column("col-b").TaskIDs); diff != "" {
		t.Errorf("target order (-want +got):\n%s", diff)
	}
	if b.Task("T-2").Status != board.StatusInProgress {
		t.Error("relocation must not change status")
	}
	mustValid(t, b)
}

func TestRemoveColumn_Preconditions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		setup      func(*board.Board)
		column     string
		relocateTo string
		want       error
	}{
		{"unknown column", nil, "col-x", "", board.ErrNotFound},
		{"tasks without target", nil, "col-a", "", board.ErrInvalidInput},
		{"target is itself", nil, "col-a", "col-a", board.ErrInvalidInput},
		{"unknown target", nil, "col-a", "col-x", board.ErrNotFound},
		{
			name: "last column with tasks",
			setup: func(b *board.Board) {
				b.Columns = b.Columns[:1]
				b.Items = b.Items[:3]
			},
			column: "col-a",
			want:   board.ErrInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := newBoard()
			if tt.setup != nil {
				tt.setup(b)
			}
			before := b.Clone()
			if _, err := RemoveColumn(b, tt.column, tt.relocateTo, now); !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if diff := cmp.Diff(before, b); diff != "" {
				t.Errorf("board changed on error (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRemoveColumn_EmptyNeedsNoTarget(t *testing.T) {
	t.Parallel()
	b := newBoard()
	if _, err := RemoveColumn(b, "col-c", "", now); err != nil {
		t.Fatalf("RemoveColumn: %v", err)
	}
	if diff := cmp.Diff([]string{"col-a", "col-b"}, columnIDs(b)); diff != "" {
		t.Errorf("columns (-want +got):\n%s", diff)
	}
}

func TestRenameAndWIP(t *testing.T) {
	t.Parallel()
	b := newBoard()

	if changed, err := RenameColumn(b, "col-a", "  "); err != nil || !changed {
		t.Fatalf("RenameColumn = (%v, %v)", changed, err)
	}
	if got := b.Column("col-a").DisplayName(); got != board.FallbackColumnName {
		t.Errorf("DisplayName = %q, want fallback", got)
	}
	if _, err := SetWIPLimit(b, "col-a", -2); !errors.Is(err, board.ErrInvalidInput) {
		t.Errorf("negative limit error = %v, want ErrInvalidInput", err)
	}
	if changed, err := SetWIPLimit(b, "col-a", 2); err != nil || !changed {
		t.Fatalf("SetWIPLimit = (%v, %v)", changed, err)
	}
	if !b.OverWIPLimit("col-a") {
		t.Error("col-a holds 3 tasks with limit 2; want over limit")
	}
}

func TestColumnIDFor(t *testing.T) {
	t.Parallel()
	tests := []struct{ in, want string }{
		{"Backlog", "col-backlog"},
		{"In Progress", "col-in-progress"},
		{"  QA / Review!! ", "col-qa-review"},
		{"snake_case_name", "col-snake-case-name"},
		{"???", "col-column"},
	}
	for _, tt := range tests {
		if got := ColumnIDFor(tt.in); got != tt.want {
			t.Errorf("ColumnIDFor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
