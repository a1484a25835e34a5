package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"

	"github.com/papapumpkin/lanes/internal/board"
	"github.com/papapumpkin/lanes/internal/filter"
	"github.com/papapumpkin/lanes/internal/store"
	"github.com/papapumpkin/lanes/internal/telemetry"
	"github.com/papapumpkin/lanes/internal/template"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// stepClock advances one minute per reading so every mutation gets a
// distinct timestamp.
type stepClock struct{ t time.Time }

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

type harness struct {
	svc    *Service
	store  *store.Store
	hook   *test.Hook
	events *bytes.Buffer
}

// newHarness returns a service over an in-memory kanban board.
func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	st := store.New(afero.NewMemMapFs(), "/proj/.lanes")
	logger, hook := test.NewNullLogger()
	var events bytes.Buffer
	clock := &stepClock{t: epoch}
	opts = append([]Option{
		WithClock(clock.Now),
		WithLogger(logger),
		WithEvents(telemetry.NewWriterEmitter(&events)),
	}, opts...)
	svc := New(st, opts...)

	layout, ok := template.Builtin("kanban")
	if !ok {
		t.Fatal("kanban layout missing")
	}
	if _, err := svc.InitBoard(context.Background(), layout); err != nil {
		t.Fatalf("InitBoard: %v", err)
	}
	return &harness{svc: svc, store: st, hook: hook, events: &events}
}

func (h *harness) create(t *testing.T, in NewTask) board.Task {
	t.Helper()
	task, err := h.svc.CreateTask(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateTask(%q): %v", in.Title, err)
	}
	return task
}

func (h *harness) board(t *testing.T) *board.Board {
	t.Helper()
	b, err := h.svc.ReadBoard(context.Background())
	if err != nil {
		t.Fatalf("ReadBoard: %v", err)
	}
	if errs := board.Validate(b); len(errs) > 0 {
		t.Fatalf("board violates invariants: %v", board.JoinValidation(errs))
	}
	return b
}

func (h *harness) kinds(t *testing.T) []string {
	t.Helper()
	events, err := telemetry.ReadEvents(bytes.NewReader(h.events.Bytes()))
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	var out []string
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func TestInitBoard_RefusesInitializedBoard(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	b := h.board(t)
	if len(b.Columns) != 4 {
		t.Fatalf("expected 4 kanban columns, got %d", len(b.Columns))
	}
	layout, _ := template.Builtin("simple")
	_, err := h.svc.InitBoard(context.Background(), layout)
	if !errors.Is(err, board.ErrInvalidInput) {
		t.Fatalf("second InitBoard error = %v, want ErrInvalidInput", err)
	}
}

func TestInitBoard_Designations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		opts         []Option
		wantEntry    string
		wantTerminal string
	}{
		{"layout defaults", nil, "col-backlog", "col-done"},
		{"configured", []Option{WithEntryColumn("col-in-progress"), WithTerminalColumn("col-review")}, "col-in-progress", "col-review"},
		{"configured column absent from layout", []Option{WithEntryColumn("col-triage"), WithTerminalColumn("col-shipped")}, "col-backlog", "col-done"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			svc := New(store.New(afero.NewMemMapFs(), "/proj/.lanes"), tt.opts...)
			layout, _ := template.Builtin("kanban")

			res, err := svc.InitBoard(ctx, layout)
			if err != nil {
				t.Fatalf("InitBoard: %v", err)
			}
			if res.Entry != tt.wantEntry || res.Terminal != tt.wantTerminal {
				t.Errorf("designations = %s/%s, want %s/%s", res.Entry, res.Terminal, tt.wantEntry, tt.wantTerminal)
			}

			task, err := svc.CreateTask(ctx, NewTask{Title: "t"})
			if err != nil {
				t.Fatalf("CreateTask: %v", err)
			}
			if task.ColumnID != tt.wantEntry {
				t.Errorf("created in %q, want %q", task.ColumnID, tt.wantEntry)
			}
			done, err := svc.MarkDone(ctx, task.ID)
			if err != nil {
				t.Fatalf("MarkDone: %v", err)
			}
			if done.ColumnID != tt.wantTerminal {
				t.Errorf("done in %q, want %q", done.ColumnID, tt.wantTerminal)
			}
		})
	}
}

func TestCreateTask(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	first := h.create(t, NewTask{Title: "  Write parser  ", Tags: []string{"Parser", "parser"}, Priority: board.PriorityHigh})
	second := h.create(t, NewTask{Title: "Review parser", ColumnID: "col-review"})

	if first.ID != "TASK-1" || second.ID != "TASK-2" {
		t.Fatalf("ids = %s, %s; want TASK-1, TASK-2", first.ID, second.ID)
	}
	if first.ColumnID != "col-backlog" || first.Status != board.StatusReady || first.Title != "Write parser" {
		t.Errorf("first task = %+v", first)
	}
	if diff := cmp.Diff([]string{"parser"}, first.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if first.CreatedAt.IsZero() || !first.CreatedAt.Equal(first.UpdatedAt) {
		t.Errorf("timestamps = %v / %v", first.CreatedAt, first.UpdatedAt)
	}

	rec, err := h.store.LoadTaskRecord("TASK-1")
	if err != nil {
		t.Fatalf("LoadTaskRecord: %v", err)
	}
	if !rec.Equal(first) {
		t.Errorf("record differs from returned task:\n%s", cmp.Diff(first, rec))
	}
	b := h.board(t)
	if diff := cmp.Diff([]string{"TASK-2"}, b.OrderedTaskIDs("col-review")); diff != "" {
		t.Errorf("review order mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateTask_SkipsArchivedIDs(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	h.create(t, NewTask{Title: "one"})
	h.create(t, NewTask{Title: "two"})
	if err := h.svc.ArchiveTask(ctx, "TASK-2"); err != nil {
		t.Fatalf("ArchiveTask: %v", err)
	}
	next := h.create(t, NewTask{Title: "three"})
	if next.ID != "TASK-3" {
		t.Errorf("new id = %s, want TASK-3 (TASK-2 lives in the archive)", next.ID)
	}
}

func TestCreateTask_Rejects(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	tests := []struct {
		name string
		in   NewTask
		kind error
	}{
		{"blank title", NewTask{Title: "   "}, board.ErrInvalidInput},
		{"unknown column", NewTask{Title: "x", ColumnID: "col-nope"}, board.ErrNotFound},
		{"unknown status", NewTask{Title: "x", Status: "paused"}, board.ErrInvalidInput},
		{"unknown priority", NewTask{Title: "x", Priority: "someday"}, board.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.CreateTask(context.Background(), tt.in)
			if !errors.Is(err, tt.kind) {
				t.Errorf("error = %v, want %v", err, tt.kind)
			}
		})
	}
	if n := len(h.board(t).Items); n != 0 {
		t.Errorf("rejected creates left %d tasks behind", n)
	}
}

func TestUpdateTask(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	task := h.create(t, NewTask{Title: "draft"})

	title := "final"
	status := board.StatusBlocked
	got, err := h.svc.UpdateTask(ctx, task.ID, TaskPatch{Title: &title, Status: &status})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if got.Title != "final" || got.Status != board.StatusBlocked || !got.UpdatedAt.After(task.UpdatedAt) {
		t.Errorf("updated task = %+v", got)
	}

	again, err := h.svc.UpdateTask(ctx, task.ID, TaskPatch{Title: &title})
	if err != nil {
		t.Fatalf("UpdateTask (no-op): %v", err)
	}
	if !again.UpdatedAt.Equal(got.UpdatedAt) {
		t.Error("a patch that changes nothing must not bump updatedAt")
	}

	bad := board.Status("paused")
	if _, err := h.svc.UpdateTask(ctx, task.ID, TaskPatch{Status: &bad}); !errors.Is(err, board.ErrInvalidInput) {
		t.Errorf("bad status error = %v", err)
	}
	if _, err := h.svc.UpdateTask(ctx, "TASK-99", TaskPatch{Title: &title}); !errors.Is(err, board.ErrNotFound) {
		t.Errorf("unknown task error = %v", err)
	}
}

func TestMoveTask_PreservesStatusAndBumpsUpdatedAt(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	task := h.create(t, NewTask{Title: "t", Status: board.StatusBlocked})

	moved, err := h.svc.MoveTask(ctx, task.ID, "col-review")
	if err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	if moved.ColumnID != "col-review" || moved.Status != board.StatusBlocked {
		t.Errorf("moved task = %+v", moved)
	}
	if !moved.UpdatedAt.After(task.UpdatedAt) {
		t.Error("move must bump updatedAt")
	}
	rec, _ := h.store.LoadTaskRecord(task.ID)
	if rec.ColumnID != "col-review" {
		t.Errorf("record column = %q, want col-review", rec.ColumnID)
	}

	before := h.board(t)
	if _, err := h.svc.MoveTask(ctx, task.ID, "col-missing"); !errors.Is(err, board.ErrNotFound) {
		t.Fatalf("move to missing column error = %v", err)
	}
	if diff := cmp.Diff(before, h.board(t)); diff != "" {
		t.Errorf("failed move changed the board (-before +after):\n%s", diff)
	}
}

// cancelAfter is a context whose Err starts reporting cancellation after n
// calls.
type cancelAfter struct {
	context.Context
	n, calls int
}

func (c *cancelAfter) Err() error {
	c.calls++
	if c.calls > c.n {
		return context.Canceled
	}
	return nil
}

func TestMoveTask_CancellationIsAllOrNothing(t *testing.T) {
	t.Parallel()

	for n := 0; n < 8; n++ {
		h := newHarness(t)
		h.create(t, NewTask{Title: "a"})
		h.create(t, NewTask{Title: "b"})

		ctx := &cancelAfter{Context: context.Background(), n: n}
		_, err := h.svc.MoveTask(ctx, "TASK-1", "col-review")

		want := "col-review"
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("n=%d: MoveTask error = %v, want context.Canceled", n, err)
			}
			want = "col-backlog"
		}
		if got := h.board(t).Task("TASK-1").ColumnID; got != want {
			t.Errorf("n=%d: TASK-1 in %q after MoveTask returned %v, want %q", n, got, err, want)
		}
		rec, _ := h.store.LoadTaskRecord("TASK-1")
		if rec.ColumnID != want {
			t.Errorf("n=%d: record column = %q, want %q", n, rec.ColumnID, want)
		}
	}
}

func TestReorderTask(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	for _, title := range []string{"a", "b", "c"} {
		h.create(t, NewTask{Title: title})
	}

	if _, err := h.svc.ReorderTask(ctx, "TASK-3", "col-backlog", 0); err != nil {
		t.Fatalf("ReorderTask: %v", err)
	}
	if diff := cmp.Diff([]string{"TASK-3", "TASK-1", "TASK-2"}, h.board(t).OrderedTaskIDs("col-backlog")); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	if _, err := h.svc.ReorderTask(ctx, "TASK-1", "col-review", 10); err != nil {
		t.Fatalf("cross-column ReorderTask: %v", err)
	}
	b := h.board(t)
	if diff := cmp.Diff([]string{"TASK-1"}, b.OrderedTaskIDs("col-review")); diff != "" {
		t.Errorf("review order mismatch (-want +got):\n%s", diff)
	}
	if b.Task("TASK-1").ColumnID != "col-review" {
		t.Error("cross-column reorder must update columnId")
	}

	if _, err := h.svc.ReorderTask(ctx, "TASK-2", "col-backlog", -1); !errors.Is(err, board.ErrInvalidInput) {
		t.Errorf("negative index error = %v", err)
	}
}

func TestListTasks(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.create(t, NewTask{Title: "ship ui", Tags: []string{"ui"}})
	h.create(t, NewTask{Title: "ship api", ColumnID: "col-review"})
	h.create(t, NewTask{Title: "docs", Tags: []string{"ui"}})

	got, err := h.svc.ListTasks(context.Background(), filter.NewState("ship"))
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	var ids []string
	for _, task := range got {
		ids = append(ids, task.ID)
	}
	if diff := cmp.Diff([]string{"TASK-1", "TASK-2"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestEventsRecorded(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	task := h.create(t, NewTask{Title: "t"})
	if _, err := h.svc.ClaimTask(ctx, task.ID, Claim{Owner: "ana"}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.MarkDone(ctx, task.ID); err != nil {
		t.Fatal(err)
	}
	want := []string{telemetry.KindBoardInit, telemetry.KindTaskCreated, telemetry.KindTaskClaimed, telemetry.KindTaskDone}
	if diff := cmp.Diff(want, h.kinds(t)); diff != "" {
		t.Errorf("event kinds mismatch (-want +got):\n%s", diff)
	}
}
