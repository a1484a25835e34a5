package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"

	"github.com/papapumpkin/lanes/internal/board"
)

func TestReadBoard_RepairsDrift(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	h.create(t, NewTask{Title: "kept"})

	// Simulate an external editor: a stale manifest item and an orphan
	// record the manifest has never heard of.
	b, err := h.store.LoadManifest()
	if err != nil {
		t.Fatal(err)
	}
	b.Items = append(b.Items, board.Task{ID: "TASK-ghost", ColumnID: "col-backlog", Title: "ghost"})
	b.Columns[0].TaskIDs = append(b.Columns[0].TaskIDs, "TASK-ghost")
	if err := h.store.SaveManifest(b); err != nil {
		t.Fatal(err)
	}
	orphan := board.Task{ID: "TASK-new", ColumnID: "col-review", Title: "new", CreatedAt: epoch, UpdatedAt: epoch}
	if err := h.store.SaveTaskRecord(orphan); err != nil {
		t.Fatal(err)
	}

	check, err := h.svc.CheckBoard(ctx)
	if err != nil {
		t.Fatalf("CheckBoard: %v", err)
	}
	if !check.Changed() {
		t.Fatal("CheckBoard should report drift")
	}
	raw, _ := h.store.LoadManifest()
	if raw.Task("TASK-ghost") == nil {
		t.Fatal("CheckBoard must not write")
	}

	rep, err := h.svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if diff := cmp.Diff([]string{"TASK-ghost"}, rep.Stale); diff != "" {
		t.Errorf("stale mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"TASK-new"}, rep.Adopted); diff != "" {
		t.Errorf("adopted mismatch (-want +got):\n%s", diff)
	}

	fixed := h.board(t)
	if fixed.Task("TASK-ghost") != nil || fixed.Task("TASK-new") == nil {
		t.Errorf("repaired items = %+v", fixed.Items)
	}
	if diff := cmp.Diff([]string{"TASK-new"}, fixed.OrderedTaskIDs("col-review")); diff != "" {
		t.Errorf("review order mismatch (-want +got):\n%s", diff)
	}

	rep, err = h.svc.Reconcile(ctx)
	if err != nil || rep.Changed() {
		t.Errorf("second reconcile should be clean: %+v, %v", rep, err)
	}
	found := false
	for _, e := range h.hook.AllEntries() {
		if e.Message == "board reconciled" && e.Level == logrus.InfoLevel {
			found = true
		}
	}
	if !found {
		t.Error("expected a \"board reconciled\" log entry")
	}
}

func TestReadBoard_UnknownColumnIsCorrupt(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	bad := board.Task{ID: "TASK-7", ColumnID: "col-gone", Title: "x", CreatedAt: epoch, UpdatedAt: epoch}
	if err := h.store.SaveTaskRecord(bad); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.ReadBoard(context.Background()); !errors.Is(err, board.ErrCorruptManifest) {
		t.Errorf("ReadBoard error = %v, want ErrCorruptManifest", err)
	}
}

func TestWriteBoard(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	h.create(t, NewTask{Title: "a"})
	h.create(t, NewTask{Title: "b"})

	b := h.board(t)
	removeTask(b, "TASK-1")
	b.Task("TASK-2").Title = "renamed"
	if err := h.svc.WriteBoard(ctx, b); err != nil {
		t.Fatalf("WriteBoard: %v", err)
	}
	if _, err := h.store.LoadTaskRecord("TASK-1"); !errors.Is(err, board.ErrNotFound) {
		t.Errorf("record of removed task still present: %v", err)
	}
	rec, _ := h.store.LoadTaskRecord("TASK-2")
	if rec.Title != "renamed" {
		t.Errorf("record title = %q, want renamed", rec.Title)
	}

	broken := h.board(t)
	broken.Items[0].ColumnID = "col-nowhere"
	if err := h.svc.WriteBoard(ctx, broken); !errors.Is(err, board.ErrInvalidInput) {
		t.Errorf("WriteBoard(invalid) error = %v, want ErrInvalidInput", err)
	}
}

func TestWriteBoard_RejectsUnusableIDsBeforeWriting(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	h.create(t, NewTask{Title: "a"})

	b := h.board(t)
	for _, id := range []string{"TASK-77", "bad id"} {
		b.Items = append(b.Items, board.Task{ID: id, Title: id, ColumnID: "col-backlog", Status: board.StatusReady})
		col := b.Column("col-backlog")
		col.TaskIDs = append(col.TaskIDs, id)
	}
	if err := h.svc.WriteBoard(ctx, b); !errors.Is(err, board.ErrInvalidInput) {
		t.Fatalf("WriteBoard error = %v, want ErrInvalidInput", err)
	}

	if _, err := h.store.LoadTaskRecord("TASK-77"); !errors.Is(err, board.ErrNotFound) {
		t.Errorf("TASK-77 record written by a rejected write: %v", err)
	}
	if got := h.board(t).Task("TASK-77"); got != nil {
		t.Errorf("TASK-77 on the board after a rejected write: %+v", got)
	}
}
