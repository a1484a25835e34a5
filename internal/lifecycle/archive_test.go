package lifecycle

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/papapumpkin/lanes/internal/archive"
	"github.com/papapumpkin/lanes/internal/board"
)

func TestArchiveVersusDelete(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	kept := h.create(t, NewTask{Title: "archive me"})
	gone := h.create(t, NewTask{Title: "delete me"})

	if err := h.svc.ArchiveTask(ctx, kept.ID); err != nil {
		t.Fatalf("ArchiveTask: %v", err)
	}
	if err := h.svc.DeleteTask(ctx, gone.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}

	b := h.board(t)
	if len(b.Items) != 0 || len(b.OrderedTaskIDs("col-backlog")) != 0 {
		t.Errorf("board still holds tasks: %+v", b.Items)
	}
	rec, err := h.store.LoadArchivedRecord(kept.ID)
	if err != nil {
		t.Fatalf("archived record should remain retrievable: %v", err)
	}
	if rec.Title != "archive me" || rec.ArchivedAt.IsZero() {
		t.Errorf("archived record = %+v", rec)
	}
	if _, err := h.store.LoadTaskRecord(kept.ID); !errors.Is(err, board.ErrNotFound) {
		t.Errorf("archived task left an active record: %v", err)
	}
	if _, err := h.store.LoadTaskRecord(gone.ID); !errors.Is(err, board.ErrNotFound) {
		t.Errorf("deleted record still present: %v", err)
	}
	if _, err := h.store.LoadArchivedRecord(gone.ID); !errors.Is(err, board.ErrNotFound) {
		t.Errorf("deleted task must not be archived: %v", err)
	}
	if err := h.svc.DeleteTask(ctx, gone.ID); !errors.Is(err, board.ErrNotFound) {
		t.Errorf("second delete error = %v", err)
	}
}

func TestArchiveAllDoneAndRestore(t *testing.T) {
	t.Parallel()
	x, err := archive.Open(context.Background(), filepath.Join(t.TempDir(), archive.FileName))
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	t.Cleanup(func() { x.Close() })
	h := newHarness(t, WithArchiveIndex(x))
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		h.create(t, NewTask{Title: title, Tags: []string{"ops"}})
	}
	for _, id := range []string{"TASK-1", "TASK-3"} {
		if _, err := h.svc.MarkDone(ctx, id); err != nil {
			t.Fatalf("MarkDone(%s): %v", id, err)
		}
	}

	n, err := h.svc.ArchiveAllDone(ctx)
	if err != nil || n != 2 {
		t.Fatalf("ArchiveAllDone = %d, %v; want 2", n, err)
	}
	if ids := h.board(t).OrderedTaskIDs("col-done"); len(ids) != 0 {
		t.Errorf("done column still holds %v", ids)
	}
	if count, _ := x.Count(ctx); count != 2 {
		t.Errorf("index count = %d, want 2", count)
	}
	listed, err := h.svc.ListArchived(ctx, archive.Query{Tag: "ops"})
	if err != nil || len(listed) != 2 {
		t.Fatalf("ListArchived = %d entries, %v", len(listed), err)
	}

	if n, err := h.svc.ArchiveAllDone(ctx); err != nil || n != 0 {
		t.Errorf("second ArchiveAllDone = %d, %v; want 0", n, err)
	}

	restored, err := h.svc.RestoreTask(ctx, "TASK-1")
	if err != nil {
		t.Fatalf("RestoreTask: %v", err)
	}
	if restored.ColumnID != "col-done" {
		t.Errorf("restored column = %q, want col-done", restored.ColumnID)
	}
	if diff := cmp.Diff([]string{"TASK-1"}, h.board(t).OrderedTaskIDs("col-done")); diff != "" {
		t.Errorf("done order mismatch (-want +got):\n%s", diff)
	}
	if count, _ := x.Count(ctx); count != 1 {
		t.Errorf("index count after restore = %d, want 1", count)
	}
	if _, err := h.svc.RestoreTask(ctx, "TASK-1"); !errors.Is(err, board.ErrInvalidInput) {
		t.Errorf("restoring an active task error = %v", err)
	}

	n, err = h.svc.RebuildArchiveIndex(ctx)
	if err != nil || n != 1 {
		t.Errorf("RebuildArchiveIndex = %d, %v; want 1", n, err)
	}
}

func TestRestoreTask_MissingColumnFallsBackToEntry(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	h.create(t, NewTask{Title: "t", ColumnID: "col-review"})
	if err := h.svc.ArchiveTask(ctx, "TASK-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.RemoveColumn(ctx, "col-review", ""); err != nil {
		t.Fatalf("RemoveColumn: %v", err)
	}

	restored, err := h.svc.RestoreTask(ctx, "TASK-1")
	if err != nil {
		t.Fatalf("RestoreTask: %v", err)
	}
	if restored.ColumnID != "col-backlog" {
		t.Errorf("restored column = %q, want the entry column", restored.ColumnID)
	}

	entries, err := h.svc.ListArchived(ctx, archive.Query{})
	if err != nil || len(entries) != 0 {
		t.Errorf("ListArchived without index = %v, %v; want empty", entries, err)
	}
}
