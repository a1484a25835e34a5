package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/papapumpkin/lanes/internal/board"
)

func TestClaimTask(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	task := h.create(t, NewTask{Title: "t"})

	claimed, err := h.svc.ClaimTask(ctx, task.ID, Claim{Owner: "ana", SessionID: "s-1"})
	if err != nil {
		t.Fatalf("ClaimTask: %v", err)
	}
	if claimed.Status != board.StatusInProgress || claimed.Owner != "ana" || claimed.SessionID != "s-1" || claimed.ClaimedAt == nil {
		t.Errorf("claimed task = %+v", claimed)
	}
	if claimed.ColumnID != "col-in-progress" {
		t.Errorf("claim from the entry column should promote, got column %q", claimed.ColumnID)
	}

	// Reclaiming by the same owner stays put.
	again, err := h.svc.ClaimTask(ctx, task.ID, Claim{Owner: "ana"})
	if err != nil || again.ColumnID != "col-in-progress" {
		t.Errorf("reclaim = %+v, %v", again, err)
	}

	tests := []struct {
		name  string
		id    string
		claim Claim
		kind  error
	}{
		{"no owner", task.ID, Claim{}, board.ErrInvalidInput},
		{"other owner", task.ID, Claim{Owner: "bo"}, board.ErrInvalidInput},
		{"unknown task", "TASK-42", Claim{Owner: "ana"}, board.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.svc.ClaimTask(ctx, tt.id, tt.claim); !errors.Is(err, tt.kind) {
				t.Errorf("error = %v, want %v", err, tt.kind)
			}
		})
	}

	if _, err := h.svc.MarkDone(ctx, task.ID); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if _, err := h.svc.ClaimTask(ctx, task.ID, Claim{Owner: "ana"}); !errors.Is(err, board.ErrInvalidInput) {
		t.Errorf("claiming a done task error = %v, want ErrInvalidInput", err)
	}
}

func TestReleaseTask(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	task := h.create(t, NewTask{Title: "t"})
	if _, err := h.svc.ClaimTask(ctx, task.ID, Claim{Owner: "ana"}); err != nil {
		t.Fatalf("ClaimTask: %v", err)
	}

	released, err := h.svc.ReleaseTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("ReleaseTask: %v", err)
	}
	if released.Owner != "" || released.ClaimedAt != nil || released.Status != board.StatusReady {
		t.Errorf("released task = %+v", released)
	}
	if released.ColumnID != "col-in-progress" {
		t.Errorf("release must not move the task, got %q", released.ColumnID)
	}

	again, err := h.svc.ReleaseTask(ctx, task.ID)
	if err != nil || !again.UpdatedAt.Equal(released.UpdatedAt) {
		t.Errorf("releasing an unclaimed task should be a no-op: %+v, %v", again, err)
	}
}

func TestMarkDone(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	task := h.create(t, NewTask{Title: "t"})

	done, err := h.svc.MarkDone(ctx, task.ID)
	if err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if done.Status != board.StatusDone || done.ColumnID != "col-done" {
		t.Errorf("done task = %+v", done)
	}
	rec, _ := h.store.LoadTaskRecord(task.ID)
	if !rec.Equal(done) {
		t.Errorf("record not written with the done state:\n%s", cmp.Diff(done, rec))
	}
}

func TestMarkDone_HonorsTerminalDesignation(t *testing.T) {
	t.Parallel()
	h := newHarness(t, WithTerminalColumn("col-review"))
	task := h.create(t, NewTask{Title: "t"})

	done, err := h.svc.MarkDone(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if done.ColumnID != "col-review" {
		t.Errorf("done column = %q, want col-review", done.ColumnID)
	}
}

func TestPickNextTask(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	if id, ok, err := h.svc.PickNextTask(ctx); err != nil || ok || id != "" {
		t.Fatalf("empty board pick = %q, %v, %v", id, ok, err)
	}

	h.create(t, NewTask{Title: "low", Priority: board.PriorityLow})
	h.create(t, NewTask{Title: "high old", Priority: board.PriorityHigh})
	h.create(t, NewTask{Title: "high new", Priority: board.PriorityHigh})
	h.create(t, NewTask{Title: "urgent done", Priority: board.PriorityUrgent, Status: board.StatusDone})
	h.create(t, NewTask{Title: "urgent elsewhere", Priority: board.PriorityUrgent, ColumnID: "col-review"})

	id, ok, err := h.svc.PickNextTask(ctx)
	if err != nil || !ok {
		t.Fatalf("PickNextTask = %q, %v, %v", id, ok, err)
	}
	if id != "TASK-3" {
		t.Errorf("picked %s, want TASK-3 (high priority, most recently updated)", id)
	}

	before := h.board(t)
	if _, _, err := h.svc.PickNextTask(ctx); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(before, h.board(t)); diff != "" {
		t.Errorf("PickNextTask mutated the board:\n%s", diff)
	}
}

func TestPickNext_Comparator(t *testing.T) {
	t.Parallel()
	b := board.New()
	b.Columns = []board.Column{{ID: "in", Position: 1}}
	add := func(id string, p board.Priority, updated time.Time, owner string, st board.Status) {
		b.Items = append(b.Items, board.Task{ID: id, ColumnID: "in", Title: id, Priority: p, Owner: owner, Status: st, UpdatedAt: updated})
	}
	add("TASK-9", board.PriorityMedium, epoch, "", "")
	add("TASK-8", board.PriorityMedium, epoch, "", board.StatusBlocked)
	add("TASK-1", board.PriorityUrgent, epoch, "ana", board.StatusReady)
	add("TASK-2", board.PriorityUrgent, epoch, "", board.StatusInProgress)

	id, ok := pickNext(b, b.Column("in"))
	if !ok || id != "TASK-8" {
		t.Errorf("pickNext = %q, %v; want TASK-8 (id breaks the tie among eligible tasks)", id, ok)
	}
}
