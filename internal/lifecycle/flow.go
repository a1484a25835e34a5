package lifecycle

import (
	"context"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/papapumpkin/lanes/internal/board"
	"github.com/papapumpkin/lanes/internal/ordering"
	"github.com/papapumpkin/lanes/internal/telemetry"
)

// Claim identifies who takes a task.
type Claim struct {
	Owner     string
	SessionID string
}

// ClaimTask marks a task active and attaches the claimant. A task sitting in
// the entry column is promoted to the next column; tasks elsewhere stay
// put. Done tasks and tasks held by another owner cannot be claimed.
func (s *Service) ClaimTask(ctx context.Context, id string, c Claim) (board.Task, error) {
	const op = "claim task"
	owner := strings.TrimSpace(c.Owner)
	if owner == "" {
		return board.Task{}, board.Invalid(op, id, "owner is required")
	}
	var promotedTo string
	b, err := s.mutate(ctx, func(b *board.Board, now time.Time) (bool, error) {
		t := b.Task(id)
		if t == nil {
			return false, board.NotFound(op, id, "no task with this id")
		}
		if t.CurrentStatus() == board.TerminalStatus {
			return false, board.Invalid(op, id, "task is already done")
		}
		if t.Claimed() && t.Owner != owner {
			return false, board.Invalid(op, id, "task is claimed by %s", t.Owner)
		}

		if entry := s.entryColumn(b); entry != nil && t.ColumnID == entry.ID {
			if next := b.NextColumn(entry.ID); next != nil {
				promotedTo = next.ID
				if _, err := ordering.MoveTask(b, id, next.ID, now); err != nil {
					return false, err
				}
				t = b.Task(id)
			}
		}
		claimedAt := now
		t.Status = board.ActiveStatus
		t.Owner = owner
		t.SessionID = strings.TrimSpace(c.SessionID)
		t.ClaimedAt = &claimedAt
		t.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return board.Task{}, err
	}

	fields := log.Fields{"task": id, "owner": owner}
	if promotedTo != "" {
		fields["promoted_to"] = promotedTo
	}
	s.logger.WithFields(fields).Info("task claimed")
	t := b.Task(id)
	s.emit(telemetry.Event{Kind: telemetry.KindTaskClaimed, TaskID: id, ColumnID: t.ColumnID, Data: map[string]string{"owner": owner, "session": t.SessionID}})
	if promotedTo != "" {
		s.warnWIP(b, promotedTo)
	}
	return t.Clone(), nil
}

// ReleaseTask drops a task's claim. An active task returns to the initial
// status; other statuses are kept. Releasing an unclaimed task is a no-op.
func (s *Service) ReleaseTask(ctx context.Context, id string) (board.Task, error) {
	const op = "release task"
	var released bool
	b, err := s.mutate(ctx, func(b *board.Board, now time.Time) (bool, error) {
		t := b.Task(id)
		if t == nil {
			return false, board.NotFound(op, id, "no task with this id")
		}
		if !t.Claimed() && t.ClaimedAt == nil {
			return false, nil
		}
		if t.Status == board.ActiveStatus {
			t.Status = board.InitialStatus
		}
		t.Owner, t.SessionID, t.ClaimedAt = "", "", nil
		t.UpdatedAt = now
		released = true
		return true, nil
	})
	if err != nil {
		return board.Task{}, err
	}
	if released {
		s.logger.WithField("task", id).Info("task released")
		s.emit(telemetry.Event{Kind: telemetry.KindTaskReleased, TaskID: id})
	}
	return b.Task(id).Clone(), nil
}

// MarkDone sets the terminal status and moves the task to the terminal
// column in a single write.
func (s *Service) MarkDone(ctx context.Context, id string) (board.Task, error) {
	const op = "mark done"
	var changed bool
	b, err := s.mutate(ctx, func(b *board.Board, now time.Time) (bool, error) {
		t := b.Task(id)
		if t == nil {
			return false, board.NotFound(op, id, "no task with this id")
		}
		terminal := s.terminalColumn(b)
		if terminal == nil {
			return false, board.Invalid(op, id, "board has no columns")
		}
		if t.Status == board.TerminalStatus && t.ColumnID == terminal.ID {
			return false, nil
		}
		if _, err := ordering.MoveTask(b, id, terminal.ID, now); err != nil {
			return false, err
		}
		t = b.Task(id)
		t.Status = board.TerminalStatus
		t.UpdatedAt = now
		changed = true
		return true, nil
	})
	if err != nil {
		return board.Task{}, err
	}
	t := b.Task(id)
	if changed {
		s.logger.WithFields(log.Fields{"task": id, "column": t.ColumnID}).Info("task done")
		s.emit(telemetry.Event{Kind: telemetry.KindTaskDone, TaskID: id, ColumnID: t.ColumnID})
	}
	return t.Clone(), nil
}

// PickNextTask returns the id of the best unclaimed task in the entry
// column without changing anything. Candidates are ordered by priority
// rank, then most recently updated, then id. It reports false when no task
// is eligible.
func (s *Service) PickNextTask(ctx context.Context) (string, bool, error) {
	b, err := s.ReadBoard(ctx)
	if err != nil {
		return "", false, err
	}
	id, ok := pickNext(b, s.entryColumn(b))
	return id, ok, nil
}

func pickNext(b *board.Board, entry *board.Column) (string, bool) {
	if entry == nil {
		return "", false
	}
	var candidates []board.Task
	for _, t := range b.TasksIn(entry.ID) {
		if eligible(t) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, c := candidates[i], candidates[j]
		if ra, rc := a.Priority.Rank(), c.Priority.Rank(); ra != rc {
			return ra < rc
		}
		if !a.UpdatedAt.Equal(c.UpdatedAt) {
			return a.UpdatedAt.After(c.UpdatedAt)
		}
		return a.ID < c.ID
	})
	return candidates[0].ID, true
}

// eligible reports whether a task can be picked: no owner, and neither
// active nor done.
func eligible(t board.Task) bool {
	if t.Claimed() {
		return false
	}
	switch t.CurrentStatus() {
	case board.ActiveStatus, board.TerminalStatus:
		return false
	}
	return true
}
