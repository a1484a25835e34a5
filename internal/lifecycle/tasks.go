package lifecycle

import (
	"context"
	"slices"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/papapumpkin/lanes/internal/board"
	"github.com/papapumpkin/lanes/internal/filter"
	"github.com/papapumpkin/lanes/internal/ordering"
	"github.com/papapumpkin/lanes/internal/telemetry"
)

// NewTask holds the fields of a task to create. ColumnID defaults to the
// entry column and Status to board.InitialStatus.
type NewTask struct {
	ColumnID  string
	Title     string
	Summary   string
	Tags      []string
	Priority  board.Priority
	Status    board.Status
	Checklist []board.ChecklistItem
}

// TaskPatch lists field edits; nil fields are left unchanged.
type TaskPatch struct {
	Title     *string
	Summary   *string
	Tags      *[]string
	Priority  *board.Priority
	Status    *board.Status
	Checklist *[]board.ChecklistItem
}

// GetTask returns one task of the reconciled board.
func (s *Service) GetTask(ctx context.Context, id string) (board.Task, error) {
	b, err := s.ReadBoard(ctx)
	if err != nil {
		return board.Task{}, err
	}
	t := b.Task(id)
	if t == nil {
		return board.Task{}, board.NotFound("get task", id, "no task with this id")
	}
	return t.Clone(), nil
}

// ListTasks returns the tasks matching st, column by column in position
// order and in canonical order within each column.
func (s *Service) ListTasks(ctx context.Context, st filter.State) ([]board.Task, error) {
	b, err := s.ReadBoard(ctx)
	if err != nil {
		return nil, err
	}
	var out []board.Task
	for i := range b.Columns {
		col := &b.Columns[i]
		out = append(out, filter.ApplyFilters(b.TasksIn(col.ID), col, st)...)
	}
	return out, nil
}

// CreateTask allocates an id, appends the task to the end of its column, and
// writes its record and the manifest.
func (s *Service) CreateTask(ctx context.Context, in NewTask) (board.Task, error) {
	const op = "create task"
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return board.Task{}, board.Invalid(op, "", "title is required")
	}
	status := in.Status
	if status == "" {
		status = board.InitialStatus
	}
	if !board.ValidStatuses[status] {
		return board.Task{}, board.Invalid(op, "", "unknown status %q", status)
	}
	if _, err := board.ParsePriority(string(in.Priority)); err != nil {
		return board.Task{}, board.Invalid(op, "", "unknown priority %q", in.Priority)
	}
	archived, err := s.store.ListArchivedIDs()
	if err != nil {
		return board.Task{}, err
	}

	var created board.Task
	b, err := s.mutate(ctx, func(b *board.Board, now time.Time) (bool, error) {
		columnID := in.ColumnID
		if columnID == "" {
			entry := s.entryColumn(b)
			if entry == nil {
				return false, board.Invalid(op, "", "board has no columns; run init first")
			}
			columnID = entry.ID
		}
		if b.Column(columnID) == nil {
			return false, board.NotFound(op, "", "column %q does not exist", columnID)
		}

		known := slices.Clone(archived)
		for _, t := range b.Items {
			known = append(known, t.ID)
		}
		id, err := board.NextTaskID(s.ids, known, func(id string) bool {
			return b.Task(id) != nil || slices.Contains(archived, id)
		})
		if err != nil {
			return false, board.Invalid(op, "", "%v", err)
		}

		created = board.Task{
			ID:        id,
			ColumnID:  columnID,
			Title:     title,
			Status:    status,
			Summary:   strings.TrimSpace(in.Summary),
			Tags:      board.NormalizeTags(in.Tags),
			Priority:  in.Priority,
			Checklist: slices.Clone(in.Checklist),
			CreatedAt: now,
			UpdatedAt: now,
		}
		col := b.Materialize(columnID)
		col.TaskIDs = append(col.TaskIDs, id)
		b.Items = append(b.Items, created)
		return true, nil
	})
	if err != nil {
		return board.Task{}, err
	}

	s.logger.WithFields(log.Fields{"task": created.ID, "column": created.ColumnID}).Info("task created")
	s.emit(telemetry.Event{Kind: telemetry.KindTaskCreated, TaskID: created.ID, ColumnID: created.ColumnID})
	s.warnWIP(b, created.ColumnID)
	return created.Clone(), nil
}

// UpdateTask applies field edits and bumps UpdatedAt. A patch that changes
// nothing leaves the task and its timestamp untouched.
func (s *Service) UpdateTask(ctx context.Context, id string, p TaskPatch) (board.Task, error) {
	const op = "update task"
	var updated board.Task
	var fields []string
	_, err := s.mutate(ctx, func(b *board.Board, now time.Time) (bool, error) {
		t := b.Task(id)
		if t == nil {
			return false, board.NotFound(op, id, "no task with this id")
		}
		next := t.Clone()
		if p.Title != nil {
			title := strings.TrimSpace(*p.Title)
			if title == "" {
				return false, board.Invalid(op, id, "title is required")
			}
			next.Title = title
		}
		if p.Summary != nil {
			next.Summary = strings.TrimSpace(*p.Summary)
		}
		if p.Tags != nil {
			next.Tags = board.NormalizeTags(*p.Tags)
		}
		if p.Priority != nil {
			if _, err := board.ParsePriority(string(*p.Priority)); err != nil {
				return false, board.Invalid(op, id, "unknown priority %q", *p.Priority)
			}
			next.Priority = *p.Priority
		}
		if p.Status != nil {
			if !board.ValidStatuses[*p.Status] {
				return false, board.Invalid(op, id, "unknown status %q", *p.Status)
			}
			next.Status = *p.Status
		}
		if p.Checklist != nil {
			next.Checklist = slices.Clone(*p.Checklist)
		}

		fields = changedFields(*t, next)
		if len(fields) == 0 {
			updated = next
			return false, nil
		}
		next.UpdatedAt = now
		*t = next
		updated = next
		return true, nil
	})
	if err != nil {
		return board.Task{}, err
	}
	if len(fields) > 0 {
		s.logger.WithFields(log.Fields{"task": id, "fields": fields}).Info("task updated")
		s.emit(telemetry.Event{Kind: telemetry.KindTaskUpdated, TaskID: id, Data: map[string][]string{"fields": fields}})
	}
	return updated.Clone(), nil
}

func changedFields(a, b board.Task) []string {
	var out []string
	if a.Title != b.Title {
		out = append(out, "title")
	}
	if a.Summary != b.Summary {
		out = append(out, "summary")
	}
	if !slices.Equal(a.Tags, b.Tags) {
		out = append(out, "tags")
	}
	if a.Priority != b.Priority {
		out = append(out, "priority")
	}
	if a.Status != b.Status {
		out = append(out, "status")
	}
	if !slices.Equal(a.Checklist, b.Checklist) {
		out = append(out, "checklist")
	}
	return out
}

// MoveTask moves a task to the end of targetColumnID. Status is preserved.
func (s *Service) MoveTask(ctx context.Context, id, targetColumnID string) (board.Task, error) {
	var from string
	var moved bool
	b, err := s.mutate(ctx, func(b *board.Board, now time.Time) (bool, error) {
		if t := b.Task(id); t != nil {
			from = t.ColumnID
		}
		changed, err := ordering.MoveTask(b, id, targetColumnID, now)
		moved = changed
		return changed, err
	})
	if err != nil {
		return board.Task{}, err
	}
	if moved {
		s.logger.WithFields(log.Fields{"task": id, "from": from, "to": targetColumnID}).Info("task moved")
		s.emit(telemetry.Event{Kind: telemetry.KindTaskMoved, TaskID: id, ColumnID: targetColumnID, Data: map[string]string{"from": from}})
		s.warnWIP(b, targetColumnID)
	}
	return b.Task(id).Clone(), nil
}

// ReorderTask places a task at index within targetColumnID, moving it there
// first when it lives elsewhere. Both happen in one write.
func (s *Service) ReorderTask(ctx context.Context, id, targetColumnID string, index int) (board.Task, error) {
	var from string
	var changed bool
	b, err := s.mutate(ctx, func(b *board.Board, now time.Time) (bool, error) {
		if t := b.Task(id); t != nil {
			from = t.ColumnID
		}
		c, err := ordering.ReorderTask(b, id, targetColumnID, index, now)
		changed = c
		return c, err
	})
	if err != nil {
		return board.Task{}, err
	}
	if changed {
		s.logger.WithFields(log.Fields{"task": id, "column": targetColumnID, "index": index}).Info("task reordered")
		s.emit(telemetry.Event{Kind: telemetry.KindTaskReordered, TaskID: id, ColumnID: targetColumnID, Data: map[string]any{"from": from, "index": index}})
		if from != targetColumnID {
			s.warnWIP(b, targetColumnID)
		}
	}
	return b.Task(id).Clone(), nil
}

// DeleteTask removes a task and its record permanently.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	const op = "delete task"
	var column string
	_, err := s.mutate(ctx, func(b *board.Board, _ time.Time) (bool, error) {
		t := b.Task(id)
		if t == nil {
			return false, board.NotFound(op, id, "no task with this id")
		}
		column = t.ColumnID
		removeTask(b, id)
		return true, nil
	})
	if err != nil {
		return err
	}
	s.logger.WithFields(log.Fields{"task": id, "column": column}).Info("task deleted")
	s.emit(telemetry.Event{Kind: telemetry.KindTaskDeleted, TaskID: id, ColumnID: column})
	return nil
}

// removeTask drops a task from items and from its column's explicit order.
func removeTask(b *board.Board, id string) {
	t := b.Task(id)
	if t == nil {
		return
	}
	if col := b.Column(t.ColumnID); col != nil && col.TaskIDs != nil {
		col.TaskIDs = slices.DeleteFunc(col.TaskIDs, func(x string) bool { return x == id })
	}
	b.Items = slices.DeleteFunc(b.Items, func(x board.Task) bool { return x.ID == id })
}
