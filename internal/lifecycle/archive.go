package lifecycle

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/papapumpkin/lanes/internal/archive"
	"github.com/papapumpkin/lanes/internal/board"
	"github.com/papapumpkin/lanes/internal/telemetry"
)

// ArchiveTask removes a task from the board and keeps its record in the
// archive directory, where RestoreTask and ListArchived can still reach it.
func (s *Service) ArchiveTask(ctx context.Context, id string) error {
	const op = "archive task"
	var archived board.Task
	var at time.Time
	_, err := s.mutate(ctx, func(b *board.Board, now time.Time) (bool, error) {
		t := b.Task(id)
		if t == nil {
			return false, board.NotFound(op, id, "no task with this id")
		}
		archived, at = t.Clone(), now
		if err := s.store.ArchiveTaskRecord(archived, now); err != nil {
			return false, err
		}
		removeTask(b, id)
		return true, nil
	})
	if err != nil {
		return err
	}
	s.indexArchived(ctx, archived, at)
	s.logger.WithFields(log.Fields{"task": id, "column": archived.ColumnID}).Info("task archived")
	s.emit(telemetry.Event{Kind: telemetry.KindTaskArchived, TaskID: id, ColumnID: archived.ColumnID})
	return nil
}

// ArchiveAllDone archives every task whose column is the terminal column in
// a single write and returns how many were archived.
func (s *Service) ArchiveAllDone(ctx context.Context) (int, error) {
	var archived []board.Task
	var at time.Time
	_, err := s.mutate(ctx, func(b *board.Board, now time.Time) (bool, error) {
		terminal := s.terminalColumn(b)
		if terminal == nil {
			return false, nil
		}
		at = now
		for _, t := range b.TasksIn(terminal.ID) {
			if err := s.store.ArchiveTaskRecord(t, now); err != nil {
				return false, err
			}
			archived = append(archived, t)
			removeTask(b, t.ID)
		}
		return len(archived) > 0, nil
	})
	if err != nil {
		return 0, err
	}
	for _, t := range archived {
		s.indexArchived(ctx, t, at)
		s.emit(telemetry.Event{Kind: telemetry.KindTaskArchived, TaskID: t.ID, ColumnID: t.ColumnID})
	}
	if len(archived) > 0 {
		s.logger.WithField("count", len(archived)).Info("archived done tasks")
	}
	return len(archived), nil
}

// indexArchived records an archived task in the SQLite index. The archive
// directory is authoritative, so index failures are logged and skipped.
func (s *Service) indexArchived(ctx context.Context, t board.Task, at time.Time) {
	if s.index == nil {
		return
	}
	if err := s.index.Record(ctx, t, at); err != nil {
		s.logger.WithError(err).WithField("task", t.ID).Warn("archive index not updated; run archive reindex")
	}
}

// RestoreTask moves an archived record back onto the board at the end of
// its former column, or of the entry column when that column is gone.
func (s *Service) RestoreTask(ctx context.Context, id string) (board.Task, error) {
	const op = "restore task"
	b, err := s.ReadBoard(ctx)
	if err != nil {
		return board.Task{}, err
	}
	if b.Task(id) != nil {
		return board.Task{}, board.Invalid(op, id, "task is already on the board")
	}
	rec, err := s.store.LoadArchivedRecord(id)
	if err != nil {
		return board.Task{}, err
	}
	if b.Column(rec.ColumnID) == nil {
		entry := s.entryColumn(b)
		if entry == nil {
			return board.Task{}, board.Invalid(op, id, "board has no columns to restore into")
		}
		rec.ColumnID = entry.ID
	}

	// The restored record is written first; the next read adopts it as an
	// orphan and appends it to its column.
	rec.UpdatedAt = s.clock()
	if _, err := s.store.RestoreArchivedRecord(id); err != nil {
		return board.Task{}, err
	}
	if err := s.store.SaveTaskRecord(rec.Task); err != nil {
		return board.Task{}, err
	}
	if s.index != nil {
		if err := s.index.Remove(ctx, id); err != nil {
			s.logger.WithError(err).WithField("task", id).Warn("archive index not updated; run archive reindex")
		}
	}

	b, err = s.ReadBoard(ctx)
	if err != nil {
		return board.Task{}, err
	}
	t := b.Task(id)
	if t == nil {
		return board.Task{}, board.Corrupt(op, id, errors.New("restored record was not adopted"))
	}
	s.logger.WithFields(log.Fields{"task": id, "column": t.ColumnID}).Info("task restored")
	s.emit(telemetry.Event{Kind: telemetry.KindTaskRestored, TaskID: id, ColumnID: t.ColumnID})
	s.warnWIP(b, t.ColumnID)
	return t.Clone(), nil
}

// ListArchived lists archived tasks, newest first. With an index the query
// runs in SQLite; without one the archive directory is scanned.
func (s *Service) ListArchived(ctx context.Context, q archive.Query) ([]archive.Entry, error) {
	if s.index != nil {
		return s.index.List(ctx, q)
	}
	entries, err := s.archivedEntries(ctx)
	if err != nil {
		return nil, err
	}
	var out []archive.Entry
	for _, e := range entries {
		if !q.Matches(e.Task) {
			continue
		}
		out = append(out, e)
	}
	archive.SortEntries(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// archivedEntries loads every record in the archive directory.
func (s *Service) archivedEntries(ctx context.Context) ([]archive.Entry, error) {
	ids, err := s.store.ListArchivedIDs()
	if err != nil {
		return nil, err
	}
	entries := make([]archive.Entry, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := s.store.LoadArchivedRecord(id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, archive.Entry{Task: rec.Task, ArchivedAt: rec.ArchivedAt})
	}
	return entries, nil
}

// RebuildArchiveIndex repopulates the SQLite index from the archive
// directory and returns the number of entries indexed.
func (s *Service) RebuildArchiveIndex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, board.Invalid("rebuild archive index", "", "no archive index configured")
	}
	entries, err := s.archivedEntries(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.index.Rebuild(ctx, entries); err != nil {
		return 0, err
	}
	s.logger.WithField("entries", len(entries)).Info("archive index rebuilt")
	return len(entries), nil
}
