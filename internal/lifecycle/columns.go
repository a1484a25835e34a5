package lifecycle

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/papapumpkin/lanes/internal/board"
	"github.com/papapumpkin/lanes/internal/ordering"
	"github.com/papapumpkin/lanes/internal/telemetry"
)

// AddColumn appends a column to the board.
func (s *Service) AddColumn(ctx context.Context, col board.Column) (board.Column, error) {
	var added board.Column
	_, err := s.mutate(ctx, func(b *board.Board, _ time.Time) (bool, error) {
		c, err := ordering.AddColumn(b, col)
		added = c
		return err == nil, err
	})
	if err != nil {
		return board.Column{}, err
	}
	s.columnChanged("added", added.ID, log.Fields{"name": added.Name})
	return added, nil
}

// RemoveColumn deletes a column, relocating its tasks to relocateTo. The
// relocated tasks' records are rewritten with their new column.
func (s *Service) RemoveColumn(ctx context.Context, id, relocateTo string) ([]string, error) {
	var relocated []string
	_, err := s.mutate(ctx, func(b *board.Board, now time.Time) (bool, error) {
		moved, err := ordering.RemoveColumn(b, id, relocateTo, now)
		relocated = moved
		return err == nil, err
	})
	if err != nil {
		return nil, err
	}
	s.columnChanged("removed", id, log.Fields{"relocated": relocated, "to": relocateTo})
	return relocated, nil
}

// MoveColumn places a column before beforeID, or last when beforeID is empty.
func (s *Service) MoveColumn(ctx context.Context, id, beforeID string) error {
	var changed bool
	_, err := s.mutate(ctx, func(b *board.Board, _ time.Time) (bool, error) {
		c, err := ordering.MoveColumn(b, id, beforeID)
		changed = c
		return c, err
	})
	if err == nil && changed {
		s.columnChanged("moved", id, log.Fields{"before": beforeID})
	}
	return err
}

// RenameColumn sets a column's display name.
func (s *Service) RenameColumn(ctx context.Context, id, name string) error {
	var changed bool
	_, err := s.mutate(ctx, func(b *board.Board, _ time.Time) (bool, error) {
		c, err := ordering.RenameColumn(b, id, name)
		changed = c
		return c, err
	})
	if err == nil && changed {
		s.columnChanged("renamed", id, log.Fields{"name": name})
	}
	return err
}

// SetWIPLimit sets a column's advisory WIP limit; zero clears it.
func (s *Service) SetWIPLimit(ctx context.Context, id string, limit int) error {
	var changed bool
	b, err := s.mutate(ctx, func(b *board.Board, _ time.Time) (bool, error) {
		c, err := ordering.SetWIPLimit(b, id, limit)
		changed = c
		return c, err
	})
	if err != nil {
		return err
	}
	if changed {
		s.columnChanged("wip_limit", id, log.Fields{"limit": limit})
		s.warnWIP(b, id)
	}
	return nil
}

func (s *Service) columnChanged(action, id string, fields log.Fields) {
	fields["column"] = id
	fields["action"] = action
	s.logger.WithFields(fields).Info("column changed")
	s.emit(telemetry.Event{Kind: telemetry.KindColumnChanged, ColumnID: id, Data: map[string]string{"action": action}})
}
