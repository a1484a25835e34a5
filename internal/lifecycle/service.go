// Package lifecycle is the task-shaped facade over a lanes board. Each
// operation loads the board through reconciliation, applies one
// invariant-preserving change, and writes back the records that changed
// followed by the manifest.
//
// A Service holds no lock. Callers must not issue overlapping mutating calls
// for the same board; adapters serving concurrent clients serialize their
// calls. The later of two racing writes wins at manifest granularity.
package lifecycle

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/papapumpkin/lanes/internal/archive"
	"github.com/papapumpkin/lanes/internal/board"
	"github.com/papapumpkin/lanes/internal/reconcile"
	"github.com/papapumpkin/lanes/internal/store"
	"github.com/papapumpkin/lanes/internal/telemetry"
	"github.com/papapumpkin/lanes/internal/template"
)

// Service performs board operations against one Store.
type Service struct {
	store    *store.Store
	logger   log.FieldLogger
	now      func() time.Time
	index    *archive.Index
	events   *telemetry.Emitter
	entry    string
	terminal string
	ids      board.IDStrategy
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger for repairs, mutations and warnings.
func WithLogger(l log.FieldLogger) Option {
	return func(s *Service) { s.logger = l }
}

// WithArchiveIndex keeps the SQLite archive index in step with archival.
func WithArchiveIndex(x *archive.Index) Option {
	return func(s *Service) { s.index = x }
}

// WithEvents records every mutation on the telemetry stream.
func WithEvents(e *telemetry.Emitter) Option {
	return func(s *Service) { s.events = e }
}

// WithEntryColumn designates the entry column. Without it, or when the named
// column does not exist, the lowest-positioned column is the entry.
func WithEntryColumn(id string) Option {
	return func(s *Service) { s.entry = id }
}

// WithTerminalColumn designates the terminal column. Without it, or when the
// named column does not exist, the highest-positioned column is terminal.
func WithTerminalColumn(id string) Option {
	return func(s *Service) { s.terminal = id }
}

// WithIDStrategy selects how new task ids are allocated.
func WithIDStrategy(strategy board.IDStrategy) Option {
	return func(s *Service) { s.ids = strategy }
}

// New returns a Service over st.
func New(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		logger: log.StandardLogger(),
		now:    time.Now,
		ids:    board.IDSequential,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying record store.
func (s *Service) Store() *store.Store { return s.store }

// clock returns the current UTC time without its monotonic reading, so
// in-memory and reloaded tasks compare equal.
func (s *Service) clock() time.Time {
	return s.now().UTC().Round(0)
}

// ReadBoard loads the manifest, reconciles it against the task records,
// persists any correction, and returns the consistent board.
func (s *Service) ReadBoard(ctx context.Context) (*board.Board, error) {
	b, _, err := s.load(ctx, true)
	return b, err
}

// Reconcile is ReadBoard that also returns what was repaired.
func (s *Service) Reconcile(ctx context.Context) (reconcile.Report, error) {
	_, rep, err := s.load(ctx, true)
	return rep, err
}

// CheckBoard reports what reconciliation would repair without writing.
func (s *Service) CheckBoard(ctx context.Context) (reconcile.Report, error) {
	_, rep, err := s.load(ctx, false)
	return rep, err
}

// load runs the read pipeline. With persist, a changed board is written back
// before it is returned.
func (s *Service) load(ctx context.Context, persist bool) (*board.Board, reconcile.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, reconcile.Report{}, err
	}
	manifest, err := s.store.LoadManifest()
	if err != nil {
		return nil, reconcile.Report{}, err
	}
	migrated, err := board.Migrate(manifest)
	if err != nil {
		return nil, reconcile.Report{}, err
	}
	records, err := s.store.LoadTaskRecords()
	if err != nil {
		return nil, reconcile.Report{}, err
	}

	b, rep, err := reconcile.Reconcile(manifest, records)
	if err != nil {
		s.logger.WithError(err).Error("board failed reconciliation")
		return nil, rep, err
	}
	if !persist || (!rep.Changed() && !migrated) {
		return b, rep, nil
	}

	if err := s.store.SaveManifest(b); err != nil {
		return nil, rep, err
	}
	s.logger.WithFields(log.Fields{
		"stale":      rep.Stale,
		"adopted":    rep.Adopted,
		"refreshed":  rep.Refreshed,
		"relocated":  rep.Relocated,
		"dropped":    rep.Dropped,
		"renumbered": rep.PositionsRenumbered,
		"migrated":   migrated,
	}).Info("board reconciled")
	s.emit(telemetry.Event{Kind: telemetry.KindBoardReconciled, Data: rep})
	return b, rep, nil
}

// WriteBoard replaces the stored board with b. The board must satisfy every
// structural invariant. Records are written for new and changed tasks and
// removed for tasks b no longer holds; the manifest is written last.
func (s *Service) WriteBoard(ctx context.Context, b *board.Board) error {
	const op = "write board"
	if err := ctx.Err(); err != nil {
		return err
	}
	next := b.Clone()
	if next.Version == 0 {
		next.Version = board.CurrentVersion
	}
	if next.Version != board.CurrentVersion {
		return board.Invalid(op, "", "unsupported version %d", next.Version)
	}
	if err := board.JoinValidation(board.Validate(next)); err != nil {
		return &board.Error{Op: op, Kind: board.ErrInvalidInput, Err: err}
	}
	for _, t := range next.Items {
		if !board.ValidTaskID(t.ID) {
			return board.Invalid(op, t.ID, "task id cannot name a record file")
		}
	}
	records, err := s.store.LoadTaskRecords()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.commit(records, next); err != nil {
		return err
	}
	s.logger.WithFields(log.Fields{"columns": len(next.Columns), "tasks": len(next.Items)}).Info("board written")
	s.emit(telemetry.Event{Kind: telemetry.KindBoardWritten})
	return nil
}

// InitResult describes a freshly initialized board.
type InitResult struct {
	Board    *board.Board
	Entry    string
	Terminal string
}

// InitBoard creates the board directory and writes the layout's columns. A
// board that already has columns or tasks is left alone and the call fails
// with board.ErrInvalidInput. Configured entry and terminal columns that exist
// in the layout take precedence over the layout's own designations; the
// result reports the designations in effect.
func (s *Service) InitBoard(ctx context.Context, layout template.Layout) (InitResult, error) {
	const op = "init board"
	if err := layout.Validate(); err != nil {
		return InitResult{}, &board.Error{Op: op, Kind: board.ErrInvalidInput, Err: err}
	}
	if err := s.store.Init(); err != nil {
		return InitResult{}, err
	}
	existing, err := s.ReadBoard(ctx)
	if err != nil {
		return InitResult{}, err
	}
	if len(existing.Columns) > 0 || len(existing.Items) > 0 {
		return InitResult{}, board.Invalid(op, "", "board at %s is already initialized", s.store.Dir())
	}

	b := layout.Board()
	if err := s.store.SaveManifest(b); err != nil {
		return InitResult{}, err
	}
	if s.entry == "" || b.Column(s.entry) == nil {
		s.entry = layout.EntryColumn()
	}
	if s.terminal == "" || b.Column(s.terminal) == nil {
		s.terminal = layout.TerminalColumn()
	}
	s.logger.WithFields(log.Fields{"template": layout.Name, "columns": len(b.Columns)}).Info("board initialized")
	s.emit(telemetry.Event{Kind: telemetry.KindBoardInit, Data: map[string]string{"template": layout.Name}})
	return InitResult{Board: b, Entry: s.entry, Terminal: s.terminal}, nil
}

// mutate runs fn on a reconciled copy of the board and commits the result.
// fn reports whether it changed anything; unchanged boards are not written.
func (s *Service) mutate(ctx context.Context, fn func(b *board.Board, now time.Time) (bool, error)) (*board.Board, error) {
	b, _, err := s.load(ctx, true)
	if err != nil {
		return nil, err
	}
	before := make(map[string]board.Task, len(b.Items))
	for _, t := range b.Items {
		before[t.ID] = t.Clone()
	}

	changed, err := fn(b, s.clock())
	if err != nil {
		return nil, err
	}
	if !changed {
		return b, nil
	}
	if err := board.JoinValidation(board.Validate(b)); err != nil {
		return nil, board.Corrupt("commit", "", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.commit(before, b); err != nil {
		return nil, err
	}
	return b, nil
}

// commit writes every task record that differs from before, deletes the
// records of tasks that left the board, and then saves the manifest. It is
// not cancellable once started. A crash part way leaves drift that the next
// read repairs.
func (s *Service) commit(before map[string]board.Task, after *board.Board) error {
	kept := make(map[string]bool, len(after.Items))
	for _, t := range after.Items {
		kept[t.ID] = true
		if old, ok := before[t.ID]; ok && old.Equal(t) {
			continue
		}
		if err := s.store.SaveTaskRecord(t); err != nil {
			return err
		}
	}
	for id := range before {
		if kept[id] {
			continue
		}
		if err := s.store.DeleteTaskRecord(id); err != nil {
			return err
		}
	}
	return s.store.SaveManifest(after)
}

// entryColumn resolves the designated entry column of b, or nil for a board
// without columns.
func (s *Service) entryColumn(b *board.Board) *board.Column {
	if s.entry != "" {
		if c := b.Column(s.entry); c != nil {
			return c
		}
	}
	return b.EntryColumn()
}

// terminalColumn resolves the designated terminal column of b.
func (s *Service) terminalColumn(b *board.Board) *board.Column {
	if s.terminal != "" {
		if c := b.Column(s.terminal); c != nil {
			return c
		}
	}
	return b.TerminalColumn()
}

// EntryColumnID returns the id of the entry column of the current board.
func (s *Service) EntryColumnID(ctx context.Context) (string, error) {
	b, err := s.ReadBoard(ctx)
	if err != nil {
		return "", err
	}
	if c := s.entryColumn(b); c != nil {
		return c.ID, nil
	}
	return "", board.NotFound("entry column", "", "board has no columns")
}

// emit records evt, stamping the time. Telemetry failures are logged and
// never fail the operation.
func (s *Service) emit(evt telemetry.Event) {
	if s.events == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = s.clock()
	}
	if err := s.events.Emit(evt); err != nil {
		s.logger.WithError(err).Warn("telemetry event dropped")
	}
}

// warnWIP logs and records a column holding more tasks than its limit.
// Limits are advisory; nothing is rejected.
func (s *Service) warnWIP(b *board.Board, columnID string) {
	if !b.OverWIPLimit(columnID) {
		return
	}
	col := b.Column(columnID)
	count := b.CountIn(columnID)
	s.logger.WithFields(log.Fields{"column": columnID, "limit": col.WIPLimit, "count": count}).Warn("column over WIP limit")
	s.emit(telemetry.Event{Kind: telemetry.KindWIPExceeded, ColumnID: columnID, Data: map[string]int{"limit": col.WIPLimit, "count": count}})
}
