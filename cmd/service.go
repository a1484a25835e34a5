package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/lanes/internal/archive"
	"github.com/papapumpkin/lanes/internal/config"
	"github.com/papapumpkin/lanes/internal/lifecycle"
	"github.com/papapumpkin/lanes/internal/store"
	"github.com/papapumpkin/lanes/internal/telemetry"
	"github.com/papapumpkin/lanes/internal/ui"
)

// session bundles what a command needs to act on the board.
type session struct {
	cfg     config.Config
	svc     *lifecycle.Service
	store   *store.Store
	logger  *log.Logger
	printer *ui.Printer
	closers []func() error
}

// Close releases the archive index and telemetry file.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.WithError(err).Warn("closing board resources")
		}
	}
}

// openSession loads configuration and wires the lifecycle service for the
// project board. Unless allowMissing is set, a project without .lanes/ is an
// error pointing at lanes init.
func openSession(cmd *cobra.Command, allowMissing bool) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := log.StandardLogger()
	logger.SetOutput(cmd.ErrOrStderr())
	if err := cfg.ConfigureLogger(logger); err != nil {
		return nil, err
	}

	st := store.NewOS(cfg.Root)
	if !allowMissing && !st.Exists() {
		return nil, fmt.Errorf("no board in %s; run lanes init", cfg.Root)
	}

	s := &session{
		cfg:     cfg,
		store:   st,
		logger:  logger,
		printer: ui.NewWriter(cmd.OutOrStdout(), cmd.ErrOrStderr()),
	}
	opts := []lifecycle.Option{
		lifecycle.WithLogger(logger),
		lifecycle.WithIDStrategy(cfg.Strategy()),
		lifecycle.WithEntryColumn(cfg.EntryColumn),
		lifecycle.WithTerminalColumn(cfg.TerminalColumn),
	}

	if st.Exists() {
		index, err := archive.Open(cmd.Context(), filepath.Join(st.Dir(), archive.FileName))
		if err != nil {
			logger.WithError(err).Warn("archive index unavailable; falling back to directory scans")
		} else {
			opts = append(opts, lifecycle.WithArchiveIndex(index))
			s.closers = append(s.closers, index.Close)
		}
		if cfg.Events {
			events, err := telemetry.NewEmitter(filepath.Join(st.Dir(), telemetry.FileName))
			if err != nil {
				logger.WithError(err).Warn("event log unavailable")
			} else {
				opts = append(opts, lifecycle.WithEvents(events))
				s.closers = append(s.closers, events.Close)
			}
		}
	}

	s.svc = lifecycle.New(st, opts...)
	return s, nil
}

// isStderrTTY reports whether stderr is attached to a terminal.
func isStderrTTY() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
