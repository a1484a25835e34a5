package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/lanes/internal/board"
	"github.com/papapumpkin/lanes/internal/lifecycle"
	"github.com/papapumpkin/lanes/internal/tui"
	"github.com/papapumpkin/lanes/internal/watch"
)

// tuiCmd launches the interactive board.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive board",
	Long: `Opens the board in the terminal. Arrow keys or hjkl move the cursor,
H and L move the selected task between columns, d marks it done, a archives
it and / filters. The view refreshes when the board's files change.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().Bool("no-watch", false, "do not refresh on file changes")
	rootCmd.AddCommand(tuiCmd)
}

// lockedEngine serializes the TUI's reads and writes, which bubbletea runs
// on separate goroutines.
type lockedEngine struct {
	mu  sync.Mutex
	svc *lifecycle.Service
}

func (e *lockedEngine) ReadBoard(ctx context.Context) (*board.Board, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.svc.ReadBoard(ctx)
}

func (e *lockedEngine) MoveTask(ctx context.Context, id, targetColumnID string) (board.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.svc.MoveTask(ctx, id, targetColumnID)
}

func (e *lockedEngine) MarkDone(ctx context.Context, id string) (board.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.svc.MarkDone(ctx, id)
}

func (e *lockedEngine) ArchiveTask(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.svc.ArchiveTask(ctx, id)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	if !isStderrTTY() {
		return fmt.Errorf("lanes tui requires a TTY (terminal)")
	}
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	// Log lines would tear the alternate screen.
	s.logger.SetOutput(io.Discard)

	var changes <-chan watch.Change
	if noWatch, _ := cmd.Flags().GetBool("no-watch"); !noWatch {
		w, err := watch.New(s.store.Dir(), s.cfg.Watch.Debounce)
		if err != nil {
			return err
		}
		defer w.Stop()
		if err := w.Start(); err != nil {
			return err
		}
		changes = w.Changes
	}

	return tui.Run(cmd.Context(), &lockedEngine{svc: s.svc}, changes)
}
