// Package tui is the interactive terminal board: columns side by side, a
// cursor over the filtered tasks, and key bindings that move, finish and
// archive tasks through the lifecycle service.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/papapumpkin/lanes/internal/watch"
)

// Run starts the TUI and blocks until the user quits. changes, when not
// nil, triggers a reload on every edit seen by the watcher.
func Run(ctx context.Context, engine Engine, changes <-chan watch.Change, opts ...tea.ProgramOption) error {
	allOpts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(NewModel(ctx, engine, changes), allOpts...)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
