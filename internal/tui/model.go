package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/papapumpkin/lanes/internal/board"
	"github.com/papapumpkin/lanes/internal/filter"
	"github.com/papapumpkin/lanes/internal/watch"
)

// Engine is the subset of the lifecycle service the TUI drives.
type Engine interface {
	ReadBoard(ctx context.Context) (*board.Board, error)
	MoveTask(ctx context.Context, id, targetColumnID string) (board.Task, error)
	MarkDone(ctx context.Context, id string) (board.Task, error)
	ArchiveTask(ctx context.Context, id string) error
}

// MsgBoardLoaded carries a freshly read board.
type MsgBoardLoaded struct {
	Board *board.Board
	Err   error
}

// MsgActionDone reports the outcome of a mutation started from the TUI.
type MsgActionDone struct {
	Status string
	Err    error
}

// MsgBoardChanged is sent when the watcher sees an edit on disk.
type MsgBoardChanged struct {
	Change watch.Change
}

// Model is the root bubbletea model of the board TUI.
type Model struct {
	Keys      KeyMap
	BoardView BoardView
	Input     textinput.Model
	Status    string
	Err       error

	ctx       context.Context
	engine    Engine
	changes   <-chan watch.Change
	filtering bool
	width     int
}

// NewModel returns a model over engine. changes may be nil.
func NewModel(ctx context.Context, engine Engine, changes <-chan watch.Change) Model {
	in := textinput.New()
	in.Prompt = "/ "
	in.Placeholder = "text #tag"
	in.CharLimit = 200
	return Model{
		Keys:      DefaultKeyMap(),
		BoardView: NewBoardView(),
		Input:     in,
		ctx:       ctx,
		engine:    engine,
		changes:   changes,
	}
}

// Init loads the board and starts listening for changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.waitForChange())
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		b, err := m.engine.ReadBoard(m.ctx)
		return MsgBoardLoaded{Board: b, Err: err}
	}
}

func (m Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	return func() tea.Msg {
		c, ok := <-m.changes
		if !ok {
			return nil
		}
		return MsgBoardChanged{Change: c}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.BoardView.Width = msg.Width
		m.BoardView.Height = msg.Height - 4
		m.Input.Width = max(10, msg.Width-4)
		return m, nil

	case MsgBoardLoaded:
		if msg.Err != nil {
			m.Err = msg.Err
			return m, nil
		}
		m.Err = nil
		m.BoardView.SetBoard(msg.Board)
		return m, nil

	case MsgActionDone:
		m.Err = msg.Err
		if msg.Err == nil {
			m.Status = msg.Status
		}
		return m, m.load()

	case MsgBoardChanged:
		return m, tea.Batch(m.load(), m.waitForChange())

	case tea.KeyMsg:
		if m.filtering {
			return m.handleFilterKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.Keys.Up):
		m.BoardView.MoveUp()
	case key.Matches(msg, m.Keys.Down):
		m.BoardView.MoveDown()
	case key.Matches(msg, m.Keys.MoveLeft):
		return m, m.moveSelected(-1)
	case key.Matches(msg, m.Keys.MoveRight):
		return m, m.moveSelected(1)
	case key.Matches(msg, m.Keys.Left):
		m.BoardView.MoveLeft()
	case key.Matches(msg, m.Keys.Right):
		m.BoardView.MoveRight()
	case key.Matches(msg, m.Keys.Done):
		if t := m.BoardView.SelectedTask(); t != nil {
			id := t.ID
			return m, m.run(func() (string, error) {
				_, err := m.engine.MarkDone(m.ctx, id)
				return id + " done", err
			})
		}
	case key.Matches(msg, m.Keys.Archive):
		if t := m.BoardView.SelectedTask(); t != nil {
			id := t.ID
			return m, m.run(func() (string, error) {
				return id + " archived", m.engine.ArchiveTask(m.ctx, id)
			})
		}
	case key.Matches(msg, m.Keys.Filter):
		m.filtering = true
		m.Input.SetValue(m.BoardView.Filter.String())
		m.Input.CursorEnd()
		return m, m.Input.Focus()
	case key.Matches(msg, m.Keys.Clear):
		m.Input.SetValue("")
		m.BoardView.SetFilter(filter.State{})
	case key.Matches(msg, m.Keys.Refresh):
		return m, m.load()
	}
	return m, nil
}

// handleFilterKey edits the filter; the board narrows as the user types.
func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.filtering = false
		m.Input.Blur()
		return m, nil
	case tea.KeyEsc:
		m.filtering = false
		m.Input.Blur()
		m.Input.SetValue("")
		m.BoardView.SetFilter(filter.State{})
		return m, nil
	}
	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	m.BoardView.SetFilter(filter.NewState(m.Input.Value()))
	return m, cmd
}

func (m Model) moveSelected(delta int) tea.Cmd {
	t := m.BoardView.SelectedTask()
	target := m.BoardView.NeighborColumn(delta)
	if t == nil || target == "" {
		return nil
	}
	id := t.ID
	return m.run(func() (string, error) {
		_, err := m.engine.MoveTask(m.ctx, id, target)
		return fmt.Sprintf("%s → %s", id, target), err
	})
}

func (m Model) run(fn func() (string, error)) tea.Cmd {
	return func() tea.Msg {
		status, err := fn()
		return MsgActionDone{Status: status, Err: err}
	}
}

// View renders the TUI.
func (m Model) View() string {
	var sb strings.Builder
	b := m.BoardView.Board
	summary := "lanes"
	if b != nil {
		summary = fmt.Sprintf("lanes  %d columns  %d tasks", len(b.Columns), len(b.Items))
	}
	if !m.BoardView.Filter.IsEmpty() && !m.filtering {
		summary += "  filter: " + m.BoardView.Filter.String()
	}
	sb.WriteString(styleStatusBar.Width(max(m.width, len(summary)+2)).Render(summary))
	sb.WriteString("\n")
	sb.WriteString(m.BoardView.View())
	sb.WriteString("\n")

	switch {
	case m.filtering:
		sb.WriteString(m.Input.View())
	case m.Err != nil:
		sb.WriteString(styleError.Render("error: " + m.Err.Error()))
	case m.Status != "":
		sb.WriteString(styleCardMeta.Render(m.Status))
	}
	sb.WriteString("\n")
	sb.WriteString(footer(FooterBindings(m.Keys)))
	return sb.String()
}

func footer(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		parts = append(parts, styleFooterKey.Render(h.Key)+":"+styleFooterDesc.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}
