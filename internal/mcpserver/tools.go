package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papapumpkin/lanes/internal/board"
	"github.com/papapumpkin/lanes/internal/filter"
	"github.com/papapumpkin/lanes/internal/lifecycle"
)

// boardReadInput is the input schema for the board_read tool.
type boardReadInput struct {
	Filter string `json:"filter,omitempty" jsonschema:"Optional filter; words match title or summary and #tag matches a tag"`
}

// boardReadOutput is the output schema for the board_read tool.
type boardReadOutput struct {
	Columns []columnView `json:"columns"`
}

// columnView is one column with the tasks that pass the filter.
type columnView struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	WIPLimit int          `json:"wip_limit,omitempty"`
	Tasks    []taskView `json:"tasks"`
}

// taskView is a task as agents see it, with timestamps in RFC 3339.
type taskView struct {
	ID        string                `json:"id"`
	ColumnID  string                `json:"column_id"`
	Title     string                `json:"title"`
	Status    string                `json:"status"`
	Summary   string                `json:"summary,omitempty"`
	Tags      []string              `json:"tags,omitempty"`
	Priority  string                `json:"priority,omitempty"`
	Owner     string                `json:"owner,omitempty"`
	SessionID string                `json:"session_id,omitempty"`
	ClaimedAt string                `json:"claimed_at,omitempty"`
	Checklist []board.ChecklistItem `json:"checklist,omitempty"`
	CreatedAt string                `json:"created_at"`
	UpdatedAt string                `json:"updated_at"`
}

func newTaskView(t board.Task) taskView {
	v := taskView{
		ID:        t.ID,
		ColumnID:  t.ColumnID,
		Title:     t.Title,
		Status:    string(t.CurrentStatus()),
		Summary:   t.Summary,
		Tags:      t.Tags,
		Priority:  string(t.Priority),
		Owner:     t.Owner,
		SessionID: t.SessionID,
		Checklist: t.Checklist,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
		UpdatedAt: t.UpdatedAt.Format(time.RFC3339),
	}
	if t.ClaimedAt != nil {
		v.ClaimedAt = t.ClaimedAt.Format(time.RFC3339)
	}
	return v
}

// taskNextOutput is the output schema for the task_next tool.
type taskNextOutput struct {
	Found bool        `json:"found"`
	Task  *taskView `json:"task,omitempty"`
}

// taskIDInput is the input schema for tools addressing one task.
type taskIDInput struct {
	TaskID string `json:"task_id" jsonschema:"The task id, e.g. TASK-7"`
}

// taskClaimInput is the input schema for the task_claim tool.
type taskClaimInput struct {
	TaskID    string `json:"task_id" jsonschema:"The task id to claim"`
	Owner     string `json:"owner" jsonschema:"Name of the agent taking the task"`
	SessionID string `json:"session_id,omitempty" jsonschema:"Optional session identifier of the claimant"`
}

// taskCreateInput is the input schema for the task_create tool.
type taskCreateInput struct {
	Title    string   `json:"title" jsonschema:"Task title"`
	Summary  string   `json:"summary,omitempty" jsonschema:"Longer description of the work"`
	ColumnID string   `json:"column_id,omitempty" jsonschema:"Column to create the task in; the entry column when empty"`
	Tags     []string `json:"tags,omitempty" jsonschema:"Tags without the leading #"`
	Priority string   `json:"priority,omitempty" jsonschema:"One of low, medium, high or urgent"`
}

// taskMoveInput is the input schema for the task_move tool.
type taskMoveInput struct {
	TaskID   string `json:"task_id" jsonschema:"The task id to move"`
	ColumnID string `json:"column_id" jsonschema:"Destination column id"`
	Index    *int   `json:"index,omitempty" jsonschema:"Optional zero-based position in the destination column; appended when absent"`
}

// taskOutput is the output schema for tools returning one task.
type taskOutput struct {
	Task taskView `json:"task"`
}

// registerReadTools registers the board_read and task_next tools.
func (s *Server) registerReadTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "board_read",
		Description: "Read the board: columns in order with their tasks, optionally filtered",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input boardReadInput) (*mcp.CallToolResult, boardReadOutput, error) {
		var out boardReadOutput
		err := s.locked(func() error {
			b, err := s.svc.ReadBoard(ctx)
			if err != nil {
				return err
			}
			out = viewBoard(b, filter.NewState(input.Filter))
			return nil
		})
		if err != nil {
			return nil, boardReadOutput{}, fmt.Errorf("reading board: %w", err)
		}
		return nil, out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "task_next",
		Description: "Suggest the next task to work on from the entry column without claiming it",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, taskNextOutput, error) {
		var out taskNextOutput
		err := s.locked(func() error {
			id, ok, err := s.svc.PickNextTask(ctx)
			if err != nil || !ok {
				return err
			}
			t, err := s.svc.GetTask(ctx, id)
			if err != nil {
				return err
			}
			v := newTaskView(t)
			out = taskNextOutput{Found: true, Task: &v}
			return nil
		})
		if err != nil {
			return nil, taskNextOutput{}, fmt.Errorf("picking next task: %w", err)
		}
		return nil, out, nil
	})
}

// registerTaskTools registers the mutating task tools.
func (s *Server) registerTaskTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "task_claim",
		Description: "Claim a task for an agent and mark it in progress",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input taskClaimInput) (*mcp.CallToolResult, taskOutput, error) {
		if input.TaskID == "" {
			return nil, taskOutput{}, fmt.Errorf("task_id is required")
		}
		if strings.TrimSpace(input.Owner) == "" {
			return nil, taskOutput{}, fmt.Errorf("owner is required")
		}
		return s.taskCall("claiming task", func() (board.Task, error) {
			return s.svc.ClaimTask(ctx, input.TaskID, lifecycle.Claim{Owner: input.Owner, SessionID: input.SessionID})
		})
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "task_done",
		Description: "Move a task to the terminal column and mark it done",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input taskIDInput) (*mcp.CallToolResult, taskOutput, error) {
		if input.TaskID == "" {
			return nil, taskOutput{}, fmt.Errorf("task_id is required")
		}
		return s.taskCall("completing task", func() (board.Task, error) {
			return s.svc.MarkDone(ctx, input.TaskID)
		})
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "task_create",
		Description: "Create a task at the end of a column",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input taskCreateInput) (*mcp.CallToolResult, taskOutput, error) {
		if strings.TrimSpace(input.Title) == "" {
			return nil, taskOutput{}, fmt.Errorf("title is required")
		}
		priority, err := board.ParsePriority(input.Priority)
		if err != nil {
			return nil, taskOutput{}, err
		}
		return s.taskCall("creating task", func() (board.Task, error) {
			return s.svc.CreateTask(ctx, lifecycle.NewTask{
				ColumnID: input.ColumnID,
				Title:    input.Title,
				Summary:  input.Summary,
				Tags:     input.Tags,
				Priority: priority,
			})
		})
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "task_move",
		Description: "Move a task to another column, optionally at a given position",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input taskMoveInput) (*mcp.CallToolResult, taskOutput, error) {
		if input.TaskID == "" {
			return nil, taskOutput{}, fmt.Errorf("task_id is required")
		}
		if input.ColumnID == "" {
			return nil, taskOutput{}, fmt.Errorf("column_id is required")
		}
		return s.taskCall("moving task", func() (board.Task, error) {
			if input.Index != nil {
				return s.svc.ReorderTask(ctx, input.TaskID, input.ColumnID, *input.Index)
			}
			return s.svc.MoveTask(ctx, input.TaskID, input.ColumnID)
		})
	})
}

// taskCall runs fn under the board lock and shapes its result.
func (s *Server) taskCall(action string, fn func() (board.Task, error)) (*mcp.CallToolResult, taskOutput, error) {
	var t board.Task
	err := s.locked(func() error {
		var err error
		t, err = fn()
		return err
	})
	if err != nil {
		s.logger.WithError(err).WithField("action", action).Debug("mcp tool failed")
		return nil, taskOutput{}, fmt.Errorf("%s: %w", action, err)
	}
	return nil, taskOutput{Task: newTaskView(t)}, nil
}

// viewBoard lists b's columns in order with the tasks that pass st. While a
// filter is active, columns with no matching task are omitted unless their
// name matches.
func viewBoard(b *board.Board, st filter.State) boardReadOutput {
	out := boardReadOutput{Columns: make([]columnView, 0, len(b.Columns))}
	for i := range b.Columns {
		col := &b.Columns[i]
		tasks := filter.ApplyFilters(b.TasksIn(col.ID), col, st)
		if !st.IsEmpty() && len(tasks) == 0 && !filter.ColumnMatchesFilters(*col, st) {
			continue
		}
		view := columnView{ID: col.ID, Name: col.DisplayName(), WIPLimit: col.WIPLimit, Tasks: make([]taskView, 0, len(tasks))}
		for _, t := range tasks {
			view.Tasks = append(view.Tasks, newTaskView(t))
		}
		out.Columns = append(out.Columns, view)
	}
	return out
}
