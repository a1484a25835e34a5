package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/papapumpkin/lanes/internal/archive"
	"github.com/papapumpkin/lanes/internal/board"
	"github.com/papapumpkin/lanes/internal/filter"
	"github.com/papapumpkin/lanes/internal/lifecycle"
)

type createRequest struct {
	Title     string                `json:"title"`
	Summary   string                `json:"summary"`
	ColumnID  string                `json:"columnId"`
	Tags      []string              `json:"tags"`
	Priority  string                `json:"priority"`
	Status    string                `json:"status"`
	Checklist []board.ChecklistItem `json:"checklist"`
}

type updateRequest struct {
	Title     *string                `json:"title"`
	Summary   *string                `json:"summary"`
	Tags      *[]string              `json:"tags"`
	Priority  *string                `json:"priority"`
	Status    *string                `json:"status"`
	Checklist *[]board.ChecklistItem `json:"checklist"`
}

type moveRequest struct {
	ColumnID string `json:"columnId"`
	Index    *int   `json:"index"`
}

type claimRequest struct {
	Owner     string `json:"owner"`
	SessionID string `json:"sessionId"`
}

type nextResponse struct {
	Found bool        `json:"found"`
	Task  *board.Task `json:"task,omitempty"`
}

type countResponse struct {
	Count int `json:"count"`
}

type archivedResponse struct {
	Task       board.Task `json:"task"`
	ArchivedAt string     `json:"archivedAt"`
}

func (s *Server) healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// filterFromQuery builds a filter from ?filter=, ?status= and ?column=.
func filterFromQuery(c echo.Context) (filter.State, error) {
	st := filter.NewState(c.QueryParam("filter"))
	if raw := c.QueryParam("status"); raw != "" {
		status, err := board.ParseStatus(raw)
		if err != nil {
			return filter.State{}, err
		}
		st.Status = status
	}
	st.ColumnID = c.QueryParam("column")
	return st, nil
}

// bind decodes the request body, reporting malformed input as invalid.
func bind(c echo.Context, op string, dst any) error {
	if err := c.Bind(dst); err != nil {
		return board.Invalid(op, c.Param("id"), "malformed request body")
	}
	return nil
}

// getBoard returns the reconciled board. With a filter the items are
// narrowed to matching tasks; columns are always returned.
func (s *Server) getBoard(c echo.Context) error {
	st, err := filterFromQuery(c)
	if err != nil {
		return s.fail(c, err)
	}
	var b *board.Board
	err = s.locked(func() error {
		var err error
		b, err = s.svc.ReadBoard(c.Request().Context())
		return err
	})
	if err != nil {
		return s.fail(c, err)
	}
	if !st.IsEmpty() {
		narrowBoard(b, st)
	}
	return c.JSON(http.StatusOK, b)
}

// narrowBoard keeps only the tasks matching st, in items and in every
// column's order.
func narrowBoard(b *board.Board, st filter.State) {
	items := []board.Task{}
	for i := range b.Columns {
		col := &b.Columns[i]
		matched := filter.ApplyFilters(b.TasksIn(col.ID), col, st)
		ids := make([]string, 0, len(matched))
		for _, t := range matched {
			ids = append(ids, t.ID)
		}
		col.TaskIDs = ids
		items = append(items, matched...)
	}
	b.Items = items
}

func (s *Server) reconcileBoard(c echo.Context) error {
	check := c.QueryParam("check") == "true"
	var resp any
	err := s.locked(func() error {
		if check {
			rep, err := s.svc.CheckBoard(c.Request().Context())
			resp = rep
			return err
		}
		rep, err := s.svc.Reconcile(c.Request().Context())
		resp = rep
		return err
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) nextTask(c echo.Context) error {
	var resp nextResponse
	err := s.locked(func() error {
		ctx := c.Request().Context()
		id, ok, err := s.svc.PickNextTask(ctx)
		if err != nil || !ok {
			return err
		}
		t, err := s.svc.GetTask(ctx, id)
		if err != nil {
			return err
		}
		resp = nextResponse{Found: true, Task: &t}
		return nil
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) listTasks(c echo.Context) error {
	st, err := filterFromQuery(c)
	if err != nil {
		return s.fail(c, err)
	}
	var tasks []board.Task
	err = s.locked(func() error {
		var err error
		tasks, err = s.svc.ListTasks(c.Request().Context(), st)
		return err
	})
	if err != nil {
		return s.fail(c, err)
	}
	if tasks == nil {
		tasks = []board.Task{}
	}
	return c.JSON(http.StatusOK, tasks)
}

func (s *Server) getTask(c echo.Context) error {
	return s.taskResult(c, http.StatusOK, func() (board.Task, error) {
		return s.svc.GetTask(c.Request().Context(), c.Param("id"))
	})
}

func (s *Server) createTask(c echo.Context) error {
	const op = "create task"
	var req createRequest
	if err := bind(c, op, &req); err != nil {
		return s.fail(c, err)
	}
	in := lifecycle.NewTask{
		ColumnID:  req.ColumnID,
		Title:     req.Title,
		Summary:   req.Summary,
		Tags:      req.Tags,
		Checklist: req.Checklist,
	}
	var err error
	if in.Priority, err = board.ParsePriority(req.Priority); err != nil {
		return s.fail(c, err)
	}
	if req.Status != "" {
		if in.Status, err = board.ParseStatus(req.Status); err != nil {
			return s.fail(c, err)
		}
	}
	return s.taskResult(c, http.StatusCreated, func() (board.Task, error) {
		return s.svc.CreateTask(c.Request().Context(), in)
	})
}

func (s *Server) updateTask(c echo.Context) error {
	const op = "update task"
	var req updateRequest
	if err := bind(c, op, &req); err != nil {
		return s.fail(c, err)
	}
	patch := lifecycle.TaskPatch{
		Title:     req.Title,
		Summary:   req.Summary,
		Tags:      req.Tags,
		Checklist: req.Checklist,
	}
	if req.Priority != nil {
		p, err := board.ParsePriority(*req.Priority)
		if err != nil {
			return s.fail(c, err)
		}
		patch.Priority = &p
	}
	if req.Status != nil {
		st, err := board.ParseStatus(*req.Status)
		if err != nil {
			return s.fail(c, err)
		}
		patch.Status = &st
	}
	return s.taskResult(c, http.StatusOK, func() (board.Task, error) {
		return s.svc.UpdateTask(c.Request().Context(), c.Param("id"), patch)
	})
}

func (s *Server) moveTask(c echo.Context) error {
	const op = "move task"
	var req moveRequest
	if err := bind(c, op, &req); err != nil {
		return s.fail(c, err)
	}
	if strings.TrimSpace(req.ColumnID) == "" {
		return s.fail(c, board.Invalid(op, c.Param("id"), "columnId is required"))
	}
	return s.taskResult(c, http.StatusOK, func() (board.Task, error) {
		if req.Index != nil {
			return s.svc.ReorderTask(c.Request().Context(), c.Param("id"), req.ColumnID, *req.Index)
		}
		return s.svc.MoveTask(c.Request().Context(), c.Param("id"), req.ColumnID)
	})
}

func (s *Server) claimTask(c echo.Context) error {
	var req claimRequest
	if err := bind(c, "claim task", &req); err != nil {
		return s.fail(c, err)
	}
	return s.taskResult(c, http.StatusOK, func() (board.Task, error) {
		return s.svc.ClaimTask(c.Request().Context(), c.Param("id"), lifecycle.Claim{Owner: req.Owner, SessionID: req.SessionID})
	})
}

func (s *Server) releaseTask(c echo.Context) error {
	return s.taskResult(c, http.StatusOK, func() (board.Task, error) {
		return s.svc.ReleaseTask(c.Request().Context(), c.Param("id"))
	})
}

func (s *Server) markDone(c echo.Context) error {
	return s.taskResult(c, http.StatusOK, func() (board.Task, error) {
		return s.svc.MarkDone(c.Request().Context(), c.Param("id"))
	})
}

func (s *Server) archiveTask(c echo.Context) error {
	err := s.locked(func() error {
		return s.svc.ArchiveTask(c.Request().Context(), c.Param("id"))
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deleteTask(c echo.Context) error {
	err := s.locked(func() error {
		return s.svc.DeleteTask(c.Request().Context(), c.Param("id"))
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) archiveAllDone(c echo.Context) error {
	var n int
	err := s.locked(func() error {
		var err error
		n, err = s.svc.ArchiveAllDone(c.Request().Context())
		return err
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, countResponse{Count: n})
}

func (s *Server) restoreTask(c echo.Context) error {
	return s.taskResult(c, http.StatusOK, func() (board.Task, error) {
		return s.svc.RestoreTask(c.Request().Context(), c.Param("id"))
	})
}

// listArchived searches the archive with ?q=, ?tag= and ?limit=.
func (s *Server) listArchived(c echo.Context) error {
	q := archive.Query{Text: c.QueryParam("q"), Tag: c.QueryParam("tag")}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return s.fail(c, board.Invalid("list archived", "", "invalid limit %q", raw))
		}
		q.Limit = n
	}
	var entries []archive.Entry
	err := s.locked(func() error {
		var err error
		entries, err = s.svc.ListArchived(c.Request().Context(), q)
		return err
	})
	if err != nil {
		return s.fail(c, err)
	}
	out := make([]archivedResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, archivedResponse{Task: e.Task, ArchivedAt: e.ArchivedAt.Format(time.RFC3339)})
	}
	return c.JSON(http.StatusOK, out)
}

// taskResult runs fn under the board lock and writes the task it returns.
func (s *Server) taskResult(c echo.Context, status int, fn func() (board.Task, error)) error {
	var t board.Task
	err := s.locked(func() error {
		var err error
		t, err = fn()
		return err
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(status, t)
}
