// Package board defines the canonical shapes of a lanes board: columns,
// tasks, and the board aggregate that owns them. The manifest (board.json)
// and every per-task record decode into these types, and every mutation
// must leave a Board that satisfies Validate.
package board

import (
	"slices"
	"sort"
	"strings"
	"time"
)

// CurrentVersion is the manifest schema version written by this build.
const CurrentVersion = 1

// FallbackColumnName is shown in place of an empty column name. It is a
// presentation default only and is never persisted.
const FallbackColumnName = "Untitled"

// Status is the workflow state of a task. It is independent of the column
// that currently holds the task.
type Status string

const (
	StatusReady         Status = "ready"
	StatusInProgress    Status = "in_progress"
	StatusNeedsFeedback Status = "needs_feedback"
	StatusBlocked       Status = "blocked"
	StatusDone          Status = "done"
)

// Designated states used by lifecycle transitions.
const (
	// InitialStatus is assigned to new tasks and to records that omit a status.
	InitialStatus = StatusReady
	// ActiveStatus is assigned when a task is claimed.
	ActiveStatus = StatusInProgress
	// TerminalStatus is assigned when a task is marked done.
	TerminalStatus = StatusDone
)

// ValidStatuses is the closed set of recognized status values.
var ValidStatuses = map[Status]bool{
	StatusReady:         true,
	StatusInProgress:    true,
	StatusNeedsFeedback: true,
	StatusBlocked:       true,
	StatusDone:          true,
}

// AllStatuses lists the statuses in workflow order.
var AllStatuses = []Status{StatusReady, StatusInProgress, StatusNeedsFeedback, StatusBlocked, StatusDone}

// Priority ranks tasks when picking the next unit of work.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the sort rank of the priority; lower ranks are picked first.
// An empty or unrecognized priority ranks as medium.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

// ChecklistItem is a single entry of a task checklist.
type ChecklistItem struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Task is a unit of work. Its position is not stored here: it is derived
// from the owning column's TaskIDs (or from manifest order when the column
// carries no explicit ordering).
type Task struct {
	ID        string          `json:"id"`
	ColumnID  string          `json:"columnId"`
	Title     string          `json:"title"`
	Status    Status          `json:"status,omitempty"`
	Summary   string          `json:"summary,omitempty"`
	Tags      []string        `json:"tags,omitempty"`
	Priority  Priority        `json:"priority,omitempty"`
	Owner     string          `json:"owner,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	ClaimedAt *time.Time      `json:"claimedAt,omitempty"`
	Checklist []ChecklistItem `json:"checklist,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// HasTag reports whether the task carries tag, compared case-insensitively.
func (t Task) HasTag(tag string) bool {
	for _, have := range t.Tags {
		if strings.EqualFold(have, tag) {
			return true
		}
	}
	return false
}

// CurrentStatus returns the task's status, or InitialStatus when the record
// carries none.
func (t Task) CurrentStatus() Status {
	if t.Status == "" {
		return InitialStatus
	}
	return t.Status
}

// Claimed reports whether the task has an owner attached.
func (t Task) Claimed() bool {
	return t.Owner != ""
}

// Equal reports whether two tasks carry the same content. Timestamps are
// compared with time.Equal so that records decoded with different zone
// representations do not register as drift.
func (t Task) Equal(o Task) bool {
	if t.ID != o.ID || t.ColumnID != o.ColumnID || t.Title != o.Title ||
		t.Status != o.Status || t.Summary != o.Summary || t.Priority != o.Priority ||
		t.Owner != o.Owner || t.SessionID != o.SessionID {
		return false
	}
	if !slices.Equal(t.Tags, o.Tags) || !slices.Equal(t.Checklist, o.Checklist) {
		return false
	}
	if (t.ClaimedAt == nil) != (o.ClaimedAt == nil) {
		return false
	}
	if t.ClaimedAt != nil && !t.ClaimedAt.Equal(*o.ClaimedAt) {
		return false
	}
	return t.CreatedAt.Equal(o.CreatedAt) && t.UpdatedAt.Equal(o.UpdatedAt)
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	c := t
	c.Tags = slices.Clone(t.Tags)
	c.Checklist = slices.Clone(t.Checklist)
	if t.ClaimedAt != nil {
		at := *t.ClaimedAt
		c.ClaimedAt = &at
	}
	return c
}

// Column is a named stage of the board.
type Column struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
	// TaskIDs is the explicit intra-column order. Nil means the order is
	// derived from the manifest's item order.
	TaskIDs  []string `json:"taskIds,omitempty"`
	WIPLimit int      `json:"wipLimit,omitempty"`
}

// DisplayName returns the column name, or FallbackColumnName when empty.
func (c Column) DisplayName() string {
	if strings.TrimSpace(c.Name) == "" {
		return FallbackColumnName
	}
	return c.Name
}

// Board is the aggregate root: columns plus the flat collection of tasks.
type Board struct {
	Version int      `json:"version"`
	Columns []Column `json:"columns"`
	Items   []Task   `json:"items"`
}

// New returns an empty board at the current schema version.
func New() *Board {
	return &Board{
		Version: CurrentVersion,
		Columns: []Column{},
		Items:   []Task{},
	}
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	c := &Board{
		Version: b.Version,
		Columns: make([]Column, len(b.Columns)),
		Items:   make([]Task, len(b.Items)),
	}
	for i, col := range b.Columns {
		col.TaskIDs = cloneIDs(col.TaskIDs)
		c.Columns[i] = col
	}
	for i, t := range b.Items {
		c.Items[i] = t.Clone()
	}
	return c
}

// cloneIDs copies an id list, preserving the nil/empty distinction.
func cloneIDs(ids []string) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// ColumnIndex returns the slice index of the column with the given id, or -1.
func (b *Board) ColumnIndex(id string) int {
	for i := range b.Columns {
		if b.Columns[i].ID == id {
			return i
		}
	}
	return -1
}

// Column returns a pointer to the column with the given id, or nil.
func (b *Board) Column(id string) *Column {
	if i := b.ColumnIndex(id); i >= 0 {
		return &b.Columns[i]
	}
	return nil
}

// TaskIndex returns the slice index of the task with the given id, or -1.
func (b *Board) TaskIndex(id string) int {
	for i := range b.Items {
		if b.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Task returns a pointer to the task with the given id, or nil.
func (b *Board) Task(id string) *Task {
	if i := b.TaskIndex(id); i >= 0 {
		return &b.Items[i]
	}
	return nil
}

// SortColumns orders Columns by Position, keeping the existing order for ties.
func (b *Board) SortColumns() {
	sort.SliceStable(b.Columns, func(i, j int) bool {
		return b.Columns[i].Position < b.Columns[j].Position
	})
}

// OrderedTaskIDs returns the canonical order of task ids in a column: the
// explicit TaskIDs when present, otherwise the manifest order of the tasks
// whose ColumnID names the column.
func (b *Board) OrderedTaskIDs(columnID string) []string {
	col := b.Column(columnID)
	if col == nil {
		return nil
	}
	if col.TaskIDs != nil {
		return cloneIDs(col.TaskIDs)
	}
	ids := []string{}
	for _, t := range b.Items {
		if t.ColumnID == columnID {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// TasksIn returns copies of the tasks in a column, in canonical order.
func (b *Board) TasksIn(columnID string) []Task {
	ids := b.OrderedTaskIDs(columnID)
	out := make([]Task, 0, len(ids))
	for _, id := range ids {
		if t := b.Task(id); t != nil {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Materialize pins the derived order of a column into its TaskIDs so that
// later edits can work on an explicit list. It returns the column, or nil
// when no such column exists.
func (b *Board) Materialize(columnID string) *Column {
	col := b.Column(columnID)
	if col == nil {
		return nil
	}
	if col.TaskIDs == nil {
		col.TaskIDs = b.OrderedTaskIDs(columnID)
	}
	return col
}

// EntryColumn returns the column with the lowest position, or nil for a
// board without columns.
func (b *Board) EntryColumn() *Column {
	var entry *Column
	for i := range b.Columns {
		if entry == nil || b.Columns[i].Position < entry.Position {
			entry = &b.Columns[i]
		}
	}
	return entry
}

// TerminalColumn returns the column with the highest position, or nil for a
// board without columns.
func (b *Board) TerminalColumn() *Column {
	var last *Column
	for i := range b.Columns {
		if last == nil || b.Columns[i].Position > last.Position {
			last = &b.Columns[i]
		}
	}
	return last
}

// NextColumn returns the column immediately after id in position order, or
// nil when id is the last column or unknown.
func (b *Board) NextColumn(id string) *Column {
	cur := b.Column(id)
	if cur == nil {
		return nil
	}
	var next *Column
	for i := range b.Columns {
		c := &b.Columns[i]
		if c.Position <= cur.Position {
			continue
		}
		if next == nil || c.Position < next.Position {
			next = c
		}
	}
	return next
}

// CountIn returns the number of tasks whose ColumnID names the column.
func (b *Board) CountIn(columnID string) int {
	n := 0
	for _, t := range b.Items {
		if t.ColumnID == columnID {
			n++
		}
	}
	return n
}

// OverWIPLimit reports whether a column holds more tasks than its advisory
// WIP limit. Columns without a limit are never over it.
func (b *Board) OverWIPLimit(columnID string) bool {
	col := b.Column(columnID)
	if col == nil || col.WIPLimit <= 0 {
		return false
	}
	return b.CountIn(columnID) > col.WIPLimit
}

// NormalizeTags trims, lower-cases and de-duplicates tags, dropping empties
// and any leading '#'.
func NormalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
