// Package telemetry provides a JSONL event stream of board mutations. Every
// task creation, move, claim, archival and reconciliation repair is recorded
// as a structured JSON event, making a board's history auditable and
// replayable.
package telemetry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// FileName is the event stream file inside the board directory.
const FileName = "events.jsonl"

// Event kinds identify the type of telemetry event.
const (
	KindBoardInit       = "board_init"
	KindBoardWritten    = "board_written"
	KindBoardReconciled = "board_reconciled"
	KindTaskCreated     = "task_created"
	KindTaskUpdated     = "task_updated"
	KindTaskMoved       = "task_moved"
	KindTaskReordered   = "task_reordered"
	KindTaskClaimed     = "task_claimed"
	KindTaskReleased    = "task_released"
	KindTaskDone        = "task_done"
	KindTaskArchived    = "task_archived"
	KindTaskRestored    = "task_restored"
	KindTaskDeleted     = "task_deleted"
	KindColumnChanged   = "column_changed"
	KindWIPExceeded     = "wip_exceeded"
)

// Event represents a single telemetry record. Each event carries a timestamp,
// a kind tag, and optional task and column identifiers along with arbitrary
// structured data.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	TaskID    string    `json:"task,omitempty"`
	ColumnID  string    `json:"column,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Emitter writes telemetry events as JSONL. It is safe for concurrent use by
// multiple goroutines. A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	w   io.Writer
	c   io.Closer
	enc *json.Encoder
	mu  sync.Mutex
}

// NewEmitter creates a new Emitter that writes JSONL events to the file at
// path. The file is created if it does not exist, or appended to if it does.
func NewEmitter(path string) (*Emitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{w: f, c: f, enc: json.NewEncoder(f)}, nil
}

// NewWriterEmitter creates an Emitter over w. Close does not close w.
func NewWriterEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w, enc: json.NewEncoder(w)}
}

// Emit writes a single event. It is safe for concurrent use. Calling Emit on
// a nil Emitter is a no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Close closes the underlying file, if the Emitter owns one. Calling Close on
// a nil Emitter is a no-op.
func (e *Emitter) Close() error {
	if e == nil || e.c == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.c.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}

// ReadEvents decodes a JSONL stream. Blank lines are skipped; the first
// malformed line stops decoding with an error naming its line number.
func ReadEvents(r io.Reader) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var evt Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			return events, fmt.Errorf("telemetry: line %d: %w", line, err)
		}
		events = append(events, evt)
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("telemetry: read: %w", err)
	}
	return events, nil
}
