package board

import (
	"errors"
	"fmt"
)

// Sentinel errors naming the four failure kinds of the engine. Every error
// returned by the store, the reconciler, the ordering manager and the
// lifecycle service matches exactly one of them via errors.Is.
var (
	// ErrNotFound indicates a referenced task or column id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates a request that can never succeed as given.
	ErrInvalidInput = errors.New("invalid input")
	// ErrCorruptManifest indicates stored data that fails to parse or holds a
	// logical inconsistency reconciliation must not guess its way out of.
	ErrCorruptManifest = errors.New("corrupt manifest")
	// ErrIOFailure indicates an underlying filesystem or database error.
	ErrIOFailure = errors.New("i/o failure")
)

// Error carries the operation and entity id alongside the failure kind.
type Error struct {
	Op   string // operation, e.g. "move task"
	ID   string // task or column id, may be empty
	Kind error  // one of the sentinel errors above
	Err  error  // underlying cause, may be nil
}

// Error returns "op id: kind: cause".
func (e *Error) Error() string {
	msg := e.Op
	if e.ID != "" {
		msg += " " + e.ID
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NotFound builds an ErrNotFound error.
func NotFound(op, id, format string, args ...any) error {
	return &Error{Op: op, ID: id, Kind: ErrNotFound, Err: fmt.Errorf(format, args...)}
}

// Invalid builds an ErrInvalidInput error.
func Invalid(op, id, format string, args ...any) error {
	return &Error{Op: op, ID: id, Kind: ErrInvalidInput, Err: fmt.Errorf(format, args...)}
}

// Corrupt builds an ErrCorruptManifest error wrapping cause.
func Corrupt(op, id string, cause error) error {
	return &Error{Op: op, ID: id, Kind: ErrCorruptManifest, Err: cause}
}

// IOFailure builds an ErrIOFailure error wrapping cause.
func IOFailure(op, id string, cause error) error {
	return &Error{Op: op, ID: id, Kind: ErrIOFailure, Err: cause}
}

// KindOf returns the sentinel kind of err, or nil when err carries none.
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrInvalidInput, ErrCorruptManifest, ErrIOFailure} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// ValidationCategory classifies an invariant violation for programmatic handling.
type ValidationCategory string

const (
	// ValCatMissingField indicates a required field is empty.
	ValCatMissingField ValidationCategory = "missing_field"
	// ValCatDuplicateID indicates two columns or two tasks share an id.
	ValCatDuplicateID ValidationCategory = "duplicate_id"
	// ValCatUnknownColumn indicates a task references a column that does not exist.
	ValCatUnknownColumn ValidationCategory = "unknown_column"
	// ValCatPositions indicates column positions are not exactly 1..N.
	ValCatPositions ValidationCategory = "positions"
	// ValCatTaskIDs indicates a column's taskIds disagree with task membership.
	ValCatTaskIDs ValidationCategory = "task_ids"
	// ValCatInvalidValue indicates a field holds a value outside its closed set.
	ValCatInvalidValue ValidationCategory = "invalid_value"
)

// ValidationError records one invariant violation with its context.
type ValidationError struct {
	Category ValidationCategory
	ID       string // offending task or column id
	Field    string
	Err      error
}

// Error returns a human-readable description including the entity id.
func (e *ValidationError) Error() string {
	if e.ID != "" {
		return e.ID + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
