package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// TaskIDPrefix starts every id allocated by this package.
const TaskIDPrefix = "TASK-"

// IDStrategy selects how new task ids are allocated.
type IDStrategy string

const (
	// IDSequential allocates TASK-<n> with n one past the highest number in use.
	IDSequential IDStrategy = "sequential"
	// IDRandom allocates TASK-<8 hex digits> from a random UUID.
	IDRandom IDStrategy = "random"
)

// ParseIDStrategy validates a configured id strategy. Empty means sequential.
func ParseIDStrategy(s string) (IDStrategy, error) {
	switch st := IDStrategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return IDSequential, nil
	case IDSequential, IDRandom:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown id strategy %q", ErrInvalidInput, s)
}

// maxRandomAttempts bounds collision retries for random ids.
const maxRandomAttempts = 16

// ValidTaskID reports whether id is safe to use as a record file name:
// non-empty, not starting with '.', and limited to letters, digits, '-',
// '_' and '.'.
func ValidTaskID(id string) bool {
	if id == "" || strings.HasPrefix(id, ".") || len(id) > 128 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// NextTaskID allocates a fresh id that is not in known and for which taken
// (if non-nil) reports false. known should contain every id in use on the
// board, in the record directory and in the archive.
func NextTaskID(strategy IDStrategy, known []string, taken func(id string) bool) (string, error) {
	inUse := make(map[string]bool, len(known))
	for _, id := range known {
		inUse[id] = true
	}
	free := func(id string) bool {
		return !inUse[id] && (taken == nil || !taken(id))
	}

	switch strategy {
	case IDRandom:
		for range maxRandomAttempts {
			id := TaskIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
			if free(id) {
				return id, nil
			}
		}
		return "", errors.New("could not allocate a unique random task id")
	case IDSequential, "":
		next := 1
		for _, id := range known {
			if n, ok := sequenceNumber(id); ok && n >= next {
				next = n + 1
			}
		}
		for {
			id := TaskIDPrefix + strconv.Itoa(next)
			if free(id) {
				return id, nil
			}
			next++
		}
	}
	return "", fmt.Errorf("%w: unknown id strategy %q", ErrInvalidInput, strategy)
}

// sequenceNumber extracts n from an id of the form TASK-<n>.
func sequenceNumber(id string) (int, bool) {
	suffix, ok := strings.CutPrefix(id, TaskIDPrefix)
	if !ok || suffix == "" {
		return 0, false
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
