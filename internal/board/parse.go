package board

import (
	"fmt"
	"strings"
)

// ParseStatus converts user input into a Status. Matching ignores case and
// accepts '-' or ' ' in place of '_' ("In Progress" parses as in_progress).
func ParseStatus(s string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	st := Status(norm)
	if !ValidStatuses[st] {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
	}
	return st, nil
}

// ParsePriority converts user input into a Priority. An empty string parses
// as the zero priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "", PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, s)
}
