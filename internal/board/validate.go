package board

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks a board against the structural invariants: unique column
// and task ids, tasks referencing existing columns, contiguous column
// positions, and taskIds lists that agree exactly with column membership.
// It returns every violation found; an empty result means the board is sound.
func Validate(b *Board) []ValidationError {
	var errs []ValidationError

	columns := make(map[string]bool, len(b.Columns))
	positions := make(map[int]bool, len(b.Columns))
	for _, c := range b.Columns {
		if c.ID == "" {
			errs = append(errs, ValidationError{
				Category: ValCatMissingField,
				Field:    "columns.id",
				Err:      errors.New("column without id"),
			})
			continue
		}
		if columns[c.ID] {
			errs = append(errs, ValidationError{
				Category: ValCatDuplicateID,
				ID:       c.ID,
				Field:    "columns.id",
				Err:      fmt.Errorf("duplicate column id %q", c.ID),
			})
		}
		columns[c.ID] = true
		positions[c.Position] = true
		if c.WIPLimit < 0 {
			errs = append(errs, ValidationError{
				Category: ValCatInvalidValue,
				ID:       c.ID,
				Field:    "wipLimit",
				Err:      fmt.Errorf("wipLimit must be >= 0, got %d", c.WIPLimit),
			})
		}
	}

	for p := 1; p <= len(b.Columns); p++ {
		if !positions[p] {
			errs = append(errs, ValidationError{
				Category: ValCatPositions,
				Field:    "columns.position",
				Err:      fmt.Errorf("column positions are not contiguous 1..%d (missing %d)", len(b.Columns), p),
			})
			break
		}
	}

	tasks := make(map[string]string, len(b.Items)) // id -> column id
	for _, t := range b.Items {
		if t.ID == "" {
			errs = append(errs, ValidationError{
				Category: ValCatMissingField,
				Field:    "items.id",
				Err:      errors.New("task without id"),
			})
			continue
		}
		if _, dup := tasks[t.ID]; dup {
			errs = append(errs, ValidationError{
				Category: ValCatDuplicateID,
				ID:       t.ID,
				Field:    "items.id",
				Err:      fmt.Errorf("duplicate task id %q", t.ID),
			})
		}
		tasks[t.ID] = t.ColumnID
		errs = append(errs, validateTask(t, columns)...)
	}

	for _, c := range b.Columns {
		if c.TaskIDs == nil {
			continue
		}
		listed := make(map[string]bool, len(c.TaskIDs))
		for _, id := range c.TaskIDs {
			if listed[id] {
				errs = append(errs, ValidationError{
					Category: ValCatTaskIDs,
					ID:       c.ID,
					Field:    "taskIds",
					Err:      fmt.Errorf("task %q listed twice", id),
				})
			}
			listed[id] = true
			owner, ok := tasks[id]
			switch {
			case !ok:
				errs = append(errs, ValidationError{
					Category: ValCatTaskIDs,
					ID:       c.ID,
					Field:    "taskIds",
					Err:      fmt.Errorf("lists unknown task %q", id),
				})
			case owner != c.ID:
				errs = append(errs, ValidationError{
					Category: ValCatTaskIDs,
					ID:       c.ID,
					Field:    "taskIds",
					Err:      fmt.Errorf("lists task %q which belongs to column %q", id, owner),
				})
			}
		}
		for id, owner := range tasks {
			if owner == c.ID && !listed[id] {
				errs = append(errs, ValidationError{
					Category: ValCatTaskIDs,
					ID:       c.ID,
					Field:    "taskIds",
					Err:      fmt.Errorf("omits member task %q", id),
				})
			}
		}
	}

	return errs
}

// ValidateTask checks the fields of a single task record in isolation. The
// column reference is not checked here since a record alone cannot know the
// board's columns.
func ValidateTask(t Task) []ValidationError {
	return validateTask(t, nil)
}

func validateTask(t Task, columns map[string]bool) []ValidationError {
	var errs []ValidationError
	if strings.TrimSpace(t.Title) == "" {
		errs = append(errs, ValidationError{
			Category: ValCatMissingField,
			ID:       t.ID,
			Field:    "title",
			Err:      errors.New("title is required"),
		})
	}
	if t.ColumnID == "" {
		errs = append(errs, ValidationError{
			Category: ValCatMissingField,
			ID:       t.ID,
			Field:    "columnId",
			Err:      errors.New("columnId is required"),
		})
	} else if columns != nil && !columns[t.ColumnID] {
		errs = append(errs, ValidationError{
			Category: ValCatUnknownColumn,
			ID:       t.ID,
			Field:    "columnId",
			Err:      fmt.Errorf("references unknown column %q", t.ColumnID),
		})
	}
	if t.Status != "" && !ValidStatuses[t.Status] {
		errs = append(errs, ValidationError{
			Category: ValCatInvalidValue,
			ID:       t.ID,
			Field:    "status",
			Err:      fmt.Errorf("unknown status %q", t.Status),
		})
	}
	return errs
}

// JoinValidation folds validation errors into a single error, or nil.
func JoinValidation(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	wrapped := make([]error, len(errs))
	for i := range errs {
		wrapped[i] = &errs[i]
	}
	return errors.Join(wrapped...)
}
