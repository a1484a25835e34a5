// Package reconcile brings a board manifest back in line with the per-task
// records that are authoritative for task content. It is a pure function of
// its inputs; callers decide whether to persist the result based on the
// returned Report.
package reconcile

import (
	"fmt"
	"sort"

	"github.com/papapumpkin/lanes/internal/board"
	"github.com/papapumpkin/lanes/internal/ordering"
)

// Report lists every correction a reconciliation pass applied. Each slice
// holds task ids in the order they were encountered.
type Report struct {
	// Stale ids were listed in the manifest but had no record.
	Stale []string `json:"stale,omitempty"`
	// Adopted ids had a record but were missing from the manifest.
	Adopted []string `json:"adopted,omitempty"`
	// Refreshed ids had manifest content differing from their record.
	Refreshed []string `json:"refreshed,omitempty"`
	// Relocated ids were listed under a column other than their columnId,
	// or were missing from their own column's taskIds.
	Relocated []string `json:"relocated,omitempty"`
	// Dropped ids were duplicate items or taskIds entries naming no task.
	Dropped []string `json:"dropped,omitempty"`
	// PositionsRenumbered is set when column positions or column order
	// changed.
	PositionsRenumbered bool `json:"positionsRenumbered,omitempty"`
}

// Changed reports whether the pass altered the manifest.
func (r Report) Changed() bool {
	return len(r.Stale) > 0 || len(r.Adopted) > 0 || len(r.Refreshed) > 0 ||
		len(r.Relocated) > 0 || len(r.Dropped) > 0 || r.PositionsRenumbered
}

// Reconcile returns a copy of manifest made consistent with records, and a
// report of what was corrected. The manifest argument is not modified.
//
// Data drift between the two stores is repaired: stale items are pruned,
// orphan records are adopted at the end of their column, and record content
// replaces manifest content. Logical damage is not: a task whose columnId
// names no column, or a board that still fails validation after repair,
// yields board.ErrCorruptManifest.
func Reconcile(manifest *board.Board, records map[string]board.Task) (*board.Board, Report, error) {
	const op = "reconcile"
	var rep Report
	out := manifest.Clone()

	items, adopted := reconcileItems(out.Items, records, &rep)
	out.Items = items

	columns := make(map[string]bool, len(out.Columns))
	for _, c := range out.Columns {
		columns[c.ID] = true
	}
	for _, t := range out.Items {
		if !columns[t.ColumnID] {
			return nil, rep, board.Corrupt(op, t.ID, fmt.Errorf("task references unknown column %q", t.ColumnID))
		}
	}

	rep.PositionsRenumbered = ordering.Renumber(out)
	purifyTaskIDs(out, adopted, &rep)

	if err := board.JoinValidation(board.Validate(out)); err != nil {
		return nil, rep, board.Corrupt(op, "", err)
	}
	return out, rep, nil
}

// reconcileItems rebuilds the item list so that it holds exactly one entry
// per record, in manifest order with adopted records appended sorted by id.
// It returns the adopted ids as a set.
func reconcileItems(items []board.Task, records map[string]board.Task, rep *Report) ([]board.Task, map[string]bool) {
	kept := make([]board.Task, 0, len(records))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if seen[item.ID] {
			rep.Dropped = append(rep.Dropped, item.ID)
			continue
		}
		seen[item.ID] = true

		rec, ok := records[item.ID]
		if !ok {
			rep.Stale = append(rep.Stale, item.ID)
			continue
		}
		if !item.Equal(rec) {
			rep.Refreshed = append(rep.Refreshed, item.ID)
		}
		kept = append(kept, rec.Clone())
	}

	var orphans []string
	for id := range records {
		if !seen[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)

	adopted := make(map[string]bool, len(orphans))
	for _, id := range orphans {
		kept = append(kept, records[id].Clone())
		adopted[id] = true
	}
	rep.Adopted = orphans
	return kept, adopted
}

// purifyTaskIDs makes every explicit taskIds list hold exactly its member
// tasks. Entries for missing tasks or tasks of another column are removed;
// members missing from the list are appended in item order. Columns that
// receive an adopted task get their order materialized so the adoption is
// recorded at the end of an explicit list.
func purifyTaskIDs(b *board.Board, adopted map[string]bool, rep *Report) {
	owner := make(map[string]string, len(b.Items))
	for _, t := range b.Items {
		owner[t.ID] = t.ColumnID
	}
	stale := make(map[string]bool, len(rep.Stale))
	for _, id := range rep.Stale {
		stale[id] = true
	}
	relocated := make(map[string]bool)

	for i := range b.Columns {
		col := &b.Columns[i]
		if col.TaskIDs == nil {
			continue
		}
		listed := make(map[string]bool, len(col.TaskIDs))
		pure := make([]string, 0, len(col.TaskIDs))
		for _, id := range col.TaskIDs {
			colID, exists := owner[id]
			switch {
			case !exists:
				if !stale[id] {
					rep.Dropped = append(rep.Dropped, id)
				}
				continue
			case listed[id]:
				rep.Dropped = append(rep.Dropped, id)
				continue
			case colID != col.ID:
				relocated[id] = true
				continue
			}
			listed[id] = true
			pure = append(pure, id)
		}
		for _, t := range b.Items {
			if t.ColumnID == col.ID && !listed[t.ID] {
				if !adopted[t.ID] {
					relocated[t.ID] = true
				}
				listed[t.ID] = true
				pure = append(pure, t.ID)
			}
		}
		col.TaskIDs = pure
	}

	// Nil-ordered columns that adopt a task pin their order so the orphan is
	// explicitly placed at the end.
	for i := range b.Columns {
		col := &b.Columns[i]
		if col.TaskIDs != nil {
			continue
		}
		for id := range adopted {
			if owner[id] == col.ID {
				b.Materialize(col.ID)
				break
			}
		}
	}

	for _, t := range b.Items {
		if relocated[t.ID] {
			rep.Relocated = append(rep.Relocated, t.ID)
		}
	}
}
