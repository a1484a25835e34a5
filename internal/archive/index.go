// Package archive maintains a searchable SQLite index of archived tasks. The
// archive directory of per-task records remains the source of truth; the
// index can always be rebuilt from it.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/papapumpkin/lanes/internal/board"
)

// FileName is the index database file inside the board directory.
const FileName = "archive.db"

// timeLayout is fixed-width so archived_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// schema contains the DDL executed on every open. IF NOT EXISTS keeps it
// idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS archived_tasks (
    task_id     TEXT PRIMARY KEY,
    title       TEXT NOT NULL,
    column_id   TEXT NOT NULL,
    status      TEXT NOT NULL DEFAULT '',
    priority    TEXT NOT NULL DEFAULT '',
    owner       TEXT NOT NULL DEFAULT '',
    tags        TEXT NOT NULL DEFAULT '',
    archived_at TEXT NOT NULL,
    record      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS archived_tasks_archived_at ON archived_tasks (archived_at DESC);
`

// Entry is one archived task as held by the index.
type Entry struct {
	Task       board.Task
	ArchivedAt time.Time
}

// Query narrows a listing. Zero values match everything.
type Query struct {
	// Text is matched case-insensitively against title and summary.
	Text string
	// Tag must be carried by the task (case-insensitive).
	Tag string
	// Limit caps the number of entries; zero means no cap.
	Limit int
}

// Matches applies the query's text and tag filters to t the way List does.
func (q Query) Matches(t board.Task) bool {
	if tag := strings.TrimPrefix(strings.TrimSpace(q.Tag), "#"); tag != "" && !t.HasTag(tag) {
		return false
	}
	if text := strings.ToLower(strings.TrimSpace(q.Text)); text != "" {
		return strings.Contains(strings.ToLower(t.Title), text) || strings.Contains(strings.ToLower(t.Summary), text)
	}
	return true
}

// SortEntries orders entries the way List returns them.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].ArchivedAt.Equal(entries[j].ArchivedAt) {
			return entries[i].ArchivedAt.After(entries[j].ArchivedAt)
		}
		return entries[i].Task.ID < entries[j].Task.ID
	})
}

// Index is the SQLite-backed archive index.
type Index struct {
	db *sql.DB
}

// Open opens (or creates) the index database at dbPath in WAL mode and
// creates the schema if needed.
func Open(ctx context.Context, dbPath string) (*Index, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("archive: open database: %w", err)
	}

	// SQLite supports a single writer; one connection avoids SQLITE_BUSY
	// between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: create schema: %w", err)
	}
	return &Index{db: db}, nil
}

const upsert = `
	INSERT INTO archived_tasks (task_id, title, column_id, status, priority, owner, tags, archived_at, record)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(task_id) DO UPDATE SET
		title       = excluded.title,
		column_id   = excluded.column_id,
		status      = excluded.status,
		priority    = excluded.priority,
		owner       = excluded.owner,
		tags        = excluded.tags,
		archived_at = excluded.archived_at,
		record      = excluded.record`

// Record upserts an archived task.
func (x *Index) Record(ctx context.Context, t board.Task, archivedAt time.Time) error {
	args, err := rowArgs(t, archivedAt)
	if err != nil {
		return err
	}
	if _, err := x.db.ExecContext(ctx, upsert, args...); err != nil {
		return fmt.Errorf("archive: record %q: %w", t.ID, err)
	}
	return nil
}

func rowArgs(t board.Task, archivedAt time.Time) ([]any, error) {
	rec, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("archive: encode %q: %w", t.ID, err)
	}
	return []any{
		t.ID, t.Title, t.ColumnID, string(t.Status), string(t.Priority), t.Owner,
		encodeTags(t.Tags), archivedAt.UTC().Format(timeLayout), string(rec),
	}, nil
}

// encodeTags stores tags as ",a,b," so a single LIKE finds an exact tag.
func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	lowered := make([]string, len(tags))
	for i, tag := range tags {
		lowered[i] = strings.ToLower(tag)
	}
	return "," + strings.Join(lowered, ",") + ","
}

// Remove deletes a task from the index. Removing an absent id is a no-op.
func (x *Index) Remove(ctx context.Context, id string) error {
	if _, err := x.db.ExecContext(ctx, "DELETE FROM archived_tasks WHERE task_id = ?", id); err != nil {
		return fmt.Errorf("archive: remove %q: %w", id, err)
	}
	return nil
}

// Get returns the entry for id, or an error matching board.ErrNotFound.
func (x *Index) Get(ctx context.Context, id string) (Entry, error) {
	const q = `SELECT record, archived_at FROM archived_tasks WHERE task_id = ?`
	e, err := scanEntry(x.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, board.NotFound("archive get", id, "not in archive index")
	}
	if err != nil {
		return Entry{}, fmt.Errorf("archive: get %q: %w", id, err)
	}
	return e, nil
}

// List returns matching entries, most recently archived first, ties broken
// by id.
func (x *Index) List(ctx context.Context, q Query) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if text := strings.TrimSpace(q.Text); text != "" {
		where = append(where, "(lower(title) LIKE ? OR lower(json_extract(record, '$.summary')) LIKE ?)")
		pattern := "%" + strings.ToLower(text) + "%"
		args = append(args, pattern, pattern)
	}
	if tag := strings.TrimPrefix(strings.TrimSpace(q.Tag), "#"); tag != "" {
		where = append(where, "tags LIKE ?")
		args = append(args, "%,"+strings.ToLower(tag)+",%")
	}

	query := "SELECT record, archived_at FROM archived_tasks"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY archived_at DESC, task_id"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := x.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("archive: scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: iterate entries: %w", err)
	}
	return out, nil
}

// Count returns the number of indexed tasks.
func (x *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := x.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM archived_tasks").Scan(&n); err != nil {
		return 0, fmt.Errorf("archive: count: %w", err)
	}
	return n, nil
}

// Rebuild replaces the index contents with entries in one transaction.
func (x *Index) Rebuild(ctx context.Context, entries []Entry) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: begin rebuild: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, "DELETE FROM archived_tasks"); err != nil {
		return fmt.Errorf("archive: clear index: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		return fmt.Errorf("archive: prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		args, err := rowArgs(e.Task, e.ArchivedAt)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("archive: index %q: %w", e.Task.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive: commit rebuild: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var rec, ts string
	if err := row.Scan(&rec, &ts); err != nil {
		return Entry{}, err
	}
	var e Entry
	if err := json.Unmarshal([]byte(rec), &e.Task); err != nil {
		return Entry{}, fmt.Errorf("decode record: %w", err)
	}
	at, err := parseTimestamp(ts)
	if err != nil {
		return Entry{}, err
	}
	e.ArchivedAt = at
	return e, nil
}

// timestampFormats lists the layouts accepted for archived_at. Rows written
// by this package use RFC 3339 with nanoseconds; the others cover rows
// edited by hand with SQLite's own datetime().
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.DateTime,
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}
