// Package store reads and writes the on-disk representation of a board: the
// board.json manifest and the directory of per-task records. It knows
// nothing about reconciliation; it only moves whole entities between disk
// and memory.
//
// Every write replaces a whole file by writing a sibling temp file and
// renaming it over the target, so a reader observes either the previous
// version or the new one, never a torn write.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/papapumpkin/lanes/internal/board"
)

// Layout of a board directory.
const (
	// DirName is the board directory created under a project root.
	DirName = ".lanes"
	// ManifestFile is the manifest file name inside the board directory.
	ManifestFile = "board.json"
	// TasksDir holds one <id>.json record per active task.
	TasksDir = "tasks"
	// ArchiveDir holds one <id>.json record per archived task.
	ArchiveDir = "archive"
	// RecordExt is the extension of every record file.
	RecordExt = ".json"
	// tmpSuffix marks in-flight atomic writes.
	tmpSuffix = ".tmp"
)

// ArchivedRecord is a task record moved out of the active board, stamped
// with the time it was archived.
type ArchivedRecord struct {
	board.Task
	ArchivedAt time.Time `json:"archivedAt"`
}

// Store reads and writes one board directory. It holds no cached state;
// every call goes to the filesystem.
type Store struct {
	fs  afero.Fs
	dir string
}

// New returns a Store for the board directory dir on the given filesystem.
func New(fsys afero.Fs, dir string) *Store {
	return &Store{fs: fsys, dir: dir}
}

// NewOS returns a Store on the operating system filesystem for the board
// directory under projectRoot.
func NewOS(projectRoot string) *Store {
	return New(afero.NewOsFs(), filepath.Join(projectRoot, DirName))
}

// Dir returns the board directory.
func (s *Store) Dir() string { return s.dir }

// ManifestPath returns the path of board.json.
func (s *Store) ManifestPath() string { return filepath.Join(s.dir, ManifestFile) }

// TasksPath returns the directory of active task records.
func (s *Store) TasksPath() string { return filepath.Join(s.dir, TasksDir) }

// ArchivePath returns the directory of archived task records.
func (s *Store) ArchivePath() string { return filepath.Join(s.dir, ArchiveDir) }

// Init creates the board directory layout. It is idempotent.
func (s *Store) Init() error {
	for _, dir := range []string{s.dir, s.TasksPath(), s.ArchivePath()} {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return board.IOFailure("init board directory", "", err)
		}
	}
	return nil
}

// Exists reports whether a manifest has been written.
func (s *Store) Exists() bool {
	ok, err := afero.Exists(s.fs, s.ManifestPath())
	return err == nil && ok
}

// LoadManifest reads board.json. A missing manifest is an empty board, not
// an error. A manifest that fails to decode, or whose columns or items lack
// ids or repeat column ids, is reported as board.ErrCorruptManifest.
func (s *Store) LoadManifest() (*board.Board, error) {
	const op = "load manifest"
	data, err := afero.ReadFile(s.fs, s.ManifestPath())
	if errors.Is(err, fs.ErrNotExist) {
		return board.New(), nil
	}
	if err != nil {
		return nil, board.IOFailure(op, "", err)
	}

	var b board.Board
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, board.Corrupt(op, "", fmt.Errorf("parsing %s: %w", ManifestFile, err))
	}
	if err := checkShape(&b); err != nil {
		return nil, board.Corrupt(op, "", err)
	}
	if b.Columns == nil {
		b.Columns = []board.Column{}
	}
	if b.Items == nil {
		b.Items = []board.Task{}
	}
	return &b, nil
}

// checkShape rejects manifests whose entities cannot be addressed at all.
// Drift between items and columns is left for reconciliation.
func checkShape(b *board.Board) error {
	seen := make(map[string]bool, len(b.Columns))
	for i, c := range b.Columns {
		if c.ID == "" {
			return fmt.Errorf("column #%d has no id", i+1)
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate column id %q", c.ID)
		}
		seen[c.ID] = true
	}
	for i, t := range b.Items {
		if t.ID == "" {
			return fmt.Errorf("item #%d has no id", i+1)
		}
	}
	return nil
}

// SaveManifest atomically replaces board.json.
func (s *Store) SaveManifest(b *board.Board) error {
	if err := s.writeJSON(s.ManifestPath(), b); err != nil {
		return board.IOFailure("save manifest", "", err)
	}
	return nil
}

// ListTaskRecordIDs returns the ids of every active task record. A missing
// tasks directory yields an empty set.
func (s *Store) ListTaskRecordIDs() (map[string]struct{}, error) {
	ids, err := s.listIDs(s.TasksPath())
	if err != nil {
		return nil, board.IOFailure("list task records", "", err)
	}
	return ids, nil
}

// ListArchivedIDs returns the ids of every archived record, sorted.
func (s *Store) ListArchivedIDs() ([]string, error) {
	ids, err := s.listIDs(s.ArchivePath())
	if err != nil {
		return nil, board.IOFailure("list archived records", "", err)
	}
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) listIDs(dir string) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	entries, err := afero.ReadDir(s.fs, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return ids, nil
	}
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := strings.CutSuffix(e.Name(), RecordExt)
		if !ok || !board.ValidTaskID(id) {
			continue
		}
		ids[id] = struct{}{}
	}
	return ids, nil
}

// LoadTaskRecord reads one active task record. A missing record is
// board.ErrNotFound; an unreadable or inconsistent one (wrong id, missing
// title, unknown status) is board.ErrCorruptManifest.
func (s *Store) LoadTaskRecord(id string) (board.Task, error) {
	const op = "load task record"
	if !board.ValidTaskID(id) {
		return board.Task{}, board.Invalid(op, id, "invalid task id")
	}
	var t board.Task
	if err := s.readRecord(op, s.recordPath(id), id, &t); err != nil {
		return board.Task{}, err
	}
	if err := checkRecord(id, t); err != nil {
		return board.Task{}, board.Corrupt(op, id, err)
	}
	return t, nil
}

// LoadTaskRecords reads every active task record keyed by id.
func (s *Store) LoadTaskRecords() (map[string]board.Task, error) {
	ids, err := s.ListTaskRecordIDs()
	if err != nil {
		return nil, err
	}
	records := make(map[string]board.Task, len(ids))
	for id := range ids {
		t, err := s.LoadTaskRecord(id)
		if errors.Is(err, board.ErrNotFound) {
			// Removed between listing and reading; it is simply gone.
			continue
		}
		if err != nil {
			return nil, err
		}
		records[id] = t
	}
	return records, nil
}

// SaveTaskRecord atomically writes the record for t.
func (s *Store) SaveTaskRecord(t board.Task) error {
	const op = "save task record"
	if !board.ValidTaskID(t.ID) {
		return board.Invalid(op, t.ID, "invalid task id")
	}
	if err := s.writeJSON(s.recordPath(t.ID), t); err != nil {
		return board.IOFailure(op, t.ID, err)
	}
	return nil
}

// DeleteTaskRecord removes an active task record. Deleting a record that
// does not exist is not an error.
func (s *Store) DeleteTaskRecord(id string) error {
	const op = "delete task record"
	if !board.ValidTaskID(id) {
		return board.Invalid(op, id, "invalid task id")
	}
	if err := s.fs.Remove(s.recordPath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return board.IOFailure(op, id, err)
	}
	return nil
}

// ArchiveTaskRecord writes t to the archive directory and then removes the
// active record. The archive copy lands first so that a failure in between
// leaves the task recoverable from both places rather than neither.
func (s *Store) ArchiveTaskRecord(t board.Task, archivedAt time.Time) error {
	const op = "archive task record"
	if !board.ValidTaskID(t.ID) {
		return board.Invalid(op, t.ID, "invalid task id")
	}
	rec := ArchivedRecord{Task: t, ArchivedAt: archivedAt}
	if err := s.writeJSON(s.archivePath(t.ID), rec); err != nil {
		return board.IOFailure(op, t.ID, err)
	}
	return s.DeleteTaskRecord(t.ID)
}

// LoadArchivedRecord reads one archived record.
func (s *Store) LoadArchivedRecord(id string) (ArchivedRecord, error) {
	const op = "load archived record"
	if !board.ValidTaskID(id) {
		return ArchivedRecord{}, board.Invalid(op, id, "invalid task id")
	}
	var rec ArchivedRecord
	if err := s.readRecord(op, s.archivePath(id), id, &rec); err != nil {
		return ArchivedRecord{}, err
	}
	if err := checkRecord(id, rec.Task); err != nil {
		return ArchivedRecord{}, board.Corrupt(op, id, err)
	}
	return rec, nil
}

// RestoreArchivedRecord moves an archived record back into the active
// tasks directory and returns it. Restoring onto an existing active record
// is rejected.
func (s *Store) RestoreArchivedRecord(id string) (board.Task, error) {
	const op = "restore archived record"
	rec, err := s.LoadArchivedRecord(id)
	if err != nil {
		return board.Task{}, err
	}
	active, err := afero.Exists(s.fs, s.recordPath(id))
	if err != nil {
		return board.Task{}, board.IOFailure(op, id, err)
	}
	if active {
		return board.Task{}, board.Invalid(op, id, "an active record with this id already exists")
	}
	if err := s.SaveTaskRecord(rec.Task); err != nil {
		return board.Task{}, err
	}
	if err := s.fs.Remove(s.archivePath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return board.Task{}, board.IOFailure(op, id, err)
	}
	return rec.Task, nil
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.TasksPath(), id+RecordExt)
}

func (s *Store) archivePath(id string) string {
	return filepath.Join(s.ArchivePath(), id+RecordExt)
}

// readRecord decodes the JSON file at path into v, mapping a missing file to
// board.ErrNotFound and a decode failure to board.ErrCorruptManifest.
func (s *Store) readRecord(op, path, id string, v any) error {
	data, err := afero.ReadFile(s.fs, path)
	if errors.Is(err, fs.ErrNotExist) {
		return board.NotFound(op, id, "no record at %s", path)
	}
	if err != nil {
		return board.IOFailure(op, id, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return board.Corrupt(op, id, fmt.Errorf("parsing %s: %w", filepath.Base(path), err))
	}
	return nil
}

// checkRecord validates a decoded record against the file it came from.
func checkRecord(id string, t board.Task) error {
	if t.ID != id {
		return fmt.Errorf("record file for %q holds task id %q", id, t.ID)
	}
	return board.JoinValidation(board.ValidateTask(t))
}

// writeJSON marshals v and atomically replaces path with it (write temp +
// rename). The temp file is removed when the rename fails.
func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}

	tmp := path + tmpSuffix
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", filepath.Base(path), err)
	}
	return nil
}

// IsTempFile reports whether name is an in-flight atomic write.
func IsTempFile(name string) bool {
	return strings.HasSuffix(name, tmpSuffix)
}
