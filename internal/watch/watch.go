// Package watch reports edits to a board directory made by other processes
// or editors. Consumers react to a Change by re-reading the board, which
// reconciles whatever the edit left behind.
package watch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/papapumpkin/lanes/internal/store"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 100 * time.Millisecond

// ChangeKind describes what changed on disk.
type ChangeKind int

const (
	ChangeManifest      ChangeKind = iota // board.json written
	ChangeRecord                          // task record created or edited
	ChangeRecordRemoved                   // task record deleted
)

// String returns a short label for the kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeManifest:
		return "manifest"
	case ChangeRecord:
		return "record"
	case ChangeRecordRemoved:
		return "record-removed"
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

// Change is one debounced file change.
type Change struct {
	Kind   ChangeKind
	TaskID string // empty for manifest changes
	Path   string
}

// Watcher monitors a board directory and its tasks directory.
type Watcher struct {
	Dir     string
	Changes <-chan Change // read-only external channel

	changes  chan Change
	quit     chan struct{}
	done     chan struct{}
	debounce time.Duration
	watcher  *fsnotify.Watcher
	stopOnce sync.Once
}

// New creates a watcher for the board directory dir. A debounce of zero
// uses DefaultDebounce.
func New(dir string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	ch := make(chan Change, 16)
	return &Watcher{
		Dir:      dir,
		Changes:  ch,
		changes:  ch,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		debounce: debounce,
		watcher:  fw,
	}, nil
}

// Start begins watching. The board directory must exist; the tasks
// directory is created when missing so record edits are seen from the
// start.
func (w *Watcher) Start() error {
	if err := w.watch(); err != nil {
		w.watcher.Close()
		close(w.done)
		return err
	}
	go w.loop()
	return nil
}

func (w *Watcher) watch() error {
	if _, err := os.Stat(w.Dir); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	tasks := filepath.Join(w.Dir, store.TasksDir)
	if err := os.MkdirAll(tasks, 0o755); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	for _, dir := range []string{w.Dir, tasks} {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return nil
}

// Stop closes the watcher and the Changes channel. Pending changes that were
// not yet delivered are dropped. Stop is safe after a failed Start and
// after a previous Stop.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.quit)
		w.watcher.Close()
		<-w.done
		close(w.changes)
	})
}

func (w *Watcher) loop() {
	defer close(w.done)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.quit:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending[event.Name] = time.Now()
			}

		case <-ticker.C:
			now := time.Now()
			for file, t := range pending {
				if now.Sub(t) < w.debounce {
					continue
				}
				delete(pending, file)
				if !w.emit(w.classify(file)) {
					return
				}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal.
		}
	}
}

// relevant reports whether name is the manifest or a task record. In-flight
// temp files and everything else in the directory are ignored.
func (w *Watcher) relevant(name string) bool {
	base := filepath.Base(name)
	if store.IsTempFile(base) || strings.HasPrefix(base, ".") {
		return false
	}
	dir := filepath.Dir(name)
	switch {
	case dir == filepath.Clean(w.Dir):
		return base == store.ManifestFile
	case dir == filepath.Join(w.Dir, store.TasksDir):
		return strings.HasSuffix(base, store.RecordExt)
	}
	return false
}

func (w *Watcher) classify(file string) Change {
	if filepath.Base(file) == store.ManifestFile {
		return Change{Kind: ChangeManifest, Path: file}
	}
	id := strings.TrimSuffix(filepath.Base(file), store.RecordExt)
	if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
		return Change{Kind: ChangeRecordRemoved, TaskID: id, Path: file}
	}
	return Change{Kind: ChangeRecord, TaskID: id, Path: file}
}

// emit delivers c unless the watcher is stopping.
func (w *Watcher) emit(c Change) bool {
	select {
	case w.changes <- c:
		return true
	case <-w.quit:
		return false
	}
}
