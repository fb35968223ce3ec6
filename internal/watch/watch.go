// Package watch follows a directory of snapshot files and reports
// schema drift whenever one of them changes on disk.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/schemawatch/schemawatch/internal/snapfile"
	"github.com/schemawatch/schemawatch/pkg/diff"
	"github.com/schemawatch/schemawatch/pkg/schema"
)

// defaultDebounce coalesces the burst of write events most editors and
// tools emit when saving a file.
const defaultDebounce = 100 * time.Millisecond

// Config holds settings for a Watcher.
type Config struct {
	// Dir is the directory to watch, including subdirectories.
	Dir string

	// Debounce is how long to wait after the last event on a file
	// before re-reading it. Zero means defaultDebounce.
	Debounce time.Duration

	Logger *slog.Logger

	// OnDrift is called for every changed snapshot file whose diff is
	// non-empty. Optional.
	OnDrift func(Event)
}

// Event describes one observed change of a snapshot file.
type Event struct {
	Path     string
	Previous *schema.Snapshot
	Next     *schema.Snapshot
	Diff     *diff.Diff
}

// Watcher follows snapshot files in a directory tree and diffs each
// file against the content it last held.
type Watcher struct {
	dir      string
	debounce time.Duration
	logger   *slog.Logger
	onDrift  func(Event)

	fsw *fsnotify.Watcher

	mu       sync.Mutex
	previous map[string]*schema.Snapshot
	pending  map[string]*time.Timer
}

// New creates a watcher over cfg.Dir. The directory must exist.
func New(cfg Config) (*Watcher, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch target %s is not a directory", cfg.Dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	w := &Watcher{
		dir:      cfg.Dir,
		debounce: debounce,
		logger:   logger,
		onDrift:  cfg.OnDrift,
		fsw:      fsw,
		previous: make(map[string]*schema.Snapshot),
		pending:  make(map[string]*time.Timer),
	}

	if err := w.prime(); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// prime registers the directory tree with fsnotify and loads the
// current content of every snapshot file, so the first change after
// startup diffs against what was already on disk.
func (w *Watcher) prime() error {
	return filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		if !snapfile.IsSnapshotFile(path) {
			return nil
		}
		snap, err := snapfile.Load(path)
		if err != nil {
			w.logger.Warn("skipping unreadable snapshot file", "path", path, "error", err)
			return nil
		}
		w.previous[path] = snap
		return nil
	})
}

// Run blocks processing filesystem events until the context is
// cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	w.logger.Info("watching for snapshot changes", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		// New subdirectories need their own watch registration.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if !snapfile.IsSnapshotFile(event.Name) {
		return
	}
	w.schedule(event.Name)
}

// schedule (re)arms the per-file debounce timer.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.processFile(path)
	})
}

// processFile reloads one snapshot file and diffs it against the
// content it last held. Unreadable files are logged and left with
// their previous content intact.
func (w *Watcher) processFile(path string) {
	next, err := snapfile.Load(path)
	if err != nil {
		w.logger.Warn("snapshot file changed but could not be read", "path", path, "error", err)
		return
	}

	w.mu.Lock()
	previous := w.previous[path]
	w.previous[path] = next
	w.mu.Unlock()

	d := diff.Snapshots(previous, next)
	if !d.HasChanges() {
		w.logger.Debug("snapshot file changed without schema drift", "path", path)
		return
	}

	summary := d.Summarize()
	w.logger.Info("schema drift detected",
		"path", path,
		"tables", summary.Tables,
		"columns", summary.Columns,
		"indexes", summary.Indexes,
		"foreignKeys", summary.ForeignKeys,
	)

	if w.onDrift != nil {
		w.onDrift(Event{Path: path, Previous: previous, Next: next, Diff: d})
	}
}
