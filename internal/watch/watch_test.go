package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemawatch/schemawatch/internal/testutil"
)

func fsnotifyWrite(path string) fsnotify.Event {
	return fsnotify.Event{Name: path, Op: fsnotify.Write}
}

const usersOnly = `{
  "schemas": [{
    "name": "public",
    "tables": [{"name": "users", "columns": [{"name": "id", "dataType": "int", "nullable": false}]}]
  }]
}`

const usersAndOrders = `{
  "schemas": [{
    "name": "public",
    "tables": [
      {"name": "users", "columns": [{"name": "id", "dataType": "int", "nullable": false}]},
      {"name": "orders", "columns": [{"name": "id", "dataType": "int", "nullable": false}]}
    ]
  }]
}`

// eventCollector gathers drift events across goroutines.
type eventCollector struct {
	mu     sync.Mutex
	events []Event
}

func (c *eventCollector) add(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *eventCollector) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNew_RequiresDirectory(t *testing.T) {
	_, err := New(Config{Dir: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "snap.json")
	writeFile(t, file, usersOnly)
	_, err = New(Config{Dir: file})
	require.ErrorContains(t, err, "not a directory")
}

func TestProcessFile_DiffsAgainstPrimedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analytics.json")
	writeFile(t, path, usersOnly)

	collector := &eventCollector{}
	w, err := New(Config{
		Dir:     dir,
		Logger:  testutil.NewTestLogger(t),
		OnDrift: collector.add,
	})
	require.NoError(t, err)
	defer w.fsw.Close()

	writeFile(t, path, usersAndOrders)
	w.processFile(path)

	events := collector.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, path, events[0].Path)
	require.NotNil(t, events[0].Previous)
	require.Len(t, events[0].Diff.Tables, 1)
	assert.Equal(t, "orders", events[0].Diff.Tables[0].TableName)

	// Rewriting identical content produces no further event.
	w.processFile(path)
	assert.Len(t, collector.snapshot(), 1)
}

func TestProcessFile_UnreadableFileKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analytics.json")
	writeFile(t, path, usersOnly)

	collector := &eventCollector{}
	w, err := New(Config{Dir: dir, Logger: testutil.NewTestLogger(t), OnDrift: collector.add})
	require.NoError(t, err)
	defer w.fsw.Close()

	writeFile(t, path, "{broken")
	w.processFile(path)
	assert.Empty(t, collector.snapshot(), "broken file must not report drift")

	// The valid content that follows still diffs against the primed
	// snapshot, not against the broken intermediate state.
	writeFile(t, path, usersAndOrders)
	w.processFile(path)
	events := collector.snapshot()
	require.Len(t, events, 1)
	assert.Len(t, events[0].Diff.Tables, 1)
}

func TestProcessFile_NonSnapshotFilesIgnoredByEvents(t *testing.T) {
	dir := t.TempDir()
	collector := &eventCollector{}
	w, err := New(Config{Dir: dir, Logger: testutil.NewTestLogger(t), OnDrift: collector.add})
	require.NoError(t, err)
	defer w.fsw.Close()

	w.handleEvent(fsnotifyWrite(filepath.Join(dir, "notes.txt")))
	time.Sleep(2 * defaultDebounce)
	assert.Empty(t, collector.snapshot())
}

func TestRun_ReportsDriftOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analytics.json")
	writeFile(t, path, usersOnly)

	collector := &eventCollector{}
	w, err := New(Config{
		Dir:      dir,
		Debounce: 10 * time.Millisecond,
		Logger:   testutil.NewTestLogger(t),
		OnDrift:  collector.add,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	writeFile(t, path, usersAndOrders)

	require.Eventually(t, func() bool {
		return len(collector.snapshot()) == 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	events := collector.snapshot()
	assert.Equal(t, path, events[0].Path)
	assert.True(t, events[0].Diff.HasChanges())
}

func TestRun_PicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()

	collector := &eventCollector{}
	w, err := New(Config{
		Dir:      dir,
		Debounce: 10 * time.Millisecond,
		Logger:   testutil.NewTestLogger(t),
		OnDrift:  collector.add,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	path := filepath.Join(dir, "fresh.json")
	writeFile(t, path, usersOnly)

	require.Eventually(t, func() bool {
		events := collector.snapshot()
		return len(events) == 1 && events[0].Previous == nil
	}, 5*time.Second, 20*time.Millisecond)
}
