package catalog

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var watchedExtensions = []string{".mp4", ".mkv"}

func setupTestWatcher(t *testing.T, debounce time.Duration) (*Watcher, string, *atomic.Int32) {
	t.Helper()

	root := t.TempDir()
	var fires atomic.Int32

	watcher, err := NewWatcher(root, debounce, watchedExtensions, func() {
		fires.Add(1)
	})
	require.NoError(t, err)

	return watcher, root, &fires
}

// waitForFires polls until the callback has fired at least want times
func waitForFires(t *testing.T, fires *atomic.Int32, want int32, within time.Duration) {
	t.Helper()

	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if fires.Load() >= want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("callback fired %d times, want at least %d", fires.Load(), want)
}

func TestNewWatcher_Validation(t *testing.T) {
	noop := func() {}

	_, err := NewWatcher("", time.Second, watchedExtensions, noop)
	assert.Error(t, err)

	_, err = NewWatcher(t.TempDir(), 0, watchedExtensions, noop)
	assert.Error(t, err)

	_, err = NewWatcher(t.TempDir(), time.Second, watchedExtensions, nil)
	assert.Error(t, err)
}

func TestWatcher_FiresOnMediaFileCreate(t *testing.T) {
	watcher, root, fires := setupTestWatcher(t, 100*time.Millisecond)
	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "new.mp4"), []byte("media"), 0644))

	waitForFires(t, fires, 1, 3*time.Second)
}

func TestWatcher_CoalescesBurstIntoOneRescan(t *testing.T) {
	watcher, root, fires := setupTestWatcher(t, 200*time.Millisecond)
	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	// A burst of files, like a season being copied in
	for _, name := range []string{"e1.mp4", "e2.mp4", "e3.mp4", "e4.mp4"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("media"), 0644))
	}

	waitForFires(t, fires, 1, 3*time.Second)

	// Give the watcher time to (incorrectly) fire again
	time.Sleep(800 * time.Millisecond)
	assert.Equal(t, int32(1), fires.Load(), "burst should coalesce into a single rescan")
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	watcher, root, fires := setupTestWatcher(t, 100*time.Millisecond)
	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("text"), 0644))

	time.Sleep(800 * time.Millisecond)
	assert.Equal(t, int32(0), fires.Load(), "non-media files should not trigger rescans")
}

func TestWatcher_DetectsFilesInNewDirectories(t *testing.T) {
	watcher, root, fires := setupTestWatcher(t, 100*time.Millisecond)
	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	// New channel folder appears after the watcher started
	showsDir := filepath.Join(root, "Comedy", showsDirName)
	require.NoError(t, os.MkdirAll(showsDir, 0755))

	waitForFires(t, fires, 1, 3*time.Second)

	// And files inside it are seen too
	require.NoError(t, os.WriteFile(filepath.Join(showsDir, "cheers.mp4"), []byte("media"), 0644))
	waitForFires(t, fires, 2, 3*time.Second)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	watcher, _, _ := setupTestWatcher(t, 100*time.Millisecond)
	require.NoError(t, watcher.Start())

	assert.NoError(t, watcher.Stop())
	assert.NoError(t, watcher.Stop())
}

func TestWatcher_StartAfterStopFails(t *testing.T) {
	watcher, _, _ := setupTestWatcher(t, 100*time.Millisecond)
	require.NoError(t, watcher.Start())
	require.NoError(t, watcher.Stop())

	assert.Error(t, watcher.Start())
}
