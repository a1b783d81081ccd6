package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rerun-tv/rerun/internal/logger"
)

const (
	// How often pending change batches are checked against the debounce window
	debounceTick = 500 * time.Millisecond

	// Full rescan cadence when fsnotify is unavailable
	fallbackRescanInterval = 5 * time.Minute
)

// Watcher monitors the library root for file changes and fires a callback
// after a quiet period, so one copied season triggers one rescan instead of
// hundreds. Falls back to periodic rescans when fsnotify cannot watch the
// filesystem.
type Watcher struct {
	root       string
	debounce   time.Duration
	extensions []string
	onChange   func()

	fsnotifyWatcher *fsnotify.Watcher
	stopChan        chan struct{}
	watchDone       chan struct{}

	mu        sync.Mutex
	pending   bool
	lastEvent time.Time
	stopped   bool
}

// NewWatcher creates a watcher over the library root. onChange is invoked
// from the watcher goroutine once per debounced change batch.
func NewWatcher(root string, debounce time.Duration, extensions []string, onChange func()) (*Watcher, error) {
	if root == "" {
		return nil, fmt.Errorf("library root cannot be empty")
	}
	if debounce <= 0 {
		return nil, fmt.Errorf("debounce window must be greater than 0")
	}
	if onChange == nil {
		return nil, fmt.Errorf("change callback cannot be nil")
	}

	return &Watcher{
		root:       root,
		debounce:   debounce,
		extensions: extensions,
		onChange:   onChange,
		stopChan:   make(chan struct{}),
		watchDone:  make(chan struct{}),
	}, nil
}

// Start begins watching the library tree
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return fmt.Errorf("watcher has been stopped")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Log.Warn().
			Err(err).
			Str("root", w.root).
			Msg("Failed to create fsnotify watcher, falling back to periodic rescans")
		w.fsnotifyWatcher = nil
	} else {
		w.fsnotifyWatcher = watcher
		if err := w.watchTree(); err != nil {
			logger.Log.Warn().
				Err(err).
				Str("root", w.root).
				Msg("Failed to watch library tree, falling back to periodic rescans")
			_ = watcher.Close()
			w.fsnotifyWatcher = nil
		}
	}

	go w.run()

	logger.Log.Info().
		Str("root", w.root).
		Bool("using_fsnotify", w.fsnotifyWatcher != nil).
		Dur("debounce", w.debounce).
		Msg("Library watcher started")

	return nil
}

// Stop gracefully stops the watcher
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	w.mu.Unlock()

	close(w.stopChan)

	if w.fsnotifyWatcher != nil {
		if err := w.fsnotifyWatcher.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("Error closing fsnotify watcher")
		}
	}

	<-w.watchDone

	logger.Log.Debug().
		Str("root", w.root).
		Msg("Library watcher stopped")

	return nil
}

// watchTree adds the root and every directory beneath it to the fsnotify
// watcher. fsnotify does not watch recursively, so new directories are
// added as create events arrive.
func (w *Watcher) watchTree() error {
	if err := w.fsnotifyWatcher.Add(w.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.root, err)
	}

	w.watchSubtree(w.root)
	return nil
}

// watchSubtree adds every directory below dir to the watch list
func (w *Watcher) watchSubtree(dir string) {
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			logger.Log.Warn().Err(err).Str("path", path).Msg("Error walking library tree")
			return nil
		}
		if !info.IsDir() || path == dir {
			return nil
		}
		if err := w.fsnotifyWatcher.Add(path); err != nil {
			logger.Log.Warn().Err(err).Str("path", path).Msg("Failed to watch directory")
		}
		return nil
	})
}

// run dispatches to event-driven watching or the periodic fallback
func (w *Watcher) run() {
	defer close(w.watchDone)

	if w.fsnotifyWatcher != nil {
		w.runWatching()
	} else {
		w.runFallback()
	}
}

// runWatching consumes fsnotify events and fires the callback once the
// debounce window has been quiet
func (w *Watcher) runWatching() {
	ticker := time.NewTicker(debounceTick)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case event, ok := <-w.fsnotifyWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsnotifyWatcher.Errors:
			if !ok {
				return
			}
			logger.Log.Warn().Err(err).Msg("fsnotify error, continuing")
		case <-ticker.C:
			w.flushPending()
		}
	}
}

// runFallback triggers a rescan on a fixed interval
func (w *Watcher) runFallback() {
	ticker := time.NewTicker(fallbackRescanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			logger.Log.Debug().Msg("Periodic rescan triggered (no fsnotify)")
			w.onChange()
		}
	}
}

// handleEvent records a relevant filesystem event for the next debounce
// flush and keeps the watch list current as directories appear
func (w *Watcher) handleEvent(event fsnotify.Event) {
	// New directories need watching before files land inside them. Children
	// created before the watch was added produce no events of their own, so
	// the whole subtree is walked.
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fsnotifyWatcher.Add(event.Name); err != nil {
				logger.Log.Warn().Err(err).Str("path", event.Name).Msg("Failed to watch new directory")
			}
			w.watchSubtree(event.Name)
			w.markPending()
			return
		}
	}

	// Removals and renames may be directories that no longer stat, so they
	// always count as relevant
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.markPending()
		return
	}

	if w.isMediaFile(event.Name) && event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		w.markPending()
	}
}

// markPending notes a change and restarts the quiet-period clock
func (w *Watcher) markPending() {
	w.mu.Lock()
	w.pending = true
	w.lastEvent = time.Now()
	w.mu.Unlock()
}

// flushPending fires the callback if changes are pending and the debounce
// window has elapsed since the last event
func (w *Watcher) flushPending() {
	w.mu.Lock()
	ready := w.pending && time.Since(w.lastEvent) >= w.debounce
	if ready {
		w.pending = false
	}
	w.mu.Unlock()

	if !ready {
		return
	}

	logger.Log.Info().
		Str("root", w.root).
		Msg("Library changed on disk, triggering rescan")
	w.onChange()
}

// isMediaFile checks if a path has a watched media extension
func (w *Watcher) isMediaFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range w.extensions {
		if ext == supported {
			return true
		}
	}
	return false
}
