package runner

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gnana997/treeshake/pkg/parser"
)

// Watcher re-runs the pass over files as they change.
//
// Rewrites are idempotent, so the write event caused by the watcher's own
// rewrite produces one more run that changes nothing.
//
// **Usage:**
//
//	w, err := NewWatcher(runner, DefaultWatchOptions(), logger)
//	if err != nil {
//	    return err
//	}
//	if err := w.Start("/path/to/project"); err != nil {
//	    return err
//	}
//	defer w.Stop()
type Watcher struct {
	watcher *fsnotify.Watcher
	runner  *Runner
	logger  *slog.Logger
	options WatchOptions
	root    string

	// Debouncing
	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex

	// Lifecycle
	stopChan chan struct{}
	stopped  bool
	mu       sync.Mutex
}

// NewWatcher creates a new file watcher.
func NewWatcher(runner *Runner, options WatchOptions, logger *slog.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if options.DebounceMs <= 0 {
		options.DebounceMs = DefaultWatchOptions().DebounceMs
	}
	if logger == nil {
		logger = runner.logger
	}

	return &Watcher{
		watcher:        watcher,
		runner:         runner,
		logger:         logger,
		options:        options,
		debounceTimers: make(map[string]*time.Timer),
		stopChan:       make(chan struct{}),
	}, nil
}

// Start begins watching rootPath and every directory below it that the scan
// configuration does not exclude. Events are handled in a background
// goroutine.
func (w *Watcher) Start(rootPath string) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return fmt.Errorf("watcher already stopped")
	}
	w.mu.Unlock()

	root, err := filepath.Abs(rootPath)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", rootPath, err)
	}
	w.root = root

	if err := w.addTree(root); err != nil {
		return fmt.Errorf("failed to setup watches: %w", err)
	}

	w.logger.Info("File watcher started", "root", root)

	go w.eventLoop()

	return nil
}

// addTree watches dir and its non-excluded subdirectories.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && excludedBelow(w.runner.cfg.Scan, w.root, path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// Stop stops the file watcher. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}

	w.stopped = true
	close(w.stopChan)

	w.debounceMu.Lock()
	for _, timer := range w.debounceTimers {
		timer.Stop()
	}
	w.debounceTimers = make(map[string]*time.Timer)
	w.debounceMu.Unlock()

	err := w.watcher.Close()
	w.logger.Info("File watcher stopped")
	return err
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if excludedBelow(w.runner.cfg.Scan, w.root, path) {
		return
	}

	if event.Has(fsnotify.Create) && isDir(path) {
		if err := w.addTree(path); err != nil {
			w.logger.Warn("Failed to watch new directory", "path", path, "error", err)
		}
		return
	}

	if !parser.IsSupportedFile(path) || !isIncluded(w.runner.cfg.Scan, relativeSlash(w.root, path)) {
		return
	}

	w.logger.Debug("File event", "op", event.Op.String(), "file", path)

	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		w.debounceRun(path)

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.runner.Invalidate(path)
	}
}

// debounceRun schedules a run after the debounce delay. Only the last event
// in a burst triggers it.
func (w *Watcher) debounceRun(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, exists := w.debounceTimers[path]; exists {
		timer.Stop()
	}

	w.debounceTimers[path] = time.AfterFunc(
		time.Duration(w.options.DebounceMs)*time.Millisecond,
		func() {
			w.debounceMu.Lock()
			delete(w.debounceTimers, path)
			w.debounceMu.Unlock()

			w.runFile(path)
		},
	)
}

func (w *Watcher) runFile(path string) {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}

	// The cached mapping may hold the previous content.
	w.runner.Invalidate(path)

	res, err := w.runner.ProcessFile(path)
	if err != nil {
		w.logger.Warn("Failed to process file", "file", path, "error", err)
	} else if res.Changed {
		w.logger.Info("File processed",
			"file", path,
			"removed", len(res.Removed),
			"written", res.Written)
	}

	if w.options.OnResult != nil {
		w.options.OnResult(res, err)
	}
}

// GetStats returns file watcher statistics.
func (w *Watcher) GetStats() WatcherStats {
	w.debounceMu.Lock()
	pending := len(w.debounceTimers)
	w.debounceMu.Unlock()

	w.mu.Lock()
	running := !w.stopped
	w.mu.Unlock()

	return WatcherStats{
		PendingRuns: pending,
		IsRunning:   running,
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
