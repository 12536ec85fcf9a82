package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/0xmhha/agent-hud/pkg/logger"
)

// watcher implements the Watcher interface using fsnotify.
type watcher struct {
	fsw    *fsnotify.Watcher
	logger logger.Logger
	config Config

	events chan Event
	errors chan error

	mu       sync.RWMutex
	running  bool
	closed   bool
	stopChan chan struct{}

	// files are watched regular files, keyed by cleaned path.
	files map[string]struct{}
	// dirs are directories watched for their own content.
	dirs map[string]struct{}

	debounceTimers map[string]*time.Timer
	pending        map[string]Event
	debounceMu     sync.Mutex

	failureCount int
}

// New creates a new file system watcher.
func New(cfg Config, log logger.Logger) (Watcher, error) {
	if cfg.DebounceInterval == 0 {
		cfg.DebounceInterval = 100 * time.Millisecond
	}
	if cfg.Match == nil {
		cfg.Match = MatchJSONL
	}
	if cfg.CircuitBreakerThreshold == 0 {
		cfg.CircuitBreakerThreshold = 5
	}
	if cfg.EventBuffer == 0 {
		cfg.EventBuffer = 100
	}
	if log == nil {
		log = logger.Noop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &watcher{
		fsw:            fsw,
		logger:         log,
		config:         cfg,
		events:         make(chan Event, cfg.EventBuffer),
		errors:         make(chan error, 10),
		stopChan:       make(chan struct{}),
		files:          make(map[string]struct{}),
		dirs:           make(map[string]struct{}),
		debounceTimers: make(map[string]*time.Timer),
		pending:        make(map[string]Event),
	}

	log.Debug("file watcher created", "debounce_interval", cfg.DebounceInterval)

	return w, nil
}

// Start implements Watcher.Start.
func (w *watcher) Start(ctx context.Context, paths []string) (err error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyStarted
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		if err != nil {
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
		}
	}()

	added := 0
	for _, path := range paths {
		expanded := filepath.Clean(logger.ExpandHome(path))

		info, statErr := os.Stat(expanded)
		if statErr != nil {
			if os.IsNotExist(statErr) {
				w.logger.Warn("watch path does not exist, skipping", "path", expanded)
				continue
			}
			return fmt.Errorf("failed to stat path %s: %w", expanded, statErr)
		}

		if info.IsDir() {
			if err := w.addPathRecursive(expanded); err != nil {
				return fmt.Errorf("failed to add path %s: %w", expanded, err)
			}
		} else {
			if err := w.addFile(expanded); err != nil {
				return fmt.Errorf("failed to add file %s: %w", expanded, err)
			}
		}
		added++
	}

	if added == 0 {
		return ErrInvalidPath
	}

	w.logger.Debug("watcher started", "paths", paths, "path_count", added)

	go w.processEvents(ctx)

	return nil
}

// Stop implements Watcher.Stop.
func (w *watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if !w.running {
		return ErrNotStarted
	}

	close(w.stopChan)
	w.running = false

	w.logger.Debug("watcher stopped")
	return nil
}

// Events implements Watcher.Events.
func (w *watcher) Events() <-chan Event {
	return w.events
}

// Errors implements Watcher.Errors.
func (w *watcher) Errors() <-chan error {
	return w.errors
}

// Close implements Watcher.Close.
func (w *watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.running {
		close(w.stopChan)
		w.running = false
	}

	w.debounceMu.Lock()
	for _, timer := range w.debounceTimers {
		timer.Stop()
	}
	w.debounceTimers = nil
	w.debounceMu.Unlock()

	// Pending timer callbacks check closed under mu before sending, so
	// closing the channels here cannot race with a send.
	close(w.events)
	close(w.errors)

	if err := w.fsw.Close(); err != nil {
		w.logger.Error("failed to close fsnotify watcher", "error", err)
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.logger.Debug("watcher closed")
	return nil
}

// processEvents handles events from fsnotify.
func (w *watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("event processing stopped", "reason", "context cancelled")
			return

		case <-w.stopChan:
			w.logger.Debug("event processing stopped", "reason", "stop signal")
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.handleError(err)
		}
	}
}

// handleEvent filters and debounces a single fsnotify event.
func (w *watcher) handleEvent(event fsnotify.Event) {
	if !w.wanted(filepath.Clean(event.Name)) {
		return
	}

	var op Op
	switch {
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		op = OpRemove
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		op = OpRename
	case event.Op&fsnotify.Create == fsnotify.Create:
		op = OpCreate
	case event.Op&fsnotify.Write == fsnotify.Write:
		op = OpWrite
	case event.Op&fsnotify.Chmod == fsnotify.Chmod:
		op = OpChmod
	default:
		w.logger.Debug("unknown fsnotify operation", "op", event.Op, "path", event.Name)
		return
	}

	w.debounceEvent(Event{
		Path:      event.Name,
		Op:        op,
		Timestamp: time.Now(),
	})
}

// wanted reports whether path should be reported.
func (w *watcher) wanted(path string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if _, ok := w.files[path]; ok {
		return true
	}
	if _, ok := w.dirs[filepath.Dir(path)]; ok {
		return w.config.Match(path)
	}
	return false
}

// debounceEvent delivers the last event for a path once the path has
// been quiet for DebounceInterval. A removal is delivered even when a
// later event in the window would otherwise replace it.
func (w *watcher) debounceEvent(event Event) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimers == nil {
		return
	}

	if timer, exists := w.debounceTimers[event.Path]; exists {
		timer.Stop()
	}
	if prev, ok := w.pending[event.Path]; ok && prev.Op.Gone() {
		event.Op = prev.Op
	}
	w.pending[event.Path] = event

	w.debounceTimers[event.Path] = time.AfterFunc(w.config.DebounceInterval, func() {
		w.debounceMu.Lock()
		ev, ok := w.pending[event.Path]
		delete(w.pending, event.Path)
		if w.debounceTimers != nil {
			delete(w.debounceTimers, event.Path)
		}
		w.debounceMu.Unlock()

		if ok {
			w.emit(ev)
		}
	})
}

// emit sends an event without blocking.
func (w *watcher) emit(event Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return
	}

	select {
	case w.events <- event:
	default:
		w.logger.Warn("event channel full, dropping event", "path", event.Path)
	}
}

// handleError counts fsnotify errors and reports them.
func (w *watcher) handleError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	w.failureCount++
	w.logger.Error("fsnotify error", "error", err, "failure_count", w.failureCount)

	if w.failureCount >= w.config.CircuitBreakerThreshold {
		err = ErrCircuitBreakerOpen
	}

	select {
	case w.errors <- err:
	default:
		w.logger.Warn("error channel full, dropping error")
	}
}

// addFile watches a single file through its parent directory.
func (w *watcher) addFile(path string) error {
	if err := w.fsw.Add(filepath.Dir(path)); err != nil {
		return err
	}

	w.mu.Lock()
	w.files[path] = struct{}{}
	w.mu.Unlock()

	w.logger.Debug("added watch file", "path", path)
	return nil
}

// addPathRecursive adds a directory and all its subdirectories.
func (w *watcher) addPathRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			w.logger.Warn("error walking path", "path", path, "error", err)
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && hidden(path) {
			return filepath.SkipDir
		}

		if addErr := w.fsw.Add(path); addErr != nil {
			if path == root {
				return addErr
			}
			w.logger.Warn("failed to add subdirectory", "path", path, "error", addErr)
			return nil
		}

		w.mu.Lock()
		w.dirs[filepath.Clean(path)] = struct{}{}
		w.mu.Unlock()

		w.logger.Debug("added watch directory", "path", path)
		return nil
	})
}

// hidden reports whether a path element starts with a dot.
func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
