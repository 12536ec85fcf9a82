// Package watcher reports changes to hook event logs.
//
// It wraps fsnotify, coalescing bursts of writes to the same file into
// one event. Watching a regular file watches its parent directory and
// only reports that file, so the watch survives the file being replaced.
//
// Example usage:
//
//	w, err := watcher.New(watcher.Config{
//	    DebounceInterval: 20 * time.Millisecond,
//	}, logger.Default())
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//
//	if err := w.Start(ctx, []string{"~/.claude/hud/events/current.jsonl"}); err != nil {
//	    return err
//	}
//
//	for ev := range w.Events() {
//	    fmt.Printf("%s: %s\n", ev.Path, ev.Op)
//	}
package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

// Op describes a file operation type.
type Op uint32

// File operation types.
const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

// String returns a human-readable operation name.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpWrite:
		return "WRITE"
	case OpRemove:
		return "REMOVE"
	case OpRename:
		return "RENAME"
	case OpChmod:
		return "CHMOD"
	default:
		return "UNKNOWN"
	}
}

// Gone reports whether the file no longer exists under its name.
func (op Op) Gone() bool {
	return op == OpRemove || op == OpRename
}

// Event represents a file system event.
type Event struct {
	// Path is the path of the file that triggered the event.
	Path string

	// Op is the last operation seen within the debounce window.
	Op Op

	// Timestamp is when the event was observed.
	Timestamp time.Time
}

// Watcher provides file system monitoring.
type Watcher interface {
	// Start begins watching paths. Directories are watched recursively
	// and report files accepted by Config.Match; regular files are
	// watched through their parent directory and report only themselves.
	//
	// Paths that do not exist are skipped; ErrInvalidPath is returned when
	// none remain. Start returns once the watches are installed.
	Start(ctx context.Context, paths []string) error

	// Stop stops event processing.
	Stop() error

	// Events returns the channel of debounced events. It is closed by
	// Close.
	Events() <-chan Event

	// Errors returns the channel of non-fatal watcher errors. It is
	// closed by Close.
	Errors() <-chan error

	// Close stops the watcher and releases resources.
	Close() error
}

// Config contains watcher configuration.
type Config struct {
	// DebounceInterval coalesces events for the same file.
	//
	// Default: 100ms.
	DebounceInterval time.Duration

	// Match selects which files inside watched directories are reported.
	//
	// Default: files with a .jsonl extension.
	Match func(path string) bool

	// CircuitBreakerThreshold is the number of fsnotify errors after
	// which ErrCircuitBreakerOpen is reported instead.
	//
	// Default: 5.
	CircuitBreakerThreshold int

	// EventBuffer is the capacity of the Events channel. Events are
	// dropped when it is full.
	//
	// Default: 100.
	EventBuffer int
}

// MatchJSONL reports whether path has a .jsonl extension.
func MatchJSONL(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".jsonl")
}
