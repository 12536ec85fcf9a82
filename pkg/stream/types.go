// Package stream delivers the lines of a hook event stream, reconnecting
// with exponential backoff whenever the source fails or ends.
//
// A Source produces a byte stream: FileSource follows an append-only log
// on disk, SocketSource dials a unix or tcp listener. The Reader splits
// the stream into complete lines and hands each one to a callback. Lines
// longer than MaxLineLength are skipped. Failures are logged at most once
// per ErrorThrottle window.
//
// Example usage:
//
//	src := stream.NewFileSource("~/.claude/hud/events/current.jsonl", stream.FileConfig{}, log)
//	r := stream.New(src, stream.Config{}, log)
//
//	err := r.Run(ctx, func(line []byte) {
//	    if ev, err := event.Decode(line); err == nil {
//	        agg.Apply(ev)
//	    }
//	})
package stream

import (
	"context"
	"io"
	"time"
)

// State is the connection state of a Reader.
type State int

const (
	// StateConnecting means the source is being opened.
	StateConnecting State = iota

	// StateConnected means lines are being read.
	StateConnected

	// StateBackoff means the reader is waiting before reconnecting.
	StateBackoff

	// StateCancelled means Run has returned.
	StateCancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateBackoff:
		return "backoff"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Source opens a byte stream of newline-delimited records.
type Source interface {
	// Open connects to the source. The returned reader blocks until data
	// is available and returns an error when the stream ends or fails.
	// Closing it must unblock a pending Read.
	Open(ctx context.Context) (io.ReadCloser, error)

	// Name identifies the source in logs.
	Name() string
}

// Rewinder is implemented by sources that can resume from an earlier
// position. After a disconnect the Reader rewinds by the size of the
// incomplete trailing line so it is read again in full.
type Rewinder interface {
	Rewind(n int64)
}

// Stats counts what a Reader has seen.
type Stats struct {
	Connects  int
	Failures  int
	Lines     int
	Oversized int
}

// Config contains reader configuration.
type Config struct {
	// Backoff is the reconnect schedule.
	//
	// Default: DefaultBackoff().
	Backoff Backoff

	// ErrorThrottle is the minimum interval between two failure notices.
	//
	// Default: 5s.
	ErrorThrottle time.Duration

	// MaxLineLength is the longest line delivered, excluding the newline.
	//
	// Default: event.MaxLineLength (1 MiB).
	MaxLineLength int

	// ChunkSize is the read buffer size.
	//
	// Default: 32 KiB.
	ChunkSize int

	// Sleep waits between reconnects. It returns early with ctx.Err()
	// when ctx is cancelled.
	//
	// Default: a timer-based sleep.
	Sleep func(ctx context.Context, d time.Duration) error

	// Now is the clock used by the error throttle.
	//
	// Default: time.Now.
	Now func() time.Time

	// OnState is called on every state change. It must not block.
	OnState func(State)
}
