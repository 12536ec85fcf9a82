// Package monitor drives the live HUD: it reads event lines from a
// stream, folds them into an aggregator and publishes snapshots.
//
// Example usage:
//
//	mon := monitor.New(monitor.Config{RefreshInterval: time.Second},
//	    stream.New(src, stream.Config{}, log), agg, log)
//	if err := mon.Start(ctx); err != nil {
//	    return err
//	}
//	defer mon.Close()
//
//	for u := range mon.Updates() {
//	    render(u.Snapshot)
//	}
package monitor

import (
	"context"
	"time"

	"github.com/0xmhha/agent-hud/pkg/aggregator"
	"github.com/0xmhha/agent-hud/pkg/cost"
	"github.com/0xmhha/agent-hud/pkg/stream"
)

// Config holds the configuration for the live monitor.
type Config struct {
	// RefreshInterval is the interval between periodic updates. Idle
	// markers and session duration advance even without new events.
	//
	// Default: 1s.
	RefreshInterval time.Duration

	// Now is the clock used for update timestamps.
	//
	// Default: time.Now.
	Now func() time.Time
}

// LineSource produces event lines until its context is cancelled.
// *stream.Reader implements it.
type LineSource interface {
	Run(ctx context.Context, handle func(line []byte)) error
	State() stream.State
}

// Monitor provides real-time session monitoring.
type Monitor interface {
	// Start launches the reader and the refresh ticker. It does not block.
	Start(ctx context.Context) error

	// Stop stops the monitor gracefully and waits for its goroutines.
	Stop() error

	// Close stops the monitor if needed and closes the Updates channel.
	Close() error

	// Updates delivers the most recent update. A slow consumer sees only
	// the latest one; older pending updates are discarded.
	Updates() <-chan Update

	// Snapshot returns the current state.
	Snapshot() aggregator.Snapshot

	// Stats returns the line counters.
	Stats() Stats
}

// Update represents a live monitoring update event.
type Update struct {
	// Timestamp of the update
	Timestamp time.Time

	// Snapshot of the aggregated state
	Snapshot aggregator.Snapshot

	// Cost is the estimate at Timestamp
	Cost cost.Estimate

	// Delta contains the change since the last update
	Delta Delta

	// Stream is the reader's connection state
	Stream stream.State
}

// Delta represents changes since the last update.
type Delta struct {
	// Events is the number of events applied
	Events int

	// InputTokens added since last update
	InputTokens int

	// OutputTokens added since last update
	OutputTokens int

	// Cost added since last update
	Cost float64
}

// Stats counts the lines the monitor has seen.
//
// Invariant: Lines == Accepted + Rejected + Duplicates + Retired.
type Stats struct {
	Lines      int `json:"lines"`
	Accepted   int `json:"accepted"`
	Rejected   int `json:"rejected"`
	Duplicates int `json:"duplicates"`
	Retired    int `json:"retired"`
}
