// Package display provides output formatting for session snapshots.
//
// It supports multiple output formats (grid, simple text, JSON) and the
// shared duration and cost formatting used by all of them.
package display

import (
	"io"
	"time"

	"github.com/0xmhha/agent-hud/pkg/aggregator"
	"github.com/0xmhha/agent-hud/pkg/grid"
)

// Format represents an output format.
type Format string

const (
	// FormatGrid displays the session as a grid of agent cells.
	FormatGrid Format = "grid"

	// FormatJSON displays the snapshot as JSON.
	FormatJSON Format = "json"

	// FormatSimple displays one line per agent.
	FormatSimple Format = "simple"
)

// Formats lists the supported formats.
var Formats = []Format{FormatGrid, FormatSimple, FormatJSON}

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
	for _, v := range Formats {
		if f == v {
			return true
		}
	}
	return false
}

// Formatter formats and displays session snapshots.
type Formatter interface {
	// FormatSnapshot writes s as seen at now.
	//
	// Parameters:
	//   - w: Output writer
	//   - s: Snapshot to format
	//   - now: Reference time for durations and idle markers
	//
	// Returns error if writing fails.
	FormatSnapshot(w io.Writer, s aggregator.Snapshot, now time.Time) error
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatGrid.
	Format Format

	// Grid controls the grid layout and styling.
	Grid grid.Options

	// HideCost omits the cost estimate.
	// Default: false.
	HideCost bool

	// Compact enables compact output (less whitespace).
	// Default: false.
	Compact bool
}
