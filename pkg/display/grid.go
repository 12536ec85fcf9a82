package display

import (
	"fmt"
	"io"
	"time"

	"github.com/0xmhha/agent-hud/pkg/aggregator"
	"github.com/0xmhha/agent-hud/pkg/grid"
)

// gridFormatter formats output as a cell grid.
type gridFormatter struct {
	config Config
}

// FormatSnapshot implements Formatter.FormatSnapshot.
func (f *gridFormatter) FormatSnapshot(w io.Writer, s aggregator.Snapshot, now time.Time) error {
	for _, line := range grid.Render(s, now, f.config.Grid) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w, summary(s, now, f.config.HideCost))
	return err
}
