package display

import (
	"encoding/json"
	"io"
	"time"

	"github.com/0xmhha/agent-hud/pkg/aggregator"
	"github.com/0xmhha/agent-hud/pkg/cost"
	"github.com/0xmhha/agent-hud/pkg/stall"
)

// jsonFormatter formats output as JSON.
type jsonFormatter struct {
	config Config
}

// jsonSnapshot adds derived fields to a snapshot.
type jsonSnapshot struct {
	aggregator.Snapshot
	Duration string   `json:"duration,omitempty"`
	Stalled  []string `json:"stalled,omitempty"`
	BurnRate float64  `json:"burn_rate"`
}

// FormatSnapshot implements Formatter.FormatSnapshot.
func (f *jsonFormatter) FormatSnapshot(w io.Writer, s aggregator.Snapshot, now time.Time) error {
	out := jsonSnapshot{
		Snapshot: s,
		Duration: FormatDuration(s.SessionStart, now),
		BurnRate: cost.BurnRate(s.TokenHistory, cost.BurnRateSamples),
	}
	for _, a := range stall.Stalled(s, now) {
		out.Stalled = append(out.Stalled, a.ID)
	}
	if out.Agents == nil {
		out.Agents = []aggregator.AgentState{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}

	return encoder.Encode(out)
}
