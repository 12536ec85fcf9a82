package display

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/0xmhha/agent-hud/pkg/aggregator"
	"github.com/0xmhha/agent-hud/pkg/cost"
	"github.com/0xmhha/agent-hud/pkg/grid"
	"github.com/0xmhha/agent-hud/pkg/stall"
)

// sparkWidth is how many recent token samples the summary draws.
const sparkWidth = 10

// New creates a new formatter based on configuration.
//
// Parameters:
//   - cfg: Formatter configuration
//
// Returns a configured Formatter.
func New(cfg Config) Formatter {
	// Set defaults.
	if cfg.Format == "" {
		cfg.Format = FormatGrid
	}

	switch cfg.Format {
	case FormatJSON:
		return &jsonFormatter{config: cfg}
	case FormatSimple:
		return &simpleFormatter{config: cfg}
	case FormatGrid:
		fallthrough
	default:
		return &gridFormatter{config: cfg}
	}
}

// FormatDuration formats the time elapsed since start as "<1m", "Nm" or
// "Hh Mm". A zero start yields "".
func FormatDuration(start, now time.Time) string {
	if start.IsZero() {
		return ""
	}

	mins := int(now.Sub(start) / time.Minute)
	if mins < 1 {
		return "<1m"
	}
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dh %dm", mins/60, mins%60)
}

// FormatCost formats an estimate's total as dollars. A trailing "*" marks
// an estimate computed from stale pricing.
func FormatCost(e cost.Estimate) string {
	s := "$" + formatFloat(e.TotalCost, 4)
	if e.PricingStale {
		s += "*"
	}
	return s
}

// formatNumber formats a number with thousand separators.
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	// Convert to string and add commas.
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// formatFloat formats a float with specified precision.
func formatFloat(f float64, precision int) string {
	return fmt.Sprintf("%.*f", precision, f)
}

// FormatBurn draws the recent token samples as a sparkline followed by
// the burn rate in tokens per minute.
func FormatBurn(samples []cost.Sample) string {
	rate := cost.BurnRate(samples, cost.BurnRateSamples)
	return fmt.Sprintf("%s %s tok/min",
		grid.Sparkline(cost.Tokens(samples), sparkWidth),
		formatNumber(int(math.Round(rate))))
}

// summary builds the status line shown under the grid and at the top of
// simple output.
func summary(s aggregator.Snapshot, now time.Time, hideCost bool) string {
	var parts []string

	if s.Model != "" {
		parts = append(parts, "["+s.Model+"]")
	}
	if d := FormatDuration(s.SessionStart, now); d != "" {
		parts = append(parts, "⏱ "+d)
	}
	if !hideCost {
		parts = append(parts, fmt.Sprintf("%s (%s in / %s out tok)",
			FormatCost(s.Cost),
			formatNumber(s.Cost.InputTokens),
			formatNumber(s.Cost.OutputTokens)))
		if len(s.TokenHistory) > 0 {
			parts = append(parts, FormatBurn(s.TokenHistory))
		}
	}

	agents := fmt.Sprintf("%d agents", len(s.Agents))
	if n := len(stall.Stalled(s, now)); n > 0 {
		agents += fmt.Sprintf(" (%d idle)", n)
	}
	parts = append(parts, agents)

	return strings.Join(parts, " │ ")
}
