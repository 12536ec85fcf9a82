package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/0xmhha/agent-hud/pkg/aggregator"
	"github.com/0xmhha/agent-hud/pkg/stall"
)

// simpleFormatter formats output as simple text.
type simpleFormatter struct {
	config Config
}

// FormatSnapshot implements Formatter.FormatSnapshot.
func (f *simpleFormatter) FormatSnapshot(w io.Writer, s aggregator.Snapshot, now time.Time) error {
	if _, err := fmt.Fprintln(w, summary(s, now, f.config.HideCost)); err != nil {
		return err
	}

	m := s.MainSession
	if _, err := fmt.Fprintf(w, "main%s: %s\n", todos(m.CompletedTodos, m.TotalTodos), orDash(m.CurrentTask)); err != nil {
		return err
	}

	if f.config.Grid.HideAgents {
		return nil
	}

	for _, a := range s.Agents {
		line := fmt.Sprintf("  %-9s %s", a.Status, a.Type)
		if a.Model != "" {
			line += " [" + a.Model + "]"
		}
		line += todos(a.CompletedTodos, a.TotalTodos)

		task := a.CurrentTask
		if task == "" {
			task = a.Description
		}
		if task != "" {
			line += ": " + task
		}
		if mins := stall.IdleMinutes(a, now); mins > 0 {
			line += fmt.Sprintf(" (idle %dm)", mins)
		}

		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}

	return nil
}

func todos(completed, total int) string {
	if total == 0 {
		return ""
	}
	return fmt.Sprintf(" (%d/%d)", completed, total)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
