package grid

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/0xmhha/agent-hud/pkg/aggregator"
	"github.com/0xmhha/agent-hud/pkg/cost"
)

type lipglossStyle struct {
	green  lipgloss.Style
	red    lipgloss.Style
	yellow lipgloss.Style
	cyan   lipgloss.Style
	dim    lipgloss.Style
	alert  lipgloss.Style
}

// LipglossStyle colours cells by status, context usage past the warning
// and compaction thresholds, and dims borders. Colours degrade
// to plain text when the output does not support them.
func LipglossStyle() Style {
	return &lipglossStyle{
		green:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		red:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		yellow: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		cyan:   lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		dim:    lipgloss.NewStyle().Faint(true),
		alert:  lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
}

// Cell implements Style.Cell.
func (s *lipglossStyle) Cell(text string, status aggregator.Status, detail bool) string {
	switch status {
	case aggregator.StatusCompleted:
		if detail {
			return s.dim.Render(text)
		}
		return s.green.Render(text)
	case aggregator.StatusError:
		return s.red.Render(text)
	case aggregator.StatusWarning:
		return s.yellow.Render(text)
	case aggregator.StatusPending, aggregator.StatusBlocked:
		return s.dim.Render(text)
	case StatusMain:
		if detail {
			return text
		}
		return s.cyan.Render(text)
	default:
		return text
	}
}

// Border implements Style.Border.
func (s *lipglossStyle) Border(text string) string {
	return s.dim.Render(text)
}

// Context implements Style.Context.
func (s *lipglossStyle) Context(text string, level cost.ContextLevel) string {
	switch level {
	case cost.ContextWarning:
		return s.yellow.Render(text)
	case cost.ContextCompaction:
		return s.alert.Render(text)
	default:
		return text
	}
}
