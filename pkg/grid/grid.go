// Package grid renders a session snapshot as a fixed-width grid of
// cells: the main session first, then one cell per sub-agent.
//
// Example usage:
//
//	lines := grid.Render(agg.Snapshot(), time.Now(), grid.Options{
//	    Style: grid.LipglossStyle(),
//	})
//	for _, l := range lines {
//	    fmt.Println(l)
//	}
//
// Render is pure: the same snapshot, time and options always produce the
// same lines.
package grid

import (
	"fmt"
	"strings"
	"time"

	"github.com/0xmhha/agent-hud/pkg/aggregator"
	"github.com/0xmhha/agent-hud/pkg/cost"
	"github.com/0xmhha/agent-hud/pkg/stall"
)

// Layout defaults.
const (
	DefaultColumns     = 4
	DefaultColumnWidth = 30
	DefaultMaxAgents   = 15

	typeWidth = 8
	taskWidth = 22
)

// StatusMain styles the main session cell.
const StatusMain aggregator.Status = "main"

// Box drawing.
const (
	boxTopLeft     = "┌"
	boxTopRight    = "┐"
	boxBottomLeft  = "└"
	boxBottomRight = "┘"
	boxHorizontal  = "─"
	boxVertical    = "│"
	boxTopT        = "┬"
	boxBottomT     = "┴"
	boxLeftT       = "├"
	boxRightT      = "┤"
	boxCross       = "┼"
)

var statusIcons = map[aggregator.Status]string{
	StatusMain:                 "🎯",
	aggregator.StatusRunning:   "⚙️",
	aggregator.StatusCompleted: "✅",
	aggregator.StatusPending:   "⏳",
	aggregator.StatusError:     "❌",
	aggregator.StatusWarning:   "⚠️",
	aggregator.StatusBlocked:   "🔒",
}

// Style decorates rendered text. Implementations must not change the
// display width of what they are given.
type Style interface {
	// Cell styles one padded cell line. detail is true for the second
	// line of a cell.
	Cell(text string, status aggregator.Status, detail bool) string

	// Border styles box drawing.
	Border(text string) string

	// Context styles the context percentage of a cell header.
	Context(text string, level cost.ContextLevel) string
}

// Plain is the identity style.
type Plain struct{}

// Cell implements Style.Cell.
func (Plain) Cell(text string, _ aggregator.Status, _ bool) string { return text }

// Border implements Style.Border.
func (Plain) Border(text string) string { return text }

// Context implements Style.Context.
func (Plain) Context(text string, _ cost.ContextLevel) string { return text }

// Options controls rendering. Zero values use the defaults.
type Options struct {
	Columns     int
	ColumnWidth int
	MaxAgents   int

	// HideAgents and HideTodos turn the grid sections off. The grid is
	// omitted entirely when both are set.
	HideAgents bool
	HideTodos  bool

	Style Style
}

func (o Options) withDefaults() Options {
	if o.Columns <= 0 {
		o.Columns = DefaultColumns
	}
	if o.ColumnWidth <= 0 {
		o.ColumnWidth = DefaultColumnWidth
	}
	if o.MaxAgents <= 0 {
		o.MaxAgents = DefaultMaxAgents
	}
	if o.Style == nil {
		o.Style = Plain{}
	}
	return o
}

// Cell is the unstyled content of one grid cell.
type Cell struct {
	Header  string
	Detail  string
	Status  aggregator.Status
	Context *int
}

// Render returns the grid lines for s at now. It returns nil when there
// is nothing to show: no agents and no main-session todos, or both
// sections hidden.
func Render(s aggregator.Snapshot, now time.Time, opts Options) []string {
	opts = opts.withDefaults()

	if opts.HideAgents && opts.HideTodos {
		return nil
	}

	cells := Cells(s, now, opts.MaxAgents)
	if len(cells) == 1 && s.MainSession.TotalTodos == 0 {
		return nil
	}

	return layout(cells, opts)
}

// Cells builds the main cell followed by at most maxAgents agent cells.
func Cells(s aggregator.Snapshot, now time.Time, maxAgents int) []Cell {
	cells := make([]Cell, 0, 1+min(len(s.Agents), maxAgents))
	cells = append(cells, mainCell(s.MainSession))

	for i, a := range s.Agents {
		if i >= maxAgents {
			break
		}
		cells = append(cells, agentCell(a, now))
	}
	return cells
}

func mainCell(m aggregator.MainSessionState) Cell {
	task := m.CurrentTask
	if task == "" {
		task = "No active task"
	}

	header := statusIcons[StatusMain] + " MAIN"
	if p := progress(m.CompletedTodos, m.TotalTodos); p != "" {
		header += " " + p
	}
	header += contextPercent(m.ContextPercent)

	return Cell{
		Header:  header,
		Detail:  "  └─ " + Truncate(task, taskWidth),
		Status:  StatusMain,
		Context: m.ContextPercent,
	}
}

func agentCell(a aggregator.AgentState, now time.Time) Cell {
	icon, ok := statusIcons[a.Status]
	if !ok {
		icon = statusIcons[aggregator.StatusRunning]
	}

	task := a.CurrentTask
	if task == "" {
		task = a.Description
	}
	if task == "" {
		task = "Working..."
	}

	header := icon + " " + Truncate(a.Type, typeWidth) + ModelIcon(a.Model)
	if p := progress(a.CompletedTodos, a.TotalTodos); p != "" {
		header += " " + p
	}
	header += contextPercent(a.ContextPercent)
	if stall.IsStalled(a, now) {
		header += fmt.Sprintf(" ⏸%dm", stall.IdleMinutes(a, now))
	}

	return Cell{
		Header:  header,
		Detail:  "  └─ " + Truncate(task, taskWidth),
		Status:  a.Status,
		Context: a.ContextPercent,
	}
}

// ModelIcon returns the icon for a model name, or "" when the family is
// not recognised.
func ModelIcon(model string) string {
	m := strings.ToLower(model)
	switch {
	case m == "":
		return ""
	case strings.Contains(m, "opus"):
		return "🧠"
	case strings.Contains(m, "sonnet"):
		return "🎭"
	case strings.Contains(m, "haiku"):
		return "⚡"
	default:
		return ""
	}
}

func progress(completed, total int) string {
	if total == 0 {
		return ""
	}
	return fmt.Sprintf("(%d/%d)", completed, total)
}

func contextPercent(p *int) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("(%d%%)", *p)
}

// styleHeader styles a fitted header, giving its context percentage the
// context style when usage has reached a threshold.
func styleHeader(c Cell, text string, style Style) string {
	if c.Context == nil {
		return style.Cell(text, c.Status, false)
	}
	level := cost.LevelFor(*c.Context)
	mark := contextPercent(c.Context)
	i := strings.Index(text, mark)
	if level == cost.ContextNormal || i < 0 {
		return style.Cell(text, c.Status, false)
	}

	var b strings.Builder
	if i > 0 {
		b.WriteString(style.Cell(text[:i], c.Status, false))
	}
	b.WriteString(style.Context(mark, level))
	if rest := text[i+len(mark):]; rest != "" {
		b.WriteString(style.Cell(rest, c.Status, false))
	}
	return b.String()
}

func layout(cells []Cell, opts Options) []string {
	cols, width, style := opts.Columns, opts.ColumnWidth, opts.Style

	rows := (len(cells) + cols - 1) / cols
	lines := make([]string, 0, rows*3+1)

	border := func(left, mid, right string) string {
		parts := make([]string, cols)
		for i := range parts {
			parts[i] = strings.Repeat(boxHorizontal, width)
		}
		return style.Border(left + strings.Join(parts, mid) + right)
	}
	bar := style.Border(boxVertical)
	blank := strings.Repeat(" ", width)

	lines = append(lines, border(boxTopLeft, boxTopT, boxTopRight))

	for row := 0; row < rows; row++ {
		headers := make([]string, cols)
		details := make([]string, cols)

		for col := 0; col < cols; col++ {
			idx := row*cols + col
			if idx >= len(cells) {
				headers[col] = blank
				details[col] = blank
				continue
			}
			c := cells[idx]
			headers[col] = styleHeader(c, Fit(c.Header, width), style)
			details[col] = style.Cell(Fit(c.Detail, width), c.Status, true)
		}

		lines = append(lines,
			bar+strings.Join(headers, bar)+bar,
			bar+strings.Join(details, bar)+bar,
		)

		if row < rows-1 {
			lines = append(lines, border(boxLeftT, boxCross, boxRightT))
		}
	}

	lines = append(lines, border(boxBottomLeft, boxBottomT, boxBottomRight))
	return lines
}
