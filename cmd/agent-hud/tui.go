package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0xmhha/agent-hud/pkg/display"
	"github.com/0xmhha/agent-hud/pkg/grid"
	"github.com/0xmhha/agent-hud/pkg/monitor"
)

// updateMsg carries a monitor update into the bubbletea loop.
type updateMsg monitor.Update

// closedMsg reports that the monitor closed its updates channel.
type closedMsg struct{}

// hudModel is the interactive watch view.
type hudModel struct {
	mon       monitor.Monitor
	config    display.Config
	formatter display.Formatter
	source    string
	now       func() time.Time

	last  monitor.Update
	have  bool
	width int
}

var footerStyle = lipgloss.NewStyle().Faint(true)

func newHUDModel(mon monitor.Monitor, cfg display.Config, source string, now func() time.Time) hudModel {
	return hudModel{
		mon:       mon,
		config:    cfg,
		formatter: display.New(cfg),
		source:    source,
		now:       now,
	}
}

// waitForUpdate blocks on the next monitor update.
func waitForUpdate(ch <-chan monitor.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return updateMsg(u)
	}
}

// Init implements tea.Model.
func (m hudModel) Init() tea.Cmd {
	return waitForUpdate(m.mon.Updates())
}

// Update implements tea.Model.
func (m hudModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		cfg := m.config
		cfg.Grid.Columns = fitColumns(msg.Width, cfg.Grid.ColumnWidth)
		m.formatter = display.New(cfg)

	case updateMsg:
		m.last = monitor.Update(msg)
		m.have = true
		return m, waitForUpdate(m.mon.Updates())

	case closedMsg:
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model.
func (m hudModel) View() string {
	var b strings.Builder

	if !m.have {
		fmt.Fprintf(&b, "Waiting for events from %s...\n", m.source)
	} else if err := m.formatter.FormatSnapshot(&b, m.last.Snapshot, m.now()); err != nil {
		fmt.Fprintf(&b, "render error: %v\n", err)
	}

	stats := m.mon.Stats()
	footer := fmt.Sprintf("%s · %s · %d events", m.source, m.last.Stream, stats.Accepted)
	if stats.Rejected > 0 {
		footer += fmt.Sprintf(" · %d rejected", stats.Rejected)
	}
	footer += " · q to quit"
	if m.width > 0 {
		footer = grid.Truncate(footer, m.width)
	}
	b.WriteString(footerStyle.Render(footer))

	return b.String()
}

// fitColumns returns how many grid columns fit in width terminal cells.
func fitColumns(width, columnWidth int) int {
	if columnWidth <= 0 {
		columnWidth = grid.DefaultColumnWidth
	}
	cols := (width - 1) / (columnWidth + 1)
	switch {
	case cols < 1:
		return 1
	case cols > grid.DefaultColumns:
		return grid.DefaultColumns
	default:
		return cols
	}
}
