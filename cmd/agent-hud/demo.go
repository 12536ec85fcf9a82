package main

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/0xmhha/agent-hud/pkg/aggregator"
	"github.com/0xmhha/agent-hud/pkg/display"
	"github.com/0xmhha/agent-hud/pkg/event"
)

// demoAgent is one sub-agent of the demo session.
type demoAgent struct {
	typ       string
	model     string
	status    aggregator.Status
	completed int
	total     int
	task      string
	context   int // 0 means unknown
	age       time.Duration
}

var demoAgents = []demoAgent{
	{"scout", "sonnet", aggregator.StatusRunning, 0, 0, "Exploring...", 0, 30 * time.Second},
	{"kraken", "sonnet", aggregator.StatusCompleted, 5, 5, "Done", 87, 40 * time.Minute},
	{"oracle", "sonnet", aggregator.StatusRunning, 1, 3, "Web search", 34, 4 * time.Minute},
	{"spark", "haiku", aggregator.StatusError, 0, 2, "Type error", 91, 12 * time.Minute},
	{"phoenix", "sonnet", aggregator.StatusRunning, 2, 4, "Refactoring...", 45, 90 * time.Second},
	{"arbiter", "sonnet", aggregator.StatusPending, 0, 0, "Waiting", 0, 10 * time.Second},
	{"sleuth", "sonnet", aggregator.StatusCompleted, 3, 3, "Found root cause", 78, 25 * time.Minute},
	{"architect", "opus", aggregator.StatusRunning, 1, 6, "Planning phase 2", 23, 7 * time.Minute},
	{"herald", "sonnet", aggregator.StatusWarning, 1, 2, "Changelog issue", 82, 3 * time.Minute},
	{"critic", "sonnet", aggregator.StatusCompleted, 4, 4, "Review complete", 65, 15 * time.Minute},
	{"profiler", "sonnet", aggregator.StatusRunning, 0, 1, "Profiling...", 8, 45 * time.Second},
	{"atlas", "sonnet", aggregator.StatusBlocked, 0, 5, "Blocked on API", 15, 9 * time.Minute},
	{"liaison", "sonnet", aggregator.StatusRunning, 2, 3, "API review", 56, time.Minute},
	{"surveyor", "sonnet", aggregator.StatusCompleted, 2, 2, "Done", 72, 20 * time.Minute},
	{"scribe", "sonnet", aggregator.StatusRunning, 0, 1, "Writing docs", 19, 20 * time.Second},
}

// demoCommand prints a HUD for a canned session.
type demoCommand struct {
	flags   *globalFlags
	display displayFlags
	now     func() time.Time
}

func newDemoCmd(flags *globalFlags) *cobra.Command {
	c := &demoCommand{flags: flags, now: time.Now}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Render a sample session",
		Long:  "Render a sample session with a main task and fifteen sub-agents.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Execute(cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&c.display.format, "format", "", "output format (grid, simple, json)")
	f.BoolVar(&c.display.noColor, "no-color", false, "disable colors")
	f.BoolVar(&c.display.compact, "compact", false, "compact output")

	return cmd
}

// Execute runs the demo command.
func (c *demoCommand) Execute(out io.Writer) error {
	if err := validateFormat(c.display.format); err != nil {
		return err
	}

	cfg, err := loadConfig(c.flags)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	now := c.now()
	agg := newAggregator(cfg, log)
	populateDemo(agg, uuid.NewString(), now)

	formatter := display.New(displayConfig(cfg, c.display, out))
	return formatter.FormatSnapshot(out, agg.Snapshot(), now)
}

// populateDemo fills agg with the demo session as seen at now.
func populateDemo(agg aggregator.Aggregator, session string, now time.Time) {
	start := now.Add(-90 * time.Minute)

	agg.Apply(&event.Event{
		Kind:          event.KindSessionStart,
		SchemaVersion: event.SchemaVersion,
		Session:       session,
		Timestamp:     start.UnixMilli(),
		Cwd:           "/test/project",
	})
	agg.Apply(&event.Event{
		Kind:          event.KindUserPromptSubmit,
		SchemaVersion: event.SchemaVersion,
		Session:       session,
		Timestamp:     start.Add(time.Second).UnixMilli(),
		Prompt:        "Fix auth module",
	})

	agg.SetModel("claude-opus-4")
	agg.UpdateMain(aggregator.MainUpdate{
		CompletedTodos: intPtr(3),
		TotalTodos:     intPtr(8),
		ContextPercent: intPtr(59),
	})

	for i, a := range demoAgents {
		u := aggregator.AgentUpdate{
			ID:             uuid.NewString(),
			Type:           a.typ,
			Model:          a.model,
			Status:         a.status,
			CurrentTask:    a.task,
			CompletedTodos: intPtr(a.completed),
			TotalTodos:     intPtr(a.total),
		}
		if a.context > 0 {
			u.ContextPercent = intPtr(a.context)
		}
		if i == 0 {
			u.Description = "Explore the codebase"
		}
		agg.UpsertAgent(u, now.Add(-a.age))
	}
}

func intPtr(n int) *int { return &n }
