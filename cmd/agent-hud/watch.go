package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/0xmhha/agent-hud/pkg/display"
	"github.com/0xmhha/agent-hud/pkg/logger"
	"github.com/0xmhha/agent-hud/pkg/monitor"
	"github.com/0xmhha/agent-hud/pkg/stream"
)

// watchCommand follows an event stream and renders it live.
type watchCommand struct {
	flags   *globalFlags
	source  sourceFlags
	display displayFlags
	refresh time.Duration
	plain   bool
}

func newWatchCmd(flags *globalFlags) *cobra.Command {
	c := &watchCommand{flags: flags}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a session and render it live",
		Long: `Follow the event stream of a session and render it live.

Without --file or --socket the newest session in the events directory is
followed. The stream is reopened with exponential backoff whenever it
fails, until the command is interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Execute(cmd.Context(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&c.source.file, "file", "", "events file to follow")
	f.StringVar(&c.source.socket, "socket", "", "socket to read (unix:///path or tcp://host:port)")
	f.StringVar(&c.source.session, "session", "", "follow the session with this id")
	f.StringVar(&c.display.format, "format", "", "output format (grid, simple, json)")
	f.BoolVar(&c.display.noColor, "no-color", false, "disable colors")
	f.BoolVar(&c.display.compact, "compact", false, "compact output")
	f.DurationVar(&c.refresh, "refresh", 0, "refresh interval (e.g., 1s, 500ms)")
	f.BoolVar(&c.plain, "plain", false, "print updates instead of the interactive view")

	return cmd
}

// Execute runs the watch command.
func (c *watchCommand) Execute(ctx context.Context, out io.Writer) error {
	if err := validateFormat(c.display.format); err != nil {
		return err
	}

	cfg, err := loadConfig(c.flags)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	src, err := resolveSource(cfg, c.source, log)
	if err != nil {
		return err
	}

	refresh := c.refresh
	if refresh <= 0 {
		refresh = cfg.Display.RefreshRate
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader := stream.New(src, streamConfig(cfg), log)
	mon := monitor.New(monitor.Config{RefreshInterval: refresh},
		reader, newAggregator(cfg, log), logger.NewThrottled(log, cfg.Stream.ErrorThrottle))

	if err := mon.Start(ctx); err != nil {
		return fmt.Errorf("failed to start monitor: %w", err)
	}
	defer func() {
		if err := mon.Close(); err != nil {
			log.Error("failed to close monitor", "error", err)
		}
	}()

	dcfg := displayConfig(cfg, c.display, out)
	if !c.plain && dcfg.Format == display.FormatGrid && isTerminal(out) {
		return c.runInteractive(ctx, mon, dcfg, src.Name(), out)
	}
	return c.runPlain(ctx, mon, display.New(dcfg), out)
}

// runInteractive renders the live grid with bubbletea.
func (c *watchCommand) runInteractive(ctx context.Context, mon monitor.Monitor, dcfg display.Config, source string, out io.Writer) error {
	model := newHUDModel(mon, dcfg, source, time.Now)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx), tea.WithOutput(out))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("display error: %w", err)
	}
	return nil
}

// runPlain writes a frame whenever its text changes: new events, or
// idle markers and the session duration moving on while the stream is
// quiet.
func (c *watchCommand) runPlain(ctx context.Context, mon monitor.Monitor, formatter display.Formatter, out io.Writer) error {
	var last, frame bytes.Buffer

	for {
		select {
		case <-ctx.Done():
			return nil

		case update, ok := <-mon.Updates():
			if !ok {
				return nil
			}

			frame.Reset()
			if err := formatter.FormatSnapshot(&frame, update.Snapshot, update.Timestamp); err != nil {
				return fmt.Errorf("failed to format update: %w", err)
			}
			if last.Len() > 0 && bytes.Equal(frame.Bytes(), last.Bytes()) {
				continue
			}

			if _, err := out.Write(frame.Bytes()); err != nil {
				return fmt.Errorf("failed to write update: %w", err)
			}
			last.Reset()
			last.Write(frame.Bytes())
		}
	}
}
