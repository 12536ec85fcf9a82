package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xmhha/agent-hud/pkg/aggregator"
	"github.com/0xmhha/agent-hud/pkg/display"
	"github.com/0xmhha/agent-hud/pkg/event"
	"github.com/0xmhha/agent-hud/pkg/logger"
)

// renderCommand folds a recorded event stream and prints one frame.
type renderCommand struct {
	flags   *globalFlags
	display displayFlags
	now     func() time.Time
}

func newRenderCmd(flags *globalFlags) *cobra.Command {
	c := &renderCommand{flags: flags, now: time.Now}

	cmd := &cobra.Command{
		Use:   "render [file|-]",
		Short: "Render a recorded event stream once",
		Long: `Read a recorded event stream to the end and print the resulting HUD.

Reads standard input when the file is "-" or omitted. Lines that fail
validation are skipped and counted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return c.Execute(path, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVar(&c.display.format, "format", "", "output format (grid, simple, json)")
	f.BoolVar(&c.display.noColor, "no-color", false, "disable colors")
	f.BoolVar(&c.display.compact, "compact", false, "compact output")

	return cmd
}

// Execute runs the render command.
func (c *renderCommand) Execute(path string, stdin io.Reader, out, errOut io.Writer) error {
	if err := validateFormat(c.display.format); err != nil {
		return err
	}

	cfg, err := loadConfig(c.flags)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	in := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open events file: %w", err)
		}
		defer f.Close()
		in = f
	}

	agg := newAggregator(cfg, log)
	rejected, err := foldEvents(in, agg, log)
	if err != nil {
		return err
	}
	if rejected > 0 {
		fmt.Fprintf(errOut, "skipped %d invalid line(s)\n", rejected)
	}

	formatter := display.New(displayConfig(cfg, c.display, out))
	return formatter.FormatSnapshot(out, agg.Snapshot(), c.now())
}

// foldEvents applies every valid line of r to agg and returns how many
// lines were rejected. Oversized lines are rejected without buffering
// them whole.
func foldEvents(r io.Reader, agg aggregator.Aggregator, log logger.Logger) (int, error) {
	br := bufio.NewReader(r)
	var (
		rejected int
		line     []byte
		skipping bool
	)

	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return rejected, fmt.Errorf("failed to read events: %w", err)
		}

		if !skipping {
			line = append(line, chunk...)
			if len(line) > event.MaxLineLength {
				skipping = true
				line = line[:0]
			}
		}
		if isPrefix {
			continue
		}

		if skipping {
			log.Debug("skipping oversized line")
			rejected++
			skipping = false
			continue
		}

		if len(line) > 0 {
			ev, err := event.Decode(line)
			if err != nil {
				log.Debug("rejected event", "error", err)
				rejected++
			} else {
				agg.Apply(ev)
			}
		}
		line = line[:0]
	}

	if skipping {
		rejected++
	}
	return rejected, nil
}
