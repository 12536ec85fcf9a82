package main

import (
	"fmt"
	"io"

	"golang.org/x/term"

	"github.com/0xmhha/agent-hud/pkg/aggregator"
	"github.com/0xmhha/agent-hud/pkg/classify"
	"github.com/0xmhha/agent-hud/pkg/config"
	"github.com/0xmhha/agent-hud/pkg/discovery"
	"github.com/0xmhha/agent-hud/pkg/display"
	"github.com/0xmhha/agent-hud/pkg/grid"
	"github.com/0xmhha/agent-hud/pkg/logger"
	"github.com/0xmhha/agent-hud/pkg/stream"
)

// displayFlags select and tune the output format.
type displayFlags struct {
	format  string
	noColor bool
	compact bool
}

// loadConfig loads configuration and applies global flag overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.NewLoader(flags.configPath).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newLogger creates the application logger. Diagnostics never go to
// stdout, which belongs to the HUD.
func newLogger(cfg *config.Config) logger.Logger {
	output := cfg.Logging.Output
	if output == "stdout" {
		output = "stderr"
	}
	return logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Output: output,
		Format: cfg.Logging.Format,
	})
}

// newAggregator creates an aggregator priced per configuration.
func newAggregator(cfg *config.Config, log logger.Logger) aggregator.Aggregator {
	return aggregator.New(aggregator.Config{
		Classifier: classify.New(),
		Model:      cfg.Model,
		Pricing:    cfg.Pricing,
		MaxTokens:  cfg.MaxTokens,
	}, log)
}

// sourceFlags choose the event source on the command line.
type sourceFlags struct {
	file    string
	socket  string
	session string
}

// resolveSource picks the event source: an explicit socket or file, a
// session id looked up in the events directory, or the newest session.
func resolveSource(cfg *config.Config, sf sourceFlags, log logger.Logger) (stream.Source, error) {
	socket, file := sf.socket, sf.file
	if socket == "" && file == "" {
		socket, file = cfg.Stream.Socket, cfg.Stream.Path
	}
	if socket != "" && file != "" {
		return nil, config.ErrConflictingSources
	}

	if socket != "" {
		network, address := stream.ParseSocket(socket)
		return stream.NewSocketSource(network, address), nil
	}

	if file == "" {
		path, err := findEventsFile(cfg, sf.session, log)
		if err != nil {
			return nil, err
		}
		file = path
	}

	log.Info("following events file", "path", file)
	return stream.NewFileSource(file, stream.FileConfig{
		PollInterval: cfg.Stream.PollInterval,
	}, log), nil
}

func findEventsFile(cfg *config.Config, session string, log logger.Logger) (string, error) {
	disc := discovery.New([]string{cfg.Stream.EventsDir}, log)

	var (
		lf  discovery.LogFile
		err error
	)
	if session != "" {
		lf, err = disc.FindSession(session)
	} else {
		lf, err = disc.Latest()
	}
	if err != nil {
		return "", fmt.Errorf("no event stream found in %s: %w", cfg.Stream.EventsDir, err)
	}
	return lf.FilePath, nil
}

// streamConfig converts configuration into reader settings.
func streamConfig(cfg *config.Config) stream.Config {
	return stream.Config{
		Backoff: stream.Backoff{
			Initial: cfg.Stream.InitialBackoff,
			Max:     cfg.Stream.MaxBackoff,
			Factor:  cfg.Stream.BackoffFactor,
		},
		ErrorThrottle: cfg.Stream.ErrorThrottle,
	}
}

// displayConfig builds formatter settings for w.
func displayConfig(cfg *config.Config, df displayFlags, w io.Writer) display.Config {
	format := cfg.Display.Format
	if df.format != "" {
		format = df.format
	}

	style := grid.Style(grid.Plain{})
	if cfg.Display.ColorEnabled && !df.noColor && isTerminal(w) {
		style = grid.LipglossStyle()
	}

	return display.Config{
		Format: display.Format(format),
		Grid: grid.Options{
			MaxAgents:  cfg.Display.MaxAgents,
			HideAgents: !cfg.Display.ShowAgents,
			HideTodos:  !cfg.Display.ShowTodos,
			Style:      style,
		},
		HideCost: cfg.Display.HideCost,
		Compact:  df.compact,
	}
}

func validateFormat(format string) error {
	if format != "" && !display.Format(format).Valid() {
		return fmt.Errorf("%w: %s", config.ErrInvalidDisplayFormat, format)
	}
	return nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}
