// Package config provides configuration management for agent-hud.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Events dir: %s\n", cfg.Stream.EventsDir)
package config

import (
	"time"

	"github.com/0xmhha/agent-hud/pkg/cost"
	"github.com/0xmhha/agent-hud/pkg/display"
)

// Config represents the complete application configuration.
//
// Invariants:
// - At most one of Stream.Path and Stream.Socket is set
// - Backoff delays, error throttle and poll interval must be > 0
// - Stream.MaxBackoff must be >= Stream.InitialBackoff
// - Stream.BackoffFactor must be >= 1
// - Display.RefreshRate must be > 0
// - Pricing rates must be >= 0
// - MaxTokens must be > 0.
type Config struct {
	// Event stream settings
	Stream StreamConfig `yaml:"stream"`

	// Display settings
	Display DisplayConfig `yaml:"display"`

	// Pricing overrides applied on top of the built-in table
	Pricing cost.Override `yaml:"pricing,omitempty"`

	// Model used for pricing until the stream reports one
	Model string `yaml:"model,omitempty"`

	// Context window size used for the context percentage
	MaxTokens int `yaml:"max_tokens"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// StreamConfig contains event stream settings.
type StreamConfig struct {
	// Events file to follow. Empty means the newest file in EventsDir.
	Path string `yaml:"path,omitempty"`

	// Socket to read instead of a file ("unix:///path" or "tcp://host:port")
	Socket string `yaml:"socket,omitempty"`

	// Directory scanned for event files
	EventsDir string `yaml:"events_dir"`

	// Reconnect schedule
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	BackoffFactor  float64       `yaml:"backoff_factor"`

	// Minimum spacing between connection error notices
	ErrorThrottle time.Duration `yaml:"error_throttle"`

	// How long a file reader waits at end of file between checks
	PollInterval time.Duration `yaml:"poll_interval"`
}

// DisplayConfig contains display-related settings.
type DisplayConfig struct {
	// Output format (grid, simple, json)
	Format string `yaml:"format"`

	// Display refresh rate
	RefreshRate time.Duration `yaml:"refresh_rate"`

	// Enable colored output
	ColorEnabled bool `yaml:"color_enabled"`

	// Grid sections
	ShowAgents bool `yaml:"show_agents"`
	ShowTodos  bool `yaml:"show_todos"`

	// Maximum agent cells in the grid
	MaxAgents int `yaml:"max_agents"`

	// Omit the cost estimate
	HideCost bool `yaml:"hide_cost"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output"`

	// Log format (text, json)
	Format string `yaml:"format"`
}

// Validate checks if the configuration satisfies all invariants.
//
// Returns an error if any invariant is violated:
//   - Both a file path and a socket specified
//   - Invalid backoff schedule
//   - Invalid time durations (must be > 0)
//   - Invalid display format or agent limit
//   - Negative or malformed pricing
//   - Invalid log level or format
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	// Validate stream config
	if c.Stream.Path != "" && c.Stream.Socket != "" {
		return ErrConflictingSources
	}
	if c.Stream.InitialBackoff <= 0 || c.Stream.MaxBackoff < c.Stream.InitialBackoff {
		return ErrInvalidBackoff
	}
	if c.Stream.BackoffFactor < 1 {
		return ErrInvalidBackoffFactor
	}
	if c.Stream.ErrorThrottle <= 0 {
		return ErrInvalidErrorThrottle
	}
	if c.Stream.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}

	// Validate display config
	if !display.Format(c.Display.Format).Valid() {
		return ErrInvalidDisplayFormat
	}
	if c.Display.RefreshRate <= 0 {
		return ErrInvalidRefreshRate
	}
	if c.Display.MaxAgents <= 0 {
		return ErrInvalidMaxAgents
	}

	if err := validatePricing(c.Pricing); err != nil {
		return err
	}
	if c.MaxTokens <= 0 {
		return ErrInvalidMaxTokens
	}

	// Validate logging config
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

func validatePricing(o cost.Override) error {
	for _, r := range []*cost.RateOverride{o.Sonnet, o.Opus, o.Haiku} {
		if r == nil {
			continue
		}
		if (r.Input != nil && *r.Input < 0) || (r.Output != nil && *r.Output < 0) {
			return ErrInvalidPricing
		}
	}
	if o.LastUpdated != "" {
		if _, err := time.Parse("2006-01-02", o.LastUpdated); err != nil {
			return ErrInvalidPricingDate
		}
	}
	return nil
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Stream: StreamConfig{
			EventsDir:      defaultEventsDir(),
			InitialBackoff: 100 * time.Millisecond,
			MaxBackoff:     5 * time.Second,
			BackoffFactor:  1.5,
			ErrorThrottle:  5 * time.Second,
			PollInterval:   500 * time.Millisecond,
		},
		Display: DisplayConfig{
			Format:       string(display.FormatGrid),
			RefreshRate:  1 * time.Second,
			ColorEnabled: true,
			ShowAgents:   true,
			ShowTodos:    true,
			MaxAgents:    15,
		},
		MaxTokens: cost.DefaultMaxTokens,
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}
