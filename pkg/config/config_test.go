package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/0xmhha/agent-hud/pkg/cost"
)

func floatPtr(f float64) *float64 { return &f }

// clearEnv isolates a test from the caller's environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvConfig, EnvEvents, EnvLogLevel, EnvModel} {
		t.Setenv(k, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify defaults are set
	if cfg.Stream.EventsDir == "" {
		t.Error("EventsDir is empty")
	}

	if cfg.Stream.InitialBackoff != 100*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 100ms", cfg.Stream.InitialBackoff)
	}

	if cfg.Stream.MaxBackoff != 5*time.Second {
		t.Errorf("MaxBackoff = %v, want 5s", cfg.Stream.MaxBackoff)
	}

	if cfg.Stream.BackoffFactor != 1.5 {
		t.Errorf("BackoffFactor = %v, want 1.5", cfg.Stream.BackoffFactor)
	}

	if cfg.Stream.ErrorThrottle != 5*time.Second {
		t.Errorf("ErrorThrottle = %v, want 5s", cfg.Stream.ErrorThrottle)
	}

	if cfg.Display.Format != "grid" {
		t.Errorf("Format = %s, want grid", cfg.Display.Format)
	}

	if !cfg.Display.ShowAgents || !cfg.Display.ShowTodos {
		t.Error("grid sections should be shown by default")
	}

	if cfg.Display.MaxAgents != 15 {
		t.Errorf("MaxAgents = %d, want 15", cfg.Display.MaxAgents)
	}

	if cfg.MaxTokens != 200000 {
		t.Errorf("MaxTokens = %d, want 200000", cfg.MaxTokens)
	}

	if cfg.Logging.Level == "" {
		t.Error("Log level not set")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		want   error
	}{
		{
			name:   "valid default config",
			modify: func(c *Config) {},
		},
		{
			name: "path and socket",
			modify: func(c *Config) {
				c.Stream.Path = "/tmp/events.jsonl"
				c.Stream.Socket = "unix:///tmp/hud.sock"
			},
			want: ErrConflictingSources,
		},
		{
			name:   "zero initial backoff",
			modify: func(c *Config) { c.Stream.InitialBackoff = 0 },
			want:   ErrInvalidBackoff,
		},
		{
			name:   "max below initial",
			modify: func(c *Config) { c.Stream.MaxBackoff = 50 * time.Millisecond },
			want:   ErrInvalidBackoff,
		},
		{
			name:   "shrinking factor",
			modify: func(c *Config) { c.Stream.BackoffFactor = 0.5 },
			want:   ErrInvalidBackoffFactor,
		},
		{
			name:   "zero throttle",
			modify: func(c *Config) { c.Stream.ErrorThrottle = 0 },
			want:   ErrInvalidErrorThrottle,
		},
		{
			name:   "zero poll interval",
			modify: func(c *Config) { c.Stream.PollInterval = 0 },
			want:   ErrInvalidPollInterval,
		},
		{
			name:   "unknown format",
			modify: func(c *Config) { c.Display.Format = "table" },
			want:   ErrInvalidDisplayFormat,
		},
		{
			name:   "zero refresh rate",
			modify: func(c *Config) { c.Display.RefreshRate = 0 },
			want:   ErrInvalidRefreshRate,
		},
		{
			name:   "zero max agents",
			modify: func(c *Config) { c.Display.MaxAgents = 0 },
			want:   ErrInvalidMaxAgents,
		},
		{
			name:   "zero max tokens",
			modify: func(c *Config) { c.MaxTokens = 0 },
			want:   ErrInvalidMaxTokens,
		},
		{
			name: "negative price",
			modify: func(c *Config) {
				c.Pricing.Opus = &cost.RateOverride{Output: floatPtr(-1)}
			},
			want: ErrInvalidPricing,
		},
		{
			name:   "bad pricing date",
			modify: func(c *Config) { c.Pricing.LastUpdated = "Jan 2025" },
			want:   ErrInvalidPricingDate,
		},
		{
			name:   "invalid log level",
			modify: func(c *Config) { c.Logging.Level = "trace" },
			want:   ErrInvalidLogLevel,
		},
		{
			name:   "invalid log format",
			modify: func(c *Config) { c.Logging.Format = "xml" },
			want:   ErrInvalidLogFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		content string
		create  bool
		wantErr error
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:   "valid config file",
			create: true,
			content: `
stream:
  path: /var/log/hud/events.jsonl
  initial_backoff: 200ms
  max_backoff: 10s
  backoff_factor: 2
  error_throttle: 1m
display:
  format: simple
  color_enabled: false
  refresh_rate: 2s
  show_todos: false
  max_agents: 8
pricing:
  opus:
    output: 60
  last_updated: "2025-06-01"
model: claude-opus-4
max_tokens: 1000000
logging:
  level: debug
  output: stdout
  format: json
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Stream.Path != "/var/log/hud/events.jsonl" {
					t.Errorf("Path = %s", cfg.Stream.Path)
				}
				if cfg.Stream.InitialBackoff != 200*time.Millisecond {
					t.Errorf("InitialBackoff = %v, want 200ms", cfg.Stream.InitialBackoff)
				}
				if cfg.Stream.BackoffFactor != 2 {
					t.Errorf("BackoffFactor = %v, want 2", cfg.Stream.BackoffFactor)
				}
				if cfg.Stream.PollInterval != 500*time.Millisecond {
					t.Errorf("PollInterval = %v, want default 500ms", cfg.Stream.PollInterval)
				}
				if cfg.Display.Format != "simple" {
					t.Errorf("Format = %s, want simple", cfg.Display.Format)
				}
				if cfg.Display.ColorEnabled {
					t.Error("ColorEnabled = true, want false")
				}
				if cfg.Display.ShowTodos || !cfg.Display.ShowAgents {
					t.Errorf("ShowTodos = %v, ShowAgents = %v", cfg.Display.ShowTodos, cfg.Display.ShowAgents)
				}
				if cfg.Pricing.Opus == nil || *cfg.Pricing.Opus.Output != 60 || cfg.Pricing.Opus.Input != nil {
					t.Errorf("Pricing.Opus = %+v", cfg.Pricing.Opus)
				}
				if cfg.Model != "claude-opus-4" {
					t.Errorf("Model = %s", cfg.Model)
				}
				if cfg.MaxTokens != 1000000 {
					t.Errorf("MaxTokens = %d, want 1000000", cfg.MaxTokens)
				}
				if cfg.Logging.Level != "debug" {
					t.Errorf("LogLevel = %s, want debug", cfg.Logging.Level)
				}
			},
		},
		{
			name:   "empty file keeps defaults",
			create: true,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Display.MaxAgents != 15 {
					t.Errorf("MaxAgents = %d, want 15", cfg.Display.MaxAgents)
				}
			},
		},
		{
			name:    "invalid yaml",
			create:  true,
			content: `invalid: yaml: content: [`,
			wantErr: ErrInvalidYAML,
		},
		{
			name:    "unknown key",
			create:  true,
			content: "display:\n  default_mode: live\n",
			wantErr: ErrInvalidYAML,
		},
		{
			name:    "fails validation",
			create:  true,
			content: "display:\n  format: table\n",
			wantErr: ErrInvalidDisplayFormat,
		},
		{
			name:    "non-existent file",
			wantErr: ErrConfigNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filePath := filepath.Join(tmpDir, tt.name+".yaml")
			if tt.create {
				if err := os.WriteFile(filePath, []byte(tt.content), 0600); err != nil {
					t.Fatalf("Failed to create test file: %v", err)
				}
			}

			loader := NewLoader(filePath)
			cfg, err := loader.Load()

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Errorf("Load() error = %v, wantErr = nil", err)
				return
			}

			if cfg == nil {
				t.Error("Load() returned nil config")
				return
			}

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	// Test default loading (no config file)
	cfg, err := Load()
	if err != nil {
		t.Errorf("Load() error = %v, want nil", err)
	}

	if cfg == nil {
		t.Fatal("Load() returned nil")
	}

	// Should have default values
	if cfg.Stream.EventsDir == "" {
		t.Error("Load() returned config with no events dir")
	}
}

func TestLoaderPath(t *testing.T) {
	clearEnv(t)

	if got := NewLoader("/explicit.yaml").Path(); got != "/explicit.yaml" {
		t.Errorf("Path() = %s, want /explicit.yaml", got)
	}

	envPath := filepath.Join(t.TempDir(), "env.yaml")
	t.Setenv(EnvConfig, envPath)
	if got := NewLoader("").Path(); got != envPath {
		t.Errorf("Path() = %s, want %s", got, envPath)
	}

	// A missing file named by the environment is an error.
	if _, err := Load(); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Load() error = %v, want ErrConfigNotFound", err)
	}
}

func TestSave(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := Default()
	cfg.Logging.Level = "debug"
	cfg.Stream.Socket = "tcp://127.0.0.1:7777"
	cfg.Pricing.Haiku = &cost.RateOverride{Input: floatPtr(0.8)}

	// Save config
	if err := Save(cfg, configPath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Verify file exists
	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("Config file not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Config file mode = %v, want 0600", info.Mode().Perm())
	}

	// Load it back and verify
	loadedCfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if loadedCfg.Logging.Level != "debug" {
		t.Errorf("Loaded config LogLevel = %s, want debug", loadedCfg.Logging.Level)
	}
	if loadedCfg.Stream.Socket != "tcp://127.0.0.1:7777" {
		t.Errorf("Loaded config Socket = %s", loadedCfg.Stream.Socket)
	}
	if loadedCfg.Stream.MaxBackoff != 5*time.Second {
		t.Errorf("Loaded config MaxBackoff = %v, want 5s", loadedCfg.Stream.MaxBackoff)
	}
	if loadedCfg.Pricing.Haiku == nil || *loadedCfg.Pricing.Haiku.Input != 0.8 {
		t.Errorf("Loaded config Pricing.Haiku = %+v", loadedCfg.Pricing.Haiku)
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.Display.Format = "table"

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := Save(cfg, path); !errors.Is(err, ErrInvalidDisplayFormat) {
		t.Errorf("Save() error = %v, want ErrInvalidDisplayFormat", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Invalid config should not be written")
	}
}

func TestEnvVarOverrides(t *testing.T) {
	clearEnv(t)

	t.Setenv(EnvEvents, "/env/events.jsonl")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvModel, "claude-haiku-3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Verify env var overrides
	if cfg.Stream.Path != "/env/events.jsonl" {
		t.Errorf("Path = %s, want /env/events.jsonl", cfg.Stream.Path)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.Logging.Level)
	}

	if cfg.Model != "claude-haiku-3" {
		t.Errorf("Model = %s, want claude-haiku-3", cfg.Model)
	}
}

func TestEnvEventsSocket(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("stream:\n  path: /from/file.jsonl\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvEvents, "unix:///run/hud.sock")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Stream.Socket != "unix:///run/hud.sock" {
		t.Errorf("Socket = %s, want unix:///run/hud.sock", cfg.Stream.Socket)
	}
	if cfg.Stream.Path != "" {
		t.Errorf("Path = %s, want it cleared by the socket override", cfg.Stream.Path)
	}
}

// Benchmark config loading.
func BenchmarkLoad(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := Load()
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkValidate(b *testing.B) {
	cfg := Default()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := cfg.Validate(); err != nil {
			b.Fatal(err)
		}
	}
}
