package config

import (
	"os"
	"path/filepath"
)

// defaultEventsDir returns the directory event hooks write to.
//
// Returns: ~/.claude/hud/events.
func defaultEventsDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./events"
	}

	return filepath.Join(homeDir, ".claude", "hud", "events")
}

// DefaultPath returns the default configuration file path.
//
// Returns: ~/.config/agent-hud/config.yaml.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}

	return filepath.Join(homeDir, ".config", "agent-hud", "config.yaml")
}
