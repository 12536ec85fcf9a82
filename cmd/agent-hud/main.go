// Package main provides the agent-hud CLI application.
//
// Agent HUD is a live heads-up display for AI coding assistant sessions.
// It follows the hook event stream of a session and renders the main
// task, its sub-agents, idle agents and an estimated cost.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set during build time.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "agent-hud",
		Short: "Live HUD for AI coding assistant sessions",
		Long: `Agent HUD follows the hook event stream of a coding session and shows
the main task, every sub-agent with its status and progress, agents that
have been running for a long time, and an estimated session cost.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to configuration file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newWatchCmd(flags),
		newRenderCmd(flags),
		newDemoCmd(flags),
		newConfigCmd(flags),
		newVersionCmd(),
	)

	root.Version = version
	root.SetVersionTemplate(fmt.Sprintf("agent-hud %s\n", version))

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "agent-hud %s\n", version)
			return err
		},
	}
}
