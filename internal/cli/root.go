// Package cli wires the activity_mon command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"activity_mon/internal/config"
)

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	userID     string
	debug      bool

	cfg *config.Config
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "activity_mon",
		Short: "Track active, inactive and break time",
		Long: `activity_mon watches pointer activity, splits your time into active,
inactive and break sessions, and shows the totals in a terminal dashboard.

Run "activity_mon track" to start tracking; run it without a subcommand to
open the dashboard.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config.yaml (default: search the standard locations)")
	flags.StringVar(&opts.userID, "user", "", "user id to track (overrides user_id)")
	flags.BoolVar(&opts.debug, "debug", false, "write debug logs (dashboard: activity_mon-debug.log)")

	rootCmd.AddCommand(
		newTrackCommand(opts),
		newSummaryCommand(opts),
		newSessionsCommand(opts),
		newStatusCommand(opts),
		newBreakCommand(opts),
		newResumeCommand(opts),
		newLogoutCommand(opts),
		newCleanupCommand(opts),
		newClearCommand(opts),
		newThresholdCommand(opts),
	)

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (o *options) load() error {
	cfg, err := config.Resolve(o.configPath)
	if err != nil {
		return err
	}
	if o.userID != "" {
		cfg.UserID = o.userID
	}
	o.cfg = cfg
	return nil
}
