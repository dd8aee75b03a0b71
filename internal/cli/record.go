package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"activity_mon/internal/activity"
)

const noDataMessage = "No activity data. Start tracking with `activity_mon track`."

// withController opens the store, picks a controller and runs fn.
func withController(cmd *cobra.Command, opts *options, fn func(ctx context.Context, c controller, out io.Writer) error) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, opts.cfg, logWriter(opts))
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	err = fn(ctx, a.controller(ctx), out)
	if isNoRecord(err) {
		fmt.Fprintln(out, noDataMessage)
		return nil
	}
	return err
}

// logWriter is where non-interactive commands log: stderr with --debug,
// nowhere otherwise.
func logWriter(opts *options) io.Writer {
	if opts.debug {
		return os.Stderr
	}
	return io.Discard
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newSummaryCommand creates the summary command
func newSummaryCommand(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show totals and today's activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, opts, func(ctx context.Context, c controller, out io.Writer) error {
				sum, err := c.Summary(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, sum)
				}
				printSummary(out, sum)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printSummary(out io.Writer, sum activity.Summary) {
	state := "inactive"
	switch {
	case sum.IsInBreak:
		state = "on break"
	case sum.IsCurrentlyActive:
		state = "active"
	}

	fmt.Fprintln(out, "Activity Summary")
	fmt.Fprintln(out, "================")
	fmt.Fprintf(out, "State:             %s\n", state)
	fmt.Fprintf(out, "Last activity:     %s\n", time.UnixMilli(sum.LastActivity).Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Total active:      %s\n", activity.FormatDuration(sum.TotalActiveTime))
	fmt.Fprintf(out, "Total inactive:    %s\n", activity.FormatDuration(sum.TotalInactiveTime))
	fmt.Fprintf(out, "Total break:       %s\n", activity.FormatDuration(sum.TotalBreakTime))
	fmt.Fprintf(out, "Inactivity alerts: %d\n", sum.TotalInactivityAlerts)
	fmt.Fprintf(out, "Active share:      %.1f%%\n", sum.ActivePercentage)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Today")
	fmt.Fprintf(out, "  Active:   %s in %d sessions\n", activity.FormatDuration(sum.TodayActiveTime), sum.TodayActiveSessions)
	fmt.Fprintf(out, "  Inactive: %s in %d sessions\n", activity.FormatDuration(sum.TodayInactiveTime), sum.TodayInactiveSessions)
	fmt.Fprintf(out, "  Breaks:   %d\n", sum.TodayBreakSessions)
}

func newSessionsCommand(opts *options) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}
			return withController(cmd, opts, func(ctx context.Context, c controller, out io.Writer) error {
				sessions, err := c.Sessions(ctx, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, sessions)
				}
				if len(sessions) == 0 {
					fmt.Fprintln(out, "No sessions recorded")
					return nil
				}
				for i, s := range sessions {
					fmt.Fprintf(out, "%3d. %-8s %s  %s\n", i+1, s.Kind, formatStart(s.StartTime), formatLength(s))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of sessions to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func formatStart(ms int64) string {
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}

func formatLength(s activity.Session) string {
	switch {
	case s.Duration != nil:
		return activity.FormatDuration(*s.Duration)
	case s.Open():
		return "open"
	}
	return "incomplete"
}

func newStatusCommand(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, opts, func(ctx context.Context, c controller, out io.Writer) error {
				st, err := c.Status(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, st)
				}
				printStatus(out, st)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printStatus(out io.Writer, st activity.SessionStatus) {
	switch {
	case st.StartTime == nil:
		fmt.Fprintln(out, st.Status)
	case st.Type == activity.StatusBreak:
		fmt.Fprintf(out, "%s since %s\n", st.Status, formatStart(*st.StartTime))
	default:
		fmt.Fprintf(out, "%s for %s (since %s)\n", st.Status, activity.FormatDuration(st.Duration), formatStart(*st.StartTime))
	}
}

// sessionCommand builds a command that changes the record and then prints
// the resulting status.
func sessionCommand(opts *options, use, short string, op func(controller, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, opts, func(ctx context.Context, c controller, out io.Writer) error {
				if err := op(c, ctx); err != nil {
					return err
				}
				st, err := c.Status(ctx)
				if err != nil {
					return err
				}
				printStatus(out, st)
				return nil
			})
		},
	}
}

func newBreakCommand(opts *options) *cobra.Command {
	return sessionCommand(opts, "break", "Start a break", (controller).EnterBreak)
}

func newResumeCommand(opts *options) *cobra.Command {
	return sessionCommand(opts, "resume", "End the current break", (controller).ExitBreak)
}

func newLogoutCommand(opts *options) *cobra.Command {
	return sessionCommand(opts, "logout", "Close the open session and stop accruing time", (controller).MarkLoggedOut)
}

func newCleanupCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Drop stale open and half-written sessions from history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, opts, func(ctx context.Context, c controller, out io.Writer) error {
				removed, err := c.Cleanup(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d sessions\n", removed)
				return nil
			})
		},
	}
}

func newClearCommand(opts *options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored activity for the user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete activity for %q without --yes", opts.cfg.UserID)
			}
			ctx := cmd.Context()
			a, err := openApp(ctx, opts.cfg, logWriter(opts))
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.tracker.Clear(ctx, opts.cfg.UserID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared activity data for %s\n", opts.cfg.UserID)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

func newThresholdCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "threshold <duration>",
		Short: "Change the running daemon's inactivity threshold",
		Long: `Change the inactivity threshold of a running "track" daemon, e.g. "2m".
The daemon must run with server.enabled. The change lasts until it restarts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := time.ParseDuration(args[0])
			if err != nil {
				return fmt.Errorf("invalid duration %q: %w", args[0], err)
			}
			if d <= 0 {
				return fmt.Errorf("threshold must be positive")
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, opts.cfg, logWriter(opts))
			if err != nil {
				return err
			}
			defer a.Close()

			c := a.client(ctx)
			if c == nil {
				return fmt.Errorf("no daemon reachable at %s", opts.cfg.Server.BaseURL())
			}
			st, err := c.SetThreshold(ctx, d.Milliseconds())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Inactivity threshold set to %s\n", time.Duration(st.Threshold)*time.Millisecond)
			return nil
		},
	}
}
