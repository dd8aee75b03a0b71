package cli

import (
	"context"
	"fmt"
	"io"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"activity_mon/internal/activity"
	"activity_mon/internal/store"
	"activity_mon/internal/tui"
)

const debugLogFile = "activity_mon-debug.log"

func runDashboard(cmd *cobra.Command, opts *options) error {
	// Anything written to the terminal would corrupt the screen
	var logOut io.Writer = io.Discard
	if opts.debug {
		f, err := tea.LogToFile(debugLogFile, "debug")
		if err != nil {
			return fmt.Errorf("opening debug log: %w", err)
		}
		defer f.Close()
		logOut = f
	} else {
		log.SetOutput(io.Discard)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := openApp(ctx, opts.cfg, logOut)
	if err != nil {
		return err
	}
	defer a.Close()

	userID := opts.cfg.UserID
	modelOpts := tui.ModelOptions{
		Source: tui.SourceFunc(func(ctx context.Context) (*activity.Record, error) {
			return a.tracker.Snapshot(ctx, userID)
		}),
		WatchKey:        a.key(),
		RefreshInterval: opts.cfg.UI.RefreshInterval,
		Theme:           opts.cfg.Theme,
	}

	if w, ok := a.backend.(store.Watchable); ok {
		watcher, err := w.Watch(ctx)
		if err != nil {
			log.Printf("store changes not watched, refreshing every %s: %v", opts.cfg.UI.RefreshInterval, err)
		} else {
			defer watcher.Stop()
			modelOpts.Watcher = watcher
		}
	}

	p := tea.NewProgram(tui.NewModel(modelOpts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
