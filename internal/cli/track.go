package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"activity_mon/internal/api"
	"activity_mon/internal/config"
	"activity_mon/internal/daemon"
	"activity_mon/internal/monitor"
)

func newTrackCommand(opts *options) *cobra.Command {
	var (
		sampler string
		serve   bool
	)
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Run the tracking daemon in the foreground",
		Long: `Track pointer activity and record active, inactive and break sessions
until interrupted. With server.enabled (or --serve) the daemon also answers
the HTTP API and websocket feed, and the other commands go through it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sampler != "" {
				opts.cfg.Tracking.Sampler = sampler
			}
			if cmd.Flags().Changed("serve") {
				opts.cfg.Server.Enabled = serve
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runTrack(ctx, opts.cfg, os.Stderr)
		},
	}
	cmd.Flags().StringVar(&sampler, "sampler", "", `pointer sampler: "xdotool" or "none" (overrides tracking.sampler)`)
	cmd.Flags().BoolVar(&serve, "serve", false, "serve the HTTP API (overrides server.enabled)")
	return cmd
}

// runTrack runs the daemon, and the API server when enabled, until ctx is
// done or either of them fails.
func runTrack(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	a, err := openApp(ctx, cfg, logOut)
	if err != nil {
		return err
	}
	defer a.Close()

	sampler, err := monitor.NewSampler(cfg.Tracking.Sampler)
	if err != nil {
		return err
	}
	logger := a.logger("track")
	if sampler == nil {
		logger.Printf("pointer sampling disabled, only resets count as activity")
	}

	mon := monitor.New(sampler, monitor.Options{
		Threshold:      cfg.Tracking.InactivityThreshold,
		MotionInterval: cfg.Tracking.MotionInterval,
		CheckInterval:  cfg.Tracking.InactivityCheckInterval,
		Logger:         a.logger("monitor"),
	})
	d := daemon.New(a.tracker, mon, cfg.UserID, a.logger("daemon"))

	if !cfg.Server.Enabled {
		return d.Run(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := api.NewServer(d, api.Options{
		Token:        cfg.Server.Token,
		PushInterval: cfg.UI.RefreshInterval,
		Logger:       a.logger("api"),
	})

	errc := make(chan error, 2)
	go func() {
		if err := d.Run(ctx); err != nil {
			errc <- fmt.Errorf("daemon: %w", err)
			return
		}
		errc <- nil
	}()
	go func() {
		if err := srv.ListenAndServe(ctx, cfg.Server.Addr()); err != nil {
			errc <- fmt.Errorf("api: %w", err)
			return
		}
		errc <- nil
	}()

	// The first one to finish stops the other.
	err = <-errc
	cancel()
	if err2 := <-errc; err == nil {
		err = err2
	}
	return err
}
