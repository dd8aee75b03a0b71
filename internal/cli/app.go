package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"activity_mon/internal/activity"
	"activity_mon/internal/api"
	"activity_mon/internal/config"
	"activity_mon/internal/store"
)

// app is the opened store plus the tracker over it.
type app struct {
	cfg     *config.Config
	backend store.Backend
	tracker *activity.Tracker
	logOut  io.Writer
}

func openApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, error) {
	backend, err := store.Open(ctx, store.Options{
		Backend:  cfg.Store.Backend,
		Dir:      cfg.Store.Dir,
		RedisURL: cfg.Store.RedisURL,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
	}

	a := &app{cfg: cfg, backend: backend, logOut: logOut}
	a.tracker = activity.NewTracker(backend,
		activity.WithKeyFunc(store.KeyFunc(cfg.Store.KeyPrefix)),
		activity.WithLogger(a.logger("tracker")),
	)
	return a, nil
}

func (a *app) logger(component string) *log.Logger {
	return log.New(a.logOut, component+": ", log.LstdFlags)
}

func (a *app) key() string {
	return store.KeyFunc(a.cfg.Store.KeyPrefix)(a.cfg.UserID)
}

func (a *app) Close() error { return a.backend.Close() }

// controller is what the record commands drive: a running daemon through
// its API, or the store directly when no daemon answers.
type controller interface {
	Summary(ctx context.Context) (activity.Summary, error)
	Status(ctx context.Context) (activity.SessionStatus, error)
	Sessions(ctx context.Context, n int) ([]activity.Session, error)
	EnterBreak(ctx context.Context) error
	ExitBreak(ctx context.Context) error
	MarkLoggedOut(ctx context.Context) error
	Cleanup(ctx context.Context) (int, error)
}

var (
	_ controller = (*api.Client)(nil)
	_ controller = direct{}
)

// controller prefers a reachable daemon so its monitor and record stay in
// step; otherwise it writes through the tracker.
func (a *app) controller(ctx context.Context) controller {
	if c := a.client(ctx); c != nil {
		return c
	}
	return direct{tracker: a.tracker, userID: a.cfg.UserID}
}

// client returns an API client if a daemon answers on the configured
// address.
func (a *app) client(ctx context.Context) *api.Client {
	if !a.cfg.Server.Enabled {
		return nil
	}
	c := api.NewClient(a.cfg.Server.BaseURL(), a.cfg.Server.Token)
	if err := c.Ping(ctx); err != nil {
		return nil
	}
	return c
}

// direct applies commands to the store without a daemon.
type direct struct {
	tracker *activity.Tracker
	userID  string
}

func (d direct) Summary(ctx context.Context) (activity.Summary, error) {
	return d.tracker.Summary(ctx, d.userID)
}

func (d direct) Status(ctx context.Context) (activity.SessionStatus, error) {
	return d.tracker.Status(ctx, d.userID)
}

func (d direct) Sessions(ctx context.Context, n int) ([]activity.Session, error) {
	rec, err := d.tracker.Snapshot(ctx, d.userID)
	if err != nil {
		return nil, err
	}
	return activity.RecentSessions(rec, n), nil
}

func (d direct) EnterBreak(ctx context.Context) error {
	_, err := d.tracker.EnterBreak(ctx, d.userID)
	return err
}

func (d direct) ExitBreak(ctx context.Context) error {
	_, err := d.tracker.ExitBreak(ctx, d.userID)
	return err
}

func (d direct) MarkLoggedOut(ctx context.Context) error {
	_, err := d.tracker.MarkLoggedOut(ctx, d.userID)
	return err
}

func (d direct) Cleanup(ctx context.Context) (int, error) {
	return d.tracker.CleanupDuplicateSessions(ctx, d.userID)
}

// isNoRecord reports a missing record from either the tracker or the API.
func isNoRecord(err error) bool {
	if errors.Is(err, activity.ErrNoRecord) {
		return true
	}
	var apiErr *api.APIError
	return errors.As(err, &apiErr) && apiErr.NotFound()
}
