// Package daemon is the single writer for one user's activity record. It
// drains monitor signals and control commands on one goroutine so that every
// load-modify-store cycle against the record is serialized.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"activity_mon/internal/activity"
	"activity_mon/internal/monitor"
)

// ErrNotRunning is returned by commands issued while Run is not active.
var ErrNotRunning = errors.New("daemon is not running")

type command struct {
	fn   func(ctx context.Context) error
	done chan error
}

type Daemon struct {
	tracker *activity.Tracker
	monitor *monitor.Monitor
	userID  string
	logger  *log.Logger

	// ownSince is the start of the last active session this daemon opened.
	// Only the Run goroutine touches it.
	ownSince int64

	commands chan command
	running  chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// New returns a Daemon for userID. A nil logger discards output.
func New(tracker *activity.Tracker, mon *monitor.Monitor, userID string, logger *log.Logger) *Daemon {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Daemon{
		tracker:  tracker,
		monitor:  mon,
		userID:   userID,
		logger:   logger,
		commands: make(chan command),
		running:  make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// UserID returns the user whose record the daemon writes.
func (d *Daemon) UserID() string { return d.userID }

// Running is closed once Run has initialized the record and started
// tracking.
func (d *Daemon) Running() <-chan struct{} { return d.running }

// Run initializes the user's record, starts tracking and applies signals and
// commands until ctx is done. It may be called once.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.stopOnce.Do(func() { close(d.stopped) })

	rec, err := d.tracker.Initialize(ctx, d.userID)
	if err != nil {
		return fmt.Errorf("initializing activity record: %w", err)
	}
	d.note(rec)

	monCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.monitor.Run(monCtx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	d.monitor.Start()
	d.logger.Printf("tracking activity for %s", d.userID)
	close(d.running)

	for {
		select {
		case <-ctx.Done():
			d.monitor.Stop()
			return nil
		case sig := <-d.monitor.Signals():
			d.handleSignal(ctx, sig)
		case cmd := <-d.commands:
			cmd.done <- cmd.fn(ctx)
		}
	}
}

func (d *Daemon) handleSignal(ctx context.Context, sig monitor.Signal) {
	var (
		rec *activity.Record
		err error
	)
	switch sig.Kind {
	case monitor.SignalActivity, monitor.SignalReset:
		rec, err = d.tracker.ActivityObserved(ctx, d.userID)
		if errors.Is(err, activity.ErrNoRecord) {
			// Cleared while running; start over.
			rec, err = d.tracker.Initialize(ctx, d.userID)
		}
	case monitor.SignalInactivity:
		if d.openedElsewhere(ctx, sig) {
			d.logger.Printf("active session opened outside the daemon, restarting idle clock")
			d.monitor.Reset()
			return
		}
		rec, err = d.tracker.InactivityDetected(ctx, d.userID)
	}
	if err != nil && !errors.Is(err, activity.ErrNoRecord) {
		d.logger.Printf("applying %s: %v", sig.Kind, err)
	}
	d.note(rec)
}

// note remembers the active session the daemon just wrote.
func (d *Daemon) note(rec *activity.Record) {
	if rec != nil && rec.State.Kind == activity.StateActive {
		d.ownSince = rec.State.Since
	}
}

// openedElsewhere reports whether the stored active session was opened by
// another writer (a direct `resume`, for one) less than a threshold ago. The
// monitor's idle clock predates such a session.
func (d *Daemon) openedElsewhere(ctx context.Context, sig monitor.Signal) bool {
	rec, err := d.tracker.Snapshot(ctx, d.userID)
	if err != nil || rec.State.Kind != activity.StateActive {
		return false
	}
	since := rec.State.Since
	return since != d.ownSince && sig.Timestamp-since < sig.Threshold
}

// do runs fn on the daemon goroutine and waits for its result.
func (d *Daemon) do(ctx context.Context, fn func(ctx context.Context) error) error {
	cmd := command{fn: fn, done: make(chan error, 1)}
	select {
	case d.commands <- cmd:
	case <-d.stopped:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnterBreak opens a break session.
func (d *Daemon) EnterBreak(ctx context.Context) error {
	return d.do(ctx, func(ctx context.Context) error {
		_, err := d.tracker.EnterBreak(ctx, d.userID)
		return err
	})
}

// ExitBreak resumes from a break and restarts the idle clock so a long break
// is not reported as inactivity on the next check.
func (d *Daemon) ExitBreak(ctx context.Context) error {
	return d.do(ctx, func(ctx context.Context) error {
		rec, err := d.tracker.ExitBreak(ctx, d.userID)
		if err != nil {
			return err
		}
		d.note(rec)
		d.monitor.Reset()
		return nil
	})
}

func (d *Daemon) MarkLoggedOut(ctx context.Context) error {
	return d.do(ctx, func(ctx context.Context) error {
		_, err := d.tracker.MarkLoggedOut(ctx, d.userID)
		return err
	})
}

// Cleanup removes partially written sessions and returns how many were
// dropped.
func (d *Daemon) Cleanup(ctx context.Context) (int, error) {
	var removed int
	err := d.do(ctx, func(ctx context.Context) error {
		var err error
		removed, err = d.tracker.CleanupDuplicateSessions(ctx, d.userID)
		return err
	})
	return removed, err
}

// Tracking controls.

func (d *Daemon) StartTracking(ctx context.Context) error {
	return d.do(ctx, func(context.Context) error { d.monitor.Start(); return nil })
}

func (d *Daemon) StopTracking(ctx context.Context) error {
	return d.do(ctx, func(context.Context) error { d.monitor.Stop(); return nil })
}

func (d *Daemon) PauseTracking(ctx context.Context) error {
	return d.do(ctx, func(context.Context) error { d.monitor.Pause(); return nil })
}

func (d *Daemon) ResumeTracking(ctx context.Context) error {
	return d.do(ctx, func(context.Context) error { d.monitor.Resume(); return nil })
}

func (d *Daemon) ResetTracking(ctx context.Context) error {
	return d.do(ctx, func(context.Context) error { d.monitor.Reset(); return nil })
}

func (d *Daemon) SetThreshold(ctx context.Context, ms int64) error {
	return d.do(ctx, func(context.Context) error { d.monitor.SetThreshold(ms); return nil })
}

func (d *Daemon) TrackingStatus() monitor.Status { return d.monitor.Status() }

// Reads go straight to the store.

func (d *Daemon) Summary(ctx context.Context) (activity.Summary, error) {
	return d.tracker.Summary(ctx, d.userID)
}

func (d *Daemon) Status(ctx context.Context) (activity.SessionStatus, error) {
	return d.tracker.Status(ctx, d.userID)
}

// Sessions returns up to n sessions, newest first.
func (d *Daemon) Sessions(ctx context.Context, n int) ([]activity.Session, error) {
	rec, err := d.tracker.Snapshot(ctx, d.userID)
	if err != nil {
		return nil, err
	}
	return activity.RecentSessions(rec, n), nil
}
