package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"
)

// Store is the persistence contract: one JSON blob per key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Tracker applies state-machine operations to records held in a Store.
// It assumes a single writer per user and does no locking of its own.
type Tracker struct {
	store  Store
	key    func(userID string) string
	now    func() time.Time
	logger *log.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogger sets the logger used for recovered failures.
func WithLogger(l *log.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithKeyFunc sets how user IDs map to store keys.
func WithKeyFunc(fn func(userID string) string) Option {
	return func(t *Tracker) { t.key = fn }
}

func NewTracker(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		key:    func(userID string) string { return "activity-" + userID },
		now:    time.Now,
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Now returns the tracker's clock reading.
func (t *Tracker) Now() time.Time { return t.now() }

// Snapshot loads the user's record without modifying it. A malformed record
// reads as missing: the error matches both ErrNoRecord and ErrInvalidRecord,
// and the next write replaces it.
func (t *Tracker) Snapshot(ctx context.Context, userID string) (*Record, error) {
	rec, err := t.load(ctx, userID)
	if errors.Is(err, ErrInvalidRecord) {
		t.logger.Printf("ignoring malformed record for %s: %v", userID, err)
		return nil, fmt.Errorf("%w: %w", ErrNoRecord, err)
	}
	return rec, err
}

func (t *Tracker) load(ctx context.Context, userID string) (*Record, error) {
	data, ok, err := t.store.Get(ctx, t.key(userID))
	if err != nil {
		return nil, fmt.Errorf("loading record: %w", err)
	}
	if !ok {
		return nil, ErrNoRecord
	}
	rec, err := DecodeRecord(data)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, fmt.Errorf("%w: record belongs to %q", ErrInvalidRecord, rec.UserID)
	}
	return rec, nil
}

// Initialize seeds a record with one open active session unless one already
// exists. A malformed stored record is replaced.
func (t *Tracker) Initialize(ctx context.Context, userID string) (*Record, error) {
	rec, err := t.load(ctx, userID)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, ErrInvalidRecord):
		t.logger.Printf("discarding malformed record for %s: %v", userID, err)
	case !errors.Is(err, ErrNoRecord):
		return nil, err
	}

	rec = NewRecord(userID, t.now().UnixMilli())
	if err := t.save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (t *Tracker) ActivityObserved(ctx context.Context, userID string) (*Record, error) {
	return t.update(ctx, userID, (*Record).ObserveActivity)
}

func (t *Tracker) InactivityDetected(ctx context.Context, userID string) (*Record, error) {
	return t.update(ctx, userID, (*Record).DetectInactivity)
}

func (t *Tracker) EnterBreak(ctx context.Context, userID string) (*Record, error) {
	return t.update(ctx, userID, (*Record).EnterBreak)
}

func (t *Tracker) ExitBreak(ctx context.Context, userID string) (*Record, error) {
	return t.update(ctx, userID, (*Record).ExitBreak)
}

func (t *Tracker) MarkLoggedOut(ctx context.Context, userID string) (*Record, error) {
	return t.update(ctx, userID, (*Record).LogOut)
}

// CleanupDuplicateSessions removes partially written sessions from the
// user's history and returns how many were dropped.
func (t *Tracker) CleanupDuplicateSessions(ctx context.Context, userID string) (int, error) {
	var removed int
	_, err := t.update(ctx, userID, func(r *Record, _ int64) bool {
		removed = r.RemoveIncomplete()
		return removed > 0
	})
	return removed, err
}

// Clear deletes the user's record.
func (t *Tracker) Clear(ctx context.Context, userID string) error {
	if err := t.store.Delete(ctx, t.key(userID)); err != nil {
		return fmt.Errorf("clearing record: %w", err)
	}
	return nil
}

// Summary computes the read-only summary for the user at the current time.
func (t *Tracker) Summary(ctx context.Context, userID string) (Summary, error) {
	rec, err := t.Snapshot(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(rec, t.now()), nil
}

// Status computes the current-session status for the user.
func (t *Tracker) Status(ctx context.Context, userID string) (SessionStatus, error) {
	rec, err := t.Snapshot(ctx, userID)
	if err != nil {
		return SessionStatus{}, err
	}
	return CurrentStatus(rec, t.now()), nil
}

// update loads the record, applies fn and persists the result when fn
// reports a change. A malformed record is replaced by a fresh one before fn
// runs; a missing record is ErrNoRecord.
func (t *Tracker) update(ctx context.Context, userID string, fn func(*Record, int64) bool) (*Record, error) {
	now := t.now().UnixMilli()

	dirty := false
	rec, err := t.load(ctx, userID)
	switch {
	case errors.Is(err, ErrInvalidRecord):
		t.logger.Printf("discarding malformed record for %s: %v", userID, err)
		rec = NewRecord(userID, now)
		dirty = true
	case err != nil:
		return nil, err
	}

	if fn(rec, now) {
		dirty = true
	}
	if dirty {
		if err := t.save(ctx, rec); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func (t *Tracker) save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if err := t.store.Set(ctx, t.key(rec.UserID), data); err != nil {
		return fmt.Errorf("saving record: %w", err)
	}
	return nil
}
