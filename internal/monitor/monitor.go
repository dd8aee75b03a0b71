// Package monitor turns pointer motion into activity and inactivity signals.
package monitor

import (
	"context"
	"io"
	"log"
	"sync"
	"time"
)

// Default cadences.
const (
	DefaultThreshold      = 30 * time.Second
	DefaultMotionInterval = 100 * time.Millisecond
	DefaultCheckInterval  = time.Second
	defaultBuffer         = 64
)

// Point is a pointer position in screen coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// PointerSampler reads the current pointer position.
type PointerSampler interface {
	Position(ctx context.Context) (Point, error)
}

// SignalKind identifies a monitor signal.
type SignalKind int

const (
	SignalActivity SignalKind = iota
	SignalInactivity
	SignalReset
)

var signalNames = map[SignalKind]string{
	SignalActivity:   "activity-update",
	SignalInactivity: "inactivity-alert",
	SignalReset:      "activity-reset",
}

func (k SignalKind) String() string {
	if s, ok := signalNames[k]; ok {
		return s
	}
	return "unknown"
}

// Signal is emitted on the monitor's channel. Timestamp, InactiveTime and
// Threshold are milliseconds.
type Signal struct {
	Kind         SignalKind
	Timestamp    int64
	Position     Point
	InactiveTime int64
	Threshold    int64
}

// Status is a point-in-time view of the monitor.
type Status struct {
	LastActivityTime      int64 `json:"lastActivityTime"`
	IsTracking            bool  `json:"isTracking"`
	Position              Point `json:"mousePosition"`
	TimeSinceLastActivity int64 `json:"timeSinceLastActivity"`
	Threshold             int64 `json:"threshold"`
}

// Options configures a Monitor. Zero values take the defaults above.
type Options struct {
	Threshold      time.Duration
	MotionInterval time.Duration
	CheckInterval  time.Duration
	Buffer         int
	Now            func() time.Time
	Logger         *log.Logger
}

// Monitor polls a PointerSampler and watches for idle time. Tracking starts
// stopped; Run drives the pollers and Start enables them.
type Monitor struct {
	sampler        PointerSampler
	motionInterval time.Duration
	checkInterval  time.Duration
	now            func() time.Time
	logger         *log.Logger
	signals        chan Signal

	mu           sync.Mutex
	tracking     bool
	threshold    int64
	lastActivity int64
	position     Point
	havePosition bool
	dropped      int
	health       samplerHealth
}

// New creates a Monitor. A nil sampler disables motion polling; activity
// then only comes from Reset.
func New(sampler PointerSampler, opts Options) *Monitor {
	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.MotionInterval <= 0 {
		opts.MotionInterval = DefaultMotionInterval
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = DefaultCheckInterval
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}

	m := &Monitor{
		sampler:        sampler,
		motionInterval: opts.MotionInterval,
		checkInterval:  opts.CheckInterval,
		now:            opts.Now,
		logger:         opts.Logger,
		signals:        make(chan Signal, opts.Buffer),
		threshold:      opts.Threshold.Milliseconds(),
	}
	m.lastActivity = m.nowMs()
	return m
}

func (m *Monitor) nowMs() int64 { return m.now().UnixMilli() }

// Signals returns the channel signals are delivered on. It is never closed.
func (m *Monitor) Signals() <-chan Signal { return m.signals }

// Run polls until ctx is done. Ticks are ignored while tracking is off.
func (m *Monitor) Run(ctx context.Context) error {
	check := time.NewTicker(m.checkInterval)
	defer check.Stop()

	var motion <-chan time.Time
	if m.sampler != nil {
		t := time.NewTicker(m.motionInterval)
		defer t.Stop()
		motion = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-motion:
			m.SampleMotion(ctx)
		case <-check.C:
			m.CheckInactivity()
		}
	}
}

// Start enables tracking and restarts the idle clock.
func (m *Monitor) Start() {
	if m.enable() {
		m.logger.Printf("activity tracking started")
	}
}

// Stop disables tracking.
func (m *Monitor) Stop() {
	if m.disable() {
		m.logger.Printf("activity tracking stopped")
	}
}

// Pause disables tracking until Resume.
func (m *Monitor) Pause() {
	if m.disable() {
		m.logger.Printf("activity tracking paused")
	}
}

// Resume re-enables tracking and restarts the idle clock.
func (m *Monitor) Resume() {
	if m.enable() {
		m.logger.Printf("activity tracking resumed")
	}
}

func (m *Monitor) enable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tracking {
		return false
	}
	m.tracking = true
	m.lastActivity = m.nowMs()
	return true
}

func (m *Monitor) disable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.tracking {
		return false
	}
	m.tracking = false
	return true
}

// Reset restarts the idle clock and emits a reset signal, tracking or not.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = m.nowMs()
	m.emitLocked(Signal{Kind: SignalReset, Timestamp: m.lastActivity})
}

// SetThreshold changes the idle threshold in milliseconds. It takes effect
// on the next inactivity check.
func (m *Monitor) SetThreshold(ms int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = ms
}

func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		LastActivityTime:      m.lastActivity,
		IsTracking:            m.tracking,
		Position:              m.position,
		TimeSinceLastActivity: m.nowMs() - m.lastActivity,
		Threshold:             m.threshold,
	}
}

// Dropped returns how many signals were discarded because the channel was
// full.
func (m *Monitor) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// SampleMotion reads the pointer once and emits an activity signal when it
// moved. The first successful sample only sets the baseline.
func (m *Monitor) SampleMotion(ctx context.Context) {
	m.mu.Lock()
	tracking := m.tracking
	m.mu.Unlock()
	if !tracking || m.sampler == nil {
		return
	}

	pos, err := m.sampler.Position(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		if m.health.recordFailure(err) {
			m.logger.Printf("pointer sampler failing: %v", err)
		}
		return
	}
	if n := m.health.recordSuccess(); n > 0 {
		m.logger.Printf("pointer sampler recovered after %d failures", n)
	}

	if !m.tracking {
		return
	}
	if !m.havePosition {
		m.position, m.havePosition = pos, true
		return
	}
	if pos == m.position {
		return
	}
	m.position = pos
	m.lastActivity = m.nowMs()
	m.emitLocked(Signal{Kind: SignalActivity, Timestamp: m.lastActivity, Position: pos})
}

// CheckInactivity emits an inactivity signal when the idle time has reached
// the threshold. It fires on every check until activity resumes.
func (m *Monitor) CheckInactivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.tracking {
		return
	}
	idle := m.nowMs() - m.lastActivity
	if idle < m.threshold {
		return
	}
	m.emitLocked(Signal{Kind: SignalInactivity, Timestamp: m.nowMs(), InactiveTime: idle, Threshold: m.threshold})
}

// emitLocked never blocks. Caller must hold m.mu.
func (m *Monitor) emitLocked(s Signal) {
	select {
	case m.signals <- s:
	default:
		m.dropped++
		if m.dropped == 1 || m.dropped%100 == 0 {
			m.logger.Printf("signal channel full, dropped %d signals", m.dropped)
		}
	}
}

// samplerHealth counts consecutive sampler failures so a broken sampler is
// reported once per streak instead of on every poll. Guarded by Monitor.mu.
type samplerHealth struct {
	failures int
	lastErr  string
}

// recordFailure reports whether this failure starts a new streak.
func (h *samplerHealth) recordFailure(err error) bool {
	h.failures++
	h.lastErr = err.Error()
	return h.failures == 1
}

// recordSuccess ends a streak and returns its length.
func (h *samplerHealth) recordSuccess() int {
	n := h.failures
	h.failures = 0
	h.lastErr = ""
	return n
}
