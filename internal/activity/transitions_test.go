package activity

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// t0 is an arbitrary non-zero epoch so that a session start of 0 never
// collides with the "no open session" encoding.
const t0 = int64(1_700_000_000_000)

func TestInactivityThenActivityScenario(t *testing.T) {
	r := NewRecord("alice", t0)
	require.Equal(t, 1, r.History.Len())
	assert.True(t, r.History.At(0).Open())
	assert.Equal(t, Active(t0), r.State)

	require.True(t, r.DetectInactivity(t0+45000))
	assert.Equal(t, int64(45000), r.TotalActiveTime)
	assert.Equal(t, 1, r.InactivityAlerts)
	assert.Equal(t, Inactive(t0+45000), r.State)
	require.Equal(t, 2, r.History.Len())
	first := r.History.At(0)
	require.True(t, first.Closed())
	assert.Equal(t, int64(45000), *first.Duration)
	assert.Equal(t, t0+45000, *first.EndTime)
	assert.Equal(t, KindInactive, r.History.At(1).Kind)
	assert.True(t, r.History.At(1).Open())

	require.True(t, r.ObserveActivity(t0+50000))
	assert.Equal(t, int64(5000), r.TotalInactiveTime)
	assert.Equal(t, Active(t0+50000), r.State)
	assert.Equal(t, t0+50000, r.LastActivityTime)
	require.Equal(t, 3, r.History.Len())
	assert.Equal(t, int64(5000), *r.History.At(1).Duration)
	last := r.History.At(2)
	assert.Equal(t, KindActive, last.Kind)
	assert.Equal(t, t0+50000, last.StartTime)
	assert.True(t, last.Open())
}

func TestDetectInactivityIsIdempotent(t *testing.T) {
	r := NewRecord("alice", t0)
	require.True(t, r.DetectInactivity(t0+1000))
	assert.False(t, r.DetectInactivity(t0+2000))
	assert.False(t, r.DetectInactivity(t0+3000))

	assert.Equal(t, 2, r.History.Len())
	assert.Equal(t, 1, r.InactivityAlerts)
	assert.Equal(t, Inactive(t0+1000), r.State)
}

func TestObserveActivityWhileActiveOnlyTouchesLastActivity(t *testing.T) {
	r := NewRecord("alice", t0)
	require.True(t, r.ObserveActivity(t0+700))

	assert.Equal(t, 1, r.History.Len())
	assert.Equal(t, Active(t0), r.State)
	assert.Equal(t, t0+700, r.LastActivityTime)
	assert.Zero(t, r.TotalActiveTime)
}

func TestObserveActivityDuringBreakIsNoop(t *testing.T) {
	r := NewRecord("alice", t0)
	r.EnterBreak(t0 + 1000)
	before := r.Clone()

	assert.False(t, r.ObserveActivity(t0+2000))
	assert.Equal(t, before, r)
}

func TestBreakWithZeroElapsed(t *testing.T) {
	r := NewRecord("alice", t0)
	require.True(t, r.EnterBreak(t0))
	assert.Equal(t, Break(t0, t0), r.State)
	require.True(t, r.ExitBreak(t0))

	assert.Zero(t, r.TotalActiveTime)
	assert.Zero(t, r.TotalBreakTime)
	require.Equal(t, 3, r.History.Len())

	active := r.History.At(0)
	require.True(t, active.Closed())
	assert.Equal(t, int64(0), *active.Duration)

	brk := r.History.At(1)
	assert.Equal(t, KindBreak, brk.Kind)
	assert.True(t, brk.Open())

	resumed := r.History.At(2)
	assert.Equal(t, KindActive, resumed.Kind)
	assert.True(t, resumed.Open())
	assert.Equal(t, Active(t0), r.State)
}

func TestBreakAccounting(t *testing.T) {
	r := NewRecord("alice", t0)
	r.EnterBreak(t0 + 10_000)
	assert.Equal(t, int64(10_000), r.TotalActiveTime)
	assert.Equal(t, t0, r.State.Paused)

	r.ExitBreak(t0 + 70_000)
	assert.Equal(t, int64(10_000), r.TotalActiveTime)
	assert.Zero(t, r.TotalInactiveTime)
	assert.Equal(t, int64(60_000), r.TotalBreakTime)
	assert.Equal(t, Active(t0+70_000), r.State)
}

func TestEnterBreakTwiceIsNoop(t *testing.T) {
	r := NewRecord("alice", t0)
	require.True(t, r.EnterBreak(t0+1000))
	assert.False(t, r.EnterBreak(t0+2000))
	assert.Equal(t, 2, r.History.Len())
}

func TestExitBreakOutsideBreakIsNoop(t *testing.T) {
	r := NewRecord("alice", t0)
	assert.False(t, r.ExitBreak(t0+1000))
	assert.Equal(t, 1, r.History.Len())
}

func TestEnterBreakFromInactiveClosesInactiveSession(t *testing.T) {
	r := NewRecord("alice", t0)
	r.DetectInactivity(t0 + 1000)
	r.EnterBreak(t0 + 4000)

	assert.Equal(t, int64(3000), r.TotalInactiveTime)
	assert.Equal(t, Break(t0+4000, 0), r.State)
	inactive := r.History.At(1)
	require.True(t, inactive.Closed())
	assert.Equal(t, int64(3000), *inactive.Duration)
}

func TestInactivityDuringBreakIsNoop(t *testing.T) {
	r := NewRecord("alice", t0)
	r.EnterBreak(t0 + 1000)
	assert.False(t, r.DetectInactivity(t0+40_000))
	assert.Zero(t, r.InactivityAlerts)
}

func TestLogOutWhileActive(t *testing.T) {
	start := t0 + 5000
	r := NewRecord("alice", t0)
	r.DetectInactivity(start - 1000)
	r.ObserveActivity(start)
	activeBefore := r.TotalActiveTime

	logout := start + 12_345
	require.True(t, r.LogOut(logout))
	assert.Equal(t, activeBefore+12_345, r.TotalActiveTime)
	assert.Equal(t, None(), r.State)
	assert.Equal(t, logout, r.LastActivityTime)
	assert.Equal(t, 3, r.History.Len(), "history is kept")

	st := CurrentStatus(r, time.UnixMilli(logout+1000))
	assert.Equal(t, StatusNone, st.Type)
	assert.Nil(t, st.StartTime)
}

func TestLogOutFromInactiveClosesInactiveSession(t *testing.T) {
	r := NewRecord("alice", t0)
	r.DetectInactivity(t0 + 1000)
	activeBefore := r.TotalActiveTime

	require.True(t, r.LogOut(t0+6000))
	assert.Equal(t, int64(5000), r.TotalInactiveTime)
	assert.Equal(t, activeBefore, r.TotalActiveTime)
	assert.Equal(t, None(), r.State)
	inactive := r.History.At(1)
	require.True(t, inactive.Closed())
	assert.Equal(t, int64(5000), *inactive.Duration)
}

func TestLogOutDuringBreakEndsBreak(t *testing.T) {
	r := NewRecord("alice", t0)
	r.EnterBreak(t0 + 1000)
	r.LogOut(t0 + 2000)
	assert.Equal(t, None(), r.State)
}

func TestObserveActivityAfterLogOutOpensActiveSession(t *testing.T) {
	r := NewRecord("alice", t0)
	r.LogOut(t0 + 1000)
	totals := r.TotalActiveTime

	require.True(t, r.ObserveActivity(t0+9000))
	assert.Equal(t, Active(t0+9000), r.State)
	assert.Equal(t, totals, r.TotalActiveTime)
	assert.Equal(t, KindActive, r.History.Last().Kind)
	assert.True(t, r.History.Last().Open())
}

func TestHistoryNeverExceedsCap(t *testing.T) {
	r := NewRecord("alice", t0)
	now := t0
	for i := 0; i < 3*MaxSessions; i++ {
		now += 1000
		if i%2 == 0 {
			r.DetectInactivity(now)
		} else {
			r.ObserveActivity(now)
		}
		require.LessOrEqual(t, r.History.Len(), MaxSessions)
	}

	// 1 seed + 300 transitions = 301 sessions; the oldest 201 were evicted.
	assert.Equal(t, MaxSessions, r.History.Len())
	assert.Equal(t, t0+201*1000, r.History.At(0).StartTime)
	assert.Equal(t, now, r.History.Last().StartTime)
}

func TestTimeIsConserved(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	r := NewRecord("alice", t0)
	now := t0

	for i := 0; i < 500; i++ {
		now += rng.Int64N(90_000)
		switch rng.IntN(4) {
		case 0:
			r.ObserveActivity(now)
		case 1:
			r.DetectInactivity(now)
		case 2:
			r.EnterBreak(now)
		case 3:
			r.ExitBreak(now)
		}

		active, inactive := currentElapsed(r, now)
		var breakElapsed int64
		if r.State.Kind == StateBreak {
			breakElapsed = now - r.State.Since
		}
		accounted := r.TotalActiveTime + r.TotalInactiveTime + active + inactive
		require.Equal(t, now-t0-r.TotalBreakTime-breakElapsed, accounted, "step %d", i)
	}
}

func TestClosedDurationsMatchTotals(t *testing.T) {
	r := NewRecord("alice", t0)
	r.DetectInactivity(t0 + 30_000)
	r.ObserveActivity(t0 + 31_000)
	r.EnterBreak(t0 + 40_000)
	r.ExitBreak(t0 + 100_000)
	r.DetectInactivity(t0 + 130_000)

	var closed int64
	for _, s := range r.History.Sessions() {
		if s.Closed() {
			closed += *s.Duration
		}
	}
	now := t0 + 135_000
	_, inactive := currentElapsed(r, now)
	assert.Equal(t, now-t0-r.TotalBreakTime, closed+inactive)
}

func TestRemoveIncomplete(t *testing.T) {
	end, dur := t0+10, int64(10)
	r := &Record{UserID: "alice", State: Inactive(t0 + 30)}
	r.History.Push(Session{UserID: "alice", StartTime: t0, EndTime: &end, Duration: &dur, Kind: KindActive})
	// stranded open break
	r.History.Push(Session{UserID: "alice", StartTime: t0 + 10, Kind: KindBreak})
	// half written
	r.History.Push(Session{UserID: "alice", StartTime: t0 + 20, EndTime: &end, Kind: KindActive})
	// current
	r.History.Push(Session{UserID: "alice", StartTime: t0 + 30, Kind: KindInactive})

	removed := r.RemoveIncomplete()
	assert.Equal(t, 2, removed)
	require.Equal(t, 2, r.History.Len())
	assert.True(t, r.History.At(0).Closed())
	assert.Equal(t, t0+30, r.History.At(1).StartTime)
}

func TestRemoveIncompleteDropsOpenTailAfterLogout(t *testing.T) {
	r := NewRecord("alice", t0)
	r.EnterBreak(t0 + 1000)
	r.LogOut(t0 + 2000)

	// The closed active session survives; the break no longer matches the
	// (empty) current state.
	assert.Equal(t, 1, r.RemoveIncomplete())
	assert.Equal(t, 1, r.History.Len())
}

func TestRemoveIncompleteKeepsZeroDurationSessions(t *testing.T) {
	r := NewRecord("alice", t0)
	r.EnterBreak(t0)
	r.ExitBreak(t0)

	// Only the stranded break is dropped.
	assert.Equal(t, 1, r.RemoveIncomplete())
	assert.Equal(t, 2, r.History.Len())
	assert.True(t, r.History.At(0).Closed())
}
