package activity

// The transitions below are pure functions of (record, now). Each appends at
// most one session; the History ring enforces the MaxSessions bound.
// They report whether the record changed and must be persisted.

// ObserveActivity handles an "activity observed" signal. During a break it
// does nothing. From inactive (or no session) it opens a new active session;
// while already active it only refreshes LastActivityTime.
func (r *Record) ObserveActivity(now int64) bool {
	switch r.State.Kind {
	case StateBreak:
		return false
	case StateActive:
		r.LastActivityTime = now
		return true
	}
	r.closeOpen(now)
	r.State = Active(now)
	r.LastActivityTime = now
	r.open(KindActive, now)
	return true
}

// DetectInactivity handles an "inactivity threshold exceeded" signal. Only an
// active user transitions; repeated signals never stack inactive sessions or
// alerts.
func (r *Record) DetectInactivity(now int64) bool {
	if r.State.Kind != StateActive {
		return false
	}
	r.closeOpen(now)
	r.State = Inactive(now)
	r.InactivityAlerts++
	r.open(KindInactive, now)
	return true
}

// EnterBreak closes the open active or inactive session and opens a break.
// The start of an interrupted active session is kept in State.Paused.
func (r *Record) EnterBreak(now int64) bool {
	if r.State.Kind == StateBreak {
		return false
	}
	var paused int64
	if r.State.Kind == StateActive {
		paused = r.State.Since
	}
	r.closeOpen(now)
	r.State = Break(now, paused)
	r.LastActivityTime = now
	r.open(KindBreak, now)
	return true
}

// ExitBreak resumes tracking with a new active session. The break session is
// left open; its length goes to TotalBreakTime only.
func (r *Record) ExitBreak(now int64) bool {
	if r.State.Kind != StateBreak {
		return false
	}
	r.TotalBreakTime += max(0, now-r.State.Since)
	r.State = Active(now)
	r.LastActivityTime = now
	r.open(KindActive, now)
	return true
}

// LogOut closes any open active or inactive session and leaves the user with
// no open session. History and totals are kept.
func (r *Record) LogOut(now int64) bool {
	r.closeOpen(now)
	r.State = None()
	r.LastActivityTime = now
	return true
}

// RemoveIncomplete drops every session that is not fully closed, except a
// newest entry that is the legitimately open current session. It returns the
// number of sessions removed.
func (r *Record) RemoveIncomplete() int {
	n := r.History.Len()
	return r.History.Retain(func(i int, s Session) bool {
		if s.Closed() {
			return true
		}
		return i == n-1 && r.isCurrent(s)
	})
}

func (r *Record) isCurrent(s Session) bool {
	kind, ok := r.State.SessionKind()
	return ok && s.Open() && s.Kind == kind
}

// closeOpen ends the open active or inactive session at now and accrues its
// elapsed time into the matching total.
func (r *Record) closeOpen(now int64) {
	var kind SessionKind
	switch r.State.Kind {
	case StateActive:
		kind = KindActive
	case StateInactive:
		kind = KindInactive
	default:
		return
	}

	elapsed := max(0, now-r.State.Since)
	if last := r.History.Last(); last != nil && last.Kind == kind && last.Open() {
		last.close(now, elapsed)
	}
	if kind == KindActive {
		r.TotalActiveTime += elapsed
	} else {
		r.TotalInactiveTime += elapsed
	}
}

func (r *Record) open(kind SessionKind, now int64) {
	r.History.Push(Session{UserID: r.UserID, StartTime: now, Kind: kind})
}
