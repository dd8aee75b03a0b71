package activity

import (
	"fmt"
	"time"
)

// Summary is the derived, read-only view of a record at a point in time.
// Durations are milliseconds.
type Summary struct {
	TotalActiveTime       int64   `json:"totalActiveTime"`
	TotalInactiveTime     int64   `json:"totalInactiveTime"`
	TotalBreakTime        int64   `json:"totalBreakTime"`
	TotalInactivityAlerts int     `json:"totalInactivityAlerts"`
	TodayActiveTime       int64   `json:"todayActiveTime"`
	TodayInactiveTime     int64   `json:"todayInactiveTime"`
	TodayActiveSessions   int     `json:"todayActiveSessions"`
	TodayInactiveSessions int     `json:"todayInactiveSessions"`
	TodayBreakSessions    int     `json:"todayBreakSessions"`
	ActivePercentage      float64 `json:"activePercentage"`
	LastActivity          int64   `json:"lastActivity"`
	IsCurrentlyActive     bool    `json:"isCurrentlyActive"`
	IsInBreak             bool    `json:"isInBreak"`
}

// StatusType classifies the current session for display.
type StatusType string

const (
	StatusActive   StatusType = "active"
	StatusInactive StatusType = "inactive"
	StatusBreak    StatusType = "break"
	StatusNone     StatusType = "none"
)

// SessionStatus describes the open session. StartTime is nil when there is
// no open session.
type SessionStatus struct {
	Type      StatusType `json:"type"`
	Status    string     `json:"status"`
	StartTime *int64     `json:"startTime"`
	Duration  int64      `json:"duration"`
	IsActive  bool       `json:"isActive"`
}

// StartOfDay returns local midnight of now's day in now's location.
func StartOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// currentElapsed splits the open session's elapsed time into the active and
// inactive accumulators. Breaks and "no session" contribute nothing.
func currentElapsed(r *Record, now int64) (active, inactive int64) {
	switch r.State.Kind {
	case StateActive:
		active = max(0, now-r.State.Since)
	case StateInactive:
		inactive = max(0, now-r.State.Since)
	}
	return active, inactive
}

// Summarize computes totals and today's rollups. "Today" starts at local
// midnight of now; a session belongs to today when it started at or after
// that boundary.
func Summarize(r *Record, now time.Time) Summary {
	nowMs := now.UnixMilli()
	dayStart := StartOfDay(now).UnixMilli()
	curActive, curInactive := currentElapsed(r, nowMs)

	s := Summary{
		TotalActiveTime:       r.TotalActiveTime + curActive,
		TotalInactiveTime:     r.TotalInactiveTime + curInactive,
		TotalBreakTime:        r.TotalBreakTime,
		TotalInactivityAlerts: r.InactivityAlerts,
		LastActivity:          r.LastActivityTime,
		IsCurrentlyActive:     r.State.Kind == StateActive,
		IsInBreak:             r.State.Kind == StateBreak,
	}
	if s.LastActivity == 0 {
		s.LastActivity = nowMs
	}

	for i := 0; i < r.History.Len(); i++ {
		sess := r.History.At(i)
		if sess.StartTime < dayStart {
			continue
		}
		var d int64
		if sess.Duration != nil {
			d = *sess.Duration
		}
		switch sess.Kind {
		case KindActive:
			s.TodayActiveSessions++
			s.TodayActiveTime += d
		case KindInactive:
			s.TodayInactiveSessions++
			s.TodayInactiveTime += d
		case KindBreak:
			s.TodayBreakSessions++
		}
	}
	s.TodayActiveTime += curActive
	s.TodayInactiveTime += curInactive

	if total := s.TotalActiveTime + s.TotalInactiveTime; total > 0 {
		s.ActivePercentage = float64(s.TotalActiveTime) / float64(total) * 100
	}
	return s
}

// CurrentStatus classifies the open session. A break always reports a zero
// duration.
func CurrentStatus(r *Record, now time.Time) SessionStatus {
	nowMs := now.UnixMilli()
	switch r.State.Kind {
	case StateBreak:
		start := r.State.Paused
		if start == 0 {
			start = r.LastActivityTime
		}
		return SessionStatus{Type: StatusBreak, Status: "On Break", StartTime: &start}
	case StateActive:
		start := r.State.Since
		return SessionStatus{
			Type:      StatusActive,
			Status:    "Active Session Ongoing",
			StartTime: &start,
			Duration:  max(0, nowMs-start),
			IsActive:  true,
		}
	case StateInactive:
		start := r.State.Since
		return SessionStatus{
			Type:      StatusInactive,
			Status:    "Inactive Session",
			StartTime: &start,
			Duration:  max(0, nowMs-start),
		}
	}
	return SessionStatus{Type: StatusNone, Status: "No Active Session"}
}

// RecentSessions returns up to n sessions, newest first. n <= 0 means all.
func RecentSessions(r *Record, n int) []Session {
	all := r.History.Sessions()
	if n <= 0 || n > len(all) {
		n = len(all)
	}
	out := make([]Session, 0, n)
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, all[i])
	}
	return out
}

// FormatDuration renders milliseconds as "1h 2m 3s", "2m 3s" or "3s".
func FormatDuration(ms int64) string {
	total := max(0, ms) / 1000
	h, m, s := total/3600, (total%3600)/60, total%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
