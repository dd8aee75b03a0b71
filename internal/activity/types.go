package activity

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNoRecord is returned when an operation targets a user that has
	// never been initialized (or whose data was cleared).
	ErrNoRecord = errors.New("no activity record")

	// ErrInvalidRecord wraps decode and shape-validation failures of a
	// persisted record.
	ErrInvalidRecord = errors.New("invalid activity record")
)

// SessionKind classifies a contiguous interval in a user's timeline.
type SessionKind int

// The zero value is not a valid kind, so a session stored without a type
// fails validation.
const (
	KindActive SessionKind = iota + 1
	KindInactive
	KindBreak
)

var kindNames = map[SessionKind]string{
	KindActive:   "active",
	KindInactive: "inactive",
	KindBreak:    "break",
}

var kindFromName = map[string]SessionKind{
	"active":   KindActive,
	"inactive": KindInactive,
	"break":    KindBreak,
}

func (k SessionKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

func (k SessionKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON rejects unknown kinds so that foreign or corrupted history
// fails record validation instead of silently becoming "active".
func (k *SessionKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, ok := kindFromName[s]
	if !ok {
		return fmt.Errorf("unknown session type %q", s)
	}
	*k = v
	return nil
}

// Session is one typed interval. Times are epoch milliseconds. EndTime and
// Duration are both nil while the session is open.
type Session struct {
	UserID    string      `json:"userId"`
	StartTime int64       `json:"startTime"`
	EndTime   *int64      `json:"endTime,omitempty"`
	Kind      SessionKind `json:"type"`
	Duration  *int64      `json:"duration,omitempty"`
}

// Closed reports whether both EndTime and Duration are present.
func (s Session) Closed() bool {
	return s.EndTime != nil && s.Duration != nil
}

// Open reports whether neither EndTime nor Duration is present. A session
// with only one of the two is neither open nor closed.
func (s Session) Open() bool {
	return s.EndTime == nil && s.Duration == nil
}

func (s *Session) close(end, duration int64) {
	s.EndTime = &end
	s.Duration = &duration
}

// clone duplicates the pointer fields so the copy can be mutated
// independently of the original.
func (s Session) clone() Session {
	if s.EndTime != nil {
		t := *s.EndTime
		s.EndTime = &t
	}
	if s.Duration != nil {
		d := *s.Duration
		s.Duration = &d
	}
	return s
}

// StateKind is the tag of State.
type StateKind int

const (
	StateNone StateKind = iota // no open session (fresh logout)
	StateActive
	StateInactive
	StateBreak
)

var stateNames = map[StateKind]string{
	StateNone:     "none",
	StateActive:   "active",
	StateInactive: "inactive",
	StateBreak:    "break",
}

func (k StateKind) String() string {
	if s, ok := stateNames[k]; ok {
		return s
	}
	return "unknown"
}

// State is the tracking state of a user. Build it with None, Active,
// Inactive or Break; the zero value is None.
type State struct {
	Kind StateKind
	// Since is the start of the open session (active, inactive or break).
	Since int64
	// Paused is only meaningful for Break: the start of the active session
	// the break interrupted, or 0 if the break did not interrupt one.
	Paused int64
}

func None() State {
	return State{Kind: StateNone}
}

func Active(since int64) State {
	return State{Kind: StateActive, Since: since}
}

func Inactive(since int64) State {
	return State{Kind: StateInactive, Since: since}
}

func Break(since, paused int64) State {
	return State{Kind: StateBreak, Since: since, Paused: paused}
}

// SessionKind returns the kind of the session this state keeps open.
func (s State) SessionKind() (SessionKind, bool) {
	switch s.Kind {
	case StateActive:
		return KindActive, true
	case StateInactive:
		return KindInactive, true
	case StateBreak:
		return KindBreak, true
	}
	return 0, false
}

// Record is the full persisted state for one user.
type Record struct {
	UserID            string
	State             State
	TotalActiveTime   int64 // ms, closed sessions only
	TotalInactiveTime int64 // ms, closed sessions only
	TotalBreakTime    int64 // ms, finished breaks only
	InactivityAlerts  int
	History           History
	LastActivityTime  int64
}

// NewRecord seeds a record with one open active session starting at now.
func NewRecord(userID string, now int64) *Record {
	r := &Record{
		UserID:           userID,
		State:            Active(now),
		LastActivityTime: now,
	}
	r.History.Push(Session{UserID: userID, StartTime: now, Kind: KindActive})
	return r
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	c.History = r.History.clone()
	return &c
}

// recordJSON is the persisted shape. It keeps the flat flag layout
// (currentSessionStart / isCurrentlyActive / isInBreak) so stored blobs stay
// readable by other consumers of the same key.
type recordJSON struct {
	UserID              string    `json:"userId"`
	CurrentSessionStart int64     `json:"currentSessionStart"`
	IsCurrentlyActive   bool      `json:"isCurrentlyActive"`
	IsInBreak           bool      `json:"isInBreak,omitempty"`
	PausedSessionStart  *int64    `json:"pausedSessionStart,omitempty"`
	BreakStart          int64     `json:"breakStart,omitempty"`
	TotalActiveTime     int64     `json:"totalActiveTime"`
	TotalInactiveTime   int64     `json:"totalInactiveTime"`
	TotalBreakTime      int64     `json:"totalBreakTime,omitempty"`
	InactivityAlerts    int       `json:"inactivityAlerts"`
	ActivitySessions    []Session `json:"activitySessions"`
	LastActivityTime    int64     `json:"lastActivityTime"`
}

func (r *Record) MarshalJSON() ([]byte, error) {
	w := recordJSON{
		UserID:            r.UserID,
		TotalActiveTime:   r.TotalActiveTime,
		TotalInactiveTime: r.TotalInactiveTime,
		TotalBreakTime:    r.TotalBreakTime,
		InactivityAlerts:  r.InactivityAlerts,
		ActivitySessions:  r.History.Sessions(),
		LastActivityTime:  r.LastActivityTime,
	}
	switch r.State.Kind {
	case StateActive:
		w.CurrentSessionStart = r.State.Since
		w.IsCurrentlyActive = true
	case StateInactive:
		w.CurrentSessionStart = r.State.Since
	case StateBreak:
		w.IsInBreak = true
		w.BreakStart = r.State.Since
		if r.State.Paused != 0 {
			p := r.State.Paused
			w.PausedSessionStart = &p
		}
	}
	return json.Marshal(w)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var w recordJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var st State
	switch {
	case w.IsInBreak:
		since := w.BreakStart
		if since == 0 {
			since = breakStartFromHistory(w.ActivitySessions, w.LastActivityTime)
		}
		var paused int64
		if w.PausedSessionStart != nil {
			paused = *w.PausedSessionStart
		}
		st = Break(since, paused)
	case w.IsCurrentlyActive && w.CurrentSessionStart > 0:
		st = Active(w.CurrentSessionStart)
	case w.IsCurrentlyActive:
		return errors.New("active without a session start")
	case w.CurrentSessionStart > 0:
		st = Inactive(w.CurrentSessionStart)
	default:
		st = None()
	}

	*r = Record{
		UserID:            w.UserID,
		State:             st,
		TotalActiveTime:   w.TotalActiveTime,
		TotalInactiveTime: w.TotalInactiveTime,
		TotalBreakTime:    w.TotalBreakTime,
		InactivityAlerts:  w.InactivityAlerts,
		LastActivityTime:  w.LastActivityTime,
	}
	for _, s := range w.ActivitySessions {
		r.History.Push(s)
	}
	return nil
}

// breakStartFromHistory recovers the start of a break for records written
// without breakStart: the last open break session, else the last activity.
func breakStartFromHistory(sessions []Session, fallback int64) int64 {
	if n := len(sessions); n > 0 {
		if last := sessions[n-1]; last.Kind == KindBreak && last.Open() {
			return last.StartTime
		}
	}
	return fallback
}

// Validate checks the shape invariants a decoded record must satisfy.
// Partially written sessions are not rejected here; CleanupDuplicateSessions
// repairs them.
func (r *Record) Validate() error {
	if r.UserID == "" {
		return errors.New("missing userId")
	}
	if r.TotalActiveTime < 0 || r.TotalInactiveTime < 0 || r.TotalBreakTime < 0 {
		return errors.New("negative total")
	}
	if r.InactivityAlerts < 0 {
		return errors.New("negative inactivityAlerts")
	}
	if r.State.Kind != StateNone && r.State.Since < 0 {
		return errors.New("negative session start")
	}
	for i := 0; i < r.History.Len(); i++ {
		s := r.History.At(i)
		if _, ok := kindNames[s.Kind]; !ok {
			return fmt.Errorf("session %d: missing type", i)
		}
		if s.StartTime < 0 {
			return fmt.Errorf("session %d: negative startTime", i)
		}
		if s.Duration != nil && *s.Duration < 0 {
			return fmt.Errorf("session %d: negative duration", i)
		}
	}
	return nil
}

// DecodeRecord parses and validates a stored blob. Any failure is reported
// as ErrInvalidRecord.
func DecodeRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return &r, nil
}
