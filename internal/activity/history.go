package activity

import "encoding/json"

// MaxSessions bounds the stored history per user.
const MaxSessions = 100

// History is a fixed-capacity ring of sessions in chronological order.
// Pushing onto a full history evicts the oldest entry. The zero value holds
// up to MaxSessions entries.
type History struct {
	buf   []Session
	head  int // index of the oldest entry
	size  int
	limit int
}

// NewHistory returns an empty history holding at most limit sessions.
func NewHistory(limit int) History {
	if limit <= 0 {
		limit = MaxSessions
	}
	return History{limit: limit}
}

func (h *History) capacity() int {
	if h.limit <= 0 {
		return MaxSessions
	}
	return h.limit
}

// Len returns the number of stored sessions.
func (h *History) Len() int { return h.size }

// Push appends s and reports whether the oldest entry was evicted.
func (h *History) Push(s Session) bool {
	c := h.capacity()
	if h.buf == nil {
		h.buf = make([]Session, c)
	}
	if h.size < c {
		h.buf[(h.head+h.size)%c] = s
		h.size++
		return false
	}
	h.buf[h.head] = s
	h.head = (h.head + 1) % c
	return true
}

// At returns the i-th session, oldest first. It panics if i is out of range.
func (h *History) At(i int) Session {
	if i < 0 || i >= h.size {
		panic("activity: history index out of range")
	}
	return h.buf[(h.head+i)%len(h.buf)]
}

// Last returns a pointer to the newest session for in-place closing, or nil
// when the history is empty.
func (h *History) Last() *Session {
	if h.size == 0 {
		return nil
	}
	return &h.buf[(h.head+h.size-1)%len(h.buf)]
}

// Sessions returns a chronological copy of the history.
func (h *History) Sessions() []Session {
	out := make([]Session, 0, h.size)
	for i := 0; i < h.size; i++ {
		out = append(out, h.At(i).clone())
	}
	return out
}

// Retain keeps only the sessions for which keep returns true and returns the
// number removed. keep receives the chronological index.
func (h *History) Retain(keep func(i int, s Session) bool) int {
	kept := make([]Session, 0, h.size)
	for i := 0; i < h.size; i++ {
		if s := h.At(i); keep(i, s) {
			kept = append(kept, s)
		}
	}
	removed := h.size - len(kept)
	h.reset(kept)
	return removed
}

func (h *History) reset(sessions []Session) {
	c := h.capacity()
	h.buf = make([]Session, c)
	h.head, h.size = 0, 0
	for _, s := range sessions {
		h.Push(s)
	}
}

func (h *History) clone() History {
	c := History{limit: h.limit}
	for _, s := range h.Sessions() {
		c.Push(s)
	}
	return c
}

func (h *History) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Sessions())
}

// UnmarshalJSON keeps the newest entries when the input exceeds capacity.
func (h *History) UnmarshalJSON(data []byte) error {
	var sessions []Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return err
	}
	h.reset(sessions)
	return nil
}
