package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"activity_mon/internal/activity"
	"activity_mon/internal/store"
)

const t0 = int64(1_700_000_000_000)

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func press(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, _ := m.Update(msg)
	return updated.(Model)
}

// sampleRecord has an active, an inactive and a current active session.
func sampleRecord() *activity.Record {
	r := activity.NewRecord("alice", t0)
	r.DetectInactivity(t0 + 45_000)
	r.ObserveActivity(t0 + 50_000)
	return r
}

func newSizedModel(t *testing.T, now int64) Model {
	t.Helper()
	m := NewModel(ModelOptions{Now: func() time.Time { return time.UnixMilli(now) }})
	return press(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func TestNewModel(t *testing.T) {
	m := NewModel(ModelOptions{})
	if m.viewMode != ViewOverview {
		t.Errorf("expected initial view mode to be ViewOverview, got %d", m.viewMode)
	}
	if m.refreshInterval != defaultRefresh {
		t.Errorf("expected default refresh interval, got %v", m.refreshInterval)
	}
	if m.View() != "Loading..." {
		t.Errorf("expected loading view before the first resize")
	}
}

func TestViewModeCycle(t *testing.T) {
	m := newSizedModel(t, t0)

	m = press(t, m, key('l'))
	if m.viewMode != ViewSessions {
		t.Errorf("expected ViewSessions after 'l', got %d", m.viewMode)
	}

	m = press(t, m, key('l'))
	if m.viewMode != ViewOverview {
		t.Errorf("expected view mode to wrap to ViewOverview after 'l', got %d", m.viewMode)
	}

	m = press(t, m, key('h'))
	if m.viewMode != ViewSessions {
		t.Errorf("expected view mode to wrap to ViewSessions after 'h', got %d", m.viewMode)
	}
}

func TestViewModeNumbers(t *testing.T) {
	m := newSizedModel(t, t0)

	m = press(t, m, key('2'))
	if m.viewMode != ViewSessions {
		t.Errorf("expected ViewSessions after '2', got %d", m.viewMode)
	}

	m = press(t, m, key('1'))
	if m.viewMode != ViewOverview {
		t.Errorf("expected ViewOverview after '1', got %d", m.viewMode)
	}
}

func TestEscClosesDetailThenReturnsToOverview(t *testing.T) {
	m := newSizedModel(t, t0+60_000)
	m = press(t, m, recordLoadedMsg{record: sampleRecord(), at: time.UnixMilli(t0)})
	m = press(t, m, key('2'))

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.detailPanelOpen {
		t.Fatal("expected enter to open the detail panel")
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEscape})
	if m.detailPanelOpen {
		t.Error("expected esc to close the detail panel")
	}
	if m.viewMode != ViewSessions {
		t.Error("first esc should only close the panel")
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEscape})
	if m.viewMode != ViewOverview {
		t.Errorf("expected ViewOverview after second esc, got %d", m.viewMode)
	}
}

func TestEnterWithoutSessionsDoesNothing(t *testing.T) {
	m := newSizedModel(t, t0)
	m = press(t, m, key('2'))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.detailPanelOpen {
		t.Error("detail panel should stay closed with an empty list")
	}
}

func TestRecordLoadedListsNewestFirst(t *testing.T) {
	m := newSizedModel(t, t0+60_000)
	m = press(t, m, recordLoadedMsg{record: sampleRecord(), at: time.UnixMilli(t0)})

	items := m.sessionList.Items()
	if len(items) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(items))
	}
	first := items[0].(sessionItem).session
	if first.Kind != activity.KindActive || first.StartTime != t0+50_000 {
		t.Errorf("expected the current active session first, got %+v", first)
	}
	if got := m.SelectedSession(); got == nil || got.StartTime != t0+50_000 {
		t.Errorf("expected selection on the newest session, got %+v", got)
	}
}

func TestNoRecordShowsEmptyState(t *testing.T) {
	m := newSizedModel(t, t0)
	m = press(t, m, recordLoadedMsg{record: sampleRecord(), at: time.UnixMilli(t0)})
	m = press(t, m, noRecordMsg{at: time.UnixMilli(t0)})

	if m.record != nil || !m.noData {
		t.Fatal("expected record to be cleared")
	}
	if len(m.sessionList.Items()) != 0 {
		t.Error("expected empty session list")
	}
	if !strings.Contains(m.View(), "No activity data") {
		t.Error("expected empty state in view")
	}
}

func TestOverviewShowsLiveDuration(t *testing.T) {
	m := newSizedModel(t, t0+50_000+65_000)
	m = press(t, m, recordLoadedMsg{record: sampleRecord(), at: time.UnixMilli(t0)})

	view := m.View()
	for _, want := range []string{"Active Session Ongoing", "1m 5s", "Alerts", "alice"} {
		if !strings.Contains(view, want) {
			t.Errorf("overview missing %q", want)
		}
	}
}

func TestSessionsViewShowsDetail(t *testing.T) {
	m := newSizedModel(t, t0+60_000)
	m = press(t, m, recordLoadedMsg{record: sampleRecord(), at: time.UnixMilli(t0)})
	m = press(t, m, key('2'))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	view := m.View()
	for _, want := range []string{"Session Details", "current", "Elapsed"} {
		if !strings.Contains(view, want) {
			t.Errorf("sessions view missing %q", want)
		}
	}
}

func TestErrorWithoutRecordFillsScreen(t *testing.T) {
	m := newSizedModel(t, t0)
	m = press(t, m, errMsg{errors.New("disk on fire")})

	if !strings.Contains(m.View(), "disk on fire") {
		t.Error("expected error in view")
	}

	m = press(t, m, recordLoadedMsg{record: sampleRecord(), at: time.UnixMilli(t0)})
	if m.err != nil {
		t.Error("a successful load should clear the error")
	}
}

func TestLoadCmd(t *testing.T) {
	rec := sampleRecord()

	mem := store.NewMemory()
	if err := mem.Set(context.Background(), "activity-alice", []byte(`{"userId": 42`)); err != nil {
		t.Fatal(err)
	}
	tracker := activity.NewTracker(mem)
	malformed := SourceFunc(func(ctx context.Context) (*activity.Record, error) {
		return tracker.Snapshot(ctx, "alice")
	})

	tests := []struct {
		name string
		src  Source
		want string
	}{
		{"record", SourceFunc(func(context.Context) (*activity.Record, error) { return rec, nil }), "loaded"},
		{"missing", SourceFunc(func(context.Context) (*activity.Record, error) { return nil, activity.ErrNoRecord }), "none"},
		{"malformed", malformed, "none"},
		{"failure", SourceFunc(func(context.Context) (*activity.Record, error) { return nil, errors.New("boom") }), "error"},
		{"no source", nil, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(ModelOptions{Source: tt.src})
			var got string
			switch msg := m.loadCmd()().(type) {
			case recordLoadedMsg:
				got = "loaded"
				if msg.record != rec {
					t.Error("expected the source's record")
				}
			case noRecordMsg:
				got = "none"
			case errMsg:
				got = "error"
			}
			if got != tt.want {
				t.Errorf("loadCmd() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRelevantStoreEvents(t *testing.T) {
	m := NewModel(ModelOptions{WatchKey: "activity-abc"})
	if !m.relevant(store.Event{Key: "activity-abc", Op: store.OpSet}) {
		t.Error("event for the watched key should be relevant")
	}
	if m.relevant(store.Event{Key: "activity-other", Op: store.OpSet}) {
		t.Error("event for another key should be ignored")
	}

	all := NewModel(ModelOptions{})
	if !all.relevant(store.Event{Key: "activity-other", Op: store.OpDelete}) {
		t.Error("without a watch key every event is relevant")
	}
}

func TestRenderBarClamps(t *testing.T) {
	for _, pct := range []float64{-10, 0, 50, 100, 250} {
		if got := len([]rune(stripANSI(renderBar(pct)))); got != barWidth {
			t.Errorf("renderBar(%v) width = %d, want %d", pct, got, barWidth)
		}
	}
}

// stripANSI drops escape sequences so widths can be compared.
func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEsc = true
		case inEsc && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEsc = false
		case !inEsc:
			b.WriteRune(r)
		}
	}
	return b.String()
}
