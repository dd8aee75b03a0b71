package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"activity_mon/internal/activity"
	"activity_mon/internal/store"
)

// ViewMode represents the current view
type ViewMode int

const (
	ViewOverview ViewMode = iota // Totals and the current session
	ViewSessions                 // Stored history, newest first

	viewCount = 2
)

const (
	loadTimeout     = 5 * time.Second
	defaultRefresh  = 5 * time.Second
	liveTickPeriod  = time.Second
	defaultListSize = 5
)

// Source loads the record the dashboard displays.
type Source interface {
	Load(ctx context.Context) (*activity.Record, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*activity.Record, error)

func (f SourceFunc) Load(ctx context.Context) (*activity.Record, error) { return f(ctx) }

// ModelOptions configures the dashboard.
type ModelOptions struct {
	Source Source

	// Watcher, when set, triggers a reload as soon as the store changes.
	Watcher *store.Watcher
	// WatchKey limits reloads to events for one store key. Empty means any.
	WatchKey string

	RefreshInterval time.Duration
	Theme           string
	Now             func() time.Time
}

// Model represents the application state
type Model struct {
	// Data
	source          Source
	watcher         *store.Watcher
	watchKey        string
	refreshInterval time.Duration
	now             func() time.Time

	record      *activity.Record
	noData      bool
	lastRefresh time.Time
	viewMode    ViewMode

	// UI components
	sessionList     list.Model
	sessionDelegate *sessionDelegate

	// Detail panel state
	detailPanelOpen bool

	// UI dimensions
	width  int
	height int

	// Error state
	err error
}

// NewModel creates a new Model with initialized state
func NewModel(opts ModelOptions) Model {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = defaultRefresh
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	SetTheme(opts.Theme)

	sessionDel := newSessionDelegate()

	m := Model{
		source:          opts.Source,
		watcher:         opts.Watcher,
		watchKey:        opts.WatchKey,
		refreshInterval: opts.RefreshInterval,
		now:             opts.Now,
		viewMode:        ViewOverview,
		sessionDelegate: sessionDel,
	}

	m.sessionList = list.New([]list.Item{}, sessionDel, 0, 0)
	m.sessionList.SetShowTitle(false)
	m.sessionList.SetShowHelp(false)
	m.sessionList.SetShowStatusBar(false)
	m.sessionList.SetFilteringEnabled(false)
	m.sessionList.DisableQuitKeybindings()

	return m
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadCmd(),
		m.tickCmd(),
		m.refreshCmd(),
		m.watchCmd(),
	)
}

// Message types
type (
	recordLoadedMsg struct {
		record *activity.Record
		at     time.Time
	}
	noRecordMsg    struct{ at time.Time }
	storeEventMsg  store.Event
	watchClosedMsg struct{}
	tickMsg        time.Time
	refreshMsg     time.Time
	watchErrMsg    struct{ error }
	errMsg         struct{ error }
)

// loadCmd reads the record from the source
func (m Model) loadCmd() tea.Cmd {
	source, now := m.source, m.now
	return func() tea.Msg {
		if source == nil {
			return errMsg{errors.New("no data source configured")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		rec, err := source.Load(ctx)
		switch {
		case errors.Is(err, activity.ErrNoRecord):
			return noRecordMsg{at: now()}
		case err != nil:
			return errMsg{err}
		}
		return recordLoadedMsg{record: rec, at: now()}
	}
}

// watchCmd returns a command that waits for store change events
func (m Model) watchCmd() tea.Cmd {
	w := m.watcher
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return watchClosedMsg{}
			}
			return storeEventMsg(ev)
		case err, ok := <-w.Errors:
			if !ok {
				return watchClosedMsg{}
			}
			return watchErrMsg{err}
		}
	}
}

// tickCmd redraws every second so the live duration keeps moving
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(liveTickPeriod, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refreshCmd schedules the next periodic reload
func (m Model) refreshCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// relevant reports whether a store event concerns the displayed record.
func (m Model) relevant(ev store.Event) bool {
	return m.watchKey == "" || ev.Key == m.watchKey
}

// updateSessionList rebuilds the history list, newest first
func (m Model) updateSessionList() Model {
	if m.record == nil {
		m.sessionList.SetItems([]list.Item{})
		return m
	}

	wasAtTop := m.sessionList.Index() == 0
	previousCount := len(m.sessionList.Items())

	sessions := activity.RecentSessions(m.record, 0)
	items := make([]list.Item, len(sessions))
	for i, s := range sessions {
		items[i] = sessionItem{session: s}
	}
	m.sessionList.SetItems(items)

	// Follow the newest entry unless the user scrolled away
	if wasAtTop || previousCount == 0 {
		m.sessionList.Select(0)
	}
	return m
}

// updateListSizes updates list dimensions based on terminal size
func (m Model) updateListSizes() Model {
	// Reserve space for header (2), tabs (2), column headers (2), help (2), margins (2)
	listHeight := max(defaultListSize, m.height-10)
	listWidth := max(20, m.width-4)

	if m.viewMode == ViewSessions && m.detailPanelOpen {
		listWidth = int(float64(listWidth) * 0.58)
	}

	m.sessionDelegate.SetWidth(listWidth)
	m.sessionList.SetSize(listWidth, listHeight)
	return m
}

// SelectedSession returns the highlighted history entry or nil
func (m Model) SelectedSession() *activity.Session {
	item, ok := m.sessionList.SelectedItem().(sessionItem)
	if !ok {
		return nil
	}
	s := item.session
	return &s
}
