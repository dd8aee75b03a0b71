package tui

import (
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"activity_mon/internal/store"
)

// Update handles incoming messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m.updateListSizes(), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case recordLoadedMsg:
		m.record = msg.record
		m.noData = false
		m.err = nil
		m.lastRefresh = msg.at
		return m.updateSessionList(), nil

	case noRecordMsg:
		m.record = nil
		m.noData = true
		m.err = nil
		m.lastRefresh = msg.at
		m.detailPanelOpen = false
		return m.updateSessionList().updateListSizes(), nil

	case storeEventMsg:
		if m.relevant(store.Event(msg)) {
			return m, tea.Batch(m.loadCmd(), m.watchCmd())
		}
		return m, m.watchCmd()

	case watchClosedMsg:
		log.Printf("store watcher closed, falling back to periodic refresh")
		m.watcher = nil
		return m, nil

	case tickMsg:
		return m, m.tickCmd()

	case refreshMsg:
		return m, tea.Batch(m.loadCmd(), m.refreshCmd())

	case watchErrMsg:
		// Not fatal, the periodic refresh still runs
		log.Printf("store watcher: %v", msg.error)
		return m, m.watchCmd()

	case errMsg:
		log.Printf("dashboard error: %v", msg.error)
		m.err = msg.error
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "esc":
		if m.detailPanelOpen {
			m.detailPanelOpen = false
			return m.updateListSizes(), nil
		}
		m.viewMode = ViewOverview
		return m, nil

	case "1":
		m.viewMode = ViewOverview
		return m, nil
	case "2":
		m.viewMode = ViewSessions
		return m.updateListSizes(), nil

	case "l", "right", "tab":
		m.viewMode = (m.viewMode + 1) % viewCount
		return m.updateListSizes(), nil
	case "h", "left", "shift+tab":
		m.viewMode = (m.viewMode + viewCount - 1) % viewCount
		return m.updateListSizes(), nil

	case "r":
		return m, m.loadCmd()

	case "enter":
		if m.viewMode == ViewSessions && len(m.sessionList.Items()) > 0 {
			m.detailPanelOpen = !m.detailPanelOpen
			return m.updateListSizes(), nil
		}
		return m, nil
	}

	if m.viewMode == ViewSessions {
		var cmd tea.Cmd
		m.sessionList, cmd = m.sessionList.Update(msg)
		return m, cmd
	}
	return m, nil
}
