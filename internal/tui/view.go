package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"activity_mon/internal/activity"
)

const barWidth = 30

// View renders the UI based on the model state
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.err != nil && m.record == nil {
		return ErrorStyle().Render(fmt.Sprintf("Error: %v", m.err))
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	b.WriteString(m.renderViewTabs())
	b.WriteString("\n")

	switch {
	case m.record == nil:
		b.WriteString(m.renderEmpty())
	case m.viewMode == ViewOverview:
		b.WriteString(m.renderOverview())
	case m.viewMode == ViewSessions:
		b.WriteString(m.renderSessions())
	}

	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(ErrorStyle().Padding(0).Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}
	b.WriteString(m.renderHelp())

	return b.String()
}

// renderHeader renders the top header bar
func (m Model) renderHeader() string {
	title := TitleStyle().Render("Activity Monitor")

	var status string
	switch {
	case m.record != nil:
		st := activity.CurrentStatus(m.record, m.now())
		status = StyleForStatus(st.Type).Render("● " + st.Status)
	case m.noData:
		status = StatusStyle().Render("No activity data")
	default:
		status = StatusStyle().Render("Loading...")
	}

	user := ""
	if m.record != nil {
		user = StatusStyle().Render(" [" + m.record.UserID + "]")
	}

	leftPart := lipgloss.Width(title)
	rightPart := lipgloss.Width(status) + lipgloss.Width(user)
	spacing := max(1, m.width-leftPart-rightPart-4)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		title,
		strings.Repeat(" ", spacing),
		status,
		user,
	)
}

// renderViewTabs renders the tab bar for view modes
func (m Model) renderViewTabs() string {
	tabs := []struct {
		name string
		mode ViewMode
		key  string
	}{
		{"Overview", ViewOverview, "1"},
		{"Sessions", ViewSessions, "2"},
	}

	rendered := make([]string, len(tabs))
	for i, t := range tabs {
		label := fmt.Sprintf("%s %s", t.key, t.name)
		if t.mode == m.viewMode {
			rendered[i] = ActiveTabStyle().Render(label)
		} else {
			rendered[i] = InactiveTabStyle().Render(label)
		}
	}

	row := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	gap := strings.Repeat("─", max(0, m.width-lipgloss.Width(row)-2))

	return row + TabGapStyle().Render(gap)
}

func (m Model) renderEmpty() string {
	msg := "No activity data\n\nStart tracking with `activity_mon track`."
	return MutedStyle().Padding(1, 2).Render(msg)
}

// renderOverview shows the current session, totals and today's rollups
func (m Model) renderOverview() string {
	now := m.now()
	sum := activity.Summarize(m.record, now)
	st := activity.CurrentStatus(m.record, now)

	row := func(label, value string) string {
		return LabelStyle().Render(label) + ValueStyle().Render(value)
	}

	current := "-"
	if st.StartTime != nil {
		since := time.UnixMilli(*st.StartTime).Format("15:04:05")
		if st.Type == activity.StatusBreak {
			current = "since " + since
		} else {
			current = fmt.Sprintf("%s (since %s)", activity.FormatDuration(st.Duration), since)
		}
	}

	lines := []string{
		LabelStyle().Render("Status") + StyleForStatus(st.Type).Render(st.Status),
		row("Current", current),
		row("Last activity", formatEpoch(sum.LastActivity)),
		"",
		TitleStyle().Render("Totals"),
		row("Active", activity.FormatDuration(sum.TotalActiveTime)),
		row("Inactive", activity.FormatDuration(sum.TotalInactiveTime)),
		row("Break", activity.FormatDuration(sum.TotalBreakTime)),
		row("Alerts", fmt.Sprintf("%d", sum.TotalInactivityAlerts)),
		"",
		TitleStyle().Render("Today"),
		row("Active", fmt.Sprintf("%s in %d sessions", activity.FormatDuration(sum.TodayActiveTime), sum.TodayActiveSessions)),
		row("Inactive", fmt.Sprintf("%s in %d sessions", activity.FormatDuration(sum.TodayInactiveTime), sum.TodayInactiveSessions)),
		row("Breaks", fmt.Sprintf("%d", sum.TodayBreakSessions)),
		"",
		LabelStyle().Render("Activity") + renderBar(sum.ActivePercentage) + ValueStyle().Render(fmt.Sprintf(" %.1f%%", sum.ActivePercentage)),
	}

	if !m.lastRefresh.IsZero() {
		lines = append(lines, "", MutedStyle().Render("Updated "+m.lastRefresh.Format("15:04:05")))
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
}

// renderBar draws the active share of tracked time
func renderBar(pct float64) string {
	filled := int(pct / 100 * barWidth)
	filled = min(barWidth, max(0, filled))
	on, off := barStyles()
	return on.Render(strings.Repeat("█", filled)) + off.Render(strings.Repeat("░", barWidth-filled))
}

// renderSessions shows the history list with an optional detail panel
func (m Model) renderSessions() string {
	var b strings.Builder
	b.WriteString(m.renderSessionHeaders())
	b.WriteString("\n")

	if len(m.sessionList.Items()) == 0 {
		b.WriteString(MutedStyle().Render("  No sessions recorded"))
		return b.String()
	}

	if !m.detailPanelOpen {
		b.WriteString(m.sessionList.View())
		return b.String()
	}

	listWidth := m.sessionList.Width()
	panelWidth := max(20, m.width-listWidth-6)
	panel := m.renderDetailPanel(panelWidth, m.sessionList.Height())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.sessionList.View(), "  ", panel))
	return b.String()
}

// renderSessionHeaders renders column headers for the history list
func (m Model) renderSessionHeaders() string {
	kind := padRight("Type", SessionKindWidth)
	start := padRight("Start", SessionTimeWidth)
	end := padRight("End", SessionTimeWidth)
	dur := padLeft("Duration", SessionDurationWidth)

	header := fmt.Sprintf("  %s  %s  %s  %s", kind, start, end, dur)
	return ColumnHeaderStyle(m.width - 4).Render(header)
}

// renderHelp renders the help footer
func (m Model) renderHelp() string {
	var help []string

	switch m.viewMode {
	case ViewOverview:
		help = []string{
			"h/l:switch view",
			"r:refresh",
			"q:quit",
		}
	case ViewSessions:
		help = []string{
			"j/k:navigate",
			"enter:details",
			"h/l:switch view",
			"esc:back",
			"r:refresh",
			"q:quit",
		}
	}

	return HelpStyle().Render(strings.Join(help, " | "))
}
