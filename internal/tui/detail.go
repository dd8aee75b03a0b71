package tui

import (
	"strings"

	"activity_mon/internal/activity"
)

// renderDetailPanel renders the selected history entry in a side panel
func (m Model) renderDetailPanel(width, height int) string {
	var b strings.Builder

	b.WriteString(DetailHeaderStyle(width - 2).Render("Session Details"))
	b.WriteString("\n")

	s := m.SelectedSession()
	if s == nil {
		b.WriteString(MutedStyle().Render("Select a session and press Enter"))
		return DetailPanelStyle(width, height).Render(b.String())
	}

	row := func(label, value string) {
		b.WriteString(LabelStyle().Width(12).Render(label))
		b.WriteString(ValueStyle().Render(value))
		b.WriteString("\n")
	}

	b.WriteString(StyleForKind(s.Kind).Bold(true).Render(strings.ToUpper(s.Kind.String())))
	b.WriteString("\n\n")

	row("User", s.UserID)
	row("Started", formatEpoch(s.StartTime))
	row("Ended", formatEnd(*s))
	row("State", sessionState(m.record, *s))

	switch {
	case s.Duration != nil:
		row("Duration", activity.FormatDuration(*s.Duration))
	case s.Open() && s.Kind != activity.KindBreak:
		row("Elapsed", activity.FormatDuration(m.now().UnixMilli()-s.StartTime))
	}

	return DetailPanelStyle(width, height).Render(b.String())
}

// sessionState describes where a history entry stands relative to the
// record's current state.
func sessionState(r *activity.Record, s activity.Session) string {
	switch {
	case s.Closed():
		return "closed"
	case !s.Open():
		return "incomplete"
	case r != nil && isCurrent(r, s):
		return "current"
	}
	return "open"
}

func isCurrent(r *activity.Record, s activity.Session) bool {
	kind, ok := r.State.SessionKind()
	return ok && kind == s.Kind && r.State.Since == s.StartTime
}
