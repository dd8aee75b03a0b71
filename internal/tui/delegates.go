package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"activity_mon/internal/activity"
)

// Column widths for the history list
const (
	SessionKindWidth     = 10
	SessionTimeWidth     = 19
	SessionDurationWidth = 12
)

const timeLayout = "2006-01-02 15:04:05"

// sessionItem wraps a history entry for the list component
type sessionItem struct {
	session activity.Session
}

func (i sessionItem) FilterValue() string { return i.session.Kind.String() }
func (i sessionItem) Title() string       { return i.session.Kind.String() }
func (i sessionItem) Description() string { return formatSessionDuration(i.session) }

// sessionDelegate renders history rows
type sessionDelegate struct {
	width int
}

func newSessionDelegate() *sessionDelegate {
	return &sessionDelegate{}
}

func (d *sessionDelegate) SetWidth(w int) { d.width = w }

func (d *sessionDelegate) Height() int                             { return 1 }
func (d *sessionDelegate) Spacing() int                            { return 0 }
func (d *sessionDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d *sessionDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(sessionItem)
	if !ok {
		return
	}

	s := i.session
	kind := padRight(s.Kind.String(), SessionKindWidth)
	start := padRight(formatEpoch(s.StartTime), SessionTimeWidth)
	end := padRight(formatEnd(s), SessionTimeWidth)
	dur := padLeft(formatSessionDuration(s), SessionDurationWidth)

	row := fmt.Sprintf("%s  %s  %s  %s", kind, start, end, dur)
	if d.width > 2 {
		row = truncate(row, d.width-2)
	}

	if index == m.Index() {
		fmt.Fprint(w, SelectedItemStyle().Render("> "+row))
		return
	}
	fmt.Fprint(w, "  "+StyleForKind(s.Kind).Render(row))
}

// formatEpoch renders epoch milliseconds in local time
func formatEpoch(ms int64) string {
	return time.UnixMilli(ms).Format(timeLayout)
}

func formatEnd(s activity.Session) string {
	switch {
	case s.EndTime != nil:
		return formatEpoch(*s.EndTime)
	case s.Open():
		return "open"
	}
	return "-"
}

func formatSessionDuration(s activity.Session) string {
	switch {
	case s.Duration != nil:
		return activity.FormatDuration(*s.Duration)
	case s.Open():
		return "ongoing"
	}
	return "incomplete"
}

// padRight pads a string with spaces on the right to reach target width
func padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// padLeft pads a string with spaces on the left to reach target width
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 4 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
