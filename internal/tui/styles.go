package tui

import (
	catppuccin "github.com/catppuccin/go"
	"github.com/charmbracelet/lipgloss"

	"activity_mon/internal/activity"
)

// palette is the subset of a catppuccin flavour the dashboard draws with.
type palette struct {
	primary   lipgloss.Color
	active    lipgloss.Color
	inactive  lipgloss.Color
	brk       lipgloss.Color
	danger    lipgloss.Color
	muted     lipgloss.Color
	fg        lipgloss.Color
	surface   lipgloss.Color
	highlight lipgloss.Color
}

func paletteFor(f catppuccin.Flavor) palette {
	return palette{
		primary:   lipgloss.Color(f.Mauve().Hex),
		active:    lipgloss.Color(f.Green().Hex),
		inactive:  lipgloss.Color(f.Peach().Hex),
		brk:       lipgloss.Color(f.Blue().Hex),
		danger:    lipgloss.Color(f.Red().Hex),
		muted:     lipgloss.Color(f.Overlay1().Hex),
		fg:        lipgloss.Color(f.Text().Hex),
		surface:   lipgloss.Color(f.Surface0().Hex),
		highlight: lipgloss.Color(f.Surface1().Hex),
	}
}

var colors = paletteFor(catppuccin.Mocha)

// SetTheme selects the catppuccin flavour by name. Unknown names fall back
// to mocha.
func SetTheme(name string) {
	switch name {
	case "latte":
		colors = paletteFor(catppuccin.Latte)
	case "frappe":
		colors = paletteFor(catppuccin.Frappe)
	case "macchiato":
		colors = paletteFor(catppuccin.Macchiato)
	default:
		colors = paletteFor(catppuccin.Mocha)
	}
}

// Header styles

func TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(colors.primary)
}

func StatusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colors.muted)
}

func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colors.danger).Bold(true).Padding(1)
}

func MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colors.muted)
}

func HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colors.muted)
}

// Tab styles

func ActiveTabStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Background(colors.primary).
		Foreground(colors.surface).
		Padding(0, 2)
}

func InactiveTabStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colors.muted).Padding(0, 2)
}

func TabGapStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colors.muted)
}

// Content styles

func ColumnHeaderStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(colors.muted).
		Bold(true).
		Width(width).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(colors.surface)
}

func DetailHeaderStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(colors.primary).
		Width(width).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(colors.surface)
}

func DetailPanelStyle(width, height int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		PaddingLeft(1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(colors.surface)
}

func LabelStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colors.muted).Width(16)
}

func ValueStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colors.fg)
}

func SelectedItemStyle() lipgloss.Style {
	return lipgloss.NewStyle().Background(colors.highlight).Foreground(colors.fg).Bold(true)
}

// StyleForKind colours a history entry by its session type.
func StyleForKind(kind activity.SessionKind) lipgloss.Style {
	switch kind {
	case activity.KindActive:
		return lipgloss.NewStyle().Foreground(colors.active)
	case activity.KindInactive:
		return lipgloss.NewStyle().Foreground(colors.inactive)
	case activity.KindBreak:
		return lipgloss.NewStyle().Foreground(colors.brk)
	}
	return ValueStyle()
}

// StyleForStatus colours the current-session indicator.
func StyleForStatus(t activity.StatusType) lipgloss.Style {
	switch t {
	case activity.StatusActive:
		return lipgloss.NewStyle().Foreground(colors.active).Bold(true)
	case activity.StatusInactive:
		return lipgloss.NewStyle().Foreground(colors.inactive).Bold(true)
	case activity.StatusBreak:
		return lipgloss.NewStyle().Foreground(colors.brk).Bold(true)
	}
	return MutedStyle()
}

// barStyles render the active/inactive split bar on the overview.
func barStyles() (filled, empty lipgloss.Style) {
	return lipgloss.NewStyle().Foreground(colors.active), lipgloss.NewStyle().Foreground(colors.inactive)
}
