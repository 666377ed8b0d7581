package ui

import "github.com/charmbracelet/lipgloss"

// YouTube red, with muted tones for everything that is not a heading.
const (
	colorBrand = lipgloss.Color("#FF0033")
	colorOK    = lipgloss.Color("#04B575")
	colorError = lipgloss.Color("#FF5F87")
	colorBusy  = lipgloss.Color("#FFA500")
	colorMuted = lipgloss.Color("#626262")
)

var styles = newTheme()

// theme holds the styles used by the views and the status line.
type theme struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	badge lipgloss.Style
}

func newTheme() theme {
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	return theme{
		title: fg(colorBrand).Bold(true).MarginBottom(1),
		ok:    fg(colorOK).Bold(true),
		err:   fg(colorError).Bold(true),
		warn:  fg(colorBusy),
		help:  fg(colorMuted).Italic(true),
		badge: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(colorBrand).Padding(0, 1),
	}
}

// scopeBadge labels what the current token allows.
func (t theme) scopeBadge(canWrite bool) string {
	if canWrite {
		return t.badge.Render("read/write")
	}
	return t.badge.Background(colorMuted).Render("read-only")
}
