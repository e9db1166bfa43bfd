package ui

import "github.com/charmbracelet/lipgloss"

// theme is the set of colors the TUI draws with.
type theme struct {
	accent  string
	success string
	failure string
	caution string
	muted   string
}

var styles = newStylesheet(theme{
	accent:  "#7D56F4",
	success: "#04B575",
	failure: "#E5484D",
	caution: "#FFA500",
	muted:   "#626262",
})

// stylesheet maps each view element to its [lipgloss.Style].
type stylesheet struct {
	title lipgloss.Style
	label lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	theme lipgloss.Style // playlist theme line above the track list
	phase lipgloss.Style // current step while an edit runs
}

func newStylesheet(t theme) stylesheet {
	fg := func(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }

	return stylesheet{
		title: fg(t.accent).Bold(true).MarginBottom(1),
		label: fg(t.accent).Bold(true),
		ok:    fg(t.success).Bold(true),
		err:   fg(t.failure).Bold(true),
		warn:  fg(t.caution),
		help:  fg(t.muted).Italic(true),
		theme: fg(t.accent).Italic(true),
		phase: fg(t.success),
	}
}
