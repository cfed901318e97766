package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ahrav/ragconsole/internal/domain"
)

// theme is the set of lipgloss styles used by the TUI.
type theme struct {
	Dark bool

	Header    lipgloss.Style
	Dim       lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Error     lipgloss.Style
	Prompt    lipgloss.Style
	Panel     lipgloss.Style
	Title     lipgloss.Style
	Help      lipgloss.Style

	Excellent lipgloss.Style
	Good      lipgloss.Style
	Fair      lipgloss.Style
	Poor      lipgloss.Style
}

type palette struct {
	accent, text, muted, user, assistant, danger, warn, border string
	excellent, good, fair, poor                                 string
}

var (
	darkPalette = palette{
		accent: "13", text: "15", muted: "8", user: "12", assistant: "11",
		danger: "9", warn: "11", border: "8",
		excellent: "10", good: "2", fair: "11", poor: "9",
	}
	lightPalette = palette{
		accent: "5", text: "0", muted: "8", user: "4", assistant: "3",
		danger: "1", warn: "3", border: "7",
		excellent: "2", good: "6", fair: "3", poor: "1",
	}
)

func themeName(dark bool) string {
	if dark {
		return "dark"
	}
	return "light"
}

func newTheme(dark bool) theme {
	p := lightPalette
	if dark {
		p = darkPalette
	}
	fg := func(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }

	return theme{
		Dark:      dark,
		Header:    fg(p.accent).Bold(true),
		Dim:       fg(p.muted),
		User:      fg(p.user).Bold(true),
		Assistant: fg(p.assistant).Bold(true),
		Error:     fg(p.danger).Bold(true),
		Prompt:    fg(p.warn).Bold(true),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(p.border)).
			Padding(0, 1),
		Title:     fg(p.text).Bold(true).Underline(true),
		Help:      fg(p.muted).Italic(true),
		Excellent: fg(p.excellent),
		Good:      fg(p.good),
		Fair:      fg(p.fair),
		Poor:      fg(p.poor),
	}
}

// tier returns the style for a score bucket.
func (t theme) tier(tier domain.Tier) lipgloss.Style {
	switch tier {
	case domain.TierExcellent:
		return t.Excellent
	case domain.TierGood:
		return t.Good
	case domain.TierFair:
		return t.Fair
	case domain.TierPoor:
		return t.Poor
	default:
		return t.Dim
	}
}
