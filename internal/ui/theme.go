package ui

import "github.com/charmbracelet/lipgloss"

// Tokyo Night palette.
var (
	colorForeground = lipgloss.Color("#c0caf5")
	colorDim        = lipgloss.Color("#565f89")
	colorPrimary    = lipgloss.Color("#7aa2f7")
	colorSuccess    = lipgloss.Color("#9ece6a")
	colorWarning    = lipgloss.Color("#e0af68")
	colorError      = lipgloss.Color("#f7768e")
	colorSelection  = lipgloss.Color("#33467c")
)

type styles struct {
	title    lipgloss.Style
	subtitle lipgloss.Style
	row      lipgloss.Style
	selected lipgloss.Style
	dim      lipgloss.Style
	running  lipgloss.Style
	paused   lipgloss.Style
	done     lipgloss.Style
	missed   lipgloss.Style
	errorMsg lipgloss.Style
	notice   lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(colorPrimary),
		subtitle: lipgloss.NewStyle().Foreground(colorDim),
		row:      lipgloss.NewStyle().Foreground(colorForeground),
		selected: lipgloss.NewStyle().Foreground(colorForeground).Background(colorSelection).Bold(true),
		dim:      lipgloss.NewStyle().Foreground(colorDim),
		running:  lipgloss.NewStyle().Foreground(colorPrimary).Bold(true),
		paused:   lipgloss.NewStyle().Foreground(colorWarning),
		done:     lipgloss.NewStyle().Foreground(colorSuccess),
		missed:   lipgloss.NewStyle().Foreground(colorError),
		errorMsg: lipgloss.NewStyle().Foreground(colorError),
		notice:   lipgloss.NewStyle().Foreground(colorSuccess).Bold(true),
	}
}

// maxWidth caps the content width (classic terminal width).
const maxWidth = 80

func contentWidth(terminalWidth int) int {
	if terminalWidth <= 0 || terminalWidth > maxWidth {
		return maxWidth
	}
	return terminalWidth
}
