package tui

import "github.com/charmbracelet/lipgloss"

// Palette, loosely the site's gradient on a dark background.
var (
	colorAccent  = lipgloss.Color("#E1306C")
	colorPurple  = lipgloss.Color("#833AB4")
	colorOK      = lipgloss.Color("#5AD17A")
	colorInfo    = lipgloss.Color("#6EC6FF")
	colorWarn    = lipgloss.Color("#FCAF45")
	colorFail    = lipgloss.Color("#FD1D1D")
	colorMuted   = lipgloss.Color("#A8A8B3")
	colorFaint   = lipgloss.Color("#5C5C66")
	colorBg      = lipgloss.Color("#121015")
	colorPanelBg = lipgloss.Color("#1E1A24")
)

var (
	screenStyle = lipgloss.NewStyle().
			Background(colorBg).
			Foreground(colorMuted)

	bannerStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true).
			Align(lipgloss.Center).
			Padding(1, 0)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPurple).
			Background(colorPanelBg).
			Padding(0, 1).
			MarginBottom(1)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(colorBg).
			Background(colorAccent).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Foreground(colorInfo).Bold(true)
	valueStyle = lipgloss.NewStyle().Foreground(colorWarn)
	okStyle    = lipgloss.NewStyle().Foreground(colorOK).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(colorFail).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)

	entityStyle        = lipgloss.NewStyle().PaddingLeft(2)
	entityActiveStyle  = entityStyle.Foreground(colorOK).Bold(true)
	entityDoneStyle    = entityStyle.Foreground(colorMuted).Faint(true)
	entityFailedStyle  = entityStyle.Foreground(colorFail)
	entitySkippedStyle = entityStyle.Foreground(colorWarn)

	logTimeStyle = lipgloss.NewStyle().Foreground(colorFaint)
	hintStyle    = lipgloss.NewStyle().Foreground(colorFaint).PaddingLeft(2)
)
