package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"igcrawler/pkg/ui"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, bannerStyle.Width(m.width).Render(ui.ASCIILogo))

	width := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(width),
		m.renderCurrentPanel(width),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderEntitiesPanel(width),
		m.renderLogsPanel(width),
	)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, hintStyle.Render("? help  q quit"))
	}

	return screenStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderStatsPanel(width int) string {
	title := panelTitleStyle.Render(" SESSION ")

	done := 0
	for _, e := range m.entities {
		if e.State == EntityDone || e.State == EntitySkipped {
			done++
		}
	}

	stats := []string{
		fmt.Sprintf("%s %s", labelStyle.Render("Session Time:"), valueStyle.Render(formatDuration(time.Since(m.sessionStartTime)))),
		fmt.Sprintf("%s %s", labelStyle.Render("Entities:"), valueStyle.Render(fmt.Sprintf("%d/%d done", done, len(m.entities)))),
		fmt.Sprintf("%s %s", labelStyle.Render("Posts Saved:"), valueStyle.Render(fmt.Sprintf("%d/%d", m.postsSaved, m.postsAttempted))),
	}
	if failed := m.postsAttempted - m.postsSaved; failed > 0 {
		stats = append(stats, failStyle.Render(fmt.Sprintf("%d posts failed", failed)))
	}
	if m.finished {
		stats = append(stats, okStyle.Render("✓ FINISHED"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, stats...)),
	)
}

func (m *Model) renderCurrentPanel(width int) string {
	title := panelTitleStyle.Render(" CRAWLING ")

	e := m.current
	if e == nil {
		content := mutedStyle.Render("Idle")
		return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
	}

	ratio := 0.0
	if e.Total > 0 {
		ratio = float64(e.Attempted) / float64(e.Total)
		if ratio > 1 {
			ratio = 1
		}
	}

	m.progress.Width = width - 8
	if m.progress.Width < 10 {
		m.progress.Width = 10
	}

	info := fmt.Sprintf("%s %s %s",
		m.spinner.View(),
		entityActiveStyle.Render(label(e.Kind, e.Name)),
		mutedStyle.Render(fmt.Sprintf("%d/%d", e.Attempted, e.Total)),
	)

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, info, m.progress.ViewAs(ratio)),
	)
}

func (m *Model) renderEntitiesPanel(width int) string {
	title := panelTitleStyle.Render(" ENTITIES ")

	var items []string
	for _, e := range m.entities {
		switch e.State {
		case EntityActive:
			items = append(items, entityActiveStyle.Render("▶ "+label(e.Kind, e.Name)))
		case EntityDone:
			mark := "✓ "
			style := entityDoneStyle
			if e.Failed() > 0 {
				mark = "✗ "
				style = entityFailedStyle
			}
			items = append(items, style.Render(fmt.Sprintf("%s%s %d/%d", mark, label(e.Kind, e.Name), e.Succeeded, e.Attempted)))
		case EntitySkipped:
			items = append(items, entitySkippedStyle.Render("! "+label(e.Kind, e.Name)))
		default:
			items = append(items, entityStyle.Render("• "+label(e.Kind, e.Name)))
		}
	}
	if len(items) == 0 {
		items = append(items, mutedStyle.Render("Nothing crawled yet"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, items...)),
	)
}

func (m *Model) renderLogsPanel(width int) string {
	title := panelTitleStyle.Render(" LOG ")

	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}

	maxMsgLen := width - 25
	var logs []string
	for _, log := range m.logMessages[start:] {
		timestamp := logTimeStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))

		text := log.Message
		if maxMsgLen > 3 && len(text) > maxMsgLen {
			text = text[:maxMsgLen-3] + "..."
		}
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, mutedStyle.Render(text)))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = mutedStyle.Render("No logs yet...")
	}

	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m *Model) renderHelp() string {
	help := `
  Keys:
    q/Q      - Stop after the current post and quit
    ctrl+l   - Clear the log
    ?        - Toggle this help

  Entities:
    ` + okStyle.Render("✓") + `        - All posts saved
    ` + failStyle.Render("✗") + `        - Not all saved, check log
    ` + warnStyle.Render("!") + `        - Skipped
`
	return panelStyle.Width(m.width).Render(help)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
