package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"igcrawler/pkg/models"
	"igcrawler/pkg/ui"
)

// EntityStartMsg is sent when crawling of a user or tag begins
type EntityStartMsg struct {
	Kind models.EntityKind
	Name string
}

// PostsFoundMsg carries the number of posts about to be crawled
type PostsFoundMsg struct {
	Name  string
	Total int
}

// PostDoneMsg is sent after each post
type PostDoneMsg struct {
	Name string
	Link string
	OK   bool
}

// EntityFinishedMsg carries an entity's summary
type EntityFinishedMsg struct {
	Result models.EntityResult
}

// RunFinishedMsg is sent once the whole run is over
type RunFinishedMsg struct{}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		if m.finished {
			return m, nil
		}
		return m, tickCmd()

	case EntityStartMsg:
		m.startEntity(msg.Kind, msg.Name)
		m.AddLogMessage("INFO", "Crawling "+label(msg.Kind, msg.Name))
		return m, nil

	case PostsFoundMsg:
		m.postsFound(msg.Name, msg.Total)
		m.AddLogMessage("INFO", fmt.Sprintf("%d posts found for %s", msg.Total, msg.Name))
		return m, nil

	case PostDoneMsg:
		m.postDone(msg.Name, msg.OK)
		if !msg.OK {
			m.AddLogMessage("ERROR", "Failed: "+msg.Link)
		}
		return m, nil

	case EntityFinishedMsg:
		m.finishEntity(msg.Result)
		level := "SUCCESS"
		if !msg.Result.Complete() {
			level = "WARN"
		}
		m.AddLogMessage(level, label(msg.Result.Kind, msg.Result.Name)+": "+ui.FinalMessage(msg.Result))
		return m, nil

	case RunFinishedMsg:
		m.finished = true
		m.current = nil
		m.AddLogMessage("INFO", "Run finished, press q to exit")
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if !m.finished && m.onQuit != nil {
			m.onQuit()
			m.onQuit = nil
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func label(kind models.EntityKind, name string) string {
	if kind == models.EntityTag {
		return "#" + name
	}
	return "@" + name
}
