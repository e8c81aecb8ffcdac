package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"igcrawler/pkg/models"
)

// Dashboard is a full-screen crawl display. It implements ui.Reporter so the
// crawler can drive it directly.
type Dashboard struct {
	program *tea.Program
	model   *Model
}

// NewDashboard creates a dashboard. onQuit is called when the operator quits
// while the crawl is still running.
func NewDashboard(onQuit func(), opts ...tea.ProgramOption) *Dashboard {
	model := NewModel(onQuit)
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &Dashboard{
		program: tea.NewProgram(model, opts...),
		model:   model,
	}
}

// Run blocks until the operator quits.
func (d *Dashboard) Run() error {
	_, err := d.program.Run()
	return err
}

// Finish marks the run as complete; the dashboard stays up until quit.
func (d *Dashboard) Finish() {
	d.program.Send(RunFinishedMsg{})
}

// Stop closes the dashboard.
func (d *Dashboard) Stop() {
	d.program.Quit()
}

func (d *Dashboard) EntityStarted(kind models.EntityKind, name string) {
	d.program.Send(EntityStartMsg{Kind: kind, Name: name})
}

func (d *Dashboard) PostsFound(name string, total int) {
	d.program.Send(PostsFoundMsg{Name: name, Total: total})
}

func (d *Dashboard) PostDone(name, link string, ok bool) {
	d.program.Send(PostDoneMsg{Name: name, Link: link, OK: ok})
}

func (d *Dashboard) EntityFinished(result models.EntityResult) {
	d.program.Send(EntityFinishedMsg{Result: result})
}

func (d *Dashboard) Info(msg string) {
	d.program.Send(LogMsg{Level: "INFO", Message: msg})
}

func (d *Dashboard) Warn(msg string) {
	d.program.Send(LogMsg{Level: "WARN", Message: msg})
}

func (d *Dashboard) Error(msg string, err error) {
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	d.program.Send(LogMsg{Level: "ERROR", Message: msg})
}
