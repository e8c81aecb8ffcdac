package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"igcrawler/pkg/models"
)

// EntityState is where an entity is in the crawl.
type EntityState int

const (
	EntityPending EntityState = iota
	EntityActive
	EntityDone
	EntitySkipped
)

// EntityRow is one user or tag on the dashboard.
type EntityRow struct {
	Kind      models.EntityKind
	Name      string
	Total     int
	Attempted int
	Succeeded int
	State     EntityState
	Message   string
	StartTime time.Time
}

// Failed is the number of attempted posts that were not saved.
func (e *EntityRow) Failed() int {
	return e.Attempted - e.Succeeded
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model is the dashboard state. It is only touched from the bubbletea
// event loop.
type Model struct {
	spinner  spinner.Model
	progress progress.Model

	entities []*EntityRow
	byName   map[string]*EntityRow
	current  *EntityRow

	postsAttempted   int
	postsSaved       int
	sessionStartTime time.Time

	width          int
	height         int
	showHelp       bool
	finished       bool
	logMessages    []LogMessage
	maxLogMessages int

	onQuit func()
}

// NewModel creates a dashboard model. onQuit runs once when the operator
// quits before the crawl has finished.
func NewModel(onQuit func()) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorInfo)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	return &Model{
		spinner:          s,
		progress:         p,
		byName:           make(map[string]*EntityRow),
		sessionStartTime: time.Now(),
		maxLogMessages:   50,
		onQuit:           onQuit,
	}
}

// Init starts the spinner and the refresh tick.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func key(kind models.EntityKind, name string) string {
	return string(kind) + ":" + name
}

func (m *Model) startEntity(kind models.EntityKind, name string) {
	row, ok := m.byName[key(kind, name)]
	if !ok {
		row = &EntityRow{Kind: kind, Name: name}
		m.byName[key(kind, name)] = row
		m.entities = append(m.entities, row)
	}
	row.State = EntityActive
	row.StartTime = time.Now()
	m.current = row
}

func (m *Model) postsFound(name string, total int) {
	if m.current != nil && m.current.Name == name {
		m.current.Total = total
	}
}

func (m *Model) postDone(name string, ok bool) {
	m.postsAttempted++
	if ok {
		m.postsSaved++
	}
	if m.current == nil || m.current.Name != name {
		return
	}
	m.current.Attempted++
	if ok {
		m.current.Succeeded++
	}
}

func (m *Model) finishEntity(r models.EntityResult) {
	row, ok := m.byName[key(r.Kind, r.Name)]
	if !ok {
		row = &EntityRow{Kind: r.Kind, Name: r.Name}
		m.byName[key(r.Kind, r.Name)] = row
		m.entities = append(m.entities, row)
	}
	row.Total = r.Total
	row.Attempted = r.Attempted
	row.Succeeded = r.Succeeded
	row.State = EntityDone
	if r.SkipReason != "" {
		row.State = EntitySkipped
	}
	if m.current == row {
		m.current = nil
	}
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	color := colorMuted
	switch level {
	case "ERROR":
		color = colorFail
	case "WARN":
		color = colorWarn
	case "SUCCESS":
		color = colorOK
	case "INFO":
		color = colorInfo
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Entities returns the rows in the order they were first seen.
func (m *Model) Entities() []*EntityRow {
	return m.entities
}

// Current is the entity being crawled, or nil.
func (m *Model) Current() *EntityRow {
	return m.current
}

// Finished reports whether the crawl run has ended.
func (m *Model) Finished() bool {
	return m.finished
}
