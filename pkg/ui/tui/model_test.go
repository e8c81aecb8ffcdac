package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igcrawler/pkg/models"
	"igcrawler/pkg/ui"
)

func send(m *Model, msgs ...tea.Msg) {
	for _, msg := range msgs {
		m.Update(msg)
	}
}

func TestModelTracksEntities(t *testing.T) {
	model := NewModel(nil)

	send(model,
		EntityStartMsg{Kind: models.EntityUser, Name: "natgeo"},
		PostsFoundMsg{Name: "natgeo", Total: 3},
		PostDoneMsg{Name: "natgeo", Link: "a", OK: true},
		PostDoneMsg{Name: "natgeo", Link: "b", OK: false},
	)

	current := model.Current()
	require.NotNil(t, current)
	assert.Equal(t, "natgeo", current.Name)
	assert.Equal(t, 3, current.Total)
	assert.Equal(t, 2, current.Attempted)
	assert.Equal(t, 1, current.Succeeded)
	assert.Equal(t, 1, current.Failed())

	send(model, EntityFinishedMsg{Result: models.EntityResult{
		Kind: models.EntityUser, Name: "natgeo", Total: 3, Attempted: 3, Succeeded: 2,
	}})
	assert.Nil(t, model.Current())
	require.Len(t, model.Entities(), 1)
	assert.Equal(t, EntityDone, model.Entities()[0].State)

	send(model,
		EntityStartMsg{Kind: models.EntityTag, Name: "private_tag"},
		EntityFinishedMsg{Result: models.EntityResult{Kind: models.EntityTag, Name: "private_tag", SkipReason: "no posts"}},
	)
	require.Len(t, model.Entities(), 2)
	assert.Equal(t, EntitySkipped, model.Entities()[1].State)

	last := model.logMessages[len(model.logMessages)-1]
	assert.Equal(t, "WARN", last.Level)
	assert.Contains(t, last.Message, "skipped: no posts")
}

func TestModelUserAndTagWithSameName(t *testing.T) {
	model := NewModel(nil)
	send(model,
		EntityStartMsg{Kind: models.EntityUser, Name: "sunset"},
		EntityFinishedMsg{Result: models.EntityResult{Kind: models.EntityUser, Name: "sunset"}},
		EntityStartMsg{Kind: models.EntityTag, Name: "sunset"},
	)
	assert.Len(t, model.Entities(), 2)
}

func TestQuitStopsRunningCrawl(t *testing.T) {
	calls := 0
	model := NewModel(func() { calls++ })

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, 1, calls)

	model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Equal(t, 1, calls, "onQuit runs once")
}

func TestQuitAfterFinishDoesNotStop(t *testing.T) {
	calls := 0
	model := NewModel(func() { calls++ })

	send(model, RunFinishedMsg{})
	assert.True(t, model.Finished())

	model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Zero(t, calls)
}

func TestLogIsBounded(t *testing.T) {
	model := NewModel(nil)
	for i := 0; i < 80; i++ {
		model.AddLogMessage("INFO", "line")
	}
	assert.Len(t, model.logMessages, 50)

	model.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Empty(t, model.logMessages)
}

func TestView(t *testing.T) {
	model := NewModel(nil)
	assert.Equal(t, "Initializing...", model.View())

	send(model,
		tea.WindowSizeMsg{Width: 160, Height: 50},
		EntityStartMsg{Kind: models.EntityTag, Name: "sunset"},
		PostsFoundMsg{Name: "sunset", Total: 5},
		PostDoneMsg{Name: "sunset", Link: "a", OK: true},
	)

	view := model.View()
	assert.Contains(t, view, "#sunset")
	assert.Contains(t, view, "1/5")

	send(model,
		EntityFinishedMsg{Result: models.EntityResult{Kind: models.EntityTag, Name: "sunset", Total: 5, Attempted: 5, Succeeded: 5}},
		RunFinishedMsg{},
	)
	view = model.View()
	assert.True(t, strings.Contains(view, "FINISHED"))
	assert.Contains(t, view, ui.MsgAllDownloaded)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00", formatDuration(-1))
	assert.Equal(t, "01:05", formatDuration(65e9))
	assert.Equal(t, "01:00:00", formatDuration(3600e9))
}
