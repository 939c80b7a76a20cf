package ui

import (
	"bytes"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTUIRenderer_ReturnsNilForNonTTY(t *testing.T) {
	// Given: a non-TTY buffer
	buf := &bytes.Buffer{}
	cfg := NewConfig(buf)

	// When: creating TUI renderer
	r, err := NewTUIRenderer(cfg)

	// Then: returns error (can't create TUI for non-TTY)
	assert.Error(t, err)
	assert.Nil(t, r)
}

func newTestWaitModel() *waitModel {
	model := newWaitModel(NewWaitTracker())
	model.styles = NoColorStyles()
	return model
}

func TestWaitModel_Init(t *testing.T) {
	model := newTestWaitModel()

	cmd := model.Init()

	assert.NotNil(t, cmd)
}

func TestWaitModel_InitialView(t *testing.T) {
	// Given: a fresh wait model
	model := newTestWaitModel()

	// When: rendering before any catalog poll
	view := model.View()

	// Then: the waiting header and hint are shown
	assert.Contains(t, view, "Waiting for index build")
	assert.Contains(t, view, "catalog not polled yet")
	assert.Contains(t, view, "q to cancel waiting")
}

func TestWaitModel_ViewAfterPolls(t *testing.T) {
	// Given: a model whose tracker has observed two polls
	model := newTestWaitModel()
	model.tracker.Observe(WaitEvent{Versions: 2, Building: 1})
	model.tracker.Observe(WaitEvent{Versions: 3, Building: 1})

	// When: rendering
	view := model.View()

	// Then: catalog counts from the latest poll are shown
	assert.Contains(t, view, "catalog: 3 versions, 1 building")
	assert.Contains(t, view, "(poll 2)")
}

func TestWaitModel_ViewShowsWarningMessage(t *testing.T) {
	model := newTestWaitModel()
	model.tracker.Observe(WaitEvent{Versions: 1, Message: "catalog listing failed; retrying"})

	view := model.View()

	assert.Contains(t, view, "catalog listing failed; retrying")
}

func TestWaitModel_QuitKeyCancelsWaiting(t *testing.T) {
	// Given: a waiting model
	model := newTestWaitModel()

	// When: pressing q
	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	// Then: the model quits and explains the build keeps running
	require.NotNil(t, cmd)
	m, ok := updated.(*waitModel)
	require.True(t, ok)
	assert.True(t, m.quitting)
	assert.Contains(t, m.View(), "Cancelled")
	assert.Contains(t, m.View(), "kbmcp versions")
}

func TestWaitModel_CtrlCCancelsWaiting(t *testing.T) {
	model := newTestWaitModel()

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.True(t, model.quitting)
}

func TestWaitModel_DoneMessageQuits(t *testing.T) {
	// Given: a waiting model
	model := newTestWaitModel()

	// When: the wait resolves with a READY version
	outcome := WaitOutcome{
		VersionID: "v-042",
		Status:    "READY",
		FileCount: 15,
		Duration:  4 * time.Minute,
	}
	_, cmd := model.Update(waitDoneMsg(outcome))

	// Then: the model quits and renders the outcome panel
	require.NotNil(t, cmd)
	assert.True(t, model.done)

	view := model.View()
	assert.Contains(t, view, "Index build complete")
	assert.Contains(t, view, "v-042")
	assert.Contains(t, view, "15")
}

func TestWaitModel_OutcomePromoted(t *testing.T) {
	model := newTestWaitModel()

	model.Update(waitDoneMsg(WaitOutcome{
		VersionID: "v-042",
		Status:    "READY",
		Duration:  time.Minute,
		Promoted:  true,
	}))

	assert.Contains(t, model.View(), "Promoted to active")
}

func TestWaitModel_OutcomeFailed(t *testing.T) {
	model := newTestWaitModel()

	model.Update(waitDoneMsg(WaitOutcome{
		VersionID: "v-043",
		Status:    "FAILED",
		Duration:  2 * time.Minute,
	}))

	view := model.View()
	assert.Contains(t, view, "Index build failed")
	assert.Contains(t, view, "v-043")
}

func TestWaitModel_OutcomeTimeout(t *testing.T) {
	model := newTestWaitModel()

	model.Update(waitDoneMsg(WaitOutcome{
		Duration: 30 * time.Minute,
		TimedOut: true,
	}))

	view := model.View()
	assert.Contains(t, view, "Timed out waiting for the build")
	assert.Contains(t, view, "kbmcp versions")
}

func TestWaitModel_WindowSize(t *testing.T) {
	model := newTestWaitModel()

	model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.Equal(t, 120, model.width)
}

func TestWaitModel_EventMessageWakesView(t *testing.T) {
	// Given: a model and a tracker update delivered out of band
	model := newTestWaitModel()
	event := model.tracker.Observe(WaitEvent{Versions: 4, Building: 2})

	// When: the wake-up message arrives
	_, cmd := model.Update(waitEventMsg(event))

	// Then: no follow-up command is needed; the view reads the tracker
	assert.Nil(t, cmd)
	assert.Contains(t, model.View(), "catalog: 4 versions, 2 building")
}

func TestWaitModel_TickSchedulesNextTick(t *testing.T) {
	model := newTestWaitModel()

	_, cmd := model.Update(tickMsg(time.Now()))

	assert.NotNil(t, cmd)
}
