package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatianab/xianxia/internal/catalog"
	"github.com/tatianab/xianxia/internal/engine"
	"github.com/tatianab/xianxia/internal/game"
	"github.com/tatianab/xianxia/internal/logger"
	"github.com/tatianab/xianxia/internal/models"
	"github.com/tatianab/xianxia/internal/storage"
)

type stubNarrator struct {
	result models.TurnResult
}

func (n stubNarrator) RequestTurn(context.Context, engine.TurnRequest) models.TurnResult {
	r := n.result
	if len(r.Choices) == 0 {
		r.Choices = []models.Choice{
			models.NewChoice("Climb the mountain", models.ActionTravel),
			models.NewChoice("Meditate", models.ActionMeditate),
		}
	}
	return r
}

func newTestModel(t *testing.T, result models.TurnResult) model {
	t.Helper()
	saver := storage.NewSaver(storage.NewMemoryStore(), "", time.Millisecond, logger.Discard())
	t.Cleanup(saver.Close)
	ctrl := game.NewController(stubNarrator{result: result}, saver, logger.Discard())
	return NewModel(ctrl, catalog.English)
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	require.True(t, ok)
	return nm, cmd
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestModel_SetupAndPlay(t *testing.T) {
	m := newTestModel(t, models.TurnResult{Narrative: "Snow falls on the village."})
	assert.Equal(t, screenLanguage, m.screen)

	m, _ = update(t, m, key(tea.KeyEnter))
	require.Equal(t, screenName, m.screen)
	assert.Equal(t, catalog.English, m.lang)

	m, _ = update(t, m, key(tea.KeyEnter))
	assert.Equal(t, screenName, m.screen, "empty names are not accepted")

	m.textInput.SetValue("Wei")
	m, _ = update(t, m, key(tea.KeyEnter))
	require.Equal(t, screenIdentity, m.screen)

	m, cmd := update(t, m, key(tea.KeyEnter))
	require.NotNil(t, cmd)
	assert.Equal(t, screenPlaying, m.screen)
	assert.True(t, m.session.Busy)
	assert.Contains(t, m.View(), catalog.Text(catalog.English).Thinking)

	m, _ = update(t, m, cmd())
	assert.False(t, m.session.Busy)
	require.Len(t, m.session.Choices, 2)
	assert.Equal(t, "Wei", m.session.Player.Name)
	view := m.View()
	assert.Contains(t, view, "Snow falls on the village.")
	assert.Contains(t, view, "1. Climb the mountain")

	m, cmd = update(t, m, runes("2"))
	require.NotNil(t, cmd)
	assert.True(t, m.session.Busy)

	m, _ = update(t, m, cmd())
	assert.Equal(t, 2, m.session.Turn)
	assert.Equal(t, "Meditate", m.session.Log[1].Text)
}

func TestModel_ChoiceOutOfRange(t *testing.T) {
	m := newTestModel(t, models.TurnResult{Narrative: "Dawn."})
	m, _ = update(t, m, key(tea.KeyEnter))
	m.textInput.SetValue("Wei")
	m, _ = update(t, m, key(tea.KeyEnter))
	m, cmd := update(t, m, key(tea.KeyEnter))
	m, _ = update(t, m, cmd())

	_, cmd = update(t, m, runes("7"))
	assert.Nil(t, cmd)
}

func TestModel_ContinueLogsPlaceholder(t *testing.T) {
	m := newTestModel(t, models.TurnResult{
		Narrative: "Mist rolls over the river.",
		Choices:   []models.Choice{models.NewChoice("Continue", models.ActionContinue)},
	})
	m, _ = update(t, m, key(tea.KeyEnter))
	m.textInput.SetValue("Wei")
	m, _ = update(t, m, key(tea.KeyEnter))
	m, cmd := update(t, m, key(tea.KeyEnter))
	m, _ = update(t, m, cmd())

	placeholder := catalog.Text(catalog.English).ContinueAction
	m, cmd = update(t, m, runes("1"))
	require.NotNil(t, cmd)
	require.Len(t, m.session.Log, 2)
	assert.Equal(t, placeholder, m.session.Log[1].Text, "pending entry")

	m, _ = update(t, m, cmd())
	require.Len(t, m.session.Log, 3)
	assert.Equal(t, placeholder, m.session.Log[1].Text, "resolved entry")
}

func TestModel_GameOverAndReincarnate(t *testing.T) {
	m := newTestModel(t, models.TurnResult{Narrative: "A falling star ends you.", GameOver: true})
	m, _ = update(t, m, key(tea.KeyEnter))
	m.textInput.SetValue("Wei")
	m, _ = update(t, m, key(tea.KeyEnter))
	m, cmd := update(t, m, key(tea.KeyEnter))
	m, _ = update(t, m, cmd())

	require.Equal(t, screenGameOver, m.screen)
	assert.Contains(t, m.View(), catalog.Text(catalog.English).GameOver)

	m, _ = update(t, m, key(tea.KeyEnter))
	assert.Equal(t, screenName, m.screen)
	assert.Equal(t, "Wei", m.textInput.Value(), "name is kept for the next life")
}

func TestModel_ChineseLabels(t *testing.T) {
	m := newTestModel(t, models.TurnResult{Narrative: "雪落。"})
	m, _ = update(t, m, runes("k"))
	m, _ = update(t, m, key(tea.KeyEnter))
	require.Equal(t, catalog.Chinese, m.lang)
	assert.True(t, strings.Contains(m.View(), catalog.Text(catalog.Chinese).EnterName))
}
