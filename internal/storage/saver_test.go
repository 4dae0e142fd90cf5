package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatianab/xianxia/internal/catalog"
	"github.com/tatianab/xianxia/internal/logger"
	"github.com/tatianab/xianxia/internal/models"
)

const testDelay = 20 * time.Millisecond

func testSession(turn int) models.Session {
	return models.Session{
		Player: models.PlayerState{
			Name:       "Wei",
			Identity:   "Village Orphan",
			SpiritRoot: "Fire",
			Realm:      "Mortal",
			HP:         70,
			MaxHP:      100,
			Qi:         5,
			MaxQi:      100,
			Gold:       3,
			Karma:      10,
			Inventory:  []string{"Ring"},
			Location:   "Village",
			Phase:      models.PhaseOrigin,
		},
		IdentityID: "orphan",
		Turn:       turn,
		Log:        []models.LogEntry{{ID: "l1", Role: models.RoleNarrator, Text: "Dawn.", Timestamp: 42}},
		Choices:    []models.Choice{{ID: "c1", Text: "Continue", ActionType: models.ActionContinue}},
		Language:   catalog.English,
	}
}

func newTestSaver(store BlobStore) *Saver {
	return NewSaver(store, "", testDelay, logger.Discard())
}

func TestSaver_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	saver := newTestSaver(store)
	defer saver.Close()

	s := testSession(3)
	saver.Save(s)
	require.NoError(t, saver.Flush(ctx))

	loaded, err := saver.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	s.Version = models.SchemaVersion
	assert.Equal(t, s, *loaded)
}

func TestSaver_Debounces(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	saver := newTestSaver(store)
	defer saver.Close()

	for turn := 1; turn <= 5; turn++ {
		saver.Save(testSession(turn))
	}

	require.Eventually(t, func() bool { return store.Writes() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * testDelay)
	assert.Equal(t, 1, store.Writes(), "burst should coalesce into one write")

	loaded, err := saver.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 5, loaded.Turn, "last request wins")
}

func TestSaver_SkipsBusyAndFinished(t *testing.T) {
	ctx := context.Background()

	tests := map[string]func(*models.Session){
		"busy":      func(s *models.Session) { s.Busy = true },
		"game over": func(s *models.Session) { s.IsGameOver = true },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			store := NewMemoryStore()
			saver := newTestSaver(store)
			defer saver.Close()

			saver.Save(testSession(1))
			s := testSession(2)
			mutate(&s)
			saver.Save(s)

			require.NoError(t, saver.Flush(ctx))
			time.Sleep(3 * testDelay)
			assert.Equal(t, 0, store.Writes(), "skipped request supersedes the pending one")

			loaded, err := saver.Load(ctx)
			require.NoError(t, err)
			assert.Nil(t, loaded)
		})
	}
}

func TestSaver_LoadDiscardsBadBlobs(t *testing.T) {
	ctx := context.Background()

	finished := testSession(9)
	finished.IsGameOver = true
	finishedBlob, err := models.EncodeSession(finished)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":     "::: not a session :::",
		"no player":   "version: 2\nturn: 3\n",
		"old version": "version: 1\nplayer:\n  name: Wei\n",
		"finished":    finishedBlob,
	}

	for name, blob := range tests {
		t.Run(name, func(t *testing.T) {
			store := NewMemoryStore()
			saver := newTestSaver(store)
			defer saver.Close()

			require.NoError(t, store.Set(ctx, saver.Key(), blob))

			loaded, err := saver.Load(ctx)
			require.NoError(t, err)
			assert.Nil(t, loaded)

			_, ok, err := store.Get(ctx, saver.Key())
			require.NoError(t, err)
			assert.False(t, ok, "bad save should be removed from the store")
		})
	}
}

func TestSaver_LoadEmpty(t *testing.T) {
	saver := newTestSaver(NewMemoryStore())
	defer saver.Close()

	loaded, err := saver.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSaver_ClearCancelsPending(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	saver := newTestSaver(store)
	defer saver.Close()

	saver.Save(testSession(1))
	require.NoError(t, saver.Flush(ctx))
	saver.Save(testSession(2))
	require.NoError(t, saver.Clear(ctx))

	time.Sleep(3 * testDelay)
	_, ok, err := store.Get(ctx, saver.Key())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, store.Writes())
}

func TestSaver_CloseStopsWrites(t *testing.T) {
	store := NewMemoryStore()
	saver := newTestSaver(store)

	saver.Save(testSession(1))
	saver.Close()
	saver.Save(testSession(2))

	time.Sleep(3 * testDelay)
	assert.Equal(t, 0, store.Writes())
}

func TestSaver_SlotKey(t *testing.T) {
	saver := NewSaver(NewMemoryStore(), "alt", 0, logger.Discard())
	defer saver.Close()
	assert.Equal(t, models.SaveKey("alt"), saver.Key())
}
