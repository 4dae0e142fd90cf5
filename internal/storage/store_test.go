package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatianab/xianxia/internal/config"
	"github.com/tatianab/xianxia/internal/logger"
	"github.com/tatianab/xianxia/internal/models"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	store := NewRedisStore(mr.Addr(), logger.Discard())
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func testStores(t *testing.T) map[string]BlobStore {
	t.Helper()

	sqliteStore, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "saves.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })

	redisStore, _ := setupTestRedis(t)

	return map[string]BlobStore{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(t.TempDir()),
		"sqlite": sqliteStore,
		"redis":  redisStore,
	}
}

func TestBlobStores(t *testing.T) {
	ctx := context.Background()

	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			const key = "xianxia/session/v2"

			_, ok, err := store.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok, "fresh store should be empty")

			require.NoError(t, store.Set(ctx, key, "first"))
			require.NoError(t, store.Set(ctx, key, "second: 修仙"))

			v, ok, err := store.Get(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "second: 修仙", v)

			_, ok, err = store.Get(ctx, key+"/other")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Remove(ctx, key))
			_, ok, err = store.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Remove(ctx, key), "removing an absent key is fine")
		})
	}
}

func TestRedisStore_Ping(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.Set(ctx, "k", "v"))
	assert.Equal(t, "v", mustGet(t, mr, "k"))
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

func TestFileStore_ListSlots(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir())

	slots, err := store.ListSlots("xianxia/session/v2")
	require.NoError(t, err)
	assert.Empty(t, slots)

	require.NoError(t, store.Set(ctx, "xianxia/session/v2", "a"))
	require.NoError(t, store.Set(ctx, "xianxia/session/v2/alt", "b"))
	require.NoError(t, store.Set(ctx, "xianxia/session/v1", "old"))

	slots, err = store.ListSlots("xianxia/session/v2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"xianxia/session/v2", "xianxia/session/v2/alt"}, slots)
}

func TestFileStore_RejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	store := NewFileStore(filepath.Join(base, "saves"))

	for _, key := range []string{"xianxia/../../outside", "../outside", "xianxia//v2", "xianxia/./v2", `xianxia/..\outside`} {
		t.Run(key, func(t *testing.T) {
			assert.ErrorIs(t, store.Set(ctx, key, "x"), ErrInvalidKey)
			_, _, err := store.Get(ctx, key)
			assert.ErrorIs(t, err, ErrInvalidKey)
			assert.ErrorIs(t, store.Remove(ctx, key), ErrInvalidKey)
		})
	}

	_, err := os.Stat(filepath.Join(base, "outside.yaml"))
	assert.True(t, os.IsNotExist(err), "nothing is written outside the store directory")
}

func TestSaver_HostileSlotStaysInDir(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	dir := filepath.Join(base, "saves")
	saver := NewSaver(NewFileStore(dir), "../../escape", testDelay, logger.Discard())
	defer saver.Close()

	saver.Save(testSession(1))
	require.NoError(t, saver.Flush(ctx))

	slots, err := NewFileStore(dir).ListSlots(models.SaveKeyPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{saver.Key()}, slots)

	_, err = os.Stat(filepath.Join(base, "escape.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := Open(ctx, &config.Config{SaveBackend: config.BackendFile, SaveDir: dir}, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	store, err = Open(ctx, &config.Config{SaveBackend: config.BackendSQLite, SQLitePath: filepath.Join(dir, "x.db")}, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, store.Close())

	_, mr := setupTestRedis(t)
	store, err = Open(ctx, &config.Config{SaveBackend: config.BackendRedis, RedisAddr: mr.Addr()}, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, store)
	require.NoError(t, store.Close())

	_, err = Open(ctx, &config.Config{SaveBackend: "cookie"}, logger.Discard())
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
