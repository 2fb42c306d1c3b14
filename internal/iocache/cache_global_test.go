package iocache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/huangsam/cgmlens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetManager restores the global manager between tests.
func resetManager(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	initOnce = sync.Once{}
	closeOnce = sync.Once{}
	Manager = &CacheStoreManager{}
}

func TestInitStores(t *testing.T) {
	t.Run("sqlite defaults", func(t *testing.T) {
		resetManager(t)

		require.NoError(t, InitStores(schema.SQLiteBackend, "", schema.SQLiteBackend, ""))
		assert.NotNil(t, Manager.GetQualityStore())
		assert.NotNil(t, Manager.GetHistoryStore())
		CloseStores()

		_, err := os.Stat(GetDBFilePath())
		assert.NoError(t, err, "cache database file should be created")
		_, err = os.Stat(GetHistoryDBFilePath())
		assert.NoError(t, err, "history database file should be created")
	})

	t.Run("idempotent", func(t *testing.T) {
		resetManager(t)

		assert.NoError(t, InitStores(schema.SQLiteBackend, "", "", ""))
		assert.NoError(t, InitStores(schema.SQLiteBackend, "", "", ""))
		assert.Nil(t, Manager.GetHistoryStore(), "empty backend leaves the store unset")
		CloseStores()
		CloseStores()
	})

	t.Run("none backend", func(t *testing.T) {
		resetManager(t)

		require.NoError(t, InitStores(schema.NoneBackend, "", schema.NoneBackend, ""))
		store := Manager.GetQualityStore()
		require.NotNil(t, store)
		status, err := store.GetStatus()
		require.NoError(t, err)
		assert.False(t, status.Connected)
		CloseStores()
	})

	t.Run("invalid backend", func(t *testing.T) {
		resetManager(t)

		err := InitStores(schema.SQLiteBackend, "", "oracle", "")
		assert.ErrorContains(t, err, "failed to initialize history store")
		assert.Nil(t, Manager.GetQualityStore())
	})
}

func TestClearStores(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "cache.db")
	historyPath := filepath.Join(dir, "history.db")

	store, err := NewCacheStore(qualityTable, schema.SQLiteBackend, cachePath)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	history, err := NewHistoryStore(schema.SQLiteBackend, historyPath)
	require.NoError(t, err)
	require.NoError(t, history.Close())

	require.NoError(t, ClearCache(schema.SQLiteBackend, cachePath, ""))
	_, err = os.Stat(cachePath)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, ClearHistory(schema.SQLiteBackend, historyPath, ""))
	_, err = os.Stat(historyPath)
	assert.True(t, os.IsNotExist(err))

	// clearing twice is fine
	assert.NoError(t, ClearCache(schema.SQLiteBackend, cachePath, ""))
	assert.NoError(t, ClearHistory(schema.NoneBackend, "", ""))
	assert.Error(t, ClearCache(schema.SQLiteBackend, "", ""))
	assert.Error(t, ClearHistory("oracle", "", ""))
}
