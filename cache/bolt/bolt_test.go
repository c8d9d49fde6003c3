package bolt

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/status-im/apisharp/cache"
)

func openTestCache(t *testing.T, path string) (*BoltCache, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	c, err := Open(&cache.BoltConfig{Path: path}, WithClock(mock))
	require.NoError(t, err)
	return c, mock
}

func TestBoltCache_SetAndGet(t *testing.T) {
	c, _ := openTestCache(t, filepath.Join(t.TempDir(), "cache.db"))
	defer c.Close()

	c.Set("GET https://api.test/a?", []byte("payload"), time.Minute)

	entry, found := c.Get("GET https://api.test/a?")
	require.True(t, found)
	assert.Equal(t, []byte("payload"), entry.Data)
	assert.True(t, c.Has("GET https://api.test/a?"))
}

func TestBoltCache_Expiry(t *testing.T) {
	c, mock := openTestCache(t, filepath.Join(t.TempDir(), "cache.db"))
	defer c.Close()

	c.Set("k", []byte("v"), time.Second)

	mock.Add(time.Second)
	assert.True(t, c.Has("k"))

	mock.Add(time.Millisecond)
	_, found := c.Get("k")
	assert.False(t, found)
	assert.Equal(t, 0, c.Len())
}

func TestBoltCache_NonPositiveTTL(t *testing.T) {
	c, _ := openTestCache(t, filepath.Join(t.TempDir(), "cache.db"))
	defer c.Close()

	c.Set("k", []byte("v"), 0)
	assert.Equal(t, 0, c.Len())
}

func TestBoltCache_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	c, _ := openTestCache(t, path)
	c.Set("k", []byte("v"), time.Hour)
	require.NoError(t, c.Close())

	reopened, err := Open(&cache.BoltConfig{Path: path})
	require.NoError(t, err)
	defer reopened.Close()

	entry, found := reopened.Get("k")
	require.True(t, found)
	assert.Equal(t, []byte("v"), entry.Data)
}

func TestBoltCache_DeleteAndClear(t *testing.T) {
	c, _ := openTestCache(t, filepath.Join(t.TempDir(), "cache.db"))
	defer c.Close()

	c.Set("a", []byte("1"), time.Minute)
	c.Set("b", []byte("2"), time.Minute)

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))

	c.Clear()
	assert.False(t, c.Has("b"))
	assert.Equal(t, 0, c.Len())

	// bucket is usable after clear
	c.Set("c", []byte("3"), time.Minute)
	assert.True(t, c.Has("c"))
}

func TestOpen_LockedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	c, _ := openTestCache(t, path)
	defer c.Close()

	_, err := Open(&cache.BoltConfig{Path: path, OpenTimeout: 50 * time.Millisecond})
	assert.Error(t, err)
}
