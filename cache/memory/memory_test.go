package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestCache() (*MemoryCache, *clock.Mock) {
	mock := clock.NewMock()
	return NewMemoryCache(WithClock(mock)), mock
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	c, _ := newTestCache()

	c.Set("test-key", []byte("test-value"), time.Minute)

	entry, found := c.Get("test-key")
	require.True(t, found)
	assert.Equal(t, []byte("test-value"), entry.Data)
	assert.True(t, c.Has("test-key"))
}

func TestMemoryCache_Get_NotFound(t *testing.T) {
	c, _ := newTestCache()

	entry, found := c.Get("non-existent-key")

	assert.False(t, found)
	assert.Nil(t, entry)
	assert.False(t, c.Has("non-existent-key"))
}

func TestMemoryCache_LazyExpiry(t *testing.T) {
	c, mock := newTestCache()

	c.Set("k", []byte("v"), 100*time.Millisecond)

	mock.Add(100 * time.Millisecond)
	assert.True(t, c.Has("k"), "entry is visible while now - storedAt <= ttl")

	mock.Add(time.Millisecond)
	assert.Equal(t, 1, c.Len(), "expired entry stays until touched")

	_, found := c.Get("k")
	assert.False(t, found)
	assert.Equal(t, 0, c.Len(), "read evicts the expired entry")
}

func TestMemoryCache_HasEvictsExpired(t *testing.T) {
	c, mock := newTestCache()

	c.Set("k", []byte("v"), time.Second)
	mock.Add(2 * time.Second)

	assert.False(t, c.Has("k"))
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_NonPositiveTTL(t *testing.T) {
	c, _ := newTestCache()

	c.Set("zero", []byte("v"), 0)
	c.Set("negative", []byte("v"), -time.Second)

	assert.False(t, c.Has("zero"))
	assert.False(t, c.Has("negative"))
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_SetOverwritesAndRestartsTTL(t *testing.T) {
	c, mock := newTestCache()

	c.Set("k", []byte("first"), time.Second)
	mock.Add(800 * time.Millisecond)
	c.Set("k", []byte("second"), time.Second)
	mock.Add(800 * time.Millisecond)

	entry, found := c.Get("k")
	require.True(t, found)
	assert.Equal(t, []byte("second"), entry.Data)
}

func TestMemoryCache_GetReturnsCopy(t *testing.T) {
	c, _ := newTestCache()
	c.Set("k", []byte("v"), time.Minute)

	entry, _ := c.Get("k")
	entry.TTL = 0

	again, found := c.Get("k")
	require.True(t, found)
	assert.Equal(t, time.Minute.Milliseconds(), again.TTL)
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	c, _ := newTestCache()

	c.Set("a", []byte("1"), time.Minute)
	c.Set("b", []byte("2"), time.Minute)

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.False(t, c.Has("a"))

	c.Clear()
	assert.False(t, c.Has("b"))
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := NewMemoryCache()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%10)
			c.Set(key, []byte("v"), time.Minute)
			c.Get(key)
			c.Has(key)
			if i%7 == 0 {
				c.Delete(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 10)
}
