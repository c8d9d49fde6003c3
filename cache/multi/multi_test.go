package multi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/status-im/apisharp/cache"
	"github.com/status-im/apisharp/cache/memory"
	"github.com/status-im/apisharp/cache/mock"
	"github.com/status-im/apisharp/models"
)

func newMocks(t *testing.T) (*mock.MockCache, *mock.MockCache) {
	ctrl := gomock.NewController(t)
	return mock.NewMockCache(ctrl), mock.NewMockCache(ctrl)
}

func TestNewMultiCache(t *testing.T) {
	cache1, cache2 := newMocks(t)

	mc := NewMultiCache([]cache.Cache{cache1, cache2}, true)

	require.NotNil(t, mc)
	assert.Equal(t, 2, mc.GetCacheCount())
	assert.Equal(t, cache1, mc.caches[0])
	assert.Equal(t, cache2, mc.caches[1])
}

func TestMultiCache_Get_FirstCacheHit(t *testing.T) {
	cache1, cache2 := newMocks(t)
	mc := NewMultiCache([]cache.Cache{cache1, cache2}, true)

	expected := models.NewCacheEntry([]byte("test-value"), time.Now(), time.Minute)
	cache1.EXPECT().Get("test-key").Return(&expected, true).Times(1)
	// cache2.Get should not be called since cache1 has the value

	result := mc.GetWithLevel("test-key")

	assert.True(t, result.Found)
	assert.Equal(t, &expected, result.Entry)
	assert.Equal(t, models.CacheLevelL1, result.Level)
}

func TestMultiCache_Get_SecondCacheHit_Propagates(t *testing.T) {
	cache1, cache2 := newMocks(t)
	mc := NewMultiCache([]cache.Cache{cache1, cache2}, true)

	expected := models.NewCacheEntry([]byte("test-value"), time.Now().Add(-20*time.Second), time.Minute)

	cache1.EXPECT().Get("test-key").Return(nil, false).Times(1)
	cache2.EXPECT().Get("test-key").Return(&expected, true).Times(1)
	cache1.EXPECT().Set("test-key", expected.Data, gomock.Any()).
		Do(func(_ string, _ []byte, ttl time.Duration) {
			assert.LessOrEqual(t, ttl, 40*time.Second, "propagated ttl is the remaining lifetime")
			assert.Greater(t, ttl, 30*time.Second)
		}).Times(1)

	result := mc.GetWithLevel("test-key")

	assert.True(t, result.Found)
	assert.Equal(t, models.CacheLevelL2, result.Level)
}

func TestMultiCache_Get_SecondCacheHit_NoPropagation(t *testing.T) {
	cache1, cache2 := newMocks(t)
	mc := NewMultiCache([]cache.Cache{cache1, cache2}, false)

	expected := models.NewCacheEntry([]byte("test-value"), time.Now(), time.Minute)
	cache1.EXPECT().Get("test-key").Return(nil, false)
	cache2.EXPECT().Get("test-key").Return(&expected, true)

	entry, found := mc.Get("test-key")

	assert.True(t, found)
	assert.Equal(t, &expected, entry)
}

func TestMultiCache_Get_AllCachesMiss(t *testing.T) {
	cache1, cache2 := newMocks(t)
	mc := NewMultiCache([]cache.Cache{cache1, cache2}, true)

	cache1.EXPECT().Get("test-key").Return(nil, false).Times(1)
	cache2.EXPECT().Get("test-key").Return(nil, false).Times(1)

	result := mc.GetWithLevel("test-key")

	assert.False(t, result.Found)
	assert.Nil(t, result.Entry)
	assert.Equal(t, models.CacheLevelMiss, result.Level)
}

func TestMultiCache_Get_NoCaches(t *testing.T) {
	mc := NewMultiCache([]cache.Cache{}, true)

	entry, found := mc.Get("test-key")

	assert.False(t, found)
	assert.Nil(t, entry)
	assert.False(t, mc.Has("test-key"))
}

func TestMultiCache_Has(t *testing.T) {
	cache1, cache2 := newMocks(t)
	mc := NewMultiCache([]cache.Cache{cache1, cache2}, true)

	cache1.EXPECT().Has("k").Return(false)
	cache2.EXPECT().Has("k").Return(true)

	assert.True(t, mc.Has("k"))
}

func TestMultiCache_Set_AllCaches(t *testing.T) {
	cache1, cache2 := newMocks(t)
	mc := NewMultiCache([]cache.Cache{cache1, cache2}, true)

	testVal := []byte("test-value")

	cache1.EXPECT().Set("test-key", testVal, time.Minute).Times(1)
	cache2.EXPECT().Set("test-key", testVal, time.Minute).Times(1)

	mc.Set("test-key", testVal, time.Minute)
}

func TestMultiCache_Set_NoCaches(t *testing.T) {
	mc := NewMultiCache([]cache.Cache{}, true)

	// Should not panic
	mc.Set("test-key", []byte("test-value"), time.Minute)
}

func TestMultiCache_Delete_AllCaches(t *testing.T) {
	cache1, cache2 := newMocks(t)
	mc := NewMultiCache([]cache.Cache{cache1, cache2}, true)

	cache1.EXPECT().Delete("test-key").Return(false).Times(1)
	cache2.EXPECT().Delete("test-key").Return(true).Times(1)

	assert.True(t, mc.Delete("test-key"))
}

func TestMultiCache_Clear_AllCaches(t *testing.T) {
	cache1, cache2 := newMocks(t)
	mc := NewMultiCache([]cache.Cache{cache1, cache2}, true)

	cache1.EXPECT().Clear().Times(1)
	cache2.EXPECT().Clear().Times(1)

	mc.Clear()
}

func TestMultiCache_WithMemoryLevels(t *testing.T) {
	l1 := memory.NewMemoryCache()
	l2 := memory.NewMemoryCache()
	mc := NewMultiCache([]cache.Cache{l1, l2}, true)

	l2.Set("k", []byte("v"), time.Minute)

	entry, found := mc.Get("k")
	require.True(t, found)
	assert.Equal(t, []byte("v"), entry.Data)
	assert.True(t, l1.Has("k"), "hit at L2 is copied into L1")

	mc.Delete("k")
	assert.False(t, l1.Has("k"))
	assert.False(t, l2.Has("k"))
}
