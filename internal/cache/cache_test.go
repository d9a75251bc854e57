package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl, pruneInterval time.Duration, maxSize string) *Cache {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "chunk_cache")
	c, err := New(Options{Dir: dir, TTL: ttl, PruneInterval: pruneInterval, MaxSize: maxSize, BufferSize: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func metaLen(t *testing.T, c *Cache) int {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	st, err := c.loadState()
	require.NoError(t, err)
	return len(st.Metadata)
}

func hasKey(t *testing.T, c *Cache, key string) bool {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	st, err := c.loadState()
	require.NoError(t, err)
	_, ok := st.Metadata[key]
	return ok
}

func TestSetGetRemoveRoundTrip(t *testing.T) {
	c := newTestCache(t, 10*time.Second, 60*time.Second, "")

	require.NoError(t, c.Set("item-1", []byte{1, 2, 3, 4}))
	v, ok, err := c.Get("item-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, v)
	assert.Equal(t, 1, metaLen(t, c))

	require.NoError(t, c.Set("item-2", []byte("Test123")))
	assert.Equal(t, 2, metaLen(t, c))

	c.mu.Lock()
	st, err := c.loadState()
	require.NoError(t, err)
	require.NoError(t, c.remove(st, "item-1"))
	c.mu.Unlock()

	_, ok, err = c.Get("item-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, metaLen(t, c))
	assert.True(t, hasKey(t, c, "item-2"))
}

func TestPruneExpiredAll(t *testing.T) {
	// Expiry is stored in whole seconds, so the TTL must span more than one.
	ttl := 2 * time.Second
	c := newTestCache(t, ttl, 1000*time.Second, "")

	require.NoError(t, c.Set("item-1", []byte{1, 2, 3, 4}))
	assert.Equal(t, 1, metaLen(t, c))

	c.mu.Lock()
	require.NoError(t, c.pruneExpired())
	c.mu.Unlock()
	assert.Equal(t, 1, metaLen(t, c))

	time.Sleep(ttl + 50*time.Millisecond)
	c.mu.Lock()
	require.NoError(t, c.pruneExpired())
	c.mu.Unlock()
	assert.Equal(t, 0, metaLen(t, c))
}

func TestPruneExpiredStepped(t *testing.T) {
	// Expiry is stored in whole seconds, so the TTL must span more than one.
	ttl := 2 * time.Second
	c := newTestCache(t, ttl, 1000*time.Second, "")

	require.NoError(t, c.Set("item-1", []byte{1, 2, 3, 4}))
	time.Sleep(ttl)
	require.NoError(t, c.Set("item-2", []byte{5, 6, 7, 8}))
	assert.Equal(t, 2, metaLen(t, c))

	c.mu.Lock()
	require.NoError(t, c.pruneExpired())
	c.mu.Unlock()
	assert.False(t, hasKey(t, c, "item-1"))
	assert.True(t, hasKey(t, c, "item-2"))

	time.Sleep(ttl)
	c.mu.Lock()
	require.NoError(t, c.pruneExpired())
	c.mu.Unlock()
	assert.Equal(t, 0, metaLen(t, c))
}

func TestPruneSizeTriggeredOnSet(t *testing.T) {
	ttl := 200 * time.Millisecond
	size := 1000
	c := newTestCache(t, ttl, 1000*time.Second, "2000")

	chunk := make([]byte, size)
	require.NoError(t, c.Set("item-1", chunk))
	assert.Equal(t, 1, metaLen(t, c))

	time.Sleep(ttl)
	require.NoError(t, c.Set("item-2", chunk))

	assert.Equal(t, 1, metaLen(t, c))
	assert.False(t, hasKey(t, c, "item-1"))
	assert.True(t, hasKey(t, c, "item-2"))
}

func TestPrunePeriodicExpiryTriggeredOnSet(t *testing.T) {
	ttl := 200 * time.Millisecond
	c := newTestCache(t, ttl, ttl, "")

	require.NoError(t, c.Set("item-1", []byte{1, 2, 3, 4}))
	assert.Equal(t, 1, metaLen(t, c))

	time.Sleep(ttl)
	require.NoError(t, c.Set("item-2", []byte{1, 2, 3, 4}))
	assert.Equal(t, 1, metaLen(t, c))
	assert.False(t, hasKey(t, c, "item-1"))
	assert.True(t, hasKey(t, c, "item-2"))

	time.Sleep(ttl)
	require.NoError(t, c.Set("item-3", []byte{1, 2, 3, 4}))
	assert.Equal(t, 1, metaLen(t, c))
	assert.False(t, hasKey(t, c, "item-2"))
	assert.True(t, hasKey(t, c, "item-3"))
}

func TestPruneDiskSpaceHeadroomClearsCache(t *testing.T) {
	c := newTestCache(t, 1000*time.Second, 1000*time.Second, "10000")

	require.NoError(t, c.Set("item-1", []byte{1, 2, 3, 4}))
	require.NoError(t, c.Set("item-2", []byte{1, 2, 3, 4}))
	assert.Equal(t, 2, metaLen(t, c))

	c.mu.Lock()
	err := c.pruneDiskSpace(10000)
	c.mu.Unlock()
	require.NoError(t, err)
	assert.Equal(t, 0, metaLen(t, c))
}

func TestChunkTooBigToFitRejected(t *testing.T) {
	maxSize := 100
	c := newTestCache(t, time.Second, 60*time.Second, "100")

	require.NoError(t, c.Set("item-1", make([]byte, maxSize-1)))
	assert.Equal(t, 1, metaLen(t, c))

	require.NoError(t, c.Set("item-2", make([]byte, maxSize)))
	assert.Equal(t, 1, metaLen(t, c))
	assert.True(t, hasKey(t, c, "item-2"))

	err := c.Set("item-3", make([]byte, maxSize+1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot fit within cache maximum size threshold")
	assert.Equal(t, 1, metaLen(t, c))
	assert.True(t, hasKey(t, c, "item-2"))
}

func TestKeyTemplateSubstitutesTokens(t *testing.T) {
	out := KeyTemplate("%url|%offset|%size", map[string]string{
		"%url":    "http://x/y",
		"%offset": "0",
		"%size":   "10",
	})
	assert.Equal(t, "http://x/y|0|10", out)
}
