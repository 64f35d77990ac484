package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache()

	require.NoError(t, c.Set("k", "v", time.Minute))
	val, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	// Missing keys are not an error.
	val, err = c.Get("missing")
	require.NoError(t, err)
	assert.Empty(t, val)

	require.NoError(t, c.Delete("k"))
	val, err = c.Get("k")
	require.NoError(t, err)
	assert.Empty(t, val)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()

	require.NoError(t, c.Set("short", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	val, err := c.Get("short")
	require.NoError(t, err)
	assert.Empty(t, val, "expired entries read as missing")

	// Zero expiration means the entry does not expire.
	require.NoError(t, c.Set("forever", "v", 0))
	val, err = c.Get("forever")
	require.NoError(t, err)
	assert.Equal(t, "v", val)
}

func TestMemoryCacheValueKinds(t *testing.T) {
	c := NewMemoryCache()

	require.NoError(t, c.Set("bytes", []byte("raw"), time.Minute))
	val, err := c.Get("bytes")
	require.NoError(t, err)
	assert.Equal(t, "raw", val)
}
