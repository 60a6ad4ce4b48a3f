package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()

	_, err := c.Get("missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	assert.NoError(t, c.Set("key", []byte("value"), time.Minute))
	got, err := c.Get("key")
	assert.NoError(t, err)
	assert.Equal(t, []byte("value"), got)

	assert.NoError(t, c.Delete("key"))
	_, err = c.Get("key")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiration(t *testing.T) {
	c := NewMemoryCache()
	assert.NoError(t, c.Set("short", []byte("v"), 10*time.Millisecond))

	time.Sleep(30 * time.Millisecond)
	_, err := c.Get("short")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
