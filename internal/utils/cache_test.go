package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(t *testing.T, size int, ttl time.Duration) (*TTLCache[string], *fakeClock) {
	t.Helper()
	c, err := NewTTLCache[string](size, ttl)
	require.NoError(t, err)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c.now = clock.now
	return c, clock
}

func TestTTLCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t, 4, time.Minute)

	c.Set("a", "1")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestTTLCache_ExpiresWhenIdle(t *testing.T) {
	c, clock := newTestCache(t, 4, time.Minute)
	c.Set("a", "1")

	clock.advance(61 * time.Second)
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLCache_HitExtendsExpiry(t *testing.T) {
	c, clock := newTestCache(t, 4, time.Minute)
	c.Set("a", "1")

	clock.advance(50 * time.Second)
	_, ok := c.Get("a")
	require.True(t, ok)

	clock.advance(50 * time.Second)
	_, ok = c.Get("a")
	assert.True(t, ok, "a read inside the idle window should keep the entry alive")
}

func TestTTLCache_ZeroTTLNeverExpires(t *testing.T) {
	c, clock := newTestCache(t, 4, 0)
	c.Set("a", "1")

	clock.advance(24 * time.Hour)
	_, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 0, c.Purge())
}

func TestTTLCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(t, 2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
}

func TestTTLCache_Purge(t *testing.T) {
	c, clock := newTestCache(t, 8, time.Minute)
	c.Set("old1", "x")
	c.Set("old2", "x")
	clock.advance(45 * time.Second)
	c.Set("fresh", "y")
	clock.advance(30 * time.Second)

	assert.Equal(t, 2, c.Purge())
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("fresh")
	assert.True(t, ok)
}
