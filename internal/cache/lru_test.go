package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_GetPut(t *testing.T) {
	c := NewLRU[string, int](4, time.Minute)

	c.Put("0xaa", 1)
	c.Put("0xbb", 2)

	v, ok := c.Get("0xaa")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("0xcc")
	assert.False(t, ok)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[string, int](3, time.Minute)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	c.Get("a")
	c.Put("d", 4)

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 3, c.Len())
}

func TestLRU_Expiry(t *testing.T) {
	c := NewLRU[string, bool](2, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("a", true)
	_, ok := c.Get("a")
	assert.True(t, ok)

	c.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestLRU_UpdateAndDelete(t *testing.T) {
	c := NewLRU[int64, string](2, time.Minute)

	c.Put(1, "x")
	c.Put(1, "y")
	v, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "y", v)

	c.Delete(1)
	_, ok = c.Get(1)
	assert.False(t, ok)
	c.Delete(42)
}
