package lru

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, []string](3)
	c.Put("a", []string{"1"})
	c.Put("b", []string{"2"})
	c.Put("c", []string{"3"})

	// touch a so b becomes the oldest
	_, ok := c.Get("a")
	require.True(t, ok)

	evicted, ok := c.Put("d", []string{"4"})
	require.True(t, ok)
	assert.Equal(t, "b", evicted)

	_, ok = c.Get("b")
	assert.False(t, ok)
	for _, k := range []string{"a", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, k)
	}
	assert.Equal(t, 3, c.Len())
}

func TestCapacityPlusOneEvictsExactlyOne(t *testing.T) {
	const capacity = 16
	c := New[string, int](capacity)
	for i := 0; i <= capacity; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
	}
	assert.Equal(t, capacity, c.Len())
	_, ok := c.Get("k0")
	assert.False(t, ok)
	v, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestPutUpdatesInPlace(t *testing.T) {
	c := New[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	_, evicted := c.Put("a", 10)
	assert.False(t, evicted)

	c.Put("c", 3) // evicts b, a was refreshed by the update
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestZeroCapacity(t *testing.T) {
	c := New[int, int](0)
	assert.Equal(t, 1, c.Capacity())
	c.Put(1, 1)
	c.Put(2, 2)
	_, ok := c.Get(1)
	assert.False(t, ok)
}

func TestEvictCallback(t *testing.T) {
	var got []string
	c := NewWithEvict[string, int](2, func(k string, v int) {
		got = append(got, fmt.Sprintf("%s=%d", k, v))
	})
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("a", 3)
	assert.Empty(t, got)

	evicted, ok := c.Put("c", 4)
	require.True(t, ok)
	assert.Equal(t, "b", evicted)
	assert.Equal(t, []string{"b=2"}, got)
}
