package lru

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rr-callguard/internal/callguard/domain"
)

func TestDecisionCache_GetPut(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	_, ok := c.Get("1|0162000000")
	assert.False(t, ok)

	block := domain.Block(domain.PrefixRule{ID: 1, Pattern: "0162"})
	c.Put("1|0162000000", block)
	got, ok := c.Get("1|0162000000")
	assert.True(t, ok)
	assert.Equal(t, block, got)

	st := c.Stats()
	assert.Equal(t, 2, st.Capacity)
	assert.Equal(t, 1, st.Size)
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
}

func TestDecisionCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	c.Put("a", domain.Allow())
	c.Put("b", domain.Allow())
	_, _ = c.Get("a")
	c.Put("c", domain.Allow())

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestDecisionCache_PurgeCountsEvictions(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)
	c.Put("a", domain.Allow())
	c.Put("b", domain.Allow())

	c.Purge()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, uint64(2), c.Stats().Evictions)
}

func TestDisabledCache(t *testing.T) {
	c, err := New(0)
	require.NoError(t, err)

	c.Put("a", domain.Block(domain.PrefixRule{Pattern: "0162"}))
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	c.Purge()
	assert.Zero(t, c.Stats())
}
