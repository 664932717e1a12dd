package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-dumper/internal/shared/content"
	"content-dumper/internal/shared/events"
)

func TestInvalidateTagsDropsOnlyTaggedKeys(t *testing.T) {
	c := New(16, time.Minute)
	c.Set("notes-page-1", "a", "notes-exported-u1")
	c.Set("notes-page-2", "b", "notes-exported-u1")
	c.Set("books-page-1", "c", "books-exported-u1")
	c.Set("notes-other", "d", "notes-exported-u2")

	assert.Equal(t, 2, c.InvalidateTags("notes-exported-u1"))

	_, ok := c.Get("notes-page-1")
	assert.False(t, ok)
	_, ok = c.Get("books-page-1")
	assert.True(t, ok)
	_, ok = c.Get("notes-other")
	assert.True(t, ok)
	assert.Equal(t, 0, c.InvalidateTags("notes-exported-u1"))
}

func TestEvictionCleansIndex(t *testing.T) {
	c := New(1, time.Minute)
	c.Set("a", 1, "t1")
	c.Set("b", 2, "t2")

	_, ok := c.Get("a")
	assert.False(t, ok)
	c.mu.Lock()
	_, indexed := c.byTag["t1"]
	c.mu.Unlock()
	assert.False(t, indexed)
}

func TestRemember(t *testing.T) {
	c := New(4, time.Minute)
	calls := 0
	load := func() (int, error) {
		calls++
		return 42, nil
	}
	v, err := Remember(c, "k", []string{"tag"}, load)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	v, err = Remember(c, "k", []string{"tag"}, load)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)

	_, err = Remember(c, "bad", nil, func() (int, error) { return 0, errors.New("db down") })
	assert.Error(t, err)
	_, ok := c.Get("bad")
	assert.False(t, ok)
}

func TestRememberDropsValueInvalidatedDuringLoad(t *testing.T) {
	c := New(4, time.Minute)
	v, err := Remember(c, "notes|exported|u1", []string{"notes-exported-u1"}, func() (string, error) {
		// A mutation commits and invalidates while the old rows are in hand.
		c.InvalidateTags("notes-exported-u1")
		return "stale", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "stale", v)
	_, ok := c.Get("notes|exported|u1")
	assert.False(t, ok, "value loaded before the invalidation must not be cached")

	v, err = Remember(c, "notes|exported|u1", []string{"notes-exported-u1"}, func() (string, error) { return "fresh", nil })
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	got, ok := c.Get("notes|exported|u1")
	require.True(t, ok)
	assert.Equal(t, "fresh", got)
}

func TestRememberDropsValueLoadedAcrossPurge(t *testing.T) {
	c := New(4, time.Minute)
	_, err := Remember(c, "k", []string{"t"}, func() (int, error) {
		c.Purge()
		return 1, nil
	})
	require.NoError(t, err)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestSetIsVisibleToConcurrentInvalidate(t *testing.T) {
	c := New(1024, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("k%d", i)
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Set(key, i, "shared")
		}()
		go func() {
			defer wg.Done()
			c.InvalidateTags("shared")
		}()
	}
	wg.Wait()
	c.InvalidateTags("shared")
	assert.Equal(t, 0, c.Len(), "every stored key must be reachable through its tag")
}

func TestInvalidationHandlerMatchesTriple(t *testing.T) {
	c := New(16, time.Minute)
	exported := content.CacheTag(content.DomainNotes, content.StatusExported, "u1")
	reverted := content.CacheTag(content.DomainNotes, content.StatusReverted, "u1")
	unexported := content.CacheTag(content.DomainNotes, content.StatusUnexported, "u1")
	c.Set("exported", 1, exported)
	c.Set("reverted", 1, reverted)
	c.Set("unexported", 1, unexported)

	h := InvalidationHandler(c)
	err := h.Handle(context.Background(), events.Event{
		Domain:      content.DomainNotes,
		Kind:        events.KindUpdated,
		UserID:      "u1",
		Status:      content.StatusReverted,
		PriorStatus: content.StatusExported,
	})
	require.NoError(t, err)

	_, ok := c.Get("exported")
	assert.False(t, ok)
	_, ok = c.Get("reverted")
	assert.False(t, ok)
	_, ok = c.Get("unexported")
	assert.True(t, ok)
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *Cache
	c.Set("k", 1)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.InvalidateTags("x"))
}
