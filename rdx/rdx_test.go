package rdx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	c.Set(ctx, ProductKey("p1"), []byte(`{"id":"p1"}`), time.Minute)
	got, ok := c.Get(ctx, "product:p1")
	assert.True(t, ok)
	assert.JSONEq(t, `{"id":"p1"}`, string(got))

	c.Set(ctx, "stale", []byte("x"), time.Nanosecond)
	time.Sleep(time.Millisecond)
	_, ok = c.Get(ctx, "stale")
	assert.False(t, ok)

	c.Del(ctx, ProductKey("p1"))
	_, ok = c.Get(ctx, ProductKey("p1"))
	assert.False(t, ok)
}

func TestMemoryLock(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	token, ok, err := c.Lock(ctx, "order:o1", time.Minute)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, _ = c.Lock(ctx, "order:o1", time.Minute)
	assert.False(t, ok, "held")
	_, ok, _ = c.Lock(ctx, "order:o2", time.Minute)
	assert.True(t, ok, "other key")

	c.Unlock(ctx, "order:o1", token)
	_, ok, _ = c.Lock(ctx, "order:o1", time.Minute)
	assert.True(t, ok)

	_, ok, _ = c.Lock(ctx, "short", time.Nanosecond)
	assert.True(t, ok)
	time.Sleep(time.Millisecond)
	_, ok, _ = c.Lock(ctx, "short", time.Minute)
	assert.True(t, ok, "expired lock is free")
}

func TestMemoryUnlockChecksOwner(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	stale, ok, err := c.Lock(ctx, "order:o1", time.Nanosecond)
	require.NoError(t, err)
	require.True(t, ok)
	time.Sleep(time.Millisecond)

	current, ok, err := c.Lock(ctx, "order:o1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, stale, current)

	// the expired holder finishing late must not free the new lock
	c.Unlock(ctx, "order:o1", stale)
	_, ok, _ = c.Lock(ctx, "order:o1", time.Minute)
	assert.False(t, ok)

	c.Unlock(ctx, "order:o1", current)
	_, ok, _ = c.Lock(ctx, "order:o1", time.Minute)
	assert.True(t, ok)
}
