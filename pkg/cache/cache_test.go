package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scanEntry struct {
	Address string `json:"address"`
	Used    bool   `json:"used"`
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	var got scanEntry
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)

	in := scanEntry{Address: "0xabc", Used: true}
	require.NoError(t, c.Set(ctx, "k", in, time.Minute))
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, in, got)
	assert.Equal(t, 1, c.Len())

	got.Used = false
	var again scanEntry
	require.NoError(t, c.Get(ctx, "k", &again))
	assert.True(t, again.Used, "stored values are copies")

	require.NoError(t, c.Delete(ctx, "k"))
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)
	require.NoError(t, c.Set(ctx, "k", true, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	var v bool
	assert.ErrorIs(t, c.Get(ctx, "k", &v), ErrCacheMiss)
}

// failingCache 模拟不可用的 L1。
type failingCache struct{ Nop }

func (failingCache) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("l1 down")
}

func TestMultiLevelCache(t *testing.T) {
	ctx := context.Background()
	local := NewMemoryCache(time.Minute, time.Minute)
	remote := NewMemoryCache(time.Minute, time.Minute)
	m := NewMultiLevelCache(local, remote)

	require.NoError(t, m.Set(ctx, "a", 42, time.Minute))
	var v int
	require.NoError(t, local.Get(ctx, "a", &v))
	require.NoError(t, remote.Get(ctx, "a", &v))

	// 只存在于 L2 时读取会回写 L1
	require.NoError(t, remote.Set(ctx, "b", 7, time.Minute))
	require.NoError(t, m.Get(ctx, "b", &v))
	assert.Equal(t, 7, v)
	v = 0
	require.NoError(t, local.Get(ctx, "b", &v))
	assert.Equal(t, 7, v)

	require.NoError(t, m.Delete(ctx, "b"))
	assert.ErrorIs(t, m.Get(ctx, "b", &v), ErrCacheMiss)

	degraded := NewMultiLevelCache(failingCache{}, remote)
	require.NoError(t, degraded.Set(ctx, "c", 1, time.Minute), "L1 failures are logged, not returned")
	require.NoError(t, degraded.Get(ctx, "c", &v))
	assert.Equal(t, 1, v)
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	require.NoError(t, c.Set(context.Background(), "k", 1, time.Minute))
	var v int
	assert.ErrorIs(t, c.Get(context.Background(), "k", &v), ErrCacheMiss)
}
