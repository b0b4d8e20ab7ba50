//go:build integration

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valour-site/internal/config"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(config.CacheConfig{FilePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_SetGetDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "settings", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "settings")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete(ctx, "settings"))
	got, err = c.Get(ctx, "settings")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_ExpiredItemIsAMiss(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), -2*time.Second))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_DeletePrefix(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "public:sponsors", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "public:photos", []byte("2"), time.Minute))
	require.NoError(t, c.Set(ctx, "publicXkeep", []byte("3"), time.Minute))
	require.NoError(t, c.Set(ctx, "settings", []byte("4"), time.Minute))

	require.NoError(t, c.DeletePrefix(ctx, "public:"))

	for key, want := range map[string]bool{"public:sponsors": false, "public:photos": false, "publicXkeep": true, "settings": true} {
		got, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want, got != nil, key)
	}
}

func TestFetch_ReadThrough(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	first, err := Fetch(ctx, c, "list", time.Minute, load)
	require.NoError(t, err)
	second, err := Fetch(ctx, c, "list", time.Minute, load)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestFetch_LoadErrorIsNotCached(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := Fetch(ctx, c, "k", time.Minute, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	v, err := Fetch(ctx, c, "k", time.Minute, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestFetch_NilStoreAlwaysLoads(t *testing.T) {
	calls := 0
	for i := 0; i < 2; i++ {
		_, err := Fetch(context.Background(), nil, "k", time.Minute, func(context.Context) (int, error) {
			calls++
			return 1, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}
