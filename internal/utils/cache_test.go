package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, srv
}

func TestCacheRoundTrip(t *testing.T) {
	rdb, srv := newRedis(t)
	ctx := context.Background()

	var got map[string]int
	found, err := GetCache(ctx, rdb, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetCache(ctx, rdb, "k", map[string]int{"a": 1}, time.Minute))
	found, err = GetCache(ctx, rdb, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, map[string]int{"a": 1}, got)

	srv.FastForward(2 * time.Minute)
	found, err = GetCache(ctx, rdb, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteCache(t *testing.T) {
	rdb, _ := newRedis(t)
	ctx := context.Background()

	require.NoError(t, SetCache(ctx, rdb, "k", "v", time.Minute))
	require.NoError(t, DeleteCache(ctx, rdb, "k"))

	var v string
	found, err := GetCache(ctx, rdb, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheGeneration(t *testing.T) {
	rdb, _ := newRedis(t)
	ctx := context.Background()

	gen, err := CacheGeneration(ctx, rdb, "gen")
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	require.NoError(t, BumpCacheGeneration(ctx, rdb, "gen"))
	require.NoError(t, BumpCacheGeneration(ctx, rdb, "gen"))
	gen, err = CacheGeneration(ctx, rdb, "gen")
	require.NoError(t, err)
	assert.Equal(t, int64(2), gen)
}
