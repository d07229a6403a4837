package repository

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cache, err := NewRedisCache(ctx, RedisConfig{Addr: mr.Addr(), TTL: time.Minute})
	require.NoError(t, err)

	_, ok, err := cache.Get(ctx, "digest|skip=")
	require.NoError(t, err)
	assert.False(t, ok)

	want := sampleResult("c1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, cache.Put(ctx, "digest|skip=", want))

	got, ok, err := cache.Get(ctx, "digest|skip=")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Findings, got.Findings)

	assert.True(t, mr.Exists(cachePrefix+"digest|skip="))
	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.Get(ctx, "digest|skip=")
	require.NoError(t, err)
	assert.False(t, ok, "entry must expire after the TTL")
}

func TestRedisCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set(cachePrefix+"bad", "{not json"))

	cache, err := NewRedisCache(ctx, RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)

	_, ok, err := cache.Get(ctx, "bad")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(context.Background(), RedisConfig{Addr: addr})
	assert.ErrorIs(t, err, ErrRepositoryUnavailable)

	_, err = NewRedisCache(context.Background(), RedisConfig{})
	assert.Error(t, err)
}

func TestRedisCacheServerGone(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	cache, err := NewRedisCache(ctx, RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	mr.Close()

	_, ok, err := cache.Get(ctx, "k")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrRepositoryUnavailable)
	assert.ErrorIs(t, cache.Put(ctx, "k", sampleResult("x", time.Now())), ErrRepositoryUnavailable)
}

func TestNoopCache(t *testing.T) {
	var c ResultCache = NoopCache{}
	require.NoError(t, c.Put(context.Background(), "k", sampleResult("x", time.Now())))
	_, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
