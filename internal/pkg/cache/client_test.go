package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gowatch/internal/pkg/cache"
)

func newRedis(t *testing.T) (*cache.RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := cache.NewRedisClient(cache.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisClient_GetSetAndMiss(t *testing.T) {
	client, _ := newRedis(t)
	ctx := context.Background()

	_, err := client.Get(ctx, "ausente")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	require.NoError(t, client.Set(ctx, "k", []byte(`{"a":1}`), time.Minute))
	val, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, val)
}

func TestRedisClient_IncrAndExpire(t *testing.T) {
	client, mr := newRedis(t)
	ctx := context.Background()

	n, err := client.Incr(ctx, "rl:login:1.2.3.4:0")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, client.Expire(ctx, "rl:login:1.2.3.4:0", 60*time.Second))

	n, err = client.Incr(ctx, "rl:login:1.2.3.4:0")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 60*time.Second, mr.TTL("rl:login:1.2.3.4:0"))

	mr.FastForward(61 * time.Second)
	assert.False(t, mr.Exists("rl:login:1.2.3.4:0"))
}

func TestRedisClient_DeleteByPattern(t *testing.T) {
	client, mr := newRedis(t)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		require.NoError(t, mr.Set(fmt.Sprintf("watchlist:a@test.com:skip=%d", i), "x"))
	}
	require.NoError(t, mr.Set("watchlist:b@test.com:skip=0", "y"))

	deleted, err := client.DeleteByPattern(ctx, cache.EscapePattern("watchlist:a@test.com:")+"*")
	require.NoError(t, err)
	assert.Equal(t, int64(250), deleted)
	assert.True(t, mr.Exists("watchlist:b@test.com:skip=0"))

	deleted, err = client.DeleteByPattern(ctx, cache.EscapePattern("watchlist:a@test.com:")+"*")
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}

func TestRedisClient_UnavailableStillConstructs(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client, err := cache.NewRedisClient(cache.RedisConfig{Addr: addr, Timeout: 50 * time.Millisecond})
	assert.Error(t, err)
	require.NotNil(t, client)

	_, err = client.Incr(context.Background(), "k")
	assert.Error(t, err)
}

func TestEscapePattern(t *testing.T) {
	assert.Equal(t, `watchlist:we\*ird\?\[x\]:`, cache.EscapePattern("watchlist:we*ird?[x]:"))
	assert.Equal(t, `a\\b`, cache.EscapePattern(`a\b`))
}
