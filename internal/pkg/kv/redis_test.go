package kv

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CalSync/internal/pkg/env"
)

const isolatedKVTestRedisDB = 13

func newIsolatedRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       isolatedKVTestRedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	_, err := client.Ping(ctx).Result()
	cancel()
	if err != nil {
		_ = client.Close()
		t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint (%v)", err)
	}

	require.NoError(t, client.FlushDB(context.Background()).Err())
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return NewRedisStore(client)
}

func TestRedisStore_Contract(t *testing.T) {
	store := newIsolatedRedisStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "webhook_event:x", []byte("v1"), time.Hour))
	require.NoError(t, store.Set(ctx, "webhook_event:x", []byte("v2"), KeepTTL))
	ttl, err := store.client.TTL(ctx, "webhook_event:x").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	keys, err := store.Scan(ctx, "webhook_event:")
	require.NoError(t, err)
	assert.Equal(t, []string{"webhook_event:x"}, keys)

	n, err := store.Incr(ctx, "dup", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	for i := 0; i < 4; i++ {
		require.NoError(t, store.PushCapped(ctx, "ring", []byte(fmt.Sprint(i)), 2, time.Hour))
	}
	entries, err := store.Range(ctx, "ring")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "3", string(entries[0]))

	ok, err := store.SetNX(ctx, "webhook_lock:x", []byte("1"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.SetNX(ctx, "webhook_lock:x", []byte("1"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Delete(ctx, "webhook_event:x"))
	_, err = store.Get(ctx, "webhook_event:x")
	assert.ErrorIs(t, err, ErrNotFound)
}
