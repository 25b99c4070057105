package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*miniredis.Miniredis, *IdempotencyCache) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return s, NewIdempotencyCache(client)
}

func TestIdempotencyCache_SetAndGet(t *testing.T) {
	s, cache := newTestCache(t)
	ctx := context.Background()

	key := "sender-1:transfer:client-001"
	value := []byte(`{"new_balance":"50","payment":{"id":"abc"}}`)

	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result)

	require.NoError(t, cache.Set(ctx, key, value, 24*time.Hour))

	result, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, result)

	assert.True(t, s.Exists("ledgerbook:idem:"+key))
}

func TestIdempotencyCache_TTLExpiry(t *testing.T) {
	s, cache := newTestCache(t)
	ctx := context.Background()

	key := "sender-2:transfer:client-002"
	require.NoError(t, cache.Set(ctx, key, []byte(`{}`), time.Second))

	s.FastForward(2 * time.Second)

	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result, "expired key should return nil")
}

func TestIdempotencyCache_ServerDown(t *testing.T) {
	s, cache := newTestCache(t)
	s.Close()

	_, err := cache.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, cache.Set(context.Background(), "k", []byte("v"), time.Minute))
}
