package reconstruct

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func setupMiniredisCache(t *testing.T) *RedisCache {
	t.Helper()
	s := miniredis.RunT(t)
	t.Cleanup(s.Close)

	port := 0
	fmt.Sscanf(s.Port(), "%d", &port)

	config := DefaultRedisConfig()
	config.Host = s.Host()
	config.Port = port
	config.KeyPrefix = "test:"

	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", config.Host, config.Port),
	})
	return NewRedisCacheFromClient(client, config)
}

func TestRedisCacheSetGet(t *testing.T) {
	cache := setupMiniredisCache(t)
	ctx := context.Background()
	orgPolicyID := uuid.New()

	_, ok := cache.Get(ctx, orgPolicyID, "1.0")
	require.False(t, ok, "expected a miss before any Set")

	cache.Set(ctx, orgPolicyID, "1.0", "<p>hello</p>")

	html, ok := cache.Get(ctx, orgPolicyID, "1.0")
	require.True(t, ok)
	require.Equal(t, "<p>hello</p>", html)
}

func TestRedisCacheInvalidateLatest(t *testing.T) {
	cache := setupMiniredisCache(t)
	ctx := context.Background()
	orgPolicyID := uuid.New()

	cache.Set(ctx, orgPolicyID, "2.0", "<p>v2</p>")
	_, err := cache.client.Get(ctx, cache.latestKey(orgPolicyID)).Result()
	require.NoError(t, err, "latest pointer should be set after Set")

	cache.InvalidateLatest(ctx, orgPolicyID)

	_, err = cache.client.Get(ctx, cache.latestKey(orgPolicyID)).Result()
	require.ErrorIs(t, err, redis.Nil, "latest pointer should be gone after invalidation")
}

func TestRedisCacheGetMissingKey(t *testing.T) {
	cache := setupMiniredisCache(t)
	_, ok := cache.Get(context.Background(), uuid.New(), "9.9")
	require.False(t, ok)
}
