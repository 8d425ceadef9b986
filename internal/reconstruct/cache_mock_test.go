package reconstruct

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheGetUsesExpectedKey(t *testing.T) {
	client, mock := redismock.NewClientMock()
	config := DefaultRedisConfig()
	config.KeyPrefix = "test:"
	cache := NewRedisCacheFromClient(client, config)

	orgPolicyID := uuid.New()
	key := cache.htmlKey(orgPolicyID, "1.0")
	mock.ExpectGet(key).SetVal("<p>cached</p>")

	html, ok := cache.Get(context.Background(), orgPolicyID, "1.0")
	require.True(t, ok)
	require.Equal(t, "<p>cached</p>", html)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheSetWritesBothKeys(t *testing.T) {
	client, mock := redismock.NewClientMock()
	config := DefaultRedisConfig()
	config.KeyPrefix = "test:"
	cache := NewRedisCacheFromClient(client, config)

	orgPolicyID := uuid.New()
	mock.ExpectSet(cache.htmlKey(orgPolicyID, "1.0"), "<p>new</p>", config.TTL).SetVal("OK")
	mock.ExpectSet(cache.latestKey(orgPolicyID), "1.0", config.TTL).SetVal("OK")

	cache.Set(context.Background(), orgPolicyID, "1.0", "<p>new</p>")
	require.NoError(t, mock.ExpectationsWereMet())
}
