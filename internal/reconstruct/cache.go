package reconstruct

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache is the read-through cache Reconstructor consults before replaying
// history. A nil Cache disables caching entirely.
type Cache interface {
	Get(ctx context.Context, orgPolicyID uuid.UUID, version string) (string, bool)
	Set(ctx context.Context, orgPolicyID uuid.UUID, version, html string)
	// InvalidateLatest evicts the "most recent version" pseudo-entry for a
	// policy. Callers invoke this whenever a new version is committed so a
	// stale "latest" lookup never outlives the write that superseded it.
	InvalidateLatest(ctx context.Context, orgPolicyID uuid.UUID)
	Close() error
}

// RedisConfig configures the RedisCache, adapted from the teacher's
// internal/cache.RedisConfig but trimmed to the single-instance case this
// service needs (no sentinel/cluster wiring).
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	TTL          time.Duration
	KeyPrefix    string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DialTimeout  time.Duration
}

// DefaultRedisConfig mirrors internal/cache.DefaultRedisConfig's defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Host:         "localhost",
		Port:         6379,
		DB:           0,
		PoolSize:     10,
		TTL:          10 * time.Minute,
		KeyPrefix:    "policystore:",
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	}
}

// RedisCache is the production Cache implementation, keyed
// "<prefix>html:<org_policy_id>:<version>" with a parallel
// "<prefix>latest:<org_policy_id>" pointer kept in sync on writes.
type RedisCache struct {
	client redis.UniversalClient
	config RedisConfig
}

// NewRedisCache dials Redis and verifies connectivity before returning.
func NewRedisCache(config RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(config.Host, fmt.Sprintf("%d", config.Port)),
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		DialTimeout:  config.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisCache{client: client, config: config}, nil
}

// NewRedisCacheFromClient wraps an already-constructed client, used by
// tests to point the cache at a miniredis instance or a redismock client.
func NewRedisCacheFromClient(client redis.UniversalClient, config RedisConfig) *RedisCache {
	return &RedisCache{client: client, config: config}
}

func (c *RedisCache) htmlKey(orgPolicyID uuid.UUID, version string) string {
	return fmt.Sprintf("%shtml:%s:%s", c.config.KeyPrefix, orgPolicyID, version)
}

func (c *RedisCache) latestKey(orgPolicyID uuid.UUID) string {
	return fmt.Sprintf("%slatest:%s", c.config.KeyPrefix, orgPolicyID)
}

// Get returns the cached HTML for (orgPolicyID, version), if present.
func (c *RedisCache) Get(ctx context.Context, orgPolicyID uuid.UUID, version string) (string, bool) {
	val, err := c.client.Get(ctx, c.htmlKey(orgPolicyID, version)).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// Set stores the reconstructed HTML and refreshes the latest pointer.
func (c *RedisCache) Set(ctx context.Context, orgPolicyID uuid.UUID, version, html string) {
	c.client.Set(ctx, c.htmlKey(orgPolicyID, version), html, c.config.TTL)
	c.client.Set(ctx, c.latestKey(orgPolicyID), version, c.config.TTL)
}

// InvalidateLatest drops the latest-version pointer so the next lookup for
// "the current version" falls through to the database.
func (c *RedisCache) InvalidateLatest(ctx context.Context, orgPolicyID uuid.UUID) {
	c.client.Del(ctx, c.latestKey(orgPolicyID))
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
