package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/routefleet/internal/core/domain"
)

// DefaultRedisKey is the set holding source ids.
const DefaultRedisKey = "routefleet:sources"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Key      string `yaml:"key"`
}

// Redis reads sources from a Redis set.
type Redis struct {
	rdb *redis.Client
	key string
}

// NewRedis connects to Redis and checks the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = DefaultRedisKey
	}

	return &Redis{rdb: rdb, key: key}, nil
}

// List returns the set members sorted, since sets carry no order.
func (r *Redis) List(ctx context.Context) ([]domain.SourceID, error) {
	members, err := r.rdb.SMembers(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers failed: %w", err)
	}
	return sortedIDs(members), nil
}

// Add registers sources in the set.
func (r *Redis) Add(ctx context.Context, ids ...domain.SourceID) error {
	if err := validateAdd(ids); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = string(id)
	}
	if err := r.rdb.SAdd(ctx, r.key, members...).Err(); err != nil {
		return fmt.Errorf("sadd failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
