package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Sternrassler/zig365-aanbod/pkg/listing"
	"github.com/redis/go-redis/v9"
)

// redisLister is the subset of *redis.Client used by the Redis sink.
type redisLister interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Close() error
}

// Redis appends JSON-encoded records to a Redis list with RPUSH.
type Redis struct {
	client redisLister
	key    string
}

// NewRedis appends records to key using an existing client.
func NewRedis(client *redis.Client, key string) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if key == "" {
		return nil, fmt.Errorf("redis key is required")
	}
	return &Redis{client: client, key: key}, nil
}

// OpenRedis connects to addr, which is either host:port or a redis:// URL,
// and verifies the connection with PING.
func OpenRedis(ctx context.Context, addr, key string) (*Redis, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedis(client, key)
}

// Push appends the record to the list.
func (r *Redis) Push(ctx context.Context, record listing.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := r.client.RPush(ctx, r.key, data).Err(); err != nil {
		return fmt.Errorf("redis rpush: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
