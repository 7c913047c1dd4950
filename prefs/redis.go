package prefs

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each namespace as one Redis hash.
type RedisBackend struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisBackend wraps an existing client. Keys are "prefs:<namespace>".
func NewRedisBackend(rdb redis.UniversalClient) *RedisBackend {
	return &RedisBackend{rdb: rdb, prefix: "prefs:"}
}

// DialRedis connects to a single Redis node and fails fast if it does not
// answer a PING within two seconds.
func DialRedis(ctx context.Context, addr, password string, db int) (*RedisBackend, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisBackend(rdb), nil
}

func (r *RedisBackend) key(namespace string) string {
	return r.prefix + namespace
}

func (r *RedisBackend) Load(ctx context.Context, namespace string) (map[string]string, error) {
	values, err := r.rdb.HGetAll(ctx, r.key(namespace)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	return values, nil
}

// Apply runs HDEL and HSET inside MULTI/EXEC.
func (r *RedisBackend) Apply(ctx context.Context, namespace string, set map[string]string, remove []string) error {
	key := r.key(namespace)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(remove) > 0 {
			pipe.HDel(ctx, key, remove...)
		}
		if len(set) > 0 {
			fields := make(map[string]interface{}, len(set))
			for k, v := range set {
				fields[k] = v
			}
			pipe.HSet(ctx, key, fields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis commit: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisBackend) Close() error {
	return r.rdb.Close()
}
