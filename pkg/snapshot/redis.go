package snapshot

import (
	"context"
	"time"

	pfredis "github.com/angelmondragon/packfinderz-storefront/pkg/redis"
)

type redisKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	CartSnapshotKey(scope, name string) string
}

// RedisBackend shares snapshots across storefront instances. Entries expire after ttl of
// inactivity; zero keeps them forever.
type RedisBackend struct {
	kv  redisKV
	ttl time.Duration
}

func NewRedisBackend(kv redisKV, ttl time.Duration) *RedisBackend {
	return &RedisBackend{kv: kv, ttl: ttl}
}

func (r *RedisBackend) Get(ctx context.Context, scope, key string) (string, error) {
	v, err := r.kv.Get(ctx, r.kv.CartSnapshotKey(scope, key))
	if pfredis.IsNil(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (r *RedisBackend) Put(ctx context.Context, scope, key, payload string) error {
	return r.kv.Set(ctx, r.kv.CartSnapshotKey(scope, key), payload, r.ttl)
}

func (r *RedisBackend) Delete(ctx context.Context, scope, key string) error {
	return r.kv.Del(ctx, r.kv.CartSnapshotKey(scope, key))
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.kv.Ping(ctx)
}
