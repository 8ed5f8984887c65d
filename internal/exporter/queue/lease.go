package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/exporter3/internal/common"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lease is a short-lived cross-process claim on a key.
type Lease interface {
	// Acquire returns common.ErrLeaseHeld when another holder owns key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease implements Lease with SET NX PX.
type RedisLease struct {
	client *redis.Client
	prefix string
}

func NewRedisLease(client *redis.Client, prefix string) *RedisLease {
	return &RedisLease{client: client, prefix: prefix}
}

func (l *RedisLease) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	k := l.prefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: acquire lease: %v", common.ErrTransientUpstream, err)
	}
	if !ok {
		return nil, common.ErrLeaseHeld
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{k}, token).Err(); err != nil {
			return fmt.Errorf("release lease: %w", err)
		}
		return nil
	}, nil
}
