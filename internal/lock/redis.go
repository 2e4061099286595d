// Package lock provides a Redis-backed lifecycle.Guard so several back-office
// instances never send two transitions for the same record at once.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"backoffice/internal/lifecycle"
)

// releaseScript deletes the key only if it still holds our token.
// KEYS[1] = lock key
// ARGV[1] = token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

const DefaultTTL = 30 * time.Second

// TTLFor returns a key TTL that outlives a store call bounded by timeout,
// never shorter than DefaultTTL.
func TTLFor(timeout time.Duration) time.Duration {
	return max(DefaultTTL, 2*timeout+5*time.Second)
}

type RedisGuard struct {
	client redis.UniversalClient
	prefix string
	// ttl caps how long a crashed holder can block a record.
	ttl time.Duration
}

func NewRedisGuard(client redis.UniversalClient, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisGuard{client: client, prefix: "backoffice:transition:", ttl: ttl}
}

// NewRedisClient mirrors the connection options used across the deployment.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (g *RedisGuard) key(k string) string { return g.prefix + k }

func (g *RedisGuard) Acquire(ctx context.Context, k string) (func(), error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.key(k), token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock error: %w", err)
	}
	if !ok {
		return nil, lifecycle.ErrTransitionInFlight
	}
	return func() {
		// Released on a fresh context: the request may already be gone.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, g.client, []string{g.key(k)}, token).Err()
	}, nil
}
