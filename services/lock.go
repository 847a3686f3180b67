package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("lock is held")

// Locker serializes a critical section across server instances.
type Locker interface {
	// Acquire takes the lock for key and returns its release function.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// RedisLocker implements Locker with SET NX PX and a compare-and-delete release.
type RedisLocker struct {
	Redis   *redis.Client
	TTL     time.Duration
	Wait    time.Duration
	Backoff time.Duration
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{
		Redis:   client,
		TTL:     5 * time.Second,
		Wait:    2 * time.Second,
		Backoff: 25 * time.Millisecond,
	}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Acquire retries until the lock is free, Wait elapses or ctx ends.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	redisKey := fmt.Sprintf("execdash:lock:%s", key)
	deadline := time.Now().Add(l.Wait)

	for {
		ok, err := l.Redis.SetNX(ctx, redisKey, token, l.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return func() {
				// Released on a fresh context: the caller's may already be done.
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.Redis, []string{redisKey}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockHeld
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.Backoff):
		}
	}
}
