// File: utils/lock.go
package utils

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseScript deletes the lock only while it is still held by the token
// that acquired it, so a slow holder cannot release a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

const (
	lockAttempts  = 10
	lockRetryWait = 100 * time.Millisecond
)

// RedisLocker provides short-lived advisory locks over Redis SET NX.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker builds a locker over the given client.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire takes the lock, polling briefly while it is contended. The TTL
// bounds how long a crashed holder can keep the lock; the returned release
// func is safe to call after the TTL has lapsed.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	for i := 0; i < lockAttempts; i++ {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, WrapE(KindUpstreamUnavailable, err, "lock %s unavailable", key)
		}
		if ok {
			release := func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				releaseScript.Run(releaseCtx, l.client, []string{key}, token)
			}
			return release, nil
		}
		select {
		case <-ctx.Done():
			return nil, WrapE(KindDeadline, ctx.Err(), "gave up waiting for lock %s", key)
		case <-time.After(lockRetryWait):
		}
	}
	return nil, E(KindConflict, "lock %s is contended", key)
}
