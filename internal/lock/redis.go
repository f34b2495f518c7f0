package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by another instance is never released by us.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// Redis is a Locker shared by every instance talking to the same Redis.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration // lock expiry if the holder dies
	wait   time.Duration // how long Lock keeps retrying
	retry  time.Duration
}

// NewRedis builds a Redis locker.  Non-positive durations fall back to
// 30s TTL and 5s wait.
func NewRedis(rdb *redis.Client, prefix string, ttl, wait time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	if prefix == "" {
		prefix = "seating"
	}
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl, wait: wait, retry: 50 * time.Millisecond}
}

func (r *Redis) key(examID uint64) string {
	return fmt.Sprintf("%s:lock:exam:%d", r.prefix, examID)
}

// Lock acquires the exam lock with SET NX PX, polling until the wait
// window closes.  Redis failures are returned as-is; contention past the
// window is ErrBusy.
func (r *Redis) Lock(ctx context.Context, examID uint64) (func(), error) {
	key := r.key(examID)
	token := uuid.NewString()
	deadline := time.Now().Add(r.wait)

	for {
		ok, err := r.rdb.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire exam lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrBusy
		}
		select {
		case <-time.After(r.retry):
		case <-ctx.Done():
			return nil, ErrBusy
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the request context may already be done; release regardless
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, r.rdb, []string{key}, token).Err()
		})
	}, nil
}
