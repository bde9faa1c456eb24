package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"Ewm_Platform/internal/pkg"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultLockTTL  = 2 * time.Second
	DefaultLockWait = 500 * time.Millisecond
	LockKeyPrefix   = "lock:event"
	lockRetryStep   = 20 * time.Millisecond
)

// 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// EventLock 按活动加分布式锁，串行化同一活动的容量校验；数据库行锁仍然兜底
type EventLock struct {
	RDB  *redis.Client
	TTL  time.Duration
	Wait time.Duration
}

func NewEventLock(rdb *redis.Client, ttl, wait time.Duration) *EventLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if wait < 0 {
		wait = DefaultLockWait
	}
	return &EventLock{RDB: rdb, TTL: ttl, Wait: wait}
}

func lockKey(eventID uint64) string {
	return fmt.Sprintf("%s:%d", LockKeyPrefix, eventID)
}

// Acquire 请求加分布式锁
func (l *EventLock) Acquire(ctx context.Context, eventID uint64, token string) (bool, error) {
	return l.RDB.SetNX(ctx, lockKey(eventID), token, l.TTL).Result()
}

// Release 用lua保证原子性
func (l *EventLock) Release(ctx context.Context, eventID uint64, token string) error {
	return releaseScript.Run(ctx, l.RDB, []string{lockKey(eventID)}, token).Err()
}

// WithLock 在 Wait 时间内反复尝试拿锁，拿不到返回可重试的 ErrContention
func (l *EventLock) WithLock(ctx context.Context, eventID uint64, fn func(ctx context.Context) error) error {
	token := uuid.NewString()
	deadline := time.Now().Add(l.Wait)
	for {
		got, err := l.Acquire(ctx, eventID, token)
		if err != nil {
			return fmt.Errorf("acquire event lock id=%d: %w", eventID, err)
		}
		if got {
			break
		}
		if !time.Now().Before(deadline) {
			pkg.LockContention.Inc()
			return fmt.Errorf("%w: event id=%d", pkg.ErrContention, eventID)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryStep):
		}
	}
	defer func() {
		// 调用方的 ctx 可能已取消，释放锁用独立的短超时
		rctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := l.Release(rctx, eventID, token); err != nil && !errors.Is(err, redis.Nil) {
			log.Printf("release event lock id=%d err: %v", eventID, err)
		}
	}()
	return fn(ctx)
}
