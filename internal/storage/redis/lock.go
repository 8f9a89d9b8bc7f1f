// Package redis provides a go-redis backed lease that keeps a second process
// from replaying the same pool concurrently.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockHeld = errors.New("lock held")
	ErrLockLost = errors.New("lock lost")
)

const (
	defaultTTL    = 5 * time.Second
	maxRetryDelay = time.Second
)

// Deletes the key only when it still carries the caller's token.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// Extends the TTL only when the key still carries the caller's token.
const refreshLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`

// Config holds connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Locker hands out SETNX leases that stay alive while held.
type Locker struct {
	rdb        redis.UniversalClient
	prefix     string
	retryDelay time.Duration
	unlock     *redis.Script
	refresh    *redis.Script
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, cfg Config) (*Locker, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewLocker(rdb, cfg.Prefix), nil
}

// NewLocker wraps an existing client.
func NewLocker(rdb redis.UniversalClient, prefix string) *Locker {
	if prefix == "" {
		prefix = "swapledger"
	}
	return &Locker{
		rdb:        rdb,
		prefix:     prefix,
		retryDelay: 50 * time.Millisecond,
		unlock:     redis.NewScript(unlockLua),
		refresh:    redis.NewScript(refreshLua),
	}
}

func (l *Locker) key(name string) string {
	return l.prefix + ":lock:" + name
}

// Acquire waits until it holds the lock for name, then keeps the key alive
// until release is called. The returned context is cancelled with
// ErrLockLost if a refresh finds the key gone or owned by someone else.
// release may be called more than once.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (context.Context, func(), error) {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	token := uuid.NewString()
	key := l.key(name)

	delay := l.retryDelay
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, nil, fmt.Errorf("acquire lock %s: %w", name, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, nil, fmt.Errorf("%w: %s: %w", ErrLockHeld, name, ctx.Err())
		case <-timer.C:
		}
		if delay < maxRetryDelay {
			delay *= 2
		}
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	go l.keepAlive(leaseCtx, cancel, done, key, token, ttl)

	var once sync.Once
	release := func() {
		once.Do(func() {
			cancel(nil)
			<-done
			// The caller's context may already be done.
			releaseCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			_ = l.unlock.Run(releaseCtx, l.rdb, []string{key}, token).Err()
		})
	}
	return leaseCtx, release, nil
}

func (l *Locker) keepAlive(ctx context.Context, cancel context.CancelCauseFunc, done chan<- struct{}, key, token string, ttl time.Duration) {
	defer close(done)
	ticker := time.NewTicker(ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		n, err := l.refresh.Run(ctx, l.rdb, []string{key}, token, ttl.Milliseconds()).Int()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			cancel(fmt.Errorf("%w: %s: %w", ErrLockLost, key, err))
			return
		}
		if n == 0 {
			cancel(fmt.Errorf("%w: %s", ErrLockLost, key))
			return
		}
	}
}

func (l *Locker) Close() error {
	return l.rdb.Close()
}
