package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 55 * time.Second

// Lock coordinates exclusive job cycles across worker instances.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// redisStore defines the operations used by RedisLock.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock implements Lock using Redis SETNX + TTL. The stored value is
// "<holder>/<token>" so operators can see which instance owns a cycle.
type RedisLock struct {
	client redisStore
	key    string
	ttl    time.Duration
	holder string
	owner  string
}

// LockOption customizes a RedisLock.
type LockOption func(*RedisLock)

// WithHolder names the instance written into the lock value.
func WithHolder(holder string) LockOption {
	return func(l *RedisLock) {
		l.holder = strings.ReplaceAll(strings.TrimSpace(holder), "/", "_")
	}
}

// NewRedisLock constructs a Redis-backed lock. The TTL should stay below the
// cycle interval so a crashed holder never blocks more than one cycle.
func NewRedisLock(client redisStore, key string, ttl time.Duration, opts ...LockOption) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	lock := &RedisLock{client: client, key: key, ttl: ttl}
	for _, opt := range opts {
		opt(lock)
	}
	if lock.holder == "" {
		lock.holder = "anonymous"
	}
	return lock, nil
}

// Acquire tries to own the lock for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := l.holder + "/" + uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Release frees the lock only if the owner value still matches.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	value, err := l.client.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != l.owner {
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	l.owner = ""
	return nil
}

// HeldBy returns the holder currently owning the lock, or "" when it is free.
func (l *RedisLock) HeldBy(ctx context.Context) (string, error) {
	value, err := l.client.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("read lock owner: %w", err)
	}
	holder, _, _ := strings.Cut(value, "/")
	return holder, nil
}
