// Package redislock provides a small SET NX based distributed lock.
package redislock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrLockNotAcquired is returned when another holder owns the key
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockNotHeld is returned when releasing a lock that expired or changed hands
	ErrLockNotHeld = errors.New("lock not held")
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Lock is a held lock.
type Lock struct {
	rdb   redis.UniversalClient
	key   string
	value string
}

// Locker hands out locks under a key prefix.
type Locker struct {
	rdb       redis.UniversalClient
	keyPrefix string
}

// NewLocker creates a Locker. An empty prefix defaults to "lock:".
func NewLocker(rdb redis.UniversalClient, keyPrefix string) *Locker {
	if keyPrefix == "" {
		keyPrefix = "lock:"
	}
	return &Locker{rdb: rdb, keyPrefix: keyPrefix}
}

// Acquire takes the lock or returns ErrLockNotAcquired without waiting.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	lockKey := l.keyPrefix + key
	lockValue := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, lockKey, lockValue, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	return &Lock{rdb: l.rdb, key: lockKey, value: lockValue}, nil
}

// Release deletes the key only if this holder still owns it.
func (lock *Lock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, lock.rdb, []string{lock.key}, lock.value).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Extend resets the lock's TTL if this holder still owns it.
func (lock *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	result, err := extendScript.Run(ctx, lock.rdb, []string{lock.key}, lock.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// ExtendFunc pushes a held lock's expiry to ttl from now.
type ExtendFunc = func(ctx context.Context, ttl time.Duration) error

// WithLock executes fn while holding the lock. fn receives an ExtendFunc for
// work whose duration is only known after it starts.
func (l *Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(extend ExtendFunc) error) error {
	lock, err := l.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	// Release on a fresh context so a cancelled run still frees the key.
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = lock.Release(releaseCtx)
	}()

	return fn(lock.Extend)
}
