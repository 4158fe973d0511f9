package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLockHeld indicates the critical section is owned by another caller.
var ErrLockHeld = errors.New("lock already held")

// PeriodCloseLockKey builds redis keys for the period close critical section.
func PeriodCloseLockKey(periodID int64) string {
	return fmt.Sprintf("ledger:period:%d:close", periodID)
}

// Lock is a best-effort distributed mutex on redis SET NX.
type Lock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewLock constructs a Lock for key with the given TTL.
func NewLock(client *redis.Client, key string, ttl time.Duration) *Lock {
	return &Lock{client: client, key: key, ttl: ttl}
}

// Acquire takes the lock or returns ErrLockHeld.
func (l *Lock) Acquire(ctx context.Context) error {
	if l == nil || l.client == nil {
		return errors.New("lock not initialised")
	}
	ok, err := l.client.SetNX(ctx, l.key, "1", l.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockHeld
	}
	return nil
}

// Release drops the lock. Releasing an expired lock is a no-op.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Del(ctx, l.key).Err()
}

// PeriodCloseLocker hands out per-period close locks.
type PeriodCloseLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPeriodCloseLocker constructs the locker. The TTL bounds how long a
// crashed close can keep the period fenced.
func NewPeriodCloseLocker(client *redis.Client, ttl time.Duration) *PeriodCloseLocker {
	return &PeriodCloseLocker{client: client, ttl: ttl}
}

// Acquire takes the close lock for periodID and returns its release func.
func (p *PeriodCloseLocker) Acquire(ctx context.Context, periodID int64) (func(), error) {
	lock := NewLock(p.client, PeriodCloseLockKey(periodID), p.ttl)
	if err := lock.Acquire(ctx); err != nil {
		return nil, err
	}
	return func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}, nil
}
