// Package lock provides distributed and local locking abstractions.
// For single-node deployments, memory-based locks are used.
// For multi-instance deployments, Redis-based locks can be used.
package lock

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prn-tf/reelhub/internal/repository"
)

// Locker defines the interface for distributed/local locking.
// Every acquisition returns an ownership token; only the holder of the
// token can release or extend the lock.
type Locker interface {
	// Acquire attempts to acquire a lock.
	// ok is false if the lock is held by someone else.
	// The lock automatically expires after ttl.
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)

	// Release releases a lock held with token.
	// Returns false if the lock was not held with that token.
	Release(ctx context.Context, key, token string) (bool, error)

	// Extend extends the TTL of a lock held with token.
	Extend(ctx context.Context, key, token string, ttl time.Duration) (bool, error)

	// IsHeld checks if the lock is currently held by anyone.
	IsHeld(ctx context.Context, key string) (bool, error)
}

// Options controls how WithLock acquires a lock.
type Options struct {
	TTL        time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// AcquireWithRetry attempts to acquire a lock, retrying up to maxRetries
// times with retryDelay between attempts.
func AcquireWithRetry(ctx context.Context, l Locker, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (string, bool, error) {
	for i := 0; i <= maxRetries; i++ {
		token, ok, err := l.Acquire(ctx, key, ttl)
		if err != nil {
			return "", false, err
		}
		if ok {
			return token, true, nil
		}

		if i < maxRetries {
			select {
			case <-ctx.Done():
				return "", false, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return "", false, nil
}

// WithLock runs fn while holding key. It returns repository.ErrLockNotAcquired
// when the lock stays busy after all retries.
func WithLock(ctx context.Context, l Locker, key string, opts Options, fn func(ctx context.Context) error) error {
	lk := NewLock(l, key, opts)
	if err := lk.Acquire(ctx); err != nil {
		return err
	}

	defer func() {
		// Release with a fresh context so a cancelled request still frees the lock.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = lk.Release(releaseCtx)
	}()

	return fn(ctx)
}

// Lock holds one key across several steps of a long job. Extend it between
// steps so the lease outlives the job, and check IsHeld before continuing.
type Lock struct {
	locker Locker
	key    string
	opts   Options
	token  string
}

// NewLock creates a Lock for key. opts.TTL is the lease granted by Acquire
// and every Extend.
func NewLock(locker Locker, key string, opts Options) *Lock {
	return &Lock{
		locker: locker,
		key:    key,
		opts:   opts,
	}
}

// Key returns the locked key.
func (l *Lock) Key() string {
	return l.key
}

// Acquire takes the lock, retrying per the options. It returns
// repository.ErrLockNotAcquired when the lock stays busy.
func (l *Lock) Acquire(ctx context.Context) error {
	token, ok, err := AcquireWithRetry(ctx, l.locker, l.key, l.opts.TTL, l.opts.MaxRetries, l.opts.RetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", repository.ErrLockNotAcquired, l.key)
	}
	l.token = token
	return nil
}

// Release releases the lock. Releasing a lock that is not held is a no-op.
func (l *Lock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	_, err := l.locker.Release(ctx, l.key, l.token)
	l.token = ""
	return err
}

// Extend renews the lease for another TTL. It returns repository.ErrLockLost
// when the lease already expired or another holder took the key.
func (l *Lock) Extend(ctx context.Context) error {
	if l.token == "" {
		return fmt.Errorf("%w: %s", repository.ErrLockLost, l.key)
	}
	extended, err := l.locker.Extend(ctx, l.key, l.token, l.opts.TTL)
	if err != nil {
		return fmt.Errorf("failed to extend lock %s: %w", l.key, err)
	}
	if !extended {
		l.token = ""
		return fmt.Errorf("%w: %s", repository.ErrLockLost, l.key)
	}
	return nil
}

// IsHeld reports whether this instance still owns the lock, as of the last
// Acquire or Extend.
func (l *Lock) IsHeld() bool {
	return l.token != ""
}

// =============================================================================
// Common Lock Keys
// =============================================================================

// Keys provides lock key generation for common scenarios.
var Keys = lockKeys{}

type lockKeys struct{}

// FollowPair returns the lock key guarding the follow edge between two users.
// The key does not depend on argument order, so a toggle in either
// direction serializes on the same lock.
func (lockKeys) FollowPair(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return "lock:follow:" + pair[0] + ":" + pair[1]
}

// BookmarkBackfill returns the lock key of the bookmark backfill job.
func (lockKeys) BookmarkBackfill() string {
	return "lock:job:bookmark-backfill"
}
