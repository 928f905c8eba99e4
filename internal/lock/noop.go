package lock

import (
	"context"
	"time"
)

// NoOpLocker is a locker that always succeeds.
// Use this when locking is not needed (single process, tests).
type NoOpLocker struct{}

// NewNoOpLocker creates a new no-op locker.
func NewNoOpLocker() *NoOpLocker {
	return &NoOpLocker{}
}

// Acquire always succeeds.
func (n *NoOpLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	return "noop", true, nil
}

// Release always succeeds.
func (n *NoOpLocker) Release(ctx context.Context, key, token string) (bool, error) {
	return true, ctx.Err()
}

// Extend always succeeds.
func (n *NoOpLocker) Extend(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return true, ctx.Err()
}

// IsHeld always returns false.
func (n *NoOpLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	return false, ctx.Err()
}

// Ensure NoOpLocker implements Locker.
var _ Locker = (*NoOpLocker)(nil)
