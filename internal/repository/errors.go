package repository

import "errors"

// Repository errors
var (
	// ErrUnsupportedDriver indicates the configured store driver is unknown.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// Cache and lock errors
var (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable indicates the cache is unavailable.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrLockNotAcquired indicates the lock could not be acquired.
	ErrLockNotAcquired = errors.New("lock not acquired")

	// ErrLockLost indicates a held lock expired or was taken over.
	ErrLockLost = errors.New("lock lost")
)
