// Package locks provides advisory locks that serialize mutating operations on
// the same part of a user's tree.
package locks

import (
	"context"
)

// Manager defines the interface for lock operations
type Manager interface {
	// Acquire attempts to acquire a lock for the given key without waiting.
	// Returns true if the lock was acquired, false if it is already held.
	Acquire(ctx context.Context, key string) (bool, error)

	// Release releases a previously acquired lock for the given key
	// Only the holder that acquired the lock can release it
	Release(ctx context.Context, key string) error

	// Close closes the lock manager and releases any resources
	Close() error
}

// NoopManager grants every lock. It is used when locking is disabled.
type NoopManager struct{}

// NewNoopManager creates a lock manager that never blocks
func NewNoopManager() *NoopManager {
	return &NoopManager{}
}

// Acquire always succeeds
func (NoopManager) Acquire(ctx context.Context, key string) (bool, error) {
	return true, ctx.Err()
}

// Release does nothing
func (NoopManager) Release(ctx context.Context, key string) error {
	return nil
}

// Close does nothing
func (NoopManager) Close() error {
	return nil
}
