package locks

import (
	"context"
	"sync"
	"time"
)

// LocalManager provides in-process lock management for single-node deployments.
// Locks expire after ttl so a holder that never releases cannot wedge a prefix forever.
type LocalManager struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	locks map[string]time.Time // key -> expiry
}

// NewLocalManager creates a new in-memory lock manager. A zero ttl disables expiry.
func NewLocalManager(ttl time.Duration) *LocalManager {
	return &LocalManager{
		ttl:   ttl,
		now:   time.Now,
		locks: make(map[string]time.Time),
	}
}

// Acquire acquires a lock if it is currently free or expired.
func (m *LocalManager) Acquire(ctx context.Context, key string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expiry, exists := m.locks[key]; exists && (expiry.IsZero() || now.Before(expiry)) {
		return false, nil
	}

	var expiry time.Time
	if m.ttl > 0 {
		expiry = now.Add(m.ttl)
	}
	m.locks[key] = expiry
	return true, nil
}

// Release releases a previously acquired lock.
func (m *LocalManager) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}

// Held returns the number of locks currently held
func (m *LocalManager) Held() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	held := 0
	for _, expiry := range m.locks {
		if expiry.IsZero() || now.Before(expiry) {
			held++
		}
	}
	return held
}

// Close clears all local locks.
func (m *LocalManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks = make(map[string]time.Time)
	return nil
}
