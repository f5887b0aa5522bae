// Package revocation stores revoked permit ids. The in-memory list backs
// single-process deployments and tests; RedisList is the production pair for
// distributed deployments.
package revocation

import (
	"context"
	"sync"
	"time"
)

// Clock abstracts time.Now for testability.
type Clock func() time.Time

// MemoryList keeps revoked jtis with expiry in process memory.
type MemoryList struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	clock   Clock
}

// MemoryListOption configures a MemoryList.
type MemoryListOption func(*MemoryList)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) MemoryListOption {
	return func(l *MemoryList) {
		if clock != nil {
			l.clock = clock
		}
	}
}

func NewMemoryList(opts ...MemoryListOption) *MemoryList {
	l := &MemoryList{
		revoked: make(map[string]time.Time),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Revoke marks a permit id revoked until its natural expiry.
func (l *MemoryList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[jti] = l.clock().Add(ttl)
	return nil
}

// IsRevoked reports whether a permit id is currently revoked.
func (l *MemoryList) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.RLock()
	expiresAt, ok := l.revoked[jti]
	l.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if l.clock().After(expiresAt) {
		l.mu.Lock()
		delete(l.revoked, jti)
		l.mu.Unlock()
		return false, nil
	}
	return true, nil
}
