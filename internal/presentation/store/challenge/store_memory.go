package challenge

import (
	"context"
	"sync"
	"time"

	"custodia/pkg/platform/sentinel"
)

// InMemory keeps consumed challenges with lazy expiry, for tests and
// single-node deployments without redis.
type InMemory struct {
	mu       sync.Mutex
	consumed map[string]time.Time
	now      func() time.Time
}

func NewInMemory() *InMemory {
	return NewInMemoryWithClock(time.Now)
}

func NewInMemoryWithClock(now func() time.Time) *InMemory {
	return &InMemory{consumed: make(map[string]time.Time), now: now}
}

func (s *InMemory) Consume(_ context.Context, challenge string, retention time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiry, ok := s.consumed[challenge]; ok && now.Before(expiry) {
		return sentinel.ErrAlreadyUsed
	}
	s.consumed[challenge] = now.Add(retention)
	return nil
}
