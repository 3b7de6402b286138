package session

import (
	"context"
	"sync"
	"time"

	"custodia/internal/wallet/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemory is the development and test session store. Expiry is enforced
// lazily on Get, mirroring the TTL a Redis deployment applies.
type InMemory struct {
	mu       sync.RWMutex
	byWallet map[id.WalletID]models.Session
	now      func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{
		byWallet: make(map[id.WalletID]models.Session),
		now:      time.Now,
	}
}

// NewInMemoryWithClock exists for expiry tests.
func NewInMemoryWithClock(now func() time.Time) *InMemory {
	s := NewInMemory()
	s.now = now
	return s
}

func (s *InMemory) Put(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byWallet[session.WalletID] = *session
	return nil
}

func (s *InMemory) Get(_ context.Context, walletID id.WalletID) (*models.Session, error) {
	s.mu.RLock()
	stored, ok := s.byWallet[walletID]
	s.mu.RUnlock()
	if !ok || stored.IsExpired(s.now()) {
		return nil, sentinel.ErrNotFound
	}
	out := stored
	return &out, nil
}

func (s *InMemory) Delete(_ context.Context, walletID id.WalletID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byWallet, walletID)
	return nil
}
