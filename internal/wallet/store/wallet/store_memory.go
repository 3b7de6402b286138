package wallet

import (
	"context"
	"sync"
	"time"

	"custodia/internal/wallet/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemory keeps wallets in process memory. Reads hand out deep copies so
// callers can never mutate stored key material in place.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[id.WalletID]*models.Wallet
	byOwner map[ownerKey]id.WalletID
}

type ownerKey struct {
	tenant id.TenantID
	user   id.UserID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[id.WalletID]*models.Wallet),
		byOwner: make(map[ownerKey]id.WalletID),
	}
}

func (s *InMemory) Create(_ context.Context, w *models.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ownerKey{tenant: w.TenantID, user: w.UserID}
	if _, exists := s.byOwner[key]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.byID[w.ID] = w.Clone()
	s.byOwner[key] = w.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, walletID id.WalletID) (*models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.byID[walletID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return w.Clone(), nil
}

func (s *InMemory) FindByTenantUser(_ context.Context, tenantID id.TenantID, userID id.UserID) (*models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	walletID, ok := s.byOwner[ownerKey{tenant: tenantID, user: userID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.byID[walletID].Clone(), nil
}

func (s *InMemory) UpdateKeystore(_ context.Context, w *models.Wallet, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[w.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.KeystoreVersion != expectedVersion {
		return sentinel.ErrConflict
	}
	s.byID[w.ID] = w.Clone()
	return nil
}

func (s *InMemory) SetPrimaryDID(_ context.Context, walletID id.WalletID, did string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[walletID]
	if !ok {
		return sentinel.ErrNotFound
	}
	stored.PrimaryDID = did
	return nil
}

func (s *InMemory) Retire(_ context.Context, walletID id.WalletID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[walletID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if err := stored.CanRetire(); err != nil {
		return sentinel.ErrInvalidState
	}
	stored.ApplyRetire(time.Now())
	return nil
}
