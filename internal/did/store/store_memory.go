package store

import (
	"context"
	"sort"
	"sync"

	"custodia/internal/did/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

type walletMethod struct {
	walletID id.WalletID
	method   models.Method
}

// InMemory is the development and test DID registry.
type InMemory struct {
	mu       sync.RWMutex
	byDID    map[string]*models.Document
	byWallet map[walletMethod]string
}

func NewInMemory() *InMemory {
	return &InMemory{
		byDID:    make(map[string]*models.Document),
		byWallet: make(map[walletMethod]string),
	}
}

func (s *InMemory) Create(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byDID[doc.DID]; ok {
		return sentinel.ErrConflict
	}
	key := walletMethod{walletID: doc.ControllerWalletID, method: doc.Method}
	if _, ok := s.byWallet[key]; ok {
		return sentinel.ErrConflict
	}
	s.byDID[doc.DID] = doc.Clone()
	s.byWallet[key] = doc.DID
	return nil
}

func (s *InMemory) FindByDID(_ context.Context, did string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.byDID[did]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *InMemory) ListByWallet(_ context.Context, walletID id.WalletID) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Document
	for _, doc := range s.byDID {
		if doc.ControllerWalletID == walletID {
			out = append(out, *doc.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) UpdateDocument(_ context.Context, doc *models.Document, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byDID[doc.DID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return sentinel.ErrConflict
	}
	s.byDID[doc.DID] = doc.Clone()
	return nil
}
