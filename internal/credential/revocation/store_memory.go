package revocation

import (
	"context"
	"sync"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemory is the development and test revocation store.
type InMemory struct {
	mu      sync.RWMutex
	entries map[id.CredentialID]Entry
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[id.CredentialID]Entry)}
}

func (s *InMemory) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[e.CredentialID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.entries[e.CredentialID] = e
	return nil
}

func (s *InMemory) Find(_ context.Context, tenantID id.TenantID, credentialID id.CredentialID) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[credentialID]
	if !ok || e.TenantID != tenantID {
		return Entry{}, sentinel.ErrNotFound
	}
	return e, nil
}

func (s *InMemory) RevokedSet(_ context.Context, tenantID id.TenantID, credentialIDs []id.CredentialID) (map[id.CredentialID]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[id.CredentialID]Entry)
	for _, credentialID := range credentialIDs {
		if e, ok := s.entries[credentialID]; ok && e.TenantID == tenantID {
			out[credentialID] = e
		}
	}
	return out, nil
}
