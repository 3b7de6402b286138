package store

import (
	"context"
	"sort"
	"sync"

	"custodia/internal/credential/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemory is the development and test credential store.
type InMemory struct {
	mu          sync.RWMutex
	credentials map[id.CredentialID]*models.Credential
}

func NewInMemory() *InMemory {
	return &InMemory{credentials: make(map[id.CredentialID]*models.Credential)}
}

func (s *InMemory) Create(_ context.Context, c *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.credentials[c.ID]; ok {
		return sentinel.ErrConflict
	}
	s.credentials[c.ID] = c.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, tenantID id.TenantID, credentialID id.CredentialID) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.credentials[credentialID]
	if !ok || c.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *InMemory) ListBySubject(_ context.Context, tenantID id.TenantID, subjectDID string) ([]models.Credential, error) {
	return s.list(tenantID, func(c *models.Credential) bool { return c.SubjectDID == subjectDID }), nil
}

func (s *InMemory) ListByIssuer(_ context.Context, tenantID id.TenantID, issuerDID string) ([]models.Credential, error) {
	return s.list(tenantID, func(c *models.Credential) bool { return c.IssuerDID == issuerDID }), nil
}

func (s *InMemory) list(tenantID id.TenantID, match func(*models.Credential) bool) []models.Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Credential
	for _, c := range s.credentials {
		if c.TenantID == tenantID && match(c) {
			out = append(out, *c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out
}

func (s *InMemory) MarkRevoked(_ context.Context, tenantID id.TenantID, credentialID id.CredentialID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[credentialID]
	if !ok || c.TenantID != tenantID {
		return sentinel.ErrNotFound
	}
	c.Status = models.StatusRevoked
	return nil
}
