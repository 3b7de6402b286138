package backup

import (
	"context"
	"sort"
	"sync"

	"custodia/internal/wallet/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

type ownerKey struct {
	tenantID id.TenantID
	userID   id.UserID
}

// InMemory is the development and test backup store.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[id.BackupID]models.Backup
	byOwner map[ownerKey][]id.BackupID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[id.BackupID]models.Backup),
		byOwner: make(map[ownerKey][]id.BackupID),
	}
}

func (s *InMemory) Create(_ context.Context, backup *models.Backup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[backup.ID]; ok {
		return sentinel.ErrConflict
	}
	stored := *backup
	stored.Blob = append([]byte(nil), backup.Blob...)
	s.byID[backup.ID] = stored

	owner := ownerKey{tenantID: backup.TenantID, userID: backup.UserID}
	s.byOwner[owner] = append(s.byOwner[owner], backup.ID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, tenantID id.TenantID, userID id.UserID, backupID id.BackupID) (*models.Backup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.byID[backupID]
	if !ok || stored.TenantID != tenantID || stored.UserID != userID {
		return nil, sentinel.ErrNotFound
	}
	out := stored
	out.Blob = append([]byte(nil), stored.Blob...)
	return &out, nil
}

func (s *InMemory) ListByOwner(_ context.Context, tenantID id.TenantID, userID id.UserID) ([]models.Backup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byOwner[ownerKey{tenantID: tenantID, userID: userID}]
	out := make([]models.Backup, 0, len(ids))
	for _, backupID := range ids {
		stored := s.byID[backupID]
		stored.Blob = append([]byte(nil), stored.Blob...)
		out = append(out, stored)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
