package backup

import (
	"context"

	"custodia/internal/wallet/models"
	id "custodia/pkg/domain"
)

// Store persists encrypted wallet backups. Backups are append-only: a restore
// reads one, it never rewrites history.
type Store interface {
	Create(ctx context.Context, backup *models.Backup) error
	// FindByID returns sentinel.ErrNotFound when the backup does not exist or
	// belongs to another wallet owner.
	FindByID(ctx context.Context, tenantID id.TenantID, userID id.UserID, backupID id.BackupID) (*models.Backup, error)
	// ListByOwner returns the owner's backups newest first.
	ListByOwner(ctx context.Context, tenantID id.TenantID, userID id.UserID) ([]models.Backup, error)
}
