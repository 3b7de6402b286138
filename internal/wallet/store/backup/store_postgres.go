package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"custodia/internal/wallet/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// Postgres persists backups.
//
// Schema:
//
//	CREATE TABLE wallet_backups (
//	    id         UUID PRIMARY KEY,
//	    tenant_id  UUID NOT NULL,
//	    user_id    UUID NOT NULL,
//	    wallet_id  UUID NOT NULL,
//	    kdf_params JSONB NOT NULL,
//	    blob       BYTEA NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX wallet_backups_owner_idx ON wallet_backups (tenant_id, user_id, created_at DESC);
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, backup *models.Backup) error {
	kdfJSON, err := json.Marshal(backup.KDF)
	if err != nil {
		return fmt.Errorf("marshal kdf params: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO wallet_backups (id, tenant_id, user_id, wallet_id, kdf_params, blob, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(backup.ID), uuid.UUID(backup.TenantID), uuid.UUID(backup.UserID), uuid.UUID(backup.WalletID),
		kdfJSON, backup.Blob, backup.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert backup: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, tenantID id.TenantID, userID id.UserID, backupID id.BackupID) (*models.Backup, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, user_id, wallet_id, kdf_params, blob, created_at
		FROM wallet_backups WHERE id = $1 AND tenant_id = $2 AND user_id = $3`,
		uuid.UUID(backupID), uuid.UUID(tenantID), uuid.UUID(userID))

	backup, err := scanBackup(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return backup, nil
}

func (s *Postgres) ListByOwner(ctx context.Context, tenantID id.TenantID, userID id.UserID) ([]models.Backup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, user_id, wallet_id, kdf_params, blob, created_at
		FROM wallet_backups WHERE tenant_id = $1 AND user_id = $2
		ORDER BY created_at DESC`,
		uuid.UUID(tenantID), uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var out []models.Backup
	for rows.Next() {
		backup, err := scanBackup(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *backup)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	return out, nil
}

func scanBackup(scan func(...any) error) (*models.Backup, error) {
	var (
		b        models.Backup
		backupID uuid.UUID
		tenantID uuid.UUID
		userID   uuid.UUID
		walletID uuid.UUID
		kdfJSON  []byte
	)
	if err := scan(&backupID, &tenantID, &userID, &walletID, &kdfJSON, &b.Blob, &b.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("scan backup: %w", err)
	}
	b.ID = id.BackupID(backupID)
	b.TenantID = id.TenantID(tenantID)
	b.UserID = id.UserID(userID)
	b.WalletID = id.WalletID(walletID)
	if err := json.Unmarshal(kdfJSON, &b.KDF); err != nil {
		return nil, fmt.Errorf("unmarshal kdf params: %w", err)
	}
	return &b, nil
}
