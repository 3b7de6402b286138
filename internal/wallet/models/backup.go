package models

import (
	"time"

	"custodia/internal/keys"
	id "custodia/pkg/domain"
)

// Backup is an export of a wallet keystore re-encrypted under an
// export-specific key. Backups are additive: creating or listing them never
// touches live wallet state, and only an explicit restore does.
type Backup struct {
	ID        id.BackupID    `json:"id"`
	TenantID  id.TenantID    `json:"tenant_id"`
	UserID    id.UserID      `json:"user_id"`
	WalletID  id.WalletID    `json:"wallet_id"`
	KDF       keys.KDFParams `json:"kdf_params"` // export KDF, not the live wallet's
	Blob      []byte         `json:"blob"`
	CreatedAt time.Time      `json:"created_at"`
}

// BackupPayload is the plaintext structure sealed inside Backup.Blob.
type BackupPayload struct {
	WalletID   string         `json:"wallet_id"`
	PrimaryDID string         `json:"primary_did,omitempty"`
	KDF        keys.KDFParams `json:"kdf_params"`
	Keys       []keys.KeyPair `json:"keys"`
	ExportedAt time.Time      `json:"exported_at"`
}
