package handler

import (
	"encoding/base64"
	"time"

	"custodia/internal/wallet/models"
)

// WalletResponse is the sanitized wallet summary. Encrypted key material and
// KDF parameters never leave the service.
type WalletResponse struct {
	ID              string        `json:"id"`
	TenantID        string        `json:"tenant_id"`
	UserID          string        `json:"user_id"`
	PrimaryDID      string        `json:"primary_did,omitempty"`
	Status          string        `json:"status"`
	KeystoreVersion int           `json:"keystore_version"`
	Keys            []KeyResponse `json:"keys"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// KeyResponse exposes the public half of a keystore entry.
type KeyResponse struct {
	ID           string     `json:"id"`
	PublicKey    string     `json:"public_key"`
	CreatedAt    time.Time  `json:"created_at"`
	SupersededAt *time.Time `json:"superseded_at,omitempty"`
}

// FromWallet converts a domain wallet to its sanitized HTTP response.
func FromWallet(w *models.Wallet) *WalletResponse {
	resp := &WalletResponse{
		ID:              w.ID.String(),
		TenantID:        w.TenantID.String(),
		UserID:          w.UserID.String(),
		PrimaryDID:      w.PrimaryDID,
		Status:          string(w.Status),
		KeystoreVersion: w.KeystoreVersion,
		Keys:            make([]KeyResponse, 0, len(w.Keys)),
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
	}
	for _, k := range w.Keys {
		resp.Keys = append(resp.Keys, KeyResponse{
			ID:           k.ID,
			PublicKey:    base64.RawURLEncoding.EncodeToString(k.PublicKey),
			CreatedAt:    k.CreatedAt,
			SupersededAt: k.SupersededAt,
		})
	}
	return resp
}

// CreateWalletResponse is the HTTP response for POST /wallet.
type CreateWalletResponse struct {
	Wallet     *WalletResponse `json:"wallet"`
	PrimaryDID string          `json:"primary_did,omitempty"`
}

// SessionResponse is the HTTP response for POST /wallet/unlock.
type SessionResponse struct {
	SessionID        string    `json:"session_id"`
	SessionExpiresAt time.Time `json:"session_expires_at"`
}

// BackupResponse describes one backup. The sealed blob is returned only from
// the create call; listings carry metadata.
type BackupResponse struct {
	ID        string    `json:"id"`
	WalletID  string    `json:"wallet_id"`
	Blob      string    `json:"blob,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FromBackup converts a backup to its HTTP response.
func FromBackup(b *models.Backup, includeBlob bool) *BackupResponse {
	resp := &BackupResponse{
		ID:        b.ID.String(),
		WalletID:  b.WalletID.String(),
		CreatedAt: b.CreatedAt,
	}
	if includeBlob {
		resp.Blob = base64.StdEncoding.EncodeToString(b.Blob)
	}
	return resp
}
