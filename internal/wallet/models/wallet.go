package models

import (
	"time"

	"custodia/internal/keys"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// WalletStatus is the custody lifecycle state. Wallets are never hard
// deleted; retirement is the terminal state.
type WalletStatus string

const (
	WalletStatusActive  WalletStatus = "active"
	WalletStatusRetired WalletStatus = "retired"
)

// Wallet is the aggregate root for a user's encrypted key custody.
//
// Invariants:
//   - Exactly one wallet per (tenant, user); enforced by the store
//   - Private keys exist only inside encrypted KeyPair blobs
//   - Exactly one key is active (non-superseded) at any time
//   - KeystoreVersion increases by one on every keystore mutation
//   - Superseded keys are retained forever for signature verification
type Wallet struct {
	ID              id.WalletID    `json:"id"`
	TenantID        id.TenantID    `json:"tenant_id"`
	UserID          id.UserID      `json:"user_id"`
	PrimaryDID      string         `json:"primary_did,omitempty"`
	KDF             keys.KDFParams `json:"kdf_params"`
	Keys            []keys.KeyPair `json:"keys"`
	KeystoreVersion int            `json:"keystore_version"`
	Status          WalletStatus   `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	RetiredAt       *time.Time     `json:"retired_at,omitempty"`
}

// NewWallet constructs a wallet with its initial key pair.
func NewWallet(walletID id.WalletID, tenantID id.TenantID, userID id.UserID, kdf keys.KDFParams, initial keys.KeyPair, now time.Time) (*Wallet, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "wallet requires a tenant")
	}
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "wallet requires a user")
	}
	if len(initial.EncryptedPrivateKey) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "wallet requires an encrypted initial key")
	}
	return &Wallet{
		ID:              walletID,
		TenantID:        tenantID,
		UserID:          userID,
		KDF:             kdf,
		Keys:            []keys.KeyPair{initial},
		KeystoreVersion: 1,
		Status:          WalletStatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// IsActive reports whether the wallet may be used at all.
func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}

// ActiveKey returns the single key allowed to sign new material.
func (w *Wallet) ActiveKey() (keys.KeyPair, error) {
	for _, k := range w.Keys {
		if k.IsActive() {
			return k, nil
		}
	}
	return keys.KeyPair{}, dErrors.New(dErrors.CodeInvariantViolation, "wallet has no active key")
}

// KeyByID looks up any key, active or superseded.
func (w *Wallet) KeyByID(keyID string) (keys.KeyPair, bool) {
	for _, k := range w.Keys {
		if k.ID == keyID {
			return k, true
		}
	}
	return keys.KeyPair{}, false
}

// ApplyRotation supersedes the active key, appends the replacement, and
// bumps the keystore version. The superseded key stays in the list so
// material signed before the rotation remains verifiable.
func (w *Wallet) ApplyRotation(replacement keys.KeyPair, now time.Time) error {
	if !w.IsActive() {
		return dErrors.New(dErrors.CodeInvariantViolation, "wallet is retired")
	}
	if _, exists := w.KeyByID(replacement.ID); exists {
		return dErrors.New(dErrors.CodeInvariantViolation, "replacement key already present")
	}
	for i := range w.Keys {
		w.Keys[i].Supersede(now)
	}
	w.Keys = append(w.Keys, replacement)
	w.KeystoreVersion++
	w.UpdatedAt = now
	return nil
}

// ReplaceKeystore swaps the encrypted key material and KDF params after a
// passphrase change or restore. Key identity and history must be preserved;
// only blobs and parameters change.
func (w *Wallet) ReplaceKeystore(kdf keys.KDFParams, replacement []keys.KeyPair, now time.Time) error {
	if len(replacement) == 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "keystore cannot be emptied")
	}
	active := 0
	for _, k := range replacement {
		if k.IsActive() {
			active++
		}
	}
	if active != 1 {
		return dErrors.New(dErrors.CodeInvariantViolation, "keystore requires exactly one active key")
	}
	w.KDF = kdf
	w.Keys = replacement
	w.KeystoreVersion++
	w.UpdatedAt = now
	return nil
}

// CanRetire checks the retire transition.
func (w *Wallet) CanRetire() error {
	if w.Status == WalletStatusRetired {
		return dErrors.New(dErrors.CodeInvariantViolation, "wallet is already retired")
	}
	return nil
}

// ApplyRetire soft-retires the wallet. Key material is retained so
// previously issued credentials stay verifiable.
func (w *Wallet) ApplyRetire(now time.Time) {
	w.Status = WalletStatusRetired
	t := now
	w.RetiredAt = &t
	w.UpdatedAt = now
}

// Clone returns a deep copy so stores never hand out aliased key slices.
func (w *Wallet) Clone() *Wallet {
	cp := *w
	cp.Keys = make([]keys.KeyPair, len(w.Keys))
	for i, k := range w.Keys {
		ck := k
		ck.PublicKey = append([]byte(nil), k.PublicKey...)
		ck.EncryptedPrivateKey = append([]byte(nil), k.EncryptedPrivateKey...)
		if k.SupersededAt != nil {
			t := *k.SupersededAt
			ck.SupersededAt = &t
		}
		cp.Keys[i] = ck
	}
	if w.RetiredAt != nil {
		t := *w.RetiredAt
		cp.RetiredAt = &t
	}
	return &cp
}
