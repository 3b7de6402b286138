package service

import (
	"context"
	"encoding/json"
	"errors"

	"custodia/internal/audit"
	"custodia/internal/keys"
	"custodia/internal/wallet/models"
	dErrors "custodia/pkg/domain-errors"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// CreateBackup exports the keystore as an opaque, independently restorable
// blob. The keys stay sealed under the wallet KDF; the whole payload is then
// wrapped under a fresh export key derived from the same passphrase, so a
// restore needs nothing beyond the backup row and the passphrase in force at
// export time. Requires a successful passphrase check first.
func (s *Service) CreateBackup(ctx context.Context, tenantID id.TenantID, userID id.UserID, passphrase string) (*models.Backup, error) {
	w, err := s.wallets.FindByTenantUser(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication failed")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load wallet")
	}
	if _, _, err := s.openKeystore(w, passphrase); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication failed")
	}

	now := requestcontext.Now(ctx)
	payload, err := json.Marshal(models.BackupPayload{
		WalletID:   w.ID.String(),
		PrimaryDID: w.PrimaryDID,
		KDF:        w.KDF,
		Keys:       w.Keys,
		ExportedAt: now,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode backup payload")
	}

	exportKDF, err := keys.NewKDFParams()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to prepare export key derivation")
	}
	exportKey, err := keys.DeriveKey(passphrase, exportKDF, s.minPassphraseLength)
	if err != nil {
		return nil, err
	}
	blob, err := keys.EncryptBlob(payload, exportKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to seal backup")
	}

	backup := &models.Backup{
		ID:        id.NewBackupID(),
		TenantID:  tenantID,
		UserID:    userID,
		WalletID:  w.ID,
		KDF:       exportKDF,
		Blob:      blob,
		CreatedAt: now,
	}
	if err := s.backups.Create(ctx, backup); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store backup")
	}

	s.logAudit(ctx, audit.Event{
		Action:   audit.EventBackupCreated,
		TenantID: tenantID,
		UserID:   userID,
		Subject:  backup.ID.String(),
	})
	if s.metrics != nil {
		s.metrics.IncrementBackupCreated()
	}
	return backup, nil
}

// ListBackups returns the owner's backups newest first. Creating or listing
// backups never touches live wallet state.
func (s *Service) ListBackups(ctx context.Context, tenantID id.TenantID, userID id.UserID) ([]models.Backup, error) {
	backups, err := s.backups.ListByOwner(ctx, tenantID, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list backups")
	}
	return backups, nil
}

// RestoreFromBackup replaces the live keystore with the backed-up one. The
// passphrase must be the one in force when the backup was created; after a
// successful restore the wallet is locked and that passphrase unlocks it.
func (s *Service) RestoreFromBackup(ctx context.Context, tenantID id.TenantID, userID id.UserID, backupID id.BackupID, passphrase string) (*models.Wallet, error) {
	w, err := s.wallets.FindByTenantUser(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "wallet not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load wallet")
	}

	backup, err := s.backups.FindByID(ctx, tenantID, userID, backupID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "backup not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load backup")
	}

	exportKey, err := keys.DeriveKey(passphrase, backup.KDF, s.minPassphraseLength)
	if err != nil {
		return nil, err
	}
	payloadBytes, err := keys.DecryptBlob(backup.Blob, exportKey)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication failed")
	}
	var payload models.BackupPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "backup payload is malformed")
	}
	if payload.WalletID != w.ID.String() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "backup does not belong to this wallet")
	}

	now := requestcontext.Now(ctx)
	expectedVersion := w.KeystoreVersion
	if err := w.ReplaceKeystore(payload.KDF, payload.Keys, now); err != nil {
		return nil, err
	}
	if err := s.PersistKeystore(ctx, w, expectedVersion); err != nil {
		return nil, err
	}

	// A restore invalidates whatever was unlocked before it.
	if err := s.sessions.Delete(ctx, w.ID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to end session")
	}

	s.logAudit(ctx, audit.Event{
		Action:   audit.EventBackupRestored,
		TenantID: tenantID,
		UserID:   userID,
		Subject:  backup.ID.String(),
	})
	if s.metrics != nil {
		s.metrics.IncrementBackupRestored()
	}
	return w, nil
}
