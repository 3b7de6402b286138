// Package service orchestrates wallet custody: creation, unlock sessions,
// passphrase-gated signing, rotation primitives, and encrypted backups.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks DIDCreator

import (
	"context"
	"crypto/ed25519"
	"errors"
	"log/slog"
	"time"

	"custodia/internal/audit"
	"custodia/internal/keys"
	"custodia/internal/wallet/metrics"
	"custodia/internal/wallet/models"
	backupStore "custodia/internal/wallet/store/backup"
	sessionStore "custodia/internal/wallet/store/session"
	walletStore "custodia/internal/wallet/store/wallet"
	dErrors "custodia/pkg/domain-errors"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// DIDCreator decouples wallet creation from the DID module: the wallet owns
// key custody, the DID module owns identifiers. Bound after construction.
type DIDCreator interface {
	CreateDID(ctx context.Context, walletID id.WalletID, method string) (string, error)
}

// Service orchestrates wallet lifecycle and key custody.
type Service struct {
	wallets  walletStore.Store
	sessions sessionStore.Store
	backups  backupStore.Store

	didCreator DIDCreator

	sessionTTL          time.Duration
	minPassphraseLength int

	logger         *slog.Logger
	auditPublisher audit.Publisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.sessionTTL = ttl
	}
}

func WithMinPassphraseLength(n int) Option {
	return func(s *Service) {
		s.minPassphraseLength = n
	}
}

// New constructs a Service.
func New(wallets walletStore.Store, sessions sessionStore.Store, backups backupStore.Store, opts ...Option) *Service {
	s := &Service{
		wallets:             wallets,
		sessions:            sessions,
		backups:             backups,
		sessionTTL:          15 * time.Minute,
		minPassphraseLength: keys.MinPassphraseLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BindDIDCreator wires the DID module in after both services exist.
func (s *Service) BindDIDCreator(creator DIDCreator) {
	s.didCreator = creator
}

// CreateWalletResult is what a caller gets back from CreateWallet: the
// wallet summary plus the primary DID minted for it.
type CreateWalletResult struct {
	Wallet     *models.Wallet
	PrimaryDID string
}

// CreateWallet provisions the per-user encrypted keystore and mints the
// wallet's primary DID. Fails with CodeConflict when the (tenant, user) pair
// already has a wallet.
func (s *Service) CreateWallet(ctx context.Context, tenantID id.TenantID, userID id.UserID, passphrase, didMethod string) (*CreateWalletResult, error) {
	kdf, err := keys.NewKDFParams()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to prepare key derivation")
	}
	symmetric, err := keys.DeriveKey(passphrase, kdf, s.minPassphraseLength)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	initial, err := keys.Generate(symmetric, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate initial key pair")
	}

	w, err := models.NewWallet(id.NewWalletID(), tenantID, userID, kdf, initial, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.wallets.Create(ctx, w); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "wallet already exists for user")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create wallet")
	}

	primaryDID := ""
	if s.didCreator != nil {
		primaryDID, err = s.didCreator.CreateDID(ctx, w.ID, didMethod)
		if err != nil {
			return nil, err
		}
		if err := s.wallets.SetPrimaryDID(ctx, w.ID, primaryDID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record primary DID")
		}
		w.PrimaryDID = primaryDID
	}

	s.logAudit(ctx, audit.Event{
		Action:   audit.EventWalletCreated,
		TenantID: tenantID,
		UserID:   userID,
		Subject:  w.ID.String(),
	})
	if s.metrics != nil {
		s.metrics.IncrementWalletCreated()
	}
	return &CreateWalletResult{Wallet: w, PrimaryDID: primaryDID}, nil
}

// GetWallet returns the wallet summary for an owner.
func (s *Service) GetWallet(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*models.Wallet, error) {
	w, err := s.wallets.FindByTenantUser(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "wallet not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load wallet")
	}
	return w, nil
}

// Session returns the owner's active unlock session, or nil when locked.
func (s *Service) Session(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*models.Session, error) {
	w, err := s.GetWallet(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.Get(ctx, w.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	if session.IsExpired(requestcontext.Now(ctx)) {
		return nil, nil
	}
	return session, nil
}

// requireSession enforces the fail-closed unlock gate: expiry is checked
// against the request clock, not just the store's TTL.
func (s *Service) requireSession(ctx context.Context, walletID id.WalletID) error {
	session, err := s.sessions.Get(ctx, walletID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeLocked, "wallet is locked")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	if session.IsExpired(requestcontext.Now(ctx)) {
		return dErrors.New(dErrors.CodeLocked, "wallet is locked")
	}
	return nil
}

// UnlockWallet verifies the passphrase by decrypting the active key and opens
// a time-bounded session. Callers get the same AuthenticationFailed whether
// the wallet is missing or the passphrase is wrong; the log distinguishes.
func (s *Service) UnlockWallet(ctx context.Context, tenantID id.TenantID, userID id.UserID, passphrase string) (*models.Session, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveUnlock(start)
		}
	}()

	w, err := s.wallets.FindByTenantUser(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, s.unlockFailed(ctx, tenantID, userID, "wallet not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load wallet")
	}
	if !w.IsActive() {
		return nil, s.unlockFailed(ctx, tenantID, userID, "wallet retired")
	}

	if _, _, err := s.openKeystore(w, passphrase); err != nil {
		return nil, s.unlockFailed(ctx, tenantID, userID, "passphrase check failed")
	}

	now := requestcontext.Now(ctx)
	session := &models.Session{
		ID:        id.NewSessionID(),
		TenantID:  tenantID,
		UserID:    userID,
		WalletID:  w.ID,
		Device:    requestcontext.Device(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Put(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open session")
	}

	s.logAudit(ctx, audit.Event{
		Action:   audit.EventWalletUnlocked,
		TenantID: tenantID,
		UserID:   userID,
		Subject:  w.ID.String(),
	})
	if s.metrics != nil {
		s.metrics.IncrementUnlockAttempt("success")
	}
	return session, nil
}

// LockWallet idempotently ends any active session for the owner's wallet.
func (s *Service) LockWallet(ctx context.Context, tenantID id.TenantID, userID id.UserID) error {
	w, err := s.GetWallet(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, w.ID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to end session")
	}
	s.logAudit(ctx, audit.Event{
		Action:   audit.EventWalletLocked,
		TenantID: tenantID,
		UserID:   userID,
		Subject:  w.ID.String(),
	})
	return nil
}

// RetireWallet soft-retires the wallet and ends any active session. Key
// material is retained so previously issued credentials stay verifiable;
// retired wallets can no longer be unlocked.
func (s *Service) RetireWallet(ctx context.Context, tenantID id.TenantID, userID id.UserID) error {
	w, err := s.GetWallet(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if err := s.wallets.Retire(ctx, w.ID); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return dErrors.New(dErrors.CodeConflict, "wallet is already retired")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to retire wallet")
	}
	if err := s.sessions.Delete(ctx, w.ID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to end session")
	}
	return nil
}

// WithSigningKey runs fn with the wallet's active private key unsealed. The
// wallet must hold an active unlock session (CodeLocked otherwise) and the
// passphrase is re-validated fail-closed before any key material is exposed.
// The private key never escapes the callback.
func (s *Service) WithSigningKey(ctx context.Context, tenantID id.TenantID, userID id.UserID, passphrase string, fn func(keyID string, privateKey ed25519.PrivateKey) error) error {
	w, err := s.wallets.FindByTenantUser(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeUnauthorized, "authentication failed")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load wallet")
	}

	if err := s.requireSession(ctx, w.ID); err != nil {
		return err
	}

	active, privateKey, err := s.openKeystore(w, passphrase)
	if err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication failed")
	}
	return fn(active.ID, privateKey)
}

// RotateKeypair verifies the passphrase, generates a replacement key pair and
// applies the rotation to the in-memory wallet, returning the prior keystore
// version for the compare-and-swap persist. It does NOT persist; the DID
// module commits document and keystore together via PersistKeystore.
func (s *Service) RotateKeypair(ctx context.Context, tenantID id.TenantID, userID id.UserID, currentPassphrase, newPassphrase string) (*models.Wallet, keys.KeyPair, int, error) {
	w, err := s.wallets.FindByTenantUser(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, keys.KeyPair{}, 0, dErrors.New(dErrors.CodeUnauthorized, "authentication failed")
		}
		return nil, keys.KeyPair{}, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load wallet")
	}

	if err := s.requireSession(ctx, w.ID); err != nil {
		return nil, keys.KeyPair{}, 0, err
	}

	symmetric, err := keys.DeriveKey(currentPassphrase, w.KDF, s.minPassphraseLength)
	if err != nil {
		return nil, keys.KeyPair{}, 0, err
	}
	existing, decrypted, err := s.unsealAll(w, symmetric)
	if err != nil {
		return nil, keys.KeyPair{}, 0, dErrors.New(dErrors.CodeUnauthorized, "authentication failed")
	}

	now := requestcontext.Now(ctx)
	expectedVersion := w.KeystoreVersion

	// An optional new passphrase re-seals every key, old ones included, so
	// superseded keys stay recoverable for verification of old signatures.
	sealKey := symmetric
	if newPassphrase != "" {
		newKDF, err := keys.NewKDFParams()
		if err != nil {
			return nil, keys.KeyPair{}, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to prepare key derivation")
		}
		sealKey, err = keys.DeriveKey(newPassphrase, newKDF, s.minPassphraseLength)
		if err != nil {
			return nil, keys.KeyPair{}, 0, err
		}
		for i := range existing {
			resealed, err := keys.EncryptPrivateKey(decrypted[i], sealKey)
			if err != nil {
				return nil, keys.KeyPair{}, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to re-encrypt keystore")
			}
			w.Keys[i].EncryptedPrivateKey = resealed
		}
		w.KDF = newKDF
	}

	replacement, err := keys.Generate(sealKey, now)
	if err != nil {
		return nil, keys.KeyPair{}, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate replacement key pair")
	}
	if err := w.ApplyRotation(replacement, now); err != nil {
		return nil, keys.KeyPair{}, 0, err
	}
	return w, replacement, expectedVersion, nil
}

// PersistKeystore commits a rotated keystore with optimistic concurrency.
// A stale expectedVersion means a concurrent rotation won; the caller must
// re-read and retry.
func (s *Service) PersistKeystore(ctx context.Context, w *models.Wallet, expectedVersion int) error {
	if err := s.wallets.UpdateKeystore(ctx, w, expectedVersion); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return dErrors.New(dErrors.CodeConflict, "concurrent keystore update, re-read and retry")
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "wallet not found")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist keystore")
		}
	}
	return nil
}

// openKeystore derives the symmetric key and proves the passphrase by
// unsealing the active private key.
func (s *Service) openKeystore(w *models.Wallet, passphrase string) (keys.KeyPair, ed25519.PrivateKey, error) {
	symmetric, err := keys.DeriveKey(passphrase, w.KDF, s.minPassphraseLength)
	if err != nil {
		return keys.KeyPair{}, nil, err
	}
	active, err := w.ActiveKey()
	if err != nil {
		return keys.KeyPair{}, nil, err
	}
	privateKey, err := keys.DecryptPrivateKey(active.EncryptedPrivateKey, symmetric)
	if err != nil {
		return keys.KeyPair{}, nil, err
	}
	return active, privateKey, nil
}

// unsealAll decrypts every key in the keystore, superseded ones included.
func (s *Service) unsealAll(w *models.Wallet, symmetric []byte) ([]keys.KeyPair, []ed25519.PrivateKey, error) {
	decrypted := make([]ed25519.PrivateKey, len(w.Keys))
	for i, kp := range w.Keys {
		privateKey, err := keys.DecryptPrivateKey(kp.EncryptedPrivateKey, symmetric)
		if err != nil {
			return nil, nil, err
		}
		decrypted[i] = privateKey
	}
	return w.Keys, decrypted, nil
}

func (s *Service) unlockFailed(ctx context.Context, tenantID id.TenantID, userID id.UserID, internalReason string) error {
	// Internal logs keep the real cause; the caller sees a uniform error so
	// wallet existence cannot be probed.
	if s.logger != nil {
		s.logger.WarnContext(ctx, "wallet unlock failed",
			"tenant_id", tenantID.String(),
			"user_id", userID.String(),
			"reason", internalReason,
		)
	}
	s.logAudit(ctx, audit.Event{
		Action:   audit.EventWalletUnlockFailed,
		TenantID: tenantID,
		UserID:   userID,
		Reason:   internalReason,
	})
	if s.metrics != nil {
		s.metrics.IncrementUnlockAttempt("failure")
	}
	return dErrors.New(dErrors.CodeUnauthorized, "authentication failed")
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	audit.LogAudit(ctx, s.logger, s.auditPublisher, event)
}
