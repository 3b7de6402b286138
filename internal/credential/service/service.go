// Package service implements credential issuance and verification on top of
// the wallet's signing session and the DID registry.
package service

import (
	"context"
	"crypto/ed25519"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"custodia/internal/audit"
	"custodia/internal/credential/metrics"
	"custodia/internal/credential/models"
	"custodia/internal/credential/revocation"
	"custodia/internal/credential/schema"
	"custodia/internal/credential/store"
	didModels "custodia/internal/did/models"
	walletModels "custodia/internal/wallet/models"
	dErrors "custodia/pkg/domain-errors"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Resolver resolves issuer DIDs during verification. Implemented by the DID
// service; verification needs the full document so superseded verification
// methods stay reachable.
type Resolver interface {
	ResolveDID(ctx context.Context, did string) (*didModels.Document, error)
}

// Signer exposes the wallet's signing session: the callback receives the
// active private key only while the wallet is unlocked and the passphrase
// re-validates.
type Signer interface {
	WithSigningKey(ctx context.Context, tenantID id.TenantID, userID id.UserID, passphrase string, fn func(keyID string, privateKey ed25519.PrivateKey) error) error
}

// WalletDirectory locates the issuer's wallet to learn its primary DID.
type WalletDirectory interface {
	FindByTenantUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*walletModels.Wallet, error)
}

// Service issues, lists, verifies and revokes credentials.
type Service struct {
	credentials store.Store
	registry    *revocation.Registry
	resolver    Resolver
	signer      Signer
	wallets     WalletDirectory
	schemas     *schema.Registry

	trustedIssuers []string

	logger         *slog.Logger
	auditPublisher audit.Publisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
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

// WithTrustedIssuers sets the default issuer allow-list applied when a
// verification request does not supply its own.
func WithTrustedIssuers(issuers []string) Option {
	return func(s *Service) {
		s.trustedIssuers = issuers
	}
}

func New(credentials store.Store, registry *revocation.Registry, resolver Resolver, signer Signer, wallets WalletDirectory, schemas *schema.Registry, opts ...Option) *Service {
	s := &Service{
		credentials: credentials,
		registry:    registry,
		resolver:    resolver,
		signer:      signer,
		wallets:     wallets,
		schemas:     schemas,
		logger:      slog.Default(),
		tracer:      otel.Tracer("custodia/credential"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueRequest carries the inputs for credential issuance. The issuer is
// identified by wallet ownership; the issuer DID is the wallet's primary DID.
type IssueRequest struct {
	TenantID         id.TenantID
	UserID           id.UserID
	IssuerPassphrase string
	CredentialType   string
	SubjectDID       string
	Claims           map[string]any
	ExpiresAt        *time.Time
}

// IssueCredential validates the claims against the registered schema, signs
// the credential body with the issuer's currently active key, records the
// exact verification method in the proof, and persists the result. Signing
// never mutates DID state.
func (s *Service) IssueCredential(ctx context.Context, req IssueRequest) (*models.Credential, error) {
	ctx, span := s.tracer.Start(ctx, "credential.Issue")
	defer span.End()

	if err := s.schemas.Validate(req.CredentialType, req.Claims); err != nil {
		return nil, err
	}

	w, err := s.wallets.FindByTenantUser(ctx, req.TenantID, req.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "issuer wallet not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load issuer wallet")
	}
	if w.PrimaryDID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "issuer wallet has no DID")
	}

	doc, err := s.resolver.ResolveDID(ctx, w.PrimaryDID)
	if err != nil {
		return nil, err
	}
	vm, err := doc.ActiveVerificationMethod()
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	c, err := models.NewCredential(req.TenantID, req.CredentialType, w.PrimaryDID, req.SubjectDID, req.Claims, req.ExpiresAt, now)
	if err != nil {
		return nil, err
	}

	err = s.signer.WithSigningKey(ctx, req.TenantID, req.UserID, req.IssuerPassphrase, func(keyID string, privateKey ed25519.PrivateKey) error {
		if keyID != vm.KeyID {
			// The DID document and keystore drifted; refuse rather than
			// sign with a key the document does not advertise as active.
			return dErrors.New(dErrors.CodeInvariantViolation, "active key does not match DID document")
		}
		proof, err := models.SignCredential(c, vm.ID, privateKey, now)
		if err != nil {
			return err
		}
		c.Proof = proof
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.credentials.Create(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist credential")
	}

	audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:   audit.EventCredentialIssued,
		TenantID: req.TenantID,
		UserID:   req.UserID,
		Subject:  c.ID.String(),
		Reason:   req.CredentialType,
	})
	if s.metrics != nil {
		s.metrics.IncrementCredentialIssued(req.CredentialType)
	}
	return c, nil
}

// GetCredential returns one tenant-scoped credential.
func (s *Service) GetCredential(ctx context.Context, tenantID id.TenantID, credentialID id.CredentialID) (*models.Credential, error) {
	c, err := s.credentials.FindByID(ctx, tenantID, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	return c, nil
}

// Filter narrows a credential listing. Exactly one side should be set.
type Filter struct {
	SubjectDID string
	IssuerDID  string
}

// ListCredentials returns the tenant's credentials about a subject or from
// an issuer, oldest first.
func (s *Service) ListCredentials(ctx context.Context, tenantID id.TenantID, filter Filter) ([]models.Credential, error) {
	switch {
	case filter.SubjectDID != "" && filter.IssuerDID != "":
		return nil, dErrors.New(dErrors.CodeValidation, "filter by subject or issuer, not both")
	case filter.SubjectDID != "":
		out, err := s.credentials.ListBySubject(ctx, tenantID, filter.SubjectDID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list credentials")
		}
		return out, nil
	case filter.IssuerDID != "":
		out, err := s.credentials.ListByIssuer(ctx, tenantID, filter.IssuerDID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list credentials")
		}
		return out, nil
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "subject_did or issuer_did is required")
	}
}

// RevocationStatus reports whether a credential has been revoked. A
// credential unknown to the registry reads as not revoked.
func (s *Service) RevocationStatus(ctx context.Context, tenantID id.TenantID, credentialID id.CredentialID) (bool, error) {
	return s.registry.IsRevoked(ctx, tenantID, credentialID)
}

// RevokeCredential appends a revocation entry; terminal and idempotence-
// violating duplicates fail with CodeConflict.
func (s *Service) RevokeCredential(ctx context.Context, tenantID id.TenantID, credentialID id.CredentialID, reason, revokedBy string) (revocation.Entry, error) {
	entry, err := s.registry.Revoke(ctx, tenantID, credentialID, reason, revokedBy)
	if err != nil {
		return revocation.Entry{}, err
	}
	if s.metrics != nil {
		s.metrics.IncrementCredentialRevoked()
	}
	return entry, nil
}
