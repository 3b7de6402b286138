// Package service assembles and verifies verifiable presentations: a holder
// bundles wallet-held credentials into an envelope, signs it together with a
// verifier challenge, and the verifier checks the envelope binding plus every
// embedded credential.
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
	credModels "custodia/internal/credential/models"
	"custodia/internal/credential/revocation"
	credService "custodia/internal/credential/service"
	didModels "custodia/internal/did/models"
	"custodia/internal/presentation/metrics"
	"custodia/internal/presentation/models"
	"custodia/internal/presentation/store/challenge"
	walletModels "custodia/internal/wallet/models"
	dErrors "custodia/pkg/domain-errors"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

const (
	defaultChallengeRetention = 10 * time.Minute

	// Embedded credentials are verified concurrently; each check may hit the
	// DID registry and the revocation store, so the fan-out stays bounded.
	maxParallelCredentialChecks = 4
)

// Resolver resolves the holder DID so the envelope proof can be checked
// against the holder's document, superseded methods included.
type Resolver interface {
	ResolveDID(ctx context.Context, did string) (*didModels.Document, error)
}

// Signer exposes the holder wallet's signing session.
type Signer interface {
	WithSigningKey(ctx context.Context, tenantID id.TenantID, userID id.UserID, passphrase string, fn func(keyID string, privateKey ed25519.PrivateKey) error) error
}

// WalletDirectory locates the holder's wallet to learn its primary DID.
type WalletDirectory interface {
	FindByTenantUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*walletModels.Wallet, error)
}

// CredentialDirectory loads the credentials a holder wants to present.
type CredentialDirectory interface {
	GetCredential(ctx context.Context, tenantID id.TenantID, credentialID id.CredentialID) (*credModels.Credential, error)
}

// CredentialVerifier runs the full credential pipeline for each embedded
// credential. Implemented by the credential service.
type CredentialVerifier interface {
	VerifyCredential(ctx context.Context, c *credModels.Credential, opts credService.VerifyOptions) (credModels.VerificationResult, error)
}

// RevocationSweeper batch-checks the revocation registry so a presentation
// carrying a revoked credential fails before the per-credential fan-out.
type RevocationSweeper interface {
	RevokedSet(ctx context.Context, tenantID id.TenantID, credentialIDs []id.CredentialID) (map[id.CredentialID]revocation.Entry, error)
}

// Service creates and verifies presentation envelopes. Presentations are
// ephemeral: nothing is persisted beyond the consumed challenge and the
// audit trail.
type Service struct {
	resolver    Resolver
	signer      Signer
	wallets     WalletDirectory
	credentials CredentialDirectory
	verifier    CredentialVerifier
	revocations RevocationSweeper
	challenges  challenge.Store

	challengeRetention time.Duration

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

// WithChallengeRetention sets how long a consumed challenge stays blocked.
// The window only needs to outlive the longest plausible gap between
// challenge issuance and verification.
func WithChallengeRetention(d time.Duration) Option {
	return func(s *Service) {
		s.challengeRetention = d
	}
}

func New(resolver Resolver, signer Signer, wallets WalletDirectory, credentials CredentialDirectory, verifier CredentialVerifier, revocations RevocationSweeper, challenges challenge.Store, opts ...Option) *Service {
	s := &Service{
		resolver:           resolver,
		signer:             signer,
		wallets:            wallets,
		credentials:        credentials,
		verifier:           verifier,
		revocations:        revocations,
		challenges:         challenges,
		challengeRetention: defaultChallengeRetention,
		logger:             slog.Default(),
		tracer:             otel.Tracer("custodia/presentation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest carries the inputs for presentation assembly. When Challenge
// is empty the service generates one and returns it on the envelope so the
// verifier can bind its check to it.
type CreateRequest struct {
	TenantID         id.TenantID
	UserID           id.UserID
	HolderPassphrase string
	CredentialIDs    []id.CredentialID
	Challenge        string
	Domain           string
}

// CreatePresentation loads the requested credentials, wraps them in an
// envelope bound to the challenge and domain, and signs the whole envelope
// with the holder's active key.
func (s *Service) CreatePresentation(ctx context.Context, req CreateRequest) (*models.Presentation, error) {
	ctx, span := s.tracer.Start(ctx, "presentation.Create")
	defer span.End()

	if len(req.CredentialIDs) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "a presentation needs at least one credential")
	}

	w, err := s.wallets.FindByTenantUser(ctx, req.TenantID, req.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "holder wallet not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load holder wallet")
	}
	if w.PrimaryDID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "holder wallet has no DID")
	}

	credentials := make([]credModels.Credential, 0, len(req.CredentialIDs))
	for _, credentialID := range req.CredentialIDs {
		c, err := s.credentials.GetCredential(ctx, req.TenantID, credentialID)
		if err != nil {
			return nil, err
		}
		credentials = append(credentials, *c)
	}

	chal := req.Challenge
	if chal == "" {
		chal, err = models.GenerateChallenge()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate challenge")
		}
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
	p, err := models.NewPresentation(req.TenantID, w.PrimaryDID, credentials, chal, req.Domain, now)
	if err != nil {
		return nil, err
	}

	err = s.signer.WithSigningKey(ctx, req.TenantID, req.UserID, req.HolderPassphrase, func(keyID string, privateKey ed25519.PrivateKey) error {
		if keyID != vm.KeyID {
			return dErrors.New(dErrors.CodeInvariantViolation, "active key does not match DID document")
		}
		proof, err := models.SignPresentation(p, vm.ID, privateKey, now)
		if err != nil {
			return err
		}
		p.Proof = proof
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:   audit.EventPresentationCreated,
		TenantID: req.TenantID,
		UserID:   req.UserID,
		Subject:  p.ID.String(),
	})
	if s.metrics != nil {
		s.metrics.IncrementPresentationCreated()
	}
	return p, nil
}
