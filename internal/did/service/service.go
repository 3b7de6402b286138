// Package service implements DID lifecycle: creation bound to wallet keys,
// method-specific resolution, and the key-rotation protocol.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"custodia/internal/audit"
	"custodia/internal/did/metrics"
	"custodia/internal/did/models"
	"custodia/internal/did/resolver"
	"custodia/internal/did/store"
	"custodia/internal/keys"
	walletModels "custodia/internal/wallet/models"
	dErrors "custodia/pkg/domain-errors"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/platform/tx"
	"custodia/pkg/requestcontext"
)

// WalletDirectory is the read side of the wallet module this service needs:
// key references only, never key material.
type WalletDirectory interface {
	FindByID(ctx context.Context, walletID id.WalletID) (*walletModels.Wallet, error)
	FindByTenantUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*walletModels.Wallet, error)
}

// KeyRotator is implemented by the wallet service. RotateKeypair mutates the
// keystore in memory after re-validating the passphrase; PersistKeystore
// commits it with a version compare-and-swap. Both run inside the rotation
// transaction so document and keystore succeed or fail together.
type KeyRotator interface {
	RotateKeypair(ctx context.Context, tenantID id.TenantID, userID id.UserID, currentPassphrase, newPassphrase string) (*walletModels.Wallet, keys.KeyPair, int, error)
	PersistKeystore(ctx context.Context, w *walletModels.Wallet, expectedVersion int) error
}

// Service orchestrates DID documents across the registry and resolvers.
type Service struct {
	registry  store.Store
	wallets   WalletDirectory
	rotator   KeyRotator
	runner    tx.Runner
	resolvers map[models.Method]resolver.Resolver

	webDomain string

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

// WithWebDomain sets the domain did:web identifiers are minted under.
func WithWebDomain(domain string) Option {
	return func(s *Service) {
		s.webDomain = domain
	}
}

// WithResolver overrides the resolver for one method. Used to plug in the
// delegated did:ethr resolver when one is configured.
func WithResolver(method models.Method, r resolver.Resolver) Option {
	return func(s *Service) {
		s.resolvers[method] = r
	}
}

// New constructs a Service. Local methods resolve against the registry by
// default; did:ethr fails unavailable until a delegate is configured.
func New(registry store.Store, wallets WalletDirectory, rotator KeyRotator, runner tx.Runner, opts ...Option) *Service {
	local := resolver.NewRegistry(registry)
	s := &Service{
		registry: registry,
		wallets:  wallets,
		rotator:  rotator,
		runner:   runner,
		resolvers: map[models.Method]resolver.Resolver{
			models.MethodKey:  resolver.NewKey(local),
			models.MethodWeb:  local,
			models.MethodEthr: resolver.Unavailable{Method: models.MethodEthr},
		},
		tracer: otel.Tracer("custodia/did"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDID mints a DID for the wallet's active key and registers its
// document. One DID per (wallet, method).
func (s *Service) CreateDID(ctx context.Context, walletID id.WalletID, method string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "did.CreateDID")
	defer span.End()

	parsed, err := models.ParseMethod(method)
	if err != nil {
		return "", err
	}

	w, err := s.wallets.FindByID(ctx, walletID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotFound, "wallet not found")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load wallet")
	}
	active, err := w.ActiveKey()
	if err != nil {
		return "", err
	}

	did, err := models.DIDForMethod(parsed, active.PublicKey, s.webDomain, walletID)
	if err != nil {
		return "", err
	}

	now := requestcontext.Now(ctx)
	vm := models.NewVerificationMethod(did, active.ID, active.PublicKey, now)
	doc, err := models.NewDocument(did, parsed, walletID, vm, now)
	if err != nil {
		return "", err
	}

	if err := s.registry.Create(ctx, doc); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return "", dErrors.New(dErrors.CodeConflict, "DID already registered for wallet and method")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to register DID")
	}

	audit.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Action:   audit.EventDIDCreated,
		TenantID: w.TenantID,
		UserID:   w.UserID,
		Subject:  did,
	})
	if s.metrics != nil {
		s.metrics.IncrementDIDCreated(method)
	}
	return did, nil
}

// ListDIDs returns the documents controlled by the owner's wallet.
func (s *Service) ListDIDs(ctx context.Context, tenantID id.TenantID, userID id.UserID) ([]models.Document, error) {
	w, err := s.wallets.FindByTenantUser(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "wallet not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load wallet")
	}
	docs, err := s.registry.ListByWallet(ctx, w.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list DIDs")
	}
	return docs, nil
}

// ResolveDID dispatches to the method's resolver strategy.
func (s *Service) ResolveDID(ctx context.Context, did string) (*models.Document, error) {
	ctx, span := s.tracer.Start(ctx, "did.ResolveDID")
	defer span.End()
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveResolve(start)
		}
	}()

	method, err := models.MethodOf(did)
	if err != nil {
		return nil, err
	}
	r, ok := s.resolvers[method]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeUnavailable, "no resolver configured for did:%s", method)
	}
	doc, err := r.Resolve(ctx, did)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return doc, nil
}
