package revocation

import (
	"context"
	"errors"
	"log/slog"

	"custodia/internal/audit"
	"custodia/internal/credential/models"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

//go:generate mockgen -source=registry.go -destination=mocks/mocks.go -package=mocks

// CredentialDirectory is the slice of the credential store the registry
// needs: existence checks scoped to the tenant, and the terminal status
// flip once an entry is recorded.
type CredentialDirectory interface {
	FindByID(ctx context.Context, tenantID id.TenantID, credentialID id.CredentialID) (*models.Credential, error)
	MarkRevoked(ctx context.Context, tenantID id.TenantID, credentialID id.CredentialID) error
}

// Registry coordinates revocation: append-only entries plus the credential
// status flip. DiscloseReasons controls whether verifiers see the stored
// reason text or only the fact of revocation.
type Registry struct {
	entries         Store
	credentials     CredentialDirectory
	discloseReasons bool
	logger          *slog.Logger
	auditPublisher  audit.Publisher
}

// RegistryOption configures optional registry dependencies.
type RegistryOption func(*Registry)

func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

func WithRegistryAuditPublisher(p audit.Publisher) RegistryOption {
	return func(r *Registry) { r.auditPublisher = p }
}

// WithReasonDisclosure makes revocation reasons visible to verifiers.
// Default is issuer-only: verifiers see just the revoked outcome.
func WithReasonDisclosure(disclose bool) RegistryOption {
	return func(r *Registry) { r.discloseReasons = disclose }
}

func NewRegistry(entries Store, credentials CredentialDirectory, opts ...RegistryOption) *Registry {
	r := &Registry{
		entries:     entries,
		credentials: credentials,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Revoke appends the revocation entry and flips the credential status.
// Fails CodeNotFound when the credential was never issued in this tenant
// scope and CodeConflict when it is already revoked.
func (r *Registry) Revoke(ctx context.Context, tenantID id.TenantID, credentialID id.CredentialID, reason, revokedBy string) (Entry, error) {
	if _, err := r.credentials.FindByID(ctx, tenantID, credentialID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Entry{}, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}

	entry, err := NewEntry(tenantID, credentialID, reason, revokedBy, requestcontext.Now(ctx))
	if err != nil {
		return Entry{}, err
	}
	if err := r.entries.Append(ctx, entry); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return Entry{}, dErrors.New(dErrors.CodeConflict, "credential is already revoked")
		}
		return Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record revocation")
	}
	if err := r.credentials.MarkRevoked(ctx, tenantID, credentialID); err != nil {
		return Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update credential status")
	}

	audit.LogAudit(ctx, r.logger, r.auditPublisher, audit.Event{
		Action:   audit.EventCredentialRevoked,
		TenantID: tenantID,
		Subject:  credentialID.String(),
		Reason:   reason,
	})
	return entry, nil
}

// IsRevoked is the pure status lookup every verification consults.
func (r *Registry) IsRevoked(ctx context.Context, tenantID id.TenantID, credentialID id.CredentialID) (bool, error) {
	_, err := r.entries.Find(ctx, tenantID, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check revocation status")
	}
	return true, nil
}

// Entry returns the stored revocation record, issuer-facing.
func (r *Registry) Entry(ctx context.Context, tenantID id.TenantID, credentialID id.CredentialID) (Entry, error) {
	e, err := r.entries.Find(ctx, tenantID, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Entry{}, dErrors.New(dErrors.CodeNotFound, "credential is not revoked")
		}
		return Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load revocation entry")
	}
	return e, nil
}

// DisclosedReason returns the reason text a verifier is allowed to see.
func (r *Registry) DisclosedReason(e Entry) string {
	if r.discloseReasons {
		return e.Reason
	}
	return ""
}

// RevokedSet batch-checks the registry for presentation verification.
func (r *Registry) RevokedSet(ctx context.Context, tenantID id.TenantID, credentialIDs []id.CredentialID) (map[id.CredentialID]Entry, error) {
	set, err := r.entries.RevokedSet(ctx, tenantID, credentialIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sweep revocation registry")
	}
	return set, nil
}
