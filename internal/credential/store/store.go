// Package store persists issued credentials. All lookups are tenant-scoped;
// a credential issued by another tenant is indistinguishable from a missing
// one.
package store

import (
	"context"

	"custodia/internal/credential/models"
	id "custodia/pkg/domain"
)

// Store is the credential repository contract.
type Store interface {
	// Create persists a newly issued credential. Returns
	// sentinel.ErrConflict when the ID already exists.
	Create(ctx context.Context, c *models.Credential) error
	// FindByID returns the credential or sentinel.ErrNotFound, including
	// when it exists under a different tenant.
	FindByID(ctx context.Context, tenantID id.TenantID, credentialID id.CredentialID) (*models.Credential, error)
	// ListBySubject returns the tenant's credentials about a subject DID,
	// oldest first.
	ListBySubject(ctx context.Context, tenantID id.TenantID, subjectDID string) ([]models.Credential, error)
	// ListByIssuer returns the tenant's credentials issued by a DID,
	// oldest first.
	ListByIssuer(ctx context.Context, tenantID id.TenantID, issuerDID string) ([]models.Credential, error)
	// MarkRevoked flips the credential status to revoked. Returns
	// sentinel.ErrNotFound when the credential does not exist in the
	// tenant scope.
	MarkRevoked(ctx context.Context, tenantID id.TenantID, credentialID id.CredentialID) error
}
