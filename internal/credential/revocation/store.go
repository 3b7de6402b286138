package revocation

import (
	"context"

	id "custodia/pkg/domain"
)

// Store is the revocation record repository contract.
type Store interface {
	// Append records a revocation. Returns sentinel.ErrAlreadyUsed when
	// the credential already has an entry; entries are never replaced.
	Append(ctx context.Context, e Entry) error
	// Find returns the entry for a credential or sentinel.ErrNotFound.
	Find(ctx context.Context, tenantID id.TenantID, credentialID id.CredentialID) (Entry, error)
	// RevokedSet returns the entries present for the given credential IDs,
	// keyed by credential ID. Missing IDs are simply absent.
	RevokedSet(ctx context.Context, tenantID id.TenantID, credentialIDs []id.CredentialID) (map[id.CredentialID]Entry, error)
}
