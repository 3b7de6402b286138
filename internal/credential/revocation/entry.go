// Package revocation is the append-only revocation registry. Revocation is
// terminal and recorded independently of the credential record so a
// verifier can check status without trusting the presented credential.
package revocation

import (
	"time"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Entry is one revocation record. A credential has at most one entry and
// entries are never removed.
type Entry struct {
	CredentialID id.CredentialID `json:"credential_id"`
	TenantID     id.TenantID     `json:"tenant_id"`
	Reason       string          `json:"reason"`
	RevokedBy    string          `json:"revoked_by"`
	RevokedAt    time.Time       `json:"revoked_at"`
}

// NewEntry validates and builds a revocation record.
func NewEntry(tenantID id.TenantID, credentialID id.CredentialID, reason, revokedBy string, now time.Time) (Entry, error) {
	if reason == "" {
		return Entry{}, dErrors.New(dErrors.CodeValidation, "revocation reason is required")
	}
	if revokedBy == "" {
		return Entry{}, dErrors.New(dErrors.CodeValidation, "revoked_by is required")
	}
	return Entry{
		CredentialID: credentialID,
		TenantID:     tenantID,
		Reason:       reason,
		RevokedBy:    revokedBy,
		RevokedAt:    now,
	}, nil
}
