// Package models holds the verifiable credential domain model: the signed
// credential itself, its proof, and the structured verification outcome.
package models

import (
	"time"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Status is the credential lifecycle state. Revocation is terminal.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// ProofType marks the proof format carried on credentials and presentations.
const ProofType = "JsonWebSignature2020"

// Proof is the detached signature over a credential or presentation body.
// JWS is a compact EdDSA JWS whose payload binds the signed fields;
// VerificationMethod records the exact key used so verification works
// against superseded keys after rotation.
type Proof struct {
	Type               string    `json:"type"`
	Created            time.Time `json:"created"`
	VerificationMethod string    `json:"verification_method"`
	JWS                string    `json:"jws"`
}

// Credential is a signed, typed claim issued by one DID about a subject.
// It is never mutated after issuance except for the terminal status flip.
type Credential struct {
	ID         id.CredentialID `json:"id"`
	TenantID   id.TenantID     `json:"tenant_id"`
	Type       string          `json:"type"`
	IssuerDID  string          `json:"issuer_did"`
	SubjectDID string          `json:"subject_did"`
	Claims     map[string]any  `json:"claims"`
	IssuedAt   time.Time       `json:"issued_at"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
	Proof      Proof           `json:"proof"`
	Status     Status          `json:"status"`
}

// NewCredential builds an unsigned credential body. The proof is attached
// by the issuer after signing.
func NewCredential(tenantID id.TenantID, credentialType, issuerDID, subjectDID string, claims map[string]any, expiresAt *time.Time, now time.Time) (*Credential, error) {
	if credentialType == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "credential type is required")
	}
	if issuerDID == "" || subjectDID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "issuer and subject DIDs are required")
	}
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "expiration must be in the future")
	}
	return &Credential{
		ID:         id.NewCredentialID(),
		TenantID:   tenantID,
		Type:       credentialType,
		IssuerDID:  issuerDID,
		SubjectDID: subjectDID,
		Claims:     claims,
		IssuedAt:   now,
		ExpiresAt:  expiresAt,
		Status:     StatusActive,
	}, nil
}

// IsExpired reports whether the credential's expiration has passed.
// Credentials without an expiration never expire.
func (c *Credential) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// Clone returns a deep copy so stores never leak shared claim maps.
func (c *Credential) Clone() *Credential {
	out := *c
	if c.ExpiresAt != nil {
		t := *c.ExpiresAt
		out.ExpiresAt = &t
	}
	if c.Claims != nil {
		out.Claims = make(map[string]any, len(c.Claims))
		for k, v := range c.Claims {
			out.Claims[k] = v
		}
	}
	return &out
}
