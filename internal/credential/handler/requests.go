package handler

import (
	"time"

	dErrors "custodia/pkg/domain-errors"
)

// IssueCredentialRequest is the HTTP body for POST .../credentials.
type IssueCredentialRequest struct {
	Passphrase     string         `json:"passphrase"`
	CredentialType string         `json:"credential_type"`
	SubjectDID     string         `json:"subject_did"`
	Claims         map[string]any `json:"claims"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *IssueCredentialRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Passphrase == "" {
		return dErrors.New(dErrors.CodeValidation, "passphrase is required")
	}
	if r.CredentialType == "" {
		return dErrors.New(dErrors.CodeValidation, "credential_type is required")
	}
	if r.SubjectDID == "" {
		return dErrors.New(dErrors.CodeValidation, "subject_did is required")
	}
	return nil
}

// RevokeCredentialRequest is the HTTP body for POST .../revoke.
type RevokeCredentialRequest struct {
	Reason    string `json:"reason"`
	RevokedBy string `json:"revoked_by"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RevokeCredentialRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if r.RevokedBy == "" {
		return dErrors.New(dErrors.CodeValidation, "revoked_by is required")
	}
	return nil
}

// VerifyCredentialRequest is the HTTP body for POST .../credentials/verify.
// The credential travels in full so external credentials can be verified
// without first storing them.
type VerifyCredentialRequest struct {
	Credential     CredentialPayload `json:"credential"`
	CheckStatus    bool              `json:"check_status"`
	CheckSchema    bool              `json:"check_schema"`
	TrustedIssuers []string          `json:"trusted_issuers,omitempty"`
}

// CredentialPayload is the wire shape of a presented credential.
type CredentialPayload struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	IssuerDID  string         `json:"issuer_did"`
	SubjectDID string         `json:"subject_did"`
	Claims     map[string]any `json:"claims"`
	IssuedAt   time.Time      `json:"issued_at"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
	Proof      ProofPayload   `json:"proof"`
}

// ProofPayload is the wire shape of a credential proof.
type ProofPayload struct {
	Type               string    `json:"type"`
	Created            time.Time `json:"created"`
	VerificationMethod string    `json:"verification_method"`
	JWS                string    `json:"jws"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *VerifyCredentialRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	c := r.Credential
	if c.ID == "" || c.IssuerDID == "" || c.SubjectDID == "" {
		return dErrors.New(dErrors.CodeValidation, "credential id, issuer_did and subject_did are required")
	}
	if c.Proof.JWS == "" || c.Proof.VerificationMethod == "" {
		return dErrors.New(dErrors.CodeValidation, "credential proof is required")
	}
	return nil
}
