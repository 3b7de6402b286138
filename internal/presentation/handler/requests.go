package handler

import (
	"time"

	dErrors "custodia/pkg/domain-errors"
)

// CreatePresentationRequest is the HTTP body for POST .../presentations.
type CreatePresentationRequest struct {
	Passphrase    string   `json:"passphrase"`
	CredentialIDs []string `json:"credential_ids"`
	Challenge     string   `json:"challenge,omitempty"`
	Domain        string   `json:"domain,omitempty"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreatePresentationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Passphrase == "" {
		return dErrors.New(dErrors.CodeValidation, "passphrase is required")
	}
	if len(r.CredentialIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "credential_ids is required")
	}
	return nil
}

// VerifyPresentationRequest is the HTTP body for POST .../presentations/verify.
// The presentation travels in full; Challenge and Domain carry what this
// verifier expects the envelope to be bound to.
type VerifyPresentationRequest struct {
	Presentation   PresentationPayload `json:"presentation"`
	Challenge      string              `json:"challenge,omitempty"`
	Domain         string              `json:"domain,omitempty"`
	TrustedIssuers []string            `json:"trusted_issuers,omitempty"`
}

// PresentationPayload is the wire shape of a presentation envelope.
type PresentationPayload struct {
	ID          string              `json:"id"`
	HolderDID   string              `json:"holder_did"`
	Credentials []CredentialPayload `json:"credentials"`
	Challenge   string              `json:"challenge"`
	Domain      string              `json:"domain,omitempty"`
	Proof       ProofPayload        `json:"proof"`
	CreatedAt   time.Time           `json:"created_at"`
}

// CredentialPayload is the wire shape of an embedded credential.
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

// ProofPayload is the wire shape of a JWS proof.
type ProofPayload struct {
	Type               string    `json:"type"`
	Created            time.Time `json:"created"`
	VerificationMethod string    `json:"verification_method"`
	JWS                string    `json:"jws"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *VerifyPresentationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	p := r.Presentation
	if p.ID == "" || p.HolderDID == "" || p.Challenge == "" {
		return dErrors.New(dErrors.CodeValidation, "presentation id, holder_did and challenge are required")
	}
	if len(p.Credentials) == 0 {
		return dErrors.New(dErrors.CodeValidation, "presentation needs at least one credential")
	}
	if p.Proof.JWS == "" || p.Proof.VerificationMethod == "" {
		return dErrors.New(dErrors.CodeValidation, "presentation proof is required")
	}
	for _, c := range p.Credentials {
		if c.ID == "" || c.IssuerDID == "" || c.SubjectDID == "" {
			return dErrors.New(dErrors.CodeValidation, "embedded credential id, issuer_did and subject_did are required")
		}
		if c.Proof.JWS == "" || c.Proof.VerificationMethod == "" {
			return dErrors.New(dErrors.CodeValidation, "embedded credential proof is required")
		}
	}
	return nil
}
