package handler

import (
	"time"

	"custodia/internal/credential/models"
	"custodia/internal/credential/revocation"
)

// CredentialResponse is the HTTP shape of an issued credential.
type CredentialResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	IssuerDID  string         `json:"issuer_did"`
	SubjectDID string         `json:"subject_did"`
	Claims     map[string]any `json:"claims"`
	IssuedAt   time.Time      `json:"issued_at"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
	Proof      ProofPayload   `json:"proof"`
	Status     string         `json:"status"`
}

// FromCredential converts a domain credential to its HTTP response.
func FromCredential(c *models.Credential) *CredentialResponse {
	return &CredentialResponse{
		ID:         c.ID.String(),
		Type:       c.Type,
		IssuerDID:  c.IssuerDID,
		SubjectDID: c.SubjectDID,
		Claims:     c.Claims,
		IssuedAt:   c.IssuedAt,
		ExpiresAt:  c.ExpiresAt,
		Proof: ProofPayload{
			Type:               c.Proof.Type,
			Created:            c.Proof.Created,
			VerificationMethod: c.Proof.VerificationMethod,
			JWS:                c.Proof.JWS,
		},
		Status: string(c.Status),
	}
}

// VerificationResponse is the HTTP shape of a verification outcome.
type VerificationResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// FromVerification converts a verification result to its HTTP response.
func FromVerification(result models.VerificationResult) VerificationResponse {
	return VerificationResponse{
		Valid:  result.Valid,
		Reason: string(result.Reason),
		Detail: result.Detail,
	}
}

// StatusResponse reports a credential's revocation status.
type StatusResponse struct {
	CredentialID string `json:"credential_id"`
	Revoked      bool   `json:"revoked"`
}

// RevocationResponse is the HTTP shape of a revocation entry.
type RevocationResponse struct {
	CredentialID string    `json:"credential_id"`
	Reason       string    `json:"reason"`
	RevokedBy    string    `json:"revoked_by"`
	RevokedAt    time.Time `json:"revoked_at"`
}

// FromRevocation converts a revocation entry to its HTTP response.
func FromRevocation(e revocation.Entry) RevocationResponse {
	return RevocationResponse{
		CredentialID: e.CredentialID.String(),
		Reason:       e.Reason,
		RevokedBy:    e.RevokedBy,
		RevokedAt:    e.RevokedAt,
	}
}
