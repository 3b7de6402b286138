package handler

import (
	"time"

	credModels "custodia/internal/credential/models"
	"custodia/internal/presentation/models"
)

// PresentationResponse is the HTTP shape of a signed presentation.
type PresentationResponse struct {
	ID          string              `json:"id"`
	HolderDID   string              `json:"holder_did"`
	Credentials []CredentialPayload `json:"credentials"`
	Challenge   string              `json:"challenge"`
	Domain      string              `json:"domain,omitempty"`
	Proof       ProofPayload        `json:"proof"`
	CreatedAt   time.Time           `json:"created_at"`
}

// FromPresentation converts a presentation to its HTTP response.
func FromPresentation(p *models.Presentation) *PresentationResponse {
	credentials := make([]CredentialPayload, 0, len(p.Credentials))
	for i := range p.Credentials {
		credentials = append(credentials, fromCredential(&p.Credentials[i]))
	}
	return &PresentationResponse{
		ID:          p.ID.String(),
		HolderDID:   p.HolderDID,
		Credentials: credentials,
		Challenge:   p.Challenge,
		Domain:      p.Domain,
		Proof:       fromProof(p.Proof),
		CreatedAt:   p.CreatedAt,
	}
}

// VerificationResponse is the HTTP shape of a verification outcome.
type VerificationResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// FromVerification converts a verification result to its HTTP response.
func FromVerification(result credModels.VerificationResult) VerificationResponse {
	return VerificationResponse{
		Valid:  result.Valid,
		Reason: string(result.Reason),
		Detail: result.Detail,
	}
}

func fromCredential(c *credModels.Credential) CredentialPayload {
	return CredentialPayload{
		ID:         c.ID.String(),
		Type:       c.Type,
		IssuerDID:  c.IssuerDID,
		SubjectDID: c.SubjectDID,
		Claims:     c.Claims,
		IssuedAt:   c.IssuedAt,
		ExpiresAt:  c.ExpiresAt,
		Proof:      fromProof(c.Proof),
	}
}

func fromProof(p credModels.Proof) ProofPayload {
	return ProofPayload{
		Type:               p.Type,
		Created:            p.Created,
		VerificationMethod: p.VerificationMethod,
		JWS:                p.JWS,
	}
}
