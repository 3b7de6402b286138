// Package models holds the verifiable presentation envelope: a holder-signed
// bundle of credentials bound to a verifier's challenge and domain.
package models

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	credModels "custodia/internal/credential/models"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Presentation is a holder-assembled bundle of credentials. The proof signs
// the entire envelope including challenge and domain, so a captured
// presentation cannot be replayed against a different challenge.
type Presentation struct {
	ID          id.PresentationID       `json:"id"`
	TenantID    id.TenantID             `json:"tenant_id"`
	HolderDID   string                  `json:"holder_did"`
	Credentials []credModels.Credential `json:"credentials"`
	Challenge   string                  `json:"challenge"`
	Domain      string                  `json:"domain,omitempty"`
	Proof       credModels.Proof        `json:"proof"`
	CreatedAt   time.Time               `json:"created_at"`
}

// NewPresentation builds an unsigned presentation envelope.
func NewPresentation(tenantID id.TenantID, holderDID string, credentials []credModels.Credential, challenge, domain string, now time.Time) (*Presentation, error) {
	if holderDID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "holder DID is required")
	}
	if len(credentials) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "a presentation needs at least one credential")
	}
	if challenge == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "challenge is required")
	}
	return &Presentation{
		ID:          id.NewPresentationID(),
		TenantID:    tenantID,
		HolderDID:   holderDID,
		Credentials: credentials,
		Challenge:   challenge,
		Domain:      domain,
		CreatedAt:   now,
	}, nil
}

// CredentialIDs lists the embedded credential IDs in envelope order.
func (p *Presentation) CredentialIDs() []id.CredentialID {
	out := make([]id.CredentialID, 0, len(p.Credentials))
	for _, c := range p.Credentials {
		out = append(out, c.ID)
	}
	return out
}

// GenerateChallenge returns a fresh random challenge for verifiers that did
// not supply one.
func GenerateChallenge() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate challenge: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
