package handler

import (
	"time"

	"custodia/internal/did/models"
)

// DocumentResponse is the HTTP shape of a DID document.
type DocumentResponse struct {
	DID                 string                       `json:"did"`
	Method              string                       `json:"method"`
	ControllerWalletID  string                       `json:"controller_wallet_id,omitempty"`
	VerificationMethods []VerificationMethodResponse `json:"verification_methods"`
	Version             int                          `json:"version"`
	CreatedAt           *time.Time                   `json:"created_at,omitempty"`
	UpdatedAt           *time.Time                   `json:"updated_at,omitempty"`
}

// VerificationMethodResponse is one verification method entry.
type VerificationMethodResponse struct {
	ID                 string     `json:"id"`
	Type               string     `json:"type"`
	Controller         string     `json:"controller"`
	PublicKeyMultibase string     `json:"public_key_multibase,omitempty"`
	SupersededAt       *time.Time `json:"superseded_at,omitempty"`
}

// FromDocument converts a domain document to its HTTP response. Documents
// from delegated resolvers have no controller wallet or timestamps.
func FromDocument(doc *models.Document) *DocumentResponse {
	resp := &DocumentResponse{
		DID:                 doc.DID,
		Method:              string(doc.Method),
		VerificationMethods: make([]VerificationMethodResponse, 0, len(doc.VerificationMethods)),
		Version:             doc.Version,
	}
	if !doc.ControllerWalletID.IsNil() {
		resp.ControllerWalletID = doc.ControllerWalletID.String()
	}
	if !doc.CreatedAt.IsZero() {
		t := doc.CreatedAt
		resp.CreatedAt = &t
	}
	if !doc.UpdatedAt.IsZero() {
		t := doc.UpdatedAt
		resp.UpdatedAt = &t
	}
	for _, vm := range doc.VerificationMethods {
		resp.VerificationMethods = append(resp.VerificationMethods, VerificationMethodResponse{
			ID:                 vm.ID,
			Type:               vm.Type,
			Controller:         vm.Controller,
			PublicKeyMultibase: vm.PublicKeyMultibase,
			SupersededAt:       vm.SupersededAt,
		})
	}
	return resp
}
