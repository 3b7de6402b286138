package handler

import (
	"custodia/internal/did/models"
	dErrors "custodia/pkg/domain-errors"
)

// RotateKeysRequest is the HTTP request body for POST .../dids/{did}/rotate.
type RotateKeysRequest struct {
	CurrentPassphrase string `json:"current_passphrase"`
	NewPassphrase     string `json:"new_passphrase,omitempty"`
	Reason            string `json:"reason"`
	ExpectedVersion   int    `json:"expected_version,omitempty"`

	parsedReason models.RotationReason
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RotateKeysRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.CurrentPassphrase == "" {
		return dErrors.New(dErrors.CodeValidation, "current_passphrase is required")
	}
	if r.ExpectedVersion < 0 {
		return dErrors.New(dErrors.CodeValidation, "expected_version must not be negative")
	}
	reason, err := models.ParseRotationReason(r.Reason)
	if err != nil {
		return err
	}
	r.parsedReason = reason
	return nil
}

// ParsedReason returns the reason parsed during Validate.
func (r *RotateKeysRequest) ParsedReason() models.RotationReason {
	return r.parsedReason
}
