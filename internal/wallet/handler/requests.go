package handler

import (
	"strings"

	dErrors "custodia/pkg/domain-errors"
)

// CreateWalletRequest is the HTTP request body for POST /wallet.
type CreateWalletRequest struct {
	Passphrase string `json:"passphrase"`
	DIDMethod  string `json:"did_method"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateWalletRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Passphrase == "" {
		return dErrors.New(dErrors.CodeValidation, "passphrase is required")
	}
	r.DIDMethod = strings.TrimSpace(r.DIDMethod)
	if r.DIDMethod == "" {
		r.DIDMethod = "key"
	}
	return nil
}

// PassphraseRequest is the body shared by unlock, backup and restore calls.
type PassphraseRequest struct {
	Passphrase string `json:"passphrase"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *PassphraseRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Passphrase == "" {
		return dErrors.New(dErrors.CodeValidation, "passphrase is required")
	}
	return nil
}
