package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"custodia/internal/did/models"
	dErrors "custodia/pkg/domain-errors"
)

// Ethr delegates did:ethr resolution to a universal-resolver-compatible HTTP
// endpoint. On-chain anchoring is the delegate's concern, never this core's.
type Ethr struct {
	baseURL string
	client  *http.Client
}

func NewEthr(baseURL string) *Ethr {
	return &Ethr{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// resolutionResult is the subset of the W3C DID resolution envelope we read.
type resolutionResult struct {
	DIDDocument struct {
		ID                 string `json:"id"`
		VerificationMethod []struct {
			ID                 string `json:"id"`
			Type               string `json:"type"`
			Controller         string `json:"controller"`
			PublicKeyMultibase string `json:"publicKeyMultibase"`
		} `json:"verificationMethod"`
	} `json:"didDocument"`
}

func (r *Ethr) Resolve(ctx context.Context, did string) (*models.Document, error) {
	endpoint := fmt.Sprintf("%s/1.0/identifiers/%s", r.baseURL, url.PathEscape(did))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "DID resolution failed")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "DID resolution failed: resolver unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, dErrors.New(dErrors.CodeNotFound, "DID not found")
	case resp.StatusCode != http.StatusOK:
		return nil, dErrors.Newf(dErrors.CodeUnavailable, "DID resolution failed: resolver returned %d", resp.StatusCode)
	}

	var result resolutionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "DID resolution failed: malformed document")
	}
	if result.DIDDocument.ID != did || len(result.DIDDocument.VerificationMethod) == 0 {
		return nil, dErrors.New(dErrors.CodeUnavailable, "DID resolution failed: malformed document")
	}

	doc := &models.Document{
		DID:     did,
		Method:  models.MethodEthr,
		Version: 1,
	}
	for _, vm := range result.DIDDocument.VerificationMethod {
		doc.VerificationMethods = append(doc.VerificationMethods, models.VerificationMethod{
			ID:                 vm.ID,
			Type:               vm.Type,
			Controller:         vm.Controller,
			PublicKeyMultibase: vm.PublicKeyMultibase,
		})
	}
	return doc, nil
}
