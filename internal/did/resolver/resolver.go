// Package resolver implements per-method DID resolution strategies: local
// registry lookup for did:key and did:web, a delegated HTTP resolver for
// did:ethr.
package resolver

import (
	"context"
	"errors"

	"custodia/internal/did/models"
	"custodia/internal/did/store"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
)

// Resolver resolves one DID method. Implementations return CodeNotFound when
// no document exists and CodeUnavailable when resolution itself failed (no
// usable resolver, unreachable delegate, malformed document).
type Resolver interface {
	Resolve(ctx context.Context, did string) (*models.Document, error)
}

// Registry resolves locally anchored methods (did:web, and did:key documents
// this service minted) against the DID registry.
type Registry struct {
	store store.Store
}

func NewRegistry(s store.Store) *Registry {
	return &Registry{store: s}
}

func (r *Registry) Resolve(ctx context.Context, did string) (*models.Document, error) {
	doc, err := r.store.FindByDID(ctx, did)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "DID not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "DID resolution failed")
	}
	return doc, nil
}

// Key resolves did:key identifiers. The registry is consulted first so
// rotated local documents win; an unregistered did:key is still resolvable
// because the identifier embeds its own verification key.
type Key struct {
	registry *Registry
}

func NewKey(registry *Registry) *Key {
	return &Key{registry: registry}
}

func (r *Key) Resolve(ctx context.Context, did string) (*models.Document, error) {
	doc, err := r.registry.Resolve(ctx, did)
	if err == nil {
		return doc, nil
	}
	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, err
	}
	return deriveKeyDocument(did)
}

// deriveKeyDocument materializes the document a bare did:key implies.
func deriveKeyDocument(did string) (*models.Document, error) {
	method, err := models.MethodOf(did)
	if err != nil || method != models.MethodKey {
		return nil, dErrors.New(dErrors.CodeUnavailable, "DID resolution failed: malformed did:key")
	}
	encoded := did[len("did:key:"):]
	pub, err := models.DecodeMultibaseKey(encoded)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "DID resolution failed: malformed did:key")
	}
	return &models.Document{
		DID:    did,
		Method: models.MethodKey,
		VerificationMethods: []models.VerificationMethod{{
			ID:                 did + "#" + encoded,
			Type:               models.Ed25519VerificationKey2020,
			Controller:         did,
			PublicKeyMultibase: models.MultibaseKey(pub),
		}},
		Version: 1,
	}, nil
}

// Unavailable is the fallback when a method has no configured resolver.
type Unavailable struct {
	Method models.Method
}

func (r Unavailable) Resolve(context.Context, string) (*models.Document, error) {
	return nil, dErrors.Newf(dErrors.CodeUnavailable, "no resolver configured for did:%s", r.Method)
}
