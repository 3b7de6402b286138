// Package store persists DID documents.
package store

import (
	"context"

	"custodia/internal/did/models"
	id "custodia/pkg/domain"
)

// Store is the local DID registry. Documents mutate only through rotation,
// guarded by a version compare-and-swap.
type Store interface {
	// Create registers a new document. sentinel.ErrConflict when the DID or
	// the (wallet, method) pair is already registered.
	Create(ctx context.Context, doc *models.Document) error
	// FindByDID returns sentinel.ErrNotFound for unregistered DIDs.
	FindByDID(ctx context.Context, did string) (*models.Document, error)
	// ListByWallet returns the wallet's documents ordered by creation.
	ListByWallet(ctx context.Context, walletID id.WalletID) ([]models.Document, error)
	// UpdateDocument persists a mutated document when the stored version
	// still equals expectedVersion; sentinel.ErrConflict otherwise.
	UpdateDocument(ctx context.Context, doc *models.Document, expectedVersion int) error
}
