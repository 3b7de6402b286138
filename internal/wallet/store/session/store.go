package session

import (
	"context"

	"custodia/internal/wallet/models"
	id "custodia/pkg/domain"
)

// Store tracks unlock sessions keyed by wallet. A wallet has at most one
// active session; Put replaces any existing one.
type Store interface {
	// Put stores the session, replacing the wallet's current session if any.
	Put(ctx context.Context, session *models.Session) error
	// Get returns the wallet's active session or sentinel.ErrNotFound when
	// there is none (including when the stored session has expired).
	Get(ctx context.Context, walletID id.WalletID) (*models.Session, error)
	// Delete ends the wallet's session. Deleting a missing session is a no-op.
	Delete(ctx context.Context, walletID id.WalletID) error
}
