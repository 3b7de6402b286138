// Package wallet persists Wallet aggregates. Implementations return
// sentinel errors for infrastructure facts; services translate them.
package wallet

import (
	"context"

	"custodia/internal/wallet/models"
	id "custodia/pkg/domain"
)

// Store is the wallet repository contract.
//
//   - Create returns sentinel.ErrAlreadyUsed when a wallet already exists
//     for the (tenant, user) pair.
//   - UpdateKeystore applies optimistic concurrency: the write succeeds only
//     when the stored KeystoreVersion still equals expectedVersion,
//     otherwise sentinel.ErrConflict.
type Store interface {
	Create(ctx context.Context, w *models.Wallet) error
	FindByID(ctx context.Context, walletID id.WalletID) (*models.Wallet, error)
	FindByTenantUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*models.Wallet, error)
	UpdateKeystore(ctx context.Context, w *models.Wallet, expectedVersion int) error
	SetPrimaryDID(ctx context.Context, walletID id.WalletID, did string) error
	Retire(ctx context.Context, walletID id.WalletID) error
}
