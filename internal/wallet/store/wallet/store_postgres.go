package wallet

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"custodia/internal/keys"
	"custodia/internal/wallet/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/platform/tx"
)

// Postgres persists wallets. The encrypted keystore and KDF parameters are
// stored as JSONB; uniqueness of (tenant_id, user_id) is enforced by a
// database constraint so concurrent creates cannot race past the check.
//
// Schema:
//
//	CREATE TABLE wallets (
//	    id               UUID PRIMARY KEY,
//	    tenant_id        UUID NOT NULL,
//	    user_id          UUID NOT NULL,
//	    primary_did      TEXT NOT NULL DEFAULT '',
//	    status           TEXT NOT NULL,
//	    kdf_params       JSONB NOT NULL,
//	    keystore         JSONB NOT NULL,
//	    keystore_version INT NOT NULL,
//	    created_at       TIMESTAMPTZ NOT NULL,
//	    updated_at       TIMESTAMPTZ NOT NULL,
//	    retired_at       TIMESTAMPTZ,
//	    UNIQUE (tenant_id, user_id)
//	);
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// querier lets store methods join a surrounding transaction carried in ctx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) q(ctx context.Context) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, w *models.Wallet) error {
	kdfJSON, keystoreJSON, err := marshalKeystore(w)
	if err != nil {
		return err
	}
	_, err = s.q(ctx).ExecContext(ctx, `
		INSERT INTO wallets (id, tenant_id, user_id, primary_did, status, kdf_params, keystore, keystore_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.UUID(w.ID), uuid.UUID(w.TenantID), uuid.UUID(w.UserID), w.PrimaryDID, string(w.Status),
		kdfJSON, keystoreJSON, w.KeystoreVersion, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, walletID id.WalletID) (*models.Wallet, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT id, tenant_id, user_id, primary_did, status, kdf_params, keystore, keystore_version, created_at, updated_at, retired_at
		FROM wallets WHERE id = $1`, uuid.UUID(walletID))
	return scanWallet(row)
}

func (s *Postgres) FindByTenantUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*models.Wallet, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT id, tenant_id, user_id, primary_did, status, kdf_params, keystore, keystore_version, created_at, updated_at, retired_at
		FROM wallets WHERE tenant_id = $1 AND user_id = $2`, uuid.UUID(tenantID), uuid.UUID(userID))
	return scanWallet(row)
}

func (s *Postgres) UpdateKeystore(ctx context.Context, w *models.Wallet, expectedVersion int) error {
	kdfJSON, keystoreJSON, err := marshalKeystore(w)
	if err != nil {
		return err
	}
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE wallets
		SET kdf_params = $1, keystore = $2, keystore_version = $3, updated_at = $4
		WHERE id = $5 AND keystore_version = $6`,
		kdfJSON, keystoreJSON, w.KeystoreVersion, w.UpdatedAt, uuid.UUID(w.ID), expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update keystore: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update keystore: %w", err)
	}
	if affected == 0 {
		// Distinguish a stale version from a missing wallet.
		var exists bool
		if err := s.q(ctx).QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM wallets WHERE id = $1)`, uuid.UUID(w.ID)).Scan(&exists); err != nil {
			return fmt.Errorf("update keystore: %w", err)
		}
		if exists {
			return sentinel.ErrConflict
		}
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) SetPrimaryDID(ctx context.Context, walletID id.WalletID, did string) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE wallets SET primary_did = $1 WHERE id = $2`, did, uuid.UUID(walletID))
	if err != nil {
		return fmt.Errorf("set primary did: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Retire(ctx context.Context, walletID id.WalletID) error {
	now := time.Now()
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE wallets SET status = $1, retired_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4`,
		string(models.WalletStatusRetired), now, uuid.UUID(walletID), string(models.WalletStatusActive),
	)
	if err != nil {
		return fmt.Errorf("retire wallet: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func marshalKeystore(w *models.Wallet) ([]byte, []byte, error) {
	kdfJSON, err := json.Marshal(w.KDF)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal kdf params: %w", err)
	}
	keystoreJSON, err := json.Marshal(w.Keys)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal keystore: %w", err)
	}
	return kdfJSON, keystoreJSON, nil
}

func scanWallet(row *sql.Row) (*models.Wallet, error) {
	var (
		w            models.Wallet
		walletID     uuid.UUID
		tenantID     uuid.UUID
		userID       uuid.UUID
		status       string
		kdfJSON      []byte
		keystoreJSON []byte
		retiredAt    sql.NullTime
	)
	err := row.Scan(&walletID, &tenantID, &userID, &w.PrimaryDID, &status, &kdfJSON, &keystoreJSON,
		&w.KeystoreVersion, &w.CreatedAt, &w.UpdatedAt, &retiredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	w.ID = id.WalletID(walletID)
	w.TenantID = id.TenantID(tenantID)
	w.UserID = id.UserID(userID)
	w.Status = models.WalletStatus(status)
	if retiredAt.Valid {
		t := retiredAt.Time
		w.RetiredAt = &t
	}
	if err := json.Unmarshal(kdfJSON, &w.KDF); err != nil {
		return nil, fmt.Errorf("unmarshal kdf params: %w", err)
	}
	w.Keys = []keys.KeyPair{}
	if err := json.Unmarshal(keystoreJSON, &w.Keys); err != nil {
		return nil, fmt.Errorf("unmarshal keystore: %w", err)
	}
	return &w, nil
}

// isUniqueViolation matches the postgres unique_violation SQLSTATE without
// binding this package to a specific driver error type.
func isUniqueViolation(err error) bool {
	type sqlStater interface{ SQLState() string }
	var state sqlStater
	if errors.As(err, &state) {
		return state.SQLState() == "23505"
	}
	return false
}
