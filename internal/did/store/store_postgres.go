package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"custodia/internal/did/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/platform/tx"
)

// Postgres persists DID documents. Verification methods are JSONB; the DID
// string and the (wallet, method) pair are unique.
//
// Schema:
//
//	CREATE TABLE did_documents (
//	    did                  TEXT PRIMARY KEY,
//	    method               TEXT NOT NULL,
//	    controller_wallet_id UUID NOT NULL,
//	    verification_methods JSONB NOT NULL,
//	    version              INT NOT NULL,
//	    created_at           TIMESTAMPTZ NOT NULL,
//	    updated_at           TIMESTAMPTZ NOT NULL,
//	    UNIQUE (controller_wallet_id, method)
//	);
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) q(ctx context.Context) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, doc *models.Document) error {
	vms, err := json.Marshal(doc.VerificationMethods)
	if err != nil {
		return fmt.Errorf("marshal verification methods: %w", err)
	}
	_, err = s.q(ctx).ExecContext(ctx, `
		INSERT INTO did_documents (did, method, controller_wallet_id, verification_methods, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		doc.DID, string(doc.Method), uuid.UUID(doc.ControllerWalletID), vms, doc.Version, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert did document: %w", err)
	}
	return nil
}

func (s *Postgres) FindByDID(ctx context.Context, did string) (*models.Document, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT did, method, controller_wallet_id, verification_methods, version, created_at, updated_at
		FROM did_documents WHERE did = $1`, did)
	return scanDocument(row.Scan)
}

func (s *Postgres) ListByWallet(ctx context.Context, walletID id.WalletID) ([]models.Document, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT did, method, controller_wallet_id, verification_methods, version, created_at, updated_at
		FROM did_documents WHERE controller_wallet_id = $1
		ORDER BY created_at`, uuid.UUID(walletID))
	if err != nil {
		return nil, fmt.Errorf("list did documents: %w", err)
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list did documents: %w", err)
	}
	return out, nil
}

func (s *Postgres) UpdateDocument(ctx context.Context, doc *models.Document, expectedVersion int) error {
	vms, err := json.Marshal(doc.VerificationMethods)
	if err != nil {
		return fmt.Errorf("marshal verification methods: %w", err)
	}
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE did_documents
		SET verification_methods = $1, version = $2, updated_at = $3
		WHERE did = $4 AND version = $5`,
		vms, doc.Version, doc.UpdatedAt, doc.DID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update did document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update did document: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := s.q(ctx).QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM did_documents WHERE did = $1)`, doc.DID).Scan(&exists); err != nil {
			return fmt.Errorf("update did document: %w", err)
		}
		if exists {
			return sentinel.ErrConflict
		}
		return sentinel.ErrNotFound
	}
	return nil
}

func scanDocument(scan func(...any) error) (*models.Document, error) {
	var (
		doc      models.Document
		method   string
		walletID uuid.UUID
		vms      []byte
	)
	if err := scan(&doc.DID, &method, &walletID, &vms, &doc.Version, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan did document: %w", err)
	}
	doc.Method = models.Method(method)
	doc.ControllerWalletID = id.WalletID(walletID)
	if err := json.Unmarshal(vms, &doc.VerificationMethods); err != nil {
		return nil, fmt.Errorf("unmarshal verification methods: %w", err)
	}
	return &doc, nil
}

func isUniqueViolation(err error) bool {
	type sqlStater interface{ SQLState() string }
	var state sqlStater
	if errors.As(err, &state) {
		return state.SQLState() == "23505"
	}
	return false
}
