package revocation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/platform/tx"
)

// Postgres persists revocation entries. Append-only: the primary key on
// credential_id enforces at most one entry per credential and rows are
// never updated or deleted.
//
// Schema:
//
//	CREATE TABLE revocation_entries (
//	    credential_id UUID PRIMARY KEY,
//	    tenant_id     UUID NOT NULL,
//	    reason        TEXT NOT NULL,
//	    revoked_by    TEXT NOT NULL,
//	    revoked_at    TIMESTAMPTZ NOT NULL
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

func (s *Postgres) Append(ctx context.Context, e Entry) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO revocation_entries (credential_id, tenant_id, reason, revoked_by, revoked_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(e.CredentialID), uuid.UUID(e.TenantID), e.Reason, e.RevokedBy, e.RevokedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert revocation entry: %w", err)
	}
	return nil
}

func (s *Postgres) Find(ctx context.Context, tenantID id.TenantID, credentialID id.CredentialID) (Entry, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT credential_id, tenant_id, reason, revoked_by, revoked_at
		FROM revocation_entries
		WHERE credential_id = $1 AND tenant_id = $2`,
		uuid.UUID(credentialID), uuid.UUID(tenantID),
	)
	e, err := scanEntry(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, sentinel.ErrNotFound
		}
		return Entry{}, fmt.Errorf("select revocation entry: %w", err)
	}
	return e, nil
}

// RevokedSet sweeps the registry for a batch of credential IDs in a single
// query, used when a presentation embeds many credentials.
func (s *Postgres) RevokedSet(ctx context.Context, tenantID id.TenantID, credentialIDs []id.CredentialID) (map[id.CredentialID]Entry, error) {
	ids := make([]uuid.UUID, 0, len(credentialIDs))
	for _, credentialID := range credentialIDs {
		ids = append(ids, uuid.UUID(credentialID))
	}
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT credential_id, tenant_id, reason, revoked_by, revoked_at
		FROM revocation_entries
		WHERE tenant_id = $1 AND credential_id = ANY($2)`,
		uuid.UUID(tenantID), pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("select revocation entries: %w", err)
	}
	defer rows.Close()

	out := make(map[id.CredentialID]Entry)
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan revocation entry: %w", err)
		}
		out[e.CredentialID] = e
	}
	return out, rows.Err()
}

func scanEntry(scan func(...any) error) (Entry, error) {
	var (
		e            Entry
		credentialID uuid.UUID
		tenantID     uuid.UUID
	)
	if err := scan(&credentialID, &tenantID, &e.Reason, &e.RevokedBy, &e.RevokedAt); err != nil {
		return Entry{}, err
	}
	e.CredentialID = id.CredentialID(credentialID)
	e.TenantID = id.TenantID(tenantID)
	return e, nil
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	return errors.As(err, &pgErr) && pgErr.SQLState() == "23505"
}
