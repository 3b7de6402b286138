package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"custodia/internal/credential/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/platform/tx"
)

// Postgres persists credentials. Claims and the proof are JSONB.
//
// Schema:
//
//	CREATE TABLE credentials (
//	    id              UUID PRIMARY KEY,
//	    tenant_id       UUID NOT NULL,
//	    credential_type TEXT NOT NULL,
//	    issuer_did      TEXT NOT NULL,
//	    subject_did     TEXT NOT NULL,
//	    claims          JSONB NOT NULL,
//	    issued_at       TIMESTAMPTZ NOT NULL,
//	    expires_at      TIMESTAMPTZ,
//	    proof           JSONB NOT NULL,
//	    status          TEXT NOT NULL
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

const credentialColumns = `id, tenant_id, credential_type, issuer_did, subject_did, claims, issued_at, expires_at, proof, status`

func (s *Postgres) Create(ctx context.Context, c *models.Credential) error {
	claims, err := json.Marshal(c.Claims)
	if err != nil {
		return fmt.Errorf("marshal claims: %w", err)
	}
	proof, err := json.Marshal(c.Proof)
	if err != nil {
		return fmt.Errorf("marshal proof: %w", err)
	}
	_, err = s.q(ctx).ExecContext(ctx, `
		INSERT INTO credentials (`+credentialColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.UUID(c.ID), uuid.UUID(c.TenantID), c.Type, c.IssuerDID, c.SubjectDID,
		claims, c.IssuedAt, c.ExpiresAt, proof, string(c.Status),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, tenantID id.TenantID, credentialID id.CredentialID) (*models.Credential, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT `+credentialColumns+`
		FROM credentials
		WHERE id = $1 AND tenant_id = $2`,
		uuid.UUID(credentialID), uuid.UUID(tenantID),
	)
	c, err := scanCredential(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select credential: %w", err)
	}
	return c, nil
}

func (s *Postgres) ListBySubject(ctx context.Context, tenantID id.TenantID, subjectDID string) ([]models.Credential, error) {
	return s.list(ctx, `subject_did`, tenantID, subjectDID)
}

func (s *Postgres) ListByIssuer(ctx context.Context, tenantID id.TenantID, issuerDID string) ([]models.Credential, error) {
	return s.list(ctx, `issuer_did`, tenantID, issuerDID)
}

func (s *Postgres) list(ctx context.Context, column string, tenantID id.TenantID, did string) ([]models.Credential, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT `+credentialColumns+`
		FROM credentials
		WHERE tenant_id = $1 AND `+column+` = $2
		ORDER BY issued_at`,
		uuid.UUID(tenantID), did,
	)
	if err != nil {
		return nil, fmt.Errorf("select credentials: %w", err)
	}
	defer rows.Close()

	var out []models.Credential
	for rows.Next() {
		c, err := scanCredential(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *Postgres) MarkRevoked(ctx context.Context, tenantID id.TenantID, credentialID id.CredentialID) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE credentials
		SET status = $1
		WHERE id = $2 AND tenant_id = $3`,
		string(models.StatusRevoked), uuid.UUID(credentialID), uuid.UUID(tenantID),
	)
	if err != nil {
		return fmt.Errorf("update credential status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanCredential(scan func(...any) error) (*models.Credential, error) {
	var (
		c         models.Credential
		credID    uuid.UUID
		tenantID  uuid.UUID
		claims    []byte
		expiresAt sql.NullTime
		proof     []byte
		status    string
	)
	err := scan(&credID, &tenantID, &c.Type, &c.IssuerDID, &c.SubjectDID, &claims, &c.IssuedAt, &expiresAt, &proof, &status)
	if err != nil {
		return nil, err
	}
	c.ID = id.CredentialID(credID)
	c.TenantID = id.TenantID(tenantID)
	c.Status = models.Status(status)
	if expiresAt.Valid {
		t := expiresAt.Time
		c.ExpiresAt = &t
	}
	if err := json.Unmarshal(claims, &c.Claims); err != nil {
		return nil, fmt.Errorf("unmarshal claims: %w", err)
	}
	if err := json.Unmarshal(proof, &c.Proof); err != nil {
		return nil, fmt.Errorf("unmarshal proof: %w", err)
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	return errors.As(err, &pgErr) && pgErr.SQLState() == "23505"
}
