//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"custodia/internal/credential/models"
	credStore "custodia/internal/credential/store"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/testutil/containers"
)

const credentialSchema = `
CREATE TABLE IF NOT EXISTS credentials (
    id              UUID PRIMARY KEY,
    tenant_id       UUID NOT NULL,
    credential_type TEXT NOT NULL,
    issuer_did      TEXT NOT NULL,
    subject_did     TEXT NOT NULL,
    claims          JSONB NOT NULL,
    issued_at       TIMESTAMPTZ NOT NULL,
    expires_at      TIMESTAMPTZ,
    proof           JSONB NOT NULL,
    status          TEXT NOT NULL
)`

func TestPostgresCredentialStore(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	pg.Exec(t, credentialSchema)

	store := credStore.NewPostgres(pg.DB)
	ctx := context.Background()
	tenantID := id.NewTenantID()
	now := time.Now().UTC().Truncate(time.Microsecond)

	newCredential := func(subjectDID string, issuedAt time.Time) *models.Credential {
		c, err := models.NewCredential(tenantID, "enrollment", "did:key:zIssuer", subjectDID,
			map[string]any{"institution": "Aldgate College", "program": "Mathematics BSc"}, nil, issuedAt)
		require.NoError(t, err)
		c.Proof = models.Proof{Type: models.ProofType, Created: issuedAt, VerificationMethod: "did:key:zIssuer#key-1", JWS: "jws"}
		return c
	}

	t.Run("create and find", func(t *testing.T) {
		c := newCredential("did:key:zSubject", now)
		require.NoError(t, store.Create(ctx, c))

		found, err := store.FindByID(ctx, tenantID, c.ID)
		require.NoError(t, err)
		require.Equal(t, c.ID, found.ID)
		require.Equal(t, c.Claims, found.Claims)
		require.Equal(t, c.Proof, found.Proof)
		require.ErrorIs(t, store.Create(ctx, c), sentinel.ErrConflict)
	})

	t.Run("tenant scoping", func(t *testing.T) {
		c := newCredential("did:key:zSubject", now)
		require.NoError(t, store.Create(ctx, c))

		_, err := store.FindByID(ctx, id.NewTenantID(), c.ID)
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("list by subject ordering", func(t *testing.T) {
		subject := "did:key:zOrdering"
		older := newCredential(subject, now.Add(-time.Hour))
		newer := newCredential(subject, now)
		require.NoError(t, store.Create(ctx, newer))
		require.NoError(t, store.Create(ctx, older))

		out, err := store.ListBySubject(ctx, tenantID, subject)
		require.NoError(t, err)
		require.Len(t, out, 2)
		require.Equal(t, older.ID, out[0].ID)
	})

	t.Run("mark revoked", func(t *testing.T) {
		c := newCredential("did:key:zSubject", now)
		require.NoError(t, store.Create(ctx, c))

		require.NoError(t, store.MarkRevoked(ctx, tenantID, c.ID))
		found, err := store.FindByID(ctx, tenantID, c.ID)
		require.NoError(t, err)
		require.Equal(t, models.StatusRevoked, found.Status)

		require.ErrorIs(t, store.MarkRevoked(ctx, tenantID, id.NewCredentialID()), sentinel.ErrNotFound)
	})
}
