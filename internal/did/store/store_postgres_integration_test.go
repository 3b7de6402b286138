//go:build integration

package store_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"custodia/internal/did/models"
	didStore "custodia/internal/did/store"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/testutil/containers"
)

const didSchema = `
CREATE TABLE IF NOT EXISTS did_documents (
    did                  TEXT PRIMARY KEY,
    method               TEXT NOT NULL,
    controller_wallet_id UUID NOT NULL,
    verification_methods JSONB NOT NULL,
    version              INT NOT NULL,
    created_at           TIMESTAMPTZ NOT NULL,
    updated_at           TIMESTAMPTZ NOT NULL,
    UNIQUE (controller_wallet_id, method)
)`

func newTestDocument(t *testing.T, walletID id.WalletID, method models.Method) *models.Document {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	did, err := models.DIDForMethod(method, pub, "registry.example.edu", walletID)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	vm := models.NewVerificationMethod(did, "key-1", pub, now)
	doc, err := models.NewDocument(did, method, walletID, vm, now)
	require.NoError(t, err)
	return doc
}

func TestPostgresDIDStore(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	pg.Exec(t, didSchema)

	store := didStore.NewPostgres(pg.DB)
	ctx := context.Background()

	t.Run("create and find", func(t *testing.T) {
		doc := newTestDocument(t, id.NewWalletID(), models.MethodKey)
		require.NoError(t, store.Create(ctx, doc))

		found, err := store.FindByDID(ctx, doc.DID)
		require.NoError(t, err)
		require.Equal(t, doc.DID, found.DID)
		require.Equal(t, doc.ControllerWalletID, found.ControllerWalletID)
		require.Equal(t, 1, found.Version)
		require.Len(t, found.VerificationMethods, 1)
	})

	t.Run("duplicate wallet and method conflicts", func(t *testing.T) {
		walletID := id.NewWalletID()
		require.NoError(t, store.Create(ctx, newTestDocument(t, walletID, models.MethodKey)))
		require.ErrorIs(t, store.Create(ctx, newTestDocument(t, walletID, models.MethodKey)), sentinel.ErrConflict)
		require.NoError(t, store.Create(ctx, newTestDocument(t, walletID, models.MethodWeb)))
	})

	t.Run("version check on update", func(t *testing.T) {
		doc := newTestDocument(t, id.NewWalletID(), models.MethodKey)
		require.NoError(t, store.Create(ctx, doc))

		pub, _, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		later := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, doc.ApplyRotation(models.NewVerificationMethod(doc.DID, "key-2", pub, later), later))

		require.NoError(t, store.UpdateDocument(ctx, doc, 1))
		require.ErrorIs(t, store.UpdateDocument(ctx, doc, 1), sentinel.ErrConflict)

		found, err := store.FindByDID(ctx, doc.DID)
		require.NoError(t, err)
		require.Equal(t, 2, found.Version)
		require.Len(t, found.VerificationMethods, 2)
	})

	t.Run("list by wallet", func(t *testing.T) {
		walletID := id.NewWalletID()
		first := newTestDocument(t, walletID, models.MethodKey)
		require.NoError(t, store.Create(ctx, first))
		second := newTestDocument(t, walletID, models.MethodWeb)
		require.NoError(t, store.Create(ctx, second))

		docs, err := store.ListByWallet(ctx, walletID)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		require.Equal(t, first.DID, docs[0].DID)
	})

	t.Run("missing document", func(t *testing.T) {
		_, err := store.FindByDID(ctx, "did:key:z6MkMissing")
		require.ErrorIs(t, err, sentinel.ErrNotFound)

		doc := newTestDocument(t, id.NewWalletID(), models.MethodKey)
		require.ErrorIs(t, store.UpdateDocument(ctx, doc, 1), sentinel.ErrNotFound)
	})
}
