package store_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodia/internal/did/models"
	"custodia/internal/did/store"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

type DIDStoreSuite struct {
	suite.Suite

	store *store.InMemory
	ctx   context.Context
	now   time.Time
}

func TestDIDStoreSuite(t *testing.T) {
	suite.Run(t, new(DIDStoreSuite))
}

func (s *DIDStoreSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
}

func (s *DIDStoreSuite) newDocument(walletID id.WalletID, method models.Method) *models.Document {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	s.Require().NoError(err)

	did, err := models.DIDForMethod(method, pub, "registry.example.edu", walletID)
	s.Require().NoError(err)

	vm := models.NewVerificationMethod(did, "key-1", pub, s.now)
	doc, err := models.NewDocument(did, method, walletID, vm, s.now)
	s.Require().NoError(err)
	return doc
}

func (s *DIDStoreSuite) TestCreateAndFind() {
	doc := s.newDocument(id.NewWalletID(), models.MethodKey)
	s.Require().NoError(s.store.Create(s.ctx, doc))

	found, err := s.store.FindByDID(s.ctx, doc.DID)
	s.Require().NoError(err)
	s.Equal(doc.DID, found.DID)
	s.Equal(1, found.Version)
	s.Len(found.VerificationMethods, 1)
}

func (s *DIDStoreSuite) TestCreateDuplicateDID() {
	doc := s.newDocument(id.NewWalletID(), models.MethodKey)
	s.Require().NoError(s.store.Create(s.ctx, doc))
	s.ErrorIs(s.store.Create(s.ctx, doc), sentinel.ErrConflict)
}

func (s *DIDStoreSuite) TestCreateDuplicateWalletMethod() {
	walletID := id.NewWalletID()
	s.Require().NoError(s.store.Create(s.ctx, s.newDocument(walletID, models.MethodKey)))

	// A second did:key document for the same wallet collides even though
	// the DID string differs.
	s.ErrorIs(s.store.Create(s.ctx, s.newDocument(walletID, models.MethodKey)), sentinel.ErrConflict)

	// A different method for the same wallet is allowed.
	s.NoError(s.store.Create(s.ctx, s.newDocument(walletID, models.MethodWeb)))
}

func (s *DIDStoreSuite) TestFindMissing() {
	_, err := s.store.FindByDID(s.ctx, "did:key:z6MkMissing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *DIDStoreSuite) TestListByWallet() {
	walletID := id.NewWalletID()
	first := s.newDocument(walletID, models.MethodKey)
	s.Require().NoError(s.store.Create(s.ctx, first))

	second := s.newDocument(walletID, models.MethodWeb)
	second.CreatedAt = s.now.Add(time.Minute)
	s.Require().NoError(s.store.Create(s.ctx, second))

	s.Require().NoError(s.store.Create(s.ctx, s.newDocument(id.NewWalletID(), models.MethodKey)))

	docs, err := s.store.ListByWallet(s.ctx, walletID)
	s.Require().NoError(err)
	s.Require().Len(docs, 2)
	s.Equal(first.DID, docs[0].DID)
	s.Equal(second.DID, docs[1].DID)
}

func (s *DIDStoreSuite) TestUpdateDocumentVersionCheck() {
	doc := s.newDocument(id.NewWalletID(), models.MethodKey)
	s.Require().NoError(s.store.Create(s.ctx, doc))

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	s.Require().NoError(err)
	later := s.now.Add(time.Hour)
	s.Require().NoError(doc.ApplyRotation(models.NewVerificationMethod(doc.DID, "key-2", pub, later), later))

	s.Require().NoError(s.store.UpdateDocument(s.ctx, doc, 1))

	found, err := s.store.FindByDID(s.ctx, doc.DID)
	s.Require().NoError(err)
	s.Equal(2, found.Version)
	s.Len(found.VerificationMethods, 2)

	// Re-submitting against the stale version loses.
	s.ErrorIs(s.store.UpdateDocument(s.ctx, doc, 1), sentinel.ErrConflict)
}

func (s *DIDStoreSuite) TestUpdateMissingDocument() {
	doc := s.newDocument(id.NewWalletID(), models.MethodKey)
	s.ErrorIs(s.store.UpdateDocument(s.ctx, doc, 1), sentinel.ErrNotFound)
}

func (s *DIDStoreSuite) TestReadIsolation() {
	doc := s.newDocument(id.NewWalletID(), models.MethodKey)
	s.Require().NoError(s.store.Create(s.ctx, doc))

	found, err := s.store.FindByDID(s.ctx, doc.DID)
	s.Require().NoError(err)
	found.Version = 99
	found.VerificationMethods[0].KeyID = "tampered"

	again, err := s.store.FindByDID(s.ctx, doc.DID)
	s.Require().NoError(err)
	s.Equal(1, again.Version)
	s.Equal("key-1", again.VerificationMethods[0].KeyID)
}
