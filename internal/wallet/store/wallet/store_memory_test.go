package wallet_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodia/internal/keys"
	walletModels "custodia/internal/wallet/models"
	walletStore "custodia/internal/wallet/store/wallet"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

type InMemoryWalletStoreSuite struct {
	suite.Suite

	store *walletStore.InMemory
	ctx   context.Context
}

func TestInMemoryWalletStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryWalletStoreSuite))
}

func (s *InMemoryWalletStoreSuite) SetupTest() {
	s.store = walletStore.NewInMemory()
	s.ctx = context.Background()
}

func (s *InMemoryWalletStoreSuite) newWallet() *walletModels.Wallet {
	symmetric := make([]byte, 32)
	kp, err := keys.Generate(symmetric, time.Now())
	s.Require().NoError(err)

	params, err := keys.NewKDFParams()
	s.Require().NoError(err)

	w, err := walletModels.NewWallet(id.NewWalletID(), id.NewTenantID(), id.NewUserID(), params, kp, time.Now())
	s.Require().NoError(err)
	return w
}

func (s *InMemoryWalletStoreSuite) TestCreateAndFind() {
	w := s.newWallet()
	s.Require().NoError(s.store.Create(s.ctx, w))

	byID, err := s.store.FindByID(s.ctx, w.ID)
	s.Require().NoError(err)
	s.Equal(w.ID, byID.ID)
	s.Len(byID.Keys, 1)

	byOwner, err := s.store.FindByTenantUser(s.ctx, w.TenantID, w.UserID)
	s.Require().NoError(err)
	s.Equal(w.ID, byOwner.ID)
}

func (s *InMemoryWalletStoreSuite) TestCreateDuplicateOwner() {
	w := s.newWallet()
	s.Require().NoError(s.store.Create(s.ctx, w))

	dup := s.newWallet()
	dup.TenantID = w.TenantID
	dup.UserID = w.UserID
	s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrAlreadyUsed)
}

func (s *InMemoryWalletStoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(s.ctx, id.NewWalletID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByTenantUser(s.ctx, id.NewTenantID(), id.NewUserID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryWalletStoreSuite) TestUpdateKeystoreVersionCheck() {
	w := s.newWallet()
	s.Require().NoError(s.store.Create(s.ctx, w))

	symmetric := make([]byte, 32)
	replacement, err := keys.Generate(symmetric, time.Now())
	s.Require().NoError(err)

	expected := w.KeystoreVersion
	s.Require().NoError(w.ApplyRotation(replacement, time.Now()))
	s.Require().NoError(s.store.UpdateKeystore(s.ctx, w, expected))

	// The stale version must be rejected.
	s.ErrorIs(s.store.UpdateKeystore(s.ctx, w, expected), sentinel.ErrConflict)

	stored, err := s.store.FindByID(s.ctx, w.ID)
	s.Require().NoError(err)
	s.Equal(expected+1, stored.KeystoreVersion)
	s.Len(stored.Keys, 2)
}

func (s *InMemoryWalletStoreSuite) TestUpdateKeystoreMissingWallet() {
	w := s.newWallet()
	s.ErrorIs(s.store.UpdateKeystore(s.ctx, w, w.KeystoreVersion), sentinel.ErrNotFound)
}

func (s *InMemoryWalletStoreSuite) TestSetPrimaryDID() {
	w := s.newWallet()
	s.Require().NoError(s.store.Create(s.ctx, w))

	s.Require().NoError(s.store.SetPrimaryDID(s.ctx, w.ID, "did:key:z6Mkexample"))

	stored, err := s.store.FindByID(s.ctx, w.ID)
	s.Require().NoError(err)
	s.Equal("did:key:z6Mkexample", stored.PrimaryDID)

	s.ErrorIs(s.store.SetPrimaryDID(s.ctx, id.NewWalletID(), "did:key:z6Mkother"), sentinel.ErrNotFound)
}

func (s *InMemoryWalletStoreSuite) TestRetire() {
	w := s.newWallet()
	s.Require().NoError(s.store.Create(s.ctx, w))

	s.Require().NoError(s.store.Retire(s.ctx, w.ID))

	stored, err := s.store.FindByID(s.ctx, w.ID)
	s.Require().NoError(err)
	s.Equal(walletModels.WalletStatusRetired, stored.Status)
	s.NotNil(stored.RetiredAt)

	s.ErrorIs(s.store.Retire(s.ctx, w.ID), sentinel.ErrInvalidState)
}

func (s *InMemoryWalletStoreSuite) TestReadIsolation() {
	w := s.newWallet()
	s.Require().NoError(s.store.Create(s.ctx, w))

	first, err := s.store.FindByID(s.ctx, w.ID)
	s.Require().NoError(err)
	first.PrimaryDID = "did:key:zMutated"
	first.Keys[0].SupersededAt = &first.CreatedAt

	second, err := s.store.FindByID(s.ctx, w.ID)
	s.Require().NoError(err)
	s.Empty(second.PrimaryDID)
	s.Nil(second.Keys[0].SupersededAt)
}
