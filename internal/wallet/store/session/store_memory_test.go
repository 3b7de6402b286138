package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodia/internal/wallet/models"
	sessionStore "custodia/internal/wallet/store/session"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

type InMemorySessionStoreSuite struct {
	suite.Suite

	now   time.Time
	store *sessionStore.InMemory
	ctx   context.Context
}

func TestInMemorySessionStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemorySessionStoreSuite))
}

func (s *InMemorySessionStoreSuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.store = sessionStore.NewInMemoryWithClock(func() time.Time { return s.now })
	s.ctx = context.Background()
}

func (s *InMemorySessionStoreSuite) newSession(ttl time.Duration) *models.Session {
	return &models.Session{
		ID:        id.NewSessionID(),
		TenantID:  id.NewTenantID(),
		UserID:    id.NewUserID(),
		WalletID:  id.NewWalletID(),
		CreatedAt: s.now,
		ExpiresAt: s.now.Add(ttl),
	}
}

func (s *InMemorySessionStoreSuite) TestPutAndGet() {
	session := s.newSession(15 * time.Minute)
	s.Require().NoError(s.store.Put(s.ctx, session))

	got, err := s.store.Get(s.ctx, session.WalletID)
	s.Require().NoError(err)
	s.Equal(session.ID, got.ID)
	s.Equal(session.ExpiresAt, got.ExpiresAt)
}

func (s *InMemorySessionStoreSuite) TestPutReplacesExisting() {
	first := s.newSession(15 * time.Minute)
	s.Require().NoError(s.store.Put(s.ctx, first))

	second := s.newSession(15 * time.Minute)
	second.WalletID = first.WalletID
	s.Require().NoError(s.store.Put(s.ctx, second))

	got, err := s.store.Get(s.ctx, first.WalletID)
	s.Require().NoError(err)
	s.Equal(second.ID, got.ID)
}

func (s *InMemorySessionStoreSuite) TestGetExpired() {
	session := s.newSession(15 * time.Minute)
	s.Require().NoError(s.store.Put(s.ctx, session))

	s.now = s.now.Add(15*time.Minute + time.Second)

	_, err := s.store.Get(s.ctx, session.WalletID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemorySessionStoreSuite) TestDeleteIdempotent() {
	session := s.newSession(15 * time.Minute)
	s.Require().NoError(s.store.Put(s.ctx, session))

	s.Require().NoError(s.store.Delete(s.ctx, session.WalletID))
	s.Require().NoError(s.store.Delete(s.ctx, session.WalletID))

	_, err := s.store.Get(s.ctx, session.WalletID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
