package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"custodia/internal/wallet/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

const keyPrefix = "custodia:session:"

// Redis stores sessions with a TTL matching the session expiry, so locked-out
// sessions disappear without a reaper.
type Redis struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client, now: time.Now}
}

func (s *Redis) Put(ctx context.Context, session *models.Session) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("session for wallet %s already expired", session.WalletID)
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+session.WalletID.String(), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *Redis) Get(ctx context.Context, walletID id.WalletID) (*models.Session, error) {
	payload, err := s.client.Get(ctx, keyPrefix+walletID.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if session.IsExpired(s.now()) {
		return nil, sentinel.ErrNotFound
	}
	return &session, nil
}

func (s *Redis) Delete(ctx context.Context, walletID id.WalletID) error {
	if err := s.client.Del(ctx, keyPrefix+walletID.String()).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
