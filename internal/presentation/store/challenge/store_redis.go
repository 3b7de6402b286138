package challenge

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"custodia/pkg/platform/sentinel"
)

const keyPrefix = "custodia:challenge:"

// Redis records consumed challenges with a TTL covering the retention
// window, so stale entries expire without a reaper. SetNX gives the
// first-consumer-wins semantics atomically.
type Redis struct {
	client redis.Cmdable
}

func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Consume(ctx context.Context, challenge string, retention time.Duration) error {
	ok, err := s.client.SetNX(ctx, keyPrefix+challenge, 1, retention).Result()
	if err != nil {
		return fmt.Errorf("consume challenge: %w", err)
	}
	if !ok {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}
