//go:build integration

package challenge_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"custodia/internal/presentation/store/challenge"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/testutil/containers"
)

func TestRedisChallengeStore(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	store := challenge.NewRedis(rc.Client)
	ctx := context.Background()

	t.Run("consume once", func(t *testing.T) {
		require.NoError(t, store.Consume(ctx, "abc", time.Minute))
		require.ErrorIs(t, store.Consume(ctx, "abc", time.Minute), sentinel.ErrAlreadyUsed)
		require.NoError(t, store.Consume(ctx, "xyz", time.Minute))
	})

	t.Run("retention expiry frees the challenge", func(t *testing.T) {
		require.NoError(t, store.Consume(ctx, "short-lived", time.Second))

		require.Eventually(t, func() bool {
			return store.Consume(ctx, "short-lived", time.Second) == nil
		}, 5*time.Second, 200*time.Millisecond, "challenge should expire out of redis")
	})
}
