//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"custodia/internal/audit"
	id "custodia/pkg/domain"
	"custodia/pkg/testutil/containers"
)

func TestKafkaPublisher(t *testing.T) {
	rp := containers.NewRedpandaContainer(t)
	ctx := context.Background()
	const topic = "custodia.audit.test"

	publisher, err := audit.NewKafkaPublisher(ctx, []string{rp.Broker}, topic)
	require.NoError(t, err)
	t.Cleanup(publisher.Close)

	tenantID := id.NewTenantID()
	userID := id.NewUserID()
	events := []audit.Event{
		{Action: audit.EventWalletCreated, TenantID: tenantID, UserID: userID, Timestamp: time.Now().UTC()},
		{Action: audit.EventCredentialIssued, TenantID: tenantID, UserID: userID, Subject: id.NewCredentialID().String(), Reason: "enrollment", Timestamp: time.Now().UTC()},
	}
	for _, event := range events {
		require.NoError(t, publisher.Emit(ctx, event))
	}

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	var got []audit.Event
	deadline := time.Now().Add(30 * time.Second)
	for len(got) < len(events) && time.Now().Before(deadline) {
		pollCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		fetches := consumer.PollFetches(pollCtx)
		cancel()
		fetches.EachRecord(func(record *kgo.Record) {
			// Events are keyed by tenant for per-tenant ordering.
			require.Equal(t, tenantID.String(), string(record.Key))
			var event audit.Event
			require.NoError(t, json.Unmarshal(record.Value, &event))
			got = append(got, event)
		})
	}

	require.Len(t, got, len(events))
	require.Equal(t, audit.EventWalletCreated, got[0].Action)
	require.Equal(t, audit.EventCredentialIssued, got[1].Action)
	require.Equal(t, "enrollment", got[1].Reason)
}
