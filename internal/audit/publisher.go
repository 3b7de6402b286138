package audit

import (
	"context"
	"log/slog"

	"custodia/pkg/requestcontext"
)

// StorePublisher writes events straight to a Store. Used for the in-memory
// wiring and as the worker-side sink behind the channel publisher.
type StorePublisher struct {
	store Store
}

func NewStorePublisher(store Store) *StorePublisher {
	return &StorePublisher{store: store}
}

func (p *StorePublisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	return p.store.Append(ctx, event)
}

// ChannelPublisher hands events to a background worker without blocking the
// request path. A full inbox drops the event and reports it to the caller's
// logger; audit loss is preferable to stalling a signing operation.
type ChannelPublisher struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewChannelPublisher(buffer int, logger *slog.Logger) *ChannelPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChannelPublisher{inbox: make(chan Event, buffer), logger: logger}
}

// Inbox exposes the receive side for a Worker.
func (p *ChannelPublisher) Inbox() <-chan Event {
	return p.inbox
}

func (p *ChannelPublisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		p.logger.Warn("audit inbox full, dropping event", "action", event.Action)
		return nil
	}
}

// Enrich fills request-scoped metadata (request ID, device, client IP) from
// context so services only supply domain fields.
func Enrich(ctx context.Context, event Event) Event {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Device == "" {
		event.Device = requestcontext.Device(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	return event
}

// LogAudit emits an event through publisher (when configured) and always
// mirrors it to the structured log. Emission failures are logged, never
// returned: audit must not fail the domain operation.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher Publisher, event Event) {
	event = Enrich(ctx, event)
	if publisher != nil {
		if err := publisher.Emit(ctx, event); err != nil && logger != nil {
			logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "action", event.Action)
		}
	}
	if logger != nil {
		logger.InfoContext(ctx, "audit",
			"action", event.Action,
			"tenant_id", event.TenantID.String(),
			"user_id", event.UserID.String(),
			"subject", event.Subject,
			"reason", event.Reason,
			"request_id", event.RequestID,
		)
	}
}
