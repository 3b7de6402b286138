package audit

import (
	"context"
	"log/slog"
)

// Worker drains a ChannelPublisher inbox into a terminal sink (store or
// kafka). It keeps background processing off the request path.
type Worker struct {
	sink   Publisher
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Publisher, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run consumes events until the context is cancelled, then flushes whatever
// is still buffered in the inbox before returning. Sink failures are logged
// and the worker keeps going; one bad event must not stall the drain.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.flush()
			return ctx.Err()
		case event := <-w.inbox:
			w.emit(ctx, event)
		}
	}
}

// flush empties the inbox without blocking. Events buffered at shutdown are
// emitted with a fresh context since the run context is already cancelled.
func (w *Worker) flush() {
	for {
		select {
		case event := <-w.inbox:
			w.emit(context.Background(), event)
		default:
			return
		}
	}
}

func (w *Worker) emit(ctx context.Context, event Event) {
	if err := w.sink.Emit(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to persist audit event",
			"error", err,
			"action", event.Action,
		)
	}
}
