package relay

import (
	"context"
	"log/slog"
)

// Sink is the one-way, connection-addressed delivery capability toward the
// persistently connected client.
type Sink interface {
	Push(ctx context.Context, connectionID string, payload []byte) error
}

// runDispatch drains the conveyor in order, encoding each fragment and
// pushing it to the client connection. The first push failure aborts the
// worker; fragments already pushed stay delivered, nothing is retried.
func runDispatch(ctx context.Context, conveyor *Conveyor, sink Sink, connectionID string, log *slog.Logger) error {
	delivered := 0
	for {
		fragment, ok := conveyor.Next(ctx)
		if !ok {
			if err := ctx.Err(); err != nil {
				return err
			}
			log.Debug("Conveyor drained", "delivered", delivered)
			return nil
		}

		payload, err := EncodeFragment(fragment)
		if err != nil {
			return err
		}

		if err := sink.Push(ctx, connectionID, payload); err != nil {
			return WrapError(ErrorSinkDelivery, "push fragment to connection", err)
		}
		delivered++
	}
}
