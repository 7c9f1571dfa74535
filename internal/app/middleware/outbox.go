package middleware

import (
	"context"
	"log/slog"

	"depositrent/internal/app/commands"
	"depositrent/internal/app/outbox"
)

// OutboxFlush signals the outbox after a successful command. It sits outside
// Transaction so the signal follows the commit. A failed signal is logged
// only: the records are already durable and the relay polls anyway.
func OutboxFlush(box outbox.Outbox, logger *slog.Logger) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				logger.WarnContext(ctx, "outbox flush failed", "command", cmd.Key(), "error", err)
			}
			return res, nil
		})
	}
}
