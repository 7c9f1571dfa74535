package notify

import (
	"context"
	"log/slog"

	"depositrent/internal/app/policies"
)

// LogNotifier writes notifications to the log. It is the delivery channel
// until a mail gateway is wired in.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, to string, template string, data any) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification sent", "to", to, "template", template, "data", data)
	return nil
}

var _ policies.Notifier = LogNotifier{}
