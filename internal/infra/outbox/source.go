package outbox

import (
	"context"
	"time"

	appoutbox "depositrent/internal/app/outbox"
)

// Claimed is a record handed to one relay worker.
type Claimed struct {
	appoutbox.EventRecord
	Attempts int
}

// Source is the relay side of an outbox. Claim returns nil when nothing is due.
type Source interface {
	Claim(ctx context.Context, workerID string) (*Claimed, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

// signal is a wakeup channel that never blocks its sender.
type signal chan struct{}

func newSignal() signal {
	return make(signal, 1)
}

func (s signal) notify() {
	select {
	case s <- struct{}{}:
	default:
	}
}
