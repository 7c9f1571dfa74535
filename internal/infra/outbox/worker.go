package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker relays outbox records to a Producer as CloudEvents. It polls every
// Interval and also runs as soon as Wakeup fires.
type Worker struct {
	Source      Source
	Producer    Producer
	Wakeup      <-chan struct{}
	Interval    time.Duration
	TopicPrefix string
	EventSource string
	ID          string
	Backoff     []time.Duration
	BatchSize   int
	Logger      *slog.Logger
	// OnPublish, when set, sees the outcome of every publish attempt.
	OnPublish func(err error)
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Source == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-w.Wakeup:
		}
		if _, err := w.Drain(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger().ErrorContext(ctx, "outbox drain failed", "error", err)
		}
	}
}

// Drain relays up to BatchSize due records and reports how many were sent.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	sent := 0
	for i := 0; i < w.batchSize(); i++ {
		ok, err := w.processOnce(ctx)
		if err != nil {
			return sent, err
		}
		if !ok {
			break
		}
		sent++
	}
	return sent, nil
}

// processOnce reports false when no record was due. A record that fails to
// publish is rescheduled and counts as handled.
func (w *Worker) processOnce(ctx context.Context) (bool, error) {
	rec, err := w.Source.Claim(ctx, w.workerID())
	if err != nil || rec == nil {
		return false, err
	}
	topic := w.topicFor(rec.Name)
	payload, headers, err := w.formatPayload(rec)
	if err == nil {
		err = w.Producer.Publish(ctx, topic, rec.Aggregate, payload, headers)
	}
	if w.OnPublish != nil {
		w.OnPublish(err)
	}
	if err != nil {
		w.logger().WarnContext(ctx, "outbox publish failed", "event", rec.Name, "id", rec.ID, "attempts", rec.Attempts, "error", err)
		return true, w.Source.MarkFailed(ctx, rec.ID, w.nextRetry(rec.Attempts), err.Error())
	}
	return true, w.Source.MarkSent(ctx, rec.ID)
}

func (w *Worker) formatPayload(rec *Claimed) ([]byte, map[string]string, error) {
	data := map[string]any{}
	if err := json.Unmarshal(rec.Payload, &data); err != nil {
		return nil, nil, err
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              rec.ID,
		"type":            rec.Name + ".v1",
		"source":          w.source(),
		"subject":         rec.Aggregate,
		"time":            rec.OccurredAt,
		"datacontenttype": "application/json",
		"data":            data,
	}
	if trace, ok := rec.Headers["traceparent"]; ok {
		evt["traceparent"] = trace
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
	}
	for k, v := range rec.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// topicFor maps "booking.requested" to "booking.events.v1".
func (w *Worker) topicFor(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return w.TopicPrefix + base + ".events.v1"
}

func (w *Worker) workerID() string {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return w.ID
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) batchSize() int {
	if w.BatchSize <= 0 {
		return 100
	}
	return w.BatchSize
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return time.Now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.EventSource != "" {
		return w.EventSource
	}
	return "app://depositrent"
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}

// LogProducer writes events to a logger. It stands in for Kafka when no
// brokers are configured.
type LogProducer struct {
	Logger *slog.Logger
}

func (p LogProducer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "event published", "topic", topic, "key", key, "bytes", len(payload))
	return nil
}
