package events

import "time"

// DomainEvent is something an aggregate wants the outside world to learn about.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// EventRecorder is embedded by aggregates to buffer events until the
// application layer hands them to the outbox.
type EventRecorder struct {
	pending []DomainEvent
}

func (r *EventRecorder) Record(event DomainEvent) {
	if event == nil {
		return
	}
	r.pending = append(r.pending, event)
}

func (r *EventRecorder) PendingEvents() []DomainEvent {
	out := make([]DomainEvent, len(r.pending))
	copy(out, r.pending)
	return out
}

// PullEvents returns the buffered events and empties the buffer.
func (r *EventRecorder) PullEvents() []DomainEvent {
	out := r.pending
	r.pending = nil
	return out
}

func (r *EventRecorder) ClearEvents() {
	r.pending = nil
}
