package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"depositrent/internal/app/policies"
)

const (
	eventBookingApproved = "booking.approved.v1"
	eventBookingRejected = "booking.rejected.v1"
)

// Event is a relayed domain event as read back from the broker.
type Event struct {
	ID   string
	Type string
	Data json.RawMessage
}

// Inbox records handled event IDs. Seen reports true when the ID was
// already recorded.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

// Notice is what a client is told about a decision.
type Notice struct {
	BookingID string    `json:"booking_id"`
	Deposit   string    `json:"deposit"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Message   string    `json:"message,omitempty"`
}

type decisionPayload struct {
	BookingID string
	Deposit   string
	ClientID  string
	Duration  struct {
		Start time.Time
		End   time.Time
	}
	Message string
}

// BookingEvents notifies clients about approved and rejected bookings. Every
// event is delivered at most once; other event types are ignored.
type BookingEvents struct {
	Inbox    Inbox
	Notifier policies.Notifier
	Logger   *slog.Logger
}

func (h *BookingEvents) Handle(ctx context.Context, ev Event) error {
	var template string
	switch ev.Type {
	case eventBookingApproved:
		template = policies.TemplateBookingApproved
	case eventBookingRejected:
		template = policies.TemplateBookingRejected
	default:
		return nil
	}
	var payload decisionPayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		h.logger().WarnContext(ctx, "dropping malformed booking event", "event_id", ev.ID, "type", ev.Type, "error", err)
		return nil
	}
	if payload.ClientID == "" {
		h.logger().WarnContext(ctx, "booking event without client", "event_id", ev.ID, "booking_id", payload.BookingID)
		return nil
	}
	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, ev.ID)
		if err != nil {
			return fmt.Errorf("notifications: inbox: %w", err)
		}
		if seen {
			return nil
		}
	}
	notice := Notice{
		BookingID: payload.BookingID,
		Deposit:   payload.Deposit,
		Start:     payload.Duration.Start,
		End:       payload.Duration.End,
		Message:   payload.Message,
	}
	if err := h.Notifier.Send(ctx, payload.ClientID, template, notice); err != nil {
		h.logger().WarnContext(ctx, "booking notification failed", "event_id", ev.ID, "booking_id", payload.BookingID, "error", err)
		return nil
	}
	h.logger().InfoContext(ctx, "booking notification sent", "event_id", ev.ID, "booking_id", payload.BookingID, "template", template)
	return nil
}

func (h *BookingEvents) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}
