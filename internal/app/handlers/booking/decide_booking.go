package booking

import (
	"context"
	"log/slog"
	"strings"

	"depositrent/internal/app/commands"
	"depositrent/internal/app/dto"
	handlersupport "depositrent/internal/app/handlers/support"
	"depositrent/internal/app/outbox"
	"depositrent/internal/app/policies"
	"depositrent/internal/clock"
	domainbooking "depositrent/internal/domain/booking"
)

const (
	approveBookingKey = "booking.approve"
	rejectBookingKey  = "booking.reject"

	templateApproved = policies.TemplateBookingApproved
	templateRejected = policies.TemplateBookingRejected
)

type ApproveBookingCommand struct {
	Actor     policies.Actor
	BookingID string `validate:"required"`
}

func (c ApproveBookingCommand) Key() string            { return approveBookingKey }
func (c ApproveBookingCommand) Caller() policies.Actor { return c.Actor }
func (c ApproveBookingCommand) AdminOnly()             {}

type RejectBookingCommand struct {
	Actor     policies.Actor
	BookingID string `validate:"required"`
	Message   string
}

func (c RejectBookingCommand) Key() string            { return rejectBookingKey }
func (c RejectBookingCommand) Caller() policies.Actor { return c.Actor }
func (c RejectBookingCommand) AdminOnly()             {}

// DecisionHandlers approve or reject pending bookings and notify the client.
// A notification failure does not undo the decision.
type DecisionHandlers struct {
	Clock    clock.Clock
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Notifier policies.Notifier
	Logger   *slog.Logger
}

func (h *DecisionHandlers) Approve(ctx context.Context, cmd ApproveBookingCommand) (*dto.BookingView, error) {
	unit, err := handlersupport.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(strings.TrimSpace(cmd.BookingID)))
	if err != nil {
		return nil, err
	}
	if err := booking.Approve(now(h.Clock)); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := outbox.Record(ctx, h.Outbox, h.Encoder, booking); err != nil {
		return nil, err
	}
	view := dto.MapBooking(booking)
	logger(h.Logger).InfoContext(ctx, "booking approved", "booking_id", booking.ID, "deposit", booking.DepositName)
	h.notify(ctx, booking.ClientID, templateApproved, view)
	return &view, nil
}

func (h *DecisionHandlers) Reject(ctx context.Context, cmd RejectBookingCommand) (*dto.BookingView, error) {
	unit, err := handlersupport.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(strings.TrimSpace(cmd.BookingID)))
	if err != nil {
		return nil, err
	}
	dep, err := unit.Deposits().ByName(ctx, booking.DepositName)
	if err != nil {
		return nil, err
	}
	if err := booking.Reject(dep, cmd.Message, now(h.Clock)); err != nil {
		return nil, err
	}
	if err := unit.Deposits().Save(ctx, dep); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := outbox.Record(ctx, h.Outbox, h.Encoder, dep, booking); err != nil {
		return nil, err
	}
	view := dto.MapBooking(booking)
	logger(h.Logger).InfoContext(ctx, "booking rejected", "booking_id", booking.ID, "deposit", booking.DepositName, "message", booking.Message)
	h.notify(ctx, booking.ClientID, templateRejected, view)
	return &view, nil
}

func (h *DecisionHandlers) notify(ctx context.Context, to, template string, view dto.BookingView) {
	if h.Notifier == nil {
		return
	}
	if err := h.Notifier.Send(ctx, to, template, view); err != nil {
		logger(h.Logger).WarnContext(ctx, "booking notification failed", "booking_id", view.ID, "template", template, "error", err)
	}
}

func RegisterCommands(reg *commands.Registry, request *RequestBookingHandler, decisions *DecisionHandlers) {
	commands.Register[RequestBookingCommand, *dto.BookingView](reg, request)
	commands.Register[ApproveBookingCommand, *dto.BookingView](reg, commands.HandlerFunc[ApproveBookingCommand, *dto.BookingView](decisions.Approve))
	commands.Register[RejectBookingCommand, *dto.BookingView](reg, commands.HandlerFunc[RejectBookingCommand, *dto.BookingView](decisions.Reject))
}
