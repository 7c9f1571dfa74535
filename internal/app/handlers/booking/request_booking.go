package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"depositrent/internal/app/commands"
	"depositrent/internal/app/dto"
	handlersupport "depositrent/internal/app/handlers/support"
	"depositrent/internal/app/middleware"
	"depositrent/internal/app/outbox"
	"depositrent/internal/app/policies"
	"depositrent/internal/clock"
	domainbooking "depositrent/internal/domain/booking"
	domaindeposits "depositrent/internal/domain/deposits"
	"depositrent/internal/domain/shared/daterange"
)

const requestBookingKey = "booking.request"

var ErrPricingRequired = errors.New("booking: pricing port required")

type RequestBookingCommand struct {
	Actor           policies.Actor
	CommandID       string
	Deposit         string    `validate:"required"`
	Start           time.Time `validate:"required"`
	End             time.Time `validate:"required"`
	IdempotencyKeyV string    `validate:"max=128"`
}

func (c RequestBookingCommand) Key() string              { return requestBookingKey }
func (c RequestBookingCommand) Caller() policies.Actor   { return c.Actor }
func (c RequestBookingCommand) DepositKey() string       { return strings.TrimSpace(c.Deposit) }
func (c RequestBookingCommand) IdempotencyKey() string   { return c.IdempotencyKeyV }
func (c RequestBookingCommand) ResultPrototype() any     { return &dto.BookingView{} }
func (c RequestBookingCommand) IdempotencyScope() string { return c.Actor.UserID }

// RequestBookingHandler reserves the period on the deposit and records a
// pending booking that carries the quoted price as its payment.
type RequestBookingHandler struct {
	Clock   clock.Clock
	Pricing policies.PricingPort
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
}

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*dto.BookingView, error) {
	if h.Pricing == nil {
		return nil, ErrPricingRequired
	}
	unit, err := handlersupport.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	name, err := domaindeposits.ValidateName(cmd.Deposit)
	if err != nil {
		return nil, err
	}
	period, err := daterange.New(cmd.Start, cmd.End)
	if err != nil {
		return nil, err
	}
	dep, err := unit.Deposits().ByName(ctx, name)
	if err != nil {
		return nil, err
	}

	quote, err := h.Pricing.Quote(ctx, dep, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	payment, err := domainbooking.NewPayment(quote.Total)
	if err != nil {
		return nil, err
	}

	id := strings.TrimSpace(cmd.CommandID)
	if id == "" {
		id = uuid.NewString()
	}
	booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:       domainbooking.BookingID(id),
		Deposit:  dep,
		ClientID: cmd.Actor.UserID,
		Start:    period.Start,
		End:      period.End,
		Payment:  payment,
		Now:      now(h.Clock),
	})
	if err != nil {
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

	logger(h.Logger).InfoContext(ctx, "booking requested",
		"booking_id", booking.ID, "deposit", dep.Name, "client_id", booking.ClientID,
		"period", booking.Duration.String(), "amount", payment.Amount)

	view := dto.MapBooking(booking)
	return &view, nil
}

func now(c clock.Clock) time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c.Now()
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

var (
	_ commands.Handler[RequestBookingCommand, *dto.BookingView] = (*RequestBookingHandler)(nil)
	_ middleware.IdempotentCommand                              = RequestBookingCommand{}
	_ middleware.DepositScoped                                  = RequestBookingCommand{}
)
