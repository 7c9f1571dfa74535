package booking

import (
	"context"
	"log/slog"
	"strings"

	"depositrent/internal/app/dto"
	handlersupport "depositrent/internal/app/handlers/support"
	"depositrent/internal/app/policies"
	"depositrent/internal/app/queries"
	"depositrent/internal/app/uow"
	domainbooking "depositrent/internal/domain/booking"
	domaindeposits "depositrent/internal/domain/deposits"
)

const (
	getBookingKey   = "booking.get"
	listBookingsKey = "booking.list"
)

type GetBookingQuery struct {
	Actor     policies.Actor
	BookingID string `validate:"required"`
}

func (q GetBookingQuery) Key() string            { return getBookingKey }
func (q GetBookingQuery) Caller() policies.Actor { return q.Actor }

// ListBookingsQuery filters bookings. Clients only ever see their own, so
// ClientID is ignored for them.
type ListBookingsQuery struct {
	Actor    policies.Actor
	ClientID string
	Deposit  string
	Stage    string `validate:"omitempty,oneof=Pending Approved Rejected"`
}

func (q ListBookingsQuery) Key() string            { return listBookingsKey }
func (q ListBookingsQuery) Caller() policies.Actor { return q.Actor }

type QueryHandlers struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *QueryHandlers) GetBooking(ctx context.Context, q GetBookingQuery) (dto.BookingView, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingView{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	booking, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(strings.TrimSpace(q.BookingID)))
	if err != nil {
		return dto.BookingView{}, err
	}
	if !q.Actor.IsAdministrator() && booking.ClientID != q.Actor.UserID {
		return dto.BookingView{}, domainbooking.ErrBookingNotFound
	}
	return dto.MapBooking(booking), nil
}

func (h *QueryHandlers) ListBookings(ctx context.Context, q ListBookingsQuery) (dto.BookingCollection, error) {
	filter := domainbooking.Filter{
		ClientID: strings.TrimSpace(q.ClientID),
		Stage:    domainbooking.Stage(q.Stage),
	}
	if !q.Actor.IsAdministrator() {
		filter.ClientID = q.Actor.UserID
	}
	if strings.TrimSpace(q.Deposit) != "" {
		name, err := domaindeposits.ValidateName(q.Deposit)
		if err != nil {
			return dto.BookingCollection{}, err
		}
		filter.DepositName = name
	}

	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	items, err := unit.Bookings().List(execCtx, filter)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if h.Logger != nil {
		h.Logger.DebugContext(ctx, "bookings listed", "client_id", filter.ClientID, "deposit", filter.DepositName, "count", len(items))
	}
	return dto.MapBookings(items), nil
}

func RegisterQueries(reg *queries.Registry, h *QueryHandlers) {
	queries.Register[GetBookingQuery, dto.BookingView](reg, queries.HandlerFunc[GetBookingQuery, dto.BookingView](h.GetBooking))
	queries.Register[ListBookingsQuery, dto.BookingCollection](reg, queries.HandlerFunc[ListBookingsQuery, dto.BookingCollection](h.ListBookings))
}
