package deposits

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"depositrent/internal/app/dto"
	handlersupport "depositrent/internal/app/handlers/support"
	"depositrent/internal/app/policies"
	"depositrent/internal/app/queries"
	"depositrent/internal/app/uow"
	"depositrent/internal/domain/shared/daterange"
)

const (
	getDepositKey        = "deposits.get"
	listDepositsKey      = "deposits.list"
	getCalendarKey       = "deposits.calendar"
	checkAvailabilityKey = "deposits.availability.check"
	quotePriceKey        = "deposits.quote"
)

type GetDepositQuery struct {
	Name string `validate:"required"`
}

func (q GetDepositQuery) Key() string { return getDepositKey }

type ListDepositsQuery struct {
	Area string
	Size string
}

func (q ListDepositsQuery) Key() string { return listDepositsKey }

type GetCalendarQuery struct {
	Name string `validate:"required"`
}

func (q GetCalendarQuery) Key() string { return getCalendarKey }

type CheckAvailabilityQuery struct {
	Name  string    `validate:"required"`
	Start time.Time `validate:"required"`
	End   time.Time `validate:"required"`
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

type QuotePriceQuery struct {
	Name  string    `validate:"required"`
	Start time.Time `validate:"required"`
	End   time.Time `validate:"required"`
}

func (q QuotePriceQuery) Key() string { return quotePriceKey }

type QueryHandlers struct {
	UoWFactory uow.UoWFactory
	Pricing    policies.PricingPort
	Logger     *slog.Logger
}

func (h *QueryHandlers) GetDeposit(ctx context.Context, q GetDepositQuery) (dto.DepositView, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.DepositView{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	dep, err := loadDeposit(execCtx, unit, q.Name)
	if err != nil {
		return dto.DepositView{}, err
	}
	return dto.MapDeposit(dep), nil
}

func (h *QueryHandlers) ListDeposits(ctx context.Context, q ListDepositsQuery) (dto.DepositCollection, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.DepositCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	all, err := unit.Deposits().List(execCtx)
	if err != nil {
		return dto.DepositCollection{}, err
	}
	items := make([]dto.DepositView, 0, len(all))
	for _, dep := range all {
		view := dto.MapDeposit(dep)
		if q.Area != "" && !strings.EqualFold(view.Area, q.Area) {
			continue
		}
		if q.Size != "" && !strings.EqualFold(view.Size, q.Size) {
			continue
		}
		items = append(items, view)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	if h.Logger != nil {
		h.Logger.DebugContext(ctx, "deposits listed", "count", len(items))
	}
	return dto.DepositCollection{Items: items}, nil
}

func (h *QueryHandlers) GetCalendar(ctx context.Context, q GetCalendarQuery) (dto.CalendarView, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.CalendarView{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	dep, err := loadDeposit(execCtx, unit, q.Name)
	if err != nil {
		return dto.CalendarView{}, err
	}
	return dto.MapCalendar(dep), nil
}

func (h *QueryHandlers) CheckAvailability(ctx context.Context, q CheckAvailabilityQuery) (dto.AvailabilityView, error) {
	period, err := daterange.New(q.Start, q.End)
	if err != nil {
		return dto.AvailabilityView{}, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.AvailabilityView{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	dep, err := loadDeposit(execCtx, unit, q.Name)
	if err != nil {
		return dto.AvailabilityView{}, err
	}
	return dto.AvailabilityView{
		Deposit:   string(dep.Name),
		Period:    dto.MapPeriod(period),
		Available: dep.IsAvailable(period),
	}, nil
}

func (h *QueryHandlers) QuotePrice(ctx context.Context, q QuotePriceQuery) (dto.QuoteView, error) {
	period, err := daterange.New(q.Start, q.End)
	if err != nil {
		return dto.QuoteView{}, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.QuoteView{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	dep, err := loadDeposit(execCtx, unit, q.Name)
	if err != nil {
		return dto.QuoteView{}, err
	}
	quote, err := h.Pricing.Quote(execCtx, dep, period.Start, period.End)
	if err != nil {
		return dto.QuoteView{}, err
	}
	return dto.MapQuote(dep, period, quote), nil
}

func RegisterQueries(reg *queries.Registry, h *QueryHandlers) {
	queries.Register[GetDepositQuery, dto.DepositView](reg, queries.HandlerFunc[GetDepositQuery, dto.DepositView](h.GetDeposit))
	queries.Register[ListDepositsQuery, dto.DepositCollection](reg, queries.HandlerFunc[ListDepositsQuery, dto.DepositCollection](h.ListDeposits))
	queries.Register[GetCalendarQuery, dto.CalendarView](reg, queries.HandlerFunc[GetCalendarQuery, dto.CalendarView](h.GetCalendar))
	queries.Register[CheckAvailabilityQuery, dto.AvailabilityView](reg, queries.HandlerFunc[CheckAvailabilityQuery, dto.AvailabilityView](h.CheckAvailability))
	queries.Register[QuotePriceQuery, dto.QuoteView](reg, queries.HandlerFunc[QuotePriceQuery, dto.QuoteView](h.QuotePrice))
}
