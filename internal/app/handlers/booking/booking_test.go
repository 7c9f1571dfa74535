package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"depositrent/internal/app/commands"
	"depositrent/internal/app/dto"
	"depositrent/internal/app/middleware"
	"depositrent/internal/app/policies"
	"depositrent/internal/app/queries"
	"depositrent/internal/app/uow"
	"depositrent/internal/clock"
	domainbooking "depositrent/internal/domain/booking"
	domaindeposits "depositrent/internal/domain/deposits"
	domainpricing "depositrent/internal/domain/pricing"
	"depositrent/internal/domain/shared/daterange"
	domainuser "depositrent/internal/domain/user"
	"depositrent/internal/infra/storage/memory"
)

var (
	today = time.Date(2030, 6, 1, 8, 30, 0, 0, time.UTC)
	admin = policies.Actor{UserID: "admin", Role: domainuser.RoleAdministrator}
	alice = policies.Actor{UserID: "alice", Role: domainuser.RoleClient}
	bob   = policies.Actor{UserID: "bob", Role: domainuser.RoleClient}
	jun   = func(d int) time.Time { return time.Date(2030, 6, d, 0, 0, 0, 0, time.UTC) }
)

type notifierMock struct {
	mock.Mock
}

func (m *notifierMock) Send(ctx context.Context, to string, template string, data any) error {
	return m.Called(to, template).Error(0)
}

type harness struct {
	store    *memory.Store
	factory  memory.Factory
	box      *memory.Outbox
	notifier *notifierMock
	bus      commands.Bus
	queries  queries.Bus
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{store: memory.NewStore(), box: memory.NewOutbox(), notifier: new(notifierMock)}
	h.factory = memory.Factory{Store: h.store, Outbox: h.box}
	clk := clock.NewManual(today)

	reg := commands.NewRegistry()
	RegisterCommands(reg,
		&RequestBookingHandler{Clock: clk, Pricing: policies.CalculatorPricing{Calculator: domainpricing.NewCalculator()}, Outbox: h.box},
		&DecisionHandlers{Clock: clk, Outbox: h.box, Notifier: h.notifier},
	)
	h.bus = middleware.ChainCommands(reg,
		middleware.Authorization(policies.RoleAuthorizer{}),
		middleware.DepositLock(memory.NewKeyedLocker()),
		middleware.Idempotency(memory.NewIdempotencyStore(), nil),
		middleware.Transaction(h.factory, nil),
	)

	qreg := queries.NewRegistry()
	RegisterQueries(qreg, &QueryHandlers{UoWFactory: h.factory})
	h.queries = middleware.ChainQueries(qreg, middleware.QueryAuthorization(policies.RoleAuthorizer{}))

	h.seedDeposit(t, "North", daterange.Must(jun(1), jun(30)))
	return h
}

func (h *harness) seedDeposit(t *testing.T, name string, open daterange.DateRange) {
	t.Helper()
	ctx := context.Background()
	unit, err := h.factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	dep, err := domaindeposits.NewDeposit(domaindeposits.CreateParams{Name: name, Area: "A", Size: "Small", Now: today})
	require.NoError(t, err)
	require.NoError(t, dep.AddAvailabilityPeriod(open, today))
	require.NoError(t, unit.Deposits().Save(ctx, dep))
	require.NoError(t, unit.Commit(ctx))
}

func (h *harness) deposit(t *testing.T, name domaindeposits.Name) *domaindeposits.Deposit {
	t.Helper()
	unit, err := h.factory.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	dep, err := unit.Deposits().ByName(context.Background(), name)
	require.NoError(t, err)
	return dep
}

func (h *harness) request(actor policies.Actor, start, end time.Time, key string) (*dto.BookingView, error) {
	return commands.Dispatch[RequestBookingCommand, *dto.BookingView](context.Background(), h.bus, RequestBookingCommand{
		Actor: actor, Deposit: "North", Start: start, End: end, IdempotencyKeyV: key,
	})
}

func TestRequestBookingReservesPeriod(t *testing.T) {
	h := newHarness(t)

	view, err := h.request(alice, jun(10), jun(17), "")
	require.NoError(t, err)

	assert.Equal(t, "Pending", view.Stage)
	assert.Equal(t, "alice", view.ClientID)
	require.NotNil(t, view.Payment)
	assert.InDelta(t, 50*7*0.95, view.Payment.Amount, 1e-9)
	assert.Equal(t, "Reserved", view.Payment.Status)

	dep := h.deposit(t, "North")
	assert.Equal(t, []daterange.DateRange{daterange.Must(jun(10), jun(17))}, dep.Availability.Unavailable())
	assert.False(t, dep.IsAvailable(daterange.Must(jun(12), jun(13))))
	assert.Equal(t, 2, h.box.Pending())
}

func TestRequestBookingFailuresLeaveNoTrace(t *testing.T) {
	h := newHarness(t)
	_, err := h.request(alice, jun(10), jun(12), "")
	require.NoError(t, err)

	cases := []struct {
		name       string
		actor      policies.Actor
		start, end time.Time
		want       error
	}{
		{"overlapping", bob, jun(11), jun(14), domainbooking.ErrDepositUnavailable},
		{"outside open period", bob, time.Date(2030, 7, 2, 0, 0, 0, 0, time.UTC), time.Date(2030, 7, 4, 0, 0, 0, 0, time.UTC), domainbooking.ErrDepositUnavailable},
		{"same day", bob, jun(20), jun(20), domainbooking.ErrSameDay},
		{"reversed", bob, jun(22), jun(20), daterange.ErrInvalidRange},
		{"anonymous", policies.Actor{}, jun(20), jun(22), policies.ErrUnauthenticated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.request(tc.actor, tc.start, tc.end, "")
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.Len(t, h.deposit(t, "North").Availability.Unavailable(), 1)
	assert.Equal(t, 2, h.box.Pending())
}

func TestRequestBookingInPast(t *testing.T) {
	h := newHarness(t)
	h.seedDeposit(t, "South", daterange.Must(jun(1).AddDate(0, -1, 0), jun(30)))

	_, err := commands.Dispatch[RequestBookingCommand, *dto.BookingView](context.Background(), h.bus, RequestBookingCommand{
		Actor: alice, Deposit: "South", Start: today.AddDate(0, 0, -3), End: today.AddDate(0, 0, 2),
	})
	assert.ErrorIs(t, err, domainbooking.ErrStartInPast)
}

func TestRequestBookingIsIdempotent(t *testing.T) {
	h := newHarness(t)

	first, err := h.request(alice, jun(10), jun(12), "key-1")
	require.NoError(t, err)
	second, err := h.request(alice, jun(10), jun(12), "key-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	list, err := queries.Ask[ListBookingsQuery, dto.BookingCollection](context.Background(), h.queries, ListBookingsQuery{Actor: admin})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}

func TestConcurrentRequestsBookOnce(t *testing.T) {
	h := newHarness(t)

	var wg sync.WaitGroup
	results := make(chan error, 12)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.request(alice, jun(5), jun(9), "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domainbooking.ErrDepositUnavailable)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, h.deposit(t, "North").Availability.Unavailable(), 1)
}

func TestApproveBooking(t *testing.T) {
	h := newHarness(t)
	view, err := h.request(alice, jun(10), jun(12), "")
	require.NoError(t, err)
	h.notifier.On("Send", "alice", templateApproved).Return(nil).Once()

	_, err = commands.Dispatch[ApproveBookingCommand, *dto.BookingView](context.Background(), h.bus, ApproveBookingCommand{Actor: alice, BookingID: view.ID})
	assert.ErrorIs(t, err, policies.ErrForbidden)

	approved, err := commands.Dispatch[ApproveBookingCommand, *dto.BookingView](context.Background(), h.bus, ApproveBookingCommand{Actor: admin, BookingID: view.ID})
	require.NoError(t, err)
	assert.Equal(t, "Approved", approved.Stage)
	assert.Equal(t, "Captured", approved.Payment.Status)

	_, err = commands.Dispatch[ApproveBookingCommand, *dto.BookingView](context.Background(), h.bus, ApproveBookingCommand{Actor: admin, BookingID: view.ID})
	assert.ErrorIs(t, err, domainbooking.ErrBookingAlreadyFinalized)

	_, err = commands.Dispatch[RejectBookingCommand, *dto.BookingView](context.Background(), h.bus, RejectBookingCommand{Actor: admin, BookingID: view.ID, Message: "late"})
	assert.ErrorIs(t, err, domainbooking.ErrBookingAlreadyFinalized)

	assert.Len(t, h.deposit(t, "North").Availability.Unavailable(), 1)
	h.notifier.AssertExpectations(t)
}

func TestRejectBookingReleasesPeriod(t *testing.T) {
	h := newHarness(t)
	view, err := h.request(alice, jun(10), jun(12), "")
	require.NoError(t, err)

	_, err = commands.Dispatch[RejectBookingCommand, *dto.BookingView](context.Background(), h.bus, RejectBookingCommand{Actor: admin, BookingID: view.ID, Message: "  "})
	assert.ErrorIs(t, err, domainbooking.ErrEmptyRejectionMessage)
	assert.Len(t, h.deposit(t, "North").Availability.Unavailable(), 1)

	h.notifier.On("Send", "alice", templateRejected).Return(assert.AnError).Once()
	rejected, err := commands.Dispatch[RejectBookingCommand, *dto.BookingView](context.Background(), h.bus, RejectBookingCommand{Actor: admin, BookingID: view.ID, Message: "maintenance"})
	require.NoError(t, err)
	assert.Equal(t, "Rejected", rejected.Stage)
	assert.Equal(t, "maintenance", rejected.Message)
	assert.Nil(t, rejected.Payment)

	dep := h.deposit(t, "North")
	assert.Empty(t, dep.Availability.Unavailable())
	assert.True(t, dep.IsAvailable(daterange.Must(jun(1), jun(30))))
	h.notifier.AssertExpectations(t)

	rebooked, err := h.request(bob, jun(10), jun(12), "")
	require.NoError(t, err)
	assert.NotEqual(t, view.ID, rebooked.ID)
}

func TestBookingQueriesScopeClients(t *testing.T) {
	h := newHarness(t)
	mine, err := h.request(alice, jun(2), jun(4), "")
	require.NoError(t, err)
	_, err = h.request(bob, jun(6), jun(8), "")
	require.NoError(t, err)
	ctx := context.Background()

	got, err := queries.Ask[GetBookingQuery, dto.BookingView](ctx, h.queries, GetBookingQuery{Actor: alice, BookingID: mine.ID})
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)

	_, err = queries.Ask[GetBookingQuery, dto.BookingView](ctx, h.queries, GetBookingQuery{Actor: bob, BookingID: mine.ID})
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)

	_, err = queries.Ask[GetBookingQuery, dto.BookingView](ctx, h.queries, GetBookingQuery{BookingID: mine.ID})
	assert.ErrorIs(t, err, policies.ErrUnauthenticated)

	own, err := queries.Ask[ListBookingsQuery, dto.BookingCollection](ctx, h.queries, ListBookingsQuery{Actor: alice, ClientID: "bob"})
	require.NoError(t, err)
	require.Len(t, own.Items, 1)
	assert.Equal(t, "alice", own.Items[0].ClientID)

	all, err := queries.Ask[ListBookingsQuery, dto.BookingCollection](ctx, h.queries, ListBookingsQuery{Actor: admin, Deposit: "North", Stage: "Pending"})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	byBob, err := queries.Ask[ListBookingsQuery, dto.BookingCollection](ctx, h.queries, ListBookingsQuery{Actor: admin, ClientID: "bob"})
	require.NoError(t, err)
	assert.Len(t, byBob.Items, 1)
}
