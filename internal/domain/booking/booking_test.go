package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"depositrent/internal/domain/deposits"
	"depositrent/internal/domain/shared/daterange"
)

var today = time.Date(2030, time.June, 1, 8, 30, 0, 0, time.UTC)

func june(day int) time.Time {
	return daterange.Date(2030, time.June, day)
}

func openDeposit(t *testing.T) *deposits.Deposit {
	t.Helper()
	d, err := deposits.NewDeposit(deposits.CreateParams{Name: "Riverside", Area: "C", Size: "Small", Now: today})
	require.NoError(t, err)
	require.NoError(t, d.AddAvailabilityPeriod(daterange.Must(june(1), june(30)), today))
	d.ClearEvents()
	return d
}

func request(t *testing.T, d *deposits.Deposit, id string, start, end int, amount float64) *Booking {
	t.Helper()
	payment, err := NewPayment(amount)
	require.NoError(t, err)
	b, err := NewBooking(CreateParams{
		ID:       BookingID(id),
		Deposit:  d,
		ClientID: "client-1",
		Start:    june(start),
		End:      june(end),
		Payment:  payment,
		Now:      today,
	})
	require.NoError(t, err)
	return b
}

func TestNewBooking(t *testing.T) {
	t.Run("reserves the period on the deposit", func(t *testing.T) {
		d := openDeposit(t)
		b := request(t, d, "b1", 5, 8, 150)

		assert.Equal(t, StagePending, b.Stage)
		assert.Equal(t, PaymentReserved, b.Payment.Status)
		assert.Equal(t, deposits.Name("Riverside"), b.DepositName)
		assert.Equal(t, []daterange.DateRange{daterange.Must(june(5), june(8))}, d.Availability.Unavailable())
		assert.False(t, d.IsAvailable(daterange.Must(june(5), june(8))))
		require.Len(t, b.PendingEvents(), 1)
		assert.Equal(t, "booking.requested", b.PendingEvents()[0].EventName())
	})

	t.Run("starting today is allowed", func(t *testing.T) {
		d := openDeposit(t)
		request(t, d, "b1", 1, 2, 50)
	})

	t.Run("overlap with a booked span fails without side effects", func(t *testing.T) {
		d := openDeposit(t)
		request(t, d, "b1", 10, 15, 0)
		availableBefore := d.Availability.Available()
		unavailableBefore := d.Availability.Unavailable()

		_, err := NewBooking(CreateParams{ID: "b2", Deposit: d, ClientID: "client-2", Start: june(14), End: june(18), Now: today})

		assert.ErrorIs(t, err, ErrDepositUnavailable)
		assert.Equal(t, availableBefore, d.Availability.Available())
		assert.Equal(t, unavailableBefore, d.Availability.Unavailable())
	})

	cases := []struct {
		name   string
		params func(d *deposits.Deposit) CreateParams
		err    error
	}{
		{"same day", func(d *deposits.Deposit) CreateParams {
			return CreateParams{ID: "x", Deposit: d, ClientID: "c", Start: june(3), End: june(3), Now: today}
		}, ErrSameDay},
		{"in the past", func(d *deposits.Deposit) CreateParams {
			return CreateParams{ID: "x", Deposit: d, ClientID: "c", Start: june(1).AddDate(0, 0, -1), End: june(3), Now: today}
		}, ErrStartInPast},
		{"reversed", func(d *deposits.Deposit) CreateParams {
			return CreateParams{ID: "x", Deposit: d, ClientID: "c", Start: june(5), End: june(3), Now: today}
		}, daterange.ErrInvalidRange},
		{"outside open periods", func(d *deposits.Deposit) CreateParams {
			return CreateParams{ID: "x", Deposit: d, ClientID: "c", Start: june(28), End: time.Date(2030, 7, 2, 0, 0, 0, 0, time.UTC), Now: today}
		}, ErrDepositUnavailable},
		{"no deposit", func(*deposits.Deposit) CreateParams {
			return CreateParams{ID: "x", ClientID: "c", Start: june(3), End: june(4), Now: today}
		}, ErrDepositRequired},
		{"no client", func(d *deposits.Deposit) CreateParams {
			return CreateParams{ID: "x", Deposit: d, Start: june(3), End: june(4), Now: today}
		}, ErrClientRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := openDeposit(t)
			_, err := NewBooking(tc.params(d))
			assert.ErrorIs(t, err, tc.err)
			assert.Empty(t, d.Availability.Unavailable())
		})
	}
}

func TestApproveAndReject(t *testing.T) {
	t.Run("approve captures payment and keeps the period booked", func(t *testing.T) {
		d := openDeposit(t)
		b := request(t, d, "b1", 5, 8, 150)

		require.NoError(t, b.Approve(today))

		assert.Equal(t, StageApproved, b.Stage)
		assert.Equal(t, PaymentCaptured, b.Payment.Status)
		assert.Equal(t, []daterange.DateRange{daterange.Must(june(5), june(8))}, d.Availability.Unavailable())
	})

	t.Run("reject drops payment and reopens the exact period", func(t *testing.T) {
		d := openDeposit(t)
		approved := request(t, d, "b1", 5, 8, 150)
		require.NoError(t, approved.Approve(today))
		rejected := request(t, d, "b2", 12, 15, 150)

		require.NoError(t, rejected.Reject(d, "maintenance", today))

		assert.Equal(t, StageRejected, rejected.Stage)
		assert.Equal(t, "maintenance", rejected.Message)
		assert.Nil(t, rejected.Payment)
		assert.True(t, d.IsAvailable(daterange.Must(june(12), june(15))))
		assert.Equal(t, []daterange.DateRange{daterange.Must(june(5), june(8))}, d.Availability.Unavailable())
		assert.Equal(t, []daterange.DateRange{
			daterange.Must(june(1), june(4)),
			daterange.Must(june(9), june(30)),
		}, d.Availability.Available())
	})

	t.Run("terminal bookings refuse further transitions", func(t *testing.T) {
		d := openDeposit(t)
		b := request(t, d, "b1", 5, 8, 150)
		require.NoError(t, b.Approve(today))

		assert.ErrorIs(t, b.Approve(today), ErrBookingAlreadyFinalized)
		assert.ErrorIs(t, b.Reject(d, "late", today), ErrBookingAlreadyFinalized)

		r := request(t, d, "b2", 10, 12, 0)
		require.NoError(t, r.Reject(d, "no", today))
		assert.ErrorIs(t, r.Reject(d, "no", today), ErrBookingAlreadyFinalized)
		assert.ErrorIs(t, r.Approve(today), ErrBookingAlreadyFinalized)
	})

	t.Run("reject needs a message", func(t *testing.T) {
		d := openDeposit(t)
		b := request(t, d, "b1", 5, 8, 150)

		assert.ErrorIs(t, b.Reject(d, "   ", today), ErrEmptyRejectionMessage)
		assert.Equal(t, StagePending, b.Stage)
		assert.NotNil(t, b.Payment)
	})

	t.Run("reject against another deposit fails", func(t *testing.T) {
		d := openDeposit(t)
		b := request(t, d, "b1", 5, 8, 150)
		other, err := deposits.NewDeposit(deposits.CreateParams{Name: "Elsewhere", Area: "A", Size: "Large"})
		require.NoError(t, err)

		assert.ErrorIs(t, b.Reject(other, "wrong", today), ErrDepositMismatch)
		assert.Equal(t, StagePending, b.Stage)
	})
}

type calculatorMock struct {
	mock.Mock
}

func (m *calculatorMock) CalculatePrice(dep *deposits.Deposit, start, end time.Time) (float64, error) {
	args := m.Called(dep, start, end)
	return args.Get(0).(float64), args.Error(1)
}

func TestCalculatePriceDelegates(t *testing.T) {
	d := openDeposit(t)
	b := request(t, d, "b1", 5, 8, 0)
	calc := new(calculatorMock)
	calc.On("CalculatePrice", d, june(5), june(8)).Return(150.0, nil).Once()

	price, err := b.CalculatePrice(calc, d)

	require.NoError(t, err)
	assert.InDelta(t, 150, price, 1e-9)
	calc.AssertExpectations(t)
}

func TestPayment(t *testing.T) {
	_, err := NewPayment(-1)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	p, err := NewPayment(10)
	require.NoError(t, err)
	require.NoError(t, p.Capture())
	assert.ErrorIs(t, p.Capture(), ErrPaymentAlreadyCaptured)
}

func TestFilterAndClone(t *testing.T) {
	d := openDeposit(t)
	b := request(t, d, "b1", 5, 8, 10)

	assert.True(t, Filter{}.Matches(b))
	assert.True(t, Filter{ClientID: "client-1", DepositName: "Riverside", Stage: StagePending}.Matches(b))
	assert.False(t, Filter{Stage: StageApproved}.Matches(b))

	c := b.Clone()
	require.NoError(t, c.Payment.Capture())
	assert.Equal(t, PaymentReserved, b.Payment.Status)
	assert.Empty(t, c.PendingEvents())
}
