package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"depositrent/internal/domain/deposits"
	"depositrent/internal/domain/shared/daterange"
	"depositrent/internal/domain/shared/events"
)

var (
	ErrSameDay                 = errors.New("booking: start and end must be different days")
	ErrStartInPast             = errors.New("booking: start must not be before today")
	ErrDepositUnavailable      = errors.New("booking: deposit is not available for the requested period")
	ErrDepositRequired         = errors.New("booking: deposit is required")
	ErrDepositMismatch         = errors.New("booking: deposit does not own this booking")
	ErrClientRequired          = errors.New("booking: client is required")
	ErrEmptyRejectionMessage   = errors.New("booking: rejection message is required")
	ErrBookingAlreadyFinalized = errors.New("booking: already approved or rejected")
	ErrBookingNotFound         = errors.New("booking: not found")
)

type BookingID string

type Stage string

const (
	StagePending  Stage = "Pending"
	StageApproved Stage = "Approved"
	StageRejected Stage = "Rejected"
)

func (s Stage) Final() bool {
	return s == StageApproved || s == StageRejected
}

type Booking struct {
	ID          BookingID
	DepositName deposits.Name
	ClientID    string
	Duration    daterange.DateRange
	Stage       Stage
	Message     string
	Payment     *Payment
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int64
	events.EventRecorder
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	ClientID    string
	DepositName deposits.Name
	Stage       Stage
}

func (f Filter) Matches(b *Booking) bool {
	if f.ClientID != "" && b.ClientID != f.ClientID {
		return false
	}
	if f.DepositName != "" && b.DepositName != f.DepositName {
		return false
	}
	if f.Stage != "" && b.Stage != f.Stage {
		return false
	}
	return true
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	List(ctx context.Context, filter Filter) ([]*Booking, error)
}

// PriceCalculator is satisfied by pricing.Calculator.
type PriceCalculator interface {
	CalculatePrice(dep *deposits.Deposit, start, end time.Time) (float64, error)
}

type CreateParams struct {
	ID       BookingID
	Deposit  *deposits.Deposit
	ClientID string
	Start    time.Time
	End      time.Time
	Payment  *Payment
	Now      time.Time
}

// NewBooking validates the requested period and, on success, books it on the
// deposit. A booking never exists without its period reserved.
func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("booking: id is required")
	}
	if params.Deposit == nil {
		return nil, ErrDepositRequired
	}
	if strings.TrimSpace(params.ClientID) == "" {
		return nil, ErrClientRequired
	}
	duration, err := daterange.New(params.Start, params.End)
	if err != nil {
		return nil, err
	}
	if duration.Start.Equal(duration.End) {
		return nil, ErrSameDay
	}
	now := params.Now.UTC()
	if duration.Start.Before(daterange.Day(now)) {
		return nil, ErrStartInPast
	}
	if !params.Deposit.IsAvailable(duration) {
		return nil, fmt.Errorf("%w: %s on %q", ErrDepositUnavailable, duration, params.Deposit.Name)
	}
	if err := params.Deposit.MakeUnavailable(duration, now); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDepositUnavailable, err)
	}

	b := &Booking{
		ID:          params.ID,
		DepositName: params.Deposit.Name,
		ClientID:    strings.TrimSpace(params.ClientID),
		Duration:    duration,
		Stage:       StagePending,
		Payment:     params.Payment,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	requested := BookingRequested{BookingID: b.ID, Deposit: b.DepositName, ClientID: b.ClientID, Duration: duration, At: now}
	if b.Payment != nil {
		requested.Amount = b.Payment.Amount
	}
	b.Record(requested)
	return b, nil
}

// Approve finalises a pending booking and captures its payment. The period
// stays booked.
func (b *Booking) Approve(now time.Time) error {
	if b.Stage.Final() {
		return ErrBookingAlreadyFinalized
	}
	if b.Payment != nil {
		if err := b.Payment.Capture(); err != nil {
			return err
		}
	}
	b.Stage = StageApproved
	b.UpdatedAt = now.UTC()
	b.Record(BookingApproved{BookingID: b.ID, Deposit: b.DepositName, ClientID: b.ClientID, Duration: b.Duration, At: b.UpdatedAt})
	return nil
}

// Reject finalises a pending booking, returns its period to the deposit and
// drops the payment. dep must be the deposit the booking was made on.
func (b *Booking) Reject(dep *deposits.Deposit, message string, now time.Time) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyRejectionMessage
	}
	if b.Stage.Final() {
		return ErrBookingAlreadyFinalized
	}
	if dep == nil || dep.Name != b.DepositName {
		return ErrDepositMismatch
	}
	if err := dep.MakeAvailable(b.Duration, now); err != nil {
		return err
	}
	b.Stage = StageRejected
	b.Message = message
	b.Payment = nil
	b.UpdatedAt = now.UTC()
	b.Record(BookingRejected{BookingID: b.ID, Deposit: b.DepositName, ClientID: b.ClientID, Duration: b.Duration, Message: message, At: b.UpdatedAt})
	return nil
}

// CalculatePrice asks calc for the current price of this booking's period;
// nothing is cached on the booking.
func (b *Booking) CalculatePrice(calc PriceCalculator, dep *deposits.Deposit) (float64, error) {
	if dep == nil || dep.Name != b.DepositName {
		return 0, ErrDepositMismatch
	}
	return calc.CalculatePrice(dep, b.Duration.Start, b.Duration.End)
}

// Clone returns a deep copy without pending events.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	out := &Booking{
		ID:          b.ID,
		DepositName: b.DepositName,
		ClientID:    b.ClientID,
		Duration:    b.Duration,
		Stage:       b.Stage,
		Message:     b.Message,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
		Version:     b.Version,
	}
	if b.Payment != nil {
		p := *b.Payment
		out.Payment = &p
	}
	return out
}
