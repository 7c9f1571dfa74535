package deposits

import (
	"time"

	"depositrent/internal/domain/shared/daterange"
)

type DepositCreated struct {
	Deposit        Name
	Area           Area
	Size           Size
	ClimateControl bool
	At             time.Time
}

func (e DepositCreated) EventName() string     { return "deposit.created" }
func (e DepositCreated) AggregateID() string   { return string(e.Deposit) }
func (e DepositCreated) OccurredAt() time.Time { return e.At }

type AvailabilityOpened struct {
	Deposit Name
	Range   daterange.DateRange
	At      time.Time
}

func (e AvailabilityOpened) EventName() string     { return "deposit.availability_opened" }
func (e AvailabilityOpened) AggregateID() string   { return string(e.Deposit) }
func (e AvailabilityOpened) OccurredAt() time.Time { return e.At }

type AvailabilityClosed struct {
	Deposit Name
	Range   daterange.DateRange
	At      time.Time
}

func (e AvailabilityClosed) EventName() string     { return "deposit.availability_closed" }
func (e AvailabilityClosed) AggregateID() string   { return string(e.Deposit) }
func (e AvailabilityClosed) OccurredAt() time.Time { return e.At }

type PeriodBooked struct {
	Deposit Name
	Range   daterange.DateRange
	At      time.Time
}

func (e PeriodBooked) EventName() string     { return "deposit.period_booked" }
func (e PeriodBooked) AggregateID() string   { return string(e.Deposit) }
func (e PeriodBooked) OccurredAt() time.Time { return e.At }

type PeriodReleased struct {
	Deposit Name
	Range   daterange.DateRange
	At      time.Time
}

func (e PeriodReleased) EventName() string     { return "deposit.period_released" }
func (e PeriodReleased) AggregateID() string   { return string(e.Deposit) }
func (e PeriodReleased) OccurredAt() time.Time { return e.At }

type PromotionAttached struct {
	Deposit     Name
	PromotionID PromotionID
	Discount    int
	At          time.Time
}

func (e PromotionAttached) EventName() string     { return "deposit.promotion_attached" }
func (e PromotionAttached) AggregateID() string   { return string(e.Deposit) }
func (e PromotionAttached) OccurredAt() time.Time { return e.At }

type PromotionDetached struct {
	Deposit     Name
	PromotionID PromotionID
	At          time.Time
}

func (e PromotionDetached) EventName() string     { return "deposit.promotion_detached" }
func (e PromotionDetached) AggregateID() string   { return string(e.Deposit) }
func (e PromotionDetached) OccurredAt() time.Time { return e.At }
