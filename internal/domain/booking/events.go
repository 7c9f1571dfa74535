package booking

import (
	"time"

	"depositrent/internal/domain/deposits"
	"depositrent/internal/domain/shared/daterange"
)

type BookingRequested struct {
	BookingID BookingID
	Deposit   deposits.Name
	ClientID  string
	Duration  daterange.DateRange
	Amount    float64
	At        time.Time
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingApproved struct {
	BookingID BookingID
	Deposit   deposits.Name
	ClientID  string
	Duration  daterange.DateRange
	At        time.Time
}

func (e BookingApproved) EventName() string     { return "booking.approved" }
func (e BookingApproved) AggregateID() string   { return string(e.BookingID) }
func (e BookingApproved) OccurredAt() time.Time { return e.At }

type BookingRejected struct {
	BookingID BookingID
	Deposit   deposits.Name
	ClientID  string
	Duration  daterange.DateRange
	Message   string
	At        time.Time
}

func (e BookingRejected) EventName() string     { return "booking.rejected" }
func (e BookingRejected) AggregateID() string   { return string(e.BookingID) }
func (e BookingRejected) OccurredAt() time.Time { return e.At }
