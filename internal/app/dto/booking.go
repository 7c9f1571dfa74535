package dto

import (
	"time"

	domainbooking "depositrent/internal/domain/booking"
)

type PaymentView struct {
	Amount float64 `json:"amount"`
	Status string  `json:"status"`
}

type BookingView struct {
	ID        string       `json:"id"`
	Deposit   string       `json:"deposit"`
	ClientID  string       `json:"client_id"`
	Period    PeriodView   `json:"period"`
	Stage     string       `json:"stage"`
	Message   string       `json:"message,omitempty"`
	Payment   *PaymentView `json:"payment,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type BookingCollection struct {
	Items []BookingView `json:"items"`
}

func MapBooking(b *domainbooking.Booking) BookingView {
	view := BookingView{
		ID:        string(b.ID),
		Deposit:   string(b.DepositName),
		ClientID:  b.ClientID,
		Period:    MapPeriod(b.Duration),
		Stage:     string(b.Stage),
		Message:   b.Message,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.Payment != nil {
		view.Payment = &PaymentView{Amount: b.Payment.Amount, Status: string(b.Payment.Status)}
	}
	return view
}

func MapBookings(items []*domainbooking.Booking) BookingCollection {
	out := make([]BookingView, 0, len(items))
	for _, b := range items {
		out = append(out, MapBooking(b))
	}
	return BookingCollection{Items: out}
}
