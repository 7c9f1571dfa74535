package booking

import "errors"

var (
	ErrInvalidAmount          = errors.New("booking: payment amount must not be negative")
	ErrPaymentAlreadyCaptured = errors.New("booking: payment already captured")
)

type PaymentStatus string

const (
	PaymentReserved PaymentStatus = "Reserved"
	PaymentCaptured PaymentStatus = "Captured"
)

// Payment holds the price quoted when the booking was requested.
type Payment struct {
	Amount float64
	Status PaymentStatus
}

func NewPayment(amount float64) (*Payment, error) {
	if amount < 0 {
		return nil, ErrInvalidAmount
	}
	return &Payment{Amount: amount, Status: PaymentReserved}, nil
}

func (p *Payment) Capture() error {
	if p.Status == PaymentCaptured {
		return ErrPaymentAlreadyCaptured
	}
	p.Status = PaymentCaptured
	return nil
}
