package policies

import (
	"context"
	"time"

	domaindeposits "depositrent/internal/domain/deposits"
	domainpricing "depositrent/internal/domain/pricing"
)

// PricingPort quotes a stay on a deposit.
type PricingPort interface {
	Quote(ctx context.Context, deposit *domaindeposits.Deposit, start, end time.Time) (domainpricing.Quote, error)
}

// CalculatorPricing serves PricingPort from the domain calculator.
type CalculatorPricing struct {
	Calculator domainpricing.Calculator
}

func (p CalculatorPricing) Quote(_ context.Context, deposit *domaindeposits.Deposit, start, end time.Time) (domainpricing.Quote, error) {
	return p.Calculator.Quote(deposit, start, end)
}

// Notification templates for booking decisions.
const (
	TemplateBookingApproved = "booking_approved"
	TemplateBookingRejected = "booking_rejected"
)

// Notifier tells a user about a decision on their booking.
type Notifier interface {
	Send(ctx context.Context, to string, template string, data any) error
}
