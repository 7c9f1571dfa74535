package pricing

import (
	"errors"
	"fmt"
	"time"

	"depositrent/internal/domain/deposits"
	"depositrent/internal/domain/shared/daterange"
)

var (
	ErrInvalidSize    = errors.New("pricing: unknown deposit size")
	ErrDepositMissing = errors.New("pricing: deposit is required")
)

const (
	ClimateControlSurcharge = 20.0
	MaxDiscountPercent      = 100
)

var baseRates = map[deposits.Size]float64{
	deposits.SizeSmall:  50,
	deposits.SizeMedium: 75,
	deposits.SizeLarge:  100,
}

// Quote is the itemised result of a price calculation.
type Quote struct {
	PerDay            float64
	Days              int
	DurationDiscount  int
	PromotionDiscount int
	TotalDiscount     int
	Total             float64
}

// Calculator prices a stay on a deposit. It holds no state.
type Calculator struct{}

func NewCalculator() Calculator {
	return Calculator{}
}

func (c Calculator) CalculatePrice(dep *deposits.Deposit, start, end time.Time) (float64, error) {
	q, err := c.Quote(dep, start, end)
	if err != nil {
		return 0, err
	}
	return q.Total, nil
}

// Quote combines the size rate, the climate surcharge, the duration tier and
// every attached promotion. Days are counted exclusive of the start day.
func (c Calculator) Quote(dep *deposits.Deposit, start, end time.Time) (Quote, error) {
	if dep == nil {
		return Quote{}, ErrDepositMissing
	}
	perDay, err := PricePerDay(dep.Size, dep.ClimateControl)
	if err != nil {
		return Quote{}, err
	}
	span, err := daterange.New(start, end)
	if err != nil {
		return Quote{}, err
	}
	days := span.Days()
	durationDiscount := DurationDiscount(days)
	promotionDiscount := 0
	for _, promo := range dep.Promotions {
		promotionDiscount += promo.Discount
	}
	total := durationDiscount + promotionDiscount
	if total > MaxDiscountPercent {
		total = MaxDiscountPercent
	}
	return Quote{
		PerDay:            perDay,
		Days:              days,
		DurationDiscount:  durationDiscount,
		PromotionDiscount: promotionDiscount,
		TotalDiscount:     total,
		Total:             perDay * float64(days) * (1 - float64(total)/100),
	}, nil
}

func PricePerDay(size deposits.Size, climateControl bool) (float64, error) {
	rate, ok := baseRates[size]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, size)
	}
	if climateControl {
		rate += ClimateControlSurcharge
	}
	return rate, nil
}

// DurationDiscount is 0 below a week, 5 from 7 through 14 days, 10 beyond.
func DurationDiscount(days int) int {
	switch {
	case days > 14:
		return 10
	case days >= 7:
		return 5
	default:
		return 0
	}
}
