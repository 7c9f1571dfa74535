package dto

import (
	"time"

	domaindeposits "depositrent/internal/domain/deposits"
	domainpricing "depositrent/internal/domain/pricing"
	"depositrent/internal/domain/shared/daterange"
)

type PeriodView struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type PromotionView struct {
	ID       string     `json:"id"`
	Label    string     `json:"label"`
	Discount int        `json:"discount"`
	Validity PeriodView `json:"validity"`
}

type DepositView struct {
	Name           string          `json:"name"`
	Area           string          `json:"area"`
	Size           string          `json:"size"`
	ClimateControl bool            `json:"climate_control"`
	PricePerDay    float64         `json:"price_per_day"`
	Promotions     []PromotionView `json:"promotions"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type DepositCollection struct {
	Items []DepositView `json:"items"`
}

type CalendarView struct {
	Deposit     string       `json:"deposit"`
	Available   []PeriodView `json:"available"`
	Unavailable []PeriodView `json:"unavailable"`
}

type AvailabilityView struct {
	Deposit   string     `json:"deposit"`
	Period    PeriodView `json:"period"`
	Available bool       `json:"available"`
}

type QuoteView struct {
	Deposit           string     `json:"deposit"`
	Period            PeriodView `json:"period"`
	Days              int        `json:"days"`
	PricePerDay       float64    `json:"price_per_day"`
	DurationDiscount  int        `json:"duration_discount"`
	PromotionDiscount int        `json:"promotion_discount"`
	TotalDiscount     int        `json:"total_discount"`
	Total             float64    `json:"total"`
}

func MapPeriod(r daterange.DateRange) PeriodView {
	return PeriodView{Start: r.Start.Format(daterange.Layout), End: r.End.Format(daterange.Layout)}
}

func MapPeriods(ranges []daterange.DateRange) []PeriodView {
	out := make([]PeriodView, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, MapPeriod(r))
	}
	return out
}

func MapPromotion(p *domaindeposits.Promotion) PromotionView {
	return PromotionView{
		ID:       string(p.ID),
		Label:    p.Label,
		Discount: p.Discount,
		Validity: MapPeriod(p.Validity),
	}
}

func MapDeposit(d *domaindeposits.Deposit) DepositView {
	promotions := make([]PromotionView, 0, len(d.Promotions))
	for _, p := range d.Promotions {
		promotions = append(promotions, MapPromotion(p))
	}
	perDay, _ := domainpricing.PricePerDay(d.Size, d.ClimateControl)
	return DepositView{
		Name:           string(d.Name),
		Area:           string(d.Area),
		Size:           string(d.Size),
		ClimateControl: d.ClimateControl,
		PricePerDay:    perDay,
		Promotions:     promotions,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func MapCalendar(d *domaindeposits.Deposit) CalendarView {
	return CalendarView{
		Deposit:     string(d.Name),
		Available:   MapPeriods(d.Availability.Available()),
		Unavailable: MapPeriods(d.Availability.Unavailable()),
	}
}

func MapQuote(d *domaindeposits.Deposit, period daterange.DateRange, q domainpricing.Quote) QuoteView {
	return QuoteView{
		Deposit:           string(d.Name),
		Period:            MapPeriod(period),
		Days:              q.Days,
		PricePerDay:       q.PerDay,
		DurationDiscount:  q.DurationDiscount,
		PromotionDiscount: q.PromotionDiscount,
		TotalDiscount:     q.TotalDiscount,
		Total:             q.Total,
	}
}
