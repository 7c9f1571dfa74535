package deposits

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"depositrent/internal/domain/availability"
	"depositrent/internal/domain/shared/daterange"
	"depositrent/internal/domain/shared/events"
)

var (
	ErrInvalidName              = errors.New("deposits: name must be 1-100 letters or spaces")
	ErrInvalidArea              = errors.New("deposits: area must be one of A, B, C, D, E")
	ErrInvalidSize              = errors.New("deposits: size must be Small, Medium or Large")
	ErrDepositNotFound          = errors.New("deposits: not found")
	ErrDepositExists            = errors.New("deposits: name already taken")
	ErrPromotionAlreadyAttached = errors.New("deposits: promotion already attached")
	ErrPromotionNotAttached     = errors.New("deposits: promotion not attached")
	ErrPromotionRequired        = errors.New("deposits: promotion required")
)

const maxNameLength = 100

// Name is the natural key of a deposit.
type Name string

type Area string

const (
	AreaA Area = "A"
	AreaB Area = "B"
	AreaC Area = "C"
	AreaD Area = "D"
	AreaE Area = "E"
)

func ParseArea(raw string) (Area, error) {
	area := Area(strings.ToUpper(strings.TrimSpace(raw)))
	switch area {
	case AreaA, AreaB, AreaC, AreaD, AreaE:
		return area, nil
	}
	return "", ErrInvalidArea
}

type Size string

const (
	SizeSmall  Size = "Small"
	SizeMedium Size = "Medium"
	SizeLarge  Size = "Large"
)

func ParseSize(raw string) (Size, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "small":
		return SizeSmall, nil
	case "medium":
		return SizeMedium, nil
	case "large":
		return SizeLarge, nil
	}
	return "", ErrInvalidSize
}

func (s Size) Valid() bool {
	return s == SizeSmall || s == SizeMedium || s == SizeLarge
}

type Deposit struct {
	Name           Name
	Area           Area
	Size           Size
	ClimateControl bool
	Promotions     []*Promotion
	Availability   *availability.Periods
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int64
	events.EventRecorder
}

type Repository interface {
	ByName(ctx context.Context, name Name) (*Deposit, error)
	Save(ctx context.Context, deposit *Deposit) error
	List(ctx context.Context) ([]*Deposit, error)
}

type CreateParams struct {
	Name           string
	Area           string
	Size           string
	ClimateControl bool
	Now            time.Time
}

func NewDeposit(params CreateParams) (*Deposit, error) {
	name, err := ValidateName(params.Name)
	if err != nil {
		return nil, err
	}
	area, err := ParseArea(params.Area)
	if err != nil {
		return nil, err
	}
	size, err := ParseSize(params.Size)
	if err != nil {
		return nil, err
	}
	now := params.Now.UTC()
	d := &Deposit{
		Name:           name,
		Area:           area,
		Size:           size,
		ClimateControl: params.ClimateControl,
		Availability:   availability.NewPeriods(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	d.Record(DepositCreated{Deposit: d.Name, Area: d.Area, Size: d.Size, ClimateControl: d.ClimateControl, At: now})
	return d, nil
}

// ValidateName accepts 1-100 characters made of letters and spaces, with at
// least one letter.
func ValidateName(raw string) (Name, error) {
	name := strings.TrimSpace(raw)
	if name == "" || len([]rune(name)) > maxNameLength {
		return "", ErrInvalidName
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && r != ' ' {
			return "", ErrInvalidName
		}
	}
	return Name(name), nil
}

func (d *Deposit) AddAvailabilityPeriod(r daterange.DateRange, now time.Time) error {
	if err := d.Availability.AddAvailabilityPeriod(r); err != nil {
		return err
	}
	d.touch(now)
	d.Record(AvailabilityOpened{Deposit: d.Name, Range: r, At: d.UpdatedAt})
	return nil
}

func (d *Deposit) RemoveAvailabilityPeriod(r daterange.DateRange, now time.Time) {
	d.Availability.RemoveAvailabilityPeriod(r)
	d.touch(now)
	d.Record(AvailabilityClosed{Deposit: d.Name, Range: r, At: d.UpdatedAt})
}

func (d *Deposit) IsAvailable(r daterange.DateRange) bool {
	return d.Availability.IsAvailable(r)
}

// MakeUnavailable books r. Callers check IsAvailable first.
func (d *Deposit) MakeUnavailable(r daterange.DateRange, now time.Time) error {
	if err := d.Availability.MakePeriodUnavailable(r); err != nil {
		return err
	}
	d.touch(now)
	d.Record(PeriodBooked{Deposit: d.Name, Range: r, At: d.UpdatedAt})
	return nil
}

// MakeAvailable releases a booked span back to the open set.
func (d *Deposit) MakeAvailable(r daterange.DateRange, now time.Time) error {
	if err := d.Availability.MakePeriodAvailable(r); err != nil {
		return err
	}
	d.touch(now)
	d.Record(PeriodReleased{Deposit: d.Name, Range: r, At: d.UpdatedAt})
	return nil
}

func (d *Deposit) AddPromotion(p *Promotion, now time.Time) error {
	if p == nil {
		return ErrPromotionRequired
	}
	if d.Promotion(p.ID) != nil {
		return ErrPromotionAlreadyAttached
	}
	d.Promotions = append(d.Promotions, p)
	d.touch(now)
	d.Record(PromotionAttached{Deposit: d.Name, PromotionID: p.ID, Discount: p.Discount, At: d.UpdatedAt})
	return nil
}

func (d *Deposit) RemovePromotion(id PromotionID, now time.Time) error {
	for i, p := range d.Promotions {
		if p.ID != id {
			continue
		}
		d.Promotions = append(d.Promotions[:i:i], d.Promotions[i+1:]...)
		d.touch(now)
		d.Record(PromotionDetached{Deposit: d.Name, PromotionID: id, At: d.UpdatedAt})
		return nil
	}
	return ErrPromotionNotAttached
}

func (d *Deposit) Promotion(id PromotionID) *Promotion {
	for _, p := range d.Promotions {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Clone returns a deep copy without pending events. Promotions are immutable
// and stay shared.
func (d *Deposit) Clone() *Deposit {
	if d == nil {
		return nil
	}
	out := &Deposit{
		Name:           d.Name,
		Area:           d.Area,
		Size:           d.Size,
		ClimateControl: d.ClimateControl,
		Promotions:     append([]*Promotion(nil), d.Promotions...),
		Availability:   d.Availability.Clone(),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
		Version:        d.Version,
	}
	if out.Availability == nil {
		out.Availability = availability.NewPeriods()
	}
	return out
}

func (d *Deposit) touch(now time.Time) {
	d.UpdatedAt = now.UTC()
}
