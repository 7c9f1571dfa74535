package deposits

import (
	"errors"
	"strings"
	"unicode"

	"depositrent/internal/domain/shared/daterange"
)

var (
	ErrInvalidLabel    = errors.New("deposits: promotion label must be 1-20 letters, digits or spaces")
	ErrInvalidDiscount = errors.New("deposits: promotion discount must be between 5 and 70")
	ErrPromotionID     = errors.New("deposits: promotion id is required")
)

const (
	maxLabelLength = 20
	MinDiscount    = 5
	MaxDiscount    = 70
)

type PromotionID string

// Promotion is a percentage discount an administrator attaches to deposits.
// It does not change after NewPromotion.
type Promotion struct {
	ID       PromotionID
	Label    string
	Discount int
	Validity daterange.DateRange
}

type PromotionParams struct {
	ID       PromotionID
	Label    string
	Discount int
	Validity daterange.DateRange
}

func NewPromotion(params PromotionParams) (*Promotion, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrPromotionID
	}
	label := strings.TrimSpace(params.Label)
	if label == "" || len([]rune(label)) > maxLabelLength {
		return nil, ErrInvalidLabel
	}
	for _, r := range label {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' {
			return nil, ErrInvalidLabel
		}
	}
	if params.Discount < MinDiscount || params.Discount > MaxDiscount {
		return nil, ErrInvalidDiscount
	}
	if err := params.Validity.Validate(); err != nil {
		return nil, err
	}
	return &Promotion{
		ID:       params.ID,
		Label:    label,
		Discount: params.Discount,
		Validity: params.Validity,
	}, nil
}
