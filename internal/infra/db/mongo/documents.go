package mongo

import (
	"time"

	"depositrent/internal/domain/availability"
	domainauth "depositrent/internal/domain/auth"
	domainbooking "depositrent/internal/domain/booking"
	domaindeposits "depositrent/internal/domain/deposits"
	"depositrent/internal/domain/shared/daterange"
	domainuser "depositrent/internal/domain/user"
)

type rangeDocument struct {
	Start time.Time `bson:"start"`
	End   time.Time `bson:"end"`
}

func newRangeDocument(r daterange.DateRange) rangeDocument {
	return rangeDocument{Start: r.Start.UTC(), End: r.End.UTC()}
}

func (d rangeDocument) toRange() daterange.DateRange {
	return daterange.DateRange{Start: d.Start.UTC(), End: d.End.UTC()}
}

func newRangeDocuments(rs []daterange.DateRange) []rangeDocument {
	out := make([]rangeDocument, 0, len(rs))
	for _, r := range rs {
		out = append(out, newRangeDocument(r))
	}
	return out
}

func toRanges(docs []rangeDocument) []daterange.DateRange {
	out := make([]daterange.DateRange, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toRange())
	}
	return out
}

type promotionDocument struct {
	ID       string        `bson:"id"`
	Label    string        `bson:"label"`
	Discount int           `bson:"discount"`
	Validity rangeDocument `bson:"validity"`
}

type depositDocument struct {
	Name           string              `bson:"_id"`
	Area           string              `bson:"area"`
	Size           string              `bson:"size"`
	ClimateControl bool                `bson:"climate_control"`
	Promotions     []promotionDocument `bson:"promotions"`
	Available      []rangeDocument     `bson:"available"`
	Unavailable    []rangeDocument     `bson:"unavailable"`
	CreatedAt      time.Time           `bson:"created_at"`
	UpdatedAt      time.Time           `bson:"updated_at"`
	Version        int64               `bson:"version"`
}

func newDepositDocument(d *domaindeposits.Deposit) depositDocument {
	doc := depositDocument{
		Name:           string(d.Name),
		Area:           string(d.Area),
		Size:           string(d.Size),
		ClimateControl: d.ClimateControl,
		Promotions:     make([]promotionDocument, 0, len(d.Promotions)),
		Available:      []rangeDocument{},
		Unavailable:    []rangeDocument{},
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
		Version:        d.Version,
	}
	for _, p := range d.Promotions {
		doc.Promotions = append(doc.Promotions, promotionDocument{
			ID:       string(p.ID),
			Label:    p.Label,
			Discount: p.Discount,
			Validity: newRangeDocument(p.Validity),
		})
	}
	if d.Availability != nil {
		doc.Available = newRangeDocuments(d.Availability.Available())
		doc.Unavailable = newRangeDocuments(d.Availability.Unavailable())
	}
	return doc
}

func (d depositDocument) toAggregate() (*domaindeposits.Deposit, error) {
	periods, err := availability.Restore(toRanges(d.Available), toRanges(d.Unavailable))
	if err != nil {
		return nil, err
	}
	dep := &domaindeposits.Deposit{
		Name:           domaindeposits.Name(d.Name),
		Area:           domaindeposits.Area(d.Area),
		Size:           domaindeposits.Size(d.Size),
		ClimateControl: d.ClimateControl,
		Availability:   periods,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
		Version:        d.Version,
	}
	for _, p := range d.Promotions {
		dep.Promotions = append(dep.Promotions, &domaindeposits.Promotion{
			ID:       domaindeposits.PromotionID(p.ID),
			Label:    p.Label,
			Discount: p.Discount,
			Validity: p.Validity.toRange(),
		})
	}
	return dep, nil
}

type paymentDocument struct {
	Amount float64 `bson:"amount"`
	Status string  `bson:"status"`
}

type bookingDocument struct {
	ID        string           `bson:"_id"`
	Deposit   string           `bson:"deposit"`
	ClientID  string           `bson:"client_id"`
	Duration  rangeDocument    `bson:"duration"`
	Stage     string           `bson:"stage"`
	Message   string           `bson:"message,omitempty"`
	Payment   *paymentDocument `bson:"payment,omitempty"`
	CreatedAt time.Time        `bson:"created_at"`
	UpdatedAt time.Time        `bson:"updated_at"`
	Version   int64            `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	doc := bookingDocument{
		ID:        string(b.ID),
		Deposit:   string(b.DepositName),
		ClientID:  b.ClientID,
		Duration:  newRangeDocument(b.Duration),
		Stage:     string(b.Stage),
		Message:   b.Message,
		CreatedAt: b.CreatedAt.UTC(),
		UpdatedAt: b.UpdatedAt.UTC(),
		Version:   b.Version,
	}
	if b.Payment != nil {
		doc.Payment = &paymentDocument{Amount: b.Payment.Amount, Status: string(b.Payment.Status)}
	}
	return doc
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	b := &domainbooking.Booking{
		ID:          domainbooking.BookingID(d.ID),
		DepositName: domaindeposits.Name(d.Deposit),
		ClientID:    d.ClientID,
		Duration:    d.Duration.toRange(),
		Stage:       domainbooking.Stage(d.Stage),
		Message:     d.Message,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
		Version:     d.Version,
	}
	if d.Payment != nil {
		b.Payment = &domainbooking.Payment{Amount: d.Payment.Amount, Status: domainbooking.PaymentStatus(d.Payment.Status)}
	}
	return b
}

type userDocument struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name"`
	PasswordHash string    `bson:"password_hash"`
	Role         string    `bson:"role"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func newUserDocument(u *domainuser.User) userDocument {
	return userDocument{
		ID:           string(u.ID),
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         u.Role.String(),
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
}

func (d userDocument) toAggregate() (*domainuser.User, error) {
	role, err := domainuser.ParseRole(d.Role)
	if err != nil {
		return nil, err
	}
	return &domainuser.User{
		ID:           domainuser.ID(d.ID),
		Email:        d.Email,
		Name:         d.Name,
		PasswordHash: d.PasswordHash,
		Role:         role,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}, nil
}

const registryID = "registry"

type registryDocument struct {
	ID            string `bson:"_id"`
	AdminAssigned bool   `bson:"admin_assigned"`
	Version       int64  `bson:"version"`
}

type sessionDocument struct {
	Token     string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Role      string    `bson:"role"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

func newSessionDocument(s *domainauth.Session) sessionDocument {
	return sessionDocument{
		Token:     string(s.Token),
		UserID:    string(s.UserID),
		Role:      s.Role.String(),
		CreatedAt: s.CreatedAt.UTC(),
		ExpiresAt: s.ExpiresAt.UTC(),
	}
}

func (d sessionDocument) toSession() (*domainauth.Session, error) {
	role, err := domainuser.ParseRole(d.Role)
	if err != nil {
		return nil, err
	}
	return &domainauth.Session{
		Token:     domainauth.Token(d.Token),
		UserID:    domainuser.ID(d.UserID),
		Role:      role,
		CreatedAt: d.CreatedAt.UTC(),
		ExpiresAt: d.ExpiresAt.UTC(),
	}, nil
}
