package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	appoutbox "depositrent/internal/app/outbox"
	"depositrent/internal/app/uow"
	domainbooking "depositrent/internal/domain/booking"
	domaindeposits "depositrent/internal/domain/deposits"
	domainuser "depositrent/internal/domain/user"
)

var (
	ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")
	ErrUnitClosed           = errors.New("memory: unit of work already closed")
	ErrReadOnly             = errors.New("memory: unit of work is read-only")
)

// Factory opens units over a shared Store. Committed outbox records are
// handed to Outbox when it is set.
type Factory struct {
	Store  *Store
	Outbox *Outbox
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{store: f.Store, outbox: f.Outbox, readOnly: opts.ReadOnly, staged: newChanges()}, nil
}

type changes struct {
	deposits map[domaindeposits.Name]*domaindeposits.Deposit
	bookings map[domainbooking.BookingID]*domainbooking.Booking
	users    map[domainuser.ID]*domainuser.User
	registry *domainuser.Registry
	records  []appoutbox.EventRecord
}

func newChanges() *changes {
	return &changes{
		deposits: make(map[domaindeposits.Name]*domaindeposits.Deposit),
		bookings: make(map[domainbooking.BookingID]*domainbooking.Booking),
		users:    make(map[domainuser.ID]*domainuser.User),
	}
}

// Unit stages writes and applies them atomically on Commit. Reads see the
// unit's own staged writes first. Every aggregate handed out is a copy.
type Unit struct {
	store    *Store
	outbox   *Outbox
	readOnly bool

	mu     sync.Mutex
	staged *changes
	closed bool
}

func (u *Unit) Deposits() domaindeposits.Repository     { return depositRepository{u} }
func (u *Unit) Bookings() domainbooking.Repository      { return bookingRepository{u} }
func (u *Unit) Users() domainuser.Repository            { return userRepository{u} }
func (u *Unit) Registry() domainuser.RegistryRepository { return registryRepository{u} }

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return ErrUnitClosed
	}
	u.closed = true
	if u.readOnly {
		return nil
	}
	if err := u.store.apply(u.staged); err != nil {
		return err
	}
	if u.outbox != nil && len(u.staged.records) > 0 {
		u.outbox.enqueue(u.staged.records)
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.closed = true
	u.staged = newChanges()
	return nil
}

func (u *Unit) stage(fn func(c *changes)) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return ErrUnitClosed
	}
	if u.readOnly {
		return ErrReadOnly
	}
	fn(u.staged)
	return nil
}

func (u *Unit) addRecord(rec appoutbox.EventRecord) error {
	return u.stage(func(c *changes) { c.records = append(c.records, rec) })
}

type depositRepository struct{ u *Unit }

func (r depositRepository) ByName(ctx context.Context, name domaindeposits.Name) (*domaindeposits.Deposit, error) {
	r.u.mu.Lock()
	staged, ok := r.u.staged.deposits[name]
	r.u.mu.Unlock()
	if ok {
		return staged.Clone(), nil
	}
	if dep, ok := r.u.store.deposit(name); ok {
		return dep, nil
	}
	return nil, domaindeposits.ErrDepositNotFound
}

func (r depositRepository) Save(ctx context.Context, dep *domaindeposits.Deposit) error {
	if dep == nil {
		return domaindeposits.ErrInvalidName
	}
	snapshot := dep.Clone()
	return r.u.stage(func(c *changes) { c.deposits[snapshot.Name] = snapshot })
}

func (r depositRepository) List(ctx context.Context) ([]*domaindeposits.Deposit, error) {
	byName := make(map[domaindeposits.Name]*domaindeposits.Deposit)
	for _, dep := range r.u.store.depositList() {
		byName[dep.Name] = dep
	}
	r.u.mu.Lock()
	for name, dep := range r.u.staged.deposits {
		byName[name] = dep.Clone()
	}
	r.u.mu.Unlock()
	out := make([]*domaindeposits.Deposit, 0, len(byName))
	for _, dep := range byName {
		out = append(out, dep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type bookingRepository struct{ u *Unit }

func (r bookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.u.mu.Lock()
	staged, ok := r.u.staged.bookings[id]
	r.u.mu.Unlock()
	if ok {
		return staged.Clone(), nil
	}
	if b, ok := r.u.store.booking(id); ok {
		return b, nil
	}
	return nil, domainbooking.ErrBookingNotFound
}

func (r bookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	if b == nil {
		return domainbooking.ErrBookingNotFound
	}
	snapshot := b.Clone()
	return r.u.stage(func(c *changes) { c.bookings[snapshot.ID] = snapshot })
}

func (r bookingRepository) List(ctx context.Context, filter domainbooking.Filter) ([]*domainbooking.Booking, error) {
	byID := make(map[domainbooking.BookingID]*domainbooking.Booking)
	for _, b := range r.u.store.bookingList() {
		byID[b.ID] = b
	}
	r.u.mu.Lock()
	for id, b := range r.u.staged.bookings {
		byID[id] = b.Clone()
	}
	r.u.mu.Unlock()
	out := make([]*domainbooking.Booking, 0, len(byID))
	for _, b := range byID {
		if filter.Matches(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type userRepository struct{ u *Unit }

func (r userRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	r.u.mu.Lock()
	staged, ok := r.u.staged.users[id]
	r.u.mu.Unlock()
	if ok {
		return cloneUser(staged), nil
	}
	if u, ok := r.u.store.user(id); ok {
		return u, nil
	}
	return nil, domainuser.ErrNotFound
}

func (r userRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	key := domainuser.NormalizeEmail(email)
	r.u.mu.Lock()
	for _, staged := range r.u.staged.users {
		if staged.Email == key {
			r.u.mu.Unlock()
			return cloneUser(staged), nil
		}
	}
	r.u.mu.Unlock()
	if u, ok := r.u.store.userByEmail(key); ok {
		return u, nil
	}
	return nil, domainuser.ErrNotFound
}

func (r userRepository) Save(ctx context.Context, user *domainuser.User) error {
	if user == nil || user.ID == "" {
		return domainuser.ErrIDRequired
	}
	if user.Email == "" {
		return domainuser.ErrEmailRequired
	}
	snapshot := cloneUser(user)
	return r.u.stage(func(c *changes) { c.users[snapshot.ID] = snapshot })
}

type registryRepository struct{ u *Unit }

func (r registryRepository) Load(ctx context.Context) (*domainuser.Registry, error) {
	r.u.mu.Lock()
	staged := r.u.staged.registry
	r.u.mu.Unlock()
	if staged != nil {
		reg := *staged
		return &reg, nil
	}
	return r.u.store.loadRegistry(), nil
}

func (r registryRepository) Save(ctx context.Context, registry *domainuser.Registry) error {
	snapshot := *registry
	return r.u.stage(func(c *changes) { c.registry = &snapshot })
}

var (
	_ uow.UoWFactory = Factory{}
	_ uow.UnitOfWork = (*Unit)(nil)
)
