package memory

import (
	"fmt"
	"sync"

	"depositrent/internal/app/uow"
	domainbooking "depositrent/internal/domain/booking"
	domaindeposits "depositrent/internal/domain/deposits"
	domainuser "depositrent/internal/domain/user"
)

// ErrConcurrentUpdate is returned by Commit when an aggregate changed after
// the unit read it.
var ErrConcurrentUpdate = fmt.Errorf("memory: %w", uow.ErrConcurrentUpdate)

// Store holds committed state. Units read from it and apply their staged
// changes to it on Commit.
type Store struct {
	mu       sync.RWMutex
	deposits map[domaindeposits.Name]*domaindeposits.Deposit
	bookings map[domainbooking.BookingID]*domainbooking.Booking
	users    map[domainuser.ID]*domainuser.User
	emails   map[string]domainuser.ID
	registry domainuser.Registry
}

func NewStore() *Store {
	return &Store{
		deposits: make(map[domaindeposits.Name]*domaindeposits.Deposit),
		bookings: make(map[domainbooking.BookingID]*domainbooking.Booking),
		users:    make(map[domainuser.ID]*domainuser.User),
		emails:   make(map[string]domainuser.ID),
	}
}

func (s *Store) deposit(name domaindeposits.Name) (*domaindeposits.Deposit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dep, ok := s.deposits[name]
	if !ok {
		return nil, false
	}
	return dep.Clone(), true
}

func (s *Store) depositList() []*domaindeposits.Deposit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domaindeposits.Deposit, 0, len(s.deposits))
	for _, dep := range s.deposits {
		out = append(out, dep.Clone())
	}
	return out
}

func (s *Store) booking(id domainbooking.BookingID) (*domainbooking.Booking, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

func (s *Store) bookingList() []*domainbooking.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, b.Clone())
	}
	return out
}

func (s *Store) user(id domainuser.ID) (*domainuser.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, false
	}
	return cloneUser(u), true
}

func (s *Store) userByEmail(email string) (*domainuser.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return nil, false
	}
	return cloneUser(s.users[id]), true
}

func (s *Store) loadRegistry() *domainuser.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg := s.registry
	return &reg
}

// apply checks every staged version against committed state and, only if all
// match, writes the whole change set.
func (s *Store) apply(c *changes) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, dep := range c.deposits {
		if current, ok := s.deposits[name]; ok && current.Version != dep.Version {
			return ErrConcurrentUpdate
		} else if !ok && dep.Version != 0 {
			return ErrConcurrentUpdate
		}
	}
	for id, b := range c.bookings {
		if current, ok := s.bookings[id]; ok && current.Version != b.Version {
			return ErrConcurrentUpdate
		} else if !ok && b.Version != 0 {
			return ErrConcurrentUpdate
		}
	}
	for _, u := range c.users {
		if owner, ok := s.emails[u.Email]; ok && owner != u.ID {
			return domainuser.ErrEmailAlreadyUsed
		}
	}
	if c.registry != nil && c.registry.Version != s.registry.Version {
		return ErrConcurrentUpdate
	}

	for name, dep := range c.deposits {
		stored := dep.Clone()
		stored.Version++
		s.deposits[name] = stored
	}
	for id, b := range c.bookings {
		stored := b.Clone()
		stored.Version++
		s.bookings[id] = stored
	}
	for id, u := range c.users {
		if previous, ok := s.users[id]; ok && previous.Email != u.Email {
			delete(s.emails, previous.Email)
		}
		s.users[id] = cloneUser(u)
		s.emails[u.Email] = id
	}
	if c.registry != nil {
		s.registry = *c.registry
		s.registry.Version++
	}
	return nil
}

func cloneUser(u *domainuser.User) *domainuser.User {
	if u == nil {
		return nil
	}
	out := *u
	return &out
}
