package uow

import (
	"context"
	"errors"

	domainbooking "depositrent/internal/domain/booking"
	domaindeposits "depositrent/internal/domain/deposits"
	domainuser "depositrent/internal/domain/user"
)

var (
	ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")
	// ErrConcurrentUpdate is wrapped by stores whose commit lost a race with
	// another unit.
	ErrConcurrentUpdate = errors.New("uow: concurrent update")
)

// UnitOfWork groups the repositories one command may touch; nothing becomes
// visible to other units before Commit.
type UnitOfWork interface {
	Deposits() domaindeposits.Repository
	Bookings() domainbooking.Repository
	Users() domainuser.Repository
	Registry() domainuser.RegistryRepository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units that need their own state (such as
// a database session) carried in the context.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}

type ctxKey struct{}

func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(ctxKey{}).(UnitOfWork)
	return unit, ok
}

// Bind returns ctx carrying unit, including any state the unit injects.
func Bind(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(ContextInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	return ContextWithUnitOfWork(ctx, unit)
}
