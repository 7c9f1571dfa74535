package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"depositrent/internal/app/uow"
	domainbooking "depositrent/internal/domain/booking"
	domaindeposits "depositrent/internal/domain/deposits"
	domainuser "depositrent/internal/domain/user"
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database
}

// Begin starts a snapshot transaction. Read-only units skip the session and
// read the latest committed data.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	unit := &Unit{
		deposits: NewDepositRepository(f.DB),
		bookings: NewBookingRepository(f.DB),
		users:    NewUserRepository(f.DB),
		registry: NewRegistryRepository(f.DB),
	}
	if opts.ReadOnly {
		return unit, nil
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	unit.session = session
	return unit, nil
}

type Unit struct {
	session mongo.Session

	deposits *DepositRepository
	bookings *BookingRepository
	users    *UserRepository
	registry *RegistryRepository
}

func (u *Unit) Deposits() domaindeposits.Repository     { return u.deposits }
func (u *Unit) Bookings() domainbooking.Repository      { return u.bookings }
func (u *Unit) Users() domainuser.Repository            { return u.users }
func (u *Unit) Registry() domainuser.RegistryRepository { return u.registry }

// Commit maps write conflicts between concurrent transactions to
// ErrConcurrentUpdate.
func (u *Unit) Commit(ctx context.Context) error {
	if u.session == nil {
		return nil
	}
	defer u.session.EndSession(ctx)
	if err := u.session.CommitTransaction(ctx); err != nil {
		if isWriteConflict(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.session == nil {
		return nil
	}
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	if u.session == nil {
		return ctx
	}
	return mongo.NewSessionContext(ctx, u.session)
}

func isWriteConflict(err error) bool {
	var le mongo.LabeledError
	if errors.As(err, &le) && le.HasErrorLabel("TransientTransactionError") {
		return true
	}
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(112)
}

var (
	_ uow.UoWFactory      = Factory{}
	_ uow.UnitOfWork      = (*Unit)(nil)
	_ uow.ContextInjector = (*Unit)(nil)
)
