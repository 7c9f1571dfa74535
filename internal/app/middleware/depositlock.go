package middleware

import (
	"context"
	"errors"
	"fmt"

	"depositrent/internal/app/commands"
)

var ErrLockUnavailable = errors.New("middleware: deposit is busy, try again")

// DepositScoped commands mutate a single deposit.
type DepositScoped interface {
	commands.Command
	DepositKey() string
}

// Locker hands out exclusive locks by key. Unlock must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// DepositLock runs deposit-scoped commands one at a time per deposit, so the
// availability check and the reservation that follows it cannot interleave
// with another command on the same deposit.
func DepositLock(locker Locker) CommandMiddleware {
	if locker == nil {
		panic("middleware: locker required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			scoped, ok := cmd.(DepositScoped)
			if !ok || scoped.DepositKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			unlock, err := locker.Lock(ctx, "deposit:"+scoped.DepositKey())
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrLockUnavailable, err)
			}
			defer unlock()
			return next.Dispatch(ctx, cmd)
		})
	}
}
