package middleware

import (
	"context"
	"time"

	"depositrent/internal/app/commands"
	"depositrent/internal/app/queries"
)

// Observer receives the outcome of every bus message.
type Observer interface {
	ObserveCommand(key string, took time.Duration, err error)
	ObserveQuery(key string, took time.Duration, err error)
}

func Metrics(o Observer) CommandMiddleware {
	if o == nil {
		panic("middleware: observer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			o.ObserveCommand(cmd.Key(), time.Since(start), err)
			return res, err
		})
	}
}

func QueryMetrics(o Observer) QueryMiddleware {
	if o == nil {
		panic("middleware: observer required")
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := next.Ask(ctx, q)
			o.ObserveQuery(q.Key(), time.Since(start), err)
			return res, err
		})
	}
}
