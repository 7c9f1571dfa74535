package queries

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Query is a read request. Handlers must not change state.
type Query interface {
	Key() string
}

type Handler[Q Query, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}

type HandlerFunc[Q Query, R any] func(ctx context.Context, query Q) (R, error)

func (f HandlerFunc[Q, R]) Handle(ctx context.Context, query Q) (R, error) {
	return f(ctx, query)
}

type Bus interface {
	Ask(ctx context.Context, query Query) (any, error)
}

var (
	ErrHandlerNotFound = errors.New("queries: handler not found")
	ErrInvalidQuery    = errors.New("queries: invalid query for handler")
	ErrResultType      = errors.New("queries: result type mismatch")
	ErrNilBus          = errors.New("queries: nil bus")
)

type route func(ctx context.Context, q Query) (any, error)

type Registry struct {
	mu     sync.RWMutex
	routes map[string]route
}

func NewRegistry() *Registry {
	return &Registry{routes: make(map[string]route)}
}

// Register binds handler to the key of Q's zero value.
func Register[Q Query, R any](reg *Registry, handler Handler[Q, R]) {
	if reg == nil {
		panic("queries: nil registry")
	}
	var probe Q
	key := probe.Key()
	if key == "" {
		panic("queries: empty key registration")
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, dup := reg.routes[key]; dup {
		panic(fmt.Sprintf("queries: duplicate handler for %s", key))
	}
	reg.routes[key] = func(ctx context.Context, raw Query) (any, error) {
		q, ok := raw.(Q)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidQuery, key)
		}
		return handler.Handle(ctx, q)
	}
}

func (r *Registry) Ask(ctx context.Context, q Query) (any, error) {
	if q == nil {
		return nil, ErrInvalidQuery
	}
	r.mu.RLock()
	h, ok := r.routes[q.Key()]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, q.Key())
	}
	return h(ctx, q)
}

// Ask runs q through bus and asserts the result to R.
func Ask[Q Query, R any](ctx context.Context, bus Bus, q Q) (R, error) {
	var zero R
	if bus == nil {
		return zero, ErrNilBus
	}
	res, err := bus.Ask(ctx, q)
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	value, ok := res.(R)
	if !ok {
		return zero, ErrResultType
	}
	return value, nil
}

var _ Bus = (*Registry)(nil)
