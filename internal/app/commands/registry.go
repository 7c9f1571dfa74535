package commands

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type route func(ctx context.Context, cmd Command) (any, error)

// Registry is the terminal bus: it routes each command to the one handler
// registered for its key.
type Registry struct {
	mu     sync.RWMutex
	routes map[string]route
}

func NewRegistry() *Registry {
	return &Registry{routes: make(map[string]route)}
}

// Register binds handler to the key of C. The key is taken from C's zero
// value, so command types must implement Key on a value receiver.
func Register[C Command, R any](reg *Registry, handler Handler[C, R]) {
	if reg == nil {
		panic("commands: nil registry")
	}
	var probe C
	key := probe.Key()
	if key == "" {
		panic("commands: empty key registration")
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, dup := reg.routes[key]; dup {
		panic(fmt.Sprintf("commands: duplicate handler for %s", key))
	}
	reg.routes[key] = func(ctx context.Context, raw Command) (any, error) {
		cmd, ok := raw.(C)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCommand, key)
		}
		return handler.Handle(ctx, cmd)
	}
}

func (r *Registry) Dispatch(ctx context.Context, cmd Command) (any, error) {
	if cmd == nil {
		return nil, ErrInvalidCommand
	}
	r.mu.RLock()
	h, ok := r.routes[cmd.Key()]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, cmd.Key())
	}
	return h(ctx, cmd)
}

// Keys lists registered command keys in order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.routes))
	for k := range r.routes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ Bus = (*Registry)(nil)
