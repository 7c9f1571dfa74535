package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greet struct{ Name string }

func (greet) Key() string { return "test.greet" }

type other struct{}

func (other) Key() string { return "test.other" }

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry()
	Register[greet, string](reg, HandlerFunc[greet, string](func(ctx context.Context, cmd greet) (string, error) {
		return "hello " + cmd.Name, nil
	}))

	out, err := Dispatch[greet, string](context.Background(), reg, greet{Name: "ada"})
	require.NoError(t, err)
	assert.Equal(t, "hello ada", out)
	assert.Equal(t, []string{"test.greet"}, reg.Keys())

	_, err = Dispatch[other, string](context.Background(), reg, other{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	_, err = Dispatch[greet, int](context.Background(), reg, greet{})
	assert.ErrorIs(t, err, ErrResultType)

	_, err = Dispatch[greet, string](context.Background(), nil, greet{})
	assert.ErrorIs(t, err, ErrNilBus)
}

func TestRegisterTwicePanics(t *testing.T) {
	reg := NewRegistry()
	h := HandlerFunc[greet, string](func(context.Context, greet) (string, error) { return "", nil })
	Register[greet, string](reg, h)
	assert.Panics(t, func() { Register[greet, string](reg, h) })
}
