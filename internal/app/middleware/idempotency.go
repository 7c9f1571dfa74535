package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"depositrent/internal/app/commands"
)

// IdempotentCommand is replayed from the store when its key was seen before.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	// ResultPrototype returns a pointer the stored result decodes into.
	ResultPrototype() any
}

// ScopedCommand narrows an idempotency key to one caller, so equal keys sent
// by different users never share a stored result.
type ScopedCommand interface {
	IdempotencyScope() string
}

type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

var errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")

// Idempotency remembers successful results by command key and idempotency
// key. Failures are not remembered, so a client may retry after fixing its
// request.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			key := idempotencyKey(idCmd)
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if found {
				proto := idCmd.ResultPrototype()
				if proto == nil {
					return nil, errMissingPrototype
				}
				if err := codec.Decode(rec.Payload, proto); err != nil {
					return nil, err
				}
				return normalizePrototype(proto), nil
			}

			result, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			record := IdempotencyRecord{Key: key, OccurredAt: time.Now().UTC()}
			if result != nil {
				payload, encErr := codec.Encode(result)
				if encErr != nil {
					return nil, encErr
				}
				record.Payload = payload
			}
			if err := store.Save(ctx, record); err != nil {
				return nil, err
			}
			return result, nil
		})
	}
}

func idempotencyKey(cmd IdempotentCommand) string {
	key := cmd.Key() + ":"
	if scoped, ok := cmd.(ScopedCommand); ok {
		key += scoped.IdempotencyScope() + ":"
	}
	return key + cmd.IdempotencyKey()
}

func normalizePrototype(proto any) any {
	rv := reflect.ValueOf(proto)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Interface()
	}
	return proto
}
