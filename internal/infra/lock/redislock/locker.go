package redislock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNotAcquired = errors.New("redislock: lock not acquired")

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type backend interface {
	acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	release(ctx context.Context, key, token string) error
}

type redisBackend struct {
	client *redis.Client
}

func (b redisBackend) acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return b.client.SetNX(ctx, key, token, ttl).Result()
}

func (b redisBackend) release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, b.client, []string{key}, token).Err()
}

// Locker hands out per-key locks shared by every instance using the same
// Redis. A lock expires after TTL even if its holder dies.
type Locker struct {
	backend backend
	prefix  string
	ttl     time.Duration
	wait    time.Duration
	retry   time.Duration
	logger  *slog.Logger
}

type Options struct {
	Prefix string
	TTL    time.Duration
	// Wait bounds Lock when ctx carries no deadline.
	Wait   time.Duration
	Retry  time.Duration
	Logger *slog.Logger
}

func New(client *redis.Client, opts Options) *Locker {
	return newLocker(redisBackend{client: client}, opts)
}

func newLocker(b backend, opts Options) *Locker {
	l := &Locker{
		backend: b,
		prefix:  opts.Prefix,
		ttl:     opts.TTL,
		wait:    opts.Wait,
		retry:   opts.Retry,
		logger:  opts.Logger,
	}
	if l.prefix == "" {
		l.prefix = "depositrent:lock:"
	}
	if l.ttl <= 0 {
		l.ttl = 10 * time.Second
	}
	if l.wait <= 0 {
		l.wait = 5 * time.Second
	}
	if l.retry <= 0 {
		l.retry = 25 * time.Millisecond
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}
	full := l.prefix + key
	token := uuid.NewString()
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.backend.acquire(ctx, full, token, l.ttl)
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("redislock: acquire %s: %w", key, err)
		}
		if ok {
			return l.unlocker(full, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *Locker) unlocker(key, token string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.backend.release(ctx, key, token); err != nil {
			l.logger.Warn("redis lock release failed", "key", key, "error", err)
		}
	}
}
