package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "depositrent/internal/app/outbox"
	"depositrent/internal/app/uow"
	infraoutbox "depositrent/internal/infra/outbox"
)

type outboxEntry struct {
	record    appoutbox.EventRecord
	attempts  int
	nextAt    time.Time
	claimedBy string
	sent      bool
	lastError string
}

// Outbox stages records in the memory unit found in ctx and makes them
// claimable once that unit commits. Without a unit, Add is immediate.
type Outbox struct {
	mu      sync.Mutex
	entries []*outboxEntry
	index   map[string]*outboxEntry
	wakeup  chan struct{}
}

func NewOutbox() *Outbox {
	return &Outbox{index: make(map[string]*outboxEntry), wakeup: make(chan struct{}, 1)}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if memUnit, ok := unit.(*Unit); ok {
			return memUnit.addRecord(record)
		}
	}
	o.enqueue([]appoutbox.EventRecord{record})
	return nil
}

func (o *Outbox) Flush(context.Context) error {
	select {
	case o.wakeup <- struct{}{}:
	default:
	}
	return nil
}

func (o *Outbox) Wakeup() <-chan struct{} {
	return o.wakeup
}

func (o *Outbox) enqueue(records []appoutbox.EventRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	for _, rec := range records {
		e := &outboxEntry{record: rec, nextAt: now}
		o.entries = append(o.entries, e)
		o.index[rec.ID] = e
	}
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.Claimed, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	for _, e := range o.entries {
		if e.sent || e.claimedBy != "" || e.nextAt.After(now) {
			continue
		}
		e.claimedBy = workerID
		return &infraoutbox.Claimed{EventRecord: e.record, Attempts: e.attempts}, nil
	}
	return nil, nil
}

// MarkSent drops the record. Sent records are not kept.
func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.index[id]
	if !ok {
		return nil
	}
	e.sent = true
	delete(o.index, id)
	kept := o.entries[:0]
	for _, entry := range o.entries {
		if !entry.sent {
			kept = append(kept, entry)
		}
	}
	o.entries = kept
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e, ok := o.index[id]; ok {
		e.attempts++
		e.nextAt = next
		e.claimedBy = ""
		e.lastError = errMsg
	}
	return nil
}

// Pending counts records not yet sent.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

var (
	_ appoutbox.Outbox   = (*Outbox)(nil)
	_ infraoutbox.Source = (*Outbox)(nil)
)
