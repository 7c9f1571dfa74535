package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type testEvent struct{ id string }

func (e testEvent) EventName() string     { return "test.happened" }
func (e testEvent) AggregateID() string   { return e.id }
func (e testEvent) OccurredAt() time.Time { return time.Time{} }

func TestEventRecorder(t *testing.T) {
	var r EventRecorder
	r.Record(testEvent{id: "a"})
	r.Record(nil)
	r.Record(testEvent{id: "b"})

	pending := r.PendingEvents()
	assert.Len(t, pending, 2)

	pending[0] = testEvent{id: "changed"}
	assert.Equal(t, "a", r.PendingEvents()[0].AggregateID())

	pulled := r.PullEvents()
	assert.Len(t, pulled, 2)
	assert.Empty(t, r.PendingEvents())
}
