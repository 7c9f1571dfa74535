package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depositrent/internal/domain/shared/events"
)

type sampleEvent struct {
	Deposit string
	At      time.Time
}

func (e sampleEvent) EventName() string     { return "deposit.sample" }
func (e sampleEvent) AggregateID() string   { return e.Deposit }
func (e sampleEvent) OccurredAt() time.Time { return e.At }

type captureBox struct {
	records []EventRecord
}

func (b *captureBox) Add(_ context.Context, rec EventRecord) error {
	b.records = append(b.records, rec)
	return nil
}

func (b *captureBox) Flush(context.Context) error { return nil }

type source struct {
	events.EventRecorder
}

func TestRecordDrainsSources(t *testing.T) {
	at := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	var a, b source
	a.Record(sampleEvent{Deposit: "North", At: at})
	b.Record(sampleEvent{Deposit: "South", At: at})
	box := &captureBox{}
	enc := JSONEventEncoder{IDGenerator: func() string { return "evt-1" }}

	require.NoError(t, Record(context.Background(), box, enc, &a, nil, &b))

	require.Len(t, box.records, 2)
	assert.Equal(t, "North", box.records[0].Aggregate)
	assert.Equal(t, "South", box.records[1].Aggregate)
	assert.Equal(t, "deposit.sample", box.records[0].Name)
	assert.Equal(t, "evt-1", box.records[0].ID)
	assert.Empty(t, a.PendingEvents())

	var decoded sampleEvent
	require.NoError(t, json.Unmarshal(box.records[0].Payload, &decoded))
	assert.Equal(t, "North", decoded.Deposit)
}

func TestDefaultEncoderAssignsIDs(t *testing.T) {
	rec, err := JSONEventEncoder{}.Encode(sampleEvent{Deposit: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
}
