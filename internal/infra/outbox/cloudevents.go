package outbox

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrNotCloudEvent = errors.New("outbox: payload is not a cloudevent")

// CloudEvent is the envelope the Worker publishes.
type CloudEvent struct {
	SpecVersion string          `json:"specversion"`
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Source      string          `json:"source"`
	Subject     string          `json:"subject"`
	Time        time.Time       `json:"time"`
	Data        json.RawMessage `json:"data"`
}

func ParseCloudEvent(payload []byte) (CloudEvent, error) {
	var ev CloudEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return CloudEvent{}, err
	}
	if ev.SpecVersion == "" || ev.ID == "" || ev.Type == "" {
		return CloudEvent{}, ErrNotCloudEvent
	}
	return ev, nil
}
