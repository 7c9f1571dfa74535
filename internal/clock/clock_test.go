package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManual(t *testing.T) {
	start := time.Date(2030, 1, 1, 10, 0, 0, 0, time.FixedZone("X", 3600))
	c := NewManual(start)
	assert.Equal(t, time.UTC, c.Now().Location())
	assert.True(t, c.Now().Equal(start))

	c.Advance(48 * time.Hour)
	assert.True(t, c.Now().Equal(start.Add(48*time.Hour)))

	c.Set(start)
	assert.True(t, c.Now().Equal(start))
}

func TestSystemIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, NewSystem().Now().Location())
}
