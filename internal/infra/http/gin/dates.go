package ginserver

import (
	"fmt"
	"time"

	"depositrent/internal/domain/shared/daterange"
)

// period is the request shape for a whole-day range.
type period struct {
	Start string `json:"start" form:"start" binding:"required"`
	End   string `json:"end" form:"end" binding:"required"`
}

func (p period) days() (time.Time, time.Time, error) {
	start, err := time.Parse(daterange.Layout, p.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start must be YYYY-MM-DD: %w", err)
	}
	end, err := time.Parse(daterange.Layout, p.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end must be YYYY-MM-DD: %w", err)
	}
	return start, end, nil
}
