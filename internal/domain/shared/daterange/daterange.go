package daterange

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: start must not be after end")
	ErrNotMergeable = errors.New("daterange: ranges neither overlap nor touch")
)

// Layout is the wire format for whole-day dates.
const Layout = "2006-01-02"

// DateRange is a closed interval [Start, End] of whole UTC days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// New truncates both bounds to midnight UTC and validates ordering.
func New(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: Day(start), End: Day(end)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Must is New for fixtures and tests.
func Must(start, end time.Time) DateRange {
	dr, err := New(start, end)
	if err != nil {
		panic(err)
	}
	return dr
}

// Parse builds a range from two YYYY-MM-DD strings.
func Parse(start, end string) (DateRange, error) {
	s, err := time.Parse(Layout, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("daterange: start: %w", err)
	}
	e, err := time.Parse(Layout, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("daterange: end: %w", err)
	}
	return New(s, e)
}

// Day drops the time-of-day part, keeping the calendar date of t.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Date is a shorthand for a UTC midnight date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func (dr DateRange) Validate() error {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ErrInvalidRange
	}
	if dr.Start.After(dr.End) {
		return ErrInvalidRange
	}
	return nil
}

const secondsPerDay = 24 * 60 * 60

// Days counts the day steps from Start to End; a range ending on its start day has zero.
func (dr DateRange) Days() int {
	return int((dr.End.Unix() - dr.Start.Unix()) / secondsPerDay)
}

func (dr DateRange) Equal(other DateRange) bool {
	return dr.Start.Equal(other.Start) && dr.End.Equal(other.End)
}

// Overlaps reports whether the two ranges share at least one day.
func (dr DateRange) Overlaps(other DateRange) bool {
	return !dr.Start.After(other.End) && !other.Start.After(dr.End)
}

// Adjacent reports whether one range starts the day after the other ends.
func (dr DateRange) Adjacent(other DateRange) bool {
	return nextDay(dr.End).Equal(other.Start) || nextDay(other.End).Equal(dr.Start)
}

// ContainedIn reports whether dr lies fully inside other.
func (dr DateRange) ContainedIn(other DateRange) bool {
	return !dr.Start.Before(other.Start) && !dr.End.After(other.End)
}

// Merge returns the bounding interval of two overlapping or adjacent ranges.
func (dr DateRange) Merge(other DateRange) (DateRange, error) {
	if !dr.Overlaps(other) && !dr.Adjacent(other) {
		return DateRange{}, ErrNotMergeable
	}
	start := dr.Start
	if other.Start.Before(start) {
		start = other.Start
	}
	end := dr.End
	if other.End.After(end) {
		end = other.End
	}
	return DateRange{Start: start, End: end}, nil
}

// Subtract removes other's days from dr and returns what is left, in order:
// the receiver itself when disjoint, nothing when other covers it, the two
// outer pieces when other sits strictly inside, or the single remainder when
// other cuts one edge.
func (dr DateRange) Subtract(other DateRange) []DateRange {
	if !dr.Overlaps(other) {
		return []DateRange{dr}
	}
	rest := make([]DateRange, 0, 2)
	if dr.Start.Before(other.Start) {
		rest = append(rest, DateRange{Start: dr.Start, End: prevDay(other.Start)})
	}
	if other.End.Before(dr.End) {
		rest = append(rest, DateRange{Start: nextDay(other.End), End: dr.End})
	}
	return rest
}

func (dr DateRange) String() string {
	return dr.Start.Format(Layout) + ".." + dr.End.Format(Layout)
}

func nextDay(t time.Time) time.Time {
	return t.AddDate(0, 0, 1)
}

func prevDay(t time.Time) time.Time {
	return t.AddDate(0, 0, -1)
}
