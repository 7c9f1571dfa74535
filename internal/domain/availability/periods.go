package availability

import (
	"errors"
	"fmt"
	"sort"

	"depositrent/internal/domain/shared/daterange"
)

var (
	ErrPeriodAlreadyBooked = errors.New("availability: period already booked")
	ErrPeriodNotBooked     = errors.New("availability: period is not booked")
	ErrOverlappingBookings = errors.New("availability: booked periods overlap")
)

// PeriodAlreadyBookedError names the booked span that blocked a change.
type PeriodAlreadyBookedError struct {
	Booked daterange.DateRange
}

func (e *PeriodAlreadyBookedError) Error() string {
	return fmt.Sprintf("availability: period already booked from %s to %s",
		e.Booked.Start.Format(daterange.Layout), e.Booked.End.Format(daterange.Layout))
}

func (e *PeriodAlreadyBookedError) Is(target error) bool {
	return target == ErrPeriodAlreadyBooked
}

// Periods tracks which days of a deposit are open for booking and which are
// already booked. A day absent from both sets was never opened.
//
// Invariants: available entries never overlap or touch each other, and no
// available entry overlaps a booked one.
type Periods struct {
	available   []daterange.DateRange
	unavailable []daterange.DateRange
}

func NewPeriods() *Periods {
	return &Periods{}
}

// Restore rebuilds periods from persisted state, normalising the open set and
// refusing data that breaks the invariants.
func Restore(available, unavailable []daterange.DateRange) (*Periods, error) {
	p := NewPeriods()
	for _, booked := range unavailable {
		if err := booked.Validate(); err != nil {
			return nil, err
		}
		if _, clash := p.bookedOverlap(booked); clash {
			return nil, ErrOverlappingBookings
		}
		p.unavailable = append(p.unavailable, booked)
	}
	sortRanges(p.unavailable)
	for _, open := range available {
		if err := open.Validate(); err != nil {
			return nil, err
		}
		if err := p.AddAvailabilityPeriod(open); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// AddAvailabilityPeriod opens r for booking, absorbing every open period it
// overlaps or touches. Fails without changes when r overlaps a booked span.
func (p *Periods) AddAvailabilityPeriod(r daterange.DateRange) error {
	if booked, clash := p.bookedOverlap(r); clash {
		return &PeriodAlreadyBookedError{Booked: booked}
	}
	rest, grown := absorb(p.available, r)
	p.available = sortRanges(append(rest, grown))
	return nil
}

// RemoveAvailabilityPeriod closes r: open periods inside r disappear, periods
// crossing r are trimmed or split around it.
func (p *Periods) RemoveAvailabilityPeriod(r daterange.DateRange) {
	next := make([]daterange.DateRange, 0, len(p.available)+1)
	for _, open := range p.available {
		switch {
		case open.ContainedIn(r):
		case open.Overlaps(r):
			next = append(next, open.Subtract(r)...)
		default:
			next = append(next, open)
		}
	}
	p.available = sortRanges(next)
}

// IsAvailable requires r to fit inside a single open period; two open periods
// separated by a booked gap do not add up.
func (p *Periods) IsAvailable(r daterange.DateRange) bool {
	if _, clash := p.bookedOverlap(r); clash {
		return false
	}
	for _, open := range p.available {
		if r.ContainedIn(open) {
			return true
		}
	}
	return false
}

// MakePeriodUnavailable closes r and records it as booked.
func (p *Periods) MakePeriodUnavailable(r daterange.DateRange) error {
	if booked, clash := p.bookedOverlap(r); clash {
		return &PeriodAlreadyBookedError{Booked: booked}
	}
	p.RemoveAvailabilityPeriod(r)
	p.unavailable = sortRanges(append(p.unavailable, r))
	return nil
}

// MakePeriodAvailable releases a booked span, which must match exactly, and
// reopens it.
func (p *Periods) MakePeriodAvailable(r daterange.DateRange) error {
	idx := -1
	for i, booked := range p.unavailable {
		if booked.Equal(r) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("%w: %s", ErrPeriodNotBooked, r)
	}
	p.unavailable = append(p.unavailable[:idx:idx], p.unavailable[idx+1:]...)
	// cannot clash: booked spans never overlap each other
	rest, grown := absorb(p.available, r)
	p.available = sortRanges(append(rest, grown))
	return nil
}

func (p *Periods) Available() []daterange.DateRange {
	return append([]daterange.DateRange(nil), p.available...)
}

func (p *Periods) Unavailable() []daterange.DateRange {
	return append([]daterange.DateRange(nil), p.unavailable...)
}

func (p *Periods) Clone() *Periods {
	if p == nil {
		return nil
	}
	return &Periods{available: p.Available(), unavailable: p.Unavailable()}
}

func (p *Periods) bookedOverlap(r daterange.DateRange) (daterange.DateRange, bool) {
	for _, booked := range p.unavailable {
		if booked.Overlaps(r) {
			return booked, true
		}
	}
	return daterange.DateRange{}, false
}

// absorb merges r with every entry of the fixed snapshot that overlaps or
// touches it, repeating until nothing else joins, so a chain of touching
// periods collapses in one call. The snapshot itself is never written.
func absorb(snapshot []daterange.DateRange, r daterange.DateRange) ([]daterange.DateRange, daterange.DateRange) {
	grown := r
	rest := append([]daterange.DateRange(nil), snapshot...)
	for {
		merged := false
		kept := make([]daterange.DateRange, 0, len(rest))
		for _, open := range rest {
			if union, err := grown.Merge(open); err == nil {
				grown = union
				merged = true
				continue
			}
			kept = append(kept, open)
		}
		rest = kept
		if !merged {
			return rest, grown
		}
	}
}

func sortRanges(rs []daterange.DateRange) []daterange.DateRange {
	sort.Slice(rs, func(i, j int) bool { return rs[i].Start.Before(rs[j].Start) })
	return rs
}
