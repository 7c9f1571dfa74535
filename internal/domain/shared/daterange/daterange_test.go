package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(day int) time.Time {
	return Date(2030, time.March, day)
}

func TestNew(t *testing.T) {
	t.Run("truncates time of day", func(t *testing.T) {
		dr, err := New(time.Date(2030, 3, 1, 15, 30, 0, 0, time.UTC), time.Date(2030, 3, 2, 1, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Equal(t, d(1), dr.Start)
		assert.Equal(t, d(2), dr.End)
	})

	t.Run("single day range is valid", func(t *testing.T) {
		dr, err := New(d(5), d(5))
		require.NoError(t, err)
		assert.Equal(t, 0, dr.Days())
	})

	t.Run("start after end fails", func(t *testing.T) {
		_, err := New(d(6), d(5))
		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("zero bounds fail", func(t *testing.T) {
		_, err := New(time.Time{}, d(5))
		assert.ErrorIs(t, err, ErrInvalidRange)
	})
}

func TestParse(t *testing.T) {
	dr, err := Parse("2030-03-01", "2030-03-09")
	require.NoError(t, err)
	assert.Equal(t, 8, dr.Days())
	assert.Equal(t, "2030-03-01..2030-03-09", dr.String())

	centuries := Must(Date(2030, 1, 1), Date(2400, 1, 1))
	assert.Equal(t, 135139, centuries.Days())

	_, err = Parse("2030-13-01", "2030-03-09")
	assert.Error(t, err)
}

func TestPredicates(t *testing.T) {
	base := Must(d(10), d(20))

	cases := []struct {
		name      string
		other     DateRange
		overlaps  bool
		adjacent  bool
		contained bool
	}{
		{"identical", Must(d(10), d(20)), true, false, true},
		{"inside", Must(d(12), d(15)), true, false, true},
		{"shares last day", Must(d(20), d(25)), true, false, false},
		{"touches after", Must(d(21), d(25)), false, true, false},
		{"touches before", Must(d(1), d(9)), false, true, false},
		{"gap of one day", Must(d(22), d(25)), false, false, false},
		{"covers", Must(d(1), d(30)), true, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.overlaps, base.Overlaps(tc.other))
			assert.Equal(t, tc.overlaps, tc.other.Overlaps(base))
			assert.Equal(t, tc.adjacent, base.Adjacent(tc.other))
			assert.Equal(t, tc.adjacent, tc.other.Adjacent(base))
			assert.Equal(t, tc.contained, tc.other.ContainedIn(base))
		})
	}
}

func TestMerge(t *testing.T) {
	t.Run("touching ranges", func(t *testing.T) {
		merged, err := Must(d(1), d(5)).Merge(Must(d(6), d(9)))
		require.NoError(t, err)
		assert.True(t, merged.Equal(Must(d(1), d(9))))
	})

	t.Run("overlapping ranges", func(t *testing.T) {
		merged, err := Must(d(4), d(9)).Merge(Must(d(1), d(5)))
		require.NoError(t, err)
		assert.True(t, merged.Equal(Must(d(1), d(9))))
	})

	t.Run("disjoint ranges are refused", func(t *testing.T) {
		_, err := Must(d(1), d(5)).Merge(Must(d(7), d(9)))
		assert.ErrorIs(t, err, ErrNotMergeable)
	})
}

func TestSubtract(t *testing.T) {
	base := Must(d(1), d(20))

	t.Run("disjoint leaves receiver", func(t *testing.T) {
		rest := base.Subtract(Must(d(22), d(25)))
		require.Len(t, rest, 1)
		assert.True(t, rest[0].Equal(base))
	})

	t.Run("exact match removes everything", func(t *testing.T) {
		assert.Empty(t, base.Subtract(base))
	})

	t.Run("covering range removes everything", func(t *testing.T) {
		assert.Empty(t, base.Subtract(Must(d(1), d(30))))
	})

	t.Run("middle cut splits in two", func(t *testing.T) {
		rest := base.Subtract(Must(d(5), d(9)))
		require.Len(t, rest, 2)
		assert.True(t, rest[0].Equal(Must(d(1), d(4))))
		assert.True(t, rest[1].Equal(Must(d(10), d(20))))
	})

	t.Run("left edge trim", func(t *testing.T) {
		rest := base.Subtract(Must(d(1), d(3)))
		require.Len(t, rest, 1)
		assert.True(t, rest[0].Equal(Must(d(4), d(20))))
	})

	t.Run("right edge trim past the end", func(t *testing.T) {
		rest := base.Subtract(Must(d(18), d(25)))
		require.Len(t, rest, 1)
		assert.True(t, rest[0].Equal(Must(d(1), d(17))))
	})

	t.Run("single day in the middle", func(t *testing.T) {
		rest := base.Subtract(Must(d(10), d(10)))
		require.Len(t, rest, 2)
		assert.True(t, rest[0].Equal(Must(d(1), d(9))))
		assert.True(t, rest[1].Equal(Must(d(11), d(20))))
	})
}
