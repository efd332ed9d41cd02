// Package daterange generates the week-aligned run of calendar days shown by
// the week strip: one month either side of an anchor day.
package daterange

import (
	"slices"
	"time"

	"cloudeng.io/datetime"
)

// Representable Gregorian years. Day and month arithmetic that would leave
// this window reports failure instead of producing a date.
const (
	MinYear = 1
	MaxYear = 9999
)

// Calendar is the calendar context used for all day arithmetic. The zero
// value uses time.Local.
type Calendar struct {
	loc *time.Location
}

// New returns a Calendar that normalises days in loc. A nil loc means
// time.Local.
func New(loc *time.Location) Calendar {
	return Calendar{loc: loc}
}

// Location returns the time zone days are normalised in.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

// StartOfDay returns midnight of t's civil day.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(c.Location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.Location())
}

// AddDays moves t by n civil days. The result is normalised to midnight.
func (c Calendar) AddDays(t time.Time, n int) (time.Time, bool) {
	y, m, d := t.In(c.Location()).Date()
	next := time.Date(y, m, d+n, 0, 0, 0, 0, c.Location())
	if !representable(next.Year()) {
		return time.Time{}, false
	}
	return next, true
}

// AddMonths moves t by n calendar months, clamping the day of month to the
// length of the target month (Mar 31 minus one month is Feb 28 or 29).
func (c Calendar) AddMonths(t time.Time, n int) (time.Time, bool) {
	y, m, d := t.In(c.Location()).Date()
	total := y*12 + int(m) - 1 + n
	ty, tm := total/12, time.Month(total%12+1)
	if total < 0 || !representable(ty) {
		return time.Time{}, false
	}
	if last := datetime.DaysInMonth(ty, datetime.Month(tm)); d > last {
		d = last
	}
	return time.Date(ty, tm, d, 0, 0, 0, 0, c.Location()), true
}

// Weekday returns the 1-based weekday of t where 1 is Sunday.
func (c Calendar) Weekday(t time.Time) int {
	return int(t.In(c.Location()).Weekday()) + 1
}

// SameDay reports whether a and b fall on the same civil day.
func (c Calendar) SameDay(a, b time.Time) bool {
	return keyOf(a.In(c.Location())) == keyOf(b.In(c.Location()))
}

// IsToday reports whether t falls on the same civil day as now.
func (c Calendar) IsToday(t, now time.Time) bool {
	return c.SameDay(t, now)
}

// Bounds returns the first and last day of the range generated for anchor,
// together with the anchor normalised to midnight.
//
// start is the Sunday on or before the day one month before anchor. end is
// offset from the day one month after anchor by ((weekday-1) mod 7) - 2 days,
// which lands on Saturday only when that day is a Thursday.
func (c Calendar) Bounds(anchor time.Time) (start, now, end time.Time) {
	now = c.StartOfDay(anchor)

	start = now
	if before, ok := c.AddMonths(now, -1); ok {
		shift := (c.Weekday(before) - 1) % 7
		if s, ok := c.AddDays(before, -shift); ok {
			start = s
		} else {
			start = before
		}
	}

	end = now
	if after, ok := c.AddMonths(now, 1); ok {
		shift := (c.Weekday(after)-1)%7 - 2
		if e, ok := c.AddDays(after, shift); ok {
			end = e
		} else {
			end = after
		}
	}
	return start, now, end
}

// Range is a generated run of days together with its bounds.
type Range struct {
	Start time.Time
	End   time.Time
	Days  []time.Time
}

// Len returns the number of days in the range.
func (r Range) Len() int {
	return len(r.Days)
}

// Index returns the position of day within the range or -1.
func (r Range) Index(day time.Time) int {
	k := keyOf(day.In(r.Start.Location()))
	i, found := slices.BinarySearchFunc(r.Days, k, func(d time.Time, k dayKey) int {
		return compareKeys(keyOf(d), k)
	})
	if !found {
		return -1
	}
	return i
}

// Range generates the days for anchor and returns them with their bounds.
func (c Calendar) Range(anchor time.Time) Range {
	start, now, end := c.Bounds(anchor)
	seen := make(map[dayKey]time.Time, 75)
	collect := func(day time.Time) {
		k := keyOf(day)
		if _, dup := seen[k]; !dup {
			seen[k] = day
		}
	}

	for day := now; !day.Before(start); {
		collect(day)
		prev, ok := c.AddDays(day, -1)
		if !ok {
			break
		}
		day = prev
	}
	for day := now; !day.After(end); {
		collect(day)
		next, ok := c.AddDays(day, 1)
		if !ok {
			break
		}
		day = next
	}

	days := make([]time.Time, 0, len(seen))
	for _, day := range seen {
		days = append(days, day)
	}
	slices.SortFunc(days, func(a, b time.Time) int {
		return compareKeys(keyOf(a), keyOf(b))
	})
	return Range{Start: days[0], End: days[len(days)-1], Days: days}
}

// Generate returns the ascending, duplicate free days from the Sunday on or
// before one month before anchor through the end boundary after it.
func (c Calendar) Generate(anchor time.Time) []time.Time {
	return c.Range(anchor).Days
}

// Generate is Calendar.Generate in time.Local.
func Generate(anchor time.Time) []time.Time {
	return New(time.Local).Generate(anchor)
}

func representable(year int) bool {
	return year >= MinYear && year <= MaxYear
}

type dayKey struct {
	year  int
	month time.Month
	day   int
}

func keyOf(t time.Time) dayKey {
	y, m, d := t.Date()
	return dayKey{y, m, d}
}

func compareKeys(a, b dayKey) int {
	switch {
	case a.year != b.year:
		return a.year - b.year
	case a.month != b.month:
		return int(a.month) - int(b.month)
	default:
		return a.day - b.day
	}
}
