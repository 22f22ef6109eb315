// Package daterange tracks the calendar's selected time interval.
package daterange

import (
	"sync"
	"time"
)

// DateRange is a pair of epoch-millisecond timestamps with StartTime <= EndTime.
type DateRange struct {
	StartTime int64 `json:"startTime"`
	EndTime   int64 `json:"endTime"`
}

// Start returns StartTime in loc.
func (r DateRange) Start(loc *time.Location) time.Time {
	return time.UnixMilli(r.StartTime).In(orLocal(loc))
}

// End returns EndTime in loc.
func (r DateRange) End(loc *time.Location) time.Time {
	return time.UnixMilli(r.EndTime).In(orLocal(loc))
}

// Window returns the half-open interval covered by the range: from StartTime
// up to the end of the day that contains EndTime.
func (r DateRange) Window(loc *time.Location) (time.Time, time.Time) {
	return r.Start(loc), StartOfDay(r.End(loc)).AddDate(0, 0, 1)
}

// Overlaps reports whether [start, end) intersects the range's window.
func (r DateRange) Overlaps(start, end time.Time, loc *time.Location) bool {
	from, to := r.Window(loc)
	return start.Before(to) && end.After(from)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// MonthRange returns [first day 00:00, last day 00:00] of the month in loc.
func MonthRange(year int, month time.Month, loc *time.Location) DateRange {
	loc = orLocal(loc)
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	// Day 0 of the following month is the last day of this one.
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc)
	return DateRange{StartTime: first.UnixMilli(), EndTime: last.UnixMilli()}
}

// Selector holds the current range. The zero value is not usable; use
// NewSelector.
type Selector struct {
	mu      sync.RWMutex
	loc     *time.Location
	current *DateRange
}

// NewSelector returns an unset Selector that interprets dates in loc
// (time.Local when nil).
func NewSelector(loc *time.Location) *Selector {
	return &Selector{loc: orLocal(loc)}
}

// Location is the zone used for month and day boundaries.
func (s *Selector) Location() *time.Location {
	return s.loc
}

// Range returns the current range and whether one has been set.
func (s *Selector) Range() (DateRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return DateRange{}, false
	}
	return *s.current, true
}

// NavigateMonth resets the range to the month containing activeStart.
// A zero activeStart is ignored.
func (s *Selector) NavigateMonth(activeStart time.Time) {
	if activeStart.IsZero() {
		return
	}
	local := activeStart.In(s.loc)
	r := MonthRange(local.Year(), local.Month(), s.loc)
	s.set(r)
}

// Select sets the range from two calendar endpoints, each truncated to the
// start of its day. Nothing changes unless both endpoints are non-zero.
// Endpoints given out of order are swapped.
func (s *Selector) Select(first, second time.Time) bool {
	if first.IsZero() || second.IsZero() {
		return false
	}
	start := StartOfDay(first.In(s.loc))
	end := StartOfDay(second.In(s.loc))
	if end.Before(start) {
		start, end = end, start
	}
	s.set(DateRange{StartTime: start.UnixMilli(), EndTime: end.UnixMilli()})
	return true
}

func (s *Selector) set(r DateRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &r
}

func orLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
