// Package strip holds the selection and scroll state of a week strip: the
// generated days, an optional selected day, and the window of days currently
// visible.
package strip

import (
	"slices"
	"time"
)

// ScrollMode selects how the visible window moves.
type ScrollMode int

const (
	// Continuous scrolls one day at a time.
	Continuous ScrollMode = iota
	// Paged scrolls by whole pages of weeks; the window always starts on a
	// week boundary.
	Paged
)

func (m ScrollMode) String() string {
	if m == Paged {
		return "paged"
	}
	return "continuous"
}

// ParseScrollMode maps "paged" to Paged and anything else to Continuous.
func ParseScrollMode(s string) ScrollMode {
	if s == "paged" {
		return Paged
	}
	return Continuous
}

// Delegate is the host side of the strip. It is told about selection and
// visible-range changes and asked which days carry an event marker.
type Delegate interface {
	DateSelected(day time.Time)
	VisibleRangeChanged(days []time.Time)
	HasEvent(day time.Time) bool
}

// State is the strip's selection and scroll state. It is not safe for
// concurrent use; it belongs to the UI goroutine.
type State struct {
	days     []time.Time
	selected int
	offset   int
	visible  int
	mode     ScrollMode
	now      func() time.Time
	delegate Delegate
}

// Option configures a State.
type Option func(*State)

// WithMode sets the scroll mode.
func WithMode(m ScrollMode) Option {
	return func(s *State) {
		s.mode = m
	}
}

// WithVisibleCount sets the number of days shown at once.
func WithVisibleCount(n int) Option {
	return func(s *State) {
		s.visible = n
	}
}

// WithDelegate sets the host delegate.
func WithDelegate(d Delegate) Option {
	return func(s *State) {
		s.delegate = d
	}
}

// WithNow overrides the clock used for IsToday.
func WithNow(now func() time.Time) Option {
	return func(s *State) {
		s.now = now
	}
}

// New returns the state for days, which must be ascending and normalised to
// midnight as produced by the date range generator.
func New(days []time.Time, opts ...Option) *State {
	s := &State{
		days:     slices.Clone(days),
		selected: -1,
		visible:  7,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.visible = max(s.visible, 1)
	s.offset = s.clampOffset(s.offset)
	return s
}

// Days returns the generated days.
func (s *State) Days() []time.Time {
	return s.days
}

// Len returns the number of generated days.
func (s *State) Len() int {
	return len(s.days)
}

// Mode returns the scroll mode.
func (s *State) Mode() ScrollMode {
	return s.mode
}

// SetMode switches the scroll mode, realigning the window when switching to
// Paged.
func (s *State) SetMode(m ScrollMode) {
	if s.mode == m {
		return
	}
	s.mode = m
	s.setOffset(s.offset)
}

// Index returns the position of day in the range or -1. day is compared by
// its civil date in the range's time zone.
func (s *State) Index(day time.Time) int {
	if len(s.days) == 0 {
		return -1
	}
	y, m, d := day.In(s.days[0].Location()).Date()
	i, found := slices.BinarySearchFunc(s.days, day, func(e, _ time.Time) int {
		ey, em, ed := e.Date()
		switch {
		case ey != y:
			return ey - y
		case em != m:
			return int(em) - int(m)
		default:
			return ed - d
		}
	})
	if !found {
		return -1
	}
	return i
}

// Contains reports whether day is in the range.
func (s *State) Contains(day time.Time) bool {
	return s.Index(day) >= 0
}

// Select makes day the selected day and brings it into view. It is a no-op
// returning false when day is not in the range.
func (s *State) Select(day time.Time) bool {
	i := s.Index(day)
	if i < 0 {
		return false
	}
	s.selectIndex(i)
	return true
}

func (s *State) selectIndex(i int) {
	s.scrollToIndex(i)
	if s.selected == i {
		return
	}
	s.selected = i
	if s.delegate != nil {
		s.delegate.DateSelected(s.days[i])
	}
}

// Selected returns the selected day, if any.
func (s *State) Selected() (time.Time, bool) {
	if s.selected < 0 {
		return time.Time{}, false
	}
	return s.days[s.selected], true
}

// ClearSelection removes the selection. The delegate is not notified.
func (s *State) ClearSelection() {
	s.selected = -1
}

// MoveSelection moves the selection by delta days. With no selection the
// first visible day is selected. It returns false, leaving the state
// untouched, when the move would leave the range.
func (s *State) MoveSelection(delta int) bool {
	if s.selected < 0 {
		if len(s.days) == 0 {
			return false
		}
		s.selectIndex(s.offset)
		return true
	}
	i := s.selected + delta
	if i < 0 || i >= len(s.days) {
		return false
	}
	s.selectIndex(i)
	return true
}

// ScrollTo moves the window so day is visible. It is a no-op returning false
// when day is not in the range.
func (s *State) ScrollTo(day time.Time) bool {
	i := s.Index(day)
	if i < 0 {
		return false
	}
	s.scrollToIndex(i)
	return true
}

func (s *State) scrollToIndex(i int) {
	s.setOffset(s.offsetShowing(i, s.offset))
}

// offsetShowing returns the smallest move from cur that brings index i into
// view.
func (s *State) offsetShowing(i, cur int) int {
	w := s.window()
	switch {
	case s.mode == Paged:
		return i - i%w
	case i < cur:
		return i
	case i >= cur+w:
		return i - w + 1
	default:
		return cur
	}
}

// offsetCentering returns an offset that places index i mid-window.
func (s *State) offsetCentering(i int) int {
	if s.mode == Paged {
		return s.offsetShowing(i, 0)
	}
	return i - s.window()/2
}

// ScrollBy moves the window by steps days in Continuous mode or steps pages
// in Paged mode.
func (s *State) ScrollBy(steps int) {
	s.setOffset(s.offset + steps*s.scrollUnit())
}

// SetVisibleCount changes the number of days shown at once, keeping the
// selection in view.
func (s *State) SetVisibleCount(n int) {
	n = max(n, 1)
	if n == s.visible {
		return
	}
	prev := s.offset
	s.visible = n
	target := prev
	if s.selected >= 0 {
		target = s.offsetShowing(s.selected, prev)
	}
	s.offset = -1
	s.setOffset(target)
}

// VisibleCount returns the number of days shown at once.
func (s *State) VisibleCount() int {
	return s.visible
}

// Offset returns the index of the first visible day.
func (s *State) Offset() int {
	return s.offset
}

// Visible returns the days currently in view.
func (s *State) Visible() []time.Time {
	if len(s.days) == 0 {
		return nil
	}
	end := min(s.offset+s.window(), len(s.days))
	return s.days[s.offset:end]
}

// HasEvent asks the delegate whether day carries an event marker.
func (s *State) HasEvent(day time.Time) bool {
	return s.delegate != nil && s.delegate.HasEvent(day)
}

// IsToday reports whether day is the current day.
func (s *State) IsToday(day time.Time) bool {
	ny, nm, nd := s.now().In(day.Location()).Date()
	y, m, d := day.Date()
	return y == ny && m == nm && d == nd
}

// Reset replaces the generated days, keeping the selection when the selected
// day is still in range and clearing it otherwise. The window is centred on
// the selection, or on keepInView when nothing is selected.
//
// The delegate is always told about the new visible range. It is not told
// about the selection: a kept selection is unchanged, and a dropped one is
// cleared silently as with ClearSelection.
func (s *State) Reset(days []time.Time, keepInView time.Time) {
	var sel time.Time
	hadSel := s.selected >= 0
	if hadSel {
		sel = s.days[s.selected]
	}
	s.days = slices.Clone(days)
	s.selected = -1
	s.offset = -1

	target := 0
	if i := s.Index(sel); hadSel && i >= 0 {
		s.selected = i
		target = s.offsetCentering(i)
	} else if i := s.Index(keepInView); i >= 0 {
		target = s.offsetCentering(i)
	}
	s.setOffset(target)
}

// pageSize is the visible count rounded down to whole weeks, at least one.
func (s *State) pageSize() int {
	return max(s.visible/7, 1) * 7
}

func (s *State) scrollUnit() int {
	if s.mode == Paged {
		return s.pageSize()
	}
	return 1
}

// window is the number of days in view: a whole page in Paged mode.
func (s *State) window() int {
	if s.mode == Paged {
		return s.pageSize()
	}
	return s.visible
}

func (s *State) clampOffset(off int) int {
	if s.mode == Paged {
		off -= off % s.pageSize()
		last := max(len(s.days)-1, 0)
		return max(min(off, last-last%s.pageSize()), 0)
	}
	return max(min(off, len(s.days)-s.window()), 0)
}

func (s *State) setOffset(off int) {
	off = s.clampOffset(off)
	if off == s.offset {
		return
	}
	s.offset = off
	if s.delegate != nil {
		s.delegate.VisibleRangeChanged(s.Visible())
	}
}
