package calendar

import (
	"fmt"
	"slices"
	"sync"
	"time"

	calendarlib "github.com/Lofanmi/chinese-calendar-golang/calendar"

	"github.com/lululau/weekstrip/internal/daterange"
	"github.com/lululau/weekstrip/internal/events"
)

// Gregorian years the lunar calendar library can convert.
const (
	MinLunarYear = 1900
	MaxLunarYear = 3000
)

// Day is one cell of the strip.
type Day struct {
	Date            time.Time
	IsToday         bool
	InAnchorMonth   bool
	Events          []events.Event
	LunarDayAlias   string
	LunarMonthAlias string
	SolarTerm       string
}

// IsZero reports whether d is padding rather than a generated day.
func (d Day) IsZero() bool {
	return d.Date.IsZero()
}

// HasEvent reports whether any event falls on the day.
func (d Day) HasEvent() bool {
	return len(d.Events) > 0
}

// SecondaryLabel is the text shown under the day number: the solar term when
// one starts on the day, the lunar month name on the first of a lunar month,
// otherwise the lunar day.
func (d Day) SecondaryLabel() string {
	if d.SolarTerm != "" {
		return d.SolarTerm
	}
	if d.LunarDayAlias == "初一" && d.LunarMonthAlias != "" {
		return d.LunarMonthAlias
	}
	return d.LunarDayAlias
}

// StripView is the generated range for an anchor, decorated for display.
type StripView struct {
	Anchor time.Time
	Start  time.Time
	End    time.Time
	Title  string
	Days   []Day
	Weeks  [][]Day
}

// Dates returns the plain dates of the view in order.
func (v StripView) Dates() []time.Time {
	out := make([]time.Time, len(v.Days))
	for i, d := range v.Days {
		out[i] = d.Date
	}
	return out
}

// Index returns the position of t's civil date in Days or -1. t is read in
// the zone the view was generated in.
func (v StripView) Index(t time.Time) int {
	if len(v.Days) == 0 {
		return -1
	}
	loc := v.Days[0].Date.Location()
	y, m, d := t.In(loc).Date()
	target := time.Date(y, m, d, 0, 0, 0, 0, loc)
	i, found := slices.BinarySearchFunc(v.Days, target, func(day Day, t time.Time) int {
		return day.Date.Compare(t)
	})
	if !found {
		return -1
	}
	return i
}

// Service builds strip views over the generated date range.
type Service struct {
	now   func() time.Time
	cal   daterange.Calendar
	lunar bool

	mu     sync.RWMutex
	events events.Set
}

// Option configures the Service.
type Option func(*Service)

// WithNow overrides the clock, which is useful for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLocation sets the time zone days are generated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		s.cal = daterange.New(loc)
	}
}

// WithEvents sets the event markers.
func WithEvents(set events.Set) Option {
	return func(s *Service) {
		s.events = set
	}
}

// WithLunar enables lunar calendar labels.
func WithLunar(enabled bool) Option {
	return func(s *Service) {
		s.lunar = enabled
	}
}

// NewService constructs a Service.
func NewService(opts ...Option) *Service {
	s := &Service{
		now: time.Now,
		cal: daterange.New(time.Local),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calendar returns the calendar context used for generation.
func (s *Service) Calendar() daterange.Calendar {
	return s.cal
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// SetEvents replaces the event markers.
func (s *Service) SetEvents(set events.Set) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = set
}

// HasEventData reports whether any event markers are loaded.
func (s *Service) HasEventData() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events.Len() > 0
}

// EventsOn returns the events on t's civil day.
func (s *Service) EventsOn(t time.Time) []events.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events.On(s.cal.StartOfDay(t))
}

// Strip builds the view for anchor.
func (s *Service) Strip(anchor time.Time) StripView {
	r := s.cal.Range(anchor)
	now := s.now()
	anchorDay := s.cal.StartOfDay(anchor)

	days := make([]Day, len(r.Days))
	for i, d := range r.Days {
		days[i] = s.buildDay(d, anchorDay, now)
	}
	return StripView{
		Anchor: anchorDay,
		Start:  r.Start,
		End:    r.End,
		Title:  title(r.Start, r.End),
		Days:   days,
		Weeks:  groupWeeks(days),
	}
}

func (s *Service) buildDay(date, anchor, now time.Time) Day {
	day := Day{
		Date:          date,
		IsToday:       s.cal.IsToday(date, now),
		InAnchorMonth: date.Year() == anchor.Year() && date.Month() == anchor.Month(),
		Events:        s.EventsOn(date),
	}
	if !s.lunar || date.Year() < MinLunarYear || date.Year() > MaxLunarYear {
		return day
	}
	cal := calendarlib.BySolar(
		int64(date.Year()),
		int64(date.Month()),
		int64(date.Day()),
		12, 0, 0,
	)
	day.LunarDayAlias = cal.Lunar.DayAlias()
	day.LunarMonthAlias = cal.Lunar.MonthAlias()
	if term := cal.Solar.CurrentSolarterm; term != nil && term.IsInDay(&date) {
		day.SolarTerm = term.Alias()
	}
	return day
}

// groupWeeks splits days into Sunday-first weeks, padding the ends with zero
// Days so every week has seven cells.
func groupWeeks(days []Day) [][]Day {
	if len(days) == 0 {
		return nil
	}
	var weeks [][]Day
	week := make([]Day, int(days[0].Date.Weekday()), 7)
	for _, d := range days {
		if len(week) == 7 {
			weeks = append(weeks, week)
			week = make([]Day, 0, 7)
		}
		week = append(week, d)
	}
	for len(week) < 7 {
		week = append(week, Day{})
	}
	return append(weeks, week)
}

func title(start, end time.Time) string {
	switch {
	case start.Year() != end.Year():
		return fmt.Sprintf("%s %d - %s %d", start.Month().String()[:3], start.Year(), end.Month().String()[:3], end.Year())
	case start.Month() != end.Month():
		return fmt.Sprintf("%s - %s %d", start.Month().String()[:3], end.Month().String()[:3], end.Year())
	default:
		return fmt.Sprintf("%s %d", start.Month(), start.Year())
	}
}
