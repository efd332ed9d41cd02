// Package events loads the per-day event markers shown beneath strip cells.
package events

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the on-disk form of an event's day.
const DateLayout = "2006-01-02"

// idNamespace scopes generated event IDs.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("weekstrip/events"))

// Event is a single marker attached to a civil day.
type Event struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Date   string `json:"date" yaml:"date"`
	Name   string `json:"name" yaml:"name"`
	Source string `json:"-" yaml:"-"`
}

// UnmarshalJSON accepts either "YYYY-MM-DD" or an RFC 3339 timestamp for the
// date so exported calendars can be dropped in unchanged.
func (e *Event) UnmarshalJSON(data []byte) error {
	type alias Event
	aux := (*alias)(e)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	return e.normalizeDate()
}

func (e *Event) normalizeDate() error {
	raw := strings.TrimSpace(e.Date)
	if raw == "" {
		return fmt.Errorf("event %q: missing date", e.Name)
	}
	if _, err := time.Parse(DateLayout, raw); err == nil {
		e.Date = raw
		return nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("event %q: invalid date %q", e.Name, raw)
	}
	e.Date = ts.Format(DateLayout)
	return nil
}

// StableID returns e.ID, or an ID derived from the day and name when the
// source did not supply one.
func (e Event) StableID() string {
	if e.ID != "" {
		return e.ID
	}
	return uuid.NewSHA1(idNamespace, []byte(e.Date+"\x00"+e.Name)).String()
}

// Key returns the lookup key for the civil day of t.
func Key(t time.Time) string {
	return t.Format(DateLayout)
}

// Set indexes events by day.
type Set map[string][]Event

// NewSet builds a Set, dropping events whose stable ID was already seen.
func NewSet(evs ...Event) Set {
	s := Set{}
	s.add(evs...)
	return s
}

func (s Set) add(evs ...Event) {
	for _, ev := range evs {
		ev.ID = ev.StableID()
		if slices.ContainsFunc(s[ev.Date], func(o Event) bool { return o.ID == ev.ID }) {
			continue
		}
		s[ev.Date] = append(s[ev.Date], ev)
	}
}

// Merge returns a new Set holding the events of s and others.
func (s Set) Merge(others ...Set) Set {
	out := Set{}
	for _, evs := range s {
		out.add(evs...)
	}
	for _, o := range others {
		for _, evs := range o {
			out.add(evs...)
		}
	}
	return out
}

// Has reports whether any event falls on t's civil day.
func (s Set) Has(t time.Time) bool {
	return len(s[Key(t)]) > 0
}

// On returns the events on t's civil day.
func (s Set) On(t time.Time) []Event {
	return s[Key(t)]
}

// Len returns the total number of events.
func (s Set) Len() int {
	n := 0
	for _, evs := range s {
		n += len(evs)
	}
	return n
}

// Span returns the first and last day holding events.
func (s Set) Span() (first, last string, ok bool) {
	if len(s) == 0 {
		return "", "", false
	}
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys[0], keys[len(keys)-1], true
}
