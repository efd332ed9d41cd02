package strip

import (
	"testing"
	"time"

	"github.com/lululau/weekstrip/internal/daterange"
)

type recorder struct {
	selected []time.Time
	visible  [][]time.Time
	marked   map[string]bool
}

func (r *recorder) DateSelected(day time.Time) { r.selected = append(r.selected, day) }

func (r *recorder) VisibleRangeChanged(days []time.Time) { r.visible = append(r.visible, days) }

func (r *recorder) HasEvent(day time.Time) bool { return r.marked[day.Format(time.DateOnly)] }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fixture is the 70-day range for 2021-01-25: 2020-12-20 through 2021-02-27.
func fixture() []time.Time {
	return daterange.New(time.UTC).Generate(date(2021, 1, 25))
}

func TestSelectInsideRange(t *testing.T) {
	rec := &recorder{}
	s := New(fixture(), WithDelegate(rec), WithVisibleCount(7))

	if !s.Select(date(2021, 1, 25)) {
		t.Fatalf("Select returned false for a day in range")
	}
	got, ok := s.Selected()
	if !ok || !got.Equal(date(2021, 1, 25)) {
		t.Fatalf("Selected: got %v %v", got, ok)
	}
	if len(rec.selected) != 1 {
		t.Fatalf("expected one selection notification, got %d", len(rec.selected))
	}
	vis := s.Visible()
	if len(vis) != 7 || !vis[6].Equal(date(2021, 1, 25)) {
		t.Fatalf("selected day should be scrolled into view: %v", vis)
	}

	// Reselecting the same day does not notify again.
	s.Select(date(2021, 1, 25))
	if len(rec.selected) != 1 {
		t.Fatalf("duplicate notification")
	}
}

func TestSelectOutsideRangeIsNoOp(t *testing.T) {
	rec := &recorder{}
	s := New(fixture(), WithDelegate(rec))
	s.Select(date(2021, 1, 1))

	if s.Select(date(2021, 3, 1)) {
		t.Fatalf("Select should reject days outside the range")
	}
	got, _ := s.Selected()
	if !got.Equal(date(2021, 1, 1)) {
		t.Fatalf("selection changed to %v", got)
	}
	if len(rec.selected) != 1 {
		t.Fatalf("unexpected notifications %v", rec.selected)
	}
	if s.ScrollTo(date(2019, 1, 1)) {
		t.Fatalf("ScrollTo should reject days outside the range")
	}
}

func TestContinuousScroll(t *testing.T) {
	rec := &recorder{}
	s := New(fixture(), WithDelegate(rec), WithVisibleCount(10))

	s.ScrollBy(3)
	if s.Offset() != 3 || len(rec.visible) != 1 {
		t.Fatalf("offset %d, %d notifications", s.Offset(), len(rec.visible))
	}
	s.ScrollBy(-10)
	if s.Offset() != 0 {
		t.Fatalf("offset should clamp at 0, got %d", s.Offset())
	}
	s.ScrollBy(-1)
	if len(rec.visible) != 2 {
		t.Fatalf("no-op scroll must not notify, got %d notifications", len(rec.visible))
	}
	s.ScrollBy(1000)
	if s.Offset() != s.Len()-10 {
		t.Fatalf("offset should clamp at the end, got %d", s.Offset())
	}
	vis := s.Visible()
	if !vis[len(vis)-1].Equal(date(2021, 2, 27)) {
		t.Fatalf("last visible day %v", vis[len(vis)-1])
	}
}

func TestPagedScroll(t *testing.T) {
	s := New(fixture(), WithMode(Paged), WithVisibleCount(16))
	if got := len(s.Visible()); got != 14 {
		t.Fatalf("paged window should be whole weeks, got %d days", got)
	}
	s.ScrollBy(1)
	if s.Offset() != 14 {
		t.Fatalf("offset: got %d, want 14", s.Offset())
	}
	if s.Visible()[0].Weekday() != time.Sunday {
		t.Fatalf("page should start on Sunday")
	}
	s.ScrollBy(100)
	if s.Offset() != 56 {
		t.Fatalf("last page offset: got %d, want 56", s.Offset())
	}

	s.ScrollTo(date(2021, 1, 6))
	if s.Offset() != 14 {
		t.Fatalf("ScrollTo should land on the containing page, got %d", s.Offset())
	}
}

func TestSetModeRealigns(t *testing.T) {
	s := New(fixture(), WithVisibleCount(7))
	s.ScrollBy(10)
	s.SetMode(Paged)
	if s.Offset() != 7 {
		t.Fatalf("offset after switching to paged: got %d, want 7", s.Offset())
	}
	if s.Mode().String() != "paged" || ParseScrollMode("paged") != Paged || ParseScrollMode("x") != Continuous {
		t.Fatalf("mode parsing mismatch")
	}
}

func TestMoveSelection(t *testing.T) {
	s := New(fixture(), WithVisibleCount(7))
	if !s.MoveSelection(1) {
		t.Fatalf("first move should select the first visible day")
	}
	if got, _ := s.Selected(); !got.Equal(date(2020, 12, 20)) {
		t.Fatalf("got %v", got)
	}
	if s.MoveSelection(-1) {
		t.Fatalf("moving before the first day should fail")
	}
	for i := 0; i < 7; i++ {
		s.MoveSelection(1)
	}
	if got, _ := s.Selected(); !got.Equal(date(2020, 12, 27)) {
		t.Fatalf("got %v", got)
	}
	if s.Offset() != 1 {
		t.Fatalf("window should follow the selection, offset %d", s.Offset())
	}
}

func TestSetVisibleCountKeepsSelection(t *testing.T) {
	rec := &recorder{}
	s := New(fixture(), WithDelegate(rec), WithVisibleCount(21))
	s.Select(date(2021, 1, 5))
	before := len(rec.visible)
	s.SetVisibleCount(7)
	if !s.Contains(date(2021, 1, 5)) {
		t.Fatalf("Contains")
	}
	found := false
	for _, d := range s.Visible() {
		found = found || d.Equal(date(2021, 1, 5))
	}
	if !found {
		t.Fatalf("selection scrolled out of view: %v", s.Visible())
	}
	if len(rec.visible) != before+1 {
		t.Fatalf("resize should notify once, got %d", len(rec.visible)-before)
	}
}

func TestResetKeepsSelection(t *testing.T) {
	s := New(fixture(), WithVisibleCount(7))
	s.Select(date(2021, 2, 10))

	next := daterange.New(time.UTC).Generate(date(2021, 2, 20))
	s.Reset(next, date(2021, 2, 20))
	got, ok := s.Selected()
	if !ok || !got.Equal(date(2021, 2, 10)) {
		t.Fatalf("selection lost: %v %v", got, ok)
	}

	far := daterange.New(time.UTC).Generate(date(2021, 6, 1))
	s.Reset(far, date(2021, 6, 1))
	if _, ok := s.Selected(); ok {
		t.Fatalf("selection should clear when it leaves the range")
	}
	found := false
	for _, d := range s.Visible() {
		found = found || d.Equal(date(2021, 6, 1))
	}
	if !found {
		t.Fatalf("anchor should be in view: %v", s.Visible())
	}
}

func TestHasEventAndIsToday(t *testing.T) {
	rec := &recorder{marked: map[string]bool{"2021-01-26": true}}
	s := New(fixture(), WithDelegate(rec), WithNow(func() time.Time {
		return time.Date(2021, 1, 25, 18, 0, 0, 0, time.UTC)
	}))
	if !s.HasEvent(date(2021, 1, 26)) || s.HasEvent(date(2021, 1, 25)) {
		t.Fatalf("HasEvent should defer to the delegate")
	}
	if !s.IsToday(date(2021, 1, 25)) || s.IsToday(date(2021, 1, 26)) {
		t.Fatalf("IsToday mismatch")
	}
	if New(fixture()).HasEvent(date(2021, 1, 26)) {
		t.Fatalf("no delegate means no events")
	}
}

func TestIndexUsesRangeZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("zoneinfo unavailable: %v", err)
	}
	days := daterange.New(tokyo).Generate(time.Date(2021, 1, 25, 0, 0, 0, 0, tokyo))
	s := New(days)

	// 20:00 UTC on the 25th is already the 26th in Tokyo.
	evening := time.Date(2021, 1, 25, 20, 0, 0, 0, time.UTC)
	i := s.Index(evening)
	if i < 0 || !days[i].Equal(time.Date(2021, 1, 26, 0, 0, 0, 0, tokyo)) {
		t.Fatalf("Index(%v) = %d", evening, i)
	}
	if !s.Select(evening) {
		t.Fatalf("Select rejected an in-range instant")
	}
	if got, _ := s.Selected(); got.Day() != 26 {
		t.Fatalf("selected %v", got)
	}
	if New(nil).Index(evening) != -1 {
		t.Fatalf("empty range has no index")
	}
}

func TestResetNotifications(t *testing.T) {
	rec := &recorder{}
	s := New(fixture(), WithDelegate(rec), WithVisibleCount(7))
	s.Select(date(2021, 2, 10))
	selections, ranges := len(rec.selected), len(rec.visible)

	s.Reset(daterange.New(time.UTC).Generate(date(2021, 2, 20)), date(2021, 2, 20))
	if len(rec.selected) != selections {
		t.Fatalf("a kept selection must not be reported again")
	}
	if len(rec.visible) != ranges+1 {
		t.Fatalf("reset should report the new visible range once, got %d", len(rec.visible)-ranges)
	}

	s.Reset(daterange.New(time.UTC).Generate(date(2021, 6, 1)), date(2021, 6, 1))
	if _, ok := s.Selected(); ok {
		t.Fatalf("selection should be cleared")
	}
	if len(rec.selected) != selections {
		t.Fatalf("a dropped selection is cleared without a DateSelected call")
	}
	if len(rec.visible) != ranges+2 {
		t.Fatalf("visible range not reported after the second reset")
	}
}
