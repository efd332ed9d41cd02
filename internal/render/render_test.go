package render

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lululau/weekstrip/internal/calendar"
	"github.com/lululau/weekstrip/internal/events"
	"github.com/lululau/weekstrip/internal/textwidth"
)

func fixtureService(opts ...calendar.Option) *calendar.Service {
	now := time.Date(2021, 1, 25, 9, 0, 0, 0, time.UTC)
	opts = append([]calendar.Option{
		calendar.WithLocation(time.UTC),
		calendar.WithNow(func() time.Time { return now }),
	}, opts...)
	return calendar.NewService(opts...)
}

func withNoColor(t *testing.T) {
	t.Helper()
	SetNoColor(true)
	t.Cleanup(func() { SetNoColor(false) })
}

func TestStripRowsAlign(t *testing.T) {
	withNoColor(t)
	svc := fixtureService(calendar.WithEvents(events.NewSet(events.Event{Date: "2021-01-26", Name: "Review"})))
	view := svc.Strip(svc.Now())
	i := view.Index(svc.Now())
	days := view.Days[i-1 : i+6] // Sunday 24th through Saturday 30th

	out := Strip(StripOptions{
		Title:       view.Title,
		Days:        days,
		Selected:    days[3].Date,
		HasSelected: true,
	})
	lines := strings.Split(out, "\n")
	if lines[0] != "Dec 2020 - Feb 2021" {
		t.Fatalf("title: %q", lines[0])
	}
	rows := lines[2:]
	if len(rows) != 3 {
		t.Fatalf("expected header, numbers and markers, got %d rows:\n%s", len(rows), out)
	}
	for _, row := range rows[:2] {
		if got := textwidth.Width(row); got != 7*minCellWidth {
			t.Fatalf("row %q has width %d", row, got)
		}
	}
	if !strings.Contains(rows[1], "*25") {
		t.Fatalf("today should be marked without colour: %q", rows[1])
	}
	if !strings.Contains(rows[1], "[27]") {
		t.Fatalf("selection should be bracketed without colour: %q", rows[1])
	}
	if strings.Count(rows[2], eventMarker) != 1 {
		t.Fatalf("expected one event marker: %q", rows[2])
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("no-color output contains escape codes")
	}
}

func TestStripSeparatesWeeks(t *testing.T) {
	withNoColor(t)
	svc := fixtureService()
	view := svc.Strip(svc.Now())
	out := Strip(StripOptions{Days: view.Days[:14]})
	header := strings.Split(out, "\n")[0]
	if strings.Count(header, "│") != 1 {
		t.Fatalf("two weeks should have one separator: %q", header)
	}
	if got, want := textwidth.Width(header), 14*minCellWidth+textwidth.Width(weekGap); got != want {
		t.Fatalf("header width %d, want %d", got, want)
	}
}

func TestStripLunarRow(t *testing.T) {
	withNoColor(t)
	svc := fixtureService(calendar.WithLunar(true))
	view := svc.Strip(svc.Now())
	out := Strip(StripOptions{Days: view.Days[:7], Lunar: true})
	if rows := strings.Split(out, "\n"); len(rows) != 4 {
		t.Fatalf("expected a lunar row, got:\n%s", out)
	}
	if CellWidth(view.Days[:7], true) < minCellWidth {
		t.Fatalf("cell width below minimum")
	}
}

func TestCustomStyler(t *testing.T) {
	var calls int
	var sawSelected bool
	styler := func(day calendar.Day, state CellState) lipgloss.Style {
		calls++
		sawSelected = sawSelected || state.Selected
		return lipgloss.NewStyle()
	}
	svc := fixtureService()
	view := svc.Strip(svc.Now())
	Strip(StripOptions{Days: view.Days[:7], Styler: styler, Selected: view.Days[2].Date, HasSelected: true})
	if calls != 7 || !sawSelected {
		t.Fatalf("styler called %d times, selected seen %v", calls, sawSelected)
	}
}

func TestDefaultStylerPriority(t *testing.T) {
	day := calendar.Day{InAnchorMonth: false}
	if got := DefaultStyler(day, CellState{Selected: true, Today: true}); got.GetBackground() != selectedStyle.GetBackground() {
		t.Fatalf("selection should win over today")
	}
	if got := DefaultStyler(day, CellState{}); got.GetForeground() != dimStyle.GetForeground() {
		t.Fatalf("days outside the anchor month should be dimmed")
	}
}

func TestVisibleDays(t *testing.T) {
	cases := []struct {
		cols, cell, want int
	}{
		{cols: 10, cell: 4, want: 2},
		{cols: 28, cell: 4, want: 7},
		{cols: 31, cell: 4, want: 7},
		{cols: 35, cell: 4, want: 8},
		{cols: 62, cell: 4, want: 14},
		{cols: 2, cell: 4, want: 1},
	}
	for _, tc := range cases {
		if got := VisibleDays(tc.cols, tc.cell); got != tc.want {
			t.Errorf("VisibleDays(%d, %d) = %d, want %d", tc.cols, tc.cell, got, tc.want)
		}
	}
}

func TestPlainWeekTable(t *testing.T) {
	withNoColor(t)
	svc := fixtureService(calendar.WithEvents(events.NewSet(events.Event{Date: "2021-02-14", Name: "Valentine"})))
	var buf bytes.Buffer
	err := RunPlain(PlainOptions{Writer: &buf, Service: svc, EventCacheValid: true})
	if err != nil {
		t.Fatalf("RunPlain failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Dec 2020 - Feb 2021", "[25]", "Jan 1", "Feb 1", "14•", "has events"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "weekstrip -u") {
		t.Fatalf("refresh hint printed with a valid cache")
	}
}

func TestPlainHintsStaleCache(t *testing.T) {
	withNoColor(t)
	var buf bytes.Buffer
	if err := RunPlain(PlainOptions{Writer: &buf, Service: fixtureService()}); err != nil {
		t.Fatalf("RunPlain failed: %v", err)
	}
	if !strings.Contains(buf.String(), "weekstrip -u") {
		t.Fatalf("expected refresh hint:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "has events") {
		t.Fatalf("legend printed without event data")
	}
}

func TestPlainLunarLabels(t *testing.T) {
	withNoColor(t)
	svc := fixtureService(calendar.WithLunar(true))
	view := svc.Strip(time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC))
	out := Plain(view, true, 200)
	if !strings.Contains(out, "初") && !strings.Contains(out, "廿") {
		t.Fatalf("expected lunar labels in layout, got:\n%s", out)
	}
	narrow := Plain(view, true, 40)
	if strings.Contains(narrow, "初") || strings.Contains(narrow, "廿") {
		t.Fatalf("lunar labels should be dropped when too narrow, got:\n%s", narrow)
	}
	if narrow != Plain(view, false, 0) {
		t.Fatalf("narrow lunar table should match the solar-only table")
	}
}

func TestPlainWidthFallback(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if got := detectWidth(f.Fd()); got != defaultWidth {
		t.Fatalf("non-terminal width %d, want %d", got, defaultWidth)
	}

	withNoColor(t)
	svc := fixtureService(calendar.WithLunar(true))
	anchor := time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC)
	var wide, narrow bytes.Buffer
	if err := RunPlain(PlainOptions{Writer: &wide, Service: svc, Anchor: anchor, Lunar: true, EventCacheValid: true}); err != nil {
		t.Fatal(err)
	}
	if err := RunPlain(PlainOptions{Writer: &narrow, Service: svc, Anchor: anchor, Lunar: true, Width: 40, EventCacheValid: true}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(wide.String(), "廿") {
		t.Fatalf("default width should fit lunar labels:\n%s", wide.String())
	}
	if strings.Contains(narrow.String(), "廿") {
		t.Fatalf("width 40 should drop lunar labels:\n%s", narrow.String())
	}
}

func TestStripAsksHostForMarkersAndToday(t *testing.T) {
	withNoColor(t)
	svc := fixtureService()
	view := svc.Strip(svc.Now())
	i := view.Index(svc.Now())
	days := view.Days[i-1 : i+6]

	out := Strip(StripOptions{
		Days:     days,
		HasEvent: func(d time.Time) bool { return d.Day() == 27 },
		IsToday:  func(d time.Time) bool { return d.Day() == 28 },
	})
	rows := strings.Split(out, "\n")
	if strings.Count(rows[2], eventMarker) != 1 {
		t.Fatalf("expected the host's single marker: %q", rows[2])
	}
	if at := strings.Index(rows[2], eventMarker); textwidth.Width(rows[2][:at]) != 3*minCellWidth+1 {
		t.Fatalf("marker should sit under the 27th: %q", rows[2])
	}
	if !strings.Contains(rows[1], "*28") || strings.Contains(rows[1], "*25") {
		t.Fatalf("today should come from the host: %q", rows[1])
	}
}
