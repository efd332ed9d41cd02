package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lululau/weekstrip/internal/calendar"
	"github.com/lululau/weekstrip/internal/textwidth"
)

const (
	minCellWidth = 4
	eventMarker  = "•"
	weekGap      = " │ "
)

var (
	noColorMode bool // Global flag to disable all color output
)

// SetNoColor sets the global no-color flag
func SetNoColor(disable bool) {
	noColorMode = disable
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FEC260"))
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#A5B4FC"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	todayStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#34D399"))
	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#0F172A")).
			Background(lipgloss.Color("#FEC260"))
	markerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F97316"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8"))
)

var weekdays = []string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"}

// CellState is the visual state of a day cell: normal (optionally today) or
// selected.
type CellState struct {
	Selected bool
	Today    bool
}

// Styler lets the host customise a day cell. The returned style is applied
// to the cell's day number and secondary label after they are padded.
type Styler func(day calendar.Day, state CellState) lipgloss.Style

// DefaultStyler highlights the selected day, then today, and dims days
// outside the anchor month.
func DefaultStyler(day calendar.Day, state CellState) lipgloss.Style {
	switch {
	case state.Selected:
		return selectedStyle
	case state.Today:
		return todayStyle
	case !day.InAnchorMonth:
		return dimStyle
	default:
		return lipgloss.NewStyle()
	}
}

// StripOptions describes one rendering of the visible window.
type StripOptions struct {
	Title       string
	Days        []calendar.Day
	Selected    time.Time
	HasSelected bool
	Lunar       bool
	Styler      Styler
	// HasEvent and IsToday, when set, decide the event marker and today
	// state instead of the decorated Day.
	HasEvent func(day time.Time) bool
	IsToday  func(day time.Time) bool
}

func (o StripOptions) hasEvent(day calendar.Day) bool {
	if o.HasEvent != nil {
		return o.HasEvent(day.Date)
	}
	return day.HasEvent()
}

func (o StripOptions) isToday(day calendar.Day) bool {
	if o.IsToday != nil {
		return o.IsToday(day.Date)
	}
	return day.IsToday
}

// Strip renders days as a horizontal row of cells grouped into weeks: a
// weekday header, the day numbers, event markers and optionally lunar labels.
func Strip(opts StripOptions) string {
	if len(opts.Days) == 0 {
		return ""
	}
	styler := opts.Styler
	if styler == nil {
		styler = DefaultStyler
	}
	width := cellWidth(opts.Days, opts.Lunar)

	var header, numbers, markers, labels []string
	for i, day := range opts.Days {
		if i > 0 && day.Date.Weekday() == time.Sunday {
			header = append(header, weekGap)
			numbers = append(numbers, weekGap)
			markers = append(markers, strings.Repeat(" ", textwidth.Width(weekGap)))
			labels = append(labels, weekGap)
		}
		state := CellState{
			Selected: opts.HasSelected && sameDay(day.Date, opts.Selected),
			Today:    opts.isToday(day),
		}
		header = append(header, paint(headerStyle, textwidth.Center(weekdays[day.Date.Weekday()], width)))
		numbers = append(numbers, paint(styler(day, state), textwidth.Center(dayNumber(day, state), width)))
		markers = append(markers, paint(markerStyle, textwidth.Center(marker(opts.hasEvent(day)), width)))
		if opts.Lunar {
			labels = append(labels, paint(styler(day, state), textwidth.Center(day.SecondaryLabel(), width)))
		}
	}

	rows := []string{
		strings.Join(header, ""),
		strings.Join(numbers, ""),
	}
	if opts.Lunar {
		rows = append(rows, strings.Join(labels, ""))
	}
	rows = append(rows, strings.Join(markers, ""))

	title := opts.Title
	if title != "" {
		rows = append([]string{paint(titleStyle, title), ""}, rows...)
	}
	return strings.Join(rows, "\n")
}

// CellWidth is the number of columns a single day cell occupies.
func CellWidth(days []calendar.Day, lunar bool) int {
	return cellWidth(days, lunar)
}

// VisibleDays returns how many cells of the given width fit in cols columns,
// accounting for the week separators.
func VisibleDays(cols, cell int) int {
	if cell <= 0 {
		return 1
	}
	weekCols := 7*cell + textwidth.Width(weekGap)
	n := (cols / weekCols) * 7
	n += min((cols%weekCols)/cell, 7)
	return max(n, 1)
}

func cellWidth(days []calendar.Day, lunar bool) int {
	w := minCellWidth
	if !lunar {
		return w
	}
	for _, d := range days {
		w = max(w, textwidth.Width(d.SecondaryLabel())+2)
	}
	return w
}

func dayNumber(day calendar.Day, state CellState) string {
	n := fmt.Sprintf("%d", day.Date.Day())
	if !noColorMode {
		return n
	}
	// Without colour the state has to be visible in the text itself.
	switch {
	case state.Selected:
		return "[" + n + "]"
	case state.Today:
		return "*" + n
	default:
		return n
	}
}

func marker(hasEvent bool) string {
	if hasEvent {
		return eventMarker
	}
	return ""
}

func paint(style lipgloss.Style, s string) string {
	if noColorMode {
		return s
	}
	return style.Render(s)
}

func sameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// HelpLine describes the interactive key bindings.
func HelpLine() string {
	helpText := "h/l ←/→ select day  H/L scroll  m toggle paging  . today  g go to date  esc clear  q quit"
	if noColorMode {
		return helpText
	}
	return helpStyle.Render(helpText)
}

// Legend explains the event marker.
func Legend() string {
	legend := eventMarker + " has events"
	if noColorMode {
		return legend
	}
	return dimStyle.Render(legend)
}
