package render

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/lululau/weekstrip/internal/calendar"
	"github.com/lululau/weekstrip/internal/textwidth"
)

const (
	cellPadding  = 1
	defaultWidth = 100
)

var tableWrapperStyle = lipgloss.NewStyle().Padding(0, 1)

// PlainOptions controls how the non-interactive renderer behaves.
type PlainOptions struct {
	Writer  io.Writer
	Service *calendar.Service
	Anchor  time.Time
	Lunar   bool
	// Width is the number of columns available. When zero it is detected
	// from the terminal if writing to stdout, and defaultWidth otherwise.
	Width int
	// EventCacheValid is false when downloaded event data is missing or
	// stale; a hint to refresh it is printed.
	EventCacheValid bool
}

// RunPlain renders the range generated for the anchor exactly once.
func RunPlain(opts PlainOptions) error {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
		if opts.Width == 0 {
			opts.Width = DetectWidth()
		}
	}
	if opts.Width == 0 {
		opts.Width = defaultWidth
	}
	if opts.Service == nil {
		opts.Service = calendar.NewService()
	}
	anchor := opts.Anchor
	if anchor.IsZero() {
		anchor = opts.Service.Now()
	}

	output := Plain(opts.Service.Strip(anchor), opts.Lunar, opts.Width)
	if output == "" {
		return nil
	}
	if _, err := fmt.Fprintln(opts.Writer, output); err != nil {
		return err
	}
	if opts.Service.HasEventData() {
		if _, err := fmt.Fprintln(opts.Writer, "\n"+Legend()); err != nil {
			return err
		}
	}
	if !opts.EventCacheValid {
		_, err := fmt.Fprintln(opts.Writer, "\nEvent data has not been downloaded or is out of date, run  weekstrip -u  to refresh it")
		return err
	}
	return nil
}

// Plain renders a whole view as a Sunday-first week table: one row of day
// numbers per week, followed by a lunar row when lunar is set. Today is
// bracketed and days with events carry a marker. The lunar rows are dropped
// when the table would be wider than width columns; zero means no limit.
func Plain(view calendar.StripView, lunar bool, width int) string {
	if len(view.Weeks) == 0 {
		return ""
	}
	colWidth := plainColumnWidth(view, lunar) + cellPadding*2
	if lunar && width > 0 && plainTableWidth(colWidth) > width {
		lunar = false
		colWidth = plainColumnWidth(view, false) + cellPadding*2
	}
	columns := make([]table.Column, len(weekdays))
	for i, title := range weekdays {
		columns[i] = table.Column{Title: title, Width: colWidth}
	}

	var today string
	rows := make([]table.Row, 0, len(view.Weeks)*2)
	for _, week := range view.Weeks {
		numbers := make(table.Row, len(week))
		labels := make(table.Row, len(week))
		for i, day := range week {
			numbers[i] = plainDayCell(day)
			if day.IsToday {
				today = numbers[i]
			}
			if !day.IsZero() {
				labels[i] = day.SecondaryLabel()
			}
		}
		rows = append(rows, numbers)
		if lunar {
			rows = append(rows, labels)
		}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(len(rows)+2),
	)
	t.SetStyles(tableStyles())
	t.Blur()

	tableView := strings.TrimRight(t.View(), "\n ")
	if !noColorMode {
		tableView = tableWrapperStyle.Render(tableView)
		// Colour after layout so the table measures plain text only.
		if today != "" {
			tableView = strings.Replace(tableView, today, todayStyle.Render(today), 1)
		}
	}
	return paint(titleStyle, view.Title) + "\n\n" + tableView
}

func plainDayCell(day calendar.Day) string {
	if day.IsZero() {
		return ""
	}
	cell := fmt.Sprintf("%2d", day.Date.Day())
	if day.Date.Day() == 1 {
		cell = day.Date.Month().String()[:3] + " 1"
	}
	if day.IsToday {
		cell = "[" + strings.TrimSpace(cell) + "]"
	}
	if day.HasEvent() {
		cell += eventMarker
	}
	return cell
}

func plainColumnWidth(view calendar.StripView, lunar bool) int {
	width := minCellWidth
	for _, day := range view.Days {
		width = max(width, textwidth.Width(plainDayCell(day)))
		if lunar {
			width = max(width, textwidth.Width(day.SecondaryLabel()))
		}
	}
	return width
}

func plainTableWidth(colWidth int) int {
	return len(weekdays)*colWidth + tableWrapperStyle.GetHorizontalPadding()
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	if noColorMode {
		styles.Header = lipgloss.NewStyle().Padding(0, cellPadding)
	} else {
		styles.Header = headerStyle.Padding(0, cellPadding)
	}
	styles.Selected = lipgloss.NewStyle()
	styles.Cell = lipgloss.NewStyle().Padding(0, cellPadding)
	return styles
}

// DetectWidth tries to determine the terminal width of stdout, falling back
// to 100 cols.
func DetectWidth() int {
	return detectWidth(os.Stdout.Fd())
}

func detectWidth(fd uintptr) int {
	if isatty.IsTerminal(fd) {
		if w, _, err := term.GetSize(int(fd)); err == nil && w > 0 {
			return w
		}
	}
	return defaultWidth
}
