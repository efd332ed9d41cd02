package tui

import (
	"context"
	"strings"
	"time"

	"cloudeng.io/logging/ctxlog"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lululau/weekstrip/internal/calendar"
	"github.com/lululau/weekstrip/internal/events"
	"github.com/lululau/weekstrip/internal/render"
	"github.com/lululau/weekstrip/internal/strip"
)

var (
	noColorMode bool // Global flag to disable all color output
)

// SetNoColor sets the global no-color flag
func SetNoColor(disable bool) {
	noColorMode = disable
}

var (
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F97316"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	labelStyle   = lipgloss.NewStyle().Bold(true)
)

// Options configures the interactive UI.
type Options struct {
	Service *calendar.Service
	// Anchor is the day the first range is generated around; today when zero.
	Anchor time.Time
	Mode   strip.ScrollMode
	// VisibleDays fixes the number of days in view; when zero it follows the
	// terminal width.
	VisibleDays     int
	Lunar           bool
	EventCacheValid bool
	// WatchPaths are event files whose changes trigger Reload.
	WatchPaths []string
	Reload     func(ctx context.Context) (events.Set, error)
}

// Run starts the interactive Bubble Tea UI.
func Run(ctx context.Context, opts Options) error {
	m := newModel(ctx, opts)
	if len(opts.WatchPaths) > 0 && opts.Reload != nil {
		changes, err := events.Watch(ctx, opts.WatchPaths...)
		if err != nil {
			ctxlog.Logger(ctx).Warn("not watching event files", "error", err)
		} else {
			m.changes = changes
		}
	}
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := prog.Run()
	return err
}

// eventsChangedMsg reports that a watched event file changed.
type eventsChangedMsg struct{ path string }

// eventsLoadedMsg carries the result of reloading event files.
type eventsLoadedMsg struct {
	set events.Set
	err error
}

// model is the Bubble Tea model. It is also the strip's delegate, so it is
// used by pointer.
type model struct {
	ctx   context.Context
	svc   *calendar.Service
	view  calendar.StripView
	strip *strip.State

	width       int
	fixedCount  int
	lunar       bool
	inputActive bool
	input       textinput.Model
	statusMsg   string

	eventCacheValid bool
	changes         <-chan string
	reload          func(ctx context.Context) (events.Set, error)
}

func newModel(ctx context.Context, opts Options) *model {
	svc := opts.Service
	if svc == nil {
		svc = calendar.NewService()
	}
	anchor := opts.Anchor
	if anchor.IsZero() {
		anchor = svc.Now()
	}
	anchor = svc.Calendar().StartOfDay(anchor)
	ti := textinput.New()
	ti.Placeholder = events.DateLayout
	ti.CharLimit = 10
	ti.Prompt = "> "

	m := &model{
		ctx:             ctx,
		svc:             svc,
		view:            svc.Strip(anchor),
		fixedCount:      opts.VisibleDays,
		lunar:           opts.Lunar,
		input:           ti,
		eventCacheValid: opts.EventCacheValid,
		reload:          opts.Reload,
	}
	visible := opts.VisibleDays
	if visible <= 0 {
		visible = 7
	}
	m.strip = strip.New(m.view.Dates(),
		strip.WithDelegate(m),
		strip.WithMode(opts.Mode),
		strip.WithVisibleCount(visible),
		strip.WithNow(svc.Now),
	)
	m.strip.Reset(m.view.Dates(), anchor)
	m.strip.Select(anchor)
	return m
}

// DateSelected implements strip.Delegate.
func (m *model) DateSelected(day time.Time) {
	ctxlog.Logger(m.ctx).Debug("date selected", "date", day.Format(events.DateLayout))
	m.statusMsg = ""
}

// VisibleRangeChanged implements strip.Delegate.
func (m *model) VisibleRangeChanged(days []time.Time) {
	if len(days) == 0 {
		return
	}
	ctxlog.Logger(m.ctx).Debug("visible range changed",
		"first", days[0].Format(events.DateLayout),
		"last", days[len(days)-1].Format(events.DateLayout))
}

// HasEvent implements strip.Delegate.
func (m *model) HasEvent(day time.Time) bool {
	return len(m.svc.EventsOn(day)) > 0
}

func (m *model) Init() tea.Cmd {
	return m.waitForChange()
}

func (m *model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	changes := m.changes
	return func() tea.Msg {
		path, ok := <-changes
		if !ok {
			return nil
		}
		return eventsChangedMsg{path: path}
	}
}

func (m *model) reloadEvents() tea.Cmd {
	ctx, reload := m.ctx, m.reload
	return func() tea.Msg {
		set, err := reload(ctx)
		return eventsLoadedMsg{set: set, err: err}
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.fitWidth()
	case eventsChangedMsg:
		ctxlog.Logger(m.ctx).Info("reloading events", "path", msg.path)
		return m, m.reloadEvents()
	case eventsLoadedMsg:
		if msg.err != nil {
			ctxlog.Logger(m.ctx).Warn("failed to reload events", "error", msg.err)
			m.statusMsg = "failed to reload events: " + msg.err.Error()
		} else {
			m.svc.SetEvents(msg.set)
			m.rebuild()
		}
		return m, m.waitForChange()
	case tea.KeyMsg:
		if m.inputActive {
			return m.handleInputKey(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "h", "left":
			m.move(-1)
		case "l", "right":
			m.move(1)
		case "H":
			m.strip.ScrollBy(-1)
		case "L":
			m.strip.ScrollBy(1)
		case "m":
			if m.strip.Mode() == strip.Paged {
				m.strip.SetMode(strip.Continuous)
			} else {
				m.strip.SetMode(strip.Paged)
			}
		case ".":
			m.goTo(m.svc.Now())
		case "g":
			m.activateInput()
		case "esc":
			m.strip.ClearSelection()
			m.statusMsg = ""
		}
	}
	return m, nil
}

// move shifts the selection by delta days, regenerating the range around the
// new day when it falls off either end.
func (m *model) move(delta int) {
	if m.strip.MoveSelection(delta) {
		return
	}
	sel, ok := m.strip.Selected()
	if !ok {
		return
	}
	next, ok := m.svc.Calendar().AddDays(sel, delta)
	if !ok {
		m.statusMsg = "no days beyond " + sel.Format(events.DateLayout)
		return
	}
	m.goTo(next)
}

// goTo regenerates the range around day's civil date in the calendar's time
// zone and selects it.
func (m *model) goTo(day time.Time) {
	day = m.svc.Calendar().StartOfDay(day)
	m.anchor(day)
	m.strip.Select(day)
}

func (m *model) anchor(day time.Time) {
	m.view = m.svc.Strip(day)
	m.strip.Reset(m.view.Dates(), day)
	m.fitWidth()
}

// rebuild re-decorates the current range, keeping selection and scroll.
func (m *model) rebuild() {
	m.view = m.svc.Strip(m.view.Anchor)
}

func (m *model) fitWidth() {
	if m.fixedCount > 0 || m.width <= 0 {
		return
	}
	cell := render.CellWidth(m.view.Days, m.lunar)
	m.strip.SetVisibleCount(render.VisibleDays(m.width, cell))
}

func (m *model) visibleDays() []calendar.Day {
	visible := m.strip.Visible()
	if len(visible) == 0 {
		return nil
	}
	off := m.view.Index(visible[0])
	if off < 0 || off+len(visible) > len(m.view.Days) {
		return nil
	}
	return m.view.Days[off : off+len(visible)]
}

func (m *model) View() string {
	if m.inputActive {
		return m.inputView()
	}

	sel, hasSel := m.strip.Selected()
	body := render.Strip(render.StripOptions{
		Title:       m.view.Title,
		Days:        m.visibleDays(),
		Selected:    sel,
		HasSelected: hasSel,
		Lunar:       m.lunar,
		HasEvent:    m.strip.HasEvent,
		IsToday:     m.strip.IsToday,
	})

	sb := strings.Builder{}
	sb.WriteString(body)
	sb.WriteString("\n\n")
	sb.WriteString(m.selectionLine(sel, hasSel))
	sb.WriteString("\n")
	sb.WriteString(render.HelpLine())
	if m.statusMsg != "" {
		sb.WriteString("\n")
		sb.WriteString(paint(statusStyle, m.statusMsg))
	}
	if !m.eventCacheValid {
		sb.WriteString("\n\n")
		sb.WriteString(paint(warningStyle, "Event data has not been downloaded or is out of date, run  weekstrip -u  to refresh it"))
	}
	return sb.String()
}

// selectionLine describes the selected day and its events.
func (m *model) selectionLine(sel time.Time, ok bool) string {
	if !ok {
		return m.strip.Mode().String() + " scrolling"
	}
	line := sel.Format("Mon Jan 2 2006")
	evs := m.svc.EventsOn(sel)
	if len(evs) == 0 {
		return line
	}
	names := make([]string, len(evs))
	for i, ev := range evs {
		names[i] = ev.Name
	}
	return line + ": " + strings.Join(names, ", ")
}

func (m *model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.inputActive = false
		m.input.Blur()
		m.statusMsg = ""
		return m, nil
	case tea.KeyEnter:
		m.applyInput()
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) activateInput() {
	m.inputActive = true
	m.input.SetValue("")
	m.input.CursorEnd()
	m.input.Focus()
	m.statusMsg = ""
}

func (m *model) applyInput() {
	value := strings.TrimSpace(m.input.Value())
	if value == "" {
		m.statusMsg = "enter a date as " + events.DateLayout
		return
	}
	day, err := time.ParseInLocation(events.DateLayout, value, m.svc.Calendar().Location())
	if err != nil {
		m.statusMsg = "invalid date " + value
		return
	}
	m.inputActive = false
	m.input.Blur()
	m.statusMsg = ""
	m.goTo(day)
}

func (m *model) inputView() string {
	label := "Go to date " + events.DateLayout + " (enter to confirm / esc to cancel)"
	return paint(labelStyle, label) + "\n\n" + m.input.View()
}

func paint(style lipgloss.Style, s string) string {
	if noColorMode {
		return s
	}
	return style.Render(s)
}
