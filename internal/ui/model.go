// Package ui is the terminal day view: one day's schedule with live
// countdowns driven by a countdown.Manager.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rezkam/focusflow/internal/application/countdown"
	"github.com/rezkam/focusflow/internal/domain"
	"github.com/rezkam/focusflow/internal/timeutil"
)

// Defaults for Config.
const (
	DefaultPollInterval   = 15 * time.Second
	DefaultRequestTimeout = 10 * time.Second
)

// Scheduler reads and annotates the day's tasks.
type Scheduler interface {
	ListTasks(ctx context.Context, day domain.Day) ([]*domain.Task, time.Time, error)
	ListTasksSince(ctx context.Context, day domain.Day, since time.Time) ([]*domain.Task, time.Time, error)
	SetManualStatus(ctx context.Context, day domain.Day, taskID, status string) (*domain.Task, error)
}

// Config holds configuration for the Model.
type Config struct {
	Day            domain.Day
	Clock          timeutil.Clock
	PollInterval   time.Duration
	RequestTimeout time.Duration

	// Schedule receives every task list the view loads. Nil hands it to the
	// manager directly.
	Schedule func(tasks []*domain.Task)

	// Visible is called when the terminal regains focus.
	Visible func()
}

type (
	tickMsg  time.Time
	pollMsg  struct{}
	tasksMsg struct {
		tasks      []*domain.Task
		serverTime time.Time
		delta      bool
		err        error
	}
	actionMsg struct {
		op  string
		err error
	}
	finishedMsg countdown.Event
)

// Model is the root bubbletea model.
type Model struct {
	ctx       context.Context
	scheduler Scheduler
	manager   *countdown.Manager
	cfg       Config

	keys   KeyMap
	help   help.Model
	styles styles

	tasks    []*domain.Task
	since    time.Time
	cursor   int
	width    int
	snapshot countdown.Snapshot
	notice   string
	err      error
	loaded   bool
}

// New creates the day view. ctx bounds the background commands.
func New(ctx context.Context, scheduler Scheduler, manager *countdown.Manager, cfg Config) Model {
	if cfg.Clock == nil {
		cfg.Clock = timeutil.SystemClock{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Schedule == nil {
		cfg.Schedule = manager.OnSchedule
	}

	return Model{
		ctx:       ctx,
		scheduler: scheduler,
		manager:   manager,
		cfg:       cfg,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		styles:    defaultStyles(),
	}
}

// Init loads the day and starts the render and poll loops.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), tick(), m.poll(), m.waitFinished())
}

// Update handles messages for the day view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = contentWidth(msg.Width)
		return m, nil

	case tea.FocusMsg:
		if m.cfg.Visible != nil {
			m.cfg.Visible()
		}
		return m, m.load()

	case tickMsg:
		m.snapshot = m.manager.Snapshot()
		return m, tick()

	case pollMsg:
		return m, tea.Batch(m.loadSince(), m.poll())

	case tasksMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.loaded = true
		if msg.delta {
			m.tasks = merge(m.tasks, msg.tasks)
		} else {
			m.tasks = msg.tasks
		}
		m.since = msg.serverTime
		m.cursor = min(m.cursor, max(0, len(m.tasks)-1))
		m.cfg.Schedule(m.tasks)
		m.snapshot = m.manager.Snapshot()
		return m, nil

	case actionMsg:
		m.err = msg.err
		if msg.err == nil {
			m.notice = ""
		}
		m.snapshot = m.manager.Snapshot()
		return m, m.load()

	case finishedMsg:
		if t := m.find(msg.TaskID); t != nil {
			m.notice = "Finished: " + t.Title
		}
		return m, tea.Batch(m.waitFinished(), m.load())

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.load()
	}

	task := m.selected()
	if task == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Start):
		if !task.IsTimed() {
			m.notice = task.Title + " has no timer"
			return m, nil
		}
		return m, m.control("start", task.ID, m.manager.Start)
	case key.Matches(msg, m.keys.Stop):
		return m, m.control("stop", task.ID, m.manager.Stop)
	case key.Matches(msg, m.keys.Pause):
		return m, m.control("pause", task.ID, m.manager.Pause)
	case key.Matches(msg, m.keys.Resume):
		return m, m.control("resume", task.ID, m.manager.Resume)
	case key.Matches(msg, m.keys.Done):
		return m, m.setStatus(task.ID, domain.ManualStatusDone)
	case key.Matches(msg, m.keys.Missed):
		return m, m.setStatus(task.ID, domain.ManualStatusMissed)
	case key.Matches(msg, m.keys.Clear):
		return m, m.setStatus(task.ID, domain.ManualStatusNone)
	}
	return m, nil
}

func (m Model) selected() *domain.Task {
	if m.cursor < 0 || m.cursor >= len(m.tasks) {
		return nil
	}
	return m.tasks[m.cursor]
}

func (m Model) find(id string) *domain.Task {
	for _, t := range m.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// merge applies a delta by id. Deletions are not part of a delta; they show
// up on the next full load.
func merge(tasks, changed []*domain.Task) []*domain.Task {
	out := make([]*domain.Task, len(tasks), len(tasks)+len(changed))
	copy(out, tasks)

	index := make(map[string]int, len(out))
	for i, t := range out {
		index[t.ID] = i
	}
	for _, t := range changed {
		if i, ok := index[t.ID]; ok {
			out[i] = t
			continue
		}
		index[t.ID] = len(out)
		out = append(out, t)
	}
	return out
}

// Commands

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) poll() tea.Cmd {
	return tea.Tick(m.cfg.PollInterval, func(time.Time) tea.Msg { return pollMsg{} })
}

func (m Model) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(m.ctx, m.cfg.RequestTimeout)
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()

		tasks, serverTime, err := m.scheduler.ListTasks(ctx, m.cfg.Day)
		return tasksMsg{tasks: tasks, serverTime: serverTime, err: err}
	}
}

func (m Model) loadSince() tea.Cmd {
	if !m.loaded {
		return m.load()
	}
	since := m.since
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()

		tasks, serverTime, err := m.scheduler.ListTasksSince(ctx, m.cfg.Day, since)
		return tasksMsg{tasks: tasks, serverTime: serverTime, delta: true, err: err}
	}
}

func (m Model) control(op, taskID string, fn func(context.Context, string) (*domain.Task, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()

		_, err := fn(ctx, taskID)
		if err != nil {
			err = fmt.Errorf("%s: %w", op, err)
		}
		return actionMsg{op: op, err: err}
	}
}

func (m Model) setStatus(taskID string, status domain.ManualStatus) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()

		_, err := m.scheduler.SetManualStatus(ctx, m.cfg.Day, taskID, string(status))
		if err != nil {
			err = fmt.Errorf("status: %w", err)
		}
		return actionMsg{op: "status", err: err}
	}
}

func (m Model) waitFinished() tea.Cmd {
	events := m.manager.Events()
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case ev := <-events:
			return finishedMsg(ev)
		case <-ctx.Done():
			return nil
		}
	}
}

// View

// View renders the day view.
func (m Model) View() string {
	width := contentWidth(m.width)
	now := m.cfg.Clock.Now()
	live := m.liveTasks()

	var b strings.Builder
	b.WriteString(m.header(live, now))
	b.WriteString("\n\n")

	switch {
	case !m.loaded && m.err == nil:
		b.WriteString(m.styles.dim.Render("Loading…"))
		b.WriteString("\n")
	case len(live) == 0 && m.loaded:
		b.WriteString(m.styles.dim.Render("Nothing scheduled."))
		b.WriteString("\n")
	}
	for i, t := range live {
		b.WriteString(m.row(t, i == m.cursor, now, width))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.snapshot.Pending > 0 {
		b.WriteString(m.styles.dim.Render(fmt.Sprintf("%d unsynced", m.snapshot.Pending)))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(m.styles.errorMsg.Render(errorText(m.err)))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(m.styles.notice.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

// liveTasks overlays the local countdowns on the loaded tasks.
func (m Model) liveTasks() []*domain.Task {
	out := make([]*domain.Task, len(m.tasks))
	for i, t := range m.tasks {
		remaining, ok := m.snapshot.Timers[t.ID]
		if !ok || t.Timer == nil {
			out[i] = t
			continue
		}
		c := t.Clone()
		c.Timer.RemainingDuration = remaining
		out[i] = c
	}
	return out
}

func (m Model) header(tasks []*domain.Task, now time.Time) string {
	title := m.styles.title.Render("FocusFlow")
	day := m.cfg.Day.String()
	if d, err := timeutil.ParseDay(day); err == nil {
		day = d.Format("Monday, 2 Jan")
	}

	stats := domain.ComputeStats(tasks, now)
	summary := fmt.Sprintf("%d/%d done · %d%% · focused %s",
		stats.Completed, stats.Total, stats.Percentage, timeutil.FormatTime(stats.Focused))

	return lipgloss.JoinVertical(lipgloss.Left,
		title+"  "+m.styles.subtitle.Render(day),
		m.styles.subtitle.Render(summary),
	)
}

func (m Model) row(t *domain.Task, selected bool, now time.Time, width int) string {
	cursor := "  "
	if selected {
		cursor = "› "
	}

	glyph, style := m.status(t, now)
	remaining := ""
	if t.Timer != nil {
		remaining = timeutil.FormatTime(t.Timer.RemainingDuration)
	}

	when := scheduleLabel(t.Schedule)
	titleWidth := max(8, width-2-2-len(when)-9-3)
	line := fmt.Sprintf("%s%s %-*s %-11s %8s",
		cursor, glyph, titleWidth, truncate(t.Title, titleWidth), when, remaining)

	if selected {
		return m.styles.selected.Render(line)
	}
	return style.Render(line)
}

func (m Model) status(t *domain.Task, now time.Time) (string, lipgloss.Style) {
	if t.ID == m.snapshot.RunningID {
		if m.snapshot.Paused {
			return "‖", m.styles.paused
		}
		return "▶", m.styles.running
	}

	switch domain.ClassifyStatus(t, now) {
	case domain.StatusDone:
		return "✓", m.styles.done
	case domain.StatusMissed:
		return "✗", m.styles.missed
	default:
		return "·", m.styles.row
	}
}

func scheduleLabel(s domain.Schedule) string {
	switch s := s.(type) {
	case domain.FixedSchedule:
		return s.Start.String() + "-" + s.End.String()
	case domain.FlexibleSchedule:
		if s.SuggestedStart != nil && s.SuggestedEnd != nil {
			return s.SuggestedStart.String() + "-" + s.SuggestedEnd.String()
		}
		return fmt.Sprintf("%d min", s.DurationMinutes)
	default:
		return "anytime"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func errorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "Server unreachable, retrying: " + err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return "API key rejected; check FOCUS_API_KEY"
	default:
		return err.Error()
	}
}
