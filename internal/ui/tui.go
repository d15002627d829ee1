// Package ui provides optional terminal interfaces.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/nibzard/tasklist/internal/todo"
)

// ErrNotTTY is returned when the TUI is started without a terminal.
var ErrNotTTY = errors.New("tui requires a TTY")

// DefaultRefreshInterval is how often the current view is reloaded.
const DefaultRefreshInterval = 2 * time.Second

// TUIOption configures the TUI behavior.
type TUIOption func(*tuiConfig)

// tuiConfig holds TUI configuration.
type tuiConfig struct {
	refresh time.Duration
	output  io.Writer
}

// WithRefreshInterval sets how often the view is reloaded from the store.
func WithRefreshInterval(d time.Duration) TUIOption {
	return func(c *tuiConfig) {
		if d > 0 {
			c.refresh = d
		}
	}
}

// WithOutput sets the terminal the TUI draws on. Defaults to os.Stdout.
func WithOutput(w io.Writer) TUIOption {
	return func(c *tuiConfig) {
		c.output = w
	}
}

// RunTUI starts the task viewer over list.
func RunTUI(ctx context.Context, list *todo.List, opts ...TUIOption) error {
	c := &tuiConfig{
		refresh: DefaultRefreshInterval,
		output:  os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if !IsTTY(c.output) {
		return ErrNotTTY
	}

	model := newTUIModel(ctx, list, c.refresh)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx), tea.WithOutput(c.output))
	_, err := program.Run()
	return err
}

// view is one of the tabs.
type view int

const (
	viewToday view = iota
	viewWeek
	viewAll
	viewMissed
	viewCount
)

func (v view) String() string {
	switch v {
	case viewToday:
		return "Today"
	case viewWeek:
		return "Week"
	case viewAll:
		return "All"
	case viewMissed:
		return "Missed"
	default:
		return "?"
	}
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	activeTabStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Faint(true)
)

type tuiModel struct {
	ctx          context.Context
	list         *todo.List
	view         view
	days         []todo.Day // set for the week view only
	tasks        []todo.Task
	cursor       int
	loaded       bool
	loadErr      error
	status       string
	showHelp     bool
	tickInterval time.Duration
}

type tickMsg time.Time

// loadedMsg carries the result of reading one view.
type loadedMsg struct {
	view  view
	days  []todo.Day
	tasks []todo.Task
	err   error
}

type deletedMsg struct {
	task todo.Task
	err  error
}

func newTUIModel(ctx context.Context, list *todo.List, tick time.Duration) *tuiModel {
	return &tuiModel{
		ctx:          ctx,
		list:         list,
		view:         viewToday,
		tickInterval: tick,
	}
}

func (m *tuiModel) Init() tea.Cmd {
	return tea.Batch(m.load(), tickCmd(m.tickInterval))
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r", "f5":
			return m, m.load()
		case "h", "?":
			m.showHelp = !m.showHelp
			return m, nil
		case "1", "2", "3", "4":
			return m, m.switchView(view(msg.String()[0] - '1'))
		case "tab", "right", "l":
			return m, m.switchView((m.view + 1) % viewCount)
		case "shift+tab", "left":
			return m, m.switchView((m.view + viewCount - 1) % viewCount)
		case "j", "down":
			if m.cursor < len(m.tasks)-1 {
				m.cursor++
			}
			return m, nil
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "d", "delete":
			if task, ok := m.selected(); ok {
				return m, m.delete(task)
			}
			return m, nil
		}
	case tickMsg:
		return m, tea.Batch(m.load(), tickCmd(m.tickInterval))
	case loadedMsg:
		if msg.view != m.view {
			// A reply for a tab the user already left.
			return m, nil
		}
		m.loaded = true
		m.loadErr = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.days = msg.days
		m.tasks = msg.tasks
		m.clampCursor()
	case deletedMsg:
		if msg.err != nil {
			m.status = ""
			m.loadErr = msg.err
			return m, nil
		}
		m.status = fmt.Sprintf("Deleted %q", msg.task.Description)
		return m, m.load()
	}

	return m, nil
}

func (m *tuiModel) View() string {
	var b strings.Builder
	writeTitle(&b)
	writeTabs(&b, m.view)

	if m.showHelp {
		writeHelp(&b)
		writeFooter(&b)
		return b.String()
	}

	switch {
	case m.loadErr != nil:
		b.WriteString(errorStyle.Render("Error: "+m.loadErr.Error()) + "\n\n")
	case !m.loaded:
		b.WriteString("Loading...\n\n")
	case m.view == viewWeek:
		writeWeek(&b, m.days, m.cursor)
	default:
		writeTasks(&b, m.tasks, m.cursor, m.view != viewToday, emptyText(m.view))
	}

	if m.status != "" {
		b.WriteString(dimStyle.Render(m.status) + "\n\n")
	}
	writeFooter(&b)
	return b.String()
}

func (m *tuiModel) switchView(v view) tea.Cmd {
	if v == m.view {
		return nil
	}
	m.view = v
	m.loaded = false
	m.loadErr = nil
	m.days = nil
	m.tasks = nil
	m.cursor = 0
	m.status = ""
	return m.load()
}

func (m *tuiModel) selected() (todo.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.tasks) {
		return todo.Task{}, false
	}
	return m.tasks[m.cursor], true
}

func (m *tuiModel) clampCursor() {
	if m.cursor >= len(m.tasks) {
		m.cursor = len(m.tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// load returns a command reading the current view from the store.
func (m *tuiModel) load() tea.Cmd {
	ctx, list, v := m.ctx, m.list, m.view
	return func() tea.Msg {
		msg := loadedMsg{view: v}
		switch v {
		case viewToday:
			msg.tasks, msg.err = list.TodayTasks(ctx)
		case viewWeek:
			msg.days, msg.err = list.Week(ctx)
			for _, day := range msg.days {
				msg.tasks = append(msg.tasks, day.Tasks...)
			}
		case viewAll:
			msg.tasks, msg.err = list.All(ctx)
		case viewMissed:
			msg.tasks, msg.err = list.Missed(ctx)
		}
		return msg
	}
}

func (m *tuiModel) delete(task todo.Task) tea.Cmd {
	ctx, list := m.ctx, m.list
	return func() tea.Msg {
		return deletedMsg{task: task, err: list.Delete(ctx, task.ID)}
	}
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func emptyText(v view) string {
	if v == viewMissed {
		return "Nothing is missed!"
	}
	return "Nothing to do!"
}

func writeTitle(b *strings.Builder) {
	b.WriteString(titleStyle.Render("Tasklist") + "\n\n")
}

func writeTabs(b *strings.Builder, active view) {
	tabs := make([]string, 0, viewCount)
	for v := viewToday; v < viewCount; v++ {
		label := fmt.Sprintf("%d %s", int(v)+1, v)
		if v == active {
			label = activeTabStyle.Render("[" + label + "]")
		} else {
			label = " " + label + " "
		}
		tabs = append(tabs, label)
	}
	b.WriteString(strings.Join(tabs, "  ") + "\n\n")
}

func writeTasks(b *strings.Builder, tasks []todo.Task, cursor int, withDeadline bool, empty string) {
	if len(tasks) == 0 {
		b.WriteString("  " + empty + "\n\n")
		return
	}
	for i, task := range tasks {
		b.WriteString(formatTask(task, i+1, i == cursor, withDeadline) + "\n")
	}
	b.WriteString("\n")
}

func writeWeek(b *strings.Builder, days []todo.Day, cursor int) {
	idx := 0
	for _, day := range days {
		b.WriteString(fmt.Sprintf("%s %s:\n", day.Date.Weekday(), day.Date.Time().Format("2 Jan")))
		if len(day.Tasks) == 0 {
			b.WriteString(dimStyle.Render("    Nothing to do!") + "\n")
		}
		for i, task := range day.Tasks {
			b.WriteString(formatTask(task, i+1, idx == cursor, false) + "\n")
			idx++
		}
	}
	b.WriteString("\n")
}

func writeHelp(b *strings.Builder) {
	b.WriteString("Keyboard Shortcuts\n\n")
	b.WriteString("  q, ctrl+c    Quit\n")
	b.WriteString("  r, F5        Refresh\n")
	b.WriteString("  h, ?         Toggle this help screen\n")
	b.WriteString("  1-4, tab     Switch view\n")
	b.WriteString("  j/k, arrows  Move selection\n")
	b.WriteString("  d            Delete selected task\n\n")
}

func writeFooter(b *strings.Builder) {
	b.WriteString("Press h for help | d to delete | q to quit\n")
}

func formatTask(t todo.Task, n int, selected, withDeadline bool) string {
	marker := " "
	if selected {
		marker = ">"
	}
	line := fmt.Sprintf("  %s %d. %s", marker, n, t.Description)
	if withDeadline {
		line += ". " + t.Deadline.Time().Format("2 Jan")
	}
	return line
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
