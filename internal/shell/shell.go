// Package shell implements the numbered-menu interactive session.
//
// The shell reads one line per prompt from its input and writes plain text
// to its output. It never exits on bad input: malformed choices, dates and
// selections are reported and the user is asked again. Storage failures are
// printed, logged, and the menu is shown again.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/tasklist/internal/logging"
	"github.com/nibzard/tasklist/internal/todo"
)

// Menu is printed before every choice.
const Menu = `1) Today's tasks
2) Week's tasks
3) All tasks
4) Missed tasks
5) Add task
6) Delete task
0) Exit`

// errEndOfInput stops the loop when the input is exhausted mid-prompt.
var errEndOfInput = errors.New("end of input")

// Option configures a Shell.
type Option func(*Shell)

// WithLogger sets the diagnostics logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Shell) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Shell is an interactive menu session over a task list.
type Shell struct {
	list   *todo.List
	in     *bufio.Reader
	out    io.Writer
	logger *log.Logger

	lines chan inputLine
	stop  chan struct{}
}

type inputLine struct {
	text string
	err  error
}

// New creates a shell reading from in and writing to out.
func New(list *todo.List, in io.Reader, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		list:   list,
		in:     bufio.NewReader(in),
		out:    out,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run shows the menu and dispatches choices until the user picks 0, the
// input ends, or ctx is canceled. End of input is not an error.
func (s *Shell) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.startReader()
	defer close(s.stop)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.println(Menu)
		line, err := s.readLine(ctx)
		if err != nil {
			return s.endOfInput(err)
		}

		var actionErr error
		switch choice := strings.TrimSpace(line); choice {
		case "0":
			s.println("Bye!")
			return nil
		case "1":
			actionErr = s.ShowToday(ctx)
		case "2":
			actionErr = s.ShowWeek(ctx)
		case "3":
			actionErr = s.ShowAll(ctx)
		case "4":
			actionErr = s.ShowMissed(ctx)
		case "5":
			actionErr = s.addTask(ctx)
		case "6":
			actionErr = s.deleteTask(ctx)
		default:
			s.logger.Debug("invalid menu choice", "input", choice)
			s.println("Invalid choice")
			s.println("")
		}

		if actionErr == nil {
			continue
		}
		if errors.Is(actionErr, errEndOfInput) {
			return s.endOfInput(actionErr)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.reportError(actionErr)
	}
}

// ShowToday prints the tasks due today.
func (s *Shell) ShowToday(ctx context.Context) error {
	tasks, err := s.list.TodayTasks(ctx)
	if err != nil {
		return fmt.Errorf("listing today's tasks: %w", err)
	}
	s.printf("Today %s:\n", formatDate(s.list.Today()))
	s.printNumbered(tasks, false)
	s.println("")
	return nil
}

// ShowWeek prints the next seven days, today included.
func (s *Shell) ShowWeek(ctx context.Context) error {
	days, err := s.list.Week(ctx)
	if err != nil {
		return fmt.Errorf("listing week's tasks: %w", err)
	}
	for _, day := range days {
		s.printf("%s %s:\n", day.Date.Weekday(), formatDate(day.Date))
		s.printNumbered(day.Tasks, false)
		s.println("")
	}
	return nil
}

// ShowAll prints every task ordered by deadline.
func (s *Shell) ShowAll(ctx context.Context) error {
	tasks, err := s.list.All(ctx)
	if err != nil {
		return fmt.Errorf("listing all tasks: %w", err)
	}
	s.printNumbered(tasks, true)
	s.println("")
	return nil
}

// ShowMissed prints the tasks whose deadline has passed.
func (s *Shell) ShowMissed(ctx context.Context) error {
	tasks, err := s.list.Missed(ctx)
	if err != nil {
		return fmt.Errorf("listing missed tasks: %w", err)
	}
	s.println("Missed tasks:")
	if len(tasks) == 0 {
		s.println("Nothing is missed!")
	} else {
		s.printNumbered(tasks, true)
	}
	s.println("")
	return nil
}

func (s *Shell) addTask(ctx context.Context) error {
	s.println("Enter task")
	description, err := s.readLine(ctx)
	if err != nil {
		return err
	}

	for {
		s.println("Enter deadline")
		deadline, err := s.readLine(ctx)
		if err != nil {
			return err
		}

		task, err := s.list.Add(ctx, description, deadline)
		var invalid *todo.InvalidInputError
		if errors.As(err, &invalid) {
			s.println(err.Error())
			continue
		}
		if err != nil {
			return fmt.Errorf("adding task: %w", err)
		}

		s.logger.Debug("task added", "id", task.ID, "deadline", task.Deadline)
		s.println("The task has been added!")
		s.println("")
		return nil
	}
}

func (s *Shell) deleteTask(ctx context.Context) error {
	tasks, err := s.list.All(ctx)
	if err != nil {
		return fmt.Errorf("listing tasks to delete: %w", err)
	}
	if len(tasks) == 0 {
		s.println("Nothing to delete!")
		s.println("")
		return nil
	}

	s.println("Choose the number of the task you want to delete:")
	s.printNumbered(tasks, true)

	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			s.logger.Debug("delete canceled")
			s.println("")
			return nil
		}

		idx, err := todo.ParseSelection(line, len(tasks))
		if err != nil {
			s.println(err.Error())
			continue
		}

		task := tasks[idx]
		if err := s.list.Delete(ctx, task.ID); err != nil {
			return fmt.Errorf("deleting task %d: %w", task.ID, err)
		}
		s.logger.Debug("task deleted", "id", task.ID)
		s.println("The task has been deleted!")
		s.println("")
		return nil
	}
}

// printNumbered writes tasks as "1. description", optionally followed by
// the deadline, or "Nothing to do!" when there are none.
func (s *Shell) printNumbered(tasks []todo.Task, withDeadline bool) {
	if len(tasks) == 0 {
		s.println("Nothing to do!")
		return
	}
	for i, task := range tasks {
		if withDeadline {
			s.printf("%d. %s. %s\n", i+1, task.Description, formatDate(task.Deadline))
		} else {
			s.printf("%d. %s\n", i+1, task.Description)
		}
	}
}

func (s *Shell) reportError(err error) {
	s.logger.Error("operation failed", "err", err)
	s.printf("Error: %v\n", err)
	s.println("")
}

// startReader scans input on its own goroutine so a blocked read never
// holds up cancellation.
func (s *Shell) startReader() {
	s.lines = make(chan inputLine)
	s.stop = make(chan struct{})
	go func() {
		defer close(s.lines)
		for {
			text, err := s.in.ReadString('\n')
			if text != "" {
				text = strings.TrimRight(strings.TrimSuffix(text, "\n"), "\r")
				select {
				case s.lines <- inputLine{text: text}:
				case <-s.stop:
					return
				}
			}
			if err == nil {
				continue
			}
			if !errors.Is(err, io.EOF) {
				select {
				case s.lines <- inputLine{err: fmt.Errorf("reading input: %w", err)}:
				case <-s.stop:
				}
			}
			return
		}
	}()
}

// readLine returns the next input line without its line terminator.
func (s *Shell) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			return "", errEndOfInput
		}
		return line.text, line.err
	}
}

func (s *Shell) endOfInput(err error) error {
	if errors.Is(err, errEndOfInput) {
		s.logger.Debug("input closed")
		return nil
	}
	return err
}

func (s *Shell) println(line string) {
	fmt.Fprintln(s.out, line)
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// formatDate renders a date as "10 Jan".
func formatDate(d todo.Date) string {
	return d.Time().Format("2 Jan")
}
