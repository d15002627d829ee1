package todo

import (
	"context"
	"fmt"
	"sort"
)

// Task represents a single entry in the to-do list.
type Task struct {
	ID          int64  `json:"id"`
	Description string `json:"task"`
	Deadline    Date   `json:"deadline"`
}

// Day groups the tasks due on one date.
type Day struct {
	Date  Date
	Tasks []Task
}

// Store is durable storage for tasks. Implementations live in
// internal/store; callers hold exactly one Store per process.
type Store interface {
	// Create persists a new task and assigns it a fresh id.
	Create(ctx context.Context, description string, deadline Date) (Task, error)
	// Get returns the task with the given id, if present.
	Get(ctx context.Context, id int64) (Task, bool, error)
	// ListOn returns the tasks due on date in insertion order.
	ListOn(ctx context.Context, date Date) ([]Task, error)
	// ListRange returns one Day per input date, in input order.
	ListRange(ctx context.Context, dates []Date) ([]Day, error)
	// ListAll returns every task ordered by deadline, then id.
	ListAll(ctx context.Context) ([]Task, error)
	// ListOverdue returns tasks due strictly before asOf, ordered by deadline, then id.
	ListOverdue(ctx context.Context, asOf Date) ([]Task, error)
	// Delete removes the task with the given id. Unknown ids are a no-op.
	Delete(ctx context.Context, id int64) error
	// Close releases the underlying file or connection.
	Close() error
}

// InvalidInputError reports malformed user input.
type InvalidInputError struct {
	Field string // Input that was rejected (deadline, choice, selection)
	Value string // Raw text as entered
	Err   error  // Underlying error
}

func (e *InvalidInputError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Err)
}

// Unwrap returns the underlying error.
func (e *InvalidInputError) Unwrap() error {
	return e.Err
}

// StorageError reports a failure of the backing store: an unreachable
// database, an unreadable or corrupted file, or a failed write.
type StorageError struct {
	Op   string // Operation that failed (open, load, save, query, ...)
	Path string // File path or driver name
	Err  error  // Underlying error
}

func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("storage %s %s: %s", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("storage %s: %s", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// SortByDeadline orders tasks by deadline, breaking ties by id.
func SortByDeadline(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if c := tasks[i].Deadline.Compare(tasks[j].Deadline); c != 0 {
			return c < 0
		}
		return tasks[i].ID < tasks[j].ID
	})
}

// GroupByDate distributes tasks over dates, preserving the order of both.
// Every input date gets a Day, duplicates included.
func GroupByDate(dates []Date, tasks []Task) []Day {
	byDate := make(map[Date][]Task)
	for _, task := range tasks {
		byDate[task.Deadline] = append(byDate[task.Deadline], task)
	}
	days := make([]Day, 0, len(dates))
	for _, date := range dates {
		matched := make([]Task, len(byDate[date]))
		copy(matched, byDate[date])
		days = append(days, Day{Date: date, Tasks: matched})
	}
	return days
}
