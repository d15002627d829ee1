package todo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WeekDays is the length of the week lookahead, today included.
const WeekDays = 7

// ListOption configures a List.
type ListOption func(*List)

// WithClock overrides the clock used to compute "today".
func WithClock(now func() time.Time) ListOption {
	return func(l *List) {
		l.now = now
	}
}

// List answers the date-relative views over a Store.
type List struct {
	store Store
	now   func() time.Time
}

// NewList wraps store. The clock defaults to time.Now.
func NewList(store Store, opts ...ListOption) *List {
	l := &List{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Today returns the current date according to the list clock.
// It is evaluated on every call, never cached.
func (l *List) Today() Date {
	return DateOf(l.now())
}

// Add parses deadline and creates a task. An empty deadline means today.
// A malformed deadline returns an InvalidInputError and leaves the store
// unchanged.
func (l *List) Add(ctx context.Context, description, deadline string) (Task, error) {
	date := l.Today()
	if strings.TrimSpace(deadline) != "" {
		parsed, err := ParseDate(deadline)
		if err != nil {
			return Task{}, err
		}
		date = parsed
	}
	return l.store.Create(ctx, description, date)
}

// TodayTasks returns the tasks due today.
func (l *List) TodayTasks(ctx context.Context) ([]Task, error) {
	return l.store.ListOn(ctx, l.Today())
}

// Week returns WeekDays consecutive days starting today.
func (l *List) Week(ctx context.Context) ([]Day, error) {
	today := l.Today()
	dates := make([]Date, WeekDays)
	for i := range dates {
		dates[i] = today.AddDays(i)
	}
	return l.store.ListRange(ctx, dates)
}

// All returns every task ordered by deadline.
func (l *List) All(ctx context.Context) ([]Task, error) {
	return l.store.ListAll(ctx)
}

// Missed returns the tasks whose deadline is before today.
func (l *List) Missed(ctx context.Context) ([]Task, error) {
	return l.store.ListOverdue(ctx, l.Today())
}

// Delete removes the task with the given id.
func (l *List) Delete(ctx context.Context, id int64) error {
	return l.store.Delete(ctx, id)
}

// Get returns the task with the given id.
func (l *List) Get(ctx context.Context, id int64) (Task, bool, error) {
	return l.store.Get(ctx, id)
}

// ParseSelection parses a 1-based position into a list of n items and
// returns the 0-based index.
func ParseSelection(input string, n int) (int, error) {
	trimmed := strings.TrimSpace(input)
	num, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, &InvalidInputError{
			Field: "selection",
			Value: input,
			Err:   fmt.Errorf("not a number"),
		}
	}
	if num < 1 || num > n {
		return 0, &InvalidInputError{
			Field: "selection",
			Value: input,
			Err:   fmt.Errorf("must be between 1 and %d", n),
		}
	}
	return num - 1, nil
}
