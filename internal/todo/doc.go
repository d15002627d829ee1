// Package todo defines tasks, deadlines, and the store contract.
//
// A task is a description with a calendar deadline:
//
//	{
//	  "id": 1,
//	  "task": "Buy milk",
//	  "deadline": "2024-01-10"
//	}
//
// Ids are assigned by the store when a task is created. They increase
// monotonically and are never reused, so they remain valid handles for
// deletion for as long as the task exists.
//
// # Queries
//
// Every Store answers the same query shapes:
//
//   - ListOn: tasks due on one date, in insertion order
//   - ListRange: tasks for each date of a caller-supplied sequence
//   - ListAll: every task, ordered by deadline then id
//   - ListOverdue: tasks due strictly before a date, ordered by deadline then id
//
// List wraps a Store with a clock and provides the "today", "week" and
// "missed" views used by the shell and the terminal UI.
//
// # Errors
//
//   - InvalidInputError: malformed user input (dates, menu choices, selections)
//   - StorageError: the backing store could not be read or written
package todo
