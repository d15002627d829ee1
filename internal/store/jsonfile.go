package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/nibzard/tasklist/internal/todo"
)

// SchemaVersion is the version written to new JSON store files.
const SchemaVersion = 1

// ErrLocked is returned when another process holds the store file.
var ErrLocked = errors.New("store is locked by another process")

// fileData is the on-disk layout of the JSON store.
type fileData struct {
	SchemaVersion int         `json:"schema_version"`
	NextID        int64       `json:"next_id"`
	Tasks         []todo.Task `json:"task"`
}

// JSONStore keeps tasks in a single JSON file. The file is re-read and
// validated on every operation, and rewritten atomically on every change.
// A lock file next to it keeps other processes out while the store is open.
type JSONStore struct {
	path string
	lock *flock.Flock
}

// OpenJSON opens the store at path, creating the file and its directory
// when absent.
func OpenJSON(path string) (*JSONStore, error) {
	if path == "" {
		return nil, &todo.StorageError{Op: "open", Err: fmt.Errorf("store path is empty")}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &todo.StorageError{Op: "open", Path: path, Err: err}
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, &todo.StorageError{Op: "lock", Path: path, Err: err}
	}
	if !locked {
		return nil, &todo.StorageError{Op: "lock", Path: path, Err: ErrLocked}
	}

	s := &JSONStore{path: path, lock: lock}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			lock.Unlock()
			return nil, &todo.StorageError{Op: "open", Path: path, Err: err}
		}
		if err := s.save(&fileData{SchemaVersion: SchemaVersion, NextID: 1, Tasks: []todo.Task{}}); err != nil {
			lock.Unlock()
			return nil, err
		}
		return s, nil
	}

	// Refuse to start on a corrupted file.
	if _, err := s.load(); err != nil {
		lock.Unlock()
		return nil, err
	}
	return s, nil
}

// Close releases the lock file.
func (s *JSONStore) Close() error {
	if s == nil || s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

// load reads and validates the store file.
func (s *JSONStore) load() (*fileData, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &todo.StorageError{Op: "load", Path: s.path, Err: err}
	}

	if errs := validateFile(data); len(errs) > 0 {
		return nil, &todo.StorageError{Op: "load", Path: s.path, Err: fmt.Errorf("corrupted store file: %w", joinErrors(errs))}
	}

	var f fileData
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &todo.StorageError{Op: "load", Path: s.path, Err: fmt.Errorf("corrupted store file: %w", err)}
	}
	if errs := validateIDs(&f); len(errs) > 0 {
		return nil, &todo.StorageError{Op: "load", Path: s.path, Err: fmt.Errorf("corrupted store file: %w", joinErrors(errs))}
	}
	return &f, nil
}

// save writes the file with 2-space indentation through a temp file and
// rename, so a crash never leaves a half-written store behind.
func (s *JSONStore) save(f *fileData) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return &todo.StorageError{Op: "save", Path: s.path, Err: err}
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &todo.StorageError{Op: "save", Path: s.path, Err: err}
	}
	tmpPath := tmp.Name()
	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return &todo.StorageError{Op: "save", Path: s.path, Err: err}
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &todo.StorageError{Op: "save", Path: s.path, Err: err}
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return &todo.StorageError{Op: "save", Path: s.path, Err: err}
	}
	return nil
}

// Create appends a new task under the next free id.
func (s *JSONStore) Create(ctx context.Context, description string, deadline todo.Date) (todo.Task, error) {
	if deadline.IsZero() {
		return todo.Task{}, &todo.InvalidInputError{Field: "deadline", Err: fmt.Errorf("missing required field")}
	}
	if err := ctx.Err(); err != nil {
		return todo.Task{}, err
	}

	f, err := s.load()
	if err != nil {
		return todo.Task{}, err
	}

	task := todo.Task{ID: f.NextID, Description: description, Deadline: deadline}
	f.Tasks = append(f.Tasks, task)
	f.NextID++

	if err := s.save(f); err != nil {
		return todo.Task{}, err
	}
	return task, nil
}

// Get returns a task by ID.
func (s *JSONStore) Get(ctx context.Context, id int64) (todo.Task, bool, error) {
	f, err := s.loadCtx(ctx)
	if err != nil {
		return todo.Task{}, false, err
	}
	for _, task := range f.Tasks {
		if task.ID == id {
			return task, true, nil
		}
	}
	return todo.Task{}, false, nil
}

// ListOn returns the tasks due on date. Tasks are kept in insertion order
// in the file, so no sort is needed.
func (s *JSONStore) ListOn(ctx context.Context, date todo.Date) ([]todo.Task, error) {
	f, err := s.loadCtx(ctx)
	if err != nil {
		return nil, err
	}
	return filterTasks(f.Tasks, func(t todo.Task) bool { return t.Deadline == date }), nil
}

// ListRange returns the tasks of each requested date.
func (s *JSONStore) ListRange(ctx context.Context, dates []todo.Date) ([]todo.Day, error) {
	f, err := s.loadCtx(ctx)
	if err != nil {
		return nil, err
	}
	return todo.GroupByDate(dates, f.Tasks), nil
}

// ListAll returns every task ordered by deadline, then id.
func (s *JSONStore) ListAll(ctx context.Context) ([]todo.Task, error) {
	f, err := s.loadCtx(ctx)
	if err != nil {
		return nil, err
	}
	tasks := filterTasks(f.Tasks, func(todo.Task) bool { return true })
	todo.SortByDeadline(tasks)
	return tasks, nil
}

// ListOverdue returns tasks due before asOf, ordered by deadline, then id.
func (s *JSONStore) ListOverdue(ctx context.Context, asOf todo.Date) ([]todo.Task, error) {
	f, err := s.loadCtx(ctx)
	if err != nil {
		return nil, err
	}
	tasks := filterTasks(f.Tasks, func(t todo.Task) bool { return t.Deadline.Before(asOf) })
	todo.SortByDeadline(tasks)
	return tasks, nil
}

// Delete removes a task by ID. The file is only rewritten when a task
// was actually removed.
func (s *JSONStore) Delete(ctx context.Context, id int64) error {
	f, err := s.loadCtx(ctx)
	if err != nil {
		return err
	}
	for i := range f.Tasks {
		if f.Tasks[i].ID == id {
			f.Tasks = append(f.Tasks[:i], f.Tasks[i+1:]...)
			return s.save(f)
		}
	}
	return nil
}

func (s *JSONStore) loadCtx(ctx context.Context) (*fileData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.load()
}

func filterTasks(tasks []todo.Task, keep func(todo.Task) bool) []todo.Task {
	out := make([]todo.Task, 0, len(tasks))
	for _, task := range tasks {
		if keep(task) {
			out = append(out, task)
		}
	}
	return out
}
