package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nibzard/tasklist/internal/todo"
)

const selectTask = `SELECT id, task, deadline FROM task`

// SQLStore keeps tasks in the task table of a SQL database.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	name    string // reported in errors: the file for sqlite, the driver otherwise
}

// OpenSQL connects with the given driver (sqlite, mysql, postgres) and
// creates the task table if it does not exist.
func OpenSQL(ctx context.Context, driver, dsn, name string) (*SQLStore, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, &todo.StorageError{Op: "open", Path: name, Err: fmt.Errorf("unsupported sql driver %q", driver)}
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, &todo.StorageError{Op: "open", Path: name, Err: err}
	}
	if driver == DriverSQLite {
		// One writer; SQLite serializes other processes via its own file lock.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &todo.StorageError{Op: "open", Path: name, Err: err}
	}

	s := &SQLStore{db: db, dialect: d, name: name}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.createTable); err != nil {
		return &todo.StorageError{Op: "migrate", Path: s.name, Err: err}
	}
	return nil
}

// Create inserts a task and returns it with its generated id.
func (s *SQLStore) Create(ctx context.Context, description string, deadline todo.Date) (todo.Task, error) {
	if deadline.IsZero() {
		return todo.Task{}, &todo.InvalidInputError{Field: "deadline", Err: fmt.Errorf("missing required field")}
	}

	query := `INSERT INTO task (task, deadline) VALUES (?, ?)`
	var id int64
	if s.dialect.returning {
		err := s.db.QueryRowContext(ctx, s.dialect.rebind(query+` RETURNING id`), description, deadline).Scan(&id)
		if err != nil {
			return todo.Task{}, &todo.StorageError{Op: "insert", Path: s.name, Err: err}
		}
	} else {
		res, err := s.db.ExecContext(ctx, s.dialect.rebind(query), description, deadline)
		if err != nil {
			return todo.Task{}, &todo.StorageError{Op: "insert", Path: s.name, Err: err}
		}
		id, err = res.LastInsertId()
		if err != nil {
			return todo.Task{}, &todo.StorageError{Op: "insert", Path: s.name, Err: err}
		}
	}

	return todo.Task{ID: id, Description: description, Deadline: deadline}, nil
}

// Get returns a task by ID.
func (s *SQLStore) Get(ctx context.Context, id int64) (todo.Task, bool, error) {
	var task todo.Task
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(selectTask+` WHERE id = ?`), id).
		Scan(&task.ID, &task.Description, &task.Deadline)
	if err == sql.ErrNoRows {
		return todo.Task{}, false, nil
	}
	if err != nil {
		return todo.Task{}, false, &todo.StorageError{Op: "query", Path: s.name, Err: err}
	}
	return task, true, nil
}

// ListOn returns the tasks due on date in insertion order.
func (s *SQLStore) ListOn(ctx context.Context, date todo.Date) ([]todo.Task, error) {
	return s.query(ctx, selectTask+` WHERE deadline = ? ORDER BY id`, date)
}

// ListRange fetches every requested date in one query and groups the rows.
func (s *SQLStore) ListRange(ctx context.Context, dates []todo.Date) ([]todo.Day, error) {
	if len(dates) == 0 {
		return []todo.Day{}, nil
	}

	seen := make(map[todo.Date]bool, len(dates))
	args := make([]any, 0, len(dates))
	for _, date := range dates {
		if seen[date] {
			continue
		}
		seen[date] = true
		args = append(args, date)
	}

	tasks, err := s.query(ctx, selectTask+` WHERE deadline IN (`+inList(len(args))+`) ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	return todo.GroupByDate(dates, tasks), nil
}

// ListAll returns every task ordered by deadline, then id.
func (s *SQLStore) ListAll(ctx context.Context) ([]todo.Task, error) {
	return s.query(ctx, selectTask+` ORDER BY deadline, id`)
}

// ListOverdue returns tasks due before asOf, ordered by deadline, then id.
func (s *SQLStore) ListOverdue(ctx context.Context, asOf todo.Date) ([]todo.Task, error) {
	return s.query(ctx, selectTask+` WHERE deadline < ? ORDER BY deadline, id`, asOf)
}

// Delete removes a task by ID. Deleting an unknown id affects no rows
// and is not an error.
func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.rebind(`DELETE FROM task WHERE id = ?`), id); err != nil {
		return &todo.StorageError{Op: "delete", Path: s.name, Err: err}
	}
	return nil
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) ([]todo.Task, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, &todo.StorageError{Op: "query", Path: s.name, Err: err}
	}
	defer rows.Close()

	tasks := []todo.Task{}
	for rows.Next() {
		var task todo.Task
		if err := rows.Scan(&task.ID, &task.Description, &task.Deadline); err != nil {
			return nil, &todo.StorageError{Op: "scan", Path: s.name, Err: err}
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, &todo.StorageError{Op: "query", Path: s.name, Err: err}
	}
	return tasks, nil
}
