// Package store implements the task stores: a JSON file and SQL
// databases (SQLite, MySQL, PostgreSQL).
package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/nibzard/tasklist/internal/todo"
)

// Supported drivers.
const (
	DriverJSON     = "json"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// sqliteBusyTimeoutMS bounds how long a SQLite write waits for another
// process holding the database lock.
const sqliteBusyTimeoutMS = 5000

// Options selects and locates a store.
type Options struct {
	Driver string // json, sqlite, mysql or postgres
	Path   string // file for json and sqlite
	DSN    string // connection string for mysql and postgres
}

// Drivers returns the supported driver names.
func Drivers() []string {
	return []string{DriverSQLite, DriverJSON, DriverMySQL, DriverPostgres}
}

// Open opens the store described by opts, initializing it if needed.
func Open(ctx context.Context, opts Options) (todo.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	switch driver {
	case DriverJSON:
		return OpenJSON(opts.Path)
	case DriverSQLite, "sqlite3":
		if opts.Path == "" {
			return nil, &todo.StorageError{Op: "open", Err: fmt.Errorf("sqlite store path is empty")}
		}
		return OpenSQL(ctx, DriverSQLite, SQLiteDSN(opts.Path), opts.Path)
	case DriverMySQL, DriverPostgres:
		if opts.DSN == "" {
			return nil, &todo.StorageError{Op: "open", Path: driver, Err: fmt.Errorf("%s store requires a dsn", driver)}
		}
		return OpenSQL(ctx, driver, opts.DSN, driver)
	default:
		return nil, &todo.StorageError{
			Op:  "open",
			Err: fmt.Errorf("unknown driver %q, must be one of: %s", opts.Driver, strings.Join(Drivers(), ", ")),
		}
	}
}

// SQLiteDSN builds a modernc.org/sqlite DSN for a database file.
// The path is percent-escaped so '#' and '?' stay part of the file name.
func SQLiteDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", sqliteBusyTimeoutMS))
	return "file:" + (&url.URL{Path: path}).EscapedPath() + "?" + q.Encode()
}
