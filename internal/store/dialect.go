package store

import (
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// dialect captures the differences between the supported SQL databases.
type dialect struct {
	// driverName is the database/sql driver registered by the import above.
	driverName string
	// createTable creates the task table if it does not exist.
	createTable string
	// numbered selects $1, $2, ... placeholders instead of ?.
	numbered bool
	// returning selects INSERT ... RETURNING id over LastInsertId.
	returning bool
}

var dialects = map[string]dialect{
	DriverSQLite: {
		driverName:  "sqlite",
		createTable: `CREATE TABLE IF NOT EXISTS task (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    task TEXT NOT NULL DEFAULT '',
    deadline DATE NOT NULL
)`,
	},
	DriverMySQL: {
		driverName:  "mysql",
		createTable: `CREATE TABLE IF NOT EXISTS task (
    id BIGINT PRIMARY KEY AUTO_INCREMENT,
    task TEXT NOT NULL,
    deadline DATE NOT NULL
)`,
	},
	DriverPostgres: {
		driverName:  "postgres",
		createTable: `CREATE TABLE IF NOT EXISTS task (
    id BIGSERIAL PRIMARY KEY,
    task TEXT NOT NULL DEFAULT '',
    deadline DATE NOT NULL
)`,
		numbered:  true,
		returning: true,
	},
}

// rebind rewrites ? placeholders for dialects that number them.
// Queries in this package never contain literal question marks.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			b.WriteByte(query[i])
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// inList returns "?, ?, ?" for n values.
func inList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
