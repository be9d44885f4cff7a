package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/sqlcfg/pkg/types"
)

// Engine opens connections to an embedded database file.
type Engine interface {
	Open(fileName string) (Conn, error)
}

// Conn is a live connection to one database file. Errors returned by a
// Conn are *types.StorageError values carrying the driver message.
type Conn interface {
	// Exec runs a DDL or DML statement and returns the rows affected.
	Exec(query string, args ...any) (int64, error)
	// Query runs a statement and returns a cursor over its rows.
	Query(query string, args ...any) (Rows, error)
	// TableNames lists the user tables in the file.
	TableNames() ([]string, error)
	Close() error
}

// Rows iterates a query result. *sql.Rows satisfies it.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// busyTimeoutMillis bounds how long a statement waits on a file locked by
// another process before failing.
const busyTimeoutMillis = 5000

// SQLEngine opens connections through database/sql using a registered
// SQLite driver.
type SQLEngine struct {
	driver string
}

// NewSQLEngine returns an engine for the named driver: types.DriverSQLite
// (modernc.org/sqlite) or types.DriverSQLite3 (mattn/go-sqlite3).
func NewSQLEngine(driver string) *SQLEngine {
	if driver == "" {
		driver = types.DriverSQLite
	}
	return &SQLEngine{driver: driver}
}

// Open connects to fileName, creating the file if needed. The pool is
// limited to one connection so every statement sees the same session.
func (e *SQLEngine) Open(fileName string) (Conn, error) {
	db, err := sql.Open(e.driver, fileName)
	if err != nil {
		return nil, &types.StorageError{Op: "open", Err: err}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &types.StorageError{Op: "open", Err: err}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMillis)); err != nil {
		db.Close()
		return nil, &types.StorageError{Op: "open", Err: err}
	}
	return &sqlConn{db: db}, nil
}

// sqlConn adapts *sql.DB to Conn. database/sql runs every statement in
// auto-commit mode.
type sqlConn struct {
	db *sql.DB
}

func (c *sqlConn) Exec(query string, args ...any) (int64, error) {
	res, err := c.db.Exec(query, args...)
	if err != nil {
		return 0, &types.StorageError{Op: "exec", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &types.StorageError{Op: "exec", Err: err}
	}
	return n, nil
}

func (c *sqlConn) Query(query string, args ...any) (Rows, error) {
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, &types.StorageError{Op: "query", Err: err}
	}
	return rows, nil
}

func (c *sqlConn) TableNames() ([]string, error) {
	rows, err := c.db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	if err != nil {
		return nil, &types.StorageError{Op: "tables", Err: err}
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &types.StorageError{Op: "tables", Err: err}
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StorageError{Op: "tables", Err: err}
	}
	return names, nil
}

func (c *sqlConn) Close() error {
	if err := c.db.Close(); err != nil {
		return &types.StorageError{Op: "close", Err: err}
	}
	return nil
}
