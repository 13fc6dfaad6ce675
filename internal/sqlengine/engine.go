package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrEngineInit wraps a failed engine probe. The adapter stays NOT_READY
	// and a later EnsureReady may succeed.
	ErrEngineInit = errors.New("sql engine initialization failed")

	// ErrHandleClosed means a released database handle was used again.
	// Contract violation, not a runtime condition to recover from.
	ErrHandleClosed = errors.New("database handle is closed")
)

// ExecError is the typed failure for a single statement: malformed SQL,
// missing tables, constraint violations. Expected input for user-submitted
// queries, a content defect for setup and reference statements.
type ExecError struct {
	Statement string
	Cause     error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("sql execution failed for %q: %v", e.Statement, e.Cause)
}

func (e *ExecError) Unwrap() error {
	return e.Cause
}

// Engine lazily initializes the embedded SQLite engine and hands out fully
// isolated in-memory database instances. The driver name is injected so the
// engine location stays a configuration concern.
type Engine struct {
	driverName string

	mu    sync.Mutex
	ready bool
}

func NewEngine(driverName string) *Engine {
	if driverName == "" {
		driverName = "sqlite3"
	}
	return &Engine{driverName: driverName}
}

// EnsureReady performs one-time initialization: it probes the driver by
// opening and pinging a throwaway in-memory instance. The mutex makes
// concurrent first-use callers share a single probe; once ready, calls return
// immediately. A failed probe leaves the engine NOT_READY so callers can retry.
func (e *Engine) EnsureReady(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ready {
		return nil
	}

	probe, err := sql.Open(e.driverName, ":memory:")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEngineInit, err)
	}
	if err := probe.PingContext(ctx); err != nil {
		_ = probe.Close()
		return fmt.Errorf("%w: %v", ErrEngineInit, err)
	}
	_ = probe.Close()

	e.ready = true
	return nil
}

// CreateDatabase returns a brand-new empty in-memory instance. An in-memory
// SQLite database lives on its connection, so the pool is pinned to a single
// connection for the lifetime of the handle; separate handles never share
// state.
func (e *Engine) CreateDatabase(ctx context.Context) (*Database, error) {
	if err := e.EnsureReady(ctx); err != nil {
		return nil, err
	}

	db, err := sql.Open(e.driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineInit, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrEngineInit, err)
	}

	return &Database{db: db}, nil
}

// Database is one ephemeral sandbox instance.
type Database struct {
	db     *sql.DB
	closed bool
}

// Execute runs a statement that produces no rows.
func (d *Database) Execute(ctx context.Context, statement string) error {
	if d.closed {
		return ErrHandleClosed
	}

	if _, err := d.db.ExecContext(ctx, statement); err != nil {
		return &ExecError{Statement: statement, Cause: err}
	}
	return nil
}

// Query runs a statement expected to produce rows and captures the full
// result set with cells normalized per normalizeCell.
func (d *Database) Query(ctx context.Context, statement string) (ResultSet, error) {
	if d.closed {
		return ResultSet{}, ErrHandleClosed
	}

	rows, err := d.db.QueryContext(ctx, statement)
	if err != nil {
		return ResultSet{}, &ExecError{Statement: statement, Cause: err}
	}
	defer rows.Close()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return ResultSet{}, &ExecError{Statement: statement, Cause: err}
	}

	result := ResultSet{Columns: make([]Column, len(columnTypes))}
	for idx, columnType := range columnTypes {
		result.Columns[idx] = Column{
			Name: columnType.Name(),
			Type: columnType.DatabaseTypeName(),
		}
	}

	for rows.Next() {
		cells := make([]any, len(columnTypes))
		targets := make([]any, len(columnTypes))
		for idx := range cells {
			targets[idx] = &cells[idx]
		}
		if err := rows.Scan(targets...); err != nil {
			return ResultSet{}, &ExecError{Statement: statement, Cause: err}
		}

		row := make([]any, len(cells))
		for idx, cell := range cells {
			row[idx] = normalizeCell(cell)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return ResultSet{}, &ExecError{Statement: statement, Cause: err}
	}

	return result, nil
}

// Close releases the instance. Further calls on the handle fail with
// ErrHandleClosed.
func (d *Database) Close() error {
	if d.closed {
		return ErrHandleClosed
	}
	d.closed = true
	return d.db.Close()
}
