package sqlengine

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestEnsureReadyIdempotentAndConcurrent(t *testing.T) {
	engine := NewEngine("sqlite3")
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for idx := 0; idx < len(errs); idx++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			errs[idx] = engine.EnsureReady(ctx)
		}(idx)
	}
	wg.Wait()

	for idx, err := range errs {
		if err != nil {
			t.Fatalf("EnsureReady call %d failed: %v", idx, err)
		}
	}

	if err := engine.EnsureReady(ctx); err != nil {
		t.Fatalf("EnsureReady after ready failed: %v", err)
	}
}

func TestEnsureReadyFailureIsRetryable(t *testing.T) {
	engine := NewEngine("no_such_driver")
	ctx := context.Background()

	err := engine.EnsureReady(ctx)
	if !errors.Is(err, ErrEngineInit) {
		t.Fatalf("expected ErrEngineInit, got %v", err)
	}

	// Still NOT_READY: a second attempt fails the same way instead of
	// pretending to be initialized.
	if err := engine.EnsureReady(ctx); !errors.Is(err, ErrEngineInit) {
		t.Fatalf("expected ErrEngineInit on retry, got %v", err)
	}
}

func TestCreateDatabaseInstancesAreIsolated(t *testing.T) {
	engine := NewEngine("sqlite3")
	ctx := context.Background()

	first, err := engine.CreateDatabase(ctx)
	if err != nil {
		t.Fatalf("CreateDatabase failed: %v", err)
	}
	defer first.Close()

	second, err := engine.CreateDatabase(ctx)
	if err != nil {
		t.Fatalf("CreateDatabase failed: %v", err)
	}
	defer second.Close()

	if err := first.Execute(ctx, `CREATE TABLE t (x INTEGER)`); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if err := first.Execute(ctx, `INSERT INTO t VALUES (1)`); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	// The second instance must not see the first instance's table.
	if _, err := second.Query(ctx, `SELECT x FROM t`); err == nil {
		t.Fatalf("expected query against missing table to fail on isolated instance")
	}
}

func TestQueryReturnsStructuredResultSet(t *testing.T) {
	engine := NewEngine("sqlite3")
	ctx := context.Background()

	db, err := engine.CreateDatabase(ctx)
	if err != nil {
		t.Fatalf("CreateDatabase failed: %v", err)
	}
	defer db.Close()

	statements := []string{
		`CREATE TABLE people (name TEXT, age INTEGER)`,
		`INSERT INTO people VALUES ('ada', 36)`,
		`INSERT INTO people VALUES ('grace', 45)`,
	}
	for _, statement := range statements {
		if err := db.Execute(ctx, statement); err != nil {
			t.Fatalf("Execute %q failed: %v", statement, err)
		}
	}

	result, err := db.Query(ctx, `SELECT name, age FROM people ORDER BY age`)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if len(result.Columns) != 2 || result.Columns[0].Name != "name" || result.Columns[1].Name != "age" {
		t.Fatalf("unexpected columns: %+v", result.Columns)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if result.Rows[0][0] != "ada" || result.Rows[0][1] != int64(36) {
		t.Fatalf("unexpected first row: %+v", result.Rows[0])
	}
	if result.Rows[1][0] != "grace" || result.Rows[1][1] != int64(45) {
		t.Fatalf("unexpected second row: %+v", result.Rows[1])
	}
}

func TestExecuteAndQueryReturnTypedErrors(t *testing.T) {
	engine := NewEngine("sqlite3")
	ctx := context.Background()

	db, err := engine.CreateDatabase(ctx)
	if err != nil {
		t.Fatalf("CreateDatabase failed: %v", err)
	}
	defer db.Close()

	err = db.Execute(ctx, `CREATE GARBAGE`)
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecError from Execute, got %v", err)
	}
	if execErr.Statement != `CREATE GARBAGE` {
		t.Fatalf("error does not carry offending statement: %+v", execErr)
	}

	_, err = db.Query(ctx, `SELECT nope FROM nothing`)
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecError from Query, got %v", err)
	}
}

func TestClosedHandleRejectsEverything(t *testing.T) {
	engine := NewEngine("sqlite3")
	ctx := context.Background()

	db, err := engine.CreateDatabase(ctx)
	if err != nil {
		t.Fatalf("CreateDatabase failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := db.Execute(ctx, `SELECT 1`); !errors.Is(err, ErrHandleClosed) {
		t.Fatalf("expected ErrHandleClosed from Execute, got %v", err)
	}
	if _, err := db.Query(ctx, `SELECT 1`); !errors.Is(err, ErrHandleClosed) {
		t.Fatalf("expected ErrHandleClosed from Query, got %v", err)
	}
	if err := db.Close(); !errors.Is(err, ErrHandleClosed) {
		t.Fatalf("expected ErrHandleClosed from double Close, got %v", err)
	}
}

func TestResultSetEqual(t *testing.T) {
	base := ResultSet{
		Columns: []Column{{Name: "x", Type: "INTEGER"}},
		Rows:    [][]any{{int64(1)}, {int64(2)}},
	}

	cases := []struct {
		name  string
		other ResultSet
		equal bool
	}{
		{
			name: "identical",
			other: ResultSet{
				Columns: []Column{{Name: "x", Type: "INTEGER"}},
				Rows:    [][]any{{int64(1)}, {int64(2)}},
			},
			equal: true,
		},
		{
			name: "type name ignored",
			other: ResultSet{
				Columns: []Column{{Name: "x", Type: ""}},
				Rows:    [][]any{{int64(1)}, {int64(2)}},
			},
			equal: true,
		},
		{
			name: "column name differs",
			other: ResultSet{
				Columns: []Column{{Name: "y", Type: "INTEGER"}},
				Rows:    [][]any{{int64(1)}, {int64(2)}},
			},
			equal: false,
		},
		{
			name: "row order differs",
			other: ResultSet{
				Columns: []Column{{Name: "x", Type: "INTEGER"}},
				Rows:    [][]any{{int64(2)}, {int64(1)}},
			},
			equal: false,
		},
		{
			name: "no cross-type coercion",
			other: ResultSet{
				Columns: []Column{{Name: "x", Type: "INTEGER"}},
				Rows:    [][]any{{"1"}, {"2"}},
			},
			equal: false,
		},
		{
			name: "row count differs",
			other: ResultSet{
				Columns: []Column{{Name: "x", Type: "INTEGER"}},
				Rows:    [][]any{{int64(1)}},
			},
			equal: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := base.Equal(tc.other); got != tc.equal {
				t.Fatalf("Equal = %v, want %v", got, tc.equal)
			}
		})
	}

	nullRows := ResultSet{Columns: []Column{{Name: "x"}}, Rows: [][]any{{nil}}}
	if !nullRows.Equal(ResultSet{Columns: []Column{{Name: "x"}}, Rows: [][]any{{nil}}}) {
		t.Fatalf("NULL cells must compare equal to NULL cells")
	}
	if nullRows.Equal(ResultSet{Columns: []Column{{Name: "x"}}, Rows: [][]any{{int64(0)}}}) {
		t.Fatalf("NULL must not equal zero")
	}
}
