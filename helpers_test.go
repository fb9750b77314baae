package quell

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
)

// fakeConn satisfies Conn for tests that never reach a database.
type fakeConn struct {
	driver string
}

func (c *fakeConn) QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	return nil, errors.New("fakeConn: query not supported")
}

func (c *fakeConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, errors.New("fakeConn: exec not supported")
}

func (c *fakeConn) DriverName() string {
	return c.driver
}

// fakeRunner records every query and answers with queued results.
type fakeRunner struct {
	mu      sync.Mutex
	queries []Query
	conns   []Conn
	results []*Result
	err     error
}

func (f *fakeRunner) Run(ctx context.Context, conn Conn, q Query) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, q)
	f.conns = append(f.conns, conn)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return &Result{}, nil
	}

	res := f.results[0]
	f.results = f.results[1:]
	return res, nil
}

func (f *fakeRunner) push(results ...*Result) *fakeRunner {
	f.results = append(f.results, results...)
	return f
}

func (f *fakeRunner) last(t *testing.T) Query {
	t.Helper()
	if len(f.queries) == 0 {
		t.Fatal("no query was run")
	}
	return f.queries[len(f.queries)-1]
}

type fakeIntrospector struct {
	rows  []DescribeRow
	calls int
}

func (f *fakeIntrospector) Describe(ctx context.Context, conn Conn, table string) ([]DescribeRow, error) {
	f.calls++
	return f.rows, nil
}

func resultRows(rows ...map[string]any) *Result {
	return &Result{Rows: rows}
}

func usersSchema() *Schema {
	return &Schema{
		Columns: map[string]ColumnType{
			"id":    INT(),
			"name":  VARCHAR(),
			"email": VARCHAR(255),
		},
		PrimaryKeys:   []string{"id"},
		AutoIncrement: "id",
	}
}

func newTestModel(t *testing.T, schema *Schema, runner Runner, opts ...ModelOption) *Model {
	t.Helper()

	base := []ModelOption{
		WithConnection(&fakeConn{driver: "mysql"}),
		WithRunner(runner),
	}
	if schema != nil {
		base = append(base, WithSchema(schema))
	}

	m, err := NewModel("users", append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	return m
}
