package quell

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
)

// Result is the outcome of running a Query.
type Result struct {
	Rows         []map[string]any
	InsertID     int64
	HasInsertID  bool
	RowsAffected int64
}

// Runner executes compiled queries against a connection.
type Runner interface {
	Run(ctx context.Context, conn Conn, q Query) (*Result, error)
}

// SQLRunner is the default Runner. It prepares statements when the connection
// supports it and reads rows into maps keyed by column name.
type SQLRunner struct {
	Logger *slog.Logger
}

func (r SQLRunner) Run(ctx context.Context, conn Conn, q Query) (*Result, error) {
	if conn == nil {
		return nil, ErrNoConnection
	}

	r.logger().DebugContext(ctx, "running query", "kind", q.Kind.String(), "sql", q.Text, "args", len(q.Args))

	if q.Kind == StatementSelect || q.Returning != "" {
		return r.query(ctx, conn, q)
	}

	return r.exec(ctx, conn, q)
}

func (r SQLRunner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r SQLRunner) query(ctx context.Context, conn Conn, q Query) (*Result, error) {
	var rows *sqlx.Rows
	var err error

	if p, ok := conn.(preparer); ok {
		stmt, perr := p.PreparexContext(ctx, q.Text)
		if perr != nil {
			return nil, perr
		}
		defer stmt.Close()
		rows, err = stmt.QueryxContext(ctx, q.Args...)
	} else {
		rows, err = conn.QueryxContext(ctx, q.Text, q.Args...)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := &Result{}
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if q.Returning != "" && len(res.Rows) > 0 {
		if id, ok := toInt64(res.Rows[0][q.Returning]); ok {
			res.InsertID, res.HasInsertID = id, true
		}
	}
	res.RowsAffected = int64(len(res.Rows))

	return res, nil
}

func (r SQLRunner) exec(ctx context.Context, conn Conn, q Query) (*Result, error) {
	var sqlRes sql.Result
	var err error

	if p, ok := conn.(preparer); ok {
		stmt, perr := p.PreparexContext(ctx, q.Text)
		if perr != nil {
			return nil, perr
		}
		defer stmt.Close()
		sqlRes, err = stmt.ExecContext(ctx, q.Args...)
	} else {
		sqlRes, err = conn.ExecContext(ctx, q.Text, q.Args...)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{}
	if n, err := sqlRes.RowsAffected(); err == nil {
		res.RowsAffected = n
	}
	if q.Kind == StatementInsert {
		if id, err := sqlRes.LastInsertId(); err == nil && id != 0 {
			res.InsertID, res.HasInsertID = id, true
		}
	}

	return res, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		return id, err == nil
	case []byte:
		return toInt64(string(n))
	case nil:
		return 0, false
	}

	id, err := strconv.ParseInt(fmt.Sprint(v), 10, 64)
	return id, err == nil
}
