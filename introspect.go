package quell

import (
	"context"
	"strings"
)

// Introspector reads the column layout of a table as DESCRIBE rows.
type Introspector interface {
	Describe(ctx context.Context, conn Conn, table string) ([]DescribeRow, error)
}

// IntrospectorFor returns the introspector matching dialect.
func IntrospectorFor(dialect Dialect) Introspector {
	switch dialect {
	case SQLite:
		return sqliteIntrospector{}
	case Postgres:
		return postgresIntrospector{}
	default:
		return mysqlIntrospector{}
	}
}

// IntrospectSchema describes table and parses the result into a loaded schema.
func IntrospectSchema(ctx context.Context, in Introspector, conn Conn, table string) (*Schema, error) {
	if conn == nil {
		return nil, ErrNoConnection
	}

	rows, err := in.Describe(ctx, conn, table)
	if err != nil {
		return nil, err
	}

	return ParseDescribe(rows), nil
}

// splitTable separates an optional schema qualifier from a table name.
func splitTable(table string) (schema string, name string) {
	if i := strings.LastIndex(table, "."); i >= 0 {
		return table[:i], table[i+1:]
	}
	return "", table
}
