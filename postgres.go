package quell

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/guregu/null.v4"
)

type postgresIntrospector struct{}

type pgColumnInfo struct {
	Name       string      `db:"column_name"`
	DataType   string      `db:"data_type"`
	IsNullable string      `db:"is_nullable"`
	Default    null.String `db:"column_default"`
	MaxLength  null.Int    `db:"character_maximum_length"`
	Precision  null.Int    `db:"numeric_precision"`
	Scale      null.Int    `db:"numeric_scale"`
	IsIdentity null.String `db:"is_identity"`
}

const pgColumnsQuery = `SELECT column_name, data_type, is_nullable, column_default,
	character_maximum_length, numeric_precision, numeric_scale, is_identity
FROM information_schema.columns
WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema()) AND table_name = $2
ORDER BY ordinal_position`

const pgPrimaryKeysQuery = `SELECT kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
	ON tc.constraint_name = kcu.constraint_name
	AND tc.table_schema = kcu.table_schema
	AND tc.table_name = kcu.table_name
WHERE tc.constraint_type = 'PRIMARY KEY'
	AND tc.table_schema = COALESCE(NULLIF($1, ''), current_schema())
	AND tc.table_name = $2`

// Describe reads information_schema and renders each column the way MySQL's
// DESCRIBE would, so the same type parser serves both.
func (postgresIntrospector) Describe(ctx context.Context, conn Conn, table string) ([]DescribeRow, error) {
	schema, name := splitTable(table)

	pks, err := pgPrimaryKeys(ctx, conn, schema, name)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryxContext(ctx, pgColumnsQuery, schema, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DescribeRow
	for rows.Next() {
		var col pgColumnInfo
		if err := rows.StructScan(&col); err != nil {
			return nil, err
		}

		row := DescribeRow{
			Field:   col.Name,
			Type:    pgColumnType(col),
			Null:    strings.ToUpper(col.IsNullable),
			Default: col.Default,
		}
		if SliceContains(pks, col.Name) {
			row.Key = "PRI"
		}
		if strings.HasPrefix(col.Default.String, "nextval(") || strings.EqualFold(col.IsIdentity.String, "YES") {
			row.Extra = "auto_increment"
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	return result, nil
}

func pgPrimaryKeys(ctx context.Context, conn Conn, schema, name string) ([]string, error) {
	rows, err := conn.QueryxContext(ctx, pgPrimaryKeysQuery, schema, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

// pgColumnType translates an information_schema data type into MySQL syntax.
func pgColumnType(col pgColumnInfo) string {
	switch col.DataType {
	case "character varying":
		if col.MaxLength.Valid {
			return fmt.Sprintf("varchar(%d)", col.MaxLength.Int64)
		}
		return "varchar"
	case "character":
		if col.MaxLength.Valid {
			return fmt.Sprintf("char(%d)", col.MaxLength.Int64)
		}
		return "char"
	case "integer":
		return "int"
	case "smallint", "bigint", "text", "date":
		return col.DataType
	case "numeric":
		if col.Precision.Valid && col.Scale.Valid {
			return fmt.Sprintf("decimal(%d,%d)", col.Precision.Int64, col.Scale.Int64)
		}
		return "decimal"
	case "real":
		return "float"
	case "double precision":
		return "double"
	case "boolean":
		return "tinyint(1)"
	case "timestamp without time zone", "timestamp with time zone":
		return "datetime"
	case "time without time zone", "time with time zone":
		return "time"
	case "bytea":
		return "blob"
	}

	return col.DataType
}
