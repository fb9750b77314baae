package quell

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/guregu/null.v4"
)

type sqliteIntrospector struct{}

type sqliteColumnInfo struct {
	CID       int         `db:"cid"`
	Name      string      `db:"name"`
	Type      string      `db:"type"`
	NotNull   int         `db:"notnull"`
	DfltValue null.String `db:"dflt_value"`
	Pk        int         `db:"pk"`
}

// Describe maps PRAGMA table_info onto DESCRIBE rows. A single INTEGER
// primary key aliases the rowid and is reported as auto_increment.
func (sqliteIntrospector) Describe(ctx context.Context, conn Conn, table string) ([]DescribeRow, error) {
	b := NewBuilder(SQLite)
	schema, name := splitTable(table)
	qry := fmt.Sprintf("PRAGMA table_info(%s)", b.QuoteIdent(name))
	if schema != "" {
		qry = fmt.Sprintf("PRAGMA %s.table_info(%s)", b.QuoteIdent(schema), b.QuoteIdent(name))
	}

	rows, err := conn.QueryxContext(ctx, qry)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []sqliteColumnInfo
	for rows.Next() {
		var col sqliteColumnInfo
		if err := rows.StructScan(&col); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	pks := Filter(cols, func(col sqliteColumnInfo) bool {
		return col.Pk > 0
	})
	rowid := ""
	if len(pks) == 1 && strings.EqualFold(strings.TrimSpace(pks[0].Type), "INTEGER") {
		rowid = pks[0].Name
	}

	return Map(cols, func(col sqliteColumnInfo) DescribeRow {
		row := DescribeRow{
			Field:   col.Name,
			Type:    strings.ToLower(strings.TrimSpace(col.Type)),
			Null:    "YES",
			Default: col.DfltValue,
		}
		if col.NotNull == 1 {
			row.Null = "NO"
		}
		if col.Pk > 0 {
			row.Key = "PRI"
		}
		if col.Name == rowid {
			row.Extra = "auto_increment"
		}
		if row.Type == "" {
			row.Type = "text"
		}
		return row
	}), nil
}
