package quell

import (
	"context"
	"fmt"
)

type mysqlIntrospector struct{}

func (mysqlIntrospector) Describe(ctx context.Context, conn Conn, table string) ([]DescribeRow, error) {
	b := NewBuilder(MySQL)
	rows, err := conn.QueryxContext(ctx, fmt.Sprintf("DESCRIBE %s", b.quoteTable(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DescribeRow
	for rows.Next() {
		var row DescribeRow
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		result = append(result, row)
	}

	return result, rows.Err()
}
