package quell

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type StatementKind int

const (
	StatementSelect StatementKind = iota
	StatementInsert
	StatementUpdate
	StatementDelete
)

func (k StatementKind) String() string {
	switch k {
	case StatementSelect:
		return "select"
	case StatementInsert:
		return "insert"
	case StatementUpdate:
		return "update"
	case StatementDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Query is a compiled statement and its parameters.
type Query struct {
	Text      string
	Args      []any
	Kind      StatementKind
	Returning string // column whose generated value is read back from the statement
}

// Builder compiles record operations into SQL. Lookup and write maps hold
// prepared values keyed by column name.
type Builder interface {
	Select(table string, lookup map[string]any, columns ...string) (Query, error)
	Insert(table string, write map[string]any, replace bool) (Query, error)
	Update(table string, write map[string]any, lookup map[string]any) (Query, error)
	Delete(table string, lookup map[string]any) (Query, error)
}

// returningBuilder is implemented by builders that need the statement itself
// to hand back generated keys.
type returningBuilder interface {
	Returning(q Query, column string) Query
}

type pagingBuilder interface {
	Sort(q Query, fields ...string) Query
	Page(q Query, limit, offset int) Query
}

// SQLBuilder is the default Builder. Columns are emitted in sorted order so the
// same input always compiles to the same statement.
type SQLBuilder struct {
	Dialect Dialect
}

func NewBuilder(dialect Dialect) *SQLBuilder {
	return &SQLBuilder{Dialect: dialect}
}

func (b *SQLBuilder) Select(table string, lookup map[string]any, columns ...string) (Query, error) {
	cols := "*"
	if len(columns) > 0 {
		cols = strings.Join(Map(columns, b.QuoteIdent), ", ")
	}

	var qry strings.Builder
	qry.WriteString(fmt.Sprintf("SELECT %s FROM %s", cols, b.quoteTable(table)))

	where, args, expand := b.where(lookup)
	if where != "" {
		qry.WriteString(" WHERE ")
		qry.WriteString(where)
	}

	return b.finish(Query{Text: qry.String(), Args: args, Kind: StatementSelect}, expand)
}

func (b *SQLBuilder) Insert(table string, write map[string]any, replace bool) (Query, error) {
	verb := "INSERT"
	if replace {
		if b.Dialect == Postgres {
			return Query{}, ErrReplaceUnsupported
		}
		verb = "REPLACE"
	}

	keys := sortedKeys(write)
	if len(keys) == 0 {
		if b.Dialect == MySQL {
			return b.finish(Query{Text: fmt.Sprintf("%s INTO %s () VALUES ()", verb, b.quoteTable(table)), Kind: StatementInsert}, false)
		}
		return b.finish(Query{Text: fmt.Sprintf("%s INTO %s DEFAULT VALUES", verb, b.quoteTable(table)), Kind: StatementInsert}, false)
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = write[k]
	}

	pl := "?" + strings.Repeat(", ?", len(keys)-1)
	qry := fmt.Sprintf("%s INTO %s (%s) VALUES (%s)", verb, b.quoteTable(table), strings.Join(Map(keys, b.QuoteIdent), ", "), pl)

	return b.finish(Query{Text: qry, Args: args, Kind: StatementInsert}, false)
}

func (b *SQLBuilder) Update(table string, write map[string]any, lookup map[string]any) (Query, error) {
	if len(write) == 0 {
		return Query{}, opError("update", ErrEmptyWrite)
	}
	if len(lookup) == 0 {
		return Query{}, opError("update", ErrNoUpdateKeys)
	}

	var sets []string
	var args []any
	for _, k := range sortedKeys(write) {
		sets = append(sets, fmt.Sprintf("%s = ?", b.QuoteIdent(k)))
		args = append(args, write[k])
	}

	where, whereArgs, expand := b.where(lookup)
	args = append(args, whereArgs...)

	qry := fmt.Sprintf("UPDATE %s SET %s WHERE %s", b.quoteTable(table), strings.Join(sets, ", "), where)
	return b.finish(Query{Text: qry, Args: args, Kind: StatementUpdate}, expand)
}

func (b *SQLBuilder) Delete(table string, lookup map[string]any) (Query, error) {
	if len(lookup) == 0 {
		return Query{}, opError("delete", ErrNoDeleteData)
	}

	where, args, expand := b.where(lookup)
	qry := fmt.Sprintf("DELETE FROM %s WHERE %s", b.quoteTable(table), where)
	return b.finish(Query{Text: qry, Args: args, Kind: StatementDelete}, expand)
}

// Returning asks Postgres to hand back the generated column; the other
// dialects report it through LastInsertId.
func (b *SQLBuilder) Returning(q Query, column string) Query {
	if b.Dialect != Postgres || column == "" {
		return q
	}
	q.Text = fmt.Sprintf("%s RETURNING %s", q.Text, b.QuoteIdent(column))
	q.Returning = column
	return q
}

func (b *SQLBuilder) Sort(q Query, fields ...string) Query {
	if order := sortClause(fields, b.QuoteIdent); order != "" {
		q.Text += " ORDER BY " + order
	}
	return q
}

func (b *SQLBuilder) Page(q Query, limit, offset int) Query {
	q.Text += b.limitOffsetSql(limit, offset)
	return q
}

func (b *SQLBuilder) QuoteIdent(name string) string {
	switch b.Dialect {
	case Postgres:
		return pq.QuoteIdentifier(name)
	case SQLite:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	default:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
}

// quoteTable quotes each part of a schema qualified table name.
func (b *SQLBuilder) quoteTable(table string) string {
	return strings.Join(Map(strings.Split(table, "."), b.QuoteIdent), ".")
}

func (b *SQLBuilder) bindType() int {
	if b.Dialect == Postgres {
		return sqlx.DOLLAR
	}
	return sqlx.QUESTION
}

// where turns a lookup into an AND-ed filter. nil matches NULL and a slice
// matches any of its values.
func (b *SQLBuilder) where(lookup map[string]any) (where string, args []any, expand bool) {
	var clauses []string
	for _, k := range sortedKeys(lookup) {
		col := b.QuoteIdent(k)
		val := lookup[k]

		if val == nil {
			clauses = append(clauses, col+" IS NULL")
			continue
		}

		if cond, ok := val.(Condition); ok {
			clause, condArgs := cond.clause(col)
			clauses = append(clauses, clause)
			args = append(args, condArgs...)
			continue
		}

		vval := reflect.ValueOf(val)
		if _, isBytes := val.([]byte); isBytes || (vval.Kind() != reflect.Slice && vval.Kind() != reflect.Array) {
			clauses = append(clauses, col+" = ?")
			args = append(args, val)
			continue
		}

		switch vval.Len() {
		case 0:
			clauses = append(clauses, "1 = 0")
		case 1:
			clauses = append(clauses, col+" = ?")
			args = append(args, vval.Index(0).Interface())
		default:
			clauses = append(clauses, col+" IN (?)")
			args = append(args, val)
			expand = true
		}
	}

	return strings.Join(clauses, " AND "), args, expand
}

func (b *SQLBuilder) finish(q Query, expand bool) (Query, error) {
	if expand {
		text, args, err := sqlx.In(q.Text, q.Args...)
		if err != nil {
			return Query{}, fmt.Errorf("failed to expand %s query. %w", q.Kind, err)
		}
		q.Text, q.Args = text, args
	}

	q.Text = sqlx.Rebind(b.bindType(), q.Text)
	return q, nil
}

// limitOffsetSql renders the paging clause. MySQL and SQLite only accept OFFSET
// after a LIMIT, so an offset alone gets the dialect's unbounded limit.
func (b *SQLBuilder) limitOffsetSql(limit int, offset int) string {
	if limit < 0 {
		limit = 0
	}

	qry := strings.Builder{}

	if limit > 0 {
		qry.WriteString(fmt.Sprintf(" LIMIT %d", limit))
	}

	if offset > 0 {
		if limit == 0 {
			switch b.Dialect {
			case SQLite:
				qry.WriteString(" LIMIT -1")
			case Postgres:
				// OFFSET alone is valid.
			default:
				qry.WriteString(" LIMIT 18446744073709551615")
			}
		}
		qry.WriteString(fmt.Sprintf(" OFFSET %d", offset))
	}

	return qry.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
