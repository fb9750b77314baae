package quell

import (
	"log/slog"

	"github.com/jmoiron/sqlx"
)

type ModelOption func(m *Model)

// WithSchema supplies the table schema up front. A schema with columns and
// primary keys is used as is; anything less is introspected on first use.
func WithSchema(schema *Schema) ModelOption {
	return func(m *Model) {
		m.schema = schema
	}
}

func WithConnection(conn Conn) ModelOption {
	return func(m *Model) {
		m.conn = conn
	}
}

func WithDialect(dialect Dialect) ModelOption {
	return func(m *Model) {
		m.dialect = dialect
		m.dialectSet = true
	}
}

func WithBuilder(b Builder) ModelOption {
	return func(m *Model) {
		m.builder = b
	}
}

func WithRunner(r Runner) ModelOption {
	return func(m *Model) {
		m.runner = r
	}
}

func WithIntrospector(in Introspector) ModelOption {
	return func(m *Model) {
		m.introspector = in
	}
}

func WithLogger(logger *slog.Logger) ModelOption {
	return func(m *Model) {
		m.logger = logger
	}
}

// WithInitialize registers a hook that runs on every new record after its
// initial data was set.
func WithInitialize(fn func(r *Record)) ModelOption {
	return func(m *Model) {
		m.initialize = fn
	}
}

// WithMethod adds a named method callable through Record.Call.
func WithMethod(name string, fn MethodFunc) ModelOption {
	return func(m *Model) {
		if m.methods == nil {
			m.methods = make(map[string]MethodFunc)
		}
		m.methods[name] = fn
	}
}

type RecordOption func(r *Record)

// RecordConn overrides the model connection for one record.
func RecordConn(conn Conn) RecordOption {
	return func(r *Record) {
		r.conn = conn
	}
}

// RecordSchema gives one record its own schema instead of the model's.
func RecordSchema(schema *Schema) RecordOption {
	return func(r *Record) {
		r.schema = schema
	}
}

type SetOption func(o *setOption)

type setOption struct {
	silent bool
	unset  bool
}

// Silent applies a change without notifying listeners.
func Silent() SetOption {
	return func(o *setOption) {
		o.silent = true
	}
}

type QueryOption func(o *queryOption)

type queryOption struct {
	conn     Conn
	replace  bool
	using    map[string]any
	hasUsing bool
	field    string
}

func newQueryOption(options []QueryOption) *queryOption {
	opt := &queryOption{}
	for _, op := range options {
		op(opt)
	}
	return opt
}

// WithConn runs the operation on conn instead of the record or model connection.
func WithConn(conn Conn) QueryOption {
	return func(o *queryOption) {
		o.conn = conn
	}
}

// WithTransaction runs the operation inside a transaction owned by the caller.
func WithTransaction(tx *sqlx.Tx) QueryOption {
	return func(o *queryOption) {
		if tx != nil {
			o.conn = tx
		}
	}
}

// WithReplace turns an insert into REPLACE INTO and keeps the autoincrement
// column in the written values.
func WithReplace() QueryOption {
	return func(o *queryOption) {
		o.replace = true
	}
}

// Using overrides the lookup an update or delete targets.
func Using(lookup map[string]any) QueryOption {
	return func(o *queryOption) {
		o.using = lookup
		o.hasUsing = true
	}
}

// WithField makes Load match a single value against the named column.
func WithField(field string) QueryOption {
	return func(o *queryOption) {
		o.field = field
	}
}
