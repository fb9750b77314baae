package quell

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// MethodFunc is a user method attached to a model and invoked on a record.
type MethodFunc func(r *Record, args ...any) (any, error)

// Model binds a table to its schema, connection and query bridge. Records are
// created through New and share the model defaults.
type Model struct {
	tablename    string
	conn         Conn
	dialect      Dialect
	dialectSet   bool
	builder      Builder
	runner       Runner
	introspector Introspector
	logger       *slog.Logger
	initialize   func(r *Record)
	methods      map[string]MethodFunc

	mu     sync.RWMutex
	schema *Schema
}

// Definition is the declarative form of a model.
type Definition struct {
	Tablename  string
	Schema     *Schema
	Connection Conn
	Initialize func(r *Record)
	Methods    map[string]MethodFunc
}

// NewModel creates a model for tablename. It fails with ErrInvalidTablename
// when the name is blank.
func NewModel(tablename string, options ...ModelOption) (*Model, error) {
	if strings.TrimSpace(tablename) == "" {
		return nil, ErrInvalidTablename
	}

	m := &Model{tablename: tablename}
	for _, op := range options {
		op(m)
	}

	if !m.dialectSet {
		m.dialect = DialectOf(m.conn)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.builder == nil {
		m.builder = NewBuilder(m.dialect)
	}
	if m.runner == nil {
		m.runner = SQLRunner{Logger: m.logger}
	}
	if m.introspector == nil {
		m.introspector = IntrospectorFor(m.dialect)
	}

	return m, nil
}

// Define creates a model from a Definition. Options are applied after the
// definition fields.
func Define(def Definition, options ...ModelOption) (*Model, error) {
	var opts []ModelOption
	if def.Schema != nil {
		opts = append(opts, WithSchema(def.Schema))
	}
	if def.Connection != nil {
		opts = append(opts, WithConnection(def.Connection))
	}
	if def.Initialize != nil {
		opts = append(opts, WithInitialize(def.Initialize))
	}
	for name, fn := range def.Methods {
		opts = append(opts, WithMethod(name, fn))
	}

	return NewModel(def.Tablename, append(opts, options...)...)
}

// MustModel is like NewModel but panics on error.
func MustModel(tablename string, options ...ModelOption) *Model {
	m, err := NewModel(tablename, options...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Model) Tablename() string {
	return m.tablename
}

func (m *Model) Connection() Conn {
	return m.conn
}

func (m *Model) Dialect() Dialect {
	return m.dialect
}

// Schema returns the schema shared by records of this model, or nil when it
// is neither supplied nor loaded yet.
func (m *Model) Schema() *Schema {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.schema
}

func (m *Model) setSchema(schema *Schema) {
	m.mu.Lock()
	m.schema = schema
	m.mu.Unlock()
}

// New creates a record holding data. The data counts as initial state, so the
// record starts without changes.
func (m *Model) New(data map[string]any, options ...RecordOption) *Record {
	r := &Record{
		model:    m,
		data:     make(map[string]any),
		changed:  make(map[string]any),
		previous: make(map[string]any),
	}
	for _, op := range options {
		op(r)
	}

	if data != nil {
		r.SetMap(data)
	}
	r.previous = cloneMap(r.data)
	r.changed = make(map[string]any)

	if m.initialize != nil {
		m.initialize(r)
	}

	return r
}

// LoadSchema introspects the table and caches the result on the model.
func (m *Model) LoadSchema(ctx context.Context, options ...QueryOption) (*Schema, error) {
	opt := newQueryOption(options)
	conn := opt.conn
	if conn == nil {
		conn = m.conn
	}

	schema, err := m.introspect(ctx, conn)
	if err != nil {
		return nil, err
	}

	m.setSchema(schema)
	return schema, nil
}

func (m *Model) introspect(ctx context.Context, conn Conn) (*Schema, error) {
	if conn == nil {
		return nil, ErrNoConnection
	}

	schema, err := IntrospectSchema(ctx, m.introspector, conn, m.tablename)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to describe table", "table", m.tablename, "error", err)
		return nil, err
	}

	m.logger.DebugContext(ctx, "loaded table schema", "table", m.tablename, "columns", len(schema.Columns), "primary_keys", schema.PrimaryKeys)
	return schema, nil
}

func (m *Model) method(name string) (MethodFunc, error) {
	fn, ok := m.methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, name)
	}
	return fn, nil
}
