package quell

import (
	"context"
	"reflect"
)

// Load fetches the record's row and merges it into the data. What is matched
// depends on value:
//
//   - nil matches the primary keys already on the record
//   - a map matches every entry as column = value
//   - a scalar with WithField matches that column
//   - a scalar alone matches the single primary key
//
// found is false with a nil error when no row matched; the record is then
// marked Absent.
func (r *Record) Load(ctx context.Context, value any, options ...QueryOption) (found bool, err error) {
	if value == nil {
		return r.LoadExisting(ctx, options...)
	}

	if search, ok := asSearch(value); ok {
		return r.LoadBy(ctx, search, options...)
	}

	opt := newQueryOption(options)
	if opt.field != "" {
		return r.LoadField(ctx, opt.field, value, options...)
	}

	return r.LoadKey(ctx, value, options...)
}

// LoadExisting matches the primary key values already set on the record.
func (r *Record) LoadExisting(ctx context.Context, options ...QueryOption) (bool, error) {
	opt := newQueryOption(options)
	conn := r.connFor(opt)

	schema, err := r.validateSchema(ctx, conn)
	if err != nil {
		return false, err
	}

	if !schema.HasPrimaryKeys() {
		return false, opError("load", ErrNoPrimaryKeys)
	}

	lookup, err := r.primaryLookup("load", schema)
	if err != nil {
		return false, err
	}

	return r.loadUsing(ctx, conn, schema, lookup)
}

// LoadBy matches every entry of search. Each field must be a known column.
func (r *Record) LoadBy(ctx context.Context, search map[string]any, options ...QueryOption) (bool, error) {
	opt := newQueryOption(options)
	conn := r.connFor(opt)

	schema, err := r.validateSchema(ctx, conn)
	if err != nil {
		return false, err
	}

	if len(search) == 0 {
		return false, opError("load", ErrEmptySearch)
	}

	lookup := make(map[string]any, len(search))
	for _, field := range sortedKeys(search) {
		if _, ok := schema.Column(field); !ok {
			return false, fieldError("load", field, ErrUnknownColumn)
		}
		lookup[field] = prepare(schema, field, search[field])
	}

	return r.loadUsing(ctx, conn, schema, lookup)
}

// LoadField matches value against a single column.
func (r *Record) LoadField(ctx context.Context, field string, value any, options ...QueryOption) (bool, error) {
	opt := newQueryOption(options)
	conn := r.connFor(opt)

	schema, err := r.validateSchema(ctx, conn)
	if err != nil {
		return false, err
	}

	if _, ok := schema.Column(field); !ok {
		return false, fieldError("load", field, ErrUnknownColumn)
	}

	return r.loadUsing(ctx, conn, schema, map[string]any{field: prepare(schema, field, value)})
}

// LoadKey matches value against the table's only primary key.
func (r *Record) LoadKey(ctx context.Context, value any, options ...QueryOption) (bool, error) {
	opt := newQueryOption(options)
	conn := r.connFor(opt)

	schema, err := r.validateSchema(ctx, conn)
	if err != nil {
		return false, err
	}

	switch len(schema.PrimaryKeys) {
	case 0:
		return false, opError("load", ErrNoPrimaryKeys)
	case 1:
	default:
		return false, opError("load", ErrMultiplePrimaryKeys)
	}

	key := schema.PrimaryKeys[0]
	return r.loadUsing(ctx, conn, schema, map[string]any{key: prepare(schema, key, value)})
}

func (r *Record) loadUsing(ctx context.Context, conn Conn, schema *Schema, lookup map[string]any) (bool, error) {
	q, err := r.model.builder.Select(r.model.tablename, lookup)
	if err != nil {
		return false, err
	}

	res, err := r.model.runner.Run(ctx, conn, q)
	if err != nil {
		return false, err
	}

	if len(res.Rows) == 0 {
		r.exists = Absent
		return false, nil
	}

	r.exists = Present
	r.SetMap(res.Rows[0], Silent())
	r.previous = cloneMap(r.data)
	r.changed = make(map[string]any)

	return true, nil
}

// resolveExists asks the database whether the record's row exists. Without
// primary keys there is nothing to ask, so the current belief is kept.
func (r *Record) resolveExists(ctx context.Context, conn Conn) (bool, error) {
	schema, err := r.validateSchema(ctx, conn)
	if err != nil {
		return false, err
	}

	if !schema.HasPrimaryKeys() {
		return r.exists == Present, nil
	}

	lookup := make(map[string]any, len(schema.PrimaryKeys))
	for _, key := range schema.PrimaryKeys {
		v, ok := r.data[key]
		if !ok {
			r.exists = Absent
			return false, nil
		}
		lookup[key] = prepare(schema, key, v)
	}

	q, err := r.model.builder.Select(r.model.tablename, lookup, schema.PrimaryKeys...)
	if err != nil {
		return false, err
	}

	res, err := r.model.runner.Run(ctx, conn, q)
	if err != nil {
		return false, err
	}

	if len(res.Rows) == 0 {
		r.exists = Absent
		return false, nil
	}

	r.exists = Present
	return true, nil
}

// asSearch accepts any map keyed by strings as a search.
func asSearch(value any) (map[string]any, bool) {
	if m, ok := value.(map[string]any); ok {
		return m, true
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}

	search := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		search[iter.Key().String()] = iter.Value().Interface()
	}
	return search, true
}
