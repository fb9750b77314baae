package quell

import (
	"context"
)

// Insert writes the record as a new row. Unless WithReplace is given the
// autoincrement column is left to the database, and a generated id is stored
// back on the record.
func (r *Record) Insert(ctx context.Context, options ...QueryOption) error {
	opt := newQueryOption(options)
	conn := r.connFor(opt)

	schema, err := r.validateSchema(ctx, conn)
	if err != nil {
		return err
	}

	q, err := r.model.builder.Insert(r.model.tablename, r.writeSet(schema, opt.replace), opt.replace)
	if err != nil {
		return err
	}
	if rb, ok := r.model.builder.(returningBuilder); ok && schema.AutoIncrement != "" {
		q = rb.Returning(q, schema.AutoIncrement)
	}

	res, err := r.model.runner.Run(ctx, conn, q)
	if err != nil {
		return err
	}

	if schema.AutoIncrement != "" && res.HasInsertID {
		r.data[schema.AutoIncrement] = res.InsertID
	}
	r.exists = Present

	return nil
}

// Update writes the record over the row matched by its primary keys, or by
// the lookup given with Using.
func (r *Record) Update(ctx context.Context, options ...QueryOption) error {
	opt := newQueryOption(options)
	conn := r.connFor(opt)

	schema, err := r.validateSchema(ctx, conn)
	if err != nil {
		return err
	}

	var lookup map[string]any
	if opt.hasUsing {
		lookup = prepareMap(schema, opt.using)
	} else {
		if lookup, err = r.primaryLookup("update", schema); err != nil {
			return err
		}
	}

	if len(lookup) == 0 {
		return opError("update", ErrNoUpdateKeys)
	}

	q, err := r.model.builder.Update(r.model.tablename, r.writeSet(schema, opt.replace), lookup)
	if err != nil {
		return err
	}

	if _, err := r.model.runner.Run(ctx, conn, q); err != nil {
		return err
	}
	r.exists = Present

	return nil
}

// Delete removes the row matched by the primary keys, by the Using lookup, or
// by every set column when the table has no primary keys. The record data is
// kept.
func (r *Record) Delete(ctx context.Context, options ...QueryOption) error {
	opt := newQueryOption(options)
	conn := r.connFor(opt)

	schema, err := r.validateSchema(ctx, conn)
	if err != nil {
		return err
	}

	var lookup map[string]any
	switch {
	case opt.hasUsing:
		lookup = prepareMap(schema, opt.using)
	case schema.HasPrimaryKeys():
		if lookup, err = r.primaryLookup("delete", schema); err != nil {
			return err
		}
	default:
		lookup = make(map[string]any)
		for _, field := range schema.ColumnNames() {
			if v, ok := r.data[field]; ok {
				lookup[field] = prepare(schema, field, v)
			}
		}
	}

	if len(lookup) == 0 {
		return opError("delete", ErrNoDeleteData)
	}

	q, err := r.model.builder.Delete(r.model.tablename, lookup)
	if err != nil {
		return err
	}

	if _, err := r.model.runner.Run(ctx, conn, q); err != nil {
		return err
	}
	r.exists = Absent

	return nil
}

// Save inserts or updates depending on whether the row exists. With
// WithReplace the autoincrement value is dropped and the row is replaced.
func (r *Record) Save(ctx context.Context, options ...QueryOption) error {
	opt := newQueryOption(options)
	conn := r.connFor(opt)

	if opt.replace {
		schema, err := r.validateSchema(ctx, conn)
		if err != nil {
			return err
		}
		if schema.AutoIncrement != "" {
			r.Unset(schema.AutoIncrement)
		}
		return r.Insert(ctx, options...)
	}

	exists := r.exists == Present
	if r.exists == Unknown {
		var err error
		if exists, err = r.resolveExists(ctx, conn); err != nil {
			return err
		}
	}

	if exists {
		return r.Update(ctx, options...)
	}
	return r.Insert(ctx, options...)
}

// writeSet collects the prepared value of every schema column the record holds.
func (r *Record) writeSet(schema *Schema, replace bool) map[string]any {
	write := make(map[string]any)
	for field, v := range r.data {
		ct, ok := schema.Column(field)
		if !ok {
			continue
		}
		if !replace && field == schema.AutoIncrement {
			continue
		}
		write[field] = ct.Prepare(v)
	}
	return write
}

func (r *Record) primaryLookup(op string, schema *Schema) (map[string]any, error) {
	lookup := make(map[string]any, len(schema.PrimaryKeys))
	for _, key := range schema.PrimaryKeys {
		v, ok := r.data[key]
		if !ok {
			return nil, fieldError(op, key, ErrMissingPrimaryKey)
		}
		lookup[key] = prepare(schema, key, v)
	}
	return lookup, nil
}
