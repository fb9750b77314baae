package quell

import (
	"context"
	"reflect"
)

// Existence is what a record knows about its row in the database.
type Existence int

const (
	Unknown Existence = iota
	Present
	Absent
)

func (e Existence) String() string {
	switch e {
	case Present:
		return "present"
	case Absent:
		return "absent"
	default:
		return "unknown"
	}
}

type ChangeFunc func(r *Record)

type FieldChangeFunc func(r *Record, value any)

// Record is one row of a model's table with change tracking.
//
// A Record is not safe for concurrent use.
type Record struct {
	model  *Model
	conn   Conn
	schema *Schema

	data     map[string]any
	changed  map[string]any
	previous map[string]any
	exists   Existence

	changing bool
	pending  bool

	onChange      []ChangeFunc
	onFieldChange map[string][]FieldChangeFunc
}

type fieldValue struct {
	field string
	value any
}

func (r *Record) Model() *Model {
	return r.model
}

func (r *Record) Tablename() string {
	return r.model.tablename
}

// Schema returns the record's own schema when it has one, else the model's.
func (r *Record) Schema() *Schema {
	if r.schema != nil {
		return r.schema
	}
	return r.model.Schema()
}

func (r *Record) setSchema(schema *Schema) {
	if r.schema != nil {
		r.schema = schema
		return
	}
	r.model.setSchema(schema)
}

// Connection returns the connection the record uses when none is passed to
// an operation.
func (r *Record) Connection() Conn {
	if r.conn != nil {
		return r.conn
	}
	return r.model.conn
}

func (r *Record) Exists() Existence {
	return r.exists
}

// MarkExists overrides what the record believes about its row.
func (r *Record) MarkExists(e Existence) {
	r.exists = e
}

// Set assigns value to field and notifies listeners if the value changed.
func (r *Record) Set(field string, value any, options ...SetOption) *Record {
	if field == "" {
		return r
	}
	return r.apply([]fieldValue{{field, value}}, options)
}

// SetMap assigns every entry of values. Fields are applied in sorted order.
func (r *Record) SetMap(values map[string]any, options ...SetOption) *Record {
	pairs := make([]fieldValue, 0, len(values))
	for _, k := range sortedKeys(values) {
		pairs = append(pairs, fieldValue{k, values[k]})
	}
	return r.apply(pairs, options)
}

// Unset removes field from the record data.
func (r *Record) Unset(field string, options ...SetOption) *Record {
	if field == "" {
		return r
	}
	return r.apply([]fieldValue{{field: field}}, append(options, func(o *setOption) { o.unset = true }))
}

// apply runs one change. Changes made from inside a listener are nested: they
// update the data right away and leave previous, changed and the final change
// notification to the outermost call, which keeps notifying until no listener
// makes further changes.
func (r *Record) apply(pairs []fieldValue, options []SetOption) *Record {
	opt := &setOption{}
	for _, op := range options {
		op(opt)
	}

	nested := r.changing
	r.changing = true
	if !nested {
		defer func() {
			r.changing = false
			r.pending = false
		}()
		r.previous = cloneMap(r.data)
		r.changed = make(map[string]any)
	}

	schema := r.Schema()
	var changes []string

	for _, p := range pairs {
		cur, curOk := r.data[p.field]
		if !r.same(schema, p.field, cur, curOk, p.value, !opt.unset) {
			changes = append(changes, p.field)
		}

		prev, prevOk := r.previous[p.field]
		if r.same(schema, p.field, prev, prevOk, p.value, !opt.unset) {
			delete(r.changed, p.field)
		} else {
			r.changed[p.field] = p.value
		}

		if opt.unset {
			delete(r.data, p.field)
		} else {
			r.data[p.field] = p.value
		}
	}

	if !opt.silent {
		if len(changes) > 0 {
			r.pending = true
		}
		for _, field := range changes {
			r.emitField(field, r.data[field])
		}
	}

	if nested {
		return r
	}

	if !opt.silent {
		for r.pending {
			r.pending = false
			r.emitChange()
		}
	}

	return r
}

// same compares two possibly absent values with the column's comparison, or
// with strict equality when the field has no column. Number, enum and date
// columns see an absent value as NULL; text columns and unknown fields keep
// absent distinct from NULL.
func (r *Record) same(schema *Schema, field string, a any, aOk bool, b any, bOk bool) bool {
	if !aOk && !bOk {
		return true
	}
	ct, ok := schema.Column(field)
	if aOk != bOk && (!ok || !absentIsNull(ct)) {
		return false
	}
	if ok {
		return ct.Compare(a, b)
	}
	return strictEqual(a, b)
}

func absentIsNull(ct ColumnType) bool {
	switch t := ct.(type) {
	case *TextType:
		return false
	case *CustomType:
		return absentIsNull(t.Base)
	}
	return true
}

func (r *Record) emitField(field string, value any) {
	for _, fn := range append([]FieldChangeFunc(nil), r.onFieldChange[field]...) {
		fn(r, value)
	}
}

func (r *Record) emitChange() {
	for _, fn := range append([]ChangeFunc(nil), r.onChange...) {
		fn(r)
	}
}

// OnChange registers fn to run once after each batch of changes settles.
func (r *Record) OnChange(fn ChangeFunc) {
	r.onChange = append(r.onChange, fn)
}

// OnFieldChange registers fn to run whenever field changes value.
func (r *Record) OnFieldChange(field string, fn FieldChangeFunc) {
	if r.onFieldChange == nil {
		r.onFieldChange = make(map[string][]FieldChangeFunc)
	}
	r.onFieldChange[field] = append(r.onFieldChange[field], fn)
}

// Get returns the formatted value of field, or nil when it is not set.
func (r *Record) Get(field string) any {
	v, ok := r.data[field]
	if !ok {
		return nil
	}
	if ct, ok := r.Schema().Column(field); ok {
		return ct.Format(v)
	}
	return v
}

// GetRaw returns the value of field as it was set.
func (r *Record) GetRaw(field string) any {
	return r.data[field]
}

func (r *Record) Lookup(field string) (any, bool) {
	v, ok := r.data[field]
	return v, ok
}

// Has reports whether field is present in the data, even if its value is nil.
func (r *Record) Has(field string) bool {
	_, ok := r.data[field]
	return ok
}

func (r *Record) Data() map[string]any {
	return cloneMap(r.data)
}

// Changed returns the fields that differ from the previous snapshot.
func (r *Record) Changed() map[string]any {
	return cloneMap(r.changed)
}

// Previous returns the data as it was before the last outermost change.
func (r *Record) Previous() map[string]any {
	return cloneMap(r.previous)
}

func (r *Record) HasChanged() bool {
	return len(r.changed) > 0
}

// Call invokes a method registered on the model.
func (r *Record) Call(name string, args ...any) (any, error) {
	fn, err := r.model.method(name)
	if err != nil {
		return nil, err
	}
	return fn(r, args...)
}

func (r *Record) connFor(opt *queryOption) Conn {
	if opt.conn != nil {
		return opt.conn
	}
	return r.Connection()
}

// validateSchema returns a usable schema, introspecting the table when the
// current one is missing or incomplete.
func (r *Record) validateSchema(ctx context.Context, conn Conn) (*Schema, error) {
	if conn == nil {
		return nil, ErrNoConnection
	}

	if schema := r.Schema(); schema.Valid() {
		return schema, nil
	}

	schema, err := r.model.introspect(ctx, conn)
	if err != nil {
		return nil, err
	}

	r.setSchema(schema)
	return schema, nil
}

// prepare converts value for use in a query through the column type of field.
// Lists are converted element by element.
func prepare(schema *Schema, field string, value any) any {
	if _, ok := value.(Condition); ok {
		return value
	}
	ct, ok := schema.Column(field)
	if !ok {
		return value
	}

	if rv := reflect.ValueOf(value); rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		list := make([]any, rv.Len())
		for i := range list {
			list[i] = ct.Prepare(rv.Index(i).Interface())
		}
		return list
	}

	return ct.Prepare(value)
}

func prepareMap(schema *Schema, values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = prepare(schema, k, v)
	}
	return out
}
