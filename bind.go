package quell

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/iancoleman/strcase"
)

const fieldTag = "db"

type structField struct {
	index []int
	tag   columnTag
}

// structFields lists the exported fields of t with their column names. The
// db tag names the column; untagged fields use the snake_case field name and
// a tag of "-" skips the field.
func structFields(t reflect.Type) []structField {
	var fields []structField
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tagValue, ok := field.Tag.Lookup(fieldTag)
		if tagValue == "-" {
			continue
		}

		var tag columnTag
		if ok {
			tag = parseColumnTag(tagValue)
		}
		if tag.Name == "" {
			tag.Name = strcase.ToSnake(field.Name)
		}

		fields = append(fields, structField{index: field.Index, tag: tag})
	}
	return fields
}

func structValue(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("cannot bind nil %T", v)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("expected a struct, got %T", v)
	}
	return rv, nil
}

// SetStruct sets a field for every column of src. Zero valued auto columns
// and nil driver values are skipped.
func (r *Record) SetStruct(src any, options ...SetOption) error {
	rv, err := structValue(src)
	if err != nil {
		return err
	}

	values := make(map[string]any)
	for _, f := range structFields(rv.Type()) {
		fv := rv.FieldByIndex(f.index)
		if f.tag.Auto && fv.IsZero() {
			continue
		}

		val := fv.Interface()
		if v, ok := val.(driver.Valuer); ok {
			buf, err := v.Value()
			if err != nil {
				return fmt.Errorf("failed to get value of column %s. %w", f.tag.Name, err)
			}
			if buf == nil {
				continue
			}
			val = buf
		}

		values[f.tag.Name] = val
	}

	r.SetMap(values, options...)
	return nil
}

// Scan copies the record data into the struct dest points to. Fields without
// a value in the record are left untouched.
func (r *Record) Scan(dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("scan destination must be a non-nil pointer, got %T", dest)
	}
	rv, err := structValue(dest)
	if err != nil {
		return err
	}

	for _, f := range structFields(rv.Type()) {
		val, ok := r.data[f.tag.Name]
		if !ok {
			continue
		}
		if err := assign(rv.FieldByIndex(f.index), val); err != nil {
			return fmt.Errorf("failed to scan column %s. %w", f.tag.Name, err)
		}
	}

	return nil
}

func assign(dst reflect.Value, val any) error {
	if dst.CanAddr() {
		if sc, ok := dst.Addr().Interface().(sql.Scanner); ok {
			return sc.Scan(normalize(val))
		}
	}

	if val == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	if dst.Kind() == reflect.Ptr {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), val); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	src := reflect.ValueOf(val)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}

	if dst.Type() == reflect.TypeOf(time.Time{}) {
		t, ok := parseTime(normalize(val))
		if !ok {
			return fmt.Errorf("cannot parse %v as time", val)
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	}

	switch dst.Kind() {
	case reflect.String:
		dst.SetString(stringify(normalize(val)))
		return nil
	case reflect.Bool:
		if s, ok := normalize(val).(string); ok {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			dst.SetBool(b)
			return nil
		}
		n, ok := parseNumber(val)
		if !ok {
			return fmt.Errorf("cannot assign %T to bool", val)
		}
		dst.SetBool(n != 0)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v := normalize(val)
		n, ok := parseInt(v)
		if !ok {
			f, isNum := parseNumber(v)
			if !isNum {
				return fmt.Errorf("cannot assign %v to %s", val, dst.Type())
			}
			if f < math.MinInt64 || f >= math.MaxInt64 {
				return fmt.Errorf("%v overflows %s", val, dst.Type())
			}
			n = int64(f)
		}
		if dst.OverflowInt(n) {
			return fmt.Errorf("%v overflows %s", val, dst.Type())
		}
		dst.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v := normalize(val)
		n, ok := parseUint(v)
		if !ok {
			f, isNum := parseNumber(v)
			if !isNum || f < 0 {
				return fmt.Errorf("cannot assign %v to %s", val, dst.Type())
			}
			if f >= math.MaxUint64 {
				return fmt.Errorf("%v overflows %s", val, dst.Type())
			}
			n = uint64(f)
		}
		if dst.OverflowUint(n) {
			return fmt.Errorf("%v overflows %s", val, dst.Type())
		}
		dst.SetUint(n)
		return nil
	case reflect.Float32, reflect.Float64:
		n, ok := parseNumber(normalize(val))
		if !ok {
			return fmt.Errorf("cannot assign %v to %s", val, dst.Type())
		}
		dst.SetFloat(n)
		return nil
	}

	if src.Type().ConvertibleTo(dst.Type()) {
		dst.Set(src.Convert(dst.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", val, dst.Type())
}
