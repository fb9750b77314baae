package quell

import (
	"database/sql/driver"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ncruces/go-strftime"
)

// ColumnType normalizes values for one SQL column.
//
// Prepare is applied right before a value is used in a query. Format is applied
// when a value is read back through Record.Get and mirrors the way the database
// would store it (eg, trimmed to the column length). Compare decides whether two
// values are the same for change tracking.
type ColumnType interface {
	Spec() Spec
	Format(v any) any
	Prepare(v any) any
	Compare(a, b any) bool
}

// Spec is the configuration shared by every column type.
type Spec struct {
	Name      string
	Null      bool
	Size      int
	Precision int
	Unsigned  bool
	Options   []string
	Layout    string // strftime mask for date and time columns
	Zero      string // value used for non-nullable date and time columns
}

func (s Spec) clone() Spec {
	if s.Options != nil {
		s.Options = append([]string(nil), s.Options...)
	}
	return s
}

type ColumnOption func(s *Spec)

func Size(n int) ColumnOption {
	return func(s *Spec) {
		s.Size = n
	}
}

func Precision(n int) ColumnOption {
	return func(s *Spec) {
		s.Precision = n
	}
}

func Unsigned() ColumnOption {
	return func(s *Spec) {
		s.Unsigned = true
	}
}

// Null sets whether the column accepts NULL.
func Null(allow bool) ColumnOption {
	return func(s *Spec) {
		s.Null = allow
	}
}

func NotNull() ColumnOption {
	return Null(false)
}

// Options sets the allowed values of an ENUM column.
func Options(values ...string) ColumnOption {
	return func(s *Spec) {
		s.Options = append([]string(nil), values...)
	}
}

// Layout sets the strftime mask of a date or time column.
func Layout(mask string) ColumnOption {
	return func(s *Spec) {
		s.Layout = mask
	}
}

// Kind renames the type, eg for custom or unrecognized column types.
func Kind(name string) ColumnOption {
	return func(s *Spec) {
		s.Name = strings.ToUpper(name)
	}
}

func applyOptions(s Spec, opts []ColumnOption) Spec {
	s = s.clone()
	for _, op := range opts {
		op(&s)
	}
	return s
}

// TextType covers the character and blob families.
type TextType struct {
	spec Spec
}

func (t *TextType) Spec() Spec {
	return t.spec.clone()
}

func (t *TextType) With(opts ...ColumnOption) *TextType {
	return &TextType{spec: applyOptions(t.spec, opts)}
}

func (t *TextType) Format(v any) any {
	v = normalize(v)
	if v == nil {
		return t.null()
	}

	s := stringify(v)
	if t.spec.Size > 0 && utf8.RuneCountInString(s) > t.spec.Size {
		return string([]rune(s)[:t.spec.Size])
	}

	return s
}

func (t *TextType) Prepare(v any) any {
	v = normalize(v)
	if v == nil {
		return t.null()
	}

	return stringify(v)
}

func (t *TextType) Compare(a, b any) bool {
	return compareFormatted(t, a, b)
}

func (t *TextType) null() any {
	if t.spec.Null {
		return nil
	}
	return ""
}

// EnumType matches values case-insensitively against its options.
type EnumType struct {
	spec Spec
}

func (t *EnumType) Spec() Spec {
	return t.spec.clone()
}

func (t *EnumType) With(opts ...ColumnOption) *EnumType {
	return &EnumType{spec: applyOptions(t.spec, opts)}
}

func (t *EnumType) Format(v any) any {
	return t.match(v)
}

func (t *EnumType) Prepare(v any) any {
	return t.match(v)
}

func (t *EnumType) Compare(a, b any) bool {
	return compareFormatted(t, a, b)
}

func (t *EnumType) match(v any) any {
	v = normalize(v)
	if v == nil {
		return t.null()
	}

	s := stringify(v)
	for _, opt := range t.spec.Options {
		if strings.EqualFold(opt, s) {
			return opt
		}
	}

	return t.null()
}

func (t *EnumType) null() any {
	if t.spec.Null {
		return nil
	}
	return ""
}

// IntegerType covers integer, float and fixed point columns. Size is the total
// display width and Precision the number of decimal places.
type IntegerType struct {
	spec Spec
}

func (t *IntegerType) Spec() Spec {
	return t.spec.clone()
}

func (t *IntegerType) With(opts ...ColumnOption) *IntegerType {
	return &IntegerType{spec: applyOptions(t.spec, opts)}
}

// Format renders the number the way the column would display it. A whole part
// wider than Size-Precision keeps only its rightmost digits.
func (t *IntegerType) Format(v any) any {
	v = normalize(v)
	if v == nil {
		return t.nullFormat()
	}

	s := t.spec
	whole, exact := wholeNumber(v)
	var frac string
	if !exact {
		f, ok := parseFloatPrefix(v)
		if !ok {
			return t.nullFormat()
		}

		if s.Precision > 0 {
			k := math.Pow(10, float64(s.Precision))
			whole, frac, _ = strings.Cut(formatFloat(roundHalfUp(f*k)/k), ".")
		} else {
			whole = formatFloat(roundHalfUp(f))
		}
	}

	if width := s.Size - s.Precision; s.Size > 0 && len(whole) > width {
		if width <= 0 {
			whole = ""
		} else {
			whole = whole[len(whole)-width:]
		}
	}

	if s.Precision == 0 {
		return whole
	}

	if len(frac) < s.Precision {
		frac += strings.Repeat("0", s.Precision-len(frac))
	}

	return whole + "." + frac
}

func (t *IntegerType) Prepare(v any) any {
	v = normalize(v)
	if v == nil {
		return t.nullPrepare()
	}

	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return uint64ToValue(uint64(n))
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return uint64ToValue(n)
	}

	if n, ok := parseInt(v); ok {
		return n
	}
	if n, ok := parseUint(v); ok {
		return n
	}

	f, ok := parseNumber(v)
	if !ok {
		return t.nullPrepare()
	}

	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}

	return f
}

func (t *IntegerType) Compare(a, b any) bool {
	return compareFormatted(t, a, b)
}

func (t *IntegerType) nullFormat() any {
	if t.spec.Null {
		return nil
	}
	return "0"
}

func (t *IntegerType) nullPrepare() any {
	if t.spec.Null {
		return nil
	}
	return int64(0)
}

// DateTimeType covers DATETIME, TIMESTAMP, DATE, TIME and YEAR. Format and
// Prepare are the same function since both must match the stored text form.
type DateTimeType struct {
	spec Spec
}

func (t *DateTimeType) Spec() Spec {
	return t.spec.clone()
}

func (t *DateTimeType) With(opts ...ColumnOption) *DateTimeType {
	return &DateTimeType{spec: applyOptions(t.spec, opts)}
}

func (t *DateTimeType) Format(v any) any {
	v = normalize(v)
	if v == nil {
		return t.null()
	}

	tm, ok := parseTime(v)
	if !ok {
		return t.null()
	}

	return strftime.Format(t.spec.Layout, tm)
}

func (t *DateTimeType) Prepare(v any) any {
	return t.Format(v)
}

func (t *DateTimeType) Compare(a, b any) bool {
	return compareFormatted(t, a, b)
}

func (t *DateTimeType) null() any {
	if t.spec.Null {
		return nil
	}
	return t.spec.Zero
}

// CustomType overrides some or all of the functions of a base type. Functions
// left nil fall back to the base.
type CustomType struct {
	Base        ColumnType
	FormatFunc  func(v any) any
	PrepareFunc func(v any) any
	CompareFunc func(a, b any) bool
}

func (c *CustomType) Spec() Spec {
	return c.Base.Spec()
}

func (c *CustomType) Format(v any) any {
	if c.FormatFunc != nil {
		return c.FormatFunc(v)
	}
	return c.Base.Format(v)
}

func (c *CustomType) Prepare(v any) any {
	if c.PrepareFunc != nil {
		return c.PrepareFunc(v)
	}
	return c.Base.Prepare(v)
}

func (c *CustomType) Compare(a, b any) bool {
	if c.CompareFunc != nil {
		return c.CompareFunc(a, b)
	}
	if c.FormatFunc != nil {
		return compareFormatted(c, a, b)
	}
	return c.Base.Compare(a, b)
}

func compareFormatted(t ColumnType, a, b any) bool {
	return strictEqual(t.Format(a), t.Format(b))
}

func text(name string, size int) *TextType {
	return &TextType{spec: Spec{Name: name, Null: true, Size: size}}
}

func optionalSize(t *TextType, size []int) *TextType {
	if len(size) > 0 {
		return t.With(Size(size[0]))
	}
	return t
}

func TEXT(size ...int) *TextType       { return optionalSize(text("TEXT", 65535), size) }
func BLOB(size ...int) *TextType       { return optionalSize(text("BLOB", 65535), size) }
func TINYTEXT(size ...int) *TextType   { return optionalSize(text("TINYTEXT", 255), size) }
func TINYBLOB(size ...int) *TextType   { return optionalSize(text("TINYBLOB", 255), size) }
func MEDIUMTEXT(size ...int) *TextType { return optionalSize(text("MEDIUMTEXT", 16777215), size) }
func MEDIUMBLOB(size ...int) *TextType { return optionalSize(text("MEDIUMBLOB", 16777215), size) }
func LONGTEXT(size ...int) *TextType   { return optionalSize(text("LONGTEXT", 4294967295), size) }
func LONGBLOB(size ...int) *TextType   { return optionalSize(text("LONGBLOB", 4294967295), size) }

// VARCHAR defaults to 255 characters.
func VARCHAR(size ...int) *TextType { return optionalSize(text("VARCHAR", 255), size) }
func CHAR(size ...int) *TextType    { return optionalSize(text("CHAR", 255), size) }

// UNKNOWN is used for any column type without a native definition. Values are
// handled as untruncated text.
func UNKNOWN(opts ...ColumnOption) *TextType {
	return text("UNKNOWN", 0).With(opts...)
}

func number(name string, size, precision int, args []int) *IntegerType {
	t := &IntegerType{spec: Spec{Name: name, Null: true, Size: size, Precision: precision}}
	if len(args) > 0 {
		t.spec.Size = args[0]
	}
	if len(args) > 1 {
		t.spec.Precision = args[1]
	}
	return t
}

// INT accepts an optional display width and precision, in that order.
func INT(args ...int) *IntegerType       { return number("INT", 11, 0, args) }
func INTEGER(args ...int) *IntegerType   { return number("INTEGER", 11, 0, args) }
func TINYINT(args ...int) *IntegerType   { return number("TINYINT", 1, 0, args) }
func SMALLINT(args ...int) *IntegerType  { return number("SMALLINT", 4, 0, args) }
func MEDIUMINT(args ...int) *IntegerType { return number("MEDIUMINT", 8, 0, args) }
func BIGINT(args ...int) *IntegerType    { return number("BIGINT", 20, 0, args) }
func BOOLEAN() *IntegerType              { return number("BOOLEAN", 1, 0, nil) }
func FLOAT(args ...int) *IntegerType     { return number("FLOAT", 10, 2, args) }
func DOUBLE(args ...int) *IntegerType    { return number("DOUBLE", 16, 4, args) }

// DECIMAL columns should declare their size and precision; the defaults are
// deliberately loose.
func DECIMAL(args ...int) *IntegerType { return number("DECIMAL", 0, 20, args) }

func ENUM(options ...string) *EnumType {
	return &EnumType{spec: Spec{Name: "ENUM", Null: true, Options: append([]string(nil), options...)}}
}

func DATETIME() *DateTimeType {
	return &DateTimeType{spec: Spec{Name: "DATETIME", Null: true, Layout: "%Y-%m-%d %H:%M:%S", Zero: "0000-00-00 00:00:00"}}
}

func TIMESTAMP() *DateTimeType {
	return &DateTimeType{spec: Spec{Name: "TIMESTAMP", Null: false, Layout: "%Y-%m-%d %H:%M:%S", Zero: "0000-00-00 00:00:00"}}
}

func DATE() *DateTimeType {
	return &DateTimeType{spec: Spec{Name: "DATE", Null: true, Layout: "%Y-%m-%d", Zero: "0000-00-00"}}
}

func TIME() *DateTimeType {
	return &DateTimeType{spec: Spec{Name: "TIME", Null: true, Layout: "%H:%M:%S", Zero: "00:00:00"}}
}

func YEAR() *DateTimeType {
	return &DateTimeType{spec: Spec{Name: "YEAR", Null: true, Layout: "%Y", Zero: "0000"}}
}

var typeRegistry = map[string]func(opts ...ColumnOption) ColumnType{
	"TEXT":       func(o ...ColumnOption) ColumnType { return TEXT().With(o...) },
	"BLOB":       func(o ...ColumnOption) ColumnType { return BLOB().With(o...) },
	"TINYTEXT":   func(o ...ColumnOption) ColumnType { return TINYTEXT().With(o...) },
	"TINYBLOB":   func(o ...ColumnOption) ColumnType { return TINYBLOB().With(o...) },
	"MEDIUMTEXT": func(o ...ColumnOption) ColumnType { return MEDIUMTEXT().With(o...) },
	"MEDIUMBLOB": func(o ...ColumnOption) ColumnType { return MEDIUMBLOB().With(o...) },
	"LONGTEXT":   func(o ...ColumnOption) ColumnType { return LONGTEXT().With(o...) },
	"LONGBLOB":   func(o ...ColumnOption) ColumnType { return LONGBLOB().With(o...) },
	"VARCHAR":    func(o ...ColumnOption) ColumnType { return VARCHAR().With(o...) },
	"CHAR":       func(o ...ColumnOption) ColumnType { return CHAR().With(o...) },
	"INT":        func(o ...ColumnOption) ColumnType { return INT().With(o...) },
	"INTEGER":    func(o ...ColumnOption) ColumnType { return INTEGER().With(o...) },
	"TINYINT":    func(o ...ColumnOption) ColumnType { return TINYINT().With(o...) },
	"SMALLINT":   func(o ...ColumnOption) ColumnType { return SMALLINT().With(o...) },
	"MEDIUMINT":  func(o ...ColumnOption) ColumnType { return MEDIUMINT().With(o...) },
	"BIGINT":     func(o ...ColumnOption) ColumnType { return BIGINT().With(o...) },
	"BOOLEAN":    func(o ...ColumnOption) ColumnType { return BOOLEAN().With(o...) },
	"BOOL":       func(o ...ColumnOption) ColumnType { return BOOLEAN().With(o...) },
	"FLOAT":      func(o ...ColumnOption) ColumnType { return FLOAT().With(o...) },
	"DOUBLE":     func(o ...ColumnOption) ColumnType { return DOUBLE().With(o...) },
	"DECIMAL":    func(o ...ColumnOption) ColumnType { return DECIMAL().With(o...) },
	"ENUM":       func(o ...ColumnOption) ColumnType { return ENUM().With(o...) },
	"DATETIME":   func(o ...ColumnOption) ColumnType { return DATETIME().With(o...) },
	"TIMESTAMP":  func(o ...ColumnOption) ColumnType { return TIMESTAMP().With(o...) },
	"DATE":       func(o ...ColumnOption) ColumnType { return DATE().With(o...) },
	"TIME":       func(o ...ColumnOption) ColumnType { return TIME().With(o...) },
	"YEAR":       func(o ...ColumnOption) ColumnType { return YEAR().With(o...) },
}

// TypeByName returns the named column type specialized with opts.
func TypeByName(name string, opts ...ColumnOption) (ColumnType, bool) {
	fn, ok := typeRegistry[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return nil, false
	}
	return fn(opts...), true
}

func normalize(v any) any {
	if v == nil {
		return nil
	}

	if valuer, ok := v.(driver.Valuer); ok {
		val, err := valuer.Value()
		if err != nil {
			return nil
		}
		v = val
	}

	switch b := v.(type) {
	case []byte:
		return string(b)
	case *string:
		if b == nil {
			return nil
		}
		return *b
	case *time.Time:
		if b == nil {
			return nil
		}
		return *b
	}

	return v
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case float64:
		return formatFloat(s)
	case float32:
		return formatFloat(float64(s))
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	case time.Time:
		return s.Format("2006-01-02 15:04:05")
	}

	return strings.TrimSpace(reflectString(v))
}

func reflectString(v any) string {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return formatFloat(rv.Float())
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	}

	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}

	return ""
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func roundHalfUp(f float64) float64 {
	return math.Floor(f + 0.5)
}

func uint64ToValue(n uint64) any {
	if n > math.MaxInt64 {
		return n
	}
	return int64(n)
}

var floatPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// parseFloatPrefix reads the leading number of v, ignoring trailing text.
func parseFloatPrefix(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		m := floatPrefix.FindString(strings.TrimSpace(s))
		if m == "" {
			return 0, false
		}
		return finite(strconv.ParseFloat(m, 64))
	}
	return parseNumber(v)
}

// parseNumber reads v as a number. Strings must be entirely numeric; blank
// strings are zero.
func parseNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, true
		}
		if !floatPrefix.MatchString(s) || floatPrefix.FindString(s) != s {
			return 0, false
		}
		return finite(strconv.ParseFloat(s, 64))
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case time.Time:
		return float64(n.UnixMilli()), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return finite(rv.Float(), nil)
	}

	return 0, false
}

// parseInt reads v as an exact signed integer.
func parseInt(v any) (int64, bool) {
	if s, ok := v.(string); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return n, err == nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u := rv.Uint(); u <= math.MaxInt64 {
			return int64(u), true
		}
	}

	return 0, false
}

// parseUint reads v as an exact unsigned integer.
func parseUint(v any) (uint64, bool) {
	if s, ok := v.(string); ok {
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		return n, err == nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n := rv.Int(); n >= 0 {
			return uint64(n), true
		}
	}

	return 0, false
}

// wholeNumber renders an exact integer value in base 10.
func wholeNumber(v any) (string, bool) {
	if n, ok := parseInt(v); ok {
		return strconv.FormatInt(n, 10), true
	}
	if n, ok := parseUint(v); ok {
		return strconv.FormatUint(n, 10), true
	}
	return "", false
}

func finite(f float64, err error) (float64, bool) {
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006",
	"2006",
}

func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		if strings.EqualFold(s, "now") {
			return time.Now(), true
		}
		for _, layout := range timeLayouts {
			if tm, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return tm, true
			}
		}
		return time.Time{}, false
	}

	if ms, ok := parseNumber(v); ok {
		return time.UnixMilli(int64(ms)), true
	}

	return time.Time{}, false
}

// strictEqual reports identity-like equality without panicking on
// uncomparable values.
func strictEqual(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta == nil {
		return true
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
