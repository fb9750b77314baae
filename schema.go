package quell

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/guregu/null.v4"
)

// Schema describes the columns, primary keys and autoincrement column of a table.
type Schema struct {
	Columns       map[string]ColumnType
	PrimaryKeys   []string
	AutoIncrement string
	Loaded        bool
}

// Valid reports whether the schema can be used without fetching it from the
// database.
func (s *Schema) Valid() bool {
	if s == nil {
		return false
	}
	if s.Loaded {
		return true
	}
	return len(s.PrimaryKeys) > 0 && len(s.Columns) > 0
}

func (s *Schema) Column(name string) (ColumnType, bool) {
	if s == nil || s.Columns == nil {
		return nil, false
	}
	ct, ok := s.Columns[name]
	return ct, ok && ct != nil
}

func (s *Schema) HasPrimaryKeys() bool {
	return s != nil && len(s.PrimaryKeys) > 0
}

// ColumnNames returns the column names in sorted order.
func (s *Schema) ColumnNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Columns))
	for name := range s.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	cols := make(map[string]ColumnType, len(s.Columns))
	for k, v := range s.Columns {
		cols[k] = v
	}
	return &Schema{
		Columns:       cols,
		PrimaryKeys:   append([]string(nil), s.PrimaryKeys...),
		AutoIncrement: s.AutoIncrement,
		Loaded:        s.Loaded,
	}
}

// DescribeRow is one row of a DESCRIBE <table> result.
type DescribeRow struct {
	Field   string      `db:"Field" yaml:"field"`
	Type    string      `db:"Type" yaml:"type"`
	Null    string      `db:"Null" yaml:"null"`
	Key     string      `db:"Key" yaml:"key"`
	Default null.String `db:"Default" yaml:"default"`
	Extra   string      `db:"Extra" yaml:"extra"`
}

func (r DescribeRow) Nullable() bool {
	return strings.EqualFold(r.Null, "YES")
}

func (r DescribeRow) IsPrimary() bool {
	return strings.EqualFold(r.Key, "PRI")
}

func (r DescribeRow) IsAutoIncrement() bool {
	return strings.Contains(strings.ToLower(r.Extra), "auto_increment")
}

// ParseDescribe builds a loaded schema from DESCRIBE rows. Primary keys keep
// the row order.
func ParseDescribe(rows []DescribeRow) *Schema {
	schema := &Schema{
		Columns: make(map[string]ColumnType, len(rows)),
		Loaded:  true,
	}

	for _, row := range rows {
		schema.Columns[row.Field] = ParseColumnType(row.Type, row.Nullable())

		if row.IsPrimary() {
			schema.PrimaryKeys = append(schema.PrimaryKeys, row.Field)
		}

		if row.IsAutoIncrement() && schema.AutoIncrement == "" {
			schema.AutoIncrement = row.Field
		}
	}

	return schema
}

var (
	reDecimal = regexp.MustCompile(`^(decimal|float|double)\((\d+),\s*(\d+)\)`)
	reInteger = regexp.MustCompile(`^((?:big|medium|small|tiny)?int(?:eger)?)\((\d+)\)`)
	reEnum    = regexp.MustCompile(`(?i)^enum\((.*)\)`)
	reChar    = regexp.MustCompile(`^((?:var)?char)\((\d+)\)`)
)

// ParseColumnType interprets a column type string such as "varchar(255)",
// "int(11) unsigned" or "enum('a','b')".
func ParseColumnType(typ string, nullable bool) ColumnType {
	raw := strings.TrimSpace(typ)
	typ = strings.ToLower(raw)
	unsigned := strings.Contains(typ, "unsigned")
	base := []ColumnOption{Null(nullable)}
	if unsigned {
		base = append(base, Unsigned())
	}

	switch typ {
	case "date", "datetime", "timestamp", "time", "year":
		ct, _ := TypeByName(typ, base...)
		return ct
	}

	if m := reDecimal.FindStringSubmatch(typ); m != nil {
		size, _ := strconv.Atoi(m[2])
		precision, _ := strconv.Atoi(m[3])
		ct, _ := TypeByName(m[1], append(base, Size(size), Precision(precision))...)
		return ct
	}

	if m := reInteger.FindStringSubmatch(typ); m != nil {
		size, _ := strconv.Atoi(m[2])
		ct, _ := TypeByName(m[1], append(base, Size(size))...)
		return ct
	}

	if m := reEnum.FindStringSubmatch(raw); m != nil {
		return ENUM(parseEnumOptions(m[1])...).With(base...)
	}

	if m := reChar.FindStringSubmatch(typ); m != nil {
		size, _ := strconv.Atoi(m[2])
		ct, _ := TypeByName(m[1], append(base, Size(size))...)
		return ct
	}

	name := strings.ToUpper(strings.TrimSpace(strings.SplitN(typ, "(", 2)[0]))
	if fields := strings.Fields(name); len(fields) > 0 {
		name = fields[0]
	}
	if ct, ok := TypeByName(name, base...); ok {
		return ct
	}

	return UNKNOWN(append(base, Kind(name))...)
}

// parseEnumOptions splits a quoted option list, keeping the declared casing.
// Commas inside quotes belong to the option and a doubled quote is a literal.
func parseEnumOptions(list string) []string {
	var (
		options []string
		opt     strings.Builder
		quote   byte
	)

	for i := 0; i < len(list); i++ {
		c := list[i]
		switch {
		case quote != 0 && c == quote:
			if i+1 < len(list) && list[i+1] == quote {
				opt.WriteByte(c)
				i++
				continue
			}
			quote = 0
		case quote != 0:
			opt.WriteByte(c)
		case c == '\'' || c == '"':
			quote = c
		case c == ',':
			options = append(options, opt.String())
			opt.Reset()
		case c != ' ' && c != '\t':
			opt.WriteByte(c)
		}
	}

	return append(options, opt.String())
}
