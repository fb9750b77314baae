package quell

import (
	"reflect"
	"testing"

	"gopkg.in/guregu/null.v4"
)

func TestParseColumnType(t *testing.T) {
	tests := []struct {
		typ       string
		nullable  bool
		name      string
		size      int
		precision int
		unsigned  bool
		options   []string
	}{
		{"varchar(255)", true, "VARCHAR", 255, 0, false, nil},
		{"char(3)", false, "CHAR", 3, 0, false, nil},
		{"int(11) unsigned", false, "INT", 11, 0, true, nil},
		{"bigint(20)", true, "BIGINT", 20, 0, false, nil},
		{"tinyint(1)", true, "TINYINT", 1, 0, false, nil},
		{"decimal(8,4)", true, "DECIMAL", 8, 4, false, nil},
		{"double(16,4) unsigned", true, "DOUBLE", 16, 4, true, nil},
		{"enum('a','B')", true, "ENUM", 0, 0, false, []string{"a", "B"}},
		{"ENUM('Yes','No')", false, "ENUM", 0, 0, false, []string{"Yes", "No"}},
		{"enum('a,b', 'c')", true, "ENUM", 0, 0, false, []string{"a,b", "c"}},
		{"enum('it''s','x')", true, "ENUM", 0, 0, false, []string{"it's", "x"}},
		{"datetime", true, "DATETIME", 0, 0, false, nil},
		{"TIMESTAMP", false, "TIMESTAMP", 0, 0, false, nil},
		{"date", true, "DATE", 0, 0, false, nil},
		{"text", true, "TEXT", 65535, 0, false, nil},
		{"int", true, "INT", 11, 0, false, nil},
		{"geometry", true, "GEOMETRY", 0, 0, false, nil},
		{"set('x','y')", true, "SET", 0, 0, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			spec := ParseColumnType(tt.typ, tt.nullable).Spec()

			if spec.Name != tt.name {
				t.Errorf("Name = %q, want %q", spec.Name, tt.name)
			}
			if spec.Null != tt.nullable {
				t.Errorf("Null = %v, want %v", spec.Null, tt.nullable)
			}
			if spec.Size != tt.size {
				t.Errorf("Size = %d, want %d", spec.Size, tt.size)
			}
			if spec.Precision != tt.precision {
				t.Errorf("Precision = %d, want %d", spec.Precision, tt.precision)
			}
			if spec.Unsigned != tt.unsigned {
				t.Errorf("Unsigned = %v, want %v", spec.Unsigned, tt.unsigned)
			}
			if !reflect.DeepEqual(spec.Options, tt.options) {
				t.Errorf("Options = %v, want %v", spec.Options, tt.options)
			}
		})
	}
}

func TestParseDescribe(t *testing.T) {
	rows := []DescribeRow{
		{Field: "id", Type: "int(11) unsigned", Null: "NO", Key: "PRI", Extra: "auto_increment"},
		{Field: "tenant", Type: "varchar(16)", Null: "NO", Key: "PRI"},
		{Field: "name", Type: "varchar(64)", Null: "YES", Default: null.StringFrom("anon")},
		{Field: "status", Type: "enum('on','off')", Null: "NO", Key: "MUL"},
	}

	schema := ParseDescribe(rows)

	if !schema.Loaded {
		t.Error("parsed schema should be loaded")
	}
	if want := []string{"id", "tenant"}; !reflect.DeepEqual(schema.PrimaryKeys, want) {
		t.Errorf("PrimaryKeys = %v, want %v", schema.PrimaryKeys, want)
	}
	if schema.AutoIncrement != "id" {
		t.Errorf("AutoIncrement = %q, want id", schema.AutoIncrement)
	}
	if want := []string{"id", "name", "status", "tenant"}; !reflect.DeepEqual(schema.ColumnNames(), want) {
		t.Errorf("ColumnNames = %v, want %v", schema.ColumnNames(), want)
	}

	ct, ok := schema.Column("name")
	if !ok {
		t.Fatal("name column missing")
	}
	if spec := ct.Spec(); !spec.Null || spec.Size != 64 {
		t.Errorf("name spec = %+v", spec)
	}
}

func TestSchemaValid(t *testing.T) {
	tests := []struct {
		name   string
		schema *Schema
		want   bool
	}{
		{"nil", nil, false},
		{"empty", &Schema{}, false},
		{"loaded without keys", &Schema{Loaded: true}, true},
		{"declared", &Schema{Columns: map[string]ColumnType{"id": INT()}, PrimaryKeys: []string{"id"}}, true},
		{"columns only", &Schema{Columns: map[string]ColumnType{"id": INT()}}, false},
		{"keys only", &Schema{PrimaryKeys: []string{"id"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.schema.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSchemaClone(t *testing.T) {
	s := &Schema{Columns: map[string]ColumnType{"id": INT()}, PrimaryKeys: []string{"id"}}
	c := s.Clone()
	c.Columns["name"] = TEXT()
	c.PrimaryKeys[0] = "other"

	if _, ok := s.Columns["name"]; ok {
		t.Error("clone shares the column map")
	}
	if s.PrimaryKeys[0] != "id" {
		t.Error("clone shares the primary key slice")
	}
}
