package quell

import (
	"testing"
	"time"
)

func TestNumberFormat(t *testing.T) {
	tests := []struct {
		name string
		typ  ColumnType
		in   any
		want any
	}{
		{"float truncates whole part", FLOAT(10, 2), 1211111111111, "11111111.00"},
		{"float without whole width", FLOAT(5, 5), 1211111111.111, ".11100"},
		{"double defaults", DOUBLE(), 211111111111, "211111111111.0000"},
		{"float pads fraction", FLOAT(), 1005, "1005.00"},
		{"float rounds half up", FLOAT(), 0.125, "0.13"},
		{"float from string prefix", FLOAT(), "12.25abc", "12.25"},
		{"int rounds", INT(), 12.5, "13"},
		{"int from string", INT(), "42", "42"},
		{"int truncates to size", INT(3), 123456, "456"},
		{"int non numeric nullable", INT(), "a", nil},
		{"int non numeric not null", INT().With(NotNull()), "a", "0"},
		{"int nil not null", INT().With(NotNull()), nil, "0"},
		{"decimal explicit", DECIMAL(8, 4), "3.14159", "3.1416"},
		{"bytes are text", INT(), []byte("7"), "7"},
		{"bigint keeps precision", BIGINT(), "9007199254740993", "9007199254740993"},
		{"bigint unsigned max", BIGINT(), uint64(18446744073709551615), "18446744073709551615"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.Format(tt.in); got != tt.want {
				t.Errorf("Format(%v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNumberPrepare(t *testing.T) {
	tests := []struct {
		name string
		typ  ColumnType
		in   any
		want any
	}{
		{"int keeps integers", INT(), 12, int64(12)},
		{"int from string", INT(), "12", int64(12)},
		{"blank string is zero", INT(), "", int64(0)},
		{"float keeps fraction", FLOAT(), "1.5", 1.5},
		{"integral float", FLOAT(), 3.0, int64(3)},
		{"bool", TINYINT(), true, int64(1)},
		{"non numeric nullable", INT(), "12abc", nil},
		{"non numeric not null", INT().With(NotNull()), "x", int64(0)},
		{"nil nullable", INT(), nil, nil},
		{"large integer string", BIGINT(), "9007199254740993", int64(9007199254740993)},
		{"negative integer string", BIGINT(), " -42 ", int64(-42)},
		{"unsigned integer string", BIGINT(), "18446744073709551615", uint64(18446744073709551615)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.Prepare(tt.in); got != tt.want {
				t.Errorf("Prepare(%v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTextType(t *testing.T) {
	tests := []struct {
		name string
		typ  ColumnType
		in   any
		want any
	}{
		{"truncates to size", VARCHAR(5), "abcdefg", "abcde"},
		{"counts runes", CHAR(2), "héllo", "hé"},
		{"stringifies numbers", TEXT(), 12, "12"},
		{"stringifies floats", TEXT(), 1.5, "1.5"},
		{"nil nullable", TEXT(), nil, nil},
		{"nil not null", TEXT().With(NotNull()), nil, ""},
		{"unknown is untruncated", UNKNOWN(), "anything at all", "anything at all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.Format(tt.in); got != tt.want {
				t.Errorf("Format(%v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}

	if got := VARCHAR(3).Prepare("abcdef"); got != "abcdef" {
		t.Errorf("Prepare should not truncate, got %#v", got)
	}
}

func TestEnumType(t *testing.T) {
	typ := ENUM("ABC", "DEF")

	if got := typ.Format("def"); got != "DEF" {
		t.Errorf("Format(def) = %#v, want DEF", got)
	}
	if got := typ.Prepare("abc"); got != "ABC" {
		t.Errorf("Prepare(abc) = %#v, want ABC", got)
	}
	if got := typ.Format("xyz"); got != nil {
		t.Errorf("Format(xyz) = %#v, want nil", got)
	}
	if got := typ.With(NotNull()).Format("xyz"); got != "" {
		t.Errorf("not null Format(xyz) = %#v, want empty string", got)
	}
	if !typ.Compare("abc", "ABC") {
		t.Error("Compare should match options case-insensitively")
	}
}

func TestDateTimeType(t *testing.T) {
	tm := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)

	tests := []struct {
		name string
		typ  ColumnType
		in   any
		want any
	}{
		{"datetime from time", DATETIME(), tm, "2021-03-04 05:06:07"},
		{"date from time", DATE(), tm, "2021-03-04"},
		{"time from time", TIME(), tm, "05:06:07"},
		{"year from time", YEAR(), tm, "2021"},
		{"datetime from string", DATETIME(), "2021-03-04 05:06:07", "2021-03-04 05:06:07"},
		{"date from datetime string", DATE(), "2021-03-04 05:06:07", "2021-03-04"},
		{"invalid nullable", DATETIME(), "hello", nil},
		{"invalid not null", DATETIME().With(NotNull()), "hello", "0000-00-00 00:00:00"},
		{"timestamp is not null", TIMESTAMP(), nil, "0000-00-00 00:00:00"},
		{"date zero", DATE().With(NotNull()), "nope", "0000-00-00"},
		{"custom layout", DATE().With(Layout("%d/%m/%Y")), tm, "04/03/2021"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.Format(tt.in); got != tt.want {
				t.Errorf("Format(%v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}

	if got := DATETIME().Prepare(tm); got != "2021-03-04 05:06:07" {
		t.Errorf("Prepare = %#v, want formatted datetime", got)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		typ  ColumnType
		a, b any
		want bool
	}{
		{"int string and number", INT(), "5", 5, true},
		{"int differs", INT(), 5, 6, false},
		{"text truncated equal", VARCHAR(3), "abcd", "abce", true},
		{"text differs", TEXT(), "a", "b", false},
		{"datetime string and time", DATETIME(), "2021-03-04 05:06:07", time.Date(2021, 3, 4, 5, 6, 7, 0, time.Local), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCustomType(t *testing.T) {
	upper := &CustomType{
		Base: VARCHAR(10),
		FormatFunc: func(v any) any {
			return "<" + stringify(v) + ">"
		},
	}

	if got := upper.Format("x"); got != "<x>" {
		t.Errorf("Format = %#v, want <x>", got)
	}
	if got := upper.Prepare(5); got != "5" {
		t.Errorf("Prepare should fall back to the base, got %#v", got)
	}
	if upper.Compare("a", "b") {
		t.Error("Compare should use the custom format")
	}
	if got := upper.Spec().Name; got != "VARCHAR" {
		t.Errorf("Spec().Name = %q, want VARCHAR", got)
	}
}

func TestWithDoesNotMutateBase(t *testing.T) {
	base := VARCHAR()
	_ = base.With(Size(10), NotNull())

	spec := base.Spec()
	if spec.Size != 255 || !spec.Null {
		t.Errorf("base spec changed: %+v", spec)
	}
}

func TestTypeByName(t *testing.T) {
	ct, ok := TypeByName("varchar", Size(20))
	if !ok {
		t.Fatal("varchar not registered")
	}
	if spec := ct.Spec(); spec.Name != "VARCHAR" || spec.Size != 20 {
		t.Errorf("spec = %+v", spec)
	}

	if _, ok := TypeByName("geometry"); ok {
		t.Error("geometry should not be registered")
	}
}
