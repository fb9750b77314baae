package quell

import (
	"fmt"
	"strings"
)

// Condition is a lookup value that matches something other than equality.
// Conditions are passed to the builder as is, without column preparation.
type Condition interface {
	clause(column string) (string, []any)
}

type nullCondition bool

func (n nullCondition) clause(column string) (string, []any) {
	if n {
		return column + " IS NULL", nil
	}
	return column + " IS NOT NULL", nil
}

// FilterNull matches NULL columns, or non NULL ones when isNull is false.
func FilterNull(isNull bool) Condition {
	return nullCondition(isNull)
}

type containsCondition string

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func (c containsCondition) clause(column string) (string, []any) {
	return column + " LIKE ? ESCAPE '!'", []any{fmt.Sprintf("%%%s%%", likeEscaper.Replace(string(c)))}
}

// FilterContains matches text columns containing s. Wildcards in s match
// literally.
func FilterContains(s string) Condition {
	return containsCondition(s)
}

// sortClause renders fields as an ORDER BY list. A leading "-" sorts
// descending and a leading "+" ascending.
func sortClause(fields []string, quote func(string) string) string {
	var srt []string
	for _, s := range fields {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}

		dir := "ASC"
		switch s[0] {
		case '-':
			dir = "DESC"
			s = s[1:]
		case '+':
			s = s[1:]
		}

		srt = append(srt, fmt.Sprintf("%s %s", quote(s), dir))
	}

	return strings.Join(srt, ", ")
}
