package quell

import (
	"strconv"
	"strings"
)

// columnTag is a parsed `db:"name,auto key size=32"` struct tag. Flags may be
// spelled as key=true or key=false.
type columnTag struct {
	Name      string
	Size      int
	Auto      bool
	Key       bool
	AllowNull bool
}

func parseColumnTag(value string) columnTag {
	name, rest, _ := strings.Cut(value, ",")
	tag := columnTag{Name: strings.TrimSpace(name)}

	for _, part := range strings.Fields(rest) {
		key, val, hasVal := strings.Cut(part, "=")
		on := !hasVal || strings.EqualFold(strings.TrimSpace(val), "true")

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "auto":
			tag.Auto = on
		case "key":
			tag.Key = on
		case "allownull":
			tag.AllowNull = on
		case "size":
			tag.Size, _ = strconv.Atoi(val)
		}
	}

	if tag.Key {
		tag.AllowNull = false
	}

	return tag
}

func Map[In any, Out any](list []In, mapFn func(val In) Out) []Out {
	var newSlice = make([]Out, len(list))
	for i, val := range list {
		newSlice[i] = mapFn(val)
	}

	return newSlice
}

func SliceContains[T comparable](list []T, val T) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}

	return false
}

func Filter[T any](slice []T, filterFunc func(val T) bool) []T {
	var newSlice []T
	for i, val := range slice {
		if filterFunc(val) {
			newSlice = append(newSlice, slice[i])
		}
	}

	return newSlice
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
