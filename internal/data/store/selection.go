package store

import (
	"sort"
	"strings"
)

// BuildSelection returns the comma-separated column projection for the fields
// set to true. Non-boolean entries (relation selectors) are left out. An empty
// result means "all columns".
func BuildSelection(sel map[string]any) string {
	return strings.Join(SelectedColumns(sel), ",")
}

func SelectedColumns(sel map[string]any) []string {
	if len(sel) == 0 {
		return nil
	}
	cols := make([]string, 0, len(sel))
	for field, v := range sel {
		if on, ok := v.(bool); ok && on {
			cols = append(cols, ToSnake(field))
		}
	}
	sort.Strings(cols)
	return cols
}

// Range maps take/skip to an inclusive [from, to] row range. bounded is false
// when take is zero, in which case only the offset applies.
func Range(take, skip int) (from, to int, bounded bool) {
	if skip < 0 {
		skip = 0
	}
	if take <= 0 {
		return skip, 0, false
	}
	return skip, skip + take - 1, true
}
