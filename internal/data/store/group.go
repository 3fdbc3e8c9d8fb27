package store

import "fmt"

// CountBy counts decoded rows per value of a logical field. Rows without the
// field are skipped so no zero or null bucket is synthesized.
func CountBy(rows []map[string]any, field string) map[string]int64 {
	out := map[string]int64{}
	for _, row := range rows {
		v, ok := row[field]
		if !ok || v == nil {
			continue
		}
		out[GroupKey(v)]++
	}
	return out
}

func GroupKey(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
