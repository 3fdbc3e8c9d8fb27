package store

import (
	"strings"
	"unicode"
)

// ToSnake converts a logical camelCase name to its snake_case column name.
// Runs of capitals are treated as one word: "pdfURL" -> "pdf_url".
func ToSnake(s string) string {
	if s == "" {
		return s
	}
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range rs {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := rs[i-1]
				nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
				if prev != '_' && (unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower)) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ToCamel converts a snake_case column name to its logical camelCase name.
func ToCamel(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}
	parts := strings.Split(s, "_")
	var b strings.Builder
	b.Grow(len(s))
	first := true
	for _, p := range parts {
		if p == "" {
			continue
		}
		if first {
			b.WriteString(p)
			first = false
			continue
		}
		rs := []rune(p)
		rs[0] = unicode.ToUpper(rs[0])
		b.WriteString(string(rs))
	}
	if first {
		return s
	}
	return b.String()
}

// KeysToSnake rewrites every map key in v, recursively through nested maps
// and slices. Non-map leaves, including nil, are returned unchanged.
func KeysToSnake(v any) any { return convertKeys(v, ToSnake) }

// KeysToCamel is the inverse of KeysToSnake.
func KeysToCamel(v any) any { return convertKeys(v, ToCamel) }

func convertKeys(v any, conv func(string) string) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[conv(k)] = convertKeys(val, conv)
		}
		return out
	case Where:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[conv(k)] = convertKeys(val, conv)
		}
		return out
	case Patch:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[conv(k)] = convertKeys(val, conv)
		}
		return out
	case []map[string]any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			out = append(out, convertKeys(item, conv))
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			out = append(out, convertKeys(item, conv))
		}
		return out
	default:
		return v
	}
}
