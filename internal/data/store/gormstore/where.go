package gormstore

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm/clause"

	"github.com/yungbote/lms-backend/internal/data/store"
)

// whereExpr translates a logical Where into a parameterized SQL expression.
// A nil expression means "no filter".
func whereExpr(w store.Where) (clause.Expression, error) {
	sql, vars, err := buildWhere(w)
	if err != nil {
		return nil, err
	}
	if sql == "" {
		return nil, nil
	}
	return clause.Expr{SQL: sql, Vars: vars}, nil
}

func buildWhere(w store.Where) (string, []any, error) {
	conds, branches, err := w.Split()
	if err != nil {
		return "", nil, err
	}
	parts := make([]string, 0, len(conds)+1)
	vars := []any{}
	for _, c := range conds {
		s, v := condSQL(c)
		parts = append(parts, s)
		vars = append(vars, v...)
	}
	if len(branches) > 0 {
		ors := make([]string, 0, len(branches))
		orVars := []any{}
		matchAll := false
		for _, b := range branches {
			s, v, err := buildWhere(b)
			if err != nil {
				return "", nil, err
			}
			if s == "" {
				// an empty branch matches every row
				matchAll = true
				break
			}
			ors = append(ors, "("+s+")")
			orVars = append(orVars, v...)
		}
		if !matchAll {
			parts = append(parts, "("+strings.Join(ors, " OR ")+")")
			vars = append(vars, orVars...)
		}
	}
	return strings.Join(parts, " AND "), vars, nil
}

func condSQL(c store.Condition) (string, []any) {
	col := quoteIdent(store.ToSnake(c.Field))
	switch c.Kind {
	case store.CondContains:
		return col + " ILIKE ?", []any{"%" + escapeLike(fmt.Sprint(c.Value)) + "%"}
	case store.CondIn:
		if len(c.Values) == 0 {
			return "1 = 0", nil
		}
		return col + " IN ?", []any{c.Values}
	case store.CondHasSome:
		return col + " && ?::text[]", []any{toStringArray(c.Values)}
	default:
		if c.Value == nil {
			return col + " IS NULL", nil
		}
		return col + " = ?", []any{columnValue(c.Value)}
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func toStringArray(values []any) pq.StringArray {
	out := make(pq.StringArray, 0, len(values))
	for _, v := range values {
		out = append(out, store.GroupKey(v))
	}
	return out
}

// columnValue wraps plain string slices so they bind as text[].
func columnValue(v any) any {
	switch t := v.(type) {
	case []string:
		return pq.StringArray(t)
	default:
		return v
	}
}

func columnPatch(p store.Patch) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[store.ToSnake(k)] = columnValue(v)
	}
	return out
}

func columns(fields []string) []clause.Column {
	out := make([]clause.Column, 0, len(fields))
	for _, f := range fields {
		out = append(out, clause.Column{Name: store.ToSnake(f)})
	}
	return out
}

func orderBy(orders []store.Order) clause.Expression {
	if len(orders) == 0 {
		return nil
	}
	cols := make([]clause.OrderByColumn, 0, len(orders))
	for _, o := range orders {
		cols = append(cols, clause.OrderByColumn{
			Column: clause.Column{Name: store.ToSnake(o.Field)},
			Desc:   o.Desc,
		})
	}
	return clause.OrderBy{Columns: cols}
}
