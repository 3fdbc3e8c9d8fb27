package reststore

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/yungbote/lms-backend/internal/data/store"
)

// filterParams renders a Where as PostgREST horizontal filters. Sibling
// conditions become separate params (ANDed by PostgREST); OR branches become a
// single or=(...) param.
func filterParams(w store.Where) (url.Values, error) {
	conds, branches, err := w.Split()
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	for _, c := range conds {
		params.Add(store.ToSnake(c.Field), operator(c, false))
	}
	if len(branches) == 0 {
		return params, nil
	}
	ors := make([]string, 0, len(branches))
	for _, b := range branches {
		bc, nested, err := b.Split()
		if err != nil {
			return nil, err
		}
		if len(nested) > 0 {
			return nil, fmt.Errorf("reststore: nested OR is not supported")
		}
		if len(bc) == 0 {
			// an empty branch matches every row
			return params, nil
		}
		if len(bc) == 1 {
			ors = append(ors, store.ToSnake(bc[0].Field)+"."+operator(bc[0], true))
			continue
		}
		ands := make([]string, 0, len(bc))
		for _, c := range bc {
			ands = append(ands, store.ToSnake(c.Field)+"."+operator(c, true))
		}
		ors = append(ors, "and("+strings.Join(ands, ",")+")")
	}
	params.Set("or", "("+strings.Join(ors, ",")+")")
	return params, nil
}

// operator renders the right-hand side of a filter. Scalars are only quoted
// inside logic trees; list elements are always quoted when needed.
func operator(c store.Condition, inLogic bool) string {
	scalar := func(s string) string {
		if inLogic {
			return quote(s)
		}
		return s
	}
	switch c.Kind {
	case store.CondContains:
		return "ilike." + scalar("*"+fmt.Sprint(c.Value)+"*")
	case store.CondIn:
		return "in.(" + joinValues(c.Values) + ")"
	case store.CondHasSome:
		return "ov.{" + joinValues(c.Values) + "}"
	default:
		if c.Value == nil {
			return "is.null"
		}
		return "eq." + scalar(literal(c.Value))
	}
}

func joinValues(values []any) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, quote(literal(v)))
	}
	return strings.Join(parts, ",")
}

func literal(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if t == nil {
			return "null"
		}
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return store.GroupKey(v)
	}
}

// quote wraps values containing PostgREST reserved characters in double quotes.
func quote(s string) string {
	if !strings.ContainsAny(s, `,.:()"\{} `) {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

func orderParam(orders []store.Order) string {
	if len(orders) == 0 {
		return ""
	}
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		dir := "asc"
		if o.Desc {
			dir = "desc"
		}
		parts = append(parts, store.ToSnake(o.Field)+"."+dir)
	}
	return strings.Join(parts, ",")
}

// rangeHeader renders take/skip as an HTTP Range value; "" means unbounded.
func rangeHeader(take, skip int) string {
	from, to, bounded := store.Range(take, skip)
	if bounded {
		return fmt.Sprintf("%d-%d", from, to)
	}
	if from > 0 {
		return fmt.Sprintf("%d-", from)
	}
	return ""
}

// parseContentRange extracts the total from "0-24/312" or "*/0".
func parseContentRange(v string) (int64, error) {
	i := strings.LastIndex(v, "/")
	if i < 0 || i == len(v)-1 {
		return 0, fmt.Errorf("reststore: malformed Content-Range %q", v)
	}
	total := v[i+1:]
	if total == "*" {
		return 0, fmt.Errorf("reststore: Content-Range %q has no exact count", v)
	}
	var n int64
	if _, err := fmt.Sscan(total, &n); err != nil {
		return 0, fmt.Errorf("reststore: malformed Content-Range %q: %w", v, err)
	}
	return n, nil
}
