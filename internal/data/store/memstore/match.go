package memstore

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/yungbote/lms-backend/internal/data/store"
)

// normalize gives a value the same shape a stored row has after its JSON
// round trip, so equality compares like with like.
func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func matches(row map[string]any, w store.Where) (bool, error) {
	conds, branches, err := w.Split()
	if err != nil {
		return false, err
	}
	for _, c := range conds {
		if !matchCond(row, c) {
			return false, nil
		}
	}
	if len(branches) == 0 {
		return true, nil
	}
	for _, b := range branches {
		ok, err := matches(row, b)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func matchCond(row map[string]any, c store.Condition) bool {
	v := row[c.Field]
	switch c.Kind {
	case store.CondContains:
		s, ok := v.(string)
		if !ok {
			return false
		}
		needle, _ := c.Value.(string)
		return strings.Contains(strings.ToLower(s), strings.ToLower(needle))
	case store.CondIn:
		if v == nil {
			return false
		}
		for _, want := range c.Values {
			if reflect.DeepEqual(v, normalize(want)) {
				return true
			}
		}
		return false
	case store.CondHasSome:
		have, ok := v.([]any)
		if !ok {
			return false
		}
		for _, want := range c.Values {
			nw := normalize(want)
			for _, h := range have {
				if reflect.DeepEqual(h, nw) {
					return true
				}
			}
		}
		return false
	default:
		if c.Value == nil {
			return v == nil
		}
		return reflect.DeepEqual(v, normalize(c.Value))
	}
}

// compare orders two stored values; nil sorts after everything, as Postgres
// does for ascending order.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case string:
		if y, ok := b.(string); ok {
			tx, errX := time.Parse(time.RFC3339Nano, x)
			ty, errY := time.Parse(time.RFC3339Nano, y)
			if errX == nil && errY == nil {
				return tx.Compare(ty)
			}
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(store.GroupKey(a), store.GroupKey(b))
}

func project(row map[string]any, sel map[string]any) map[string]any {
	if len(sel) == 0 {
		return row
	}
	out := map[string]any{}
	for field, v := range sel {
		if on, ok := v.(bool); ok && on {
			if val, present := row[field]; present {
				out[field] = val
			}
		}
	}
	if len(out) == 0 {
		return row
	}
	return out
}
