package store

import (
	"fmt"
	"reflect"
	"sort"
)

// OR is the Where key whose value is a []Where combined as a disjunction.
const OR = "OR"

// Where maps logical field names to conditions. A plain value means equality
// (nil means IS NULL). Sibling keys are ANDed together.
type Where map[string]any

type ContainsCond struct{ Value string }
type InCond struct{ Values []any }
type HasSomeCond struct{ Values []any }

// Contains matches a case-insensitive substring.
func Contains(s string) ContainsCond { return ContainsCond{Value: s} }

func In[V any](values ...V) InCond {
	return InCond{Values: toAnySlice(values)}
}

// HasSome matches when the stored array shares at least one element with values.
func HasSome[V any](values ...V) HasSomeCond {
	return HasSomeCond{Values: toAnySlice(values)}
}

type CondKind int

const (
	CondEq CondKind = iota
	CondContains
	CondIn
	CondHasSome
)

type Condition struct {
	Field  string
	Kind   CondKind
	Value  any
	Values []any
}

// Split returns the ANDed field conditions in key order plus the OR branches.
func (w Where) Split() ([]Condition, []Where, error) {
	if len(w) == 0 {
		return nil, nil, nil
	}
	keys := make([]string, 0, len(w))
	for k := range w {
		if k == OR {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]Condition, 0, len(keys))
	for _, k := range keys {
		c, err := toCondition(k, w[k])
		if err != nil {
			return nil, nil, err
		}
		conds = append(conds, c)
	}

	var branches []Where
	if raw, ok := w[OR]; ok && raw != nil {
		switch v := raw.(type) {
		case []Where:
			branches = v
		case []map[string]any:
			for _, m := range v {
				branches = append(branches, Where(m))
			}
		default:
			return nil, nil, fmt.Errorf("store: OR must be []Where, got %T", raw)
		}
		for _, b := range branches {
			if _, ok := b[OR]; ok {
				return nil, nil, fmt.Errorf("store: nested OR is not supported")
			}
		}
	}
	return conds, branches, nil
}

func toCondition(field string, v any) (Condition, error) {
	switch c := v.(type) {
	case ContainsCond:
		return Condition{Field: field, Kind: CondContains, Value: c.Value}, nil
	case InCond:
		return Condition{Field: field, Kind: CondIn, Values: c.Flatten()}, nil
	case HasSomeCond:
		return Condition{Field: field, Kind: CondHasSome, Values: c.Flatten()}, nil
	case Where, map[string]any:
		return Condition{}, fmt.Errorf("store: nested relation filter on %q is not supported", field)
	default:
		return Condition{Field: field, Kind: CondEq, Value: v}, nil
	}
}

func toAnySlice[V any](values []V) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

// Flatten expands a single slice argument so In(ids) and In(ids...) behave the same.
func (c InCond) Flatten() []any      { return flatten(c.Values) }
func (c HasSomeCond) Flatten() []any { return flatten(c.Values) }

func flatten(values []any) []any {
	if len(values) != 1 {
		return values
	}
	rv := reflect.ValueOf(values[0])
	if !rv.IsValid() || rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return values
	}
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, rv.Index(i).Interface())
	}
	return out
}
