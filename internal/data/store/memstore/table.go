package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"sort"

	"github.com/google/uuid"

	"github.com/yungbote/lms-backend/internal/data/store"
)

type table[T any] struct {
	s       *Store
	name    string
	virtual []string
	// unique holds the primary key first, then every declared unique index.
	unique  []store.UniqueKey
}

func newTable[T any](s *Store) *table[T] {
	name := store.TableNameOf[T]()
	rt := reflect.TypeOf((*T)(nil))
	return &table[T]{
		s:       s,
		name:    name,
		virtual: store.VirtualFields(rt),
		unique:  append([]store.UniqueKey{{Name: name + "_pkey", Fields: []string{"id"}}}, store.UniqueKeys(rt, name)...),
	}
}

func (t *table[T]) encode(row *T) (map[string]any, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	for _, name := range t.virtual {
		delete(m, name)
	}
	return m, nil
}

func decode[T any](m map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(m)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	return out, err
}

// filter returns indexes of matching rows. Callers hold the store lock.
func (t *table[T]) filter(where store.Where) ([]int, error) {
	var out []int
	for i, row := range t.s.tables[t.name] {
		ok, err := matches(row, where)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, i)
		}
	}
	return out, nil
}

func (t *table[T]) FindUnique(ctx context.Context, where store.Where) (*T, error) {
	return t.FindFirst(ctx, store.Query{Where: where})
}

func (t *table[T]) FindFirst(ctx context.Context, q store.Query) (*T, error) {
	q.Take = 1
	rows, err := t.FindMany(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (t *table[T]) FindMany(_ context.Context, q store.Query) ([]T, error) {
	if err := t.s.check(t.name, OpFind, q.Where); err != nil {
		return nil, err
	}
	t.s.mu.RLock()
	idx, err := t.filter(q.Where)
	if err != nil {
		t.s.mu.RUnlock()
		return nil, err
	}
	matched := make([]map[string]any, 0, len(idx))
	for _, i := range idx {
		matched = append(matched, t.s.tables[t.name][i])
	}
	t.s.mu.RUnlock()

	if len(q.OrderBy) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, o := range q.OrderBy {
				c := compare(matched[i][o.Field], matched[j][o.Field])
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	from, to, bounded := store.Range(q.Take, q.Skip)
	if from >= len(matched) {
		return []T{}, nil
	}
	end := len(matched)
	if bounded && to+1 < end {
		end = to + 1
	}

	out := make([]T, 0, end-from)
	for _, row := range matched[from:end] {
		v, err := decode[T](project(row, q.Select))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (t *table[T]) Count(_ context.Context, where store.Where) (int64, error) {
	if err := t.s.check(t.name, OpCount, where); err != nil {
		return 0, err
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	idx, err := t.filter(where)
	if err != nil {
		return 0, err
	}
	return int64(len(idx)), nil
}

func (t *table[T]) Create(_ context.Context, row *T) error {
	m, err := t.encode(row)
	if err != nil {
		return err
	}
	if err := t.s.check(t.name, OpCreate, m); err != nil {
		return err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.insertLocked(m); err != nil {
		return err
	}
	v, err := decode[T](m)
	if err != nil {
		return err
	}
	*row = v
	return nil
}

func (t *table[T]) insertLocked(m map[string]any) error {
	id, _ := m["id"].(string)
	if id == "" {
		id = uuid.NewString()
		m["id"] = id
	}
	for _, existing := range t.s.tables[t.name] {
		if err := t.collision(m, existing); err != nil {
			return err
		}
	}
	t.s.tables[t.name] = append(t.s.tables[t.name], m)
	return nil
}

// collision reports a unique violation when a and b agree on every field of
// some unique key. Keys with a null member never collide, as in Postgres.
func (t *table[T]) collision(a, b map[string]any) error {
	for _, key := range t.unique {
		same := true
		for _, f := range key.Fields {
			av, bv := a[f], b[f]
			if av == nil || bv == nil || compare(av, bv) != 0 {
				same = false
				break
			}
		}
		if same {
			return &store.BackendError{
				Status:  409,
				Code:    store.SQLStateUniqueViolation,
				Message: fmt.Sprintf("duplicate key value violates unique constraint \"%s\"", key.Name),
			}
		}
	}
	return nil
}

// patchLocked applies patch to the rows at idx, or to none of them when the
// result would break a unique key.
func (t *table[T]) patchLocked(idx []int, patch store.Patch) error {
	rows := t.s.tables[t.name]
	next := make(map[int]map[string]any, len(idx))
	for _, i := range idx {
		row := maps.Clone(rows[i])
		applyPatch(row, patch)
		next[i] = row
	}
	for _, i := range idx {
		for j, other := range rows {
			if j == i {
				continue
			}
			if patched, ok := next[j]; ok {
				other = patched
			}
			if err := t.collision(next[i], other); err != nil {
				return err
			}
		}
	}
	for i, row := range next {
		rows[i] = row
	}
	return nil
}

func (t *table[T]) CreateMany(ctx context.Context, rows []T) (int64, error) {
	var n int64
	for i := range rows {
		if err := t.Create(ctx, &rows[i]); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (t *table[T]) Update(_ context.Context, where store.Where, patch store.Patch) (*T, error) {
	if err := t.s.check(t.name, OpUpdate, where); err != nil {
		return nil, err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	idx, err := t.filter(where)
	if err != nil {
		return nil, err
	}
	if len(idx) == 0 {
		return nil, store.ErrNotFound
	}
	if err := t.patchLocked(idx[:1], patch); err != nil {
		return nil, err
	}
	v, err := decode[T](t.s.tables[t.name][idx[0]])
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (t *table[T]) UpdateMany(_ context.Context, where store.Where, patch store.Patch) (int64, error) {
	if err := t.s.check(t.name, OpUpdate, where); err != nil {
		return 0, err
	}
	if len(patch) == 0 {
		return 0, nil
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	idx, err := t.filter(where)
	if err != nil {
		return 0, err
	}
	if err := t.patchLocked(idx, patch); err != nil {
		return 0, err
	}
	return int64(len(idx)), nil
}

func applyPatch(row map[string]any, patch store.Patch) {
	for k, v := range patch {
		row[k] = normalize(v)
	}
}

func (t *table[T]) Delete(ctx context.Context, where store.Where) error {
	n, err := t.DeleteMany(ctx, where)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *table[T]) DeleteMany(_ context.Context, where store.Where) (int64, error) {
	if err := t.s.check(t.name, OpDelete, where); err != nil {
		return 0, err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	rows := t.s.tables[t.name]
	kept := rows[:0]
	var n int64
	for _, row := range rows {
		ok, err := matches(row, where)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
			continue
		}
		kept = append(kept, row)
	}
	t.s.tables[t.name] = kept
	return n, nil
}

func (t *table[T]) Upsert(_ context.Context, row *T, conflict []string, update store.Patch) error {
	m, err := t.encode(row)
	if err != nil {
		return err
	}
	if err := t.s.check(t.name, OpUpsert, m); err != nil {
		return err
	}
	key := store.Where{}
	for _, f := range conflict {
		key[f] = m[f]
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	idx, err := t.filter(key)
	if err != nil {
		return err
	}
	target := m
	if len(idx) > 0 {
		if err := t.patchLocked(idx[:1], update); err != nil {
			return err
		}
		target = t.s.tables[t.name][idx[0]]
	} else if err := t.insertLocked(m); err != nil {
		return err
	}
	v, err := decode[T](target)
	if err != nil {
		return err
	}
	*row = v
	return nil
}

func (t *table[T]) GroupByCount(_ context.Context, field string, where store.Where) (map[string]int64, error) {
	if err := t.s.check(t.name, OpGroup, where); err != nil {
		return nil, err
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	idx, err := t.filter(where)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, 0, len(idx))
	for _, i := range idx {
		rows = append(rows, t.s.tables[t.name][i])
	}
	return store.CountBy(rows, field), nil
}
