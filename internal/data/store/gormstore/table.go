package gormstore

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/lms-backend/internal/data/store"
	"github.com/yungbote/lms-backend/internal/platform/logger"
)

type table[T any] struct {
	db   *gorm.DB
	log  *logger.Logger
	name string
}

func newTable[T any](db *gorm.DB, baseLog *logger.Logger) *table[T] {
	name := store.TableNameOf[T]()
	return &table[T]{db: db, log: baseLog.With("table", name), name: name}
}

func (t *table[T]) conn(ctx context.Context) *gorm.DB {
	return t.db.WithContext(ctx).Model(new(T))
}

func (t *table[T]) filtered(ctx context.Context, where store.Where) (*gorm.DB, error) {
	expr, err := whereExpr(where)
	if err != nil {
		return nil, err
	}
	q := t.conn(ctx)
	if expr != nil {
		q = q.Where(expr)
	}
	return q, nil
}

func (t *table[T]) query(ctx context.Context, q store.Query) (*gorm.DB, error) {
	db, err := t.filtered(ctx, q.Where)
	if err != nil {
		return nil, err
	}
	if cols := store.SelectedColumns(q.Select); len(cols) > 0 {
		db = db.Select(cols)
	}
	if ob := orderBy(q.OrderBy); ob != nil {
		db = db.Clauses(ob)
	}
	from, to, bounded := store.Range(q.Take, q.Skip)
	if bounded {
		db = db.Limit(to - from + 1)
	}
	if from > 0 {
		db = db.Offset(from)
	}
	return db, nil
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

func (t *table[T]) FindMany(ctx context.Context, q store.Query) ([]T, error) {
	db, err := t.query(ctx, q)
	if err != nil {
		return nil, err
	}
	var rows []T
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (t *table[T]) Count(ctx context.Context, where store.Where) (int64, error) {
	db, err := t.filtered(ctx, where)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (t *table[T]) Create(ctx context.Context, row *T) error {
	return t.db.WithContext(ctx).Create(row).Error
}

func (t *table[T]) CreateMany(ctx context.Context, rows []T) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := t.db.WithContext(ctx).Create(&rows)
	return res.RowsAffected, res.Error
}

func (t *table[T]) Update(ctx context.Context, where store.Where, patch store.Patch) (*T, error) {
	current, err := t.FindUnique(ctx, where)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, store.ErrNotFound
	}
	id, err := primaryKey(current)
	if err != nil {
		return nil, err
	}
	if len(patch) > 0 {
		if err := t.db.WithContext(ctx).Model(current).Updates(columnPatch(patch)).Error; err != nil {
			return nil, err
		}
	}
	return t.FindUnique(ctx, store.Where{"id": id})
}

func (t *table[T]) UpdateMany(ctx context.Context, where store.Where, patch store.Patch) (int64, error) {
	if len(patch) == 0 {
		return 0, nil
	}
	db, err := t.filtered(ctx, where)
	if err != nil {
		return 0, err
	}
	res := db.Updates(columnPatch(patch))
	return res.RowsAffected, res.Error
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

func (t *table[T]) DeleteMany(ctx context.Context, where store.Where) (int64, error) {
	expr, err := whereExpr(where)
	if err != nil {
		return 0, err
	}
	db := t.db.WithContext(ctx)
	if expr != nil {
		db = db.Where(expr)
	}
	res := db.Delete(new(T))
	return res.RowsAffected, res.Error
}

func (t *table[T]) Upsert(ctx context.Context, row *T, conflict []string, update store.Patch) error {
	onConflict := clause.OnConflict{Columns: columns(conflict)}
	if len(update) == 0 {
		onConflict.DoNothing = true
	} else {
		onConflict.DoUpdates = clause.Assignments(columnPatch(update))
	}
	if err := t.db.WithContext(ctx).Clauses(onConflict).Create(row).Error; err != nil {
		return err
	}
	// On conflict the insert leaves row untouched, so read back the stored one.
	key, err := conflictKey(row, conflict)
	if err != nil {
		return err
	}
	expr, err := whereExpr(key)
	if err != nil {
		return err
	}
	var saved T
	if err := t.db.WithContext(ctx).Where(expr).Take(&saved).Error; err != nil {
		return err
	}
	*row = saved
	return nil
}

func (t *table[T]) GroupByCount(ctx context.Context, field string, where store.Where) (map[string]int64, error) {
	db, err := t.filtered(ctx, where)
	if err != nil {
		return nil, err
	}
	col := quoteIdent(store.ToSnake(field))
	var rows []struct {
		Key   string
		Count int64
	}
	err = db.
		Select(fmt.Sprintf("%s AS key, COUNT(*) AS count", col)).
		Where(col + " IS NOT NULL").
		Group(col).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Count
	}
	return out, nil
}

func primaryKey(row any) (string, error) {
	rv := reflect.Indirect(reflect.ValueOf(row))
	if rv.Kind() != reflect.Struct {
		return "", fmt.Errorf("gormstore: %T is not a struct", row)
	}
	f := rv.FieldByName("ID")
	if !f.IsValid() || f.Kind() != reflect.String {
		return "", fmt.Errorf("gormstore: %T has no string ID field", row)
	}
	return f.String(), nil
}

// conflictKey reads the values of the logical fields from row by JSON name.
func conflictKey(row any, fields []string) (store.Where, error) {
	rv := reflect.Indirect(reflect.ValueOf(row))
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("gormstore: %T is not a struct", row)
	}
	rt := rv.Type()
	key := store.Where{}
	for _, name := range fields {
		found := false
		for i := 0; i < rt.NumField(); i++ {
			tag := strings.Split(rt.Field(i).Tag.Get("json"), ",")[0]
			if tag == name {
				key[name] = rv.Field(i).Interface()
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("gormstore: %T has no field %q", row, name)
		}
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("gormstore: upsert on %T needs conflict fields", row)
	}
	return key, nil
}
