// Package memstore is an in-process implementation of the data access
// contract. It backs local development and the service tests.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/lms-backend/internal/data/store"
	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/platform/logger"
)

type Op string

const (
	OpFind   Op = "find"
	OpCount  Op = "count"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpUpsert Op = "upsert"
	OpGroup  Op = "group"
)

// FailFunc may veto an operation. subject is the row being written for
// create/upsert and the filter for everything else.
type FailFunc func(table string, op Op, subject map[string]any) error

type Store struct {
	mu     sync.RWMutex
	tables map[string][]map[string]any
	log    *logger.Logger

	failMu sync.RWMutex
	fail   []FailFunc

	users            *table[types.User]
	courses          *table[types.Course]
	categories       *table[types.Category]
	userCategories   *table[types.UserCategory]
	enrollments      *table[types.Enrollment]
	materials        *table[types.Material]
	materialSections *table[types.MaterialSection]
	progress         *table[types.Progress]
	courseRatings    *table[types.CourseRating]
}

var _ store.Store = (*Store)(nil)

func New(baseLog *logger.Logger) *Store {
	s := &Store{
		tables: map[string][]map[string]any{},
		log:    baseLog.With("store", string(store.BackendMemory)),
	}
	s.users = newTable[types.User](s)
	s.courses = newTable[types.Course](s)
	s.categories = newTable[types.Category](s)
	s.userCategories = newTable[types.UserCategory](s)
	s.enrollments = newTable[types.Enrollment](s)
	s.materials = newTable[types.Material](s)
	s.materialSections = newTable[types.MaterialSection](s)
	s.progress = newTable[types.Progress](s)
	s.courseRatings = newTable[types.CourseRating](s)
	return s
}

// AddFailFunc registers a hook consulted before every operation.
func (s *Store) AddFailFunc(fn FailFunc) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.fail = append(s.fail, fn)
}

// FailOn makes every op on table return err. An empty op matches all ops.
func (s *Store) FailOn(table string, op Op, err error) {
	s.AddFailFunc(func(t string, o Op, _ map[string]any) error {
		if t == table && (op == "" || o == op) {
			return err
		}
		return nil
	})
}

// DropTable simulates a table that was never migrated.
func (s *Store) DropTable(table string) {
	s.FailOn(table, "", MissingRelation(table))
}

// MissingRelation builds the error Postgres returns for an unknown table.
func MissingRelation(table string) error {
	return &store.BackendError{
		Status:  404,
		Code:    store.SQLStateUndefinedTable,
		Message: fmt.Sprintf("relation \"public.%s\" does not exist", table),
	}
}

func (s *Store) check(table string, op Op, subject map[string]any) error {
	s.failMu.RLock()
	defer s.failMu.RUnlock()
	for _, fn := range s.fail {
		if err := fn(table, op, subject); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Backend() store.Backend { return store.BackendMemory }

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Users() store.Table[types.User] { return s.users }
func (s *Store) Courses() store.Table[types.Course] { return s.courses }
func (s *Store) Categories() store.Table[types.Category] { return s.categories }
func (s *Store) UserCategories() store.Table[types.UserCategory] { return s.userCategories }
func (s *Store) Enrollments() store.Table[types.Enrollment] { return s.enrollments }
func (s *Store) Materials() store.Table[types.Material] { return s.materials }
func (s *Store) MaterialSections() store.Table[types.MaterialSection] { return s.materialSections }
func (s *Store) Progress() store.Table[types.Progress] { return s.progress }
func (s *Store) CourseRatings() store.Table[types.CourseRating] { return s.courseRatings }
