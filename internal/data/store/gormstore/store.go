// Package gormstore implements the data access contract on top of gorm and
// PostgreSQL.
package gormstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/lms-backend/internal/data/store"
	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/platform/logger"
)

type gormStore struct {
	db  *gorm.DB
	log *logger.Logger

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

func New(db *gorm.DB, baseLog *logger.Logger) store.Store {
	storeLog := baseLog.With("store", string(store.BackendGorm))
	return &gormStore{
		db:               db,
		log:              storeLog,
		users:            newTable[types.User](db, storeLog),
		courses:          newTable[types.Course](db, storeLog),
		categories:       newTable[types.Category](db, storeLog),
		userCategories:   newTable[types.UserCategory](db, storeLog),
		enrollments:      newTable[types.Enrollment](db, storeLog),
		materials:        newTable[types.Material](db, storeLog),
		materialSections: newTable[types.MaterialSection](db, storeLog),
		progress:         newTable[types.Progress](db, storeLog),
		courseRatings:    newTable[types.CourseRating](db, storeLog),
	}
}

func (s *gormStore) Backend() store.Backend { return store.BackendGorm }

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("gorm sql handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *gormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *gormStore) Users() store.Table[types.User] { return s.users }
func (s *gormStore) Courses() store.Table[types.Course] { return s.courses }
func (s *gormStore) Categories() store.Table[types.Category] { return s.categories }
func (s *gormStore) UserCategories() store.Table[types.UserCategory] { return s.userCategories }
func (s *gormStore) Enrollments() store.Table[types.Enrollment] { return s.enrollments }
func (s *gormStore) Materials() store.Table[types.Material] { return s.materials }
func (s *gormStore) MaterialSections() store.Table[types.MaterialSection] { return s.materialSections }
func (s *gormStore) Progress() store.Table[types.Progress] { return s.progress }
func (s *gormStore) CourseRatings() store.Table[types.CourseRating] { return s.courseRatings }
