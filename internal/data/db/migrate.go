package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/lms-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// identity + category gating
		&types.User{},
		&types.Category{},
		&types.UserCategory{},

		// courses
		&types.Course{},
		&types.Enrollment{},
		&types.CourseRating{},

		// materials
		&types.Material{},
		&types.MaterialSection{},
		&types.Progress{},
	)
}

// EnsureAccessIndexes adds the lookups the access engine and listing paths
// hit on every request.
func EnsureAccessIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_courses_categories
		ON courses USING GIN (categories);
	`).Error; err != nil {
		return fmt.Errorf("create idx_courses_categories: %w", err)
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_courses_teacher_id ON courses(teacher_id);`).Error; err != nil {
		return fmt.Errorf("create idx_courses_teacher_id: %w", err)
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_user_categories_user_id ON user_categories(user_id);`).Error; err != nil {
		return fmt.Errorf("create idx_user_categories_user_id: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_materials_course_order
		ON materials (course_id, "order", id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_materials_course_order: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_material_sections_material_order
		ON material_sections (material_id, "order", id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_material_sections_material_order: %w", err)
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureAccessIndexes(s.db); err != nil {
		s.log.Error("Access index migration failed", "error", err)
		return err
	}
	return nil
}
