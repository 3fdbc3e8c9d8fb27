package domain

import (
	"time"

	"github.com/lib/pq"
)

type Course struct {
	ID          string `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	Title       string `gorm:"not null;column:title" json:"title"`
	Description string `gorm:"type:text;column:description" json:"description"`
	TeacherID   string `gorm:"type:uuid;not null;index;column:teacher_id" json:"teacherId"`
	// Empty Categories means the course is public to every authenticated user.
	Categories pq.StringArray `gorm:"type:text[];not null;default:'{}';column:categories" json:"categories"`
	CreatedAt  time.Time      `gorm:"not null;default:now();column:created_at" json:"createdAt"`
	UpdatedAt  time.Time      `gorm:"not null;default:now();column:updated_at" json:"updatedAt"`
}

func (Course) TableName() string { return "courses" }

func (c Course) IsPublic() bool { return len(c.Categories) == 0 }

type Enrollment struct {
	ID         string    `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	UserID     string    `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_user_course,priority:1;column:user_id" json:"userId"`
	CourseID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_user_course,priority:2;index;column:course_id" json:"courseId"`
	EnrolledAt time.Time `gorm:"not null;default:now();column:enrolled_at" json:"enrolledAt"`
}

func (Enrollment) TableName() string { return "enrollments" }

type CourseRating struct {
	ID        string    `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_rating_user_course,priority:1;column:user_id" json:"userId"`
	CourseID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_rating_user_course,priority:2;index;column:course_id" json:"courseId"`
	Rating    int       `gorm:"not null;column:rating" json:"rating"`
	Review    *string   `gorm:"type:text;column:review" json:"review,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:now();column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:now();column:updated_at" json:"updatedAt"`
}

func (CourseRating) TableName() string { return "course_ratings" }
