package domain

import "time"

type ProgressStatus string

const (
	ProgressRead       ProgressStatus = "read"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
)

func (s ProgressStatus) Valid() bool {
	switch s {
	case ProgressRead, ProgressInProgress, ProgressCompleted:
		return true
	default:
		return false
	}
}

// Progress is unique per (userId, materialId).
type Progress struct {
	ID         string         `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	UserID     string         `gorm:"type:uuid;not null;uniqueIndex:idx_progress_user_material,priority:1;column:user_id" json:"userId"`
	MaterialID string         `gorm:"type:uuid;not null;uniqueIndex:idx_progress_user_material,priority:2;index;column:material_id" json:"materialId"`
	CourseID   string         `gorm:"type:uuid;not null;index;column:course_id" json:"courseId"`
	Status     ProgressStatus `gorm:"type:text;not null;column:status" json:"status"`
	UpdatedAt  time.Time      `gorm:"not null;default:now();column:updated_at" json:"updatedAt"`
}

func (Progress) TableName() string { return "progress" }
