package domain

import "time"

type Category struct {
	ID          string    `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	Name        string    `gorm:"not null;column:name" json:"name"`
	Description *string   `gorm:"column:description" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"not null;default:now();column:created_at" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"not null;default:now();column:updated_at" json:"updatedAt"`
}

func (Category) TableName() string { return "categories" }

// UserCategory assigns one category to one user. (userId, categoryId) is unique.
type UserCategory struct {
	ID         string    `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	UserID     string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_category,priority:1;column:user_id" json:"userId"`
	CategoryID string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_category,priority:2;index;column:category_id" json:"categoryId"`
	CreatedAt  time.Time `gorm:"not null;default:now();column:created_at" json:"createdAt"`
}

func (UserCategory) TableName() string { return "user_categories" }
