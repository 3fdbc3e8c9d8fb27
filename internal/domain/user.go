package domain

import "time"

type User struct {
	ID        string    `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	Role      Role      `gorm:"type:text;not null;index;column:role" json:"role"`
	Name      string    `gorm:"not null;column:name" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password  string    `gorm:"not null;column:password" json:"password,omitempty"`
	Provinsi  string    `gorm:"column:provinsi" json:"provinsi,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:now();column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:now();column:updated_at" json:"updatedAt"`

	// Categories is resolved from user_categories; it is never a column.
	Categories []string `gorm:"-" json:"categories,omitempty"`
}

func (User) TableName() string { return "users" }

// Public strips the password hash before a user leaves the service layer.
func (u User) Public() User {
	u.Password = ""
	return u
}
