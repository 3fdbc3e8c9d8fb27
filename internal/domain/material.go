package domain

import (
	"strings"
	"time"
)

type MaterialType string

const (
	MaterialPDF       MaterialType = "pdf"
	MaterialMarkdown  MaterialType = "markdown"
	MaterialText      MaterialType = "text"
	MaterialVideoLink MaterialType = "video-link"
)

func ParseMaterialType(raw string) (MaterialType, bool) {
	switch t := MaterialType(strings.ToLower(strings.TrimSpace(raw))); t {
	case MaterialPDF, MaterialMarkdown, MaterialText, MaterialVideoLink:
		return t, true
	default:
		return "", false
	}
}

type Material struct {
	ID        string       `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	CourseID  string       `gorm:"type:uuid;not null;index;column:course_id" json:"courseId"`
	Title     string       `gorm:"not null;column:title" json:"title"`
	Type      MaterialType `gorm:"type:text;not null;column:type" json:"type"`
	Content   *string      `gorm:"type:text;column:content" json:"content,omitempty"`
	PdfURL    *string      `gorm:"column:pdf_url" json:"pdfUrl,omitempty"`
	Order     int          `gorm:"not null;default:0;column:order" json:"order"`
	CreatedAt time.Time    `gorm:"not null;default:now();column:created_at" json:"createdAt"`
	UpdatedAt time.Time    `gorm:"not null;default:now();column:updated_at" json:"updatedAt"`

	Sections []MaterialSection `gorm:"-" json:"sections,omitempty"`
}

func (Material) TableName() string { return "materials" }

type MaterialSection struct {
	ID         string    `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	MaterialID string    `gorm:"type:uuid;not null;index;column:material_id" json:"materialId"`
	Title      string    `gorm:"not null;column:title" json:"title"`
	Content    string    `gorm:"type:text;column:content" json:"content"`
	Order      int       `gorm:"not null;default:0;column:order" json:"order"`
	CreatedAt  time.Time `gorm:"not null;default:now();column:created_at" json:"createdAt"`
}

func (MaterialSection) TableName() string { return "material_sections" }
