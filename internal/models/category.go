package models

import "time"

// Category is a node of the catalog forest. ChildLevel and OrderingIndex are
// maintained by the category service, never set by callers.
type Category struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Name          string    `json:"name" gorm:"uniqueIndex;size:255;not null"`
	Description   string    `json:"description" gorm:"type:text"`
	ParentID      *uint     `json:"parent_id" gorm:"index"`
	ChildLevel    int       `json:"child_level" gorm:"not null"`
	OrderingIndex int       `json:"ordering_index" gorm:"index;not null"`
	IsActive      bool      `json:"is_active" gorm:"not null"`
	Picture       string    `json:"picture" gorm:"size:255"`
	Filters       []string  `json:"filters" gorm:"type:text;serializer:json"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DefaultCategoryPicture is used until a picture is uploaded.
const DefaultCategoryPicture = "category/no_image.png"
