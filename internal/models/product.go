package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DeletedName names the sentinel records that stand in for removed rows.
const DeletedName = "_deleted_"

type Product struct {
	ID          uint              `json:"id" gorm:"primaryKey"`
	Name        string            `json:"name" gorm:"uniqueIndex;size:255;not null"`
	Description string            `json:"description" gorm:"type:text"`
	CategoryID  *uint             `json:"category_id" gorm:"index"`
	Category    *Category         `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Stock       int               `json:"stock" gorm:"not null"`
	Tags        []string          `json:"tags" gorm:"type:text;serializer:json"`
	Attributes  datatypes.JSONMap `json:"attributes"`
	GalleryID   *uint             `json:"gallery_id"`
	Gallery     *Gallery          `json:"gallery,omitempty" gorm:"foreignKey:GalleryID"`
	MainPhotoID *uint             `json:"main_photo_id"`
	IsActive    bool              `json:"is_active" gorm:"not null"`
	CreatedByID *uint             `json:"created_by_id"`
	Price
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeSave keeps derived prices fresh and deactivates unpriced products.
func (p *Product) BeforeSave(tx *gorm.DB) error {
	p.Price.Recalculate()
	if !p.SellingPrice.IsPositive() {
		p.IsActive = false
	}
	return nil
}

type Gallery struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"uniqueIndex;size:255;not null"`
	Slug      string    `json:"slug" gorm:"uniqueIndex;size:255;not null"`
	Photos    []Photo   `json:"photos,omitempty" gorm:"foreignKey:GalleryID"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Photo struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	GalleryID uint      `json:"gallery_id" gorm:"index;not null"`
	Title     string    `json:"title" gorm:"size:255;not null"`
	Slug      string    `json:"slug" gorm:"index;size:255;not null"`
	Image     string    `json:"image" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
