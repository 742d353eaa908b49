package repository

import (
	"glyke/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GalleryRepository interface {
	Create(gallery *models.Gallery) error
	GetByID(id uint) (*models.Gallery, error)
	Update(gallery *models.Gallery) error
	Delete(id uint) error
	CreatePhoto(photo *models.Photo) error
	UpdatePhoto(photo *models.Photo) error
	DeletePhoto(id uint) error
	FindPhotos(galleryID uint, title string) ([]models.Photo, error)
	CountPhotos(galleryID uint) (int64, error)
}

type galleryRepository struct {
	db *gorm.DB
}

func NewGalleryRepository(db *gorm.DB) GalleryRepository {
	return &galleryRepository{db: db}
}

func (r *galleryRepository) Create(gallery *models.Gallery) error {
	return r.db.Omit(clause.Associations).Create(gallery).Error
}

func (r *galleryRepository) GetByID(id uint) (*models.Gallery, error) {
	var gallery models.Gallery
	err := r.db.Preload("Photos", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&gallery, id).Error
	if err != nil {
		return nil, err
	}
	return &gallery, nil
}

func (r *galleryRepository) Update(gallery *models.Gallery) error {
	return r.db.Omit(clause.Associations).Save(gallery).Error
}

// Delete removes the gallery together with its photos.
func (r *galleryRepository) Delete(id uint) error {
	if err := r.db.Where("gallery_id = ?", id).Delete(&models.Photo{}).Error; err != nil {
		return err
	}
	return r.db.Delete(&models.Gallery{}, id).Error
}

func (r *galleryRepository) CreatePhoto(photo *models.Photo) error {
	return r.db.Create(photo).Error
}

func (r *galleryRepository) UpdatePhoto(photo *models.Photo) error {
	return r.db.Save(photo).Error
}

func (r *galleryRepository) DeletePhoto(id uint) error {
	return r.db.Delete(&models.Photo{}, id).Error
}

func (r *galleryRepository) FindPhotos(galleryID uint, title string) ([]models.Photo, error) {
	var photos []models.Photo
	err := r.db.Where("gallery_id = ? AND title = ?", galleryID, title).Find(&photos).Error
	return photos, err
}

func (r *galleryRepository) CountPhotos(galleryID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Photo{}).Where("gallery_id = ?", galleryID).Count(&count).Error
	return count, err
}
