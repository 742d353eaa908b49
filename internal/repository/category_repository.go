package repository

import (
	"glyke/internal/models"

	"gorm.io/gorm"
)

type CategoryRepository interface {
	Create(category *models.Category) error
	GetByID(id uint) (*models.Category, error)
	GetByName(name string) (*models.Category, error)
	GetAll() ([]models.Category, error)
	GetActiveOrdered() ([]models.Category, error)
	Update(category *models.Category) error
	Delete(id uint) error
	SetOrderingIndex(id uint, index int) error
	CloseOrderingGap(after int) error
	ShiftChildLevel(ids []uint, delta int) error
	ReassignParent(from uint, to *uint) error
	FirstOrCreateSentinel() (*models.Category, error)
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(category *models.Category) error {
	return r.db.Create(category).Error
}

func (r *categoryRepository) GetByID(id uint) (*models.Category, error) {
	var category models.Category
	err := r.db.First(&category, id).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) GetByName(name string) (*models.Category, error) {
	var category models.Category
	err := r.db.Where("name = ?", name).First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) GetAll() ([]models.Category, error) {
	var categories []models.Category
	err := r.db.Order("id").Find(&categories).Error
	return categories, err
}

func (r *categoryRepository) GetActiveOrdered() ([]models.Category, error) {
	var categories []models.Category
	err := r.db.Where("is_active = ? AND ordering_index > 0", true).
		Order("ordering_index").Find(&categories).Error
	return categories, err
}

func (r *categoryRepository) Update(category *models.Category) error {
	return r.db.Save(category).Error
}

func (r *categoryRepository) Delete(id uint) error {
	return r.db.Delete(&models.Category{}, id).Error
}

func (r *categoryRepository) SetOrderingIndex(id uint, index int) error {
	return r.db.Model(&models.Category{}).Where("id = ?", id).Update("ordering_index", index).Error
}

// CloseOrderingGap decrements every ordering index greater than after.
func (r *categoryRepository) CloseOrderingGap(after int) error {
	return r.db.Model(&models.Category{}).
		Where("ordering_index > ?", after).
		Update("ordering_index", gorm.Expr("ordering_index - ?", 1)).Error
}

func (r *categoryRepository) ShiftChildLevel(ids []uint, delta int) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.Category{}).
		Where("id IN ?", ids).
		Update("child_level", gorm.Expr("child_level + ?", delta)).Error
}

// ReassignParent moves every direct child of from under to (nil makes them roots).
func (r *categoryRepository) ReassignParent(from uint, to *uint) error {
	return r.db.Model(&models.Category{}).Where("parent_id = ?", from).Update("parent_id", to).Error
}

// FirstOrCreateSentinel returns the inactive "_deleted_" category, creating it
// on first use.
func (r *categoryRepository) FirstOrCreateSentinel() (*models.Category, error) {
	var category models.Category
	err := r.db.Where(models.Category{Name: models.DeletedName}).
		Attrs(models.Category{
			Description: "Deleted category",
			Picture:     models.DefaultCategoryPicture,
			Filters:     []string{},
		}).
		FirstOrCreate(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}
