package repository

import (
	"glyke/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CheckRepository interface {
	Create(check *models.Check) error
	CreateLine(line *models.CheckLine) error
	GetByID(id uint) (*models.Check, error)
	GetByOrderID(orderID uint) (*models.Check, error)
	GetByCustomer(customerID uint) ([]models.Check, error)
	Update(check *models.Check) error
	ReassignProduct(from, to uint) error
}

type checkRepository struct {
	db *gorm.DB
}

func NewCheckRepository(db *gorm.DB) CheckRepository {
	return &checkRepository{db: db}
}

func (r *checkRepository) Create(check *models.Check) error {
	return r.db.Omit(clause.Associations).Create(check).Error
}

func (r *checkRepository) CreateLine(line *models.CheckLine) error {
	return r.db.Create(line).Error
}

func (r *checkRepository) GetByID(id uint) (*models.Check, error) {
	var check models.Check
	err := r.db.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_number") }).
		First(&check, id).Error
	if err != nil {
		return nil, err
	}
	return &check, nil
}

func (r *checkRepository) GetByOrderID(orderID uint) (*models.Check, error) {
	var check models.Check
	err := r.db.Where("order_id = ?", orderID).First(&check).Error
	if err != nil {
		return nil, err
	}
	return &check, nil
}

func (r *checkRepository) GetByCustomer(customerID uint) ([]models.Check, error) {
	var checks []models.Check
	err := r.db.Where("customer_id = ?", customerID).Order("created_at DESC").Find(&checks).Error
	return checks, err
}

func (r *checkRepository) Update(check *models.Check) error {
	return r.db.Omit(clause.Associations).Save(check).Error
}

func (r *checkRepository) ReassignProduct(from, to uint) error {
	return r.db.Model(&models.CheckLine{}).Where("product_id = ?", from).UpdateColumn("product_id", to).Error
}
