package repository

import (
	"glyke/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderLineRepository interface {
	Create(line *models.OrderLine) error
	GetByID(id uint) (*models.OrderLine, error)
	GetByOrderID(orderID uint) ([]models.OrderLine, error)
	FindByOrderAndProduct(orderID, productID uint) (*models.OrderLine, error)
	CountByOrderID(orderID uint) (int64, error)
	Update(line *models.OrderLine) error
	SetLineNumber(id uint, number int) error
	Delete(id uint) error
	DeleteByOrderID(orderID uint) error
	GetByProductID(productID uint) ([]models.OrderLine, error)
}

type orderLineRepository struct {
	db *gorm.DB
}

func NewOrderLineRepository(db *gorm.DB) OrderLineRepository {
	return &orderLineRepository{db: db}
}

func (r *orderLineRepository) Create(line *models.OrderLine) error {
	return r.db.Omit(clause.Associations).Create(line).Error
}

func (r *orderLineRepository) GetByID(id uint) (*models.OrderLine, error) {
	var line models.OrderLine
	err := r.db.First(&line, id).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// GetByOrderID returns the order's lines in line number order.
func (r *orderLineRepository) GetByOrderID(orderID uint) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := r.db.Where("order_id = ?", orderID).Order("line_number").Order("id").Find(&lines).Error
	return lines, err
}

// FindByOrderAndProduct returns nil, nil when the order has no line for the product.
func (r *orderLineRepository) FindByOrderAndProduct(orderID, productID uint) (*models.OrderLine, error) {
	var lines []models.OrderLine
	err := r.db.Where("order_id = ? AND product_id = ?", orderID, productID).Limit(1).Find(&lines).Error
	if err != nil || len(lines) == 0 {
		return nil, err
	}
	return &lines[0], nil
}

func (r *orderLineRepository) CountByOrderID(orderID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.OrderLine{}).Where("order_id = ?", orderID).Count(&count).Error
	return count, err
}

func (r *orderLineRepository) Update(line *models.OrderLine) error {
	return r.db.Omit(clause.Associations).Save(line).Error
}

func (r *orderLineRepository) SetLineNumber(id uint, number int) error {
	return r.db.Model(&models.OrderLine{}).Where("id = ?", id).UpdateColumn("line_number", number).Error
}

func (r *orderLineRepository) Delete(id uint) error {
	return r.db.Delete(&models.OrderLine{}, id).Error
}

func (r *orderLineRepository) DeleteByOrderID(orderID uint) error {
	return r.db.Where("order_id = ?", orderID).Delete(&models.OrderLine{}).Error
}

func (r *orderLineRepository) GetByProductID(productID uint) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := r.db.Where("product_id = ?", productID).Order("order_id").Order("id").Find(&lines).Error
	return lines, err
}
