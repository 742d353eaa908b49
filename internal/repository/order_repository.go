package repository

import (
	"glyke/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetWithLines(id uint) (*models.Order, error)
	GetCurrentByCustomer(customerID uint) (*models.Order, error)
	CountByCustomerAndStatus(customerID uint, status string) (int64, error)
	GetByCustomer(customerID uint) ([]models.Order, error)
	GetByStatus(status string) ([]models.Order, error)
	Update(order *models.Order) error
	Delete(id uint) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *models.Order) error {
	return r.db.Omit(clause.Associations).Create(order).Error
}

func (r *orderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetWithLines(id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Customer").
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_number") }).
		Preload("Lines.Product").
		First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetCurrentByCustomer returns the latest order in the current status.
func (r *orderRepository) GetCurrentByCustomer(customerID uint) (*models.Order, error) {
	var order models.Order
	err := r.db.Where("customer_id = ? AND status = ?", customerID, string(models.OrderCurrent)).
		Order("created_at DESC").Order("id DESC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) CountByCustomerAndStatus(customerID uint, status string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Order{}).
		Where("customer_id = ? AND status = ?", customerID, status).
		Count(&count).Error
	return count, err
}

func (r *orderRepository) GetByCustomer(customerID uint) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Where("customer_id = ?", customerID).Order("created_at DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepository) GetByStatus(status string) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&orders).Error
	return orders, err
}

func (r *orderRepository) Update(order *models.Order) error {
	return r.db.Omit(clause.Associations).Save(order).Error
}

func (r *orderRepository) Delete(id uint) error {
	if err := r.db.Where("order_id = ?", id).Delete(&models.OrderLine{}).Error; err != nil {
		return err
	}
	return r.db.Delete(&models.Order{}, id).Error
}
