package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Order struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	Number     string      `json:"number" gorm:"size:100;index"`
	CustomerID *uint       `json:"customer_id" gorm:"index"`
	Customer   *User       `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Status     string      `json:"status" gorm:"size:20;index;default:'current'"`
	Lines      []OrderLine `json:"order_lines,omitempty" gorm:"foreignKey:OrderID"`
	Totals
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type OrderStatus string

const (
	OrderCurrent    OrderStatus = "current"
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderDelivering OrderStatus = "delivering"
	OrderDelivered  OrderStatus = "delivered"
	OrderCompleted  OrderStatus = "completed"
	OrderArchived   OrderStatus = "archived"
	OrderCanceled   OrderStatus = "canceled"
)

var orderStatuses = map[OrderStatus]bool{
	OrderCurrent: true, OrderPending: true, OrderConfirmed: true, OrderDelivering: true,
	OrderDelivered: true, OrderCompleted: true, OrderArchived: true, OrderCanceled: true,
}

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	return orderStatuses[s]
}

// OrderLine is one product row of an order. Its price is the product price
// scaled by quantity.
type OrderLine struct {
	ID         uint     `json:"id" gorm:"primaryKey"`
	OrderID    uint     `json:"order_id" gorm:"index;not null"`
	LineNumber int      `json:"line_number" gorm:"not null"`
	ProductID  uint     `json:"product_id" gorm:"index;not null"`
	Product    *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Quantity   int      `json:"quantity" gorm:"not null"`
	Price
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *OrderLine) BeforeSave(tx *gorm.DB) error {
	l.Price.Recalculate()
	return nil
}

// ApplyProduct copies the product price scaled by the line quantity.
func (l *OrderLine) ApplyProduct(p *Product) {
	l.Price = p.Price.Scaled(l.Quantity)
}

// Check is the receipt issued for a completed order.
type Check struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	Number     string      `json:"number" gorm:"size:100;index"`
	OrderID    *uint       `json:"order_id" gorm:"index"`
	CustomerID *uint       `json:"customer_id" gorm:"index"`
	Lines      []CheckLine `json:"check_lines,omitempty" gorm:"foreignKey:CheckID"`
	Totals
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CheckLine struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	CheckID    uint `json:"check_id" gorm:"index;not null"`
	LineNumber int  `json:"line_number" gorm:"not null"`
	ProductID  uint `json:"product_id" gorm:"index;not null"`
	Quantity   int  `json:"quantity" gorm:"not null"`
	Price
}

func (l *CheckLine) BeforeSave(tx *gorm.DB) error {
	l.Price.Recalculate()
	return nil
}

// NewNumber builds the human-readable number of an order or check from the
// first five characters of the customer name and the local time.
func NewNumber(username string, at time.Time) string {
	prefix := "no_name"
	if username != "" {
		r := []rune(username)
		if len(r) > 5 {
			r = r[:5]
		}
		prefix = string(r)
	}
	return fmt.Sprintf("%s_%s", prefix, at.Format("150405_020106"))
}
