package repository

import (
	"gorm.io/gorm"
)

// Repositories groups every repository bound to the same connection or
// transaction.
type Repositories struct {
	User      UserRepository
	Category  CategoryRepository
	Product   ProductRepository
	Gallery   GalleryRepository
	Order     OrderRepository
	OrderLine OrderLineRepository
	Check     CheckRepository

	db *gorm.DB
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:      NewUserRepository(db),
		Category:  NewCategoryRepository(db),
		Product:   NewProductRepository(db),
		Gallery:   NewGalleryRepository(db),
		Order:     NewOrderRepository(db),
		OrderLine: NewOrderLineRepository(db),
		Check:     NewCheckRepository(db),
		db:        db,
	}
}

// Transaction runs fn with repositories bound to a single database
// transaction. Any error returned by fn rolls the transaction back.
func (r *Repositories) Transaction(fn func(tx *Repositories) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
