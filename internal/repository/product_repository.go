package repository

import (
	"glyke/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductFilter narrows product listings. Zero values do not filter.
type ProductFilter struct {
	ActiveOnly bool
	CategoryID *uint
	Tag        string
}

type ProductRepository interface {
	Create(product *models.Product) error
	GetByID(id uint) (*models.Product, error)
	GetByName(name string) (*models.Product, error)
	List(filter ProductFilter) ([]models.Product, error)
	Update(product *models.Product) error
	Delete(id uint) error
	ReassignCategory(from uint, to *uint) error
	FirstOrCreateSentinel() (*models.Product, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *models.Product) error {
	return r.db.Omit(clause.Associations).Create(product).Error
}

func (r *productRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.Preload("Category").
		Preload("Gallery.Photos", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&product, id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) GetByName(name string) (*models.Product, error) {
	var product models.Product
	err := r.db.Where("name = ?", name).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(filter ProductFilter) ([]models.Product, error) {
	var products []models.Product
	query := r.db.Model(&models.Product{})
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	err := query.Order("name").Find(&products).Error
	if err != nil || filter.Tag == "" {
		return products, err
	}

	// tags are stored as a JSON document, so the tag filter runs in memory
	tagged := products[:0]
	for _, p := range products {
		for _, t := range p.Tags {
			if t == filter.Tag {
				tagged = append(tagged, p)
				break
			}
		}
	}
	return tagged, nil
}

func (r *productRepository) Update(product *models.Product) error {
	return r.db.Omit(clause.Associations).Save(product).Error
}

func (r *productRepository) Delete(id uint) error {
	return r.db.Delete(&models.Product{}, id).Error
}

func (r *productRepository) ReassignCategory(from uint, to *uint) error {
	return r.db.Model(&models.Product{}).Where("category_id = ?", from).UpdateColumn("category_id", to).Error
}

func (r *productRepository) FirstOrCreateSentinel() (*models.Product, error) {
	var product models.Product
	err := r.db.Where(models.Product{Name: models.DeletedName}).
		Attrs(models.Product{
			Description: "Deleted product",
			Tags:        []string{models.DeletedName},
		}).
		FirstOrCreate(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}
