package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"glyke/internal/models"
	"glyke/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProductInput struct {
	Name            string
	Description     string
	CategoryID      *uint
	Stock           int
	Tags            []string
	Attributes      map[string]string
	CostPrice       decimal.Decimal
	SellingPrice    decimal.Decimal
	DiscountPercent int
	IsActive        *bool
}

type ProductService interface {
	CreateProduct(input ProductInput, createdBy *uint) (*models.Product, error)
	UpdateProduct(id uint, input ProductInput) (*models.Product, error)
	GetProduct(id uint) (*models.Product, error)
	ListProducts(filter repository.ProductFilter) ([]models.Product, error)
	SetActive(id uint, active bool) (*models.Product, error)
	DeleteProduct(id uint) error
	AddPhoto(productID uint, image string) (*models.Photo, error)
	DeletePhoto(productID uint, title string) error
	SetMainPhoto(productID, photoID uint) (*models.Product, error)
	ExportProducts() (*excelize.File, error)
}

type productService struct {
	repos  *repository.Repositories
	orders *orderService
	log    zerolog.Logger
}

func NewProductService(repos *repository.Repositories, log zerolog.Logger) ProductService {
	return &productService{
		repos: repos,
		orders: &orderService{
			repos: repos,
			log:   log.With().Str("component", "orders").Logger(),
			now:   time.Now,
		},
		log: log.With().Str("component", "products").Logger(),
	}
}

func (s *productService) CreateProduct(input ProductInput, createdBy *uint) (*models.Product, error) {
	var productID uint
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		name := strings.TrimSpace(input.Name)
		if err := validateProduct(tx.Product, 0, name, input); err != nil {
			return err
		}
		category, err := resolveCategory(tx.Category, input.CategoryID)
		if err != nil {
			return err
		}
		attributes, err := productAttributes(category, input.Attributes)
		if err != nil {
			return err
		}

		gallery := &models.Gallery{Title: galleryTitle(name), Slug: slugify(galleryTitle(name))}
		if err := tx.Gallery.Create(gallery); err != nil {
			return fmt.Errorf("failed to create gallery: %w", err)
		}

		product := &models.Product{
			Name:        name,
			Description: input.Description,
			Stock:       input.Stock,
			Tags:        cleanNames(input.Tags),
			Attributes:  attributes,
			GalleryID:   &gallery.ID,
			IsActive:    input.IsActive == nil || *input.IsActive,
			CreatedByID: createdBy,
			Price: models.Price{
				CostPrice:       input.CostPrice,
				SellingPrice:    input.SellingPrice,
				DiscountPercent: input.DiscountPercent,
			},
		}
		if category != nil {
			product.CategoryID = &category.ID
		}
		if err := tx.Product.Create(product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		productID = product.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("product_id", productID).Str("name", strings.TrimSpace(input.Name)).Msg("product created")
	return s.GetProduct(productID)
}

// UpdateProduct saves the edited product. A rename carries over to the
// gallery and every photo in it.
func (s *productService) UpdateProduct(id uint, input ProductInput) (*models.Product, error) {
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		product, err := tx.Product.GetByID(id)
		if err != nil {
			return notFound(err)
		}
		name := strings.TrimSpace(input.Name)
		if err := validateProduct(tx.Product, id, name, input); err != nil {
			return err
		}
		category, err := resolveCategory(tx.Category, input.CategoryID)
		if err != nil {
			return err
		}
		attributes, err := productAttributes(category, input.Attributes)
		if err != nil {
			return err
		}

		renamed := product.Name != name
		product.Name = name
		product.Description = input.Description
		product.Stock = input.Stock
		product.Tags = cleanNames(input.Tags)
		product.Attributes = attributes
		product.CostPrice = input.CostPrice
		product.SellingPrice = input.SellingPrice
		product.DiscountPercent = input.DiscountPercent
		if input.IsActive != nil {
			product.IsActive = *input.IsActive
		}
		product.CategoryID = nil
		if category != nil {
			product.CategoryID = &category.ID
		}

		if err := tx.Product.Update(product); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		if renamed && product.GalleryID != nil {
			return renameGallery(tx.Gallery, *product.GalleryID, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("product_id", id).Msg("product updated")
	return s.GetProduct(id)
}

func renameGallery(repo repository.GalleryRepository, galleryID uint, name string) error {
	gallery, err := repo.GetByID(galleryID)
	if err != nil {
		return notFound(err)
	}
	gallery.Title = galleryTitle(name)
	gallery.Slug = slugify(gallery.Title)
	if err := repo.Update(gallery); err != nil {
		return fmt.Errorf("failed to rename gallery: %w", err)
	}
	for i := range gallery.Photos {
		photo := &gallery.Photos[i]
		photo.Title = photoTitle(name, i+1)
		photo.Slug = slugify(photo.Title)
		if err := repo.UpdatePhoto(photo); err != nil {
			return fmt.Errorf("failed to rename photo: %w", err)
		}
	}
	return nil
}

func (s *productService) GetProduct(id uint) (*models.Product, error) {
	product, err := s.repos.Product.GetByID(id)
	if err != nil {
		return nil, notFound(err)
	}
	return product, nil
}

func (s *productService) ListProducts(filter repository.ProductFilter) ([]models.Product, error) {
	return s.repos.Product.List(filter)
}

// SetActive soft-deletes (active=false) or recovers a product. Asking for the
// state the product is already in fails with ErrStatusUnchanged, as does
// recovering a product without a selling price.
func (s *productService) SetActive(id uint, active bool) (*models.Product, error) {
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		product, err := tx.Product.GetByID(id)
		if err != nil {
			return notFound(err)
		}
		if product.IsActive == active || (active && !product.SellingPrice.IsPositive()) {
			return ErrStatusUnchanged
		}
		product.IsActive = active
		return tx.Product.Update(product)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("product_id", id).Bool("active", active).Msg("product status changed")
	return s.GetProduct(id)
}

// DeleteProduct removes the row for good. Order and check lines that still
// point at it are handed to the "_deleted_" product first.
func (s *productService) DeleteProduct(id uint) error {
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		product, err := tx.Product.GetByID(id)
		if err != nil {
			return notFound(err)
		}
		if product.Name == models.DeletedName {
			return newValidationError("name", "The deleted-records product cannot be removed.")
		}

		sentinel, err := tx.Product.FirstOrCreateSentinel()
		if err != nil {
			return fmt.Errorf("failed to get deleted product: %w", err)
		}
		if err := s.handOverOrderLines(tx, id, sentinel.ID); err != nil {
			return err
		}
		if err := tx.Check.ReassignProduct(id, sentinel.ID); err != nil {
			return fmt.Errorf("failed to reassign check lines: %w", err)
		}

		if err := tx.Product.Delete(id); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		if product.GalleryID != nil {
			if err := tx.Gallery.Delete(*product.GalleryID); err != nil {
				return fmt.Errorf("failed to delete gallery: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().Uint("product_id", id).Msg("product deleted")
	return nil
}

// handOverOrderLines points every order line of product from at product to.
// An order that already has a line for to gets the quantity and prices folded
// into that line instead, so each order keeps one line per product.
func (s *productService) handOverOrderLines(tx *repository.Repositories, from, to uint) error {
	lines, err := tx.OrderLine.GetByProductID(from)
	if err != nil {
		return err
	}

	merged := make(map[uint]bool)
	for i := range lines {
		line := &lines[i]
		existing, err := tx.OrderLine.FindByOrderAndProduct(line.OrderID, to)
		if err != nil {
			return err
		}
		if existing == nil {
			line.ProductID = to
			if err := tx.OrderLine.Update(line); err != nil {
				return fmt.Errorf("failed to reassign order line: %w", err)
			}
			continue
		}

		existing.Quantity += line.Quantity
		existing.CostPrice = existing.CostPrice.Add(line.CostPrice)
		existing.SellingPrice = existing.SellingPrice.Add(line.SellingPrice)
		if err := tx.OrderLine.Update(existing); err != nil {
			return fmt.Errorf("failed to merge order line: %w", err)
		}
		if err := tx.OrderLine.Delete(line.ID); err != nil {
			return fmt.Errorf("failed to delete merged order line: %w", err)
		}
		merged[line.OrderID] = true
	}

	for orderID := range merged {
		if _, err := s.orders.recalculate(tx, orderID); err != nil {
			return err
		}
	}
	return nil
}

// AddPhoto appends a photo to the product gallery. The first photo becomes
// the main one.
func (s *productService) AddPhoto(productID uint, image string) (*models.Photo, error) {
	var photo *models.Photo
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		product, err := tx.Product.GetByID(productID)
		if err != nil {
			return notFound(err)
		}
		if strings.TrimSpace(image) == "" {
			return &ValidationError{
				Fields: map[string]string{"image": "This field is required."},
				Err:    ErrPhotoForm,
			}
		}
		if product.GalleryID == nil {
			gallery := &models.Gallery{Title: galleryTitle(product.Name), Slug: slugify(galleryTitle(product.Name))}
			if err := tx.Gallery.Create(gallery); err != nil {
				return fmt.Errorf("failed to create gallery: %w", err)
			}
			product.GalleryID = &gallery.ID
		}

		count, err := tx.Gallery.CountPhotos(*product.GalleryID)
		if err != nil {
			return err
		}
		title := photoTitle(product.Name, int(count)+1)
		photo = &models.Photo{
			GalleryID: *product.GalleryID,
			Title:     title,
			Slug:      slugify(title),
			Image:     strings.TrimSpace(image),
		}
		if err := tx.Gallery.CreatePhoto(photo); err != nil {
			return fmt.Errorf("failed to create photo: %w", err)
		}
		if product.MainPhotoID == nil {
			product.MainPhotoID = &photo.ID
		}
		return tx.Product.Update(product)
	})
	if err != nil {
		return nil, err
	}
	return photo, nil
}

// DeletePhoto removes the gallery photo titled title. Anything other than
// exactly one match fails with ErrAmbiguousPhoto.
func (s *productService) DeletePhoto(productID uint, title string) error {
	return s.repos.Transaction(func(tx *repository.Repositories) error {
		product, err := tx.Product.GetByID(productID)
		if err != nil {
			return notFound(err)
		}
		if product.GalleryID == nil {
			return ErrAmbiguousPhoto
		}
		photos, err := tx.Gallery.FindPhotos(*product.GalleryID, title)
		if err != nil {
			return err
		}
		if len(photos) != 1 {
			return ErrAmbiguousPhoto
		}

		if err := tx.Gallery.DeletePhoto(photos[0].ID); err != nil {
			return fmt.Errorf("failed to delete photo: %w", err)
		}
		// keep the remaining titles numbered 1..N
		if err := renameGallery(tx.Gallery, *product.GalleryID, product.Name); err != nil {
			return err
		}
		if product.MainPhotoID != nil && *product.MainPhotoID == photos[0].ID {
			product.MainPhotoID = nil
			return tx.Product.Update(product)
		}
		return nil
	})
}

func (s *productService) SetMainPhoto(productID, photoID uint) (*models.Product, error) {
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		product, err := tx.Product.GetByID(productID)
		if err != nil {
			return notFound(err)
		}
		if product.Gallery == nil {
			return ErrNotFound
		}
		for _, p := range product.Gallery.Photos {
			if p.ID == photoID {
				product.MainPhotoID = &p.ID
				return tx.Product.Update(product)
			}
		}
		return ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return s.GetProduct(productID)
}

func validateProduct(repo repository.ProductRepository, self uint, name string, input ProductInput) error {
	fields := make(map[string]string)
	switch {
	case name == "":
		fields["name"] = "This field is required."
	case utf8.RuneCountInString(name) > 255:
		fields["name"] = "Ensure this value has at most 255 characters."
	default:
		existing, err := repo.GetByName(name)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing != nil && existing.ID != self {
			return &ValidationError{
				Fields: map[string]string{"name": "Product with this Name already exists."},
				Err:    ErrDuplicateName,
			}
		}
	}
	if input.Stock < 0 {
		fields["stock"] = "Ensure this value is greater than or equal to 0."
	}
	price := models.Price{
		CostPrice:       input.CostPrice,
		SellingPrice:    input.SellingPrice,
		DiscountPercent: input.DiscountPercent,
	}
	for k, v := range price.Validate() {
		fields[k] = v
	}
	return validationOrNil(fields)
}

// resolveCategory loads the requested category. A category that no longer
// exists resolves to the "_deleted_" one.
func resolveCategory(repo repository.CategoryRepository, id *uint) (*models.Category, error) {
	if id == nil {
		return nil, nil
	}
	category, err := repo.GetByID(*id)
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return repo.FirstOrCreateSentinel()
}

func productAttributes(category *models.Category, values map[string]string) (datatypes.JSONMap, error) {
	var filters []string
	if category != nil {
		filters = category.Filters
	}
	cleaned, err := NewAttributeSchema(filters).Validate(values)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			validationErr.Err = ErrCategoryForm
		}
		return nil, err
	}
	return datatypes.JSONMap(cleaned), nil
}

func galleryTitle(productName string) string {
	return productName + "_gallery"
}

func photoTitle(productName string, n int) string {
	return fmt.Sprintf("%s_%d", productName, n)
}
