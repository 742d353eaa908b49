package services

import (
	"errors"
	"testing"

	"glyke/internal/models"
	"glyke/internal/repository"
	"glyke/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupProductService(t *testing.T) (*gorm.DB, *repository.Repositories, ProductService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return db, repos, NewProductService(repos, testutil.Logger())
}

func priced(name, selling string) ProductInput {
	price := decimal.RequireFromString(selling)
	return ProductInput{
		Name:         name,
		Stock:        10,
		CostPrice:    price.Div(decimal.NewFromInt(2)).Round(2),
		SellingPrice: price,
	}
}

func TestCreateProductWithAttributes(t *testing.T) {
	db, repos, svc := setupProductService(t)
	categories := NewCategoryService(repos, nil, testutil.Logger())
	phones, err := categories.CreateCategory(CategoryInput{Name: "Phones", Filters: []string{"color", "memory"}})
	require.NoError(t, err)

	input := priced("  Pixel  ", "500.00")
	input.DiscountPercent = 10
	input.CategoryID = &phones.ID
	input.Tags = []string{"android", " android ", ""}
	input.Attributes = map[string]string{"color": " black ", "memory": "128GB", "ignored": "x"}

	product, err := svc.CreateProduct(input, nil)
	require.NoError(t, err)

	assert.Equal(t, "Pixel", product.Name)
	assert.Equal(t, []string{"android"}, product.Tags)
	assert.Equal(t, "black", product.Attributes["color"])
	assert.Equal(t, "128GB", product.Attributes["memory"])
	assert.NotContains(t, product.Attributes, "ignored")
	assert.Equal(t, "450.00", product.EndUserPrice.StringFixed(2))
	assert.Equal(t, "200.00", product.Profit.StringFixed(2))
	assert.True(t, product.IsActive)

	require.NotNil(t, product.Gallery)
	assert.Equal(t, "Pixel_gallery", product.Gallery.Title)

	var galleries int64
	db.Model(&models.Gallery{}).Count(&galleries)
	assert.EqualValues(t, 1, galleries)
}

func TestCreateProductValidation(t *testing.T) {
	_, repos, svc := setupProductService(t)
	categories := NewCategoryService(repos, nil, testutil.Logger())
	phones, err := categories.CreateCategory(CategoryInput{Name: "Phones", Filters: []string{"color"}})
	require.NoError(t, err)

	input := priced("Pixel", "500.00")
	input.CategoryID = &phones.ID
	_, err = svc.CreateProduct(input, nil)
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Contains(t, validationErr.Fields, "attributes.color")
	assert.ErrorIs(t, err, ErrCategoryForm)

	bad := priced("", "10.00")
	bad.Stock = -1
	bad.DiscountPercent = 90
	_, err = svc.CreateProduct(bad, nil)
	require.True(t, errors.As(err, &validationErr))
	assert.Contains(t, validationErr.Fields, "name")
	assert.Contains(t, validationErr.Fields, "stock")
	assert.Contains(t, validationErr.Fields, "discount_percent")

	_, err = svc.CreateProduct(priced("Mug", "5.00"), nil)
	require.NoError(t, err)
	_, err = svc.CreateProduct(priced("Mug", "6.00"), nil)
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestUnpricedProductIsInactive(t *testing.T) {
	_, _, svc := setupProductService(t)

	product, err := svc.CreateProduct(priced("Freebie", "0"), nil)
	require.NoError(t, err)
	assert.False(t, product.IsActive)

	_, err = svc.SetActive(product.ID, true)
	assert.ErrorIs(t, err, ErrStatusUnchanged)
}

func TestMissingCategoryFallsBackToDeleted(t *testing.T) {
	_, _, svc := setupProductService(t)
	missing := uint(4242)

	input := priced("Orphan", "3.00")
	input.CategoryID = &missing
	product, err := svc.CreateProduct(input, nil)
	require.NoError(t, err)

	require.NotNil(t, product.Category)
	assert.Equal(t, models.DeletedName, product.Category.Name)
}

func TestRenameProductRenamesGallery(t *testing.T) {
	_, _, svc := setupProductService(t)
	product, err := svc.CreateProduct(priced("Mug", "5.00"), nil)
	require.NoError(t, err)
	_, err = svc.AddPhoto(product.ID, "products/mug-front.jpg")
	require.NoError(t, err)
	_, err = svc.AddPhoto(product.ID, "products/mug-back.jpg")
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(product.ID, priced("Cup", "5.00"))
	require.NoError(t, err)

	require.NotNil(t, updated.Gallery)
	assert.Equal(t, "Cup_gallery", updated.Gallery.Title)
	require.Len(t, updated.Gallery.Photos, 2)
	assert.Equal(t, "Cup_1", updated.Gallery.Photos[0].Title)
	assert.Equal(t, "Cup_2", updated.Gallery.Photos[1].Title)
}

func TestPhotoLifecycle(t *testing.T) {
	_, _, svc := setupProductService(t)
	product, err := svc.CreateProduct(priced("Lamp", "20.00"), nil)
	require.NoError(t, err)

	first, err := svc.AddPhoto(product.ID, "products/lamp-1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "Lamp_1", first.Title)
	second, err := svc.AddPhoto(product.ID, "products/lamp-2.jpg")
	require.NoError(t, err)
	assert.Equal(t, "Lamp_2", second.Title)

	got, err := svc.GetProduct(product.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MainPhotoID)
	assert.Equal(t, first.ID, *got.MainPhotoID)

	got, err = svc.SetMainPhoto(product.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, *got.MainPhotoID)

	_, err = svc.SetMainPhoto(product.ID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.DeletePhoto(product.ID, "Lamp_7"), ErrAmbiguousPhoto)
	_, err = svc.AddPhoto(product.ID, "  ")
	assert.ErrorIs(t, err, ErrPhotoForm)

	require.NoError(t, svc.DeletePhoto(product.ID, "Lamp_1"))
	got, err = svc.GetProduct(product.ID)
	require.NoError(t, err)
	require.Len(t, got.Gallery.Photos, 1)
	assert.Equal(t, "Lamp_1", got.Gallery.Photos[0].Title)
	assert.Equal(t, "products/lamp-2.jpg", got.Gallery.Photos[0].Image)

	third, err := svc.AddPhoto(product.ID, "products/lamp-3.jpg")
	require.NoError(t, err)
	assert.Equal(t, "Lamp_2", third.Title)
}

func TestSetActiveTogglesOnce(t *testing.T) {
	_, _, svc := setupProductService(t)
	product, err := svc.CreateProduct(priced("Chair", "40.00"), nil)
	require.NoError(t, err)

	_, err = svc.SetActive(product.ID, true)
	assert.ErrorIs(t, err, ErrStatusUnchanged)

	off, err := svc.SetActive(product.ID, false)
	require.NoError(t, err)
	assert.False(t, off.IsActive)

	_, err = svc.SetActive(product.ID, false)
	assert.ErrorIs(t, err, ErrStatusUnchanged)

	on, err := svc.SetActive(product.ID, true)
	require.NoError(t, err)
	assert.True(t, on.IsActive)

	_, err = svc.SetActive(999, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProductMovesLinesToDeletedProduct(t *testing.T) {
	db, repos, svc := setupProductService(t)
	orders := NewOrderService(repos, testutil.Logger())
	user := testutil.SeedUser(t, db, "buyer", models.RoleCustomer)
	order, err := orders.EnsureCurrentOrder(user)
	require.NoError(t, err)

	product, err := svc.CreateProduct(priced("Desk", "100.00"), nil)
	require.NoError(t, err)
	_, err = svc.AddPhoto(product.ID, "products/desk.jpg")
	require.NoError(t, err)
	line, err := orders.AddLine(order.ID, product.ID, 2)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(product.ID))

	_, err = svc.GetProduct(product.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var moved models.OrderLine
	require.NoError(t, db.First(&moved, line.ID).Error)
	var sentinel models.Product
	require.NoError(t, db.First(&sentinel, moved.ProductID).Error)
	assert.Equal(t, models.DeletedName, sentinel.Name)
	assert.Equal(t, 2, moved.Quantity)

	var photos int64
	db.Model(&models.Photo{}).Where("gallery_id = ?", *product.GalleryID).Count(&photos)
	assert.Zero(t, photos)

	err = svc.DeleteProduct(sentinel.ID)
	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestListProductsFilters(t *testing.T) {
	db, _, svc := setupProductService(t)
	category := testutil.SeedCategory(t, db, "Kitchen", nil)

	tagged := priced("Kettle", "30.00")
	tagged.CategoryID = &category.ID
	tagged.Tags = []string{"sale"}
	_, err := svc.CreateProduct(tagged, nil)
	require.NoError(t, err)
	_, err = svc.CreateProduct(priced("Broom", "8.00"), nil)
	require.NoError(t, err)
	hidden, err := svc.CreateProduct(priced("Toaster", "25.00"), nil)
	require.NoError(t, err)
	_, err = svc.SetActive(hidden.ID, false)
	require.NoError(t, err)

	active, err := svc.ListProducts(repository.ProductFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	byCategory, err := svc.ListProducts(repository.ProductFilter{CategoryID: &category.ID})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "Kettle", byCategory[0].Name)

	byTag, err := svc.ListProducts(repository.ProductFilter{Tag: "sale"})
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, "Kettle", byTag[0].Name)
}

func TestExportProducts(t *testing.T) {
	db, _, svc := setupProductService(t)
	category := testutil.SeedCategory(t, db, "Garden", nil)
	input := priced("Rake", "12.00")
	input.CategoryID = &category.ID
	_, err := svc.CreateProduct(input, nil)
	require.NoError(t, err)

	f, err := svc.ExportProducts()
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Products")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, productExportHeaders, rows[0])
	assert.Equal(t, "Rake", rows[1][1])
	assert.Equal(t, "Garden", rows[1][2])
	assert.Equal(t, "yes", rows[1][10])
}

func TestDeleteProductsSharingAnOrderKeepOneDeletedLine(t *testing.T) {
	db, repos, svc := setupProductService(t)
	orders := NewOrderService(repos, testutil.Logger())
	user := testutil.SeedUser(t, db, "buyer", models.RoleCustomer)
	order, err := orders.EnsureCurrentOrder(user)
	require.NoError(t, err)

	desk, err := svc.CreateProduct(priced("Desk", "100.00"), nil)
	require.NoError(t, err)
	chair, err := svc.CreateProduct(priced("Chair", "40.00"), nil)
	require.NoError(t, err)
	lamp, err := svc.CreateProduct(priced("Lamp", "15.00"), nil)
	require.NoError(t, err)
	for _, p := range []*models.Product{desk, chair, lamp} {
		_, err := orders.AddLine(order.ID, p.ID, 2)
		require.NoError(t, err)
	}
	before := assertOrderTotals(t, db, order.ID)

	require.NoError(t, svc.DeleteProduct(desk.ID))
	require.NoError(t, svc.DeleteProduct(chair.ID))

	lines, err := repos.OrderLine.GetByOrderID(order.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	sentinel, err := repos.Product.GetByName(models.DeletedName)
	require.NoError(t, err)
	assert.Equal(t, sentinel.ID, lines[0].ProductID)
	assert.Equal(t, 4, lines[0].Quantity)
	assert.Equal(t, "280.00", lines[0].SellingPrice.StringFixed(2))
	assert.Equal(t, 1, lines[0].LineNumber)
	assert.Equal(t, lamp.ID, lines[1].ProductID)
	assert.Equal(t, 2, lines[1].LineNumber)

	after := assertOrderTotals(t, db, order.ID)
	assert.True(t, before.EndUserPrice.Equal(after.EndUserPrice))
	assert.Equal(t, before.ItemsTotal, after.ItemsTotal)
}
