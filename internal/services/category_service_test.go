package services

import (
	"errors"
	"sort"
	"testing"

	"glyke/internal/models"
	"glyke/internal/repository"
	"glyke/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCategoryService(t *testing.T) (CategoryService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return NewCategoryService(repository.NewRepositories(db), nil, testutil.Logger()), db
}

func mustCreateCategory(t *testing.T, svc CategoryService, name string, parentID *uint) *models.Category {
	t.Helper()
	c, err := svc.CreateCategory(CategoryInput{Name: name, ParentID: parentID})
	require.NoError(t, err)
	return c
}

func reload(t *testing.T, db *gorm.DB, id uint) models.Category {
	t.Helper()
	var c models.Category
	require.NoError(t, db.First(&c, id).Error)
	return c
}

// assertDenseOrdering checks that active categories hold 1..N exactly once.
func assertDenseOrdering(t *testing.T, db *gorm.DB) {
	t.Helper()
	var categories []models.Category
	require.NoError(t, db.Where("is_active = ?", true).Find(&categories).Error)

	got := make([]int, 0, len(categories))
	for _, c := range categories {
		got = append(got, c.OrderingIndex)
	}
	sort.Ints(got)
	for i, idx := range got {
		assert.Equal(t, i+1, idx, "ordering indexes %v are not dense", got)
	}
}

func orderedNames(t *testing.T, svc CategoryService) []string {
	t.Helper()
	categories, err := svc.ListCategories()
	require.NoError(t, err)
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}
	return names
}

func TestCreateCategorySetsChildLevel(t *testing.T) {
	svc, db := setupCategoryService(t)

	a := mustCreateCategory(t, svc, "A", nil)
	b := mustCreateCategory(t, svc, "B", &a.ID)
	c := mustCreateCategory(t, svc, "C", &b.ID)

	assert.Equal(t, 0, reload(t, db, a.ID).ChildLevel)
	assert.Equal(t, 1, reload(t, db, b.ID).ChildLevel)
	assert.Equal(t, 2, reload(t, db, c.ID).ChildLevel)
	assert.Equal(t, models.DefaultCategoryPicture, a.Picture)
	assert.True(t, a.IsActive)
}

func TestDeleteCategoryReparentsChildren(t *testing.T) {
	svc, db := setupCategoryService(t)

	a := mustCreateCategory(t, svc, "A", nil)
	b := mustCreateCategory(t, svc, "B", &a.ID)
	c := mustCreateCategory(t, svc, "C", &b.ID)
	d := mustCreateCategory(t, svc, "D", &c.ID)

	require.NoError(t, svc.DeleteCategory(b.ID))

	gotC := reload(t, db, c.ID)
	require.NotNil(t, gotC.ParentID)
	assert.Equal(t, a.ID, *gotC.ParentID)
	assert.Equal(t, 1, gotC.ChildLevel)
	assert.Equal(t, 2, reload(t, db, d.ID).ChildLevel)

	_, err := svc.GetCategory(b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assertDenseOrdering(t, db)
	assert.Equal(t, []string{"A", "C", "D"}, orderedNames(t, svc))
}

func TestDeleteRootCategoryPromotesChildren(t *testing.T) {
	svc, db := setupCategoryService(t)
	repos := repository.NewRepositories(db)

	root := mustCreateCategory(t, svc, "Root", nil)
	child := mustCreateCategory(t, svc, "Child", &root.ID)
	product := testutil.SeedProduct(t, db, "Lamp", "10.00", 0, 5)
	require.NoError(t, db.Model(product).UpdateColumn("category_id", root.ID).Error)

	require.NoError(t, svc.DeleteCategory(root.ID))

	gotChild := reload(t, db, child.ID)
	assert.Nil(t, gotChild.ParentID)
	assert.Equal(t, 0, gotChild.ChildLevel)

	gotProduct, err := repos.Product.GetByID(product.ID)
	require.NoError(t, err)
	assert.Nil(t, gotProduct.CategoryID)

	_, err = repos.Category.GetByName(models.DeletedName)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assertDenseOrdering(t, db)
}

func TestDeleteCategoryMovesProductsToParent(t *testing.T) {
	svc, db := setupCategoryService(t)

	a := mustCreateCategory(t, svc, "A", nil)
	b := mustCreateCategory(t, svc, "B", &a.ID)
	product := testutil.SeedProduct(t, db, "Chair", "40.00", 0, 1)
	require.NoError(t, db.Model(product).UpdateColumn("category_id", b.ID).Error)

	require.NoError(t, svc.DeleteCategory(b.ID))

	var got models.Product
	require.NoError(t, db.First(&got, product.ID).Error)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, a.ID, *got.CategoryID)
}

func TestOrderingIndexFollowsPreorderByName(t *testing.T) {
	svc, db := setupCategoryService(t)

	garden := mustCreateCategory(t, svc, "Garden", nil)
	books := mustCreateCategory(t, svc, "Books", nil)
	mustCreateCategory(t, svc, "Tools", &garden.ID)
	mustCreateCategory(t, svc, "Plants", &garden.ID)
	fiction := mustCreateCategory(t, svc, "Fiction", &books.ID)
	mustCreateCategory(t, svc, "Crime", &fiction.ID)

	assert.Equal(t, []string{"Books", "Fiction", "Crime", "Garden", "Plants", "Tools"}, orderedNames(t, svc))
	assertDenseOrdering(t, db)

	// renaming moves the subtree with it
	_, err := svc.UpdateCategory(books.ID, CategoryInput{Name: "Zines"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Garden", "Plants", "Tools", "Zines", "Fiction", "Crime"}, orderedNames(t, svc))
	assertDenseOrdering(t, db)
}

func TestInactiveCategoryHidesSubtree(t *testing.T) {
	svc, db := setupCategoryService(t)

	a := mustCreateCategory(t, svc, "A", nil)
	b := mustCreateCategory(t, svc, "B", &a.ID)
	mustCreateCategory(t, svc, "C", &b.ID)
	mustCreateCategory(t, svc, "D", nil)

	inactive := false
	_, err := svc.UpdateCategory(b.ID, CategoryInput{Name: "B", ParentID: &a.ID, IsActive: &inactive})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "D"}, orderedNames(t, svc))
	assert.Equal(t, 0, reload(t, db, b.ID).OrderingIndex)
}

func TestUpdateCategoryKeepsDescendantLevels(t *testing.T) {
	svc, db := setupCategoryService(t)

	a := mustCreateCategory(t, svc, "A", nil)
	b := mustCreateCategory(t, svc, "B", &a.ID)
	c := mustCreateCategory(t, svc, "C", &b.ID)

	// moving B to the top fixes B only
	_, err := svc.UpdateCategory(b.ID, CategoryInput{Name: "B"})
	require.NoError(t, err)

	assert.Equal(t, 0, reload(t, db, b.ID).ChildLevel)
	assert.Equal(t, 2, reload(t, db, c.ID).ChildLevel)
	assertDenseOrdering(t, db)
}

func TestUpdateCategoryRejectsCycle(t *testing.T) {
	svc, _ := setupCategoryService(t)

	a := mustCreateCategory(t, svc, "A", nil)
	b := mustCreateCategory(t, svc, "B", &a.ID)

	_, err := svc.UpdateCategory(a.ID, CategoryInput{Name: "A", ParentID: &b.ID})
	assert.ErrorIs(t, err, ErrCategoryCycle)

	_, err = svc.UpdateCategory(a.ID, CategoryInput{Name: "A", ParentID: &a.ID})
	assert.ErrorIs(t, err, ErrCategoryCycle)
}

func TestCreateCategoryValidation(t *testing.T) {
	svc, _ := setupCategoryService(t)
	mustCreateCategory(t, svc, "Shoes", nil)

	_, err := svc.CreateCategory(CategoryInput{Name: "Shoes"})
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Contains(t, validationErr.Fields, "name")
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = svc.CreateCategory(CategoryInput{Name: "  "})
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "This field is required.", validationErr.Fields["name"])

	missing := uint(999)
	_, err = svc.CreateCategory(CategoryInput{Name: "Boots", ParentID: &missing})
	require.True(t, errors.As(err, &validationErr))
	assert.Contains(t, validationErr.Fields, "parent_id")
}

func TestRebuildOrderingSkipsCorrectRows(t *testing.T) {
	svc, db := setupCategoryService(t)

	a := mustCreateCategory(t, svc, "A", nil)
	mustCreateCategory(t, svc, "B", nil)

	writes, err := svc.RebuildOrdering()
	require.NoError(t, err)
	assert.Equal(t, 0, writes)

	require.NoError(t, db.Model(&models.Category{}).Where("id = ?", a.ID).UpdateColumn("ordering_index", 7).Error)
	writes, err = svc.RebuildOrdering()
	require.NoError(t, err)
	assert.Equal(t, 1, writes)
	assert.Equal(t, 1, reload(t, db, a.ID).OrderingIndex)
}

func TestCategoryAttributeSchema(t *testing.T) {
	svc, _ := setupCategoryService(t)

	c, err := svc.CreateCategory(CategoryInput{Name: "Phones", Filters: []string{"color", " memory ", "color", ""}})
	require.NoError(t, err)
	assert.Equal(t, []string{"color", "memory"}, c.Filters)

	schema, err := svc.AttributeSchema(c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"color", "memory"}, schema.Names())
	assert.Equal(t, "Color", schema.Fields[0].Label)
}

type fakeCategoryCache struct {
	stored      []models.Category
	hit         bool
	invalidated int
}

func (f *fakeCategoryCache) GetCategories() ([]models.Category, bool, error) {
	return f.stored, f.hit, nil
}

func (f *fakeCategoryCache) SetCategories(categories []models.Category) error {
	f.stored = categories
	f.hit = true
	return nil
}

func (f *fakeCategoryCache) InvalidateCategories() error {
	f.invalidated++
	f.stored = nil
	f.hit = false
	return nil
}

func TestListCategoriesUsesCache(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cache := &fakeCategoryCache{}
	svc := NewCategoryService(repository.NewRepositories(db), cache, testutil.Logger())

	mustCreateCategory(t, svc, "A", nil)
	assert.Equal(t, 1, cache.invalidated)

	first, err := svc.ListCategories()
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, cache.hit)

	// a row written behind the service's back is not seen until invalidation
	testutil.SeedCategory(t, db, "Hidden", nil)
	cached, err := svc.ListCategories()
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	mustCreateCategory(t, svc, "B", nil)
	fresh, err := svc.ListCategories()
	require.NoError(t, err)
	assert.Len(t, fresh, 3)
}
