package services

import (
	"errors"
	"strings"
	"testing"

	"glyke/internal/models"
	"glyke/internal/repository"
	"glyke/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type orderFixture struct {
	db    *gorm.DB
	repos *repository.Repositories
	svc   OrderService
	user  *models.User
	order *models.Order
}

func setupOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewOrderService(repos, testutil.Logger())
	user := testutil.SeedUser(t, db, "customer", models.RoleCustomer)
	order, err := svc.EnsureCurrentOrder(user)
	require.NoError(t, err)
	return &orderFixture{db: db, repos: repos, svc: svc, user: user, order: order}
}

func (f *orderFixture) lines(t *testing.T) []models.OrderLine {
	t.Helper()
	lines, err := f.repos.OrderLine.GetByOrderID(f.order.ID)
	require.NoError(t, err)
	return lines
}

// assertOrderTotals checks the stored order against the sums of its lines.
func assertOrderTotals(t *testing.T, db *gorm.DB, orderID uint) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, db.First(&order, orderID).Error)
	var lines []models.OrderLine
	require.NoError(t, db.Where("order_id = ?", orderID).Find(&lines).Error)

	cost, selling, end := decimal.Zero, decimal.Zero, decimal.Zero
	items := 0
	for _, l := range lines {
		cost = cost.Add(l.CostPrice)
		selling = selling.Add(l.SellingPrice)
		end = end.Add(l.EndUserPrice)
		items += l.Quantity
	}
	assert.True(t, cost.Equal(order.CostPrice), "cost %s != %s", cost, order.CostPrice)
	assert.True(t, selling.Equal(order.SellingPrice), "selling %s != %s", selling, order.SellingPrice)
	assert.True(t, end.Equal(order.EndUserPrice), "end user %s != %s", end, order.EndUserPrice)
	assert.True(t, end.Sub(cost).Equal(order.Profit), "profit %s", order.Profit)
	assert.Equal(t, items, order.ItemsTotal)
	return order
}

func TestEnsureCurrentOrderIsIdempotent(t *testing.T) {
	f := setupOrderFixture(t)

	again, err := f.svc.EnsureCurrentOrder(f.user)
	require.NoError(t, err)
	assert.Equal(t, f.order.ID, again.ID)

	n, err := f.repos.Order.CountByCustomerAndStatus(f.user.ID, string(models.OrderCurrent))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.True(t, strings.HasPrefix(f.order.Number, "custo_"))
}

func TestAddLineMergesDuplicateProduct(t *testing.T) {
	f := setupOrderFixture(t)
	p := testutil.SeedProduct(t, f.db, "Mug", "10.00", 0, 20)

	_, err := f.svc.AddLine(f.order.ID, p.ID, 2)
	require.NoError(t, err)
	line, err := f.svc.AddLine(f.order.ID, p.ID, 3)
	require.NoError(t, err)

	lines := f.lines(t)
	require.Len(t, lines, 1)
	assert.Equal(t, line.ID, lines[0].ID)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.Equal(t, 1, lines[0].LineNumber)
	assert.Equal(t, "50.00", lines[0].SellingPrice.StringFixed(2))

	order := assertOrderTotals(t, f.db, f.order.ID)
	assert.Equal(t, 5, order.ItemsTotal)
}

func TestAddLineScalesProductPrice(t *testing.T) {
	f := setupOrderFixture(t)
	p := testutil.SeedProduct(t, f.db, "Lamp", "19.99", 50, 20)

	line, err := f.svc.AddLine(f.order.ID, p.ID, 3)
	require.NoError(t, err)

	assert.Equal(t, "59.97", line.SellingPrice.StringFixed(2))
	assert.Equal(t, 50, line.DiscountPercent)
	assert.Equal(t, "29.99", line.EndUserPrice.StringFixed(2))
	assert.Equal(t, "30.00", line.CostPrice.StringFixed(2))
	assertOrderTotals(t, f.db, f.order.ID)
}

func TestAddLineRejectsBadQuantity(t *testing.T) {
	f := setupOrderFixture(t)
	p := testutil.SeedProduct(t, f.db, "Mug", "10.00", 0, 20)

	_, err := f.svc.AddLine(f.order.ID, p.ID, 0)
	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))

	_, err = f.svc.AddLine(f.order.ID, 999, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteLineRenumbersRemainingLines(t *testing.T) {
	f := setupOrderFixture(t)
	var productIDs []uint
	for _, name := range []string{"P1", "P2", "P3", "P4"} {
		p := testutil.SeedProduct(t, f.db, name, "5.00", 0, 10)
		_, err := f.svc.AddLine(f.order.ID, p.ID, 1)
		require.NoError(t, err)
		productIDs = append(productIDs, p.ID)
	}

	lines := f.lines(t)
	require.Len(t, lines, 4)
	_, err := f.svc.DeleteLine(lines[1].ID)
	require.NoError(t, err)

	lines = f.lines(t)
	require.Len(t, lines, 3)
	for i, l := range lines {
		assert.Equal(t, i+1, l.LineNumber)
	}
	assert.Equal(t, productIDs[0], lines[0].ProductID)
	assert.Equal(t, productIDs[2], lines[1].ProductID)
	assert.Equal(t, productIDs[3], lines[2].ProductID)
	assertOrderTotals(t, f.db, f.order.ID)
}

func TestOrderTotalsFollowEveryLineChange(t *testing.T) {
	f := setupOrderFixture(t)
	a := testutil.SeedProduct(t, f.db, "A", "12.35", 1, 50)
	b := testutil.SeedProduct(t, f.db, "B", "3.33", 80, 50)

	_, err := f.svc.AddLine(f.order.ID, a.ID, 2)
	require.NoError(t, err)
	assertOrderTotals(t, f.db, f.order.ID)

	lineB, err := f.svc.AddLine(f.order.ID, b.ID, 7)
	require.NoError(t, err)
	assertOrderTotals(t, f.db, f.order.ID)

	_, err = f.svc.UpdateLineQuantity(lineB.ID, 4)
	require.NoError(t, err)
	assertOrderTotals(t, f.db, f.order.ID)

	_, err = f.svc.DeleteLine(lineB.ID)
	require.NoError(t, err)
	order := assertOrderTotals(t, f.db, f.order.ID)
	assert.Equal(t, 2, order.ItemsTotal)

	cleared, err := f.svc.ClearOrder(f.order.ID)
	require.NoError(t, err)
	assert.Empty(t, cleared.Lines)
	order = assertOrderTotals(t, f.db, f.order.ID)
	assert.True(t, order.SellingPrice.IsZero())
}

func TestUpdateCartQuantitiesAndRemovals(t *testing.T) {
	f := setupOrderFixture(t)
	p1 := testutil.SeedProduct(t, f.db, "P1", "10.00", 0, 10)
	p2 := testutil.SeedProduct(t, f.db, "P2", "20.00", 0, 10)
	_, err := f.svc.AddLine(f.order.ID, p1.ID, 2)
	require.NoError(t, err)
	_, err = f.svc.AddLine(f.order.ID, p2.ID, 1)
	require.NoError(t, err)

	order, err := f.svc.UpdateCart(f.user.ID, CartUpdate{
		ProductIDs: []uint{p1.ID},
		Quantities: map[int][]string{1: {"5"}},
	})
	require.NoError(t, err)

	require.Len(t, order.Lines, 1)
	assert.Equal(t, p1.ID, order.Lines[0].ProductID)
	assert.Equal(t, 5, order.Lines[0].Quantity)
	assert.Equal(t, "50.00", order.Lines[0].SellingPrice.StringFixed(2))
	assertOrderTotals(t, f.db, f.order.ID)
}

func TestUpdateCartLeavesAmbiguousInputAlone(t *testing.T) {
	f := setupOrderFixture(t)
	p1 := testutil.SeedProduct(t, f.db, "P1", "10.00", 0, 3)
	p2 := testutil.SeedProduct(t, f.db, "P2", "20.00", 0, 10)
	p3 := testutil.SeedProduct(t, f.db, "P3", "30.00", 0, 10)
	for _, p := range []*models.Product{p1, p2, p3} {
		_, err := f.svc.AddLine(f.order.ID, p.ID, 1)
		require.NoError(t, err)
	}

	order, err := f.svc.UpdateCart(f.user.ID, CartUpdate{
		ProductIDs: []uint{p1.ID, p2.ID, p3.ID},
		Quantities: map[int][]string{
			1: {"4"},      // above stock
			2: {"2", "3"}, // two values
			3: {"abc"},    // not a number
		},
	})
	require.NoError(t, err)

	require.Len(t, order.Lines, 3)
	for _, l := range order.Lines {
		assert.Equal(t, 1, l.Quantity)
	}
}

func TestUpdateCartWithoutProductListKeepsLines(t *testing.T) {
	f := setupOrderFixture(t)
	p1 := testutil.SeedProduct(t, f.db, "P1", "10.00", 0, 10)
	p2 := testutil.SeedProduct(t, f.db, "P2", "20.00", 0, 10)
	_, err := f.svc.AddLine(f.order.ID, p1.ID, 1)
	require.NoError(t, err)
	_, err = f.svc.AddLine(f.order.ID, p2.ID, 1)
	require.NoError(t, err)

	order, err := f.svc.UpdateCart(f.user.ID, CartUpdate{Quantities: map[int][]string{2: {"3"}}})
	require.NoError(t, err)

	require.Len(t, order.Lines, 2)
	assert.Equal(t, 3, order.Lines[1].Quantity)
	assertOrderTotals(t, f.db, f.order.ID)
}

func TestUpdateCartUsesSubmittedLineNumbersBeforeRenumbering(t *testing.T) {
	f := setupOrderFixture(t)
	var products []*models.Product
	for _, name := range []string{"P1", "P2", "P3"} {
		p := testutil.SeedProduct(t, f.db, name, "1.00", 0, 10)
		_, err := f.svc.AddLine(f.order.ID, p.ID, 1)
		require.NoError(t, err)
		products = append(products, p)
	}

	// drop line 1 and set line 3 to 7; line 3 becomes line 2 afterwards
	order, err := f.svc.UpdateCart(f.user.ID, CartUpdate{
		ProductIDs: []uint{products[1].ID, products[2].ID},
		Quantities: map[int][]string{2: {"1"}, 3: {"7"}},
	})
	require.NoError(t, err)

	require.Len(t, order.Lines, 2)
	assert.Equal(t, 1, order.Lines[0].LineNumber)
	assert.Equal(t, products[1].ID, order.Lines[0].ProductID)
	assert.Equal(t, 2, order.Lines[1].LineNumber)
	assert.Equal(t, 7, order.Lines[1].Quantity)
}

func TestCartWithoutCurrentOrder(t *testing.T) {
	f := setupOrderFixture(t)
	stranger := testutil.SeedUser(t, f.db, "stranger", models.RoleCustomer)

	_, err := f.svc.UpdateCart(stranger.ID, CartUpdate{})
	assert.ErrorIs(t, err, ErrNoCurrentOrder)
	_, err = f.svc.GetCurrentOrder(stranger.ID)
	assert.ErrorIs(t, err, ErrNoCurrentOrder)
	_, err = f.svc.AddToCart(stranger.ID, 1, 1)
	assert.ErrorIs(t, err, ErrNoCurrentOrder)
}

func TestCheckoutOpensNewCurrentOrder(t *testing.T) {
	f := setupOrderFixture(t)
	p := testutil.SeedProduct(t, f.db, "Mug", "10.00", 0, 10)

	_, err := f.svc.Checkout(f.user.ID)
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr), "empty cart must not check out")

	_, err = f.svc.AddToCart(f.user.ID, p.ID, 2)
	require.NoError(t, err)
	placed, err := f.svc.Checkout(f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, string(models.OrderPending), placed.Status)

	current, err := f.svc.GetCurrentOrder(f.user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, placed.ID, current.ID)
	assert.Empty(t, current.Lines)
}

func TestChangeStatusToCompletedIssuesCheck(t *testing.T) {
	f := setupOrderFixture(t)
	a := testutil.SeedProduct(t, f.db, "A", "10.00", 50, 10)
	b := testutil.SeedProduct(t, f.db, "B", "2.50", 0, 10)
	_, err := f.svc.AddToCart(f.user.ID, a.ID, 1)
	require.NoError(t, err)
	_, err = f.svc.AddToCart(f.user.ID, b.ID, 4)
	require.NoError(t, err)

	order, err := f.svc.ChangeStatus(f.order.ID, models.OrderCompleted)
	require.NoError(t, err)
	assert.Equal(t, string(models.OrderCompleted), order.Status)

	checks := NewCheckService(f.repos, testutil.Logger())
	check, err := checks.GetCheckForOrder(f.order.ID)
	require.NoError(t, err)
	require.Len(t, check.Lines, 2)
	assert.Equal(t, 1, check.Lines[0].LineNumber)
	assert.Equal(t, 2, check.Lines[1].LineNumber)
	assert.True(t, check.EndUserPrice.Equal(order.EndUserPrice))
	assert.Equal(t, 5, check.ItemsTotal)
	assert.True(t, strings.HasPrefix(check.Number, "custo_"))

	// completing again does not issue a second check
	_, err = f.svc.ChangeStatus(f.order.ID, models.OrderArchived)
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(f.order.ID, models.OrderCompleted)
	require.NoError(t, err)
	all, err := checks.ListCustomerChecks(f.user.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestChangeStatusValidation(t *testing.T) {
	f := setupOrderFixture(t)

	_, err := f.svc.ChangeStatus(f.order.ID, models.OrderStatus("bogus"))
	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))

	_, err = f.svc.ChangeStatus(999, models.OrderPending)
	assert.ErrorIs(t, err, ErrNotFound)

	second := testutil.SeedOrder(t, f.db, f.user, models.OrderCanceled)
	_, err = f.svc.ChangeStatus(second.ID, models.OrderCurrent)
	assert.True(t, errors.As(err, &validationErr), "a second current order must be refused")
}

func TestListOrdersByStatus(t *testing.T) {
	f := setupOrderFixture(t)
	testutil.SeedOrder(t, f.db, f.user, models.OrderCanceled)

	current, err := f.svc.ListOrders(string(models.OrderCurrent))
	require.NoError(t, err)
	assert.Len(t, current, 1)

	all, err := f.svc.ListOrders("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCompactLineNumbers(t *testing.T) {
	lines := []models.OrderLine{
		{ID: 10, LineNumber: 1},
		{ID: 11, LineNumber: 3},
		{ID: 12, LineNumber: 4},
		{ID: 13, LineNumber: 7},
	}
	assert.Equal(t, map[uint]int{11: 2, 12: 3, 13: 4}, compactLineNumbers(lines))
	assert.Empty(t, compactLineNumbers(lines[:1]))
}
