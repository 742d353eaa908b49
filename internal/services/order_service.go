package services

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"glyke/internal/models"
	"glyke/internal/repository"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// CartUpdate is a submitted cart form. ProductIDs is nil when the form had no
// products_id field at all; Quantities holds every value submitted per line
// number.
type CartUpdate struct {
	ProductIDs []uint
	Quantities map[int][]string
}

type OrderService interface {
	EnsureCurrentOrder(user *models.User) (*models.Order, error)
	OnLogin(user *models.User) error
	GetCurrentOrder(customerID uint) (*models.Order, error)
	GetOrder(id uint) (*models.Order, error)
	AddLine(orderID, productID uint, quantity int) (*models.OrderLine, error)
	AddToCart(customerID, productID uint, quantity int) (*models.Order, error)
	UpdateLineQuantity(lineID uint, quantity int) (*models.Order, error)
	DeleteLine(lineID uint) (*models.Order, error)
	ClearOrder(orderID uint) (*models.Order, error)
	UpdateCart(customerID uint, update CartUpdate) (*models.Order, error)
	Recalculate(orderID uint) (*models.Order, error)
	Checkout(customerID uint) (*models.Order, error)
	ChangeStatus(orderID uint, status models.OrderStatus) (*models.Order, error)
	ListOrders(status string) ([]models.Order, error)
	ListCustomerOrders(customerID uint) ([]models.Order, error)
}

type orderService struct {
	repos  *repository.Repositories
	checks *checkService
	log    zerolog.Logger
	now    func() time.Time
}

func NewOrderService(repos *repository.Repositories, log zerolog.Logger) OrderService {
	return &orderService{
		repos: repos,
		checks: &checkService{
			repos: repos,
			log:   log.With().Str("component", "checks").Logger(),
			now:   time.Now,
		},
		log: log.With().Str("component", "orders").Logger(),
		now: time.Now,
	}
}

// EnsureCurrentOrder returns the customer's current order, creating an empty
// one when there is none.
func (s *orderService) EnsureCurrentOrder(user *models.User) (*models.Order, error) {
	var order *models.Order
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		var err error
		order, err = s.ensureCurrent(tx, user)
		return err
	})
	return order, err
}

// OnLogin keeps the one-current-order-per-customer rule on every sign-in.
func (s *orderService) OnLogin(user *models.User) error {
	_, err := s.EnsureCurrentOrder(user)
	return err
}

func (s *orderService) ensureCurrent(tx *repository.Repositories, user *models.User) (*models.Order, error) {
	order, err := tx.Order.GetCurrentByCustomer(user.ID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	order = &models.Order{
		Number:     models.NewNumber(user.Username, s.now()),
		CustomerID: &user.ID,
		Status:     string(models.OrderCurrent),
		Totals:     models.SumLines(nil, nil),
	}
	if err := tx.Order.Create(order); err != nil {
		return nil, fmt.Errorf("failed to create current order: %w", err)
	}
	s.log.Info().Uint("customer_id", user.ID).Uint("order_id", order.ID).Msg("current order created")
	return order, nil
}

func (s *orderService) GetCurrentOrder(customerID uint) (*models.Order, error) {
	order, err := s.repos.Order.GetCurrentByCustomer(customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoCurrentOrder
		}
		return nil, err
	}
	return s.GetOrder(order.ID)
}

func (s *orderService) GetOrder(id uint) (*models.Order, error) {
	order, err := s.repos.Order.GetWithLines(id)
	if err != nil {
		return nil, notFound(err)
	}
	return order, nil
}

func (s *orderService) AddLine(orderID, productID uint, quantity int) (*models.OrderLine, error) {
	var line *models.OrderLine
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		var err error
		line, err = s.addLine(tx, orderID, productID, quantity)
		if err != nil {
			return err
		}
		_, err = s.recalculate(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (s *orderService) AddToCart(customerID, productID uint, quantity int) (*models.Order, error) {
	var orderID uint
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		order, err := tx.Order.GetCurrentByCustomer(customerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoCurrentOrder
			}
			return err
		}
		orderID = order.ID
		if _, err := s.addLine(tx, order.ID, productID, quantity); err != nil {
			return err
		}
		_, err = s.recalculate(tx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(orderID)
}

// addLine merges quantity into the order's line for the product, or appends a
// new line numbered after the existing ones.
func (s *orderService) addLine(tx *repository.Repositories, orderID, productID uint, quantity int) (*models.OrderLine, error) {
	if quantity < 1 {
		return nil, newValidationError("quantity", "Ensure this value is greater than or equal to 1.")
	}
	if _, err := tx.Order.GetByID(orderID); err != nil {
		return nil, notFound(err)
	}
	product, err := tx.Product.GetByID(productID)
	if err != nil {
		return nil, notFound(err)
	}

	line, err := tx.OrderLine.FindByOrderAndProduct(orderID, productID)
	if err != nil {
		return nil, err
	}
	if line != nil {
		line.Quantity += quantity
		line.ApplyProduct(product)
		if err := tx.OrderLine.Update(line); err != nil {
			return nil, fmt.Errorf("failed to update order line: %w", err)
		}
		return line, nil
	}

	count, err := tx.OrderLine.CountByOrderID(orderID)
	if err != nil {
		return nil, err
	}
	line = &models.OrderLine{
		OrderID:    orderID,
		LineNumber: int(count) + 1,
		ProductID:  productID,
		Quantity:   quantity,
	}
	line.ApplyProduct(product)
	if err := tx.OrderLine.Create(line); err != nil {
		return nil, fmt.Errorf("failed to create order line: %w", err)
	}
	return line, nil
}

func (s *orderService) UpdateLineQuantity(lineID uint, quantity int) (*models.Order, error) {
	var orderID uint
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		if quantity < 1 {
			return newValidationError("quantity", "Ensure this value is greater than or equal to 1.")
		}
		line, err := tx.OrderLine.GetByID(lineID)
		if err != nil {
			return notFound(err)
		}
		orderID = line.OrderID
		product, err := tx.Product.GetByID(line.ProductID)
		if err != nil {
			return notFound(err)
		}
		line.Quantity = quantity
		line.ApplyProduct(product)
		if err := tx.OrderLine.Update(line); err != nil {
			return fmt.Errorf("failed to update order line: %w", err)
		}
		_, err = s.recalculate(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(orderID)
}

func (s *orderService) DeleteLine(lineID uint) (*models.Order, error) {
	var orderID uint
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		line, err := tx.OrderLine.GetByID(lineID)
		if err != nil {
			return notFound(err)
		}
		orderID = line.OrderID
		if err := tx.OrderLine.Delete(lineID); err != nil {
			return fmt.Errorf("failed to delete order line: %w", err)
		}
		_, err = s.recalculate(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(orderID)
}

// ClearOrder removes every line and reports ErrCartNotCleared if any remain.
func (s *orderService) ClearOrder(orderID uint) (*models.Order, error) {
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		if _, err := tx.Order.GetByID(orderID); err != nil {
			return notFound(err)
		}
		if err := tx.OrderLine.DeleteByOrderID(orderID); err != nil {
			return fmt.Errorf("failed to clear order: %w", err)
		}
		order, err := s.recalculate(tx, orderID)
		if err != nil {
			return err
		}
		if order.ItemsTotal != 0 {
			return ErrCartNotCleared
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(orderID)
}

// UpdateCart applies a submitted cart form to the customer's current order.
// A line's quantity changes only when exactly one valid value was sent for it,
// it differs from the current one, and stock covers it. Lines whose product
// is missing from ProductIDs are removed.
func (s *orderService) UpdateCart(customerID uint, update CartUpdate) (*models.Order, error) {
	var orderID uint
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		order, err := tx.Order.GetCurrentByCustomer(customerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoCurrentOrder
			}
			return err
		}
		orderID = order.ID

		lines, err := tx.OrderLine.GetByOrderID(order.ID)
		if err != nil {
			return err
		}

		keep := make(map[uint]bool, len(update.ProductIDs))
		for _, id := range update.ProductIDs {
			keep[id] = true
		}

		for i := range lines {
			line := &lines[i]
			if update.ProductIDs != nil && !keep[line.ProductID] {
				if err := tx.OrderLine.Delete(line.ID); err != nil {
					return fmt.Errorf("failed to delete order line: %w", err)
				}
				continue
			}

			quantity, ok := singleQuantity(update.Quantities[line.LineNumber])
			if !ok || quantity == line.Quantity {
				continue
			}
			product, err := tx.Product.GetByID(line.ProductID)
			if err != nil {
				return notFound(err)
			}
			if quantity > product.Stock {
				continue
			}
			line.Quantity = quantity
			line.ApplyProduct(product)
			if err := tx.OrderLine.Update(line); err != nil {
				return fmt.Errorf("failed to update order line: %w", err)
			}
		}

		_, err = s.recalculate(tx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(orderID)
}

// singleQuantity accepts exactly one submitted value that parses to a
// positive integer.
func singleQuantity(values []string) (int, bool) {
	if len(values) != 1 {
		return 0, false
	}
	q, err := strconv.Atoi(strings.TrimSpace(values[0]))
	if err != nil || q < 1 {
		return 0, false
	}
	return q, true
}

func (s *orderService) Recalculate(orderID uint) (*models.Order, error) {
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		_, err := s.recalculate(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(orderID)
}

// recalculate closes line-number gaps and rebuilds the order totals from its
// lines.
func (s *orderService) recalculate(tx *repository.Repositories, orderID uint) (*models.Order, error) {
	order, err := tx.Order.GetByID(orderID)
	if err != nil {
		return nil, notFound(err)
	}
	lines, err := tx.OrderLine.GetByOrderID(orderID)
	if err != nil {
		return nil, err
	}

	for id, number := range compactLineNumbers(lines) {
		if err := tx.OrderLine.SetLineNumber(id, number); err != nil {
			return nil, fmt.Errorf("failed to renumber order line: %w", err)
		}
	}

	prices := make([]models.Price, len(lines))
	quantities := make([]int, len(lines))
	for i, l := range lines {
		prices[i] = l.Price
		quantities[i] = l.Quantity
	}
	order.Totals = models.SumLines(prices, quantities)
	if err := tx.Order.Update(order); err != nil {
		return nil, fmt.Errorf("failed to save order totals: %w", err)
	}

	s.log.Debug().Uint("order_id", orderID).Int("lines", len(lines)).
		Str("end_user_price", order.EndUserPrice.StringFixed(2)).Msg("order recalculated")
	return order, nil
}

// compactLineNumbers returns the new number of every line whose number must
// change so that the lines read 1..N in their current order.
func compactLineNumbers(lines []models.OrderLine) map[uint]int {
	sorted := make([]models.OrderLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].LineNumber != sorted[j].LineNumber {
			return sorted[i].LineNumber < sorted[j].LineNumber
		}
		return sorted[i].ID < sorted[j].ID
	})

	changes := make(map[uint]int)
	for i, l := range sorted {
		if l.LineNumber != i+1 {
			changes[l.ID] = i + 1
		}
	}
	return changes
}

// Checkout moves the current order to pending and opens a fresh current one.
func (s *orderService) Checkout(customerID uint) (*models.Order, error) {
	var orderID uint
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		order, err := tx.Order.GetCurrentByCustomer(customerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoCurrentOrder
			}
			return err
		}
		order, err = s.recalculate(tx, order.ID)
		if err != nil {
			return err
		}
		if order.ItemsTotal == 0 {
			return newValidationError("order_lines", "The cart is empty.")
		}
		orderID = order.ID

		order.Status = string(models.OrderPending)
		if err := tx.Order.Update(order); err != nil {
			return fmt.Errorf("failed to check out order: %w", err)
		}
		user, err := tx.User.GetByID(customerID)
		if err != nil {
			return notFound(err)
		}
		_, err = s.ensureCurrent(tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("customer_id", customerID).Uint("order_id", orderID).Msg("order checked out")
	return s.GetOrder(orderID)
}

// ChangeStatus moves an order to status; reaching completed issues its check.
func (s *orderService) ChangeStatus(orderID uint, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, newValidationError("status", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", status))
	}

	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		order, err := tx.Order.GetByID(orderID)
		if err != nil {
			return notFound(err)
		}
		if order.Status == string(status) {
			return nil
		}
		if status == models.OrderCurrent && order.CustomerID != nil {
			n, err := tx.Order.CountByCustomerAndStatus(*order.CustomerID, string(models.OrderCurrent))
			if err != nil {
				return err
			}
			if n > 0 {
				return newValidationError("status", "The customer already has a current order.")
			}
		}

		order.Status = string(status)
		if err := tx.Order.Update(order); err != nil {
			return fmt.Errorf("failed to change order status: %w", err)
		}
		if status == models.OrderCompleted {
			if _, err := s.checks.issue(tx, orderID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("order_id", orderID).Str("status", string(status)).Msg("order status changed")
	return s.GetOrder(orderID)
}

// ListOrders lists orders in status, or every order when status is empty.
func (s *orderService) ListOrders(status string) ([]models.Order, error) {
	if status != "" && !models.OrderStatus(status).Valid() {
		return nil, newValidationError("status", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", status))
	}
	return s.repos.Order.GetByStatus(status)
}

func (s *orderService) ListCustomerOrders(customerID uint) ([]models.Order, error) {
	return s.repos.Order.GetByCustomer(customerID)
}
