package services

import (
	"errors"
	"fmt"
	"time"

	"glyke/internal/models"
	"glyke/internal/repository"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type CheckService interface {
	IssueCheck(orderID uint) (*models.Check, error)
	GetCheck(id uint) (*models.Check, error)
	GetCheckForOrder(orderID uint) (*models.Check, error)
	ListCustomerChecks(customerID uint) ([]models.Check, error)
}

type checkService struct {
	repos *repository.Repositories
	log   zerolog.Logger
	now   func() time.Time
}

func NewCheckService(repos *repository.Repositories, log zerolog.Logger) CheckService {
	return &checkService{
		repos: repos,
		log:   log.With().Str("component", "checks").Logger(),
		now:   time.Now,
	}
}

// IssueCheck copies the order lines into a new receipt. An order gets at most
// one check; issuing again returns the existing one.
func (s *checkService) IssueCheck(orderID uint) (*models.Check, error) {
	var check *models.Check
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		var err error
		check, err = s.issue(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return check, nil
}

func (s *checkService) issue(tx *repository.Repositories, orderID uint) (*models.Check, error) {
	existing, err := tx.Check.GetByOrderID(orderID)
	if err == nil {
		return tx.Check.GetByID(existing.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	order, err := tx.Order.GetWithLines(orderID)
	if err != nil {
		return nil, notFound(err)
	}

	username := ""
	if order.Customer != nil {
		username = order.Customer.Username
	}
	check := &models.Check{
		Number:     models.NewNumber(username, s.now()),
		OrderID:    &order.ID,
		CustomerID: order.CustomerID,
	}
	if err := tx.Check.Create(check); err != nil {
		return nil, fmt.Errorf("failed to create check: %w", err)
	}

	prices := make([]models.Price, 0, len(order.Lines))
	quantities := make([]int, 0, len(order.Lines))
	for i, ol := range order.Lines {
		line := &models.CheckLine{
			CheckID:    check.ID,
			LineNumber: i + 1,
			ProductID:  ol.ProductID,
			Quantity:   ol.Quantity,
			Price:      ol.Price,
		}
		if err := tx.Check.CreateLine(line); err != nil {
			return nil, fmt.Errorf("failed to create check line: %w", err)
		}
		prices = append(prices, line.Price)
		quantities = append(quantities, line.Quantity)
	}

	check.Totals = models.SumLines(prices, quantities)
	if err := tx.Check.Update(check); err != nil {
		return nil, fmt.Errorf("failed to save check totals: %w", err)
	}

	s.log.Info().Uint("order_id", orderID).Str("number", check.Number).
		Int("lines", len(prices)).Msg("check issued")
	return tx.Check.GetByID(check.ID)
}

func (s *checkService) GetCheck(id uint) (*models.Check, error) {
	check, err := s.repos.Check.GetByID(id)
	if err != nil {
		return nil, notFound(err)
	}
	return check, nil
}

func (s *checkService) GetCheckForOrder(orderID uint) (*models.Check, error) {
	check, err := s.repos.Check.GetByOrderID(orderID)
	if err != nil {
		return nil, notFound(err)
	}
	return s.GetCheck(check.ID)
}

func (s *checkService) ListCustomerChecks(customerID uint) ([]models.Check, error) {
	return s.repos.Check.GetByCustomer(customerID)
}
