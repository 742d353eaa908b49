package services

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"glyke/internal/models"
	"glyke/internal/repository"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// CategoryCache stores the active, ordered category listing.
type CategoryCache interface {
	GetCategories() ([]models.Category, bool, error)
	SetCategories(categories []models.Category) error
	InvalidateCategories() error
}

type CategoryInput struct {
	Name        string
	Description string
	ParentID    *uint
	IsActive    *bool
	Picture     string
	Filters     []string
}

type CategoryService interface {
	CreateCategory(input CategoryInput) (*models.Category, error)
	UpdateCategory(id uint, input CategoryInput) (*models.Category, error)
	DeleteCategory(id uint) error
	GetCategory(id uint) (*models.Category, error)
	ListCategories() ([]models.Category, error)
	ListAllCategories() ([]models.Category, error)
	RebuildOrdering() (int, error)
	AttributeSchema(id uint) (AttributeSchema, error)
}

type categoryService struct {
	repos *repository.Repositories
	cache CategoryCache
	log   zerolog.Logger
}

// NewCategoryService builds the category tree maintainer. cache may be nil.
func NewCategoryService(repos *repository.Repositories, cache CategoryCache, log zerolog.Logger) CategoryService {
	return &categoryService{
		repos: repos,
		cache: cache,
		log:   log.With().Str("component", "categories").Logger(),
	}
}

func (s *categoryService) CreateCategory(input CategoryInput) (*models.Category, error) {
	var created *models.Category
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		name := strings.TrimSpace(input.Name)
		if err := validateCategory(tx.Category, 0, name, input.ParentID); err != nil {
			return err
		}

		category := &models.Category{
			Name:        name,
			Description: input.Description,
			ParentID:    input.ParentID,
			IsActive:    input.IsActive == nil || *input.IsActive,
			Picture:     input.Picture,
			Filters:     cleanNames(input.Filters),
		}
		if category.Picture == "" {
			category.Picture = models.DefaultCategoryPicture
		}
		level, err := childLevel(tx.Category, 0, category.ParentID)
		if err != nil {
			return err
		}
		category.ChildLevel = level

		if err := tx.Category.Create(category); err != nil {
			return fmt.Errorf("failed to create category: %w", err)
		}
		if _, err := s.rebuildOrdering(tx.Category); err != nil {
			return err
		}

		created, err = tx.Category.GetByID(category.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate()
	s.log.Info().Uint("category_id", created.ID).Str("name", created.Name).
		Int("child_level", created.ChildLevel).Msg("category created")
	return created, nil
}

func (s *categoryService) UpdateCategory(id uint, input CategoryInput) (*models.Category, error) {
	var updated *models.Category
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		category, err := tx.Category.GetByID(id)
		if err != nil {
			return notFound(err)
		}

		name := strings.TrimSpace(input.Name)
		if err := validateCategory(tx.Category, id, name, input.ParentID); err != nil {
			return err
		}

		renamed := category.Name != name
		reparented := !sameParent(category.ParentID, input.ParentID)
		toggled := input.IsActive != nil && *input.IsActive != category.IsActive

		category.Name = name
		category.Description = input.Description
		category.ParentID = input.ParentID
		if input.IsActive != nil {
			category.IsActive = *input.IsActive
		}
		if input.Picture != "" {
			category.Picture = input.Picture
		}
		if input.Filters != nil {
			category.Filters = cleanNames(input.Filters)
		}

		// Only this node's own chain is walked; descendants keep their levels.
		level, err := childLevel(tx.Category, id, category.ParentID)
		if err != nil {
			return err
		}
		category.ChildLevel = level

		if err := tx.Category.Update(category); err != nil {
			return fmt.Errorf("failed to update category: %w", err)
		}
		if renamed || reparented || toggled {
			if _, err := s.rebuildOrdering(tx.Category); err != nil {
				return err
			}
		}

		updated, err = tx.Category.GetByID(id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate()
	s.log.Info().Uint("category_id", id).Str("name", updated.Name).Msg("category updated")
	return updated, nil
}

// DeleteCategory removes a category after closing the ordering gap, lifting
// its descendants one level, and handing its children and products to its
// parent. Children and products of a deleted root are left without one.
func (s *categoryService) DeleteCategory(id uint) error {
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		category, err := tx.Category.GetByID(id)
		if err != nil {
			return notFound(err)
		}
		if category.Name == models.DeletedName {
			return newValidationError("name", "The deleted-records category cannot be removed.")
		}

		if category.OrderingIndex > 0 {
			if err := tx.Category.CloseOrderingGap(category.OrderingIndex); err != nil {
				return fmt.Errorf("failed to close ordering gap: %w", err)
			}
		}

		all, err := tx.Category.GetAll()
		if err != nil {
			return err
		}
		below := newCategoryForest(all).descendants(id)
		if err := tx.Category.ShiftChildLevel(below, -1); err != nil {
			return fmt.Errorf("failed to lift descendants: %w", err)
		}
		if err := tx.Category.ReassignParent(id, category.ParentID); err != nil {
			return fmt.Errorf("failed to reparent children: %w", err)
		}

		if err := tx.Product.ReassignCategory(id, category.ParentID); err != nil {
			return fmt.Errorf("failed to reassign products: %w", err)
		}

		if err := tx.Category.Delete(id); err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		_, err = s.rebuildOrdering(tx.Category)
		return err
	})
	if err != nil {
		return err
	}

	s.invalidate()
	s.log.Info().Uint("category_id", id).Msg("category deleted")
	return nil
}

func (s *categoryService) GetCategory(id uint) (*models.Category, error) {
	category, err := s.repos.Category.GetByID(id)
	if err != nil {
		return nil, notFound(err)
	}
	return category, nil
}

// ListCategories returns active categories by ordering index.
func (s *categoryService) ListCategories() ([]models.Category, error) {
	if s.cache != nil {
		categories, ok, err := s.cache.GetCategories()
		if err != nil {
			s.log.Warn().Err(err).Msg("category cache read failed")
		} else if ok {
			return categories, nil
		}
	}

	categories, err := s.repos.Category.GetActiveOrdered()
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetCategories(categories); err != nil {
			s.log.Warn().Err(err).Msg("category cache write failed")
		}
	}
	return categories, nil
}

func (s *categoryService) ListAllCategories() ([]models.Category, error) {
	return s.repos.Category.GetAll()
}

// RebuildOrdering renumbers the whole forest and reports how many rows changed.
func (s *categoryService) RebuildOrdering() (int, error) {
	var writes int
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		var err error
		writes, err = s.rebuildOrdering(tx.Category)
		return err
	})
	if err != nil {
		return 0, err
	}
	if writes > 0 {
		s.invalidate()
	}
	return writes, nil
}

func (s *categoryService) AttributeSchema(id uint) (AttributeSchema, error) {
	category, err := s.GetCategory(id)
	if err != nil {
		return AttributeSchema{}, err
	}
	return NewAttributeSchema(category.Filters), nil
}

func (s *categoryService) rebuildOrdering(repo repository.CategoryRepository) (int, error) {
	categories, err := repo.GetAll()
	if err != nil {
		return 0, fmt.Errorf("failed to load categories: %w", err)
	}
	want := newCategoryForest(categories).orderingIndexes()

	writes := 0
	for _, c := range categories {
		if c.OrderingIndex == want[c.ID] {
			continue
		}
		if err := repo.SetOrderingIndex(c.ID, want[c.ID]); err != nil {
			return writes, fmt.Errorf("failed to set ordering index of %d: %w", c.ID, err)
		}
		writes++
	}
	s.log.Debug().Int("categories", len(categories)).Int("writes", writes).Msg("ordering rebuilt")
	return writes, nil
}

func (s *categoryService) invalidate() {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCategories(); err != nil {
		s.log.Warn().Err(err).Msg("category cache invalidation failed")
	}
}

func validateCategory(repo repository.CategoryRepository, self uint, name string, parentID *uint) error {
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
				Fields: map[string]string{"name": "Category with this Name already exists."},
				Err:    ErrDuplicateName,
			}
		}
	}

	if parentID != nil {
		if self != 0 && *parentID == self {
			return &ValidationError{
				Fields: map[string]string{"parent_id": ErrCategoryCycle.Error()},
				Err:    ErrCategoryCycle,
			}
		}
		if _, err := repo.GetByID(*parentID); err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			fields["parent_id"] = "Select a valid choice. That choice is not one of the available choices."
		}
	}
	return validationOrNil(fields)
}

// childLevel counts the ancestors above parentID. Meeting self or any node
// twice means the chain loops.
func childLevel(repo repository.CategoryRepository, self uint, parentID *uint) (int, error) {
	seen := make(map[uint]bool)
	if self != 0 {
		seen[self] = true
	}
	level := 0
	for parentID != nil {
		if seen[*parentID] {
			return 0, &ValidationError{
				Fields: map[string]string{"parent_id": ErrCategoryCycle.Error()},
				Err:    ErrCategoryCycle,
			}
		}
		seen[*parentID] = true

		parent, err := repo.GetByID(*parentID)
		if err != nil {
			return 0, notFound(err)
		}
		level++
		parentID = parent.ParentID
	}
	return level, nil
}

func sameParent(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
