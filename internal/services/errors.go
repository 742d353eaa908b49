package services

import (
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicateName      = errors.New("name already exists")
	ErrNoCurrentOrder     = errors.New("order (probably there is none)")
	ErrAmbiguousPhoto     = errors.New("photo deletion")
	ErrStatusUnchanged    = errors.New("product deletion (status has not change)")
	ErrCartNotCleared     = errors.New("cart (tried to clear it, but it did not become empty)")
	ErrPhotoForm          = errors.New("photos (or photos form)")
	ErrCategoryForm       = errors.New("category (or category form)")
	ErrCategoryCycle      = errors.New("category cannot become its own descendant")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrForbidden          = errors.New("insufficient permissions")
)

// ValidationError carries field-level messages for a rejected input. Err,
// when set, names the rule that failed.
type ValidationError struct {
	Fields map[string]string
	Err    error
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// validationOrNil returns nil for an empty field map so callers can return it directly.
func validationOrNil(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// notFound converts gorm's missing-row error into ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
