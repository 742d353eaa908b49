package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"glyke/internal/models"
	"glyke/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LoginObserver is told about every successful sign-in.
type LoginObserver interface {
	OnLogin(user *models.User) error
}

type SignUpInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

type UserService interface {
	SignUp(input SignUpInput) (*models.User, error)
	Authenticate(username, password string) (*models.User, error)
	CreateUser(user *models.User, password string) error
	GetUserByID(id uint) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	GetAllUsers() ([]models.User, error)
	UpdateUser(user *models.User) error
	DeleteUser(id uint) error
	ValidateUserRole(userID uint, requiredRole models.UserRole) error
}

type userService struct {
	userRepo  repository.UserRepository
	observers []LoginObserver
	log       zerolog.Logger
	now       func() time.Time
}

func NewUserService(userRepo repository.UserRepository, log zerolog.Logger, observers ...LoginObserver) UserService {
	return &userService{
		userRepo:  userRepo,
		observers: observers,
		log:       log.With().Str("component", "users").Logger(),
		now:       time.Now,
	}
}

func (s *userService) SignUp(input SignUpInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	fields := make(map[string]string)
	if username == "" {
		fields["username"] = "This field is required."
	} else if len(username) > 150 {
		fields["username"] = "Ensure this value has at most 150 characters."
	}
	if len(input.Password) < 8 {
		fields["password"] = "This password is too short. It must contain at least 8 characters."
	}
	if err := validationOrNil(fields); err != nil {
		return nil, err
	}

	if _, err := s.userRepo.GetByUsername(username); err == nil {
		return nil, &ValidationError{
			Fields: map[string]string{"username": "A user with that username already exists."},
			Err:    ErrDuplicateName,
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user := &models.User{
		Username:  username,
		Email:     strings.TrimSpace(input.Email),
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      string(models.RoleCustomer),
		IsActive:  true,
	}
	if err := s.CreateUser(user, input.Password); err != nil {
		return nil, err
	}
	s.log.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("user signed up")
	return user, nil
}

// Authenticate checks the credentials, stamps the login time and notifies
// the login observers.
func (s *userService) Authenticate(username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	for _, o := range s.observers {
		if err := o.OnLogin(user); err != nil {
			return nil, fmt.Errorf("login observer failed: %w", err)
		}
	}
	return user, nil
}

func (s *userService) CreateUser(user *models.User, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hashedPassword)
	if user.Role == "" {
		user.Role = string(models.RoleCustomer)
	}
	return s.userRepo.Create(user)
}

func (s *userService) GetUserByID(id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (s *userService) GetUserByUsername(username string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (s *userService) GetAllUsers() ([]models.User, error) {
	return s.userRepo.GetAll()
}

func (s *userService) UpdateUser(user *models.User) error {
	if !models.UserRole(user.Role).Valid() {
		return newValidationError("role", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", user.Role))
	}
	if err := s.userRepo.Update(user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	s.log.Info().Uint("user_id", user.ID).Str("role", user.Role).Bool("active", user.IsActive).Msg("user updated")
	return nil
}

func (s *userService) DeleteUser(id uint) error {
	if _, err := s.GetUserByID(id); err != nil {
		return err
	}
	if err := s.userRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.log.Info().Uint("user_id", id).Msg("user deleted")
	return nil
}

// ValidateUserRole fails with ErrForbidden unless the stored user is active
// and holds requiredRole. Superusers pass every check; staff pass customer
// checks.
func (s *userService) ValidateUserRole(userID uint, requiredRole models.UserRole) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return ErrForbidden
	}

	switch models.UserRole(user.Role) {
	case models.RoleSuperuser:
		return nil
	case models.RoleStaff:
		if requiredRole != models.RoleSuperuser {
			return nil
		}
	case models.RoleCustomer:
		if requiredRole == models.RoleCustomer {
			return nil
		}
	}
	return ErrForbidden
}
