package migrations

import (
	"errors"

	"glyke/internal/database"
	"glyke/internal/models"
	"glyke/internal/repository"
	"glyke/internal/services"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// AdminAccount is the superuser seeded on first run.
type AdminAccount struct {
	Username string
	Password string
	Email    string
}

// RunMigrations migrates the schema and creates default data
func RunMigrations(db *gorm.DB, admin AdminAccount, log zerolog.Logger) error {
	log.Info().Msg("running database migrations")

	if err := database.AutoMigrate(db); err != nil {
		return err
	}

	if err := createDefaultData(db, admin, log); err != nil {
		return err
	}

	log.Info().Msg("database migrations completed")
	return nil
}

// createDefaultData creates the superuser and the "_deleted_" sentinel records
func createDefaultData(db *gorm.DB, admin AdminAccount, log zerolog.Logger) error {
	repos := repository.NewRepositories(db)
	userService := services.NewUserService(repos.User, log)

	if _, err := repos.Category.FirstOrCreateSentinel(); err != nil {
		return err
	}
	if _, err := repos.Product.FirstOrCreateSentinel(); err != nil {
		return err
	}

	existing, err := userService.GetUserByUsername(admin.Username)
	if err == nil && existing != nil {
		log.Info().Str("username", admin.Username).Msg("superuser already exists")
		return nil
	}
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		return err
	}

	superuser := &models.User{
		Username: admin.Username,
		Email:    admin.Email,
		Role:     string(models.RoleSuperuser),
		IsActive: true,
	}
	if err := userService.CreateUser(superuser, admin.Password); err != nil {
		return err
	}
	log.Info().Str("username", admin.Username).Msg("superuser created")
	return nil
}
