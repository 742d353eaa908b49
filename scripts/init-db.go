package main

import (
	"os"

	"glyke/internal/config"
	"glyke/internal/database"
	"glyke/internal/logger"
	"glyke/internal/migrations"
	"glyke/internal/models"
	"glyke/internal/repository"
	"glyke/internal/services"

	"github.com/rs/zerolog/log"
)

// Migrates the schema, seeds the superuser and sentinel records, and
// renumbers the category tree. Set RESET_DB=true to drop every table first.
func main() {
	cfg := config.Load()

	appLog, err := logger.New(cfg.LogLevel, true, cfg.LogFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	appLog.Info().Msg("initializing database")

	db, err := database.Initialize(cfg.DatabaseURL, cfg.LogLevel)
	if err != nil {
		appLog.Fatal().Err(err).Msg("failed to connect to database")
	}

	if os.Getenv("RESET_DB") == "true" {
		appLog.Warn().Msg("dropping existing tables")
		err = db.Migrator().DropTable(
			&models.CheckLine{},
			&models.Check{},
			&models.OrderLine{},
			&models.Order{},
			&models.Product{},
			&models.Photo{},
			&models.Gallery{},
			&models.Category{},
			&models.User{},
		)
		if err != nil {
			appLog.Warn().Err(err).Msg("error dropping tables")
		}
	}

	err = migrations.RunMigrations(db, migrations.AdminAccount{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		Email:    cfg.AdminEmail,
	}, appLog)
	if err != nil {
		appLog.Fatal().Err(err).Msg("failed to run migrations")
	}

	categoryService := services.NewCategoryService(repository.NewRepositories(db), nil, appLog)
	writes, err := categoryService.RebuildOrdering()
	if err != nil {
		appLog.Fatal().Err(err).Msg("failed to rebuild category ordering")
	}

	appLog.Info().Int("ordering_writes", writes).Msg("database initialization completed")
}
