package main

import (
	"time"

	"glyke/internal/config"
	"glyke/internal/database"
	"glyke/internal/handlers"
	"glyke/internal/logger"
	"glyke/internal/middleware"
	"glyke/internal/migrations"
	"glyke/internal/redis"
	"glyke/internal/repository"
	"glyke/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg := config.Load()

	appLog, err := logger.New(cfg.LogLevel, cfg.LogConsole, cfg.LogFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	gin.SetMode(cfg.GinMode)

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL, cfg.LogLevel)
	if err != nil {
		appLog.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := migrations.RunMigrations(db, migrations.AdminAccount{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		Email:    cfg.AdminEmail,
	}, appLog); err != nil {
		appLog.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Initialize Redis; without it categories are read straight from the
	// database and logout cannot revoke tokens early.
	var (
		categoryCache services.CategoryCache
		revoker       handlers.TokenRevoker
		revoked       middleware.RevocationChecker
	)
	if cfg.RedisURL != "" {
		redisClient, err := redis.Initialize(cfg.RedisURL, time.Duration(cfg.CacheTTL)*time.Second)
		if err != nil {
			appLog.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer redisClient.Close()
		categoryCache, revoker, revoked = redisClient, redisClient, redisClient
	} else {
		appLog.Warn().Msg("REDIS_URL not set, running without cache and token revocation")
	}

	// Initialize repositories
	repos := repository.NewRepositories(db)

	// Initialize services
	orderService := services.NewOrderService(repos, appLog)
	checkService := services.NewCheckService(repos, appLog)
	userService := services.NewUserService(repos.User, appLog, orderService)
	categoryService := services.NewCategoryService(repos, categoryCache, appLog)
	productService := services.NewProductService(repos, appLog)

	// Initialize handlers
	h := &handlers.Handlers{
		Auth:     handlers.NewAuthHandler(userService, cfg.JWTSecret, time.Duration(cfg.TokenTTL)*time.Second, revoker),
		Category: handlers.NewCategoryHandler(categoryService),
		Product:  handlers.NewProductHandler(productService),
		Cart:     handlers.NewCartHandler(orderService),
		Order:    handlers.NewOrderHandler(orderService, checkService),
		Users:    handlers.NewUserHandler(userService),
	}

	router := handlers.SetupRouter(h, handlers.RouterConfig{
		JWTSecret: cfg.JWTSecret,
		Revoked:   revoked,
		Roles:     userService,
		Logger:    appLog,
		Health:    func() error { return database.Ping(db) },
	})

	// Start server
	appLog.Info().Str("port", cfg.ServerPort).Msg("server starting")
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		appLog.Fatal().Err(err).Msg("failed to start server")
	}
}
