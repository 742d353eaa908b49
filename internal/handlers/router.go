package handlers

import (
	"net/http"

	"glyke/internal/middleware"
	"glyke/internal/models"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Handlers groups every endpoint set served by the router.
type Handlers struct {
	Auth     *AuthHandler
	Category *CategoryHandler
	Product  *ProductHandler
	Cart     *CartHandler
	Order    *OrderHandler
	Users    *UserHandler
}

// RouterConfig carries what the router middleware needs.
type RouterConfig struct {
	JWTSecret string
	Revoked   middleware.RevocationChecker
	Roles     middleware.RoleChecker
	Logger    zerolog.Logger
	Health    func() error
}

// SetupRouter wires middleware and routes onto a fresh engine.
func SetupRouter(h *Handlers, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(middleware.Authenticate(cfg.JWTSecret, cfg.Revoked))

	RegisterRoutes(router, h, cfg.Roles, cfg.Health)
	return router
}

// RegisterRoutes mounts every endpoint. roles backs the staff and superuser
// groups with the stored user role.
func RegisterRoutes(router *gin.Engine, h *Handlers, roles middleware.RoleChecker, health func() error) {
	router.GET("/health", func(c *gin.Context) {
		if health != nil {
			if err := health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/oops/", Oops)

	// Auth
	router.GET("/sign_in", h.Auth.SignInPage)
	router.POST("/sign_in", h.Auth.SignIn)
	router.POST("/sign_up", h.Auth.SignUp)

	// Catalog
	router.GET("/categories", h.Category.List)
	router.GET("/categories/:id", h.Category.Get)
	router.GET("/categories/:id/schema", h.Category.Schema)
	router.GET("/products", h.Product.List)
	router.GET("/product/:id", h.Product.Get)

	// Signed-in customers
	user := router.Group("", middleware.RequireLogin())
	{
		user.POST("/logout", h.Auth.Logout)
		user.GET("/me", h.Auth.Me)

		user.GET("/cart", h.Cart.Get)
		user.POST("/cart", h.Cart.Update)
		user.POST("/cart/checkout", h.Cart.Checkout)
		user.POST("/add_to_cart", h.Cart.Add)
		user.GET("/clear_cart/:id", h.Cart.Clear)

		user.GET("/orders", h.Order.ListMine)
		user.GET("/orders/:id", h.Order.Get)
		user.GET("/checks", h.Order.ListChecks)
		user.GET("/checks/:id", h.Order.GetCheck)
	}

	// Staff
	staff := router.Group("", middleware.RequireLogin(), middleware.StaffOnly(roles))
	{
		staff.GET("/products_staff", h.Product.ListStaff)
		staff.GET("/staff/products/export", h.Product.Export)
		staff.POST("/products", h.Product.Create)
		staff.PUT("/product/:id", h.Product.Update)
		staff.GET("/delete_product/:id", h.Product.Delete)
		staff.POST("/product/:id/photos", h.Product.AddPhoto)
		staff.POST("/product/:id/photos/delete", h.Product.DeletePhoto)
		staff.POST("/product/:id/main_photo/:photo_id", h.Product.SetMainPhoto)

		staff.GET("/staff/categories", h.Category.ListAll)
		staff.POST("/categories", h.Category.Create)
		staff.PUT("/categories/:id", h.Category.Update)
		staff.DELETE("/categories/:id", h.Category.Delete)
		staff.POST("/staff/categories/rebuild", h.Category.RebuildOrdering)

		staff.GET("/staff/orders", h.Order.ListStaff)
		staff.POST("/staff/orders/:id/status", h.Order.ChangeStatus)
	}

	// Superusers
	admin := router.Group("/staff/users", middleware.RequireLogin(), middleware.RequireRole(roles, models.RoleSuperuser))
	{
		admin.GET("", h.Users.List)
		admin.PUT("/:id", h.Users.Update)
		admin.DELETE("/:id", h.Users.Delete)
	}
}

// Oops is the generic error page; it echoes the cause it was sent.
func Oops(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"error":        "Something went wrong",
		"error_suffix": c.Query("error_suffix"),
	})
}
