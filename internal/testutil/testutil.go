package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"glyke/internal/database"
	"glyke/internal/middleware"
	"glyke/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const JWTSecret = "glyke-test-secret"

// SetupTestDB opens a fresh in-memory database with the full schema. Each
// call gets its own database, closed when the test ends.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// Logger returns a logger that discards everything.
func Logger() zerolog.Logger {
	return zerolog.Nop()
}

// SetupRouter creates a gin test router that authenticates bearer tokens.
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Authenticate(JWTSecret, nil))
	return r
}

// TokenFor signs a test token for user.
func TokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, _, err := middleware.GenerateToken(JWTSecret, user, time.Hour)
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return token
}

// DoRequest executes a JSON request against the test router.
func DoRequest(r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody io.Reader = bytes.NewBuffer(nil)
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// DoForm executes a form-encoded POST against the test router.
func DoForm(r http.Handler, path string, form url.Values, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// DoRaw executes a prepared request against the test router.
func DoRaw(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse decodes a JSON response body.
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedUser creates a user with the given role.
func SeedUser(t *testing.T, db *gorm.DB, username string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "not-a-real-hash",
		Role:         string(role),
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	return user
}

// SeedCategory creates a category row directly, bypassing tree maintenance.
func SeedCategory(t *testing.T, db *gorm.DB, name string, parentID *uint) *models.Category {
	t.Helper()
	category := &models.Category{
		Name:     name,
		ParentID: parentID,
		IsActive: true,
		Picture:  models.DefaultCategoryPicture,
		Filters:  []string{},
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("Failed to seed category: %v", err)
	}
	return category
}

// SeedProduct creates an active product priced at selling with the given
// discount; cost is half the selling price.
func SeedProduct(t *testing.T, db *gorm.DB, name, selling string, discount, stock int) *models.Product {
	t.Helper()
	price := decimal.RequireFromString(selling)
	product := &models.Product{
		Name:     name,
		Stock:    stock,
		Tags:     []string{},
		IsActive: true,
		Price: models.Price{
			CostPrice:       price.Div(decimal.NewFromInt(2)).Round(2),
			SellingPrice:    price,
			DiscountPercent: discount,
		},
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}
	return product
}

// SeedOrder creates an empty order for customer in status.
func SeedOrder(t *testing.T, db *gorm.DB, customer *models.User, status models.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		Number:     models.NewNumber(customer.Username, time.Now()),
		CustomerID: &customer.ID,
		Status:     string(status),
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("Failed to seed order: %v", err)
	}
	return order
}
