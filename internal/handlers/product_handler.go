package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"glyke/internal/middleware"
	"glyke/internal/repository"
	"glyke/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	productService services.ProductService
}

func NewProductHandler(productService services.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// productRequest takes prices as decimal strings, e.g. "12.50".
type productRequest struct {
	Name            string            `json:"name" binding:"required"`
	Description     string            `json:"description"`
	CategoryID      *uint             `json:"category_id"`
	Stock           int               `json:"stock"`
	Tags            []string          `json:"tags"`
	Attributes      map[string]string `json:"attributes"`
	CostPrice       string            `json:"cost_price"`
	SellingPrice    string            `json:"selling_price"`
	DiscountPercent int               `json:"discount_percent"`
	IsActive        *bool             `json:"is_active"`
}

func (r productRequest) input() (services.ProductInput, map[string]string) {
	fields := make(map[string]string)
	cost := parseAmount(r.CostPrice, "cost_price", fields)
	selling := parseAmount(r.SellingPrice, "selling_price", fields)
	return services.ProductInput{
		Name:            r.Name,
		Description:     r.Description,
		CategoryID:      r.CategoryID,
		Stock:           r.Stock,
		Tags:            r.Tags,
		Attributes:      r.Attributes,
		CostPrice:       cost,
		SellingPrice:    selling,
		DiscountPercent: r.DiscountPercent,
		IsActive:        r.IsActive,
	}, fields
}

func parseAmount(value, field string, fields map[string]string) decimal.Decimal {
	value = strings.TrimSpace(value)
	if value == "" {
		fields[field] = "This field is required."
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		fields[field] = "Enter a number."
		return decimal.Zero
	}
	return d
}

func (h *ProductHandler) bind(c *gin.Context) (services.ProductInput, bool) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return services.ProductInput{}, false
	}
	input, fields := req.input()
	if len(fields) > 0 {
		respondError(c, &services.ValidationError{Fields: fields})
		return services.ProductInput{}, false
	}
	return input, true
}

// List serves active products, optionally narrowed by ?category= and ?tag=.
func (h *ProductHandler) List(c *gin.Context) {
	filter := repository.ProductFilter{ActiveOnly: true, Tag: c.Query("tag")}
	if raw := c.Query("category"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
			return
		}
		categoryID := uint(id)
		filter.CategoryID = &categoryID
	}

	products, err := h.productService.ListProducts(filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// ListStaff serves every product, inactive ones included.
func (h *ProductHandler) ListStaff(c *gin.Context) {
	products, err := h.productService.ListProducts(repository.ProductFilter{})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	product, err := h.productService.GetProduct(id)
	if err != nil {
		respondError(c, err)
		return
	}
	claims := middleware.CurrentClaims(c)
	if !product.IsActive && (claims == nil || !claims.IsStaff()) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func (h *ProductHandler) Create(c *gin.Context) {
	input, ok := h.bind(c)
	if !ok {
		return
	}
	createdBy := middleware.CurrentClaims(c).UserID
	product, err := h.productService.CreateProduct(input, &createdBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	input, ok := h.bind(c)
	if !ok {
		return
	}
	product, err := h.productService.UpdateProduct(id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// Delete deactivates a product; ?recover=y reactivates it and ?hard=y
// removes it for good.
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var err error
	switch {
	case c.Query("hard") == "y":
		err = h.productService.DeleteProduct(id)
	case c.Query("recover") == "y":
		_, err = h.productService.SetActive(id, true)
	default:
		_, err = h.productService.SetActive(id, false)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/products_staff")
}

type photoRequest struct {
	Image string `json:"image" form:"image"`
	Title string `json:"title" form:"title"`
}

func (h *ProductHandler) AddPhoto(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req photoRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectOops(c, services.ErrPhotoForm.Error())
		return
	}
	photo, err := h.productService.AddPhoto(id, req.Image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"photo": photo})
}

func (h *ProductHandler) DeletePhoto(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req photoRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectOops(c, services.ErrPhotoForm.Error())
		return
	}
	if err := h.productService.DeletePhoto(id, req.Title); err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/product/%d", id))
}

func (h *ProductHandler) SetMainPhoto(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	photoID, ok := paramID(c, "photo_id")
	if !ok {
		return
	}
	product, err := h.productService.SetMainPhoto(id, photoID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// Export streams every product as an XLSX workbook.
func (h *ProductHandler) Export(c *gin.Context) {
	f, err := h.productService.ExportProducts()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("products_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	if err := f.Write(c.Writer); err != nil {
		c.Error(err)
	}
}
