package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"glyke/internal/services"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	categoryService services.CategoryService
}

func NewCategoryHandler(categoryService services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

type categoryRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	ParentID    *uint    `json:"parent_id"`
	IsActive    *bool    `json:"is_active"`
	Picture     string   `json:"picture"`
	Filters     []string `json:"filters"`
}

func (r categoryRequest) input() services.CategoryInput {
	return services.CategoryInput{
		Name:        r.Name,
		Description: r.Description,
		ParentID:    r.ParentID,
		IsActive:    r.IsActive,
		Picture:     r.Picture,
		Filters:     r.Filters,
	}
}

// List serves the active categories in display order with a weak ETag.
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.categoryService.ListCategories()
	if err != nil {
		respondError(c, err)
		return
	}

	body, err := json.Marshal(gin.H{"categories": categories})
	if err != nil {
		respondError(c, err)
		return
	}
	etag := `W/"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
	c.Header("ETag", etag)
	if noneMatch(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// noneMatch reports whether the If-None-Match header already names etag.
func noneMatch(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == strings.TrimPrefix(etag, "W/") {
			return true
		}
	}
	return false
}

func (h *CategoryHandler) ListAll(c *gin.Context) {
	categories, err := h.categoryService.ListAllCategories()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	category, err := h.categoryService.GetCategory(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

// Schema lists the attribute inputs a product of this category takes.
func (h *CategoryHandler) Schema(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	schema, err := h.categoryService.AttributeSchema(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schema)
}

func (h *CategoryHandler) Create(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		redirectOops(c, services.ErrCategoryForm.Error())
		return
	}
	category, err := h.categoryService.CreateCategory(req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": category})
}

func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		redirectOops(c, services.ErrCategoryForm.Error())
		return
	}
	category, err := h.categoryService.UpdateCategory(id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.categoryService.DeleteCategory(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}

func (h *CategoryHandler) RebuildOrdering(c *gin.Context) {
	writes, err := h.categoryService.RebuildOrdering()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": writes})
}
