package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"glyke/internal/middleware"
	"glyke/internal/services"

	"github.com/gin-gonic/gin"
)

const quantityFieldPrefix = "quantity_"

type CartHandler struct {
	orderService services.OrderService
}

func NewCartHandler(orderService services.OrderService) *CartHandler {
	return &CartHandler{orderService: orderService}
}

func (h *CartHandler) Get(c *gin.Context) {
	order, err := h.orderService.GetCurrentOrder(middleware.CurrentClaims(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "order_lines": order.Lines})
}

// Update applies the cart form: products_id lists the products to keep and
// quantity_<line number> carries the wanted quantity of each line.
func (h *CartHandler) Update(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	update := services.CartUpdate{Quantities: make(map[int][]string)}
	if raw, present := c.Request.PostForm["products_id"]; present {
		update.ProductIDs = make([]uint, 0, len(raw))
		for _, v := range raw {
			id, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
			if err != nil {
				continue
			}
			update.ProductIDs = append(update.ProductIDs, uint(id))
		}
	}
	for key, values := range c.Request.PostForm {
		if !strings.HasPrefix(key, quantityFieldPrefix) {
			continue
		}
		lineNumber, err := strconv.Atoi(strings.TrimPrefix(key, quantityFieldPrefix))
		if err != nil {
			continue
		}
		update.Quantities[lineNumber] = values
	}

	order, err := h.orderService.UpdateCart(middleware.CurrentClaims(c).UserID, update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "order_lines": order.Lines})
}

type addToCartRequest struct {
	ProductID uint   `form:"product_id" json:"product_id" binding:"required"`
	Quantity  int    `form:"quantity" json:"quantity"`
	Next      string `form:"next" json:"next"`
}

func (h *CartHandler) Add(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if _, err := h.orderService.AddToCart(middleware.CurrentClaims(c).UserID, req.ProductID, req.Quantity); err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, safeNext(req.Next))
}

// Clear empties an order. Only its customer or staff may do so; anyone else
// gets a 404.
func (h *CartHandler) Clear(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	claims := middleware.CurrentClaims(c)
	order, err := h.orderService.GetOrder(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !claims.IsStaff() && (order.CustomerID == nil || *order.CustomerID != claims.UserID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	if _, err := h.orderService.ClearOrder(id); err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/products")
}

func (h *CartHandler) Checkout(c *gin.Context) {
	order, err := h.orderService.Checkout(middleware.CurrentClaims(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}
