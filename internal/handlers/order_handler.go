package handlers

import (
	"net/http"

	"glyke/internal/middleware"
	"glyke/internal/models"
	"glyke/internal/services"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orderService services.OrderService
	checkService services.CheckService
}

func NewOrderHandler(orderService services.OrderService, checkService services.CheckService) *OrderHandler {
	return &OrderHandler{orderService: orderService, checkService: checkService}
}

// ListMine serves the signed-in customer's orders.
func (h *OrderHandler) ListMine(c *gin.Context) {
	orders, err := h.orderService.ListCustomerOrders(middleware.CurrentClaims(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	order, err := h.orderService.GetOrder(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !canSee(middleware.CurrentClaims(c), order.CustomerID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// ListStaff serves every order, narrowed by ?status= when given.
func (h *OrderHandler) ListStaff(c *gin.Context) {
	orders, err := h.orderService.ListOrders(c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

type statusRequest struct {
	Status string `json:"status" form:"status" binding:"required"`
}

func (h *OrderHandler) ChangeStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	order, err := h.orderService.ChangeStatus(id, models.OrderStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *OrderHandler) ListChecks(c *gin.Context) {
	checks, err := h.checkService.ListCustomerChecks(middleware.CurrentClaims(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"checks": checks})
}

func (h *OrderHandler) GetCheck(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	check, err := h.checkService.GetCheck(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !canSee(middleware.CurrentClaims(c), check.CustomerID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"check": check})
}

func canSee(claims *middleware.Claims, customerID *uint) bool {
	if claims == nil {
		return false
	}
	return claims.IsStaff() || (customerID != nil && *customerID == claims.UserID)
}
