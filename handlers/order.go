package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ironspideychinu/TuckHub/apperr"
	"github.com/ironspideychinu/TuckHub/models"
	"github.com/ironspideychinu/TuckHub/orders"
	"github.com/ironspideychinu/TuckHub/payment"
)

// PlaceOrderRequest defines the request body (JSON) for a student placing an order
type PlaceOrderRequest struct {
	Items []orders.ItemRequest `json:"items" binding:"required,min=1"`
}

// VerifyPaymentRequest is what the checkout widget hands back after payment.
type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gatewayOrderId" binding:"required"`
	GatewayPaymentID string `json:"gatewayPaymentId" binding:"required"`
	Signature        string `json:"signature" binding:"required"`
	OrderID          string `json:"orderId" binding:"required"`
}

// UpdateOrderStatusRequest defines the request body for staff moving an order along
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type AssignRunnerRequest struct {
	RunnerID string `json:"runnerId" binding:"required"`
}

// CreatePaymentIntentHandler opens a gateway checkout for a new pending order.
func (h *Handler) CreatePaymentIntentHandler(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	placement, err := h.Orders.PlaceOrder(c.Request.Context(), claims(c).UserID, req.Items)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, placement.Intent)
}

func (h *Handler) VerifyPaymentHandler(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.Orders.ConfirmCheckout(c.Request.Context(), payment.CheckoutConfirmation{
		OrderID:          req.OrderID,
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// PlaceOrderHandler places an order that needs no payment step.
func (h *Handler) PlaceOrderHandler(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	placement, err := h.Orders.PlaceOrder(c.Request.Context(), claims(c).UserID, req.Items)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": placement.Order})
}

// GetOrderHandler is open to the owner, the assigned runner and order managers.
func (h *Handler) GetOrderHandler(c *gin.Context) {
	order, err := h.Orders.Get(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	userClaims := claims(c)
	visible := order.UserID == userClaims.UserID ||
		models.CanViewAllOrders.Allows(userClaims.Role) ||
		(order.AssignedRunnerID != nil && *order.AssignedRunnerID == userClaims.UserID)
	if !visible {
		h.respondError(c, fmt.Errorf("%w: %s", apperr.ErrOrderNotFound, order.ID))
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) GetUserOrdersHandler(c *gin.Context) {
	userID := c.Param("user_id")
	userClaims := claims(c)
	if userID != userClaims.UserID && !models.CanViewAllOrders.Allows(userClaims.Role) {
		h.respondError(c, fmt.Errorf("%w: orders of another user", apperr.ErrForbidden))
		return
	}

	list, err := h.Orders.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *Handler) ListOrdersHandler(c *gin.Context) {
	list, err := h.Orders.ListAll(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *Handler) UpdateOrderStatusHandler(c *gin.Context) {
	var request UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err)
		return
	}

	status, err := models.ParseOrderStatus(request.Status)
	if err != nil {
		h.respondError(c, fmt.Errorf("%w: %s", apperr.ErrInvalidStatus, request.Status))
		return
	}

	order, err := h.Orders.AdvanceStatus(c.Request.Context(), c.Param("order_id"), status)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) AssignRunnerHandler(c *gin.Context) {
	var request AssignRunnerRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.Orders.AssignRunner(c.Request.Context(), c.Param("order_id"), request.RunnerID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}
