package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) RunnerOrdersHandler(c *gin.Context) {
	list, err := h.Orders.ListForRunner(c.Request.Context(), claims(c).UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

// MarkDeliveredHandler answers 404 for orders assigned to another runner.
func (h *Handler) MarkDeliveredHandler(c *gin.Context) {
	order, err := h.Orders.MarkDelivered(c.Request.Context(), c.Param("order_id"), claims(c).UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}
