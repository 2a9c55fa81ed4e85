package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ironspideychinu/TuckHub/apperr"
	"github.com/ironspideychinu/TuckHub/models"
)

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *Handler) ListUsersHandler(c *gin.Context) {
	users := []models.User{}
	if err := h.DB.WithContext(c.Request.Context()).Order("created_at DESC").Find(&users).Error; err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) UpdateUserRoleHandler(c *gin.Context) {
	userID := c.Param("user_id")

	var request UpdateRoleRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err)
		return
	}
	role, err := models.ParseRole(request.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	ctx := c.Request.Context()
	res := h.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("role", role)
	if res.Error != nil {
		h.respondError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		h.respondError(c, fmt.Errorf("%w: %s", apperr.ErrUserNotFound, userID))
		return
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.respondError(c, fmt.Errorf("%w: %s", apperr.ErrUserNotFound, userID))
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) ReportsHandler(c *gin.Context) {
	report, err := h.Orders.Report(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
