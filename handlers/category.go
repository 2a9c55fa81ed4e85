package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ironspideychinu/TuckHub/apperr"
	"github.com/ironspideychinu/TuckHub/models"
)

// CategoryRequest defines the request body (JSON) for creating or renaming a category
type CategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) ListCategoriesHandler(c *gin.Context) {
	categories := []models.Category{}
	if err := h.DB.WithContext(c.Request.Context()).Order("name ASC").Find(&categories).Error; err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *Handler) CreateCategoryHandler(c *gin.Context) {
	var request CategoryRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err)
		return
	}
	name := strings.TrimSpace(request.Name)
	if err := h.uniqueCategoryName(c, name, ""); err != nil {
		h.respondError(c, err)
		return
	}

	category := models.Category{Name: name}
	if err := h.DB.WithContext(c.Request.Context()).Create(&category).Error; err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"category": category})
}

func (h *Handler) UpdateCategoryHandler(c *gin.Context) {
	categoryID := c.Param("category_id")

	var request CategoryRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err)
		return
	}
	name := strings.TrimSpace(request.Name)

	var category models.Category
	if err := h.DB.WithContext(c.Request.Context()).First(&category, "id = ?", categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.respondError(c, fmt.Errorf("%w: category %s", apperr.ErrNotFound, categoryID))
			return
		}
		h.respondError(c, err)
		return
	}
	if err := h.uniqueCategoryName(c, name, category.ID); err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.DB.WithContext(c.Request.Context()).Model(&category).Update("name", name).Error; err != nil {
		h.respondError(c, err)
		return
	}
	category.Name = name

	c.JSON(http.StatusOK, gin.H{"category": category})
}

func (h *Handler) DeleteCategoryHandler(c *gin.Context) {
	categoryID := c.Param("category_id")

	res := h.DB.WithContext(c.Request.Context()).Delete(&models.Category{}, "id = ?", categoryID)
	if res.Error != nil {
		h.respondError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		h.respondError(c, fmt.Errorf("%w: category %s", apperr.ErrNotFound, categoryID))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) uniqueCategoryName(c *gin.Context, name, exceptID string) error {
	if name == "" {
		return fmt.Errorf("%w: name required", apperr.ErrValidation)
	}
	var n int64
	query := h.DB.WithContext(c.Request.Context()).Model(&models.Category{}).Where("name = ?", name)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: category exists", apperr.ErrValidation)
	}
	return nil
}
