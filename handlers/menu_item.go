package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ironspideychinu/TuckHub/apperr"
	"github.com/ironspideychinu/TuckHub/events"
	"github.com/ironspideychinu/TuckHub/inventory"
	"github.com/ironspideychinu/TuckHub/models"
)

type CreateMenuItemRequest struct {
	Name       string          `json:"name" binding:"required"`
	Price      decimal.Decimal `json:"price"`
	Image      string          `json:"image"`
	CategoryID *string         `json:"category_id"`
	Available  *bool           `json:"available"`
	Stock      *int            `json:"stock"`
}

// UpdateMenuItemRequest is a partial update. TrackStock=false turns stock
// counting off for the item.
type UpdateMenuItemRequest struct {
	Name       *string          `json:"name"`
	Price      *decimal.Decimal `json:"price"`
	Image      *string          `json:"image"`
	CategoryID *string          `json:"category_id"`
	Available  *bool            `json:"available"`
	Stock      *int             `json:"stock"`
	TrackStock *bool            `json:"track_stock"`
}

// ListMenuHandler is public.
func (h *Handler) ListMenuHandler(c *gin.Context) {
	items := []models.MenuItem{}
	if err := h.DB.WithContext(c.Request.Context()).Order("created_at DESC").Find(&items).Error; err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) CreateMenuItemHandler(c *gin.Context) {
	var request CreateMenuItemRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err)
		return
	}
	if !request.Price.IsPositive() {
		badRequest(c, errors.New("price must be positive"))
		return
	}
	if request.Stock != nil && *request.Stock < 0 {
		badRequest(c, errors.New("stock must not be negative"))
		return
	}
	if err := h.checkCategory(c, request.CategoryID); err != nil {
		h.respondError(c, err)
		return
	}

	menuItem := &models.MenuItem{
		Name:       request.Name,
		Price:      request.Price,
		Image:      request.Image,
		CategoryID: request.CategoryID,
		Available:  request.Available == nil || *request.Available,
		Stock:      request.Stock,
	}
	menuItem.SyncAvailability()

	if err := h.DB.WithContext(c.Request.Context()).Create(menuItem).Error; err != nil {
		h.respondError(c, err)
		return
	}

	h.Publisher.Publish(c.Request.Context(), events.NewStockUpdated(inventory.Level{
		ItemID:    menuItem.ID,
		Available: menuItem.Available,
		Stock:     menuItem.Stock,
	}))
	c.JSON(http.StatusCreated, gin.H{"item": menuItem})
}

// Path: /menu/:item_id
func (h *Handler) UpdateMenuItemHandler(c *gin.Context) {
	ctx := c.Request.Context()
	itemID := c.Param("item_id")

	var request UpdateMenuItemRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err)
		return
	}

	var menuItem models.MenuItem
	if err := h.DB.WithContext(ctx).First(&menuItem, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.respondError(c, fmt.Errorf("%w: %s", apperr.ErrItemNotFound, itemID))
			return
		}
		h.respondError(c, err)
		return
	}

	// Build map for updates to handle partial updates correctly with pointers
	updates := make(map[string]interface{})
	if request.Name != nil {
		updates["name"] = *request.Name
	}
	if request.Price != nil {
		if !request.Price.IsPositive() {
			badRequest(c, errors.New("price must be positive"))
			return
		}
		updates["price"] = *request.Price
	}
	if request.Image != nil {
		updates["image"] = *request.Image
	}
	if request.CategoryID != nil {
		if err := h.checkCategory(c, request.CategoryID); err != nil {
			h.respondError(c, err)
			return
		}
		if *request.CategoryID == "" {
			updates["category_id"] = nil
		} else {
			updates["category_id"] = *request.CategoryID
		}
	}
	if len(updates) > 0 {
		if err := h.DB.WithContext(ctx).Model(&menuItem).Updates(updates).Error; err != nil {
			h.respondError(c, err)
			return
		}
	}

	var level *inventory.Level
	if request.Stock != nil || request.TrackStock != nil || request.Available != nil {
		stock := menuItem.Stock
		if request.TrackStock != nil && !*request.TrackStock {
			stock = nil
		} else if request.Stock != nil {
			stock = request.Stock
		}
		available := menuItem.Available
		if request.Available != nil {
			available = *request.Available
		}

		set, err := h.Ledger.SetLevel(ctx, itemID, menuItem.Stock, stock, available)
		if err != nil {
			h.respondError(c, err)
			return
		}
		level = &set
	}

	if err := h.DB.WithContext(ctx).First(&menuItem, "id = ?", itemID).Error; err != nil {
		h.respondError(c, err)
		return
	}

	if level != nil {
		h.Publisher.Publish(ctx, events.NewStockUpdated(*level))
	}
	c.JSON(http.StatusOK, gin.H{"item": menuItem})
}

func (h *Handler) DeleteMenuItemHandler(c *gin.Context) {
	itemID := c.Param("item_id")

	res := h.DB.WithContext(c.Request.Context()).Delete(&models.MenuItem{}, "id = ?", itemID)
	if res.Error != nil {
		h.respondError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		h.respondError(c, fmt.Errorf("%w: %s", apperr.ErrItemNotFound, itemID))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) checkCategory(c *gin.Context, categoryID *string) error {
	if categoryID == nil || *categoryID == "" {
		return nil
	}
	var n int64
	if err := h.DB.WithContext(c.Request.Context()).Model(&models.Category{}).Where("id = ?", *categoryID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: unknown category %s", apperr.ErrValidation, *categoryID)
	}
	return nil
}
