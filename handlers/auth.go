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

// RegisterRequest struct to bind registration data
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

var errInvalidCredentials = fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthorized)

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// RegisterHandler creates staff, runner and admin accounts. Students only
// arrive through the campus identity provider.
func (h *Handler) RegisterHandler(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil || role == models.RoleStudent {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Students must sign in with Microsoft"})
		return
	}

	// Check if user with the email already exists
	var existingUser models.User
	queryResult := h.DB.WithContext(c.Request.Context()).Where("email = ?", req.Email).First(&existingUser)
	if queryResult.Error == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already in use"})
		return
	}
	if !errors.Is(queryResult.Error, gorm.ErrRecordNotFound) {
		h.respondError(c, queryResult.Error)
		return
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		Role:         role,
		AuthProvider: models.ProviderLocal,
	}
	if err := user.HashPassword(req.Password); err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		h.respondError(c, err)
		return
	}

	token, err := h.Tokens.Generate(user.ID, user.Role, models.ProviderLocal)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, authResponse{Token: token, User: &user})
}

func (h *Handler) LoginHandler(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			h.respondError(c, err)
			return
		}
		h.respondError(c, errInvalidCredentials)
		return
	}

	if user.Role == models.RoleStudent {
		h.respondError(c, fmt.Errorf("%w: students must sign in with Microsoft", apperr.ErrUnauthorized))
		return
	}

	if err := user.CheckPassword(req.Password); err != nil {
		h.respondError(c, errInvalidCredentials)
		return
	}

	token, err := h.Tokens.Generate(user.ID, user.Role, models.ProviderLocal)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, authResponse{Token: token, User: &user})
}

// MeHandler returns the caller's account.
func (h *Handler) MeHandler(c *gin.Context) {
	userClaims := claims(c)

	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).First(&user, "id = ?", userClaims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.respondError(c, apperr.ErrUserNotFound)
			return
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
