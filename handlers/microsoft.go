package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ironspideychinu/TuckHub/apperr"
	"github.com/ironspideychinu/TuckHub/identity"
	"github.com/ironspideychinu/TuckHub/models"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 600
)

// Path: /auth/microsoft
func (h *Handler) MicrosoftLoginHandler(c *gin.Context) {
	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, oauthStateMaxAge, "/api/auth/microsoft", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusFound, h.Microsoft.AuthCodeURL(state))
}

// Path: /auth/microsoft/callback
// Students are created on first sign-in; existing accounts are linked to
// their Microsoft identity and keep their role.
func (h *Handler) MicrosoftCallbackHandler(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		h.respondError(c, fmt.Errorf("%w: missing code", apperr.ErrValidation))
		return
	}
	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		h.respondError(c, fmt.Errorf("%w: sign-in state mismatch", apperr.ErrValidation))
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/api/auth/microsoft", "", c.Request.TLS != nil, true)

	profile, err := h.Microsoft.Authenticate(c.Request.Context(), code)
	if err != nil {
		h.respondError(c, err)
		return
	}

	user, err := h.upsertMicrosoftUser(c, profile)
	if err != nil {
		h.respondError(c, err)
		return
	}

	token, err := h.Tokens.Generate(user.ID, user.Role, models.ProviderMicrosoft)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Redirect(http.StatusFound, h.ClientURL+"/auth/login?token="+url.QueryEscape(token))
}

func (h *Handler) upsertMicrosoftUser(c *gin.Context, profile identity.Profile) (*models.User, error) {
	db := h.DB.WithContext(c.Request.Context())

	var user models.User
	err := db.Where("email = ?", profile.Email()).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		name := profile.DisplayName
		if name == "" {
			name = "Student"
		}
		user = models.User{
			Name:         name,
			Email:        profile.Email(),
			Role:         models.RoleStudent,
			MicrosoftID:  profile.ID,
			AuthProvider: models.ProviderMicrosoft,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	case err != nil:
		return nil, err
	}

	updates := map[string]any{"microsoft_id": profile.ID, "auth_provider": models.ProviderMicrosoft}
	if user.Name == "" && profile.DisplayName != "" {
		updates["name"] = profile.DisplayName
	}
	if err := db.Model(&user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
