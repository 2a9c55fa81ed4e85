package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ironspideychinu/TuckHub/events"
	"github.com/ironspideychinu/TuckHub/identity"
	"github.com/ironspideychinu/TuckHub/inventory"
	"github.com/ironspideychinu/TuckHub/orders"
	"github.com/ironspideychinu/TuckHub/utils"
)

const UserClaimsHandlerKey = "user_claims"

// Handler carries the dependencies shared by every route. Socket serves the
// realtime order stream. Microsoft is nil when student sign-in is not
// configured; ClientURL receives the token after it.
type Handler struct {
	DB        *gorm.DB
	Orders    *orders.Service
	Ledger    *inventory.Ledger
	Tokens    *utils.TokenSigner
	Publisher events.Publisher
	Socket    http.Handler
	Microsoft *identity.Microsoft
	ClientURL string
	Logger    *zap.Logger
}

// claims returns the authenticated principal set by AuthMiddleware.
func claims(c *gin.Context) *utils.Claims {
	v, ok := c.Get(UserClaimsHandlerKey)
	if !ok {
		return nil
	}
	userClaims, _ := v.(*utils.Claims)
	return userClaims
}
