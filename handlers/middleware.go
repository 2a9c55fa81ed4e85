package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ironspideychinu/TuckHub/apperr"
	"github.com/ironspideychinu/TuckHub/models"
)

const RequestIDKey = "request_id"

// RequestLogger tags every request with an id and logs one line when it ends.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-Id", requestID)

		start := time.Now()
		c.Next()

		logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// AuthMiddleware accepts "Bearer <token>" or a bare token.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := strings.TrimSpace(c.GetHeader("Authorization"))
		tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
		if tokenString == "" {
			abortWithError(c, fmt.Errorf("%w: authorization header is missing", apperr.ErrUnauthorized))
			return
		}

		userClaims, err := h.Tokens.Validate(tokenString)
		if err != nil {
			abortWithError(c, fmt.Errorf("%w: invalid token", apperr.ErrUnauthorized))
			return
		}

		c.Set(UserClaimsHandlerKey, userClaims)
		c.Next()
	}
}

// Authorize lets the request through only when the caller's role is in allowed.
func Authorize(allowed models.RoleSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		userClaims := claims(c)
		if userClaims == nil {
			abortWithError(c, apperr.ErrUnauthorized)
			return
		}
		if !allowed.Allows(userClaims.Role) {
			abortWithError(c, fmt.Errorf("%w: role %s may not do this", apperr.ErrForbidden, userClaims.Role))
			return
		}
		c.Next()
	}
}

// RequireMicrosoftForStudent rejects students who did not sign in through
// the campus identity provider.
func RequireMicrosoftForStudent() gin.HandlerFunc {
	return func(c *gin.Context) {
		userClaims := claims(c)
		if userClaims != nil && userClaims.Role == models.RoleStudent && userClaims.Provider != models.ProviderMicrosoft {
			abortWithError(c, fmt.Errorf("%w: student access requires Microsoft login", apperr.ErrUnauthorized))
			return
		}
		c.Next()
	}
}
