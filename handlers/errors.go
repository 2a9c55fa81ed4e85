package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ironspideychinu/TuckHub/apperr"
)

// respondError maps err onto the response. Server-side failures are logged
// and answered with a generic message.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if !apperr.Public(err) {
		h.Logger.Error("Request failed",
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(status, gin.H{"error": "Internal server error"})
		return
	}
	abortWithError(c, err)
}

// abortWithError answers with err's mapped status and message. It is for
// caller-facing errors only; anything else goes through respondError.
func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
