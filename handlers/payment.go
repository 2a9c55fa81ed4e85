package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ironspideychinu/TuckHub/apperr"
)

const (
	SignatureHeader = "X-Signature"
	maxWebhookBytes = 1 << 20
)

// PaymentWebhookHandler is called by the gateway, not by users, so it sits
// outside the auth middleware. It always answers with a plain status: 400
// for anything the gateway should not retry, 404 for an unknown order and
// 500 when a retry may succeed.
func (h *Handler) PaymentWebhookHandler(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	err = h.Orders.HandleWebhook(c.Request.Context(), payload, c.GetHeader(SignatureHeader))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})

	case errors.Is(err, apperr.ErrInvalidSignature), errors.Is(err, apperr.ErrValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case apperr.HTTPStatus(err) == http.StatusNotFound:
		h.Logger.Warn("Webhook for unknown order", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "order not found"})

	default:
		h.Logger.Error("Webhook processing failed", zap.String("request_id", c.GetString(RequestIDKey)), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
