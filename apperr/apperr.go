package apperr

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrItemNotFound      = errors.New("menu item not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidSignature  = errors.New("invalid payment signature")
	ErrPaymentMismatch   = errors.New("payment does not belong to order")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("conflicting update")
	ErrUpstream          = errors.New("upstream dependency failed")
)

func Kind(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrValidation):
		return "validation"

	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"

	case errors.Is(err, ErrForbidden):
		return "forbidden"

	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrUserNotFound):
		return "not_found"

	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"

	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"

	case errors.Is(err, ErrPaymentMismatch):
		return "payment_mismatch"

	case errors.Is(err, ErrInvalidStatus):
		return "invalid_status"

	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"

	case errors.Is(err, ErrConflict):
		return "conflict"

	case errors.Is(err, ErrUpstream):
		return "upstream"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

var kindToStatus = map[string]int{
	"validation":         http.StatusBadRequest,
	"unauthorized":       http.StatusUnauthorized,
	"forbidden":          http.StatusForbidden,
	"not_found":          http.StatusNotFound,
	"insufficient_stock": http.StatusBadRequest,
	"invalid_signature":  http.StatusBadRequest,
	"payment_mismatch":   http.StatusBadRequest,
	"invalid_status":     http.StatusBadRequest,
	"invalid_transition": http.StatusBadRequest,
	"conflict":           http.StatusConflict,
	"upstream":           http.StatusBadGateway,
	"timeout":            http.StatusGatewayTimeout,
	"canceled":           http.StatusRequestTimeout,
}

func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if s, ok := kindToStatus[Kind(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Public reports whether err's message may be shown to callers verbatim.
func Public(err error) bool {
	return HTTPStatus(err) < http.StatusInternalServerError
}
