package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "validation", err: ErrValidation, want: "validation"},
		{name: "order_not_found_wrapped", err: fmt.Errorf("%w: o-1", ErrOrderNotFound), want: "not_found"},
		{name: "item_not_found", err: ErrItemNotFound, want: "not_found"},
		{name: "stock", err: fmt.Errorf("reserve: %w", ErrInsufficientStock), want: "insufficient_stock"},
		{name: "signature", err: ErrInvalidSignature, want: "invalid_signature"},
		{name: "transition", err: ErrInvalidTransition, want: "invalid_transition"},
		{name: "conflict", err: ErrConflict, want: "conflict"},
		{name: "upstream", err: ErrUpstream, want: "upstream"},
		{name: "deadline", err: context.DeadlineExceeded, want: "timeout"},
		{name: "canceled", err: context.Canceled, want: "canceled"},
		{name: "unknown", err: errors.New("unknown"), want: "internal"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Kind(tt.err); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: http.StatusOK},
		{name: "validation", err: ErrValidation, want: http.StatusBadRequest},
		{name: "unauthorized", err: ErrUnauthorized, want: http.StatusUnauthorized},
		{name: "forbidden", err: ErrForbidden, want: http.StatusForbidden},
		{name: "order_not_found", err: fmt.Errorf("%w: x", ErrOrderNotFound), want: http.StatusNotFound},
		{name: "insufficient_stock", err: ErrInsufficientStock, want: http.StatusBadRequest},
		{name: "invalid_status", err: ErrInvalidStatus, want: http.StatusBadRequest},
		{name: "payment_mismatch", err: ErrPaymentMismatch, want: http.StatusBadRequest},
		{name: "conflict", err: ErrConflict, want: http.StatusConflict},
		{name: "upstream", err: ErrUpstream, want: http.StatusBadGateway},
		{name: "deadline", err: context.DeadlineExceeded, want: http.StatusGatewayTimeout},
		{name: "unknown", err: errors.New("db exploded"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := HTTPStatus(tt.err); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestPublic(t *testing.T) {
	t.Parallel()

	if !Public(ErrInsufficientStock) {
		t.Fatal("business errors should be shown to callers")
	}
	if Public(errors.New("pq: connection refused")) {
		t.Fatal("internal errors must not be shown to callers")
	}
	if Public(ErrUpstream) {
		t.Fatal("upstream errors must not be shown to callers")
	}
}
