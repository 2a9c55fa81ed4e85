package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ironspideychinu/TuckHub/apperr"
)

func TestHTTPGatewayCreateIntent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/orders" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body createOrderBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if body.Amount != 3550 || body.Notes["orderId"] != "o-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(createOrderResponse{ID: "order_gw_9", Amount: body.Amount, Currency: body.Currency})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL+"/", "key", "secret", time.Second)
	intent, err := gw.CreateIntent(context.Background(), IntentRequest{
		Amount:   decimal.RequireFromString("35.50"),
		Currency: "INR",
		Receipt:  "order_o-1",
		Notes:    map[string]string{"orderId": "o-1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if intent.GatewayOrderID != "order_gw_9" || intent.AmountMinor != 3550 {
		t.Fatalf("intent = %+v", intent)
	}
}

func TestHTTPGatewayFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
	}{
		{
			name:    "server_error",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			timeout: time.Second,
		},
		{
			name:    "missing_id",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte(`{"amount":100}`)) },
			timeout: time.Second,
		},
		{
			name: "slow_gateway",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				time.Sleep(200 * time.Millisecond)
				w.Write([]byte(`{"id":"late"}`))
			},
			timeout: 20 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewHTTPGateway(srv.URL, "k", "s", tt.timeout).CreateIntent(context.Background(), IntentRequest{Amount: decimal.NewFromInt(1), Currency: "INR"})
			if !errors.Is(err, apperr.ErrUpstream) {
				t.Fatalf("err = %v, want ErrUpstream", err)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()
	payload := CheckoutPayload("order_1", "pay_1")
	sig := Sign("s3cret", payload)

	if !Verify("s3cret", payload, sig) {
		t.Fatal("valid signature rejected")
	}
	if Verify("other", payload, sig) {
		t.Fatal("signature accepted under wrong secret")
	}
	if Verify("s3cret", payload, "") {
		t.Fatal("empty signature accepted")
	}
}
