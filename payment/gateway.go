package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ironspideychinu/TuckHub/apperr"
)

// IntentRequest asks the gateway to open a payment for one order.
type IntentRequest struct {
	Amount   decimal.Decimal
	Currency string
	Receipt  string
	Notes    map[string]string
}

// Intent is the gateway's handle for a pending payment.
type Intent struct {
	GatewayOrderID string
	AmountMinor    int64
	Currency       string
}

// Gateway is the external payment provider.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
}

// HTTPGateway talks to a Razorpay-compatible orders API.
type HTTPGateway struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
}

func NewHTTPGateway(baseURL, keyID, keySecret string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		baseURL:   strings.TrimRight(baseURL, "/"),
		keyID:     keyID,
		keySecret: keySecret,
		client:    &http.Client{Timeout: timeout},
	}
}

type createOrderBody struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type createOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// ToMinorUnits converts a decimal amount into the smallest currency unit.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func (g *HTTPGateway) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	body, err := json.Marshal(createOrderBody{
		Amount:   ToMinorUnits(req.Amount),
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return Intent{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return Intent{}, err
	}
	httpReq.SetBasicAuth(g.keyID, g.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: create payment intent: %v", apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Intent{}, fmt.Errorf("%w: read gateway response: %v", apperr.ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Intent{}, fmt.Errorf("%w: gateway returned %d", apperr.ErrUpstream, resp.StatusCode)
	}

	var out createOrderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Intent{}, fmt.Errorf("%w: decode gateway response: %v", apperr.ErrUpstream, err)
	}
	if out.ID == "" {
		return Intent{}, fmt.Errorf("%w: gateway response has no order id", apperr.ErrUpstream)
	}

	return Intent{GatewayOrderID: out.ID, AmountMinor: out.Amount, Currency: out.Currency}, nil
}
