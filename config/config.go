package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// OrderFlow selects which create-order variant the deployment exposes.
type OrderFlow string

const (
	FlowPayment   OrderFlow = "payment"
	FlowImmediate OrderFlow = "immediate"
)

const (
	DefaultPort           = "5000"
	DefaultPaymentAPIURL  = "https://api.razorpay.com"
	DefaultPaymentTimeout = 10 * time.Second
	DefaultCurrency       = "INR"
	DefaultOAuthTenantID  = "common"
	DefaultClientURL      = "http://localhost:3000"
)

var DefaultServiceFee = decimal.NewFromInt(5)

type Config struct {
	Env            string
	Port           string
	DatabaseURI    string
	JWTSecret      string
	AllowedOrigins []string

	OrderFlow       OrderFlow
	DeliveryEnabled bool
	ServiceFee      decimal.Decimal
	Currency        string

	PaymentKeyID         string
	PaymentKeySecret     string
	PaymentWebhookSecret string
	PaymentAPIURL        string
	PaymentTimeout       time.Duration

	OAuthClientID       string
	OAuthClientSecret   string
	OAuthTenantID       string
	OAuthRedirectURL    string
	AllowedEmailDomains []string

	EventRelayURL string
}

// Development reports whether permissive CORS and the dev logger should be used.
func (c *Config) Development() bool {
	return c.Env == "debug" || c.Env == "development"
}

// MicrosoftLoginEnabled reports whether students can sign in through the
// campus tenant.
func (c *Config) MicrosoftLoginEnabled() bool {
	return c.OAuthClientID != ""
}

// ClientURL is the web client that receives tokens after an external sign-in.
func (c *Config) ClientURL() string {
	if len(c.AllowedOrigins) > 0 {
		return c.AllowedOrigins[0]
	}
	return DefaultClientURL
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded, using process environment")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests need not touch the
// process environment.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Env:                  getenv("APP_ENV"),
		Port:                 withDefault(getenv("PORT"), DefaultPort),
		DatabaseURI:          getenv("DATABASE_URI"),
		JWTSecret:            getenv("JWT_SECRET"),
		Currency:             withDefault(getenv("CURRENCY"), DefaultCurrency),
		PaymentKeyID:         getenv("PAYMENT_KEY_ID"),
		PaymentKeySecret:     getenv("PAYMENT_KEY_SECRET"),
		PaymentWebhookSecret: getenv("PAYMENT_WEBHOOK_SECRET"),
		PaymentAPIURL:        withDefault(getenv("PAYMENT_API_URL"), DefaultPaymentAPIURL),
		OAuthClientID:        getenv("OAUTH_CLIENT_ID"),
		OAuthClientSecret:    getenv("OAUTH_CLIENT_SECRET"),
		OAuthTenantID:        withDefault(getenv("OAUTH_TENANT_ID"), DefaultOAuthTenantID),
		OAuthRedirectURL:     getenv("OAUTH_REDIRECT_URL"),
		EventRelayURL:        getenv("EVENT_RELAY_URL"),
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("DATABASE_URI environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	switch flow := OrderFlow(withDefault(getenv("ORDER_FLOW"), string(FlowPayment))); flow {
	case FlowPayment, FlowImmediate:
		cfg.OrderFlow = flow
	default:
		return nil, fmt.Errorf("ORDER_FLOW must be %q or %q, got %q", FlowPayment, FlowImmediate, flow)
	}

	if raw := getenv("DELIVERY_ENABLED"); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("DELIVERY_ENABLED: %w", err)
		}
		cfg.DeliveryEnabled = enabled
	}

	cfg.ServiceFee = DefaultServiceFee
	if raw := getenv("SERVICE_FEE"); raw != "" {
		fee, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("SERVICE_FEE: %w", err)
		}
		if fee.IsNegative() {
			return nil, fmt.Errorf("SERVICE_FEE must not be negative")
		}
		cfg.ServiceFee = fee
	}

	cfg.PaymentTimeout = DefaultPaymentTimeout
	if raw := getenv("PAYMENT_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("PAYMENT_TIMEOUT: %w", err)
		}
		cfg.PaymentTimeout = d
	}

	if cfg.OrderFlow == FlowPayment {
		required := []struct{ name, value string }{
			{"PAYMENT_KEY_ID", cfg.PaymentKeyID},
			{"PAYMENT_KEY_SECRET", cfg.PaymentKeySecret},
			{"PAYMENT_WEBHOOK_SECRET", cfg.PaymentWebhookSecret},
		}
		for _, r := range required {
			if r.value == "" {
				return nil, fmt.Errorf("%s environment variable is required for the payment flow", r.name)
			}
		}
	}

	if cfg.MicrosoftLoginEnabled() {
		required := []struct{ name, value string }{
			{"OAUTH_CLIENT_SECRET", cfg.OAuthClientSecret},
			{"OAUTH_REDIRECT_URL", cfg.OAuthRedirectURL},
		}
		for _, r := range required {
			if r.value == "" {
				return nil, fmt.Errorf("%s environment variable is required when OAUTH_CLIENT_ID is set", r.name)
			}
		}
	}

	cfg.AllowedOrigins = splitList(getenv("CLIENT_ORIGIN"))
	cfg.AllowedEmailDomains = splitList(getenv("ALLOWED_EMAIL_DOMAINS"))

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
