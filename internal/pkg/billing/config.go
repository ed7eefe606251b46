package billing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/recipefox/recipefox/internal/pkg/env"
)

const (
	defaultMerchantCode    = "EPAYTEST"
	defaultSecretKey       = "8gBm/:&EnhH.1/q"
	defaultFormURL         = "https://rc-epay.esewa.com.np/api/epay/main/v2/form"
	defaultStatusURL       = "https://rc.esewa.com.np/api/epay/transaction/status/"
	defaultCallbackBaseURL = "http://localhost:4000"
	defaultFrontendURL     = "http://localhost:5173"
	defaultGatewayTimeout  = 10 * time.Second

	SuccessCallbackPath = "/premium/payment/success"
	FailureCallbackPath = "/premium/payment/failure"
)

// Config is everything the payment flow needs. It is built once at startup
// and passed explicitly to the signer, session builder and verifier.
type Config struct {
	MerchantCode    string
	SecretKey       string
	FormURL         string
	StatusURL       string
	Timeout         time.Duration
	CallbackBaseURL string
	SuccessURL      string
	FailureURL      string
	FrontendURL     string
	Prices          PriceTable
}

// DefaultConfig returns the sandbox configuration.
func DefaultConfig() *Config {
	cfg := &Config{
		MerchantCode:    defaultMerchantCode,
		SecretKey:       defaultSecretKey,
		FormURL:         defaultFormURL,
		StatusURL:       defaultStatusURL,
		Timeout:         defaultGatewayTimeout,
		CallbackBaseURL: defaultCallbackBaseURL,
		FrontendURL:     defaultFrontendURL,
		Prices:          DefaultPriceTable(),
	}
	cfg.SuccessURL = cfg.CallbackBaseURL + SuccessCallbackPath
	cfg.FailureURL = cfg.CallbackBaseURL + FailureCallbackPath
	return cfg
}

func NewConfigFromEnv() (*Config, error) {
	base := strings.TrimRight(strings.TrimSpace(env.GetEnv("PUBLIC_DOMAIN", defaultCallbackBaseURL)), "/")

	cfg := &Config{
		MerchantCode:    strings.TrimSpace(env.GetEnv("ESEWA_MERCHANT_CODE", defaultMerchantCode)),
		SecretKey:       env.GetEnv("ESEWA_SECRET_KEY", defaultSecretKey),
		FormURL:         strings.TrimSpace(env.GetEnv("ESEWA_FORM_URL", defaultFormURL)),
		StatusURL:       strings.TrimSpace(env.GetEnv("ESEWA_STATUS_URL", defaultStatusURL)),
		Timeout:         defaultGatewayTimeout,
		CallbackBaseURL: base,
		SuccessURL:      strings.TrimSpace(env.GetEnv("PREMIUM_SUCCESS_URL", "")),
		FailureURL:      strings.TrimSpace(env.GetEnv("PREMIUM_FAILURE_URL", "")),
		FrontendURL:     strings.TrimRight(strings.TrimSpace(env.GetEnv("FRONTEND_URL", defaultFrontendURL)), "/"),
		Prices:          DefaultPriceTable(),
	}
	if cfg.SuccessURL == "" {
		cfg.SuccessURL = base + SuccessCallbackPath
	}
	if cfg.FailureURL == "" {
		cfg.FailureURL = base + FailureCallbackPath
	}

	if raw := strings.TrimSpace(env.GetEnv("ESEWA_TIMEOUT_SECONDS", "")); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid ESEWA_TIMEOUT_SECONDS %q", raw)
		}
		cfg.Timeout = time.Duration(secs) * time.Second
	}

	var err error
	if cfg.Prices.Monthly, err = priceFromEnv("PREMIUM_PRICE_MONTHLY", cfg.Prices.Monthly); err != nil {
		return nil, err
	}
	if cfg.Prices.Yearly, err = priceFromEnv("PREMIUM_PRICE_YEARLY", cfg.Prices.Yearly); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or inconsistent value at once.
func (c *Config) Validate() error {
	var errs []error
	if c.MerchantCode == "" {
		errs = append(errs, errors.New("ESEWA_MERCHANT_CODE is not configured"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("ESEWA_SECRET_KEY is not configured"))
	}
	if c.FormURL == "" {
		errs = append(errs, errors.New("ESEWA_FORM_URL is not configured"))
	}
	if c.StatusURL == "" {
		errs = append(errs, errors.New("ESEWA_STATUS_URL is not configured"))
	}
	if c.SuccessURL == "" || c.FailureURL == "" {
		errs = append(errs, errors.New("PUBLIC_DOMAIN or PREMIUM_SUCCESS_URL/PREMIUM_FAILURE_URL must be configured"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("gateway timeout must be positive"))
	}
	if !c.Prices.Monthly.IsPositive() || !c.Prices.Yearly.IsPositive() {
		errs = append(errs, errors.New("premium prices must be positive"))
	} else if c.Prices.Monthly.Equal(c.Prices.Yearly) {
		errs = append(errs, errors.New("monthly and yearly premium prices must differ"))
	}
	return errors.Join(errs...)
}

func priceFromEnv(key string, def decimal.Decimal) (decimal.Decimal, error) {
	raw := strings.TrimSpace(env.GetEnv(key, ""))
	if raw == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
