package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const maxLoggedBody = 512

// StatusRequest identifies a transaction for the status query.
type StatusRequest struct {
	ProductCode   string
	TransactionID string
	TotalAmount   decimal.Decimal
	Signature     string
}

// GatewayStatus is the gateway's answer. Raw is kept for logs only.
type GatewayStatus struct {
	Status        string
	RefID         string
	TransactionID string
	TotalAmount   string
	Raw           string
}

// Completed is the only state that may activate premium.
func (s *GatewayStatus) Completed() bool {
	switch s.Status {
	case "COMPLETE", "SUCCESS":
		return true
	default:
		return false
	}
}

// Gateway queries the status of a payment. Implementations return errors
// wrapping ErrTransientGateway or ErrGatewayRejected.
type Gateway interface {
	QueryStatus(ctx context.Context, req StatusRequest) (*GatewayStatus, error)
}

type EsewaClient struct {
	StatusURL string

	http *resty.Client
}

func NewEsewaClient(cfg *Config) *EsewaClient {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "recipefox-billing/1.0")

	return &EsewaClient{
		StatusURL: cfg.StatusURL,
		http:      client,
	}
}

func (c *EsewaClient) QueryStatus(ctx context.Context, req StatusRequest) (*GatewayStatus, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"product_code":     req.ProductCode,
			"total_amount":     FormatAmount(req.TotalAmount),
			"transaction_uuid": req.TransactionID,
			"signature":        req.Signature,
		}).
		Get(c.StatusURL)
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
		return nil, fmt.Errorf("%w: status request: %w", ErrTransientGateway, err)
	}

	body := resp.Body()
	code := resp.StatusCode()
	switch {
	case code >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrTransientGateway, code, truncate(body))
	case code >= http.StatusBadRequest:
		// a 4xx with a readable status is still an answer about the transaction
		if st, perr := parseStatusBody(body); perr == nil {
			return st, nil
		}
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrGatewayRejected, code, truncate(body))
	}

	st, err := parseStatusBody(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v body=%s", ErrTransientGateway, err, truncate(body))
	}
	return st, nil
}

func parseStatusBody(body []byte) (*GatewayStatus, error) {
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("malformed status response: %w", err)
	}

	status := stringField(fields, "status")
	if status == "" {
		status = stringField(fields, "response_code")
	}
	if status == "" {
		return nil, errors.New("status response has no status")
	}

	return &GatewayStatus{
		Status:        strings.ToUpper(status),
		RefID:         stringField(fields, "ref_id"),
		TransactionID: stringField(fields, "transaction_uuid"),
		TotalAmount:   stringField(fields, "total_amount"),
		Raw:           truncate(body),
	}, nil
}

func stringField(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func truncate(body []byte) string {
	if len(body) > maxLoggedBody {
		return string(body[:maxLoggedBody]) + "..."
	}
	return string(body)
}
