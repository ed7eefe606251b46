package billing

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// IntentSoftTimeout is how long the client keeps waiting on a redirect round
// trip before treating the attempt as abandoned. It is handed to the client as
// expires_at; nothing server side enforces it.
const IntentSoftTimeout = 30 * time.Minute

const transactionPrefix = "PREMIUM"

// Intent is one payment attempt. It is never persisted; the transaction id
// carries everything needed to correlate the callback.
type Intent struct {
	TransactionID string
	Amount        decimal.Decimal
	Tier          Tier
	SubscriberID  uint
	CreatedAt     time.Time
}

// Session is the signed payment form the browser posts to the gateway.
type Session struct {
	Intent
	FormURL string
	Fields  []Field
}

// FormValues returns the form fields keyed by name.
func (s *Session) FormValues() map[string]string {
	out := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		out[f.Name] = f.Value
	}
	return out
}

type SessionBuilder struct {
	cfg     *Config
	signer  *Signer
	metrics Metrics
}

func NewSessionBuilder(cfg *Config, signer *Signer, metrics Metrics) *SessionBuilder {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &SessionBuilder{cfg: cfg, signer: signer, metrics: metrics}
}

// BuildSession prices the tier, mints a transaction id and signs the form.
func (b *SessionBuilder) BuildSession(subscriberID uint, tier Tier, now time.Time) (*Session, error) {
	if subscriberID == 0 {
		return nil, invalid("subscriberId", "subscriber is required")
	}
	amount, err := b.cfg.Prices.Price(tier)
	if err != nil {
		return nil, err
	}

	txID := NewTransactionID(subscriberID, now)
	signature, err := b.signer.SignTransaction(amount, txID, b.cfg.MerchantCode)
	if err != nil {
		return nil, err
	}

	total := FormatAmount(amount)
	s := &Session{
		Intent: Intent{
			TransactionID: txID,
			Amount:        amount,
			Tier:          tier,
			SubscriberID:  subscriberID,
			CreatedAt:     now,
		},
		FormURL: b.cfg.FormURL,
		Fields: []Field{
			{Name: "amount", Value: total},
			{Name: "tax_amount", Value: "0"},
			{Name: "total_amount", Value: total},
			{Name: "transaction_uuid", Value: txID},
			{Name: "product_code", Value: b.cfg.MerchantCode},
			{Name: "product_service_charge", Value: "0"},
			{Name: "product_delivery_charge", Value: "0"},
			{Name: "success_url", Value: successURL(b.cfg.SuccessURL, subscriberID, tier, txID)},
			{Name: "failure_url", Value: failureURL(b.cfg.FailureURL, txID)},
			{Name: "signed_field_names", Value: SignedFieldNames},
			{Name: "signature", Value: signature},
		},
	}

	b.metrics.SessionBuilt(string(tier))
	return s, nil
}

// NewTransactionID returns PREMIUM-{subscriberId}-{epochMillis}.
func NewTransactionID(subscriberID uint, now time.Time) string {
	return fmt.Sprintf("%s-%d-%d", transactionPrefix, subscriberID, now.UnixMilli())
}

// ParseTransactionID extracts the subscriber and creation time from an id
// minted by NewTransactionID.
func ParseTransactionID(id string) (uint, time.Time, error) {
	parts := strings.Split(strings.TrimSpace(id), "-")
	if len(parts) != 3 || parts[0] != transactionPrefix {
		return 0, time.Time{}, invalid("transaction_uuid", "unrecognised transaction id %q", id)
	}
	subscriberID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil || subscriberID == 0 {
		return 0, time.Time{}, invalid("transaction_uuid", "unrecognised transaction id %q", id)
	}
	millis, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || millis <= 0 {
		return 0, time.Time{}, invalid("transaction_uuid", "unrecognised transaction id %q", id)
	}
	return uint(subscriberID), time.UnixMilli(millis), nil
}

// successURL keeps transactionId last because the gateway appends its own
// "?data=" to whatever URL it redirects to.
func successURL(base string, subscriberID uint, tier Tier, txID string) string {
	return base + querySeparator(base) +
		"userId=" + strconv.FormatUint(uint64(subscriberID), 10) +
		"&premium=true" +
		"&duration=" + url.QueryEscape(string(tier)) +
		"&transactionId=" + url.QueryEscape(txID)
}

func failureURL(base, txID string) string {
	return base + querySeparator(base) + "transactionId=" + url.QueryEscape(txID)
}

func querySeparator(base string) string {
	if strings.Contains(base, "?") {
		return "&"
	}
	return "?"
}
