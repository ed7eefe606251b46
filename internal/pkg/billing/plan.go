package billing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Tier is a purchasable premium duration.
type Tier string

const (
	TierMonthly Tier = "monthly"
	TierYearly  Tier = "yearly"
)

const (
	monthlyDays = 30
	yearlyDays  = 365
)

// ParseTier accepts the duration names used by the frontend.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(TierMonthly):
		return TierMonthly, nil
	case string(TierYearly):
		return TierYearly, nil
	default:
		return "", invalid("duration", "unknown duration %q", s)
	}
}

// Days is the entitlement length granted by one payment.
func (t Tier) Days() int {
	switch t {
	case TierYearly:
		return yearlyDays
	case TierMonthly:
		return monthlyDays
	default:
		return 0
	}
}

// ExpiryFrom returns the expiry an activation at now grants. Always counted
// from now, never extended from a previous expiry.
func (t Tier) ExpiryFrom(now time.Time) time.Time {
	return now.AddDate(0, 0, t.Days())
}

// PriceTable is the fixed two-entry price list.
type PriceTable struct {
	Monthly decimal.Decimal
	Yearly  decimal.Decimal
}

func DefaultPriceTable() PriceTable {
	return PriceTable{
		Monthly: decimal.NewFromInt(50),
		Yearly:  decimal.NewFromInt(500),
	}
}

func (p PriceTable) Price(t Tier) (decimal.Decimal, error) {
	switch t {
	case TierMonthly:
		return p.Monthly, nil
	case TierYearly:
		return p.Yearly, nil
	default:
		return decimal.Zero, invalid("duration", "unknown duration %q", string(t))
	}
}

// TierForAmount maps a paid amount back to its tier. Amounts that are not an
// exact table entry are rejected.
func (p PriceTable) TierForAmount(amount decimal.Decimal) (Tier, error) {
	switch {
	case amount.Equal(p.Monthly):
		return TierMonthly, nil
	case amount.Equal(p.Yearly):
		return TierYearly, nil
	default:
		return "", invalid("amount", "%s does not match any premium price", amount.String())
	}
}

// FormatAmount renders an amount the same way for the form and for signing.
func FormatAmount(amount decimal.Decimal) string {
	return amount.String()
}

// ParseAmount is lenient about thousands separators, which the gateway uses
// in its callback payload.
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if clean == "" {
		return decimal.Zero, invalid("amount", "amount is required")
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, invalid("amount", "%q is not a number", s)
	}
	return d, nil
}
