package notify

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const EventPremiumActivated = "premium.activated"

// Event describes an entitlement change after it was committed.
type Event struct {
	Type          string          `json:"type"`
	SubscriberID  uint            `json:"subscriber_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Tier          string          `json:"tier"`
	ExpiryDate    time.Time       `json:"expiry_date"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Notifier is told about committed entitlement changes. Errors are for
// logging; the change itself is already durable.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

type Noop struct{}

func (Noop) Notify(context.Context, Event) error { return nil }

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
