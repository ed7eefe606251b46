package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"

	"github.com/recipefox/recipefox/internal/pkg/entitlements"
	"github.com/recipefox/recipefox/internal/pkg/notify"
)

type Outcome string

const (
	OutcomeActivated        Outcome = "activated"
	OutcomeRejected         Outcome = "rejected"
	OutcomeTransientFailure Outcome = "transient_failure"
)

// Result is what a verification produced. Status is set only on activation.
type Result struct {
	Outcome       Outcome
	Tier          Tier
	GatewayStatus string
	Status        *entitlements.Status
}

// Verifier is the only path to an entitlement activation: it asks the
// gateway whether the payment completed and, if so, records it.
type Verifier struct {
	cfg      *Config
	signer   *Signer
	gateway  Gateway
	store    entitlements.Activator
	notifier notify.Notifier
	metrics  Metrics
	now      func() time.Time

	notifyTimeout time.Duration
	notifying     sync.WaitGroup
}

// DefaultNotifyTimeout bounds a single background notification.
const DefaultNotifyTimeout = 15 * time.Second

type VerifierOption func(*Verifier)

func WithNotifier(n notify.Notifier) VerifierOption {
	return func(v *Verifier) {
		if n != nil {
			v.notifier = n
		}
	}
}

func WithMetrics(m Metrics) VerifierOption {
	return func(v *Verifier) {
		if m != nil {
			v.metrics = m
		}
	}
}

func WithNotifyTimeout(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		if d > 0 {
			v.notifyTimeout = d
		}
	}
}

func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

func NewVerifier(cfg *Config, signer *Signer, gateway Gateway, store entitlements.Activator, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		cfg:      cfg,
		signer:   signer,
		gateway:  gateway,
		store:    store,
		notifier: notify.Noop{},
		metrics:  NoopMetrics{},
		now:      time.Now,

		notifyTimeout: DefaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify confirms a payment with the gateway and activates premium when the
// gateway reports it complete.
//
// Validation errors are returned without a Result. Gateway problems come back
// as a Result with OutcomeRejected or OutcomeTransientFailure plus an error
// wrapping ErrGatewayRejected or ErrTransientGateway. Neither writes anything.
// Verifying the same transaction again re-activates with an expiry counted
// from the new call. Notifications go out in the background after the
// activation is committed; Wait drains them.
func (v *Verifier) Verify(ctx context.Context, transactionID string, amount decimal.Decimal, subscriberID uint) (*Result, error) {
	transactionID = strings.TrimSpace(transactionID)
	tier, err := v.validate(transactionID, amount, subscriberID)
	if err != nil {
		return nil, err
	}

	signature, err := v.signer.SignTransaction(amount, transactionID, v.cfg.MerchantCode)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	st, err := v.gateway.QueryStatus(ctx, StatusRequest{
		ProductCode:   v.cfg.MerchantCode,
		TransactionID: transactionID,
		TotalAmount:   amount,
		Signature:     signature,
	})
	v.metrics.GatewayLatency(time.Since(started))

	if err != nil {
		if errors.Is(err, ErrGatewayRejected) {
			log.Warnf("[Billing] Gateway refused status query for %s: %v", transactionID, err)
			return v.finish(&Result{Outcome: OutcomeRejected, Tier: tier}), err
		}
		if !errors.Is(err, ErrTransientGateway) {
			err = fmt.Errorf("%w: %w", ErrTransientGateway, err)
		}
		log.Warnf("[Billing] Status query for %s failed: %v", transactionID, err)
		return v.finish(&Result{Outcome: OutcomeTransientFailure, Tier: tier}), err
	}

	if st.TransactionID != "" && st.TransactionID != transactionID {
		log.Warnf("[Billing] Gateway answered for %s while verifying %s", st.TransactionID, transactionID)
		return v.finish(&Result{Outcome: OutcomeRejected, Tier: tier, GatewayStatus: st.Status}),
			fmt.Errorf("%w: status belongs to another transaction", ErrGatewayRejected)
	}
	if !st.Completed() {
		log.Infof("[Billing] Transaction %s not complete: status=%s", transactionID, st.Status)
		return v.finish(&Result{Outcome: OutcomeRejected, Tier: tier, GatewayStatus: st.Status}),
			fmt.Errorf("%w: status %s", ErrGatewayRejected, st.Status)
	}

	now := v.now()
	expiry := tier.ExpiryFrom(now)
	status, err := v.store.Activate(ctx, entitlements.Activation{
		SubscriberID:  subscriberID,
		ExpiryDate:    expiry,
		Amount:        amount,
		TransactionID: transactionID,
		PaidAt:        now,
	})
	if err != nil {
		log.Errorf("[Billing] Gateway confirmed %s but activation for subscriber %d failed: %v", transactionID, subscriberID, err)
		v.metrics.VerificationFinished("entitlement_write_failed")
		return nil, fmt.Errorf("%w: %w", ErrEntitlementWrite, err)
	}

	log.Infof("[Billing] Premium activated for subscriber %d until %s (tx %s, ref %s)",
		subscriberID, expiry.Format(time.RFC3339), transactionID, st.RefID)

	ev := notify.Event{
		Type:          notify.EventPremiumActivated,
		SubscriberID:  subscriberID,
		TransactionID: transactionID,
		Amount:        amount,
		Tier:          string(tier),
		ExpiryDate:    expiry,
		OccurredAt:    now,
	}
	v.notify(ev)

	return v.finish(&Result{
		Outcome:       OutcomeActivated,
		Tier:          tier,
		GatewayStatus: st.Status,
		Status:        status,
	}), nil
}

// notify hands the event to the notifier in the background. It is detached
// from the request context so a finished callback does not cancel it.
func (v *Verifier) notify(ev notify.Event) {
	v.notifying.Add(1)
	go func() {
		defer v.notifying.Done()
		ctx, cancel := context.WithTimeout(context.Background(), v.notifyTimeout)
		defer cancel()
		if err := v.notifier.Notify(ctx, ev); err != nil {
			log.Warnf("[Billing] Activation notification for %s failed: %v", ev.TransactionID, err)
		}
	}()
}

// Wait blocks until every notification started by Verify has returned.
func (v *Verifier) Wait() {
	v.notifying.Wait()
}

func (v *Verifier) validate(transactionID string, amount decimal.Decimal, subscriberID uint) (Tier, error) {
	if transactionID == "" {
		return "", invalid("transaction_uuid", "transaction id is required")
	}
	if subscriberID == 0 {
		return "", invalid("subscriberId", "subscriber is required")
	}
	owner, _, err := ParseTransactionID(transactionID)
	if err != nil {
		return "", err
	}
	if owner != subscriberID {
		return "", invalid("transaction_uuid", "transaction does not belong to subscriber %d", subscriberID)
	}
	return v.cfg.Prices.TierForAmount(amount)
}

func (v *Verifier) finish(r *Result) *Result {
	v.metrics.VerificationFinished(string(r.Outcome))
	return r
}
