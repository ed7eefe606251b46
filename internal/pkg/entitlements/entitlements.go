package entitlements

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/recipefox/recipefox/app/models"
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

var ErrSubscriberNotFound = errors.New("entitlements: subscriber not found")

// Status is the read-only entitlement projection served to clients.
type Status struct {
	IsPremium   bool                `json:"isPremium"`
	ExpiryDate  *time.Time          `json:"expiryDate"`
	LastPayment *models.LastPayment `json:"lastPayment,omitempty"`
}

func (s *Status) Plan() Plan {
	if s != nil && s.IsPremium {
		return PlanPremium
	}
	return PlanFree
}

// IsActive applies lazy expiry: the stored flag only counts while the expiry
// lies in the future. A nil expiry never lapses.
func IsActive(flag bool, expiry *time.Time, now time.Time) bool {
	if !flag {
		return false
	}
	return expiry == nil || expiry.After(now)
}

// StatusOf projects a stored user onto its entitlement at now.
func StatusOf(u *models.User, now time.Time) *Status {
	return &Status{
		IsPremium:   IsActive(u.IsPremium, u.PremiumExpiryDate, now),
		ExpiryDate:  u.PremiumExpiryDate,
		LastPayment: u.LastPayment(),
	}
}

// PlanOf is the plan name reported to the frontend at login.
func PlanOf(u *models.User, now time.Time) Plan {
	return StatusOf(u, now).Plan()
}

// Activation is one confirmed payment to be recorded.
type Activation struct {
	SubscriberID  uint
	ExpiryDate    time.Time
	Amount        decimal.Decimal
	TransactionID string
	PaidAt        time.Time
}

type Repository interface {
	FindSubscriber(ctx context.Context, id uint) (*models.User, error)
	// ApplyActivation writes flag, expiry and last payment in one statement.
	ApplyActivation(ctx context.Context, a Activation) error
}

// Activator is the write side of the store; only the payment verifier holds one.
type Activator interface {
	Activate(ctx context.Context, a Activation) (*Status, error)
}

// Store owns every premium column of a subscriber.
type Store struct {
	repo Repository
}

func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

func NewStoreFromDB(db *gorm.DB) *Store {
	return NewStore(NewRepository(db))
}

// Activate records a confirmed payment. Concurrent activations for the same
// subscriber each overwrite the row completely; the last commit wins.
func (s *Store) Activate(ctx context.Context, a Activation) (*Status, error) {
	if a.SubscriberID == 0 {
		return nil, errors.New("subscriber id is required")
	}
	if strings.TrimSpace(a.TransactionID) == "" {
		return nil, errors.New("transaction id is required")
	}
	if !a.ExpiryDate.After(a.PaidAt) {
		return nil, fmt.Errorf("expiry %s is not after payment time %s", a.ExpiryDate, a.PaidAt)
	}

	if err := s.repo.ApplyActivation(ctx, a); err != nil {
		return nil, err
	}

	expiry := a.ExpiryDate
	paidAt := a.PaidAt
	return &Status{
		IsPremium:  true,
		ExpiryDate: &expiry,
		LastPayment: &models.LastPayment{
			Amount:        a.Amount,
			TransactionID: a.TransactionID,
			Timestamp:     paidAt,
		},
	}, nil
}

// Status reads the subscriber and applies lazy expiry. Never cached.
func (s *Store) Status(ctx context.Context, subscriberID uint, now time.Time) (*Status, error) {
	u, err := s.repo.FindSubscriber(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	return StatusOf(u, now), nil
}
