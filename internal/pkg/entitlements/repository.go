package entitlements

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/recipefox/recipefox/app/models"
)

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindSubscriber(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ApplyActivation issues a single UPDATE so readers never see the flag
// without its expiry or payment record.
func (r *gormRepository) ApplyActivation(ctx context.Context, a Activation) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", a.SubscriberID).
		Updates(map[string]interface{}{
			"is_premium":                  true,
			"premium_expiry_date":         a.ExpiryDate,
			"last_payment_amount":         decimal.NewNullDecimal(a.Amount),
			"last_payment_transaction_id": a.TransactionID,
			"last_payment_at":             a.PaidAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSubscriberNotFound
	}
	return nil
}
