package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

// User is the platform account. The premium columns are only ever written by
// the entitlements package; everything else treats them as read-only.
type User struct {
	ID                       uint                `gorm:"primaryKey" json:"id"`
	Name                     string              `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email                    string              `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Password                 string              `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role                     string              `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status                   string              `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	IsPremium                bool                `gorm:"default:false;index" json:"is_premium"`
	PremiumExpiryDate        *time.Time          `gorm:"type:timestamp;default:null" json:"premium_expiry_date,omitempty"`
	LastPaymentAmount        decimal.NullDecimal `gorm:"type:decimal(12,2);default:null" json:"-"`
	LastPaymentTransactionID string              `gorm:"type:varchar(100);default:null" json:"-"`
	LastPaymentAt            *time.Time          `gorm:"type:timestamp;default:null" json:"-"`
	ActivationToken          string              `gorm:"type:varchar(100);index" json:"-"`
	ActivationSentAt         *time.Time          `gorm:"type:timestamp;default:null" json:"-"`
	LastLoginAt              *time.Time          `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt                time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt                gorm.DeletedAt      `gorm:"index" json:"-"`
}

// LastPayment is the snapshot of the most recent verified premium payment.
type LastPayment struct {
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId"`
	Timestamp     time.Time       `json:"timestamp"`
}

// LastPayment returns the stored payment snapshot, or nil if the user never paid.
func (u *User) LastPayment() *LastPayment {
	if u.LastPaymentAt == nil || !u.LastPaymentAmount.Valid {
		return nil
	}
	return &LastPayment{
		Amount:        u.LastPaymentAmount.Decimal,
		TransactionID: u.LastPaymentTransactionID,
		Timestamp:     *u.LastPaymentAt,
	}
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func CreateUser(username string, email string, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:     username,
		Email:    email,
		Password: pw,
		Role:     ROLE_USER,
		Status:   STATUS_INACTIVE,
	}

	// validate against the raw password, the hash always satisfies min=6
	check := *u
	check.Password = password
	if err := check.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// GenerateActivationToken creates a random token and sets ActivationSentAt
func (u *User) GenerateActivationToken() error {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return err
	}
	u.ActivationToken = hex.EncodeToString(b)
	now := time.Now()
	u.ActivationSentAt = &now
	return nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}
