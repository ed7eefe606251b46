package repository

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/recipefox/recipefox/app/models"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", strings.TrimSpace(email)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin only touches last_login_at so it cannot race a premium activation
func (r *userRepository) UpdateLastLogin(id uint, at time.Time) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("last_login_at", at).Error
}

// CountActivePremium counts users whose premium has not lapsed at now
func (r *userRepository) CountActivePremium(now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Where("is_premium = ? AND (premium_expiry_date IS NULL OR premium_expiry_date > ?)", true, now).
		Count(&count).Error
	return count, err
}
