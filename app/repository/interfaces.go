package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/recipefox/recipefox/app/models"
)

// UserRepository defines the interface for user-related database operations.
// Premium columns are written by the entitlements store, never through here.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	UpdateLastLogin(id uint, at time.Time) error
	CountActivePremium(now time.Time) (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User UserRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User: NewUserRepository(db),
	}
}
