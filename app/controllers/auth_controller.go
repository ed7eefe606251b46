package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/recipefox/recipefox/app/models"
	"github.com/recipefox/recipefox/app/repository"
	"github.com/recipefox/recipefox/internal/pkg/entitlements"
	"github.com/recipefox/recipefox/internal/pkg/session"
	"github.com/recipefox/recipefox/internal/pkg/usercontext"
)

type AuthController struct {
	users    repository.UserRepository
	validate *validator.Validate
	now      func() time.Time
}

func NewAuthController(users repository.UserRepository) *AuthController {
	return &AuthController{
		users:    users,
		validate: validator.New(),
		now:      time.Now,
	}
}

var authController *AuthController

// InitializeAuthController wires the controller to the global user repository
func InitializeAuthController() {
	authController = NewAuthController(repository.GetGlobalFactory().GetUserRepository())
}

func GetAuthController() *AuthController {
	if authController == nil {
		InitializeAuthController()
	}
	return authController
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin checks the credentials and starts a session.
func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := ac.validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_error", "email and password are required")
	}

	// same message for unknown email and wrong password
	user, err := ac.users.GetByEmail(req.Email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("[Auth] user lookup failed: %v", err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Login is currently unavailable")
		}
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid email or password")
	}
	if !user.CheckPassword(req.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid email or password")
	}
	if !user.IsActive() {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Account is not active")
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		log.Errorf("[Auth] loading session failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Login is currently unavailable")
	}
	if err := sess.Regenerate(); err != nil {
		log.Errorf("[Auth] regenerating session failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Login is currently unavailable")
	}
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyIsAdmin, user.Role == models.ROLE_ADMIN)
	if err := sess.Save(); err != nil {
		log.Errorf("[Auth] saving session failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Login is currently unavailable")
	}

	now := ac.now()
	if err := ac.users.UpdateLastLogin(user.ID, now); err != nil {
		log.Warnf("[Auth] updating last login for user %d failed: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{
		"id":       user.ID,
		"username": user.Name,
		"email":    user.Email,
		"plan":     string(entitlements.PlanOf(user, now)),
		"premium":  entitlements.StatusOf(user, now),
	})
}

func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Logout failed")
	}
	if err := sess.Destroy(); err != nil {
		log.Errorf("[Auth] destroying session failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Logout failed")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func HandleAPILogin(c *fiber.Ctx) error {
	return GetAuthController().HandleLogin(c)
}

func HandleAPILogout(c *fiber.Ctx) error {
	return GetAuthController().HandleLogout(c)
}
