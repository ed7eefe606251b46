package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/recipefox/recipefox/internal/pkg/entitlements"
	"github.com/recipefox/recipefox/internal/pkg/usercontext"
)

// StatusSource answers the entitlement question for a subscriber.
type StatusSource interface {
	Status(ctx context.Context, subscriberID uint, now time.Time) (*entitlements.Status, error)
}

// RequirePremium lets the request through only while the subscriber's
// premium access is active. Must run after RequireAPISessionAuth.
func RequirePremium(statuses StatusSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := usercontext.GetUserID(c)
		if userID == 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "login required",
			})
		}

		st, err := statuses.Status(c.UserContext(), userID, time.Now())
		if err != nil {
			if errors.Is(err, entitlements.ErrSubscriberNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error":   "unauthorized",
					"message": "unknown subscriber",
				})
			}
			log.Errorf("[Premium] status lookup for user %d failed: %v", userID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "internal_server_error",
				"message": "could not check subscription",
			})
		}

		if !st.IsPremium {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error":      "premium_required",
				"message":    "an active premium subscription is required",
				"expiryDate": st.ExpiryDate,
			})
		}
		return c.Next()
	}
}
