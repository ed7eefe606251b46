package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/recipefox/recipefox/internal/pkg/session"
	"github.com/recipefox/recipefox/internal/pkg/usercontext"
)

// UserContextMiddleware loads the session user for every request. It only
// reads the session; entitlement checks happen in RequirePremium and the
// premium handlers.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		store := session.GetSessionStore()
		if store == nil {
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}
		sess, err := store.Get(c)
		if err != nil {
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}

		userID, ok := sess.Get(usercontext.KeyUserID).(uint)
		if !ok || userID == 0 {
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}

		username, _ := sess.Get(usercontext.KeyUsername).(string)
		isAdmin, _ := sess.Get(usercontext.KeyIsAdmin).(bool)

		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     userID,
			Username:   username,
			IsLoggedIn: true,
			IsAdmin:    isAdmin,
		})
		return c.Next()
	}
}
