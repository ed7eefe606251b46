package middleware

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/recipefox/recipefox/internal/pkg/usercontext"
)

func loggedIn(c *fiber.Ctx) bool {
	b, ok := c.Locals(usercontext.KeyFromProtected).(bool)
	return ok && b
}

// RequireAuth ensures a logged-in web session; redirects to loginURL with the
// requested path in "next" otherwise.
func RequireAuth(loginURL string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !loggedIn(c) {
			return c.Redirect(loginURL+"?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusSeeOther)
		}
		return c.Next()
	}
}

// RequireAPISessionAuth ensures a logged-in session for API routes and returns JSON 401 instead of redirect.
func RequireAPISessionAuth(c *fiber.Ctx) error {
	if !loggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}
