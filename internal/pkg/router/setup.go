package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/recipefox/recipefox/internal/pkg/middleware"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Deps are the collaborators the routes need besides the controller globals.
type Deps struct {
	Statuses middleware.StatusSource
	// LoginURL is where browsers without a session are sent.
	LoginURL string
	// AllowOrigins is the CORS origin list of the frontend.
	AllowOrigins string
}

func InstallRouter(app *fiber.App, deps Deps) {
	// HttpRouter goes first: it sets up the session store and the
	// UserContext middleware the API routes depend on.
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
