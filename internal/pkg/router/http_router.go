package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/recipefox/recipefox/internal/pkg/middleware"
	"github.com/recipefox/recipefox/internal/pkg/session"
)

type HttpRouter struct {
	deps Deps
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session unless one was injected
	if session.GetSessionStore() == nil {
		session.NewSessionStore()
	}

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware())

	h.registerPublicRoutes(app)
}

func NewHttpRouter(deps Deps) *HttpRouter {
	return &HttpRouter{deps: deps}
}
