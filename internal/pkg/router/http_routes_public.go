package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/recipefox/recipefox/app/controllers"
	"github.com/recipefox/recipefox/internal/pkg/billing"
	"github.com/recipefox/recipefox/internal/pkg/middleware"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Server-rendered checkout that posts straight to eSewa
	app.Get("/premium/checkout", middleware.RequireAuth(h.deps.LoginURL), controllers.HandlePremiumCheckout)

	// Gateway redirects. No session is required: the browser may come back
	// on a fresh cookie jar and the verifier trusts only the status query.
	app.Get(billing.SuccessCallbackPath, controllers.HandlePremiumPaymentSuccess)
	app.Get(billing.FailureCallbackPath, controllers.HandlePremiumPaymentFailure)
}
