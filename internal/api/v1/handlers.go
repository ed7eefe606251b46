package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/recipefox/recipefox/app/controllers"
)

// APIServer implements the ServerInterface
type APIServer struct{}

func NewAPIServer() *APIServer {
	return &APIServer{}
}

func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}

func (s *APIServer) PostAuthLogin(c *fiber.Ctx) error {
	return controllers.HandleAPILogin(c)
}

func (s *APIServer) PostAuthLogout(c *fiber.Ctx) error {
	return controllers.HandleAPILogout(c)
}

// PostPremiumInitiate returns a signed eSewa form for the session user.
func (s *APIServer) PostPremiumInitiate(c *fiber.Ctx) error {
	return controllers.HandlePremiumInitiate(c)
}

// PostPremiumVerify confirms a payment with the gateway before activating premium.
func (s *APIServer) PostPremiumVerify(c *fiber.Ctx) error {
	return controllers.HandlePremiumVerify(c)
}

func (s *APIServer) GetPremiumStatus(c *fiber.Ctx) error {
	return controllers.HandlePremiumStatus(c)
}

// GetPremiumPerks is premium-only; the router puts RequirePremium in front of it.
func (s *APIServer) GetPremiumPerks(c *fiber.Ctx) error {
	return controllers.HandlePremiumPerks(c)
}
