package apiv1

import (
	"github.com/gofiber/fiber/v2"
)

// Pong is the body of GET /ping.
type Pong struct {
	Ping string `json:"ping"`
}

// ServerInterface lists the v1 operations documented in public/docs/v1/openapi.yml.
type ServerInterface interface {
	GetPing(c *fiber.Ctx) error
	PostAuthLogin(c *fiber.Ctx) error
	PostAuthLogout(c *fiber.Ctx) error
	PostPremiumInitiate(c *fiber.Ctx) error
	PostPremiumVerify(c *fiber.Ctx) error
	GetPremiumStatus(c *fiber.Ctx) error
	GetPremiumPerks(c *fiber.Ctx) error
}

// Middlewares guard the operations that need a session or an active subscription.
type Middlewares struct {
	Session fiber.Handler
	Premium fiber.Handler
}

func passThrough(c *fiber.Ctx) error {
	return c.Next()
}

// RegisterHandlers mounts every operation of si on router.
func RegisterHandlers(router fiber.Router, si ServerInterface, mw Middlewares) {
	if mw.Session == nil {
		mw.Session = passThrough
	}
	if mw.Premium == nil {
		mw.Premium = passThrough
	}

	router.Get("/ping", si.GetPing)

	router.Post("/auth/login", si.PostAuthLogin)
	router.Post("/auth/logout", mw.Session, si.PostAuthLogout)

	router.Post("/premium/initiate", mw.Session, si.PostPremiumInitiate)
	router.Post("/premium/verify", mw.Session, si.PostPremiumVerify)
	router.Get("/premium/status", mw.Session, si.GetPremiumStatus)
	router.Get("/premium/perks", mw.Session, mw.Premium, si.GetPremiumPerks)
}
