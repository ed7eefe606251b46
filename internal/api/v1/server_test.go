package apiv1

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingServer struct {
	hits []string
}

func (r *recordingServer) hit(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r.hits = append(r.hits, name)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func (r *recordingServer) GetPing(c *fiber.Ctx) error { return r.hit("ping")(c) }
func (r *recordingServer) PostAuthLogin(c *fiber.Ctx) error { return r.hit("login")(c) }
func (r *recordingServer) PostAuthLogout(c *fiber.Ctx) error { return r.hit("logout")(c) }
func (r *recordingServer) PostPremiumInitiate(c *fiber.Ctx) error { return r.hit("initiate")(c) }
func (r *recordingServer) PostPremiumVerify(c *fiber.Ctx) error { return r.hit("verify")(c) }
func (r *recordingServer) GetPremiumStatus(c *fiber.Ctx) error { return r.hit("status")(c) }
func (r *recordingServer) GetPremiumPerks(c *fiber.Ctx) error { return r.hit("perks")(c) }

func TestRegisterHandlers(t *testing.T) {
	srv := &recordingServer{}
	denyPremium := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusPaymentRequired) }

	app := fiber.New()
	RegisterHandlers(app.Group("/api/v1"), srv, Middlewares{Premium: denyPremium})

	tests := []struct {
		method, path string
		want         int
	}{
		{"GET", "/api/v1/ping", fiber.StatusNoContent},
		{"POST", "/api/v1/auth/login", fiber.StatusNoContent},
		{"POST", "/api/v1/auth/logout", fiber.StatusNoContent},
		{"POST", "/api/v1/premium/initiate", fiber.StatusNoContent},
		{"POST", "/api/v1/premium/verify", fiber.StatusNoContent},
		{"GET", "/api/v1/premium/status", fiber.StatusNoContent},
		{"GET", "/api/v1/premium/perks", fiber.StatusPaymentRequired},
		{"GET", "/api/v1/premium/initiate", fiber.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(tt.method, tt.path, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, tt.want, resp.StatusCode, tt.method+" "+tt.path)
	}
	assert.Equal(t, []string{"ping", "login", "logout", "initiate", "verify", "status"}, srv.hits)
}

func TestGetPing(t *testing.T) {
	app := fiber.New()
	app.Get("/ping", NewAPIServer().GetPing)

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
