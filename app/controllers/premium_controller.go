package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"

	"github.com/recipefox/recipefox/internal/pkg/billing"
	"github.com/recipefox/recipefox/internal/pkg/entitlements"
	"github.com/recipefox/recipefox/internal/pkg/usercontext"
)

// PaymentVerifier confirms a payment with the gateway and activates premium.
type PaymentVerifier interface {
	Verify(ctx context.Context, transactionID string, amount decimal.Decimal, subscriberID uint) (*billing.Result, error)
}

// SubscriptionStatuses reads the current entitlement of a subscriber.
type SubscriptionStatuses interface {
	Status(ctx context.Context, subscriberID uint, now time.Time) (*entitlements.Status, error)
}

type PremiumController struct {
	cfg      *billing.Config
	sessions *billing.SessionBuilder
	verifier PaymentVerifier
	statuses SubscriptionStatuses
	validate *validator.Validate
	now      func() time.Time
}

func NewPremiumController(cfg *billing.Config, sessions *billing.SessionBuilder, verifier PaymentVerifier, statuses SubscriptionStatuses) *PremiumController {
	return &PremiumController{
		cfg:      cfg,
		sessions: sessions,
		verifier: verifier,
		statuses: statuses,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Global premium controller instance
var premiumController *PremiumController

func InitializePremiumController(pc *PremiumController) {
	premiumController = pc
}

func GetPremiumController() *PremiumController {
	if premiumController == nil {
		panic("Premium controller not initialized. Call InitializePremiumController first.")
	}
	return premiumController
}

type initiateRequest struct {
	Duration string `json:"duration" validate:"required,oneof=monthly yearly"`
}

type verifyRequest struct {
	TransactionUUID string          `json:"transaction_uuid" validate:"required,max=64"`
	Amount          decimal.Decimal `json:"amount"`
	SubscriberID    uint            `json:"subscriberId"`
}

// HandleInitiate signs a payment session for the logged-in subscriber and
// returns the form the client posts to the gateway.
func (pc *PremiumController) HandleInitiate(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var req initiateRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	req.Duration = strings.ToLower(strings.TrimSpace(req.Duration))
	if err := pc.validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_error", "duration must be monthly or yearly")
	}

	tier, err := billing.ParseTier(req.Duration)
	if err != nil {
		return pc.premiumError(c, err)
	}
	sess, err := pc.sessions.BuildSession(userID, tier, pc.now())
	if err != nil {
		return pc.premiumError(c, err)
	}

	log.Infof("[Premium] Payment session %s created for user %d (%s)", sess.TransactionID, userID, tier)

	return c.JSON(fiber.Map{
		"amount":           billing.FormatAmount(sess.Amount),
		"duration":         string(sess.Tier),
		"subscriberId":     sess.SubscriberID,
		"transaction_uuid": sess.TransactionID,
		"form_url":         sess.FormURL,
		"form_fields":      sess.FormValues(),
		"expires_at":       sess.CreatedAt.Add(billing.IntentSoftTimeout).UTC().Format(time.RFC3339),
	})
}

// HandleVerify lets the client confirm a payment it was redirected back from.
func (pc *PremiumController) HandleVerify(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	req.TransactionUUID, _ = billing.SplitTransactionID(req.TransactionUUID)
	if err := pc.validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_error", "transaction_uuid is required")
	}
	if req.SubscriberID != 0 && req.SubscriberID != userID {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Payments can only be verified for your own account")
	}

	result, err := pc.verifier.Verify(c.UserContext(), req.TransactionUUID, req.Amount, userID)
	if err != nil {
		return pc.premiumError(c, err)
	}

	return c.JSON(result.Status)
}

// HandleStatus reports whether the logged-in subscriber currently has premium.
func (pc *PremiumController) HandleStatus(c *fiber.Ctx) error {
	st, err := pc.statuses.Status(c.UserContext(), usercontext.GetUserID(c), pc.now())
	if err != nil {
		return pc.premiumError(c, err)
	}
	return c.JSON(st)
}

// HandleCheckout renders an auto-submitting form that takes the browser
// straight to the gateway.
func (pc *PremiumController) HandleCheckout(c *fiber.Ctx) error {
	tier, err := billing.ParseTier(c.Query("duration", string(billing.TierMonthly)))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Unknown premium duration")
	}

	sess, err := pc.sessions.BuildSession(usercontext.GetUserID(c), tier, pc.now())
	if err != nil {
		log.Errorf("[Premium] Checkout for user %d failed: %v", usercontext.GetUserID(c), err)
		return c.Status(fiber.StatusInternalServerError).SendString("Checkout is currently unavailable")
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Render("premium/checkout", fiber.Map{
		"Tier":    string(sess.Tier),
		"Amount":  billing.FormatAmount(sess.Amount),
		"FormURL": sess.FormURL,
		"Fields":  sess.Fields,
	})
}

// HandlePerks is premium-only content; the route sits behind RequirePremium.
func (pc *PremiumController) HandlePerks(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"plan": string(entitlements.PlanPremium),
		"perks": []string{
			"unlimited_saved_recipes",
			"meal_planner",
			"ad_free",
			"offline_cookbook",
		},
	})
}

func (pc *PremiumController) premiumError(c *fiber.Ctx, err error) error {
	status, code, message := premiumErrorStatus(err)
	if status >= fiber.StatusInternalServerError {
		log.Errorf("[Premium] %s %s for user %d: %v", c.Method(), c.Path(), usercontext.GetUserID(c), err)
	}
	return jsonError(c, status, code, message)
}

// premiumErrorStatus maps billing and entitlement errors onto HTTP.
func premiumErrorStatus(err error) (int, string, string) {
	var verr *billing.ValidationError
	switch {
	case errors.As(err, &verr):
		return fiber.StatusUnprocessableEntity, "validation_error", verr.Error()
	case errors.Is(err, billing.ErrValidation):
		return fiber.StatusUnprocessableEntity, "validation_error", err.Error()
	case errors.Is(err, entitlements.ErrSubscriberNotFound):
		return fiber.StatusNotFound, "not_found", "Subscriber not found"
	case errors.Is(err, billing.ErrTransientGateway) && errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "gateway_timeout", "Verification failed, please retry"
	case errors.Is(err, billing.ErrTransientGateway):
		return fiber.StatusBadGateway, "gateway_unavailable", "Verification failed, please retry"
	case errors.Is(err, billing.ErrGatewayRejected):
		return fiber.StatusPaymentRequired, "payment_failed", "Payment was not completed"
	case errors.Is(err, billing.ErrEntitlementWrite):
		return fiber.StatusInternalServerError, "internal_server_error", "Payment confirmed but premium could not be activated, please contact support"
	default:
		return fiber.StatusInternalServerError, "internal_server_error", "Something went wrong"
	}
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}

// Adapter functions for the router

func HandlePremiumInitiate(c *fiber.Ctx) error {
	return GetPremiumController().HandleInitiate(c)
}

func HandlePremiumVerify(c *fiber.Ctx) error {
	return GetPremiumController().HandleVerify(c)
}

func HandlePremiumStatus(c *fiber.Ctx) error {
	return GetPremiumController().HandleStatus(c)
}

func HandlePremiumCheckout(c *fiber.Ctx) error {
	return GetPremiumController().HandleCheckout(c)
}

func HandlePremiumPerks(c *fiber.Ctx) error {
	return GetPremiumController().HandlePerks(c)
}
