package controllers

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"

	"github.com/recipefox/recipefox/internal/pkg/billing"
)

const (
	paymentSucceeded = "success"
	paymentFailed    = "failed"
)

// HandlePaymentSuccess is where the gateway sends the browser after a payment.
// Nothing on the redirect is trusted: the payment is confirmed by the
// verifier's own status query before anything is written.
func (pc *PremiumController) HandlePaymentSuccess(c *fiber.Ctx) error {
	txID, data := billing.SplitTransactionID(c.Query("transactionId"))
	if data == "" {
		data = c.Query("data")
	}
	userID, _ := strconv.ParseUint(strings.TrimSpace(c.Query("userId")), 10, 64)

	if txID == "" || userID == 0 {
		log.Warnf("[Premium] Success callback without transaction or user: tx=%q user=%q", txID, c.Query("userId"))
		return c.Redirect(pc.frontendRedirect(paymentFailed, txID, uint(userID)), fiber.StatusSeeOther)
	}

	amount, ok := pc.callbackAmount(txID, data, c.Query("duration"))
	if !ok {
		return c.Redirect(pc.frontendRedirect(paymentFailed, txID, uint(userID)), fiber.StatusSeeOther)
	}

	result, err := pc.verifier.Verify(c.UserContext(), txID, amount, uint(userID))
	if err != nil {
		log.Warnf("[Premium] Verification of %s for user %d failed: %v", txID, userID, err)
		return c.Redirect(pc.frontendRedirect(paymentFailed, txID, uint(userID)), fiber.StatusSeeOther)
	}

	log.Infof("[Premium] Callback for %s finished: %s", txID, result.Outcome)
	return c.Redirect(pc.frontendRedirect(paymentSucceeded, txID, uint(userID)), fiber.StatusSeeOther)
}

// HandlePaymentFailure only sends the browser back to the frontend.
func (pc *PremiumController) HandlePaymentFailure(c *fiber.Ctx) error {
	txID, _ := billing.SplitTransactionID(c.Query("transactionId"))
	log.Infof("[Premium] Payment %q cancelled or failed at the gateway", txID)
	return c.Redirect(pc.frontendRedirect(paymentFailed, txID, 0), fiber.StatusSeeOther)
}

// callbackAmount picks the amount to verify: the decoded total_amount when
// the payload is readable, otherwise the price of the duration on the URL.
// Either way the verifier checks it against the price table and the gateway.
func (pc *PremiumController) callbackAmount(txID, data, duration string) (decimal.Decimal, bool) {
	if data != "" {
		cb, err := billing.DecodeCallbackData(data)
		if err != nil {
			log.Warnf("[Premium] Unreadable callback data for %s: %v", txID, err)
		} else {
			if !cb.SignatureValid(billing.NewSigner(pc.cfg.SecretKey)) {
				log.Warnf("[Premium] Callback data for %s carries an invalid signature", txID)
			}
			if cb.TransactionUUID != "" && cb.TransactionUUID != txID {
				log.Warnf("[Premium] Callback data names %s but URL names %s", cb.TransactionUUID, txID)
			}
			log.Debugf("[Premium] Callback data for %s: status=%s code=%s", txID, cb.Status, cb.TransactionCode)
			if amount, err := cb.Amount(); err == nil {
				return amount, true
			}
		}
	}

	tier, err := billing.ParseTier(duration)
	if err != nil {
		log.Warnf("[Premium] No usable amount for %s (duration=%q)", txID, duration)
		return decimal.Zero, false
	}
	amount, err := pc.cfg.Prices.Price(tier)
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

func (pc *PremiumController) frontendRedirect(outcome, txID string, userID uint) string {
	q := url.Values{}
	q.Set("payment", outcome)
	if txID != "" {
		q.Set("transactionId", txID)
	}
	if userID != 0 {
		q.Set("userId", strconv.FormatUint(uint64(userID), 10))
	}
	return pc.cfg.FrontendURL + "/premium?" + q.Encode()
}

func HandlePremiumPaymentSuccess(c *fiber.Ctx) error {
	return GetPremiumController().HandlePaymentSuccess(c)
}

func HandlePremiumPaymentFailure(c *fiber.Ctx) error {
	return GetPremiumController().HandlePaymentFailure(c)
}
