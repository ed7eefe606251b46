package billing

import (
	"errors"
	"fmt"

	"github.com/recipefox/recipefox/internal/pkg/entitlements"
)

var (
	// ErrValidation marks bad input. Never retried and never sent to the gateway.
	ErrValidation = errors.New("billing: validation failed")

	// ErrMissingSignatureField is a programming error: a signed field or the
	// shared secret was empty.
	ErrMissingSignatureField = errors.New("billing: missing signature field")

	// ErrTransientGateway covers timeouts, network errors, 5xx and unreadable
	// status responses. Nothing was written; the caller may retry.
	ErrTransientGateway = errors.New("billing: gateway temporarily unavailable")

	// ErrGatewayRejected means the gateway answered and the payment is not complete.
	ErrGatewayRejected = errors.New("billing: payment not confirmed by gateway")

	// ErrEntitlementWrite means the gateway confirmed the payment but storing
	// the entitlement failed.
	ErrEntitlementWrite = errors.New("billing: entitlement write failed")

	ErrSubscriberNotFound = entitlements.ErrSubscriberNotFound
)

// ValidationError names the offending input. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
