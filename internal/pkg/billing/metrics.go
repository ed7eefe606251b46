package billing

import "time"

// Metrics receives payment flow observations. The prometheus implementation
// lives in internal/pkg/metrics/premium.
type Metrics interface {
	SessionBuilt(tier string)
	VerificationFinished(outcome string)
	GatewayLatency(d time.Duration)
}

type NoopMetrics struct{}

func (NoopMetrics) SessionBuilt(string) {}
func (NoopMetrics) VerificationFinished(string) {}
func (NoopMetrics) GatewayLatency(time.Duration) {}
