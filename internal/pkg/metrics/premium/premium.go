package premium

import (
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements billing.Metrics on prometheus collectors.
type Metrics struct {
	sessions       *prometheus.CounterVec
	verifications  *prometheus.CounterVec
	gatewayLatency prometheus.Histogram
}

// New registers the premium collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		sessions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "recipefox",
				Subsystem: "premium",
				Name:      "sessions_built_total",
				Help:      "Signed payment sessions handed to clients.",
			},
			[]string{"tier"},
		),
		verifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "recipefox",
				Subsystem: "premium",
				Name:      "verifications_total",
				Help:      "Payment verifications by outcome.",
			},
			[]string{"outcome"},
		),
		gatewayLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "recipefox",
				Subsystem: "premium",
				Name:      "gateway_status_seconds",
				Help:      "Latency of the gateway status query.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
	}
}

func (m *Metrics) SessionBuilt(tier string) {
	m.sessions.WithLabelValues(tier).Inc()
}

func (m *Metrics) VerificationFinished(outcome string) {
	m.verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) GatewayLatency(d time.Duration) {
	m.gatewayLatency.Observe(d.Seconds())
}

// RegisterActiveSubscribers exposes the number of subscribers whose premium
// has not lapsed. The count is taken at scrape time.
func RegisterActiveSubscribers(reg prometheus.Registerer, count func(now time.Time) (int64, error)) {
	promauto.With(reg).NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "recipefox",
			Subsystem: "premium",
			Name:      "active_subscribers",
			Help:      "Subscribers with unexpired premium access.",
		},
		func() float64 {
			n, err := count(time.Now())
			if err != nil {
				log.Errorf("[Metrics] counting premium subscribers failed: %v", err)
				return 0
			}
			return float64(n)
		},
	)
}
