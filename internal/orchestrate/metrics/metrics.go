package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the enrichment engine.
type Metrics struct {
	// Action outcomes by action and result ("success", "pending", "skip",
	// "error")
	ActionOutcome *prometheus.CounterVec

	// Provider call latencies by action
	ProviderLatency *prometheus.HistogramVec

	// Incoming provider webhook callbacks by result
	IncomingWebhook *prometheus.CounterVec

	// Profiles created from prospected contacts and discovered companies
	ProfilesCreated *prometheus.CounterVec

	// Bulk scheduler queue depth by tenant
	QueueDepth *prometheus.GaugeVec
}

// New creates a Metrics instance with all engine metrics registered.
func New() *Metrics {
	return &Metrics{
		ActionOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "traitsync_action_outcomes_total",
			Help: "Total enrichment action outcomes by action and result",
		}, []string{"action", "result"}),

		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "traitsync_provider_call_duration_seconds",
			Help:    "Duration of provider lookups by action",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"action"}),

		IncomingWebhook: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "traitsync_incoming_webhooks_total",
			Help: "Total provider webhook callbacks by result",
		}, []string{"result"}), // result: "applied", "ignored", "rejected"

		ProfilesCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "traitsync_profiles_created_total",
			Help: "Total profiles created from provider results by source",
		}, []string{"source"}), // source: "prospect", "discover"

		QueueDepth: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "traitsync_bulk_queue_depth",
			Help: "Pending bulk submissions per tenant",
		}, []string{"tenant"}),
	}
}

// IncrementOutcome records an action outcome.
func (m *Metrics) IncrementOutcome(action, result string) {
	if m != nil {
		m.ActionOutcome.WithLabelValues(action, result).Inc()
	}
}

// ObserveProviderLatency records the duration of one provider lookup.
func (m *Metrics) ObserveProviderLatency(action string, d time.Duration) {
	if m != nil {
		m.ProviderLatency.WithLabelValues(action).Observe(d.Seconds())
	}
}

// IncrementIncomingWebhook records a provider callback.
func (m *Metrics) IncrementIncomingWebhook(result string) {
	if m != nil {
		m.IncomingWebhook.WithLabelValues(result).Inc()
	}
}

// IncrementProfilesCreated records profiles minted from provider results.
func (m *Metrics) IncrementProfilesCreated(source string, n int) {
	if m != nil {
		m.ProfilesCreated.WithLabelValues(source).Add(float64(n))
	}
}

// SetQueueDepth records the pending bulk submissions for a tenant.
func (m *Metrics) SetQueueDepth(tenant string, depth int) {
	if m != nil {
		m.QueueDepth.WithLabelValues(tenant).Set(float64(depth))
	}
}
