package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Chat metrics
	ChatRequests *prometheus.CounterVec

	// Heartbeat metrics
	CycleRuns       prometheus.Counter
	CycleDuration   prometheus.Histogram
	RemindersFired  prometheus.Counter
	SocialActions   *prometheus.CounterVec
	QuotaRejections *prometheus.CounterVec
}

// NewMetrics registers the metrics with reg. Tests pass a fresh registry.
func NewMetrics(reg prometheus.Registerer, quota *QuotaService, listeners *ConnectionManager) *Metrics {
	factory := promauto.With(reg)

	metrics := &Metrics{
		// Chat requests by routed intent
		ChatRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "moltbot_chat_requests_total",
			Help: "Total number of chat requests by routed intent",
		}, []string{"intent"}),

		CycleRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "moltbot_heartbeat_runs_total",
			Help: "Total number of autonomous cycle invocations",
		}),

		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "moltbot_heartbeat_duration_seconds",
			Help:    "Autonomous cycle latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30},
		}),

		RemindersFired: factory.NewCounter(prometheus.CounterOpts{
			Name: "moltbot_reminders_fired_total",
			Help: "Total number of reminders fired by sweeps",
		}),

		// Moltbook calls by action and outcome
		SocialActions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "moltbot_moltbook_actions_total",
			Help: "Total number of Moltbook calls by action and result",
		}, []string{"action", "result"}), // result: "success" or "error"

		QuotaRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "moltbot_quota_rejections_total",
			Help: "Social actions skipped because the daily quota was used up",
		}, []string{"action"}),
	}

	if quota != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "moltbot_daily_posts_remaining",
			Help: "Posts still allowed today (as of the last reconcile)",
		}, func() float64 {
			maxPosts, _ := quota.Limits()
			quota.mu.Lock()
			defer quota.mu.Unlock()
			return float64(maxPosts - quota.stats.PostsMade)
		})
	}

	if listeners != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "moltbot_notification_listeners",
			Help: "Current number of websocket notification listeners",
		}, func() float64 {
			return float64(listeners.Count())
		})
	}

	return metrics
}

// ObserveSocial counts a Moltbook call outcome. Safe on a nil receiver.
func (m *Metrics) ObserveSocial(action string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.SocialActions.WithLabelValues(action, result).Inc()
}

// ObserveQuotaRejection counts a skipped action. Safe on a nil receiver.
func (m *Metrics) ObserveQuotaRejection(action QuotaAction) {
	if m == nil {
		return
	}
	m.QuotaRejections.WithLabelValues(string(action)).Inc()
}

// ObserveChat counts a routed request. Safe on a nil receiver.
func (m *Metrics) ObserveChat(intent Intent) {
	if m == nil {
		return
	}
	m.ChatRequests.WithLabelValues(string(intent)).Inc()
}
