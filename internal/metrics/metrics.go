package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rateLimitDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "socialpilot_ratelimit_dropped_total",
	Help: "Number of requests rejected with HTTP 429, by path prefix",
}, []string{"prefix"})

var eventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "socialpilot_events_received_total",
	Help: "Number of inbound platform events evaluated against automation rules",
}, []string{"kind"})

var rulesMatched = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "socialpilot_rules_matched_total",
	Help: "Number of rule matches produced by inbound events",
}, []string{"account"})

var actionsOutcome = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "socialpilot_actions_total",
	Help: "Number of rendered actions by outcome (success, failed, skipped, preview)",
}, []string{"action", "status"})

var deliveryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "socialpilot_delivery_duration_seconds",
	Help:    "Time spent delivering a rendered action",
	Buckets: prometheus.DefBuckets,
}, []string{"action"})

var deliveryQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "socialpilot_delivery_queue_depth",
	Help: "Number of rendered actions waiting for a delivery worker",
})

var automationRules = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "socialpilot_automation_rules",
	Help: "Number of automation rules by status",
}, []string{"status"})

// IncRateLimitDrop increments drop counters for the given prefix.
// Use prefix "global" for global limiter rejections.
func IncRateLimitDrop(prefix string) {
	if prefix == "" {
		prefix = "global"
	}
	rateLimitDropped.WithLabelValues(prefix).Inc()
}

func IncEventReceived(kind string) {
	eventsReceived.WithLabelValues(kind).Inc()
}

func AddRulesMatched(accountID string, n int) {
	if n <= 0 {
		return
	}
	rulesMatched.WithLabelValues(accountID).Add(float64(n))
}

func IncActionOutcome(action, status string) {
	actionsOutcome.WithLabelValues(action, status).Inc()
}

func ObserveDelivery(action string, d time.Duration) {
	deliveryDuration.WithLabelValues(action).Observe(d.Seconds())
}

func SetQueueDepth(n int) {
	deliveryQueueDepth.Set(float64(n))
}

// SetRuleCounts publishes the active/paused split of the rule store.
func SetRuleCounts(active, paused int) {
	automationRules.WithLabelValues("active").Set(float64(active))
	automationRules.WithLabelValues("paused").Set(float64(paused))
}
