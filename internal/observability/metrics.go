package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Mesh message outcomes.
const (
	OutcomeSent      = "sent"
	OutcomeDelivered = "delivered"
	OutcomeDropped   = "dropped"
	OutcomeRejected  = "rejected"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seedbank",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "seedbank",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	meshMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seedbank",
			Subsystem: "mesh",
			Name:      "messages_total",
			Help:      "Mesh messages by node, type and outcome.",
		},
		[]string{"node", "type", "outcome"},
	)
	meshQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "seedbank",
			Subsystem: "mesh",
			Name:      "queue_depth",
			Help:      "Messages waiting in a network delivery queue.",
		},
		[]string{"network"},
	)
	meshSeedsStored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seedbank",
			Subsystem: "mesh",
			Name:      "seeds_stored_total",
			Help:      "Seed writes into node stores.",
		},
		[]string{"node"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, meshMessages, meshQueueDepth, meshSeedsStored)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordMessage(node, msgType, outcome string) {
	RegisterMetrics()
	meshMessages.WithLabelValues(node, msgType, outcome).Inc()
}

func SetQueueDepth(network string, depth int) {
	RegisterMetrics()
	meshQueueDepth.WithLabelValues(network).Set(float64(depth))
}

func RecordSeedStored(node string) {
	RegisterMetrics()
	meshSeedsStored.WithLabelValues(node).Inc()
}
