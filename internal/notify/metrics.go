package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "menged"

var (
	outboxQueueSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "queue_size",
			Help:      "Number of outbox tasks by status",
		},
		[]string{"status"},
	)

	outboxDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "dispatched_total",
			Help:      "Total delivery attempts by outcome",
		},
		[]string{"type", "result"},
	)

	outboxSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "send_duration_seconds",
			Help:      "Time from claim to delivery for one task",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	outboxClaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "claimed_total",
			Help:      "Total tasks claimed from the outbox for dispatch",
		},
	)
)

func recordDispatch(taskType, result string) {
	outboxDispatched.WithLabelValues(taskType, result).Inc()
}

func recordSendDuration(d time.Duration) {
	outboxSendDuration.Observe(d.Seconds())
}

func recordBatchClaimed(count int) {
	outboxClaimed.Add(float64(count))
}

// RecordQueueStats updates the queue size gauges.
func RecordQueueStats(stats *QueueStats) {
	outboxQueueSize.WithLabelValues(string(StatusPending)).Set(float64(stats.Pending))
	outboxQueueSize.WithLabelValues(string(StatusSending)).Set(float64(stats.Sending))
	outboxQueueSize.WithLabelValues(string(StatusSent)).Set(float64(stats.Sent))
	outboxQueueSize.WithLabelValues(string(StatusFailed)).Set(float64(stats.Failed))
}
