package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Consume outcomes.
const (
	outcomeProcessed   = "processed"
	outcomeFailed      = "failed"
	outcomeDuplicate   = "duplicate"
	outcomeUndecodable = "undecodable"
)

var (
	consumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yellowcat",
			Subsystem: "kafka",
			Name:      "consumed_total",
			Help:      "Messages fetched by consumers, by outcome.",
		},
		[]string{"topic", "group", "outcome"},
	)

	handleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "yellowcat",
			Subsystem: "kafka",
			Name:      "handle_duration_seconds",
			Help:      "Time spent in message handlers, retries included.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"topic", "group"},
	)

	publishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yellowcat",
			Subsystem: "kafka",
			Name:      "published_total",
			Help:      "Publish attempts, by result.",
		},
		[]string{"topic", "result"},
	)

	publishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "yellowcat",
			Subsystem: "kafka",
			Name:      "publish_duration_seconds",
			Help:      "Latency of writer calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"topic"},
	)
)
