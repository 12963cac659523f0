package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for realtime channels.
var (
	channelsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cma_event_channels_active",
		Help: "Number of joined realtime channels",
	})

	jobResultMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cma_job_result_messages_total",
		Help: "Total number of realtime events received",
	}, []string{"event", "outcome"}) // outcome: "received", "invalid"

	jobResultsBuffered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cma_job_result_buffered",
		Help: "Number of job results received before anyone waited for them",
	})
)
