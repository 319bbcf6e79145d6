package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Stream outcomes, used as the "outcome" label.
const (
	outcomeOK            = "ok"
	outcomeUpstreamError = "upstream_error"
	outcomeClientGone    = "client_gone"
	outcomeShutdown      = "shutdown"
)

type metrics struct {
	registry *prometheus.Registry

	streamsTotal         *prometheus.CounterVec
	streamDuration       *prometheus.HistogramVec
	fragmentsTotal       *prometheus.CounterVec
	tokensTotal          *prometheus.CounterVec
	activeStreams        prometheus.Gauge
	authRejections       prometheus.Counter
	validationRejections prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),

		streamsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scribe",
			Subsystem: "relay",
			Name:      "streams_total",
			Help:      "Total number of finished streams, labeled by route and outcome.",
		}, []string{"route", "outcome"}),

		streamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scribe",
			Subsystem: "relay",
			Name:      "stream_duration_seconds",
			Help:      "Time from opening the model call to the end of the stream.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		}, []string{"route", "outcome"}),

		fragmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scribe",
			Subsystem: "relay",
			Name:      "fragments_total",
			Help:      "Total number of model fragments written to clients.",
		}, []string{"route"}),

		tokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scribe",
			Subsystem: "model",
			Name:      "tokens_total",
			Help:      "Tokens reported by the model provider, labeled by kind (prompt or completion).",
		}, []string{"kind"}),

		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scribe",
			Subsystem: "relay",
			Name:      "active_streams",
			Help:      "Current number of open streams.",
		}),

		authRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scribe",
			Subsystem: "http",
			Name:      "auth_rejections_total",
			Help:      "Total number of requests rejected with 401.",
		}),

		validationRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scribe",
			Subsystem: "http",
			Name:      "validation_rejections_total",
			Help:      "Total number of requests rejected with 422.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.streamsTotal,
		m.streamDuration,
		m.fragmentsTotal,
		m.tokensTotal,
		m.activeStreams,
		m.authRejections,
		m.validationRejections,
	)
	return m
}
