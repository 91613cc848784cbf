package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the counters the gateway and worker reactors update.
// Registered against a private Registry rather than the global default
// one, so tests can build as many instances as they like without
// duplicate-registration panics.
type Metrics struct {
	Registry *prometheus.Registry

	AcceptedConnections prometheus.Counter
	ClassifiedRequests  *prometheus.CounterVec
	DispatchRetries     prometheus.Counter
	FrameDecodeErrors   prometheus.Counter
	FramesHandled       *prometheus.CounterVec
}

// NewMetrics constructs and registers all counters for role ("gateway"
// or "worker").
func NewMetrics(role string) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		AcceptedConnections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "rinha_reactor",
			Name:        "accepted_connections_total",
			Help:        "Connections accepted by the reactor.",
			ConstLabels: prometheus.Labels{"role": role},
		}),
		ClassifiedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "rinha_reactor",
			Name:        "classified_requests_total",
			Help:        "HTTP requests classified by the gateway, by kind.",
			ConstLabels: prometheus.Labels{"role": role},
		}, []string{"kind"}),
		DispatchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "rinha_reactor",
			Name:        "dispatch_retries_total",
			Help:        "Frame sends that had to be retried against a worker.",
			ConstLabels: prometheus.Labels{"role": role},
		}),
		FrameDecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "rinha_reactor",
			Name:        "frame_decode_errors_total",
			Help:        "Frames dropped due to a decode failure.",
			ConstLabels: prometheus.Labels{"role": role},
		}),
		FramesHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "rinha_reactor",
			Name:        "frames_handled_total",
			Help:        "Frames decoded and handed to the back-end, by kind.",
			ConstLabels: prometheus.Labels{"role": role},
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.AcceptedConnections,
		m.ClassifiedRequests,
		m.DispatchRetries,
		m.FrameDecodeErrors,
		m.FramesHandled,
	)
	return m
}
