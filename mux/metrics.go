package mux

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus collectors of a Session.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "ensemble").
	Namespace string

	// Subsystem is the metrics subsystem (default: "mux").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures MetricsConfig.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// NewMetricsConfig applies opts over the defaults.
func NewMetricsConfig(opts ...MetricsOption) MetricsConfig {
	config := MetricsConfig{
		Namespace: "ensemble",
		Subsystem: "mux",
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return config
}

// Metrics holds the collectors shared by every Session they are given to.
type Metrics struct {
	sent     *prometheus.CounterVec
	received *prometheus.CounterVec
	replies  prometheus.Counter
	pending  prometheus.Gauge
	failures *prometheus.CounterVec
}

// NewMetrics registers Session collectors. Register them once per
// registry and share the result between sessions.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := NewMetricsConfig(opts...)
	factory := promauto.With(config.Registry)

	return &Metrics{
		sent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "envelopes_sent_total",
			Help:        "Envelopes written, by message kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		received: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "envelopes_received_total",
			Help:        "Envelopes read, by message kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		replies: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "replies_resolved_total",
			Help:        "Replies delivered to a waiting sender",
			ConstLabels: config.ConstLabels,
		}),

		pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pending_replies",
			Help:        "Senders currently waiting for a reply",
			ConstLabels: config.ConstLabels,
		}),

		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "session_failures_total",
			Help:        "Sessions shut down, by reason",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),
	}
}

// The methods below accept a nil receiver so sessions without metrics
// can call them unconditionally.

func (m *Metrics) envelopeSent(kind string) {
	if m != nil {
		m.sent.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) envelopeReceived(kind string) {
	if m != nil {
		m.received.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) replyResolved() {
	if m != nil {
		m.replies.Inc()
	}
}

func (m *Metrics) pendingAdd(delta float64) {
	if m != nil {
		m.pending.Add(delta)
	}
}

func (m *Metrics) sessionFailed(reason string) {
	if m != nil {
		m.failures.WithLabelValues(reason).Inc()
	}
}
