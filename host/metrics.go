package host

import (
	"github.com/ensemblecast/ensemble/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what the cast pipelines of a Host do.
type Metrics struct {
	sent    prometheus.Counter
	omitted prometheus.Counter
	dropped prometheus.Counter
	acks    *prometheus.CounterVec
}

// NewMetrics registers host collectors under the "host" subsystem unless
// opts say otherwise.
func NewMetrics(opts ...mux.MetricsOption) *Metrics {
	config := mux.NewMetricsConfig(append([]mux.MetricsOption{mux.WithSubsystem("host")}, opts...)...)
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}
	return &Metrics{
		sent:    counter("frames_sent_total", "Frames delivered to the viewer"),
		omitted: counter("masks_omitted_total", "Frames sent without their acknowledged mask"),
		dropped: counter("frames_dropped_total", "Captured frames skipped by the frame rate cap"),
		acks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "mask_acks_total",
			Help:        "Mask acknowledgements received, by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),
	}
}

func (m *Metrics) frameSent(hasMask bool) {
	if m == nil {
		return
	}
	m.sent.Inc()
	if !hasMask {
		m.omitted.Inc()
	}
}

func (m *Metrics) frameDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}

func (m *Metrics) maskAck(accepted bool) {
	if m == nil {
		return
	}
	result := "stale"
	if accepted {
		result = "accepted"
	}
	m.acks.WithLabelValues(result).Inc()
}
