package protocodec

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/anirudhraja/protocodec/wire"
)

const (
	opEncode = "encode"
	opDecode = "decode"
)

// Metrics counts codec traffic. A nil *Metrics records nothing.
type Metrics struct {
	messages    *prometheus.CounterVec
	bytes       *prometheus.CounterVec
	errors      *prometheus.CounterVec
	messageSize *prometheus.HistogramVec
}

// NewMetrics creates a new set of metrics. Metrics will be registered to reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	var m Metrics

	m.messages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protocodec",
		Name:      "messages_total",
		Help:      "Total number of messages encoded or decoded successfully.",
	}, []string{"op", "message"})

	m.bytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protocodec",
		Name:      "bytes_total",
		Help:      "Total number of wire bytes produced or consumed.",
	}, []string{"op"})

	m.errors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protocodec",
		Name:      "errors_total",
		Help:      "Total number of encode and decode failures by error kind.",
	}, []string{"op", "kind"})

	m.messageSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "protocodec",
		Name:      "message_size_bytes",
		Help:      "Size of encoded messages.",
		// 16B to 4MB
		Buckets: prometheus.ExponentialBuckets(16, 4, 10),
	}, []string{"op"})

	reg.MustRegister(m.messages, m.bytes, m.errors, m.messageSize)
	return &m
}

func (m *Metrics) observe(op, messageType string, size int) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(op, messageType).Inc()
	m.bytes.WithLabelValues(op).Add(float64(size))
	m.messageSize.WithLabelValues(op).Observe(float64(size))
}

func (m *Metrics) failed(op string, err error) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(op, errorKind(err)).Inc()
}

// errorKind names the codec error kind of err for labels and logs
func errorKind(err error) string {
	if kind := wire.Kind(err); kind != nil {
		return kind.Error()
	}
	return "other"
}
