package chunkdata

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the prometheus collectors of a registry.
// A nil *metrics is valid and records nothing.
type metrics struct {
	calls       *prometheus.CounterVec
	errors      *prometheus.CounterVec
	packetBytes prometheus.Histogram
	notices     *prometheus.CounterVec
}

// newMetrics creates the collectors and registers them with reg.
// It returns nil if reg is nil.
func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	return &metrics{
		calls: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chunkdata",
			Name:      "orchestrations_total",
			Help:      "Number of orchestration calls by operation.",
		}, []string{"op"})),
		errors: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chunkdata",
			Name:      "manager_errors_total",
			Help:      "Number of manager failures by manager and operation.",
		}, []string{"manager", "op"})),
		packetBytes: register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chunkdata",
			Name:      "chunk_packet_compressed_bytes",
			Help:      "Size of compressed chunk packets.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		})),
		notices: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chunkdata",
			Name:      "version_notices_total",
			Help:      "Number of version compatibility notices by kind.",
		}, []string{"kind"})),
	}
}

// register adds c to reg, reusing the collector already registered under the
// same descriptor when several registries share one registerer.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic("chunkdata: failed to register metrics: " + err.Error())
	}
	return c
}

func (m *metrics) call(op string) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(op).Inc()
}

// observe records err if it is a manager failure and returns it unchanged.
func (m *metrics) observe(err error) error {
	if m == nil || err == nil {
		return err
	}
	var ioErr *ManagerIOError
	if errors.As(err, &ioErr) {
		m.errors.WithLabelValues(key(ioErr.Domain, ioErr.ID), ioErr.Op).Inc()
	}
	return err
}

func (m *metrics) compressed(n int) {
	if m == nil {
		return
	}
	m.packetBytes.Observe(float64(n))
}

func (m *metrics) notice(kind NoticeKind) {
	if m == nil {
		return
	}
	m.notices.WithLabelValues(kind.String()).Inc()
}
