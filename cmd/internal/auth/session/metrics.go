package session

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts token lifecycle events. A nil *Metrics records nothing.
type Metrics struct {
	issued  prometheus.Counter
	lookups *prometheus.CounterVec
	purged  prometheus.Counter
}

// NewMetrics registers session collectors on reg, reusing ones already registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		issued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coldeye",
			Subsystem: "session",
			Name:      "tokens_issued_total",
			Help:      "Number of login tokens issued.",
		}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coldeye",
			Subsystem: "session",
			Name:      "token_lookups_total",
			Help:      "Token lookups by result (ok, missing, expired, error).",
		}, []string{"result"}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coldeye",
			Subsystem: "session",
			Name:      "tokens_purged_total",
			Help:      "Expired token rows removed by the sweeper.",
		}),
	}
	m.issued = register(reg, m.issued)
	m.lookups = register(reg, m.lookups)
	m.purged = register(reg, m.purged)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *Metrics) tokenIssued() {
	if m != nil {
		m.issued.Inc()
	}
}

func (m *Metrics) lookup(result string) {
	if m != nil {
		m.lookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) purgedRows(n int64) {
	if m != nil && n > 0 {
		m.purged.Add(float64(n))
	}
}
