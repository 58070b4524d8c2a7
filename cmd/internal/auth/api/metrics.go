package authapi

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts login outcomes. A nil *Metrics records nothing.
type Metrics struct {
	logins *prometheus.CounterVec
}

// NewMetrics registers auth collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coldeye",
		Subsystem: "auth",
		Name:      "logins_total",
		Help:      "Login attempts by outcome (success, invalid_credentials, bad_request, error).",
	}, []string{"outcome"})

	if reg != nil {
		if err := reg.Register(logins); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
					logins = existing
				}
			}
		}
	}
	return &Metrics{logins: logins}
}

func (m *Metrics) login(outcome string) {
	if m != nil {
		m.logins.WithLabelValues(outcome).Inc()
	}
}
