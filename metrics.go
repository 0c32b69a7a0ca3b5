package membership

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the membership service.
// All recording methods are nil-safe so instrumentation stays optional.
type Metrics struct {
	registry *prometheus.Registry

	RegistrationsTotal  prometheus.Counter
	VerificationsTotal  *prometheus.CounterVec
	LoginsTotal         *prometheus.CounterVec
	AdminMutationsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		RegistrationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "membership_registrations_total",
			Help: "Total number of registration submissions accepted.",
		}),

		VerificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "membership_verifications_total",
			Help: "Total number of email verification attempts.",
		}, []string{"result"}),

		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "membership_logins_total",
			Help: "Total number of login attempts.",
		}, []string{"result"}),

		AdminMutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "membership_admin_mutations_total",
			Help: "Total number of privileged mutations by operation.",
		}, []string{"operation", "result"}),
	}

	reg.MustRegister(
		m.RegistrationsTotal,
		m.VerificationsTotal,
		m.LoginsTotal,
		m.AdminMutationsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncRegistration() {
	if m == nil {
		return
	}
	m.RegistrationsTotal.Inc()
}

func (m *Metrics) IncVerification(result string) {
	if m == nil {
		return
	}
	m.VerificationsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncLogin(result string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncAdminMutation(operation, result string) {
	if m == nil {
		return
	}
	m.AdminMutationsTotal.WithLabelValues(operation, result).Inc()
}
