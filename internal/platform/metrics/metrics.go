package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the protocol. Services treat a
// nil *Metrics as a no-op so tests never register collectors.
type Metrics struct {
	RegistrationsRequested prometheus.Counter
	ProvisionsSucceeded    prometheus.Counter
	ProvisionsFailed       prometheus.Counter
	RecordsAdded           prometheus.Counter
	PermitDenials          prometheus.Counter
	RequestDuration        prometheus.Histogram
}

// New creates and registers all metrics on the default registry. Call once per
// process.
func New() *Metrics {
	return &Metrics{
		RegistrationsRequested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultd_registrations_requested_total",
			Help: "Total registration requests accepted by the directory",
		}),
		ProvisionsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultd_provisions_succeeded_total",
			Help: "Total vault provisions that completed successfully",
		}),
		ProvisionsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultd_provisions_failed_total",
			Help: "Total vault provisions that failed",
		}),
		RecordsAdded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultd_records_added_total",
			Help: "Total records written through the directory or vaults",
		}),
		PermitDenials: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultd_permit_denials_total",
			Help: "Total permit checks that failed",
		}),
		RequestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vaultd_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementRegistrationsRequested() {
	if m != nil {
		m.RegistrationsRequested.Inc()
	}
}

func (m *Metrics) IncrementProvisionsSucceeded() {
	if m != nil {
		m.ProvisionsSucceeded.Inc()
	}
}

func (m *Metrics) IncrementProvisionsFailed() {
	if m != nil {
		m.ProvisionsFailed.Inc()
	}
}

func (m *Metrics) IncrementRecordsAdded() {
	if m != nil {
		m.RecordsAdded.Inc()
	}
}

func (m *Metrics) IncrementPermitDenials() {
	if m != nil {
		m.PermitDenials.Inc()
	}
}

func (m *Metrics) ObserveRequestDuration(seconds float64) {
	if m != nil {
		m.RequestDuration.Observe(seconds)
	}
}
