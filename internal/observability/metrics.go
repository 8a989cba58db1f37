// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the relay.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	AuthDenials     *prometheus.CounterVec

	// Transfer metrics
	TransfersTotal       *prometheus.CounterVec
	TransferDuration     prometheus.Histogram
	ProvisioningTotal    prometheus.Counter
	SecondaryReadFailure prometheus.Counter

	// Ledger metrics
	RPCCallLatency *prometheus.HistogramVec

	// Journal metrics
	JournalWrites      prometheus.Counter
	JournalWriteErrors prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "usdc_relay"
	}

	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"route", "status"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		AuthDenials: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "denials_total",
			Help:      "Total number of denied requests by credential transport",
		}, []string{"transport"}),
		TransfersTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "total",
			Help:      "Total number of transfer orchestrations by outcome",
		}, []string{"outcome"}),
		TransferDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "duration_seconds",
			Help:      "End-to-end transfer orchestration duration",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		ProvisioningTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "provisioning_total",
			Help:      "Total number of recipient token accounts provisioned",
		}),
		SecondaryReadFailure: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "secondary_read_failures_total",
			Help:      "Balance reads that failed after a confirmed transfer",
		}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "rpc_call_duration_seconds",
			Help:      "Ledger RPC call latency by method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		JournalWrites: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "writes_total",
			Help:      "Total number of journal entries written",
		}),
		JournalWriteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "write_errors_total",
			Help:      "Total number of failed journal writes",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the package-level metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRequest records an HTTP request.
func RecordRequest(route, status string, seconds float64) {
	DefaultMetrics.RequestsTotal.WithLabelValues(route, status).Inc()
	DefaultMetrics.RequestDuration.WithLabelValues(route).Observe(seconds)
}

// RecordAuthDenial records a denied credential check.
func RecordAuthDenial(transport string) {
	DefaultMetrics.AuthDenials.WithLabelValues(transport).Inc()
}

// RecordTransfer records a completed transfer orchestration.
func RecordTransfer(outcome string, seconds float64) {
	DefaultMetrics.TransfersTotal.WithLabelValues(outcome).Inc()
	DefaultMetrics.TransferDuration.Observe(seconds)
}

// RecordProvisioning records a provisioned recipient account.
func RecordProvisioning() {
	DefaultMetrics.ProvisioningTotal.Inc()
}

// RecordSecondaryReadFailure records a failed post-transfer balance read.
func RecordSecondaryReadFailure() {
	DefaultMetrics.SecondaryReadFailure.Inc()
}

// RecordRPCLatency records ledger RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordJournalWrite records a journal write attempt.
func RecordJournalWrite(err error) {
	DefaultMetrics.JournalWrites.Inc()
	if err != nil {
		DefaultMetrics.JournalWriteErrors.Inc()
	}
}
