// Package metrics registers the Prometheus instruments shared across the
// application. Construct once in main and pass down; promauto registers on
// the default registry so New must not be called twice in a process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ClaimsIssued      *prometheus.CounterVec
	ClaimsRevoked     prometheus.Counter
	ClaimsSuperseded  prometheus.Counter
	SharesGenerated   prometheus.Counter
	Verifications     *prometheus.CounterVec
	AnchorFailures    prometheus.Counter
	AnchorDuration    prometheus.Histogram
	BulkRowsProcessed *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ClaimsIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credvault_claims_issued_total",
			Help: "Total number of claims issued, by kind",
		}, []string{"kind"}),
		ClaimsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credvault_claims_revoked_total",
			Help: "Total number of claims revoked",
		}),
		ClaimsSuperseded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credvault_claims_superseded_total",
			Help: "Total number of claims superseded by a newer version",
		}),
		SharesGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credvault_shares_generated_total",
			Help: "Total number of share tokens generated",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credvault_verifications_total",
			Help: "Total verification attempts, by outcome",
		}, []string{"outcome"}),
		AnchorFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "credvault_anchor_failures_total",
			Help: "Total ledger anchoring attempts that failed",
		}),
		AnchorDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "credvault_anchor_duration_seconds",
			Help:    "Duration of the ledger anchoring round trip",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		BulkRowsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credvault_bulk_rows_processed_total",
			Help: "Total bulk import/verify rows processed, by result",
		}, []string{"result"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "credvault_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "status"}),
	}
}

// RecordVerification increments the verification counter for an outcome.
// Safe on a nil receiver so callers need no guard.
func (m *Metrics) RecordVerification(outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}

// RecordBulkRow increments the bulk processing counter for a row result.
func (m *Metrics) RecordBulkRow(result string) {
	if m == nil {
		return
	}
	m.BulkRowsProcessed.WithLabelValues(result).Inc()
}
