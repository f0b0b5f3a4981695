package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal   *prometheus.CounterVec
	solanaRPCCallDuration *prometheus.HistogramVec

	// Link Metrics
	linksCreatedTotal      *prometheus.CounterVec
	actionsResolvedTotal   *prometheus.CounterVec
	transactionsBuiltTotal *prometheus.CounterVec
	transactionBuildTime   *prometheus.HistogramVec

	// Confirmation Metrics
	confirmationsTotal   *prometheus.CounterVec
	confirmationDuration *prometheus.HistogramVec

	// Database Metrics
	dbQueryDuration   *prometheus.HistogramVec
	dbOperationsTotal *prometheus.CounterVec

	// HTTP Metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Solana RPC Metrics
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method"},
		),

		// Link Metrics
		linksCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blinkpay_links_created_total",
				Help: "Total number of payment link creation attempts",
			},
			[]string{"token", "status"},
		),
		actionsResolvedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blinkpay_actions_resolved_total",
				Help: "Total number of action payload lookups",
			},
			[]string{"status"},
		),
		transactionsBuiltTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blinkpay_transactions_built_total",
				Help: "Total number of unsigned transactions built",
			},
			[]string{"token", "status", "ata_created"},
		),
		transactionBuildTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "blinkpay_transaction_build_duration_seconds",
				Help:    "Time spent building an unsigned transaction, including RPC calls",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"token"},
		),

		// Confirmation Metrics
		confirmationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blinkpay_confirmations_total",
				Help: "Total number of payment confirmation checks by outcome",
			},
			[]string{"status"},
		),
		confirmationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "blinkpay_confirmation_check_duration_seconds",
				Help:    "Duration of a single signature status check",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"status"},
		),

		// Database Metrics
		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation", "table"},
		),
		dbOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_operations_total",
				Help: "Total number of database operations by status",
			},
			[]string{"operation", "status"},
		),

		// HTTP Metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of messages published to NATS",
			},
			[]string{"event_type", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"event_type"},
		),
	}
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method).Observe(duration)
}

// Link metric helpers

// RecordLinkCreated records a link creation attempt.
func (m *Metrics) RecordLinkCreated(token, status string) {
	m.linksCreatedTotal.WithLabelValues(token, status).Inc()
}

// RecordActionResolved records an action payload lookup.
func (m *Metrics) RecordActionResolved(status string) {
	m.actionsResolvedTotal.WithLabelValues(status).Inc()
}

// RecordTransactionBuilt records a transaction build attempt with duration.
func (m *Metrics) RecordTransactionBuilt(token, status string, ataCreated bool, duration float64) {
	created := "false"
	if ataCreated {
		created = "true"
	}
	m.transactionsBuiltTotal.WithLabelValues(token, status, created).Inc()
	m.transactionBuildTime.WithLabelValues(token).Observe(duration)
}

// Confirmation metric helpers

// RecordConfirmationCheck records a single signature status check.
func (m *Metrics) RecordConfirmationCheck(status string, duration float64) {
	m.confirmationsTotal.WithLabelValues(status).Inc()
	m.confirmationDuration.WithLabelValues(status).Observe(duration)
}

// Database metric helpers

// RecordDBQuery records a database query with duration.
func (m *Metrics) RecordDBQuery(operation, table string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration)
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(eventType, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(eventType, status).Inc()
	m.natsPublishDuration.WithLabelValues(eventType).Observe(duration)
}

// Helper functions

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
