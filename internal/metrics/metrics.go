package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Outbound EarthRanger API calls.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "earthranger_api_requests_total",
			Help: "Total number of EarthRanger API requests (by endpoint, method and status).",
		},
		[]string{"endpoint", "method", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "earthranger_api_request_duration_seconds",
			Help:    "Duration of EarthRanger API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"endpoint", "method"},
	)

	APIRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "earthranger_api_retries_total",
			Help: "Logical retries of EarthRanger calls.",
		},
		[]string{"endpoint"},
	)

	TokenGrantsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "earthranger_token_grants_total",
			Help: "OAuth grants attempted by the credential store.",
		},
		[]string{"grant_type", "result"}, // result = "ok" | "error"
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "earthranger_circuit_breaker_state",
			Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		},
		[]string{"name"},
	)

	// Broker publishes by subject and result.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publisher_messages_total",
			Help: "Total number of messages published.",
		},
		[]string{"subject", "result"},
	)

	MessageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "publisher_message_latency_seconds",
			Help:    "Time taken to publish a message.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subject"},
	)

	SyncRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_rows_total",
			Help: "Rows processed by the sync job.",
		},
		[]string{"table", "result"}, // fetched | upserted | failed
	)

	SyncRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_run_duration_seconds",
			Help:    "Duration of one sync cycle.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"table"},
	)

	// Secrets cache hits and misses.
	SecretsCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secrets_cache_access_total",
			Help: "Number of cache hits/misses in secret cache.",
		},
		[]string{"result"}, // hit | miss
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "erclient_errors_total",
			Help: "Count of errors by component.",
		},
		[]string{"component", "reason"},
	)

	// Unix seconds of the last successful sync.
	LastSyncTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp",
			Help: "Timestamp (unix seconds) of the last successful sync run.",
		},
		[]string{"table"},
	)
)

// ObserveDuration records the time since start on a histogram or summary vec.
func ObserveDuration(v any, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()

	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	default:
		// counters and gauges are not duration sinks
	}
}

func IncMessage(subject, result string) {
	MessagesTotal.WithLabelValues(subject, result).Inc()
}

func IncCacheHit(result string) {
	SecretsCacheHits.WithLabelValues(result).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

func AddSyncRows(table, result string, n int) {
	SyncRowsTotal.WithLabelValues(table, result).Add(float64(n))
}

func SetLastSync(table string, t time.Time) {
	LastSyncTimestamp.WithLabelValues(table).Set(float64(t.Unix()))
}

// ClientObserver feeds erclient telemetry into the collectors above.
type ClientObserver struct{}

func (ClientObserver) ObserveRequest(endpoint, method string, status int, elapsed time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	APIRequestsTotal.WithLabelValues(endpoint, method, code).Inc()
	APIRequestDuration.WithLabelValues(endpoint, method).Observe(elapsed.Seconds())
}

func (ClientObserver) ObserveGrant(grantType string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	TokenGrantsTotal.WithLabelValues(grantType, result).Inc()
}

func (ClientObserver) ObserveRetry(endpoint string, _ int) {
	APIRetriesTotal.WithLabelValues(endpoint).Inc()
}

func (ClientObserver) ObserveBreakerState(name, state string) {
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	BreakerState.WithLabelValues(name).Set(v)
}
