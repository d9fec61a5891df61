package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wallet_tracker"

var (
	// ExplorerRequests counts explorer API calls by network, action and outcome.
	ExplorerRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "explorer_requests_total",
		Help:      "Explorer API requests by network, action and outcome.",
	}, []string{"network", "action", "outcome"})

	ExplorerLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "explorer_request_duration_seconds",
		Help:      "Explorer API request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"network", "action"})

	// RPCScanFallbacks counts history requests answered by scanning recent blocks.
	RPCScanFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_scan_fallbacks_total",
		Help:      "Transaction history requests served by the RPC block scan.",
	}, []string{"network"})

	TokenBalanceErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_balance_errors_total",
		Help:      "Token balance lookups that failed and were omitted.",
	}, []string{"network"})

	// CacheLookups counts transaction cache lookups by result: hit, miss or expired.
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transaction_cache_lookups_total",
		Help:      "Transaction cache lookups by result.",
	}, []string{"network", "result"})

	MockFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transaction_mock_fallbacks_total",
		Help:      "Transaction history requests answered with mock data.",
	}, []string{"network"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "REST API requests by route and status.",
	}, []string{"route", "status"})

	registerOnce sync.Once
)

// MustRegisterMetrics registers all collectors with the default registry. Safe to call twice.
func MustRegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ExplorerRequests,
			ExplorerLatency,
			RPCScanFallbacks,
			TokenBalanceErrors,
			CacheLookups,
			MockFallbacks,
			HTTPRequests,
		)
	})
}
