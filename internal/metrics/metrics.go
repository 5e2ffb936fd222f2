package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nooveria_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nooveria_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ChargesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nooveria_ledger_charges_total",
			Help: "Total number of charge attempts by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	ChargeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nooveria_ledger_charge_duration_seconds",
			Help:    "Charge duration in seconds, lock acquisition through commit",
			Buckets: prometheus.DefBuckets,
		},
	)

	TokensChargedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nooveria_ledger_tokens_charged_total",
			Help: "Total number of tokens debited by source wallet",
		},
		[]string{"source"},
	)

	CacheEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nooveria_ledger_cache_events_total",
			Help: "Wallet cache operations by result",
		},
		[]string{"op", "result"},
	)

	QuotaEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nooveria_ledger_quota_events_total",
			Help: "Communal quota operations by result",
		},
		[]string{"op", "result"},
	)

	TopUpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nooveria_ledger_topups_total",
			Help: "Total number of wallet credits by transaction kind",
		},
		[]string{"kind"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordCharge(source, outcome string, duration float64) {
	ChargesTotal.WithLabelValues(source, outcome).Inc()
	ChargeDuration.Observe(duration)
}

func RecordTokensCharged(source string, tokens float64) {
	TokensChargedTotal.WithLabelValues(source).Add(tokens)
}

func RecordCacheEvent(op, result string) {
	CacheEventsTotal.WithLabelValues(op, result).Inc()
}

func RecordQuotaEvent(op, result string) {
	QuotaEventsTotal.WithLabelValues(op, result).Inc()
}

func RecordTopUp(kind string) {
	TopUpsTotal.WithLabelValues(kind).Inc()
}
