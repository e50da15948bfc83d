package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_updater_http_requests_total",
			Help: "Total number of HTTP requests served by the metrics server.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_updater_http_request_duration_seconds",
			Help:    "Duration of HTTP requests served by the metrics server.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_updater_api_requests_total",
			Help: "Outbound requests to the image generation API.",
		},
		[]string{"code", "method"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_updater_api_request_duration_seconds",
			Help:    "Latency of outbound requests to the image generation API.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"code", "method"},
	)

	APIAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_updater_api_attempts_total",
			Help: "Image API attempts by classified outcome.",
		},
		[]string{"outcome"}, // created, missing_url, rate_limited, rejected, transport_error
	)

	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_updater_records_total",
			Help: "Records processed, by result.",
		},
		[]string{"result"}, // updated, not_updated, failed
	)

	BatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_updater_batches_total",
			Help: "Pages of pending records fetched.",
		},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_updater_cache_lookups_total",
			Help: "Result cache lookups.",
		},
		[]string{"result"}, // hit, miss, error
	)
)
