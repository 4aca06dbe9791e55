// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SecretFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secret_group_fetch_total",
			Help: "Remote secret group fetches by backend and outcome kind.",
		}, []string{"backend", "outcome"})

	SecretCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "secret_group_cache_hits_total",
			Help: "Secret group reads served from the in-process cache.",
		})

	SecretResolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secret_resolve_total",
			Help: "Secret resolutions by the source that produced the value.",
		}, []string{"source"})

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route pattern, and status code.",
		}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"})
)

func init() {
	prometheus.MustRegister(
		SecretFetchTotal,
		SecretCacheHitsTotal,
		SecretResolveTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}
