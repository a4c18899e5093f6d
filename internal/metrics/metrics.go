// Package metrics exposes the Prometheus counters and histograms the
// request pipeline reports into, grounded on the teacher's
// internal/monitoring package-level promauto var style.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RoutePicks counts every Virtual Router pool pick, by route and
	// provider id, so pool skew and auto-ban drift are observable.
	RoutePicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routecodex_route_picks_total",
			Help: "Total number of Virtual Router pool picks",
		},
		[]string{"route", "provider"},
	)

	// RouteBans counts entries into the auto-ban list per provider key.
	RouteBans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routecodex_route_bans_total",
			Help: "Total number of pool members auto-banned",
		},
		[]string{"provider"},
	)

	// OAuthRefreshes counts token refresh attempts by provider type and
	// outcome ("ok", "failed", "cooldown").
	OAuthRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routecodex_oauth_refreshes_total",
			Help: "Total number of OAuth token refresh attempts",
		},
		[]string{"provider_type", "outcome"},
	)

	// ExecutorRetries counts rotation attempts the Executor performs
	// after a retryable upstream response, by provider type and trigger
	// status code.
	ExecutorRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routecodex_executor_retries_total",
			Help: "Total number of provider rotation retries",
		},
		[]string{"provider_type", "status"},
	)

	// SSEFramesForwarded counts individual SSE data frames the dialect
	// translators re-emit to the client.
	SSEFramesForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routecodex_sse_frames_forwarded_total",
			Help: "Total number of SSE frames forwarded to clients",
		},
		[]string{"from", "to"},
	)

	// ExecuteDuration observes end-to-end Execute() latency.
	ExecuteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "routecodex_execute_duration_seconds",
			Help:    "Execute() latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"route", "status"},
	)
)
