// Package metrics defines and registers all custom Prometheus metrics for the
// ShowAds data connector. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on import and
// exposed by the /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "connector"

// ── Ingestion metrics ─────────────────────────────────────────────────────────

// RecordsReceivedTotal counts records parsed from any ingestion source.
// Label:
//   - source: "api", "upload" or "cli"
var RecordsReceivedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_received_total",
		Help:      "Total number of customer records received, by source.",
	},
	[]string{"source"},
)

// RecordsRejectedTotal counts records dropped before delivery.
// Label:
//   - reason: "malformed", "invalid_name", "invalid_cookie", "age", "banner_id"
var RecordsRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_rejected_total",
		Help:      "Total number of customer records dropped by parsing or validation.",
	},
	[]string{"reason"},
)

// ── Delivery metrics ──────────────────────────────────────────────────────────

// DeliveryAttemptsTotal counts every POST made to a banner endpoint.
// Labels:
//   - route: "single" or "bulk"
//   - outcome: "ok", "unauthorized", "bad_request", "server_error",
//     "rate_limited", "other", "transport_error"
var DeliveryAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "delivery_attempts_total",
		Help:      "Total number of delivery attempts against the ShowAds API.",
	},
	[]string{"route", "outcome"},
)

// RecordsDeliveredTotal counts records accepted by ShowAds.
var RecordsDeliveredTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_delivered_total",
		Help:      "Total number of records delivered to ShowAds, by route.",
	},
	[]string{"route"},
)

// RecordsFallbackTotal counts records written to the fallback file.
var RecordsFallbackTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_fallback_total",
		Help:      "Total number of undelivered records stored for manual resend.",
	},
)

// TokenRefreshTotal counts access token refresh runs.
// Label:
//   - result: "ok", "exhausted", "cached"
var TokenRefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refresh_total",
		Help:      "Total number of access token acquisitions, by result.",
	},
	[]string{"result"},
)

// ChunkDeliveryDuration measures one chunk from first attempt to final outcome.
var ChunkDeliveryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "chunk_delivery_duration_seconds",
		Help:      "Duration of a chunk delivery including retries and fallback.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"route"},
)
