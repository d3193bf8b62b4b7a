package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustedserver_requests_total",
			Help: "Total HTTP requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trustedserver_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// number of auction rounds that produced no usable bid
	NoBidCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trustedserver_auction_nobid_total",
			Help: "Total auction rounds with no winning bid",
		},
	)

	// bids received per provider, labelled by outcome (success/nobid/error/pending; a timeout counts as error)
	AuctionBidCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustedserver_auction_provider_bids_total",
			Help: "Total provider responses collected by the auction orchestrator",
		},
		[]string{"provider", "status"},
	)

	// per-provider round-trip latency
	AuctionProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trustedserver_auction_provider_duration_seconds",
			Help:    "Latency of individual auction provider calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// end-to-end orchestrator latency for a full auction round
	AuctionRoundLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trustedserver_auction_round_duration_seconds",
			Help:    "Latency of a full auction orchestration round",
			Buckets: prometheus.DefBuckets,
		},
	)

	// document rewrite operations, labelled by content kind and outcome
	RewriteCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustedserver_rewrite_total",
			Help: "Total streaming rewrite operations",
		},
		[]string{"kind", "result"},
	)

	// rewrite pass latency, labelled by content kind (html/js/css/rsc)
	RewriteLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trustedserver_rewrite_duration_seconds",
			Help:    "Duration of streaming rewrite passes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// RSC flight rows processed, labelled by row kind (tagged/untagged/length)
	RSCRowCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustedserver_rsc_rows_total",
			Help: "Total React Server Component flight rows processed",
		},
		[]string{"row_kind"},
	)

	// first-party proxy token verification failures, labelled by reason
	ProxyTokenFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustedserver_proxy_token_failures_total",
			Help: "Total first-party proxy token decode/verify failures",
		},
		[]string{"reason"},
	)

	// synthetic IDs produced, labelled by source (header/cookie/generated)
	SyntheticIDCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustedserver_synthetic_id_total",
			Help: "Total synthetic ID resolutions by source",
		},
		[]string{"source"},
	)

	// rate limit hits per key (integration id, publisher id, proxy host)
	RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustedserver_ratelimit_hits_total",
			Help: "Total rate limit rejections per key",
		},
		[]string{"key"},
	)

	// rate limit checks per key
	RateLimitRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustedserver_ratelimit_requests_total",
			Help: "Total rate limit checks per key",
		},
		[]string{"key"},
	)

	// integration proxy handler invocations, labelled by integration id and status
	IntegrationProxyCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustedserver_integration_proxy_total",
			Help: "Total integration proxy handler invocations",
		},
		[]string{"integration", "status"},
	)

	// consent record mutations, labelled by action (grant/revoke/erase)
	GDPREventCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustedserver_gdpr_events_total",
			Help: "Total GDPR consent and data-subject events",
		},
		[]string{"action"},
	)

	// publisher origin fetch latency
	OriginFetchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trustedserver_origin_fetch_duration_seconds",
			Help:    "Latency of publisher/backend origin fetches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"target"},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		NoBidCount,
		AuctionBidCount,
		AuctionProviderLatency,
		AuctionRoundLatency,
		RewriteCount,
		RewriteLatency,
		RSCRowCount,
		ProxyTokenFailures,
		SyntheticIDCount,
		RateLimitHits,
		RateLimitRequests,
		IntegrationProxyCount,
		GDPREventCount,
		OriginFetchLatency,
	)
}
