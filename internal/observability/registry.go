package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics.
// Components depend on this interface rather than the global Prometheus
// collectors directly, so tests can substitute NoOpRegistry/MockMetricsRegistry.
type MetricsRegistry interface {
	// HTTP request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Auction metrics
	IncrementNoBids()
	IncrementAuctionBids(provider, status string)
	RecordAuctionProviderLatency(provider string, duration time.Duration)
	RecordAuctionRoundLatency(duration time.Duration)

	// Rewrite pipeline metrics
	IncrementRewrite(kind, result string)
	RecordRewriteLatency(kind string, duration time.Duration)
	IncrementRSCRows(rowKind string)

	// Proxy / token metrics
	IncrementProxyTokenFailures(reason string)
	RecordOriginFetchLatency(target string, duration time.Duration)

	// Synthetic ID metrics
	IncrementSyntheticID(source string)

	// Rate limiting metrics
	IncrementRateLimitRequests(key string)
	IncrementRateLimitHits(key string)

	// Integration proxy metrics
	IncrementIntegrationProxy(integration, status string)

	// GDPR metrics
	IncrementGDPREvent(action string)
}

// PrometheusRegistry implements MetricsRegistry using the package-level Prometheus collectors.
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry.
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementNoBids() {
	NoBidCount.Inc()
}

func (r *PrometheusRegistry) IncrementAuctionBids(provider, status string) {
	AuctionBidCount.WithLabelValues(provider, status).Inc()
}

func (r *PrometheusRegistry) RecordAuctionProviderLatency(provider string, duration time.Duration) {
	AuctionProviderLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) RecordAuctionRoundLatency(duration time.Duration) {
	AuctionRoundLatency.Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementRewrite(kind, result string) {
	RewriteCount.WithLabelValues(kind, result).Inc()
}

func (r *PrometheusRegistry) RecordRewriteLatency(kind string, duration time.Duration) {
	RewriteLatency.WithLabelValues(kind).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementRSCRows(rowKind string) {
	RSCRowCount.WithLabelValues(rowKind).Inc()
}

func (r *PrometheusRegistry) IncrementProxyTokenFailures(reason string) {
	ProxyTokenFailures.WithLabelValues(reason).Inc()
}

func (r *PrometheusRegistry) RecordOriginFetchLatency(target string, duration time.Duration) {
	OriginFetchLatency.WithLabelValues(target).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementSyntheticID(source string) {
	SyntheticIDCount.WithLabelValues(source).Inc()
}

func (r *PrometheusRegistry) IncrementRateLimitRequests(key string) {
	RateLimitRequests.WithLabelValues(key).Inc()
}

func (r *PrometheusRegistry) IncrementRateLimitHits(key string) {
	RateLimitHits.WithLabelValues(key).Inc()
}

func (r *PrometheusRegistry) IncrementIntegrationProxy(integration, status string) {
	IntegrationProxyCount.WithLabelValues(integration, status).Inc()
}

func (r *PrometheusRegistry) IncrementGDPREvent(action string) {
	GDPREventCount.WithLabelValues(action).Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods, for tests and
// for running with metrics disabled.
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry.
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementNoBids()                                                     {}
func (r *NoOpRegistry) IncrementAuctionBids(provider, status string)                         {}
func (r *NoOpRegistry) RecordAuctionProviderLatency(provider string, duration time.Duration) {}
func (r *NoOpRegistry) RecordAuctionRoundLatency(duration time.Duration)                     {}
func (r *NoOpRegistry) IncrementRewrite(kind, result string)                                 {}
func (r *NoOpRegistry) RecordRewriteLatency(kind string, duration time.Duration)              {}
func (r *NoOpRegistry) IncrementRSCRows(rowKind string)                                       {}
func (r *NoOpRegistry) IncrementProxyTokenFailures(reason string)                             {}
func (r *NoOpRegistry) RecordOriginFetchLatency(target string, duration time.Duration)        {}
func (r *NoOpRegistry) IncrementSyntheticID(source string)                                    {}
func (r *NoOpRegistry) IncrementRateLimitRequests(key string)                                 {}
func (r *NoOpRegistry) IncrementRateLimitHits(key string)                                     {}
func (r *NoOpRegistry) IncrementIntegrationProxy(integration, status string)                  {}
func (r *NoOpRegistry) IncrementGDPREvent(action string)                                      {}
