package observability

import "time"

// MockMetricsRegistry is a mock implementation of MetricsRegistry for testing.
type MockMetricsRegistry struct{}

func (m *MockMetricsRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (m *MockMetricsRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (m *MockMetricsRegistry) IncrementNoBids()                                                     {}
func (m *MockMetricsRegistry) IncrementAuctionBids(provider, status string)                         {}
func (m *MockMetricsRegistry) RecordAuctionProviderLatency(provider string, duration time.Duration) {}
func (m *MockMetricsRegistry) RecordAuctionRoundLatency(duration time.Duration)                     {}
func (m *MockMetricsRegistry) IncrementRewrite(kind, result string)                                 {}
func (m *MockMetricsRegistry) RecordRewriteLatency(kind string, duration time.Duration)              {}
func (m *MockMetricsRegistry) IncrementRSCRows(rowKind string)                                       {}
func (m *MockMetricsRegistry) IncrementProxyTokenFailures(reason string)                             {}
func (m *MockMetricsRegistry) RecordOriginFetchLatency(target string, duration time.Duration)        {}
func (m *MockMetricsRegistry) IncrementSyntheticID(source string)                                    {}
func (m *MockMetricsRegistry) IncrementRateLimitRequests(key string)                                 {}
func (m *MockMetricsRegistry) IncrementRateLimitHits(key string)                                     {}
func (m *MockMetricsRegistry) IncrementIntegrationProxy(integration, status string)                  {}
func (m *MockMetricsRegistry) IncrementGDPREvent(action string)                                      {}
