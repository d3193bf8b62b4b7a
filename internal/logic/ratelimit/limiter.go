package ratelimit

import (
	"fmt"
	"sync"

	"github.com/sovrn-labs/trustedserver/internal/observability"
)

// KeyedLimiter manages rate limiting across an arbitrary set of keys —
// a vendor integration ID, a publisher ID, a proxy target host.
//
// Each key gets its own token bucket, created lazily on first access.
// The limiter integrates with an injected metrics registry to track rate limiting activity.
//
// Example usage:
//
//	config := Config{Capacity: 100, RefillRate: 10, Enabled: true}
//	metrics := observability.NewPrometheusRegistry()
//	limiter := NewKeyedLimiter(config, metrics)
//
//	if limiter.Allow("integrations/prebid") {
//	    // forward the request
//	} else {
//	    // reject with 429
//	}
type KeyedLimiter struct {
	buckets map[string]*TokenBucket       // Map of key to token bucket
	mu      sync.RWMutex                  // Protects the buckets map
	config  Config                        // Rate limiting configuration
	metrics observability.MetricsRegistry // Metrics registry for tracking rate limiting activity
}

// Config holds the configuration for rate limiting.
type Config struct {
	Capacity   int  // Token bucket capacity (burst allowance)
	RefillRate int  // Tokens added per second (sustained rate)
	Enabled    bool // Whether rate limiting is active
}

// NewKeyedLimiter creates a new keyed rate limiter with the given configuration.
func NewKeyedLimiter(config Config, metrics observability.MetricsRegistry) *KeyedLimiter {
	return &KeyedLimiter{
		buckets: make(map[string]*TokenBucket),
		config:  config,
		metrics: metrics,
	}
}

// Allow checks if a request for the given key should be allowed.
//
// If rate limiting is disabled via config, this method always returns true.
// The method automatically creates token buckets for new keys and
// updates metrics via the injected registry for monitoring.
func (kl *KeyedLimiter) Allow(key string) bool {
	if !kl.config.Enabled {
		return true
	}

	kl.metrics.IncrementRateLimitRequests(key)

	kl.mu.RLock()
	bucket, exists := kl.buckets[key]
	kl.mu.RUnlock()

	if !exists {
		kl.mu.Lock()
		bucket, exists = kl.buckets[key]
		if !exists {
			bucket = NewTokenBucket(kl.config.Capacity, kl.config.RefillRate)
			kl.buckets[key] = bucket
		}
		kl.mu.Unlock()
	}

	allowed := bucket.Allow()
	if !allowed {
		kl.metrics.IncrementRateLimitHits(key)
	}

	return allowed
}

// GetStats returns rate limiting statistics for all known keys.
//
// This method is thread-safe and provides a snapshot of current statistics.
func (kl *KeyedLimiter) GetStats() map[string]RateLimitStats {
	kl.mu.RLock()
	defer kl.mu.RUnlock()

	stats := make(map[string]RateLimitStats)
	for key, bucket := range kl.buckets {
		hits, total := bucket.Stats()
		hitRate := 0.0
		if total > 0 {
			hitRate = float64(hits) / float64(total)
		}
		stats[key] = RateLimitStats{
			Key:     key,
			Hits:    hits,
			Total:   total,
			HitRate: hitRate,
		}
	}

	return stats
}

// RateLimitStats contains statistics about rate limiting for a single key.
type RateLimitStats struct {
	Key     string  `json:"key"`
	Hits    int64   `json:"hits"`
	Total   int64   `json:"total"`
	HitRate float64 `json:"hitRate"`
}

// String returns a human-readable representation of the rate limit statistics.
func (rls RateLimitStats) String() string {
	return fmt.Sprintf("%s: %d/%d hits (%.2f%%)",
		rls.Key, rls.Hits, rls.Total, rls.HitRate*100)
}
