// Package httpapi wires the gateway's HTTP surface: the publisher-origin
// proxy, the first-party third-party-resource proxy, the auction
// endpoints, the registered vendor integrations, GDPR consent/erasure, and
// the discovery document, all behind one gorilla/mux router.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/sovrn-labs/trustedserver/internal/auction"
	"github.com/sovrn-labs/trustedserver/internal/creative"
	"github.com/sovrn-labs/trustedserver/internal/gateway"
	"github.com/sovrn-labs/trustedserver/internal/gdpr"
	"github.com/sovrn-labs/trustedserver/internal/geoip"
	"github.com/sovrn-labs/trustedserver/internal/integrations"
	"github.com/sovrn-labs/trustedserver/internal/logic/ratelimit"
	"github.com/sovrn-labs/trustedserver/internal/middleware"
	"github.com/sovrn-labs/trustedserver/internal/observability"
	"github.com/sovrn-labs/trustedserver/internal/proxy"
	"github.com/sovrn-labs/trustedserver/internal/tokencodec"
)

// Server bundles every dependency the route handlers need.
type Server struct {
	Logger       *zap.Logger
	Settings     *gateway.Settings
	Registry     *integrations.Registry
	Orchestrator *auction.Orchestrator
	Creative     *creative.Rewriter
	Codec        *tokencodec.Codec
	GDPR         *gdpr.Handler
	Origin       *proxy.OriginProxy
	FirstParty   *proxy.FirstPartyProxy
	GeoIP        *geoip.GeoIP
	Metrics      observability.MetricsRegistry
	RateLimiter  *ratelimit.KeyedLimiter
}

// NewServer constructs a Server from its fully-built dependencies.
func NewServer(
	logger *zap.Logger,
	settings *gateway.Settings,
	registry *integrations.Registry,
	orchestrator *auction.Orchestrator,
	creativeRewriter *creative.Rewriter,
	codec *tokencodec.Codec,
	gdprHandler *gdpr.Handler,
	origin *proxy.OriginProxy,
	firstParty *proxy.FirstPartyProxy,
	geo *geoip.GeoIP,
	metrics observability.MetricsRegistry,
	rateLimiter *ratelimit.KeyedLimiter,
) *Server {
	return &Server{
		Logger:       logger,
		Settings:     settings,
		Registry:     registry,
		Orchestrator: orchestrator,
		Creative:     creativeRewriter,
		Codec:        codec,
		GDPR:         gdprHandler,
		Origin:       origin,
		FirstParty:   firstParty,
		GeoIP:        geo,
		Metrics:      metrics,
		RateLimiter:  rateLimiter,
	}
}

// Router builds the gateway's route table.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.WithTraceLogger(s.Logger))
	if s.RateLimiter != nil {
		r.Use(s.rateLimitMiddleware)
	}

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/.well-known/trusted-server.json", s.handleDiscovery).Methods(http.MethodGet)

	r.HandleFunc("/first-party/proxy", s.FirstParty.ServeHTTP).Methods(http.MethodGet)
	r.HandleFunc("/first-party/ad", s.handleFirstPartyAd).Methods(http.MethodGet)

	r.HandleFunc("/ad/auction", s.handleAuction).Methods(http.MethodPost)

	r.HandleFunc("/gdpr/consent", s.GDPR.HandleConsent).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/gdpr/data", s.GDPR.HandleDataSubject).Methods(http.MethodGet, http.MethodDelete)

	r.PathPrefix("/integrations/").HandlerFunc(s.handleIntegration)

	// Everything else is the publisher's own site, proxied and rewritten.
	r.PathPrefix("/").Handler(s.Origin)

	return otelhttp.NewHandler(r, "trustedserver")
}

// rateLimitMiddleware rejects a request with 429 once its client IP has
// exhausted its token bucket. Keyed per client IP, same as the teacher's
// rate limiter keys per caller rather than globally.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := middleware.ClientIP(r)
		if !s.RateLimiter.Allow(key) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleIntegration(w http.ResponseWriter, r *http.Request) {
	if s.Registry.HandleProxy(w, r, s.Settings) {
		return
	}
	http.NotFound(w, r)
}
