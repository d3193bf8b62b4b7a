// Command trustedserver runs the first-party ad-serving edge gateway: the
// publisher-origin proxy, the first-party resource proxy, the server-side
// auction, the vendor integration surface, and GDPR consent/erasure,
// behind one HTTP listener.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/sovrn-labs/trustedserver/internal/auction"
	"github.com/sovrn-labs/trustedserver/internal/config"
	"github.com/sovrn-labs/trustedserver/internal/creative"
	"github.com/sovrn-labs/trustedserver/internal/gateway"
	"github.com/sovrn-labs/trustedserver/internal/gdpr"
	"github.com/sovrn-labs/trustedserver/internal/geoip"
	"github.com/sovrn-labs/trustedserver/internal/httpapi"
	"github.com/sovrn-labs/trustedserver/internal/integrations"
	"github.com/sovrn-labs/trustedserver/internal/logic/ratelimit"
	"github.com/sovrn-labs/trustedserver/internal/observability"
	"github.com/sovrn-labs/trustedserver/internal/proxy"
	"github.com/sovrn-labs/trustedserver/internal/storage"
	"github.com/sovrn-labs/trustedserver/internal/tokencodec"
)

// shutdownGracePeriod bounds how long the server waits for in-flight
// requests to drain after a shutdown signal.
const shutdownGracePeriod = 10 * time.Second

func main() {
	cfg := config.Load()

	logger, err := observability.InitLoggerWithService(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := config.LoadSettings(cfg.SettingsPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	metrics := observability.NewPrometheusRegistry()

	if cfg.TracingEnabled {
		shutdownTracing, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.TempoEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdownTracing()
	}

	store, err := storage.New(cfg.RedisAddr, settings.Synthetic.CounterStore, settings.Synthetic.OPIDStore)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() { _ = store.Close() }()

	geoSvc, err := geoip.Init(cfg.GeoIPDB)
	if err != nil {
		return fmt.Errorf("load geoip db: %w", err)
	}
	defer func() { _ = geoSvc.Close() }()

	registry, err := integrations.New(settings)
	if err != nil {
		return fmt.Errorf("build integration registry: %w", err)
	}

	codec, err := tokencodec.New(settings.Publisher.ProxySecret)
	if err != nil {
		return fmt.Errorf("build token codec: %w", err)
	}
	creativeRewriter := creative.New(codec)

	// Outbound calls to the publisher origin, third-party resources, and
	// auction providers all get a tracing span via otelhttp, so a slow
	// origin fetch or provider timeout shows up in the same trace as the
	// inbound request that triggered it.
	tracedClient := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

	orchestrator := buildOrchestrator(settings, tracedClient, metrics)

	gdprHandler := gdpr.NewHandler(store, settings)
	originProxy := proxy.NewOriginProxy(settings, registry, tracedClient)
	firstPartyProxy := proxy.NewFirstPartyProxy(codec, creativeRewriter, tracedClient)

	rateLimiter := ratelimit.NewKeyedLimiter(ratelimit.Config{
		Capacity:   cfg.RateLimitCapacity,
		RefillRate: cfg.RateLimitRefillRate,
		Enabled:    cfg.RateLimitEnabled,
	}, metrics)

	server := httpapi.NewServer(
		logger,
		settings,
		registry,
		orchestrator,
		creativeRewriter,
		codec,
		gdprHandler,
		originProxy,
		firstPartyProxy,
		geoSvc,
		metrics,
		rateLimiter,
	)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("trusted server running", zap.String("addr", addr), zap.String("publisher", settings.Publisher.Domain))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// buildOrchestrator wires the auction orchestrator's providers according to
// settings.Auction.Providers. "prebid" and "aps" are bidders; "adserver_mock"
// is the mediator invoked after the bidding phase, matching the vendor IDs
// the integration registry reserves for the auction package instead of the
// generic integration registry (see DESIGN.md).
func buildOrchestrator(settings *gateway.Settings, client *http.Client, metrics observability.MetricsRegistry) *auction.Orchestrator {
	orchestrator := auction.NewOrchestrator(settings.Auction.TimeoutMS, metrics)

	prebidCfg, hasPrebid := settings.Integration["prebid"]
	apsCfg, hasAPS := settings.Integration["aps"]
	mediatorCfg, hasMediator := settings.Integration["adserver_mock"]

	for _, id := range settings.Auction.Providers {
		switch id {
		case "prebid":
			if hasPrebid && prebidCfg.Enabled {
				orchestrator.RegisterProvider(auction.NewOpenRTBProvider(prebidCfg.ServerURL, settings.Auction.Bidders, client))
			}
		case "aps":
			if hasAPS && apsCfg.Enabled {
				orchestrator.RegisterProvider(auction.NewAPSProvider(apsCfg.ServerURL, client))
			}
		}
	}

	if hasMediator && mediatorCfg.Enabled {
		orchestrator.SetMediator(auction.NewMockMediator(mediatorCfg.ServerURL, client))
	}

	return orchestrator
}
