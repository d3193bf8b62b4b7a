package httpapi

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sovrn-labs/trustedserver/internal/auction"
	"github.com/sovrn-labs/trustedserver/internal/creative"
	"github.com/sovrn-labs/trustedserver/internal/gateway"
	"github.com/sovrn-labs/trustedserver/internal/gdpr"
	"github.com/sovrn-labs/trustedserver/internal/integrations"
	"github.com/sovrn-labs/trustedserver/internal/observability"
	"github.com/sovrn-labs/trustedserver/internal/proxy"
	"github.com/sovrn-labs/trustedserver/internal/storage"
	"github.com/sovrn-labs/trustedserver/internal/tokencodec"
)

// fakeProvider is a minimal auction.Provider stand-in so tests don't need a
// live Prebid/APS server.
type fakeProvider struct {
	id   string
	bids []auction.Bid
}

func (f *fakeProvider) ID() string { return f.id }

func (f *fakeProvider) Bid(ctx context.Context, req *auction.Request, actx auction.Context) auction.Response {
	return auction.Response{Provider: f.id, Status: auction.BidStatusSuccess, Bids: f.bids, Metadata: map[string]any{}}
}

func testSettings() *gateway.Settings {
	s := &gateway.Settings{
		Publisher: gateway.Publisher{
			Domain:       "edge.example.com",
			CookieDomain: ".edge.example.com",
			OriginURL:    "https://origin.example.com",
			ProxySecret:  "0123456789abcdef0123456789abcdef",
		},
		Synthetic: gateway.Synthetic{Template: "{{ client_ip }}", SecretKey: "synthetic-secret"},
		Auction:   gateway.Auction{TimeoutMS: 500},
	}
	s.Publisher.Normalize()
	return s
}

func testServer(t *testing.T) *Server {
	t.Helper()
	settings := testSettings()

	registry, err := integrations.New(&gateway.Settings{Integration: map[string]gateway.Integration{}})
	require.NoError(t, err)

	codec, err := tokencodec.New(settings.Publisher.ProxySecret)
	require.NoError(t, err)

	creativeRewriter := creative.New(codec)

	orchestrator := auction.NewOrchestrator(settings.Auction.TimeoutMS, observability.NewNoOpRegistry())
	orchestrator.RegisterProvider(&fakeProvider{
		id: "prebid",
		bids: []auction.Bid{{
			SlotID: "slot-1", Bidder: "prebid", Price: floatPtr(1.5),
			Creative: `<img src="https://cdn.example/creative.png">`, Width: 300, Height: 250,
		}},
	})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := storage.NewWithClient(client, "visits", "opid")
	gdprHandler := gdpr.NewHandler(store, settings)

	origin := proxy.NewOriginProxy(settings, registry, nil)
	firstParty := proxy.NewFirstPartyProxy(codec, creativeRewriter, nil)

	return NewServer(
		zap.NewNop(),
		settings,
		registry,
		orchestrator,
		creativeRewriter,
		codec,
		gdprHandler,
		origin,
		firstParty,
		nil,
		observability.NewNoOpRegistry(),
		nil,
	)
}

func floatPtr(f float64) *float64 { return &f }
