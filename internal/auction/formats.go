package auction

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/avct/uasurfer"
	"github.com/google/uuid"

	"github.com/sovrn-labs/trustedserver/internal/gateway"
	"github.com/sovrn-labs/trustedserver/internal/geoip"
	"github.com/sovrn-labs/trustedserver/internal/middleware"
	"github.com/sovrn-labs/trustedserver/internal/synthetic"
)

// AdRequest is the inbound tsjs/Prebid.js-shaped JSON body posted to the
// auction endpoint.
type AdRequest struct {
	AdUnits []AdUnit        `json:"adUnits"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// AdUnit is one slot as described by the client bundle.
type AdUnit struct {
	Code       string          `json:"code"`
	MediaTypes *MediaTypesSpec `json:"mediaTypes,omitempty"`
	Bids       []BidConfig     `json:"bids,omitempty"`
}

// MediaTypesSpec carries the banner size grid for one ad unit; video and
// native media types are not modelled.
type MediaTypesSpec struct {
	Banner *BannerSpec `json:"banner,omitempty"`
}

// BannerSpec lists accepted creative sizes as [width, height] pairs.
type BannerSpec struct {
	Sizes [][]int `json:"sizes"`
}

// BidConfig is one client-declared bidder and its params. The orchestrator
// does not trust this list for the OpenRTB provider — see OpenRTBProvider.
type BidConfig struct {
	Bidder string          `json:"bidder"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ParseAdRequest decodes the inbound JSON auction request body.
func ParseAdRequest(body []byte) (*AdRequest, error) {
	var req AdRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("auction: failed to parse request body: %w", err)
	}
	return &req, nil
}

// BuildRequest converts the inbound AdRequest into the orchestrator's
// provider-agnostic Request, resolving the synthetic ID, device metadata,
// and (optionally) coarse geo from r.
func BuildRequest(ad *AdRequest, settings *gateway.Settings, r *http.Request, geo *geoip.GeoIP) (*Request, error) {
	syntheticID, _ := synthetic.GetOrDerive(settings, r)
	freshID := synthetic.Derive(settings, r)

	slots := make([]AdSlot, 0, len(ad.AdUnits))
	for _, unit := range ad.AdUnits {
		if unit.MediaTypes == nil || unit.MediaTypes.Banner == nil {
			continue
		}
		formats := make([]AdFormat, 0, len(unit.MediaTypes.Banner.Sizes))
		for _, size := range unit.MediaTypes.Banner.Sizes {
			if len(size) != 2 {
				return nil, fmt.Errorf("auction: invalid banner size for unit %q; expected [width, height]", unit.Code)
			}
			formats = append(formats, AdFormat{MediaType: MediaTypeBanner, Width: size[0], Height: size[1]})
		}

		bidders := make(map[string]json.RawMessage, len(unit.Bids))
		for _, b := range unit.Bids {
			bidders[b.Bidder] = b.Params
		}

		slots = append(slots, AdSlot{ID: unit.Code, Formats: formats, Bidders: bidders})
	}

	meta := middleware.ExtractRequestMeta(r)
	device := &DeviceInfo{UserAgent: meta.UserAgent, IP: meta.ClientIP}
	device.DeviceType, device.IsBot = classifyDevice(meta.UserAgent)
	if geo != nil {
		if ip := net.ParseIP(meta.ClientIP); ip != nil {
			device.Geo = &GeoInfo{Country: geo.Country(ip), Region: geo.Region(ip)}
		}
	}

	context := make(map[string]json.RawMessage)
	if len(ad.Config) > 0 {
		var cfg map[string]json.RawMessage
		if err := json.Unmarshal(ad.Config, &cfg); err == nil {
			if segments, ok := cfg["permutive_segments"]; ok {
				context["permutive_segments"] = segments
			}
		}
	}

	pageURL := "https://" + settings.Publisher.Domain

	return &Request{
		ID:    newRequestID(),
		Slots: slots,
		Publisher: PublisherInfo{
			Domain:  settings.Publisher.Domain,
			PageURL: pageURL,
		},
		User: UserInfo{
			ID:      syntheticID,
			FreshID: freshID,
		},
		Device: device,
		Site: &SiteInfo{
			Domain: settings.Publisher.Domain,
			Page:   pageURL,
		},
		Context: context,
	}, nil
}

func newRequestID() string {
	return uuid.NewString()
}

// classifyDevice parses a User-Agent string into the coarse device type and
// bot flag OpenRTB providers and the mock mediator use for targeting.
func classifyDevice(userAgent string) (deviceType string, isBot bool) {
	u := uasurfer.Parse(userAgent)
	switch u.DeviceType {
	case uasurfer.DeviceComputer:
		deviceType = "desktop"
	case uasurfer.DevicePhone:
		deviceType = "mobile"
	case uasurfer.DeviceTablet:
		deviceType = "tablet"
	default:
		deviceType = "other"
	}
	return deviceType, u.IsBot()
}

// AuctionResponse is the OpenRTB 2.x-shaped JSON body returned from the
// auction endpoint, with rewritten creative HTML inline in each bid's adm.
type AuctionResponse struct {
	ID      string              `json:"id"`
	SeatBid []ResponseSeatBid   `json:"seatbid"`
	Ext     *AuctionResponseExt `json:"ext,omitempty"`
}

type ResponseSeatBid struct {
	Seat string        `json:"seat"`
	Bid  []ResponseBid `json:"bid"`
}

type ResponseBid struct {
	ID      string   `json:"id"`
	ImpID   string   `json:"impid"`
	Price   float64  `json:"price"`
	AdM     string   `json:"adm"`
	CrID    string   `json:"crid"`
	W       int      `json:"w"`
	H       int      `json:"h"`
	ADomain []string `json:"adomain"`
}

type AuctionResponseExt struct {
	Orchestrator OrchestratorExt `json:"orchestrator"`
}

type OrchestratorExt struct {
	Strategy  string `json:"strategy"`
	Providers int    `json:"providers"`
	TotalBids int    `json:"total_bids"`
	TimeMS    int64  `json:"time_ms"`
}

// RewriteCreative rewrites a raw creative HTML payload for first-party
// delivery. Implemented by internal/creative; injected here to avoid that
// package depending back on auction's types.
type RewriteCreative func(rawHTML string) string

// BuildOpenRTBResponse assembles the outbound OpenRTB response: winning
// bids only, creative rewritten inline, and orchestration metadata in ext.
// A winning bid with no decoded price (mediation required but unavailable)
// is dropped from the response with no error — AuctionEmpty is a valid
// 200 outcome, never an HTTP error.
func BuildOpenRTBResponse(requestID string, result OrchestrationResult, rewrite RewriteCreative) *AuctionResponse {
	seatbids := make([]ResponseSeatBid, 0, len(result.WinningBids))
	for slotID, bid := range result.WinningBids {
		if bid.Price == nil {
			continue
		}
		creative := ""
		if bid.Creative != "" && rewrite != nil {
			creative = rewrite(bid.Creative)
		} else {
			creative = bid.Creative
		}
		seatbids = append(seatbids, ResponseSeatBid{
			Seat: bid.Bidder,
			Bid: []ResponseBid{{
				ID:      uuid.NewString(),
				ImpID:   slotID,
				Price:   *bid.Price,
				AdM:     creative,
				CrID:    uuid.NewString(),
				W:       bid.Width,
				H:       bid.Height,
				ADomain: bid.AdDomain,
			}},
		})
	}

	return &AuctionResponse{
		ID:      requestID,
		SeatBid: seatbids,
		Ext: &AuctionResponseExt{
			Orchestrator: OrchestratorExt{
				Strategy:  result.Strategy,
				Providers: len(result.ProviderResponses),
				TotalBids: result.TotalBids(),
				TimeMS:    result.TotalTimeMS,
			},
		},
	}
}

// ResponseHeaders returns the synthetic-ID headers the auction endpoint
// must echo back alongside the JSON body.
func ResponseHeaders(user UserInfo) map[string]string {
	return map[string]string{
		"X-Synthetic-ID":             user.ID,
		"X-Synthetic-Fresh":          user.FreshID,
		"X-Synthetic-Trusted-Server": user.ID,
	}
}
