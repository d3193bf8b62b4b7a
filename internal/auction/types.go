// Package auction runs the server-side programmatic auction: it fans a
// normalized request out to registered providers in parallel, tolerates
// partial failure (a timed-out provider counts as an Error response, not a
// fatal error), optionally hands the collected responses to a mediator, and
// picks a single winning bid per slot.
package auction

import "encoding/json"

// MediaType is the ad format family a slot accepts.
type MediaType string

const (
	MediaTypeBanner MediaType = "banner"
	MediaTypeVideo  MediaType = "video"
	MediaTypeNative MediaType = "native"
)

// AdFormat is one size/type combination a slot will accept a creative in.
type AdFormat struct {
	MediaType MediaType
	Width     int
	Height    int
}

// AdSlot is a single impression being auctioned.
type AdSlot struct {
	ID         string
	Formats    []AdFormat
	FloorPrice *float64
	Bidders    map[string]json.RawMessage // per-bidder params, keyed by bidder name
}

// PublisherInfo identifies the site running the auction.
type PublisherInfo struct {
	Domain  string
	PageURL string
}

// UserInfo carries the privacy-preserving identifiers, never a raw cookie.
type UserInfo struct {
	ID      string // synthetic ID, stable across the user's session
	FreshID string // synthetic ID derived fresh for this request only
	Consent string
}

// DeviceInfo is the subset of request metadata providers need for targeting.
type DeviceInfo struct {
	UserAgent  string
	IP         string
	Geo        *GeoInfo
	DeviceType string // "desktop", "mobile", "tablet", or "other"
	IsBot      bool
}

// GeoInfo is the coarse location resolved from the client IP, when a GeoIP
// database is configured. Never more precise than country/region.
type GeoInfo struct {
	Country string
	Region  string
}

// SiteInfo mirrors PublisherInfo for providers that expect OpenRTB's
// separate site object.
type SiteInfo struct {
	Domain string
	Page   string
}

// Request is the orchestrator's provider-agnostic auction request, built
// from the inbound tsjs/Prebid.js-shaped JSON body.
type Request struct {
	ID        string
	Slots     []AdSlot
	Publisher PublisherInfo
	User      UserInfo
	Device    *DeviceInfo
	Site      *SiteInfo
	Context   map[string]json.RawMessage
}

// BidStatus is the outcome of one provider's participation in a round.
type BidStatus string

const (
	BidStatusSuccess BidStatus = "success"
	BidStatusNoBid   BidStatus = "nobid"
	BidStatusError   BidStatus = "error"
	BidStatusPending BidStatus = "pending"
)

// Bid is a single bid returned by one provider for one slot.
type Bid struct {
	SlotID   string
	Price    *float64 // nil for providers (e.g. APS) whose price is encoded pending mediation
	Currency string
	Creative string
	AdDomain []string
	Bidder   string
	Width    int
	Height   int
	NURL     string
	BURL     string
	Metadata map[string]any
}

// Response is what one provider returned for a bidding round.
type Response struct {
	Provider       string
	Bids           []Bid
	Status         BidStatus
	ResponseTimeMS int64
	Metadata       map[string]any
}

func successResponse(provider string, bids []Bid, ms int64) Response {
	return Response{Provider: provider, Bids: bids, Status: BidStatusSuccess, ResponseTimeMS: ms, Metadata: map[string]any{}}
}

func noBidResponse(provider string, ms int64) Response {
	return Response{Provider: provider, Status: BidStatusNoBid, ResponseTimeMS: ms, Metadata: map[string]any{}}
}

func errorResponse(provider string, ms int64) Response {
	return Response{Provider: provider, Status: BidStatusError, ResponseTimeMS: ms, Metadata: map[string]any{}}
}

// Context is threaded through every provider/mediator call.
type Context struct {
	TimeoutMS         int
	ProviderResponses []Response // populated only for the mediator call, nil for bidders
}

// OrchestrationResult is the outcome of one full auction round.
type OrchestrationResult struct {
	ProviderResponses []Response
	WinningBids       map[string]Bid
	TotalTimeMS       int64
	Strategy          string
}

// TotalBids returns the sum of bids returned by every provider, winning or not.
func (r OrchestrationResult) TotalBids() int {
	total := 0
	for _, resp := range r.ProviderResponses {
		total += len(resp.Bids)
	}
	return total
}
