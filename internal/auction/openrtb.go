package auction

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// openRTBRequest is the wire shape POSTed to a Prebid Server-compatible
// OpenRTB 2.x endpoint. Only the fields the orchestrator populates are
// modeled; everything else is left to the upstream's own defaults.
type openRTBRequest struct {
	ID     string         `json:"id"`
	Imp    []openRTBImp   `json:"imp"`
	Site   *openRTBSite   `json:"site,omitempty"`
	User   *openRTBUser   `json:"user,omitempty"`
	Device *openRTBDevice `json:"device,omitempty"`
	Regs   *openRTBRegs   `json:"regs,omitempty"`
}

type openRTBImp struct {
	ID       string         `json:"id"`
	Banner   *openRTBBanner `json:"banner,omitempty"`
	Ext      openRTBImpExt  `json:"ext"`
	BidFloor float64        `json:"bidfloor,omitempty"`
}

type openRTBImpExt struct {
	Prebid openRTBPrebidExt `json:"prebid"`
}

type openRTBPrebidExt struct {
	Bidder map[string]json.RawMessage `json:"bidder"`
}

type openRTBBanner struct {
	Format []openRTBFormat `json:"format"`
}

type openRTBFormat struct {
	W int `json:"w"`
	H int `json:"h"`
}

type openRTBSite struct {
	Domain string `json:"domain"`
	Page   string `json:"page"`
}

type openRTBUser struct {
	ID string `json:"id"`
}

type openRTBDevice struct {
	UA         string `json:"ua,omitempty"`
	IP         string `json:"ip,omitempty"`
	DeviceType int    `json:"devicetype,omitempty"`
}

// openRTBDeviceType maps the gateway's coarse device classification to
// OpenRTB 2.x's devicetype enum (section 5.21): 2 highlights a PC/desktop,
// 4 a phone, 5 a tablet. "other"/bot traffic is left 0 (unknown), matching
// the spec's devicetype being optional.
var openRTBDeviceType = map[string]int{
	"desktop": 2,
	"mobile":  4,
	"tablet":  5,
}

type openRTBRegs struct {
	Ext openRTBRegsExt `json:"ext"`
}

type openRTBRegsExt struct {
	USPrivacy string `json:"us_privacy,omitempty"`
}

type openRTBResponse struct {
	ID      string            `json:"id"`
	SeatBid []openRTBSeatBid  `json:"seatbid"`
}

type openRTBSeatBid struct {
	Seat string     `json:"seat"`
	Bid  []openRTBBid `json:"bid"`
}

type openRTBBid struct {
	ID      string   `json:"id"`
	ImpID   string   `json:"impid"`
	Price   float64  `json:"price"`
	AdM     string   `json:"adm"`
	CrID    string   `json:"crid"`
	W       int      `json:"w"`
	H       int      `json:"h"`
	ADomain []string `json:"adomain"`
}

// OpenRTBProvider bids against a Prebid Server-compatible endpoint. It
// overrides any client-declared bidder list with its configured allowlist —
// clients cannot smuggle arbitrary bidder params into the upstream request.
type OpenRTBProvider struct {
	serverURL string
	bidders   []string
	client    *http.Client
}

// NewOpenRTBProvider builds a provider bound to serverURL, enforcing the
// given bidder allowlist on every outbound request.
func NewOpenRTBProvider(serverURL string, bidders []string, client *http.Client) *OpenRTBProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenRTBProvider{serverURL: serverURL, bidders: bidders, client: client}
}

func (p *OpenRTBProvider) ID() string { return "prebid" }

// Bid translates req into an OpenRTB 2.x request, forcing imp[].ext.prebid.bidder
// to exactly the configured allowlist regardless of what the client sent,
// POSTs it upstream, and translates the seatbid[] array back into Bids.
func (p *OpenRTBProvider) Bid(ctx context.Context, req *Request, _ Context) Response {
	start := time.Now()

	bidderExt := make(map[string]json.RawMessage, len(p.bidders))
	for _, b := range p.bidders {
		bidderExt[b] = json.RawMessage(`{}`)
	}

	imps := make([]openRTBImp, 0, len(req.Slots))
	for _, slot := range req.Slots {
		formats := make([]openRTBFormat, 0, len(slot.Formats))
		for _, f := range slot.Formats {
			formats = append(formats, openRTBFormat{W: f.Width, H: f.Height})
		}
		floor := 0.0
		if slot.FloorPrice != nil {
			floor = *slot.FloorPrice
		}
		imps = append(imps, openRTBImp{
			ID:       slot.ID,
			Banner:   &openRTBBanner{Format: formats},
			BidFloor: floor,
			Ext:      openRTBImpExt{Prebid: openRTBPrebidExt{Bidder: bidderExt}},
		})
	}

	orReq := openRTBRequest{
		ID:  req.ID,
		Imp: imps,
		Site: &openRTBSite{Domain: req.Publisher.Domain, Page: req.Publisher.PageURL},
		User: &openRTBUser{ID: req.User.ID},
	}
	if req.Device != nil {
		orReq.Device = &openRTBDevice{
			UA:         req.Device.UserAgent,
			IP:         req.Device.IP,
			DeviceType: openRTBDeviceType[req.Device.DeviceType],
		}
	}

	body, err := json.Marshal(orReq)
	if err != nil {
		return errorResponse(p.ID(), time.Since(start).Milliseconds())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL, bytes.NewReader(body))
	if err != nil {
		return errorResponse(p.ID(), time.Since(start).Milliseconds())
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return errorResponse(p.ID(), time.Since(start).Milliseconds())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return errorResponse(p.ID(), time.Since(start).Milliseconds())
	}
	if resp.StatusCode != http.StatusOK {
		return errorResponse(p.ID(), time.Since(start).Milliseconds())
	}

	var orResp openRTBResponse
	if err := json.Unmarshal(respBody, &orResp); err != nil {
		return errorResponse(p.ID(), time.Since(start).Milliseconds())
	}

	var bids []Bid
	for _, seat := range orResp.SeatBid {
		for _, b := range seat.Bid {
			price := b.Price
			bids = append(bids, Bid{
				SlotID:   b.ImpID,
				Price:    &price,
				Currency: "USD",
				Creative: b.AdM,
				AdDomain: b.ADomain,
				Bidder:   p.ID(),
				Width:    b.W,
				Height:   b.H,
				Metadata: map[string]any{"crid": b.CrID, "seat": seat.Seat},
			})
		}
	}

	elapsed := time.Since(start).Milliseconds()
	if len(bids) == 0 {
		return noBidResponse(p.ID(), elapsed)
	}
	return successResponse(p.ID(), bids, elapsed)
}
