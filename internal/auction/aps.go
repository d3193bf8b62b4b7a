package auction

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// apsSlotRequest is the per-slot configuration a publisher's page passes
// through to the APS header-bidding call (slot ID, sizes); it is forwarded
// upstream unchanged.
type apsSlotRequest struct {
	SlotID string  `json:"slotID"`
	Sizes  [][]int `json:"sizes"`
}

type apsBidRequest struct {
	Slots []apsSlotRequest `json:"slots"`
}

type apsBidResponse struct {
	Bids []apsBid `json:"bids"`
}

type apsBid struct {
	SlotID   string `json:"slotID"`
	AmznBid  string `json:"amznbid"`
	AdDomain string `json:"adomain,omitempty"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// APSProvider bids against Amazon's Transparent Ad Marketplace. APS never
// returns a cleartext price — it returns an opaque "amznbid" token that
// only a mediator configured with the matching decoder can turn into a
// comparable price, so every Bid this provider produces has Price == nil.
type APSProvider struct {
	serverURL string
	client    *http.Client
}

// NewAPSProvider builds a provider bound to the APS/TAM endpoint.
func NewAPSProvider(serverURL string, client *http.Client) *APSProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &APSProvider{serverURL: serverURL, client: client}
}

func (p *APSProvider) ID() string { return "aps" }

// Bid requests encoded-price bids for every slot and passes them through
// untouched; decoding is the mediator's job.
func (p *APSProvider) Bid(ctx context.Context, req *Request, _ Context) Response {
	start := time.Now()

	slots := make([]apsSlotRequest, 0, len(req.Slots))
	for _, slot := range req.Slots {
		sizes := make([][]int, 0, len(slot.Formats))
		for _, f := range slot.Formats {
			sizes = append(sizes, []int{f.Width, f.Height})
		}
		slots = append(slots, apsSlotRequest{SlotID: slot.ID, Sizes: sizes})
	}

	body, err := json.Marshal(apsBidRequest{Slots: slots})
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

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || resp.StatusCode != http.StatusOK {
		return errorResponse(p.ID(), time.Since(start).Milliseconds())
	}

	var apsResp apsBidResponse
	if err := json.Unmarshal(respBody, &apsResp); err != nil {
		return errorResponse(p.ID(), time.Since(start).Milliseconds())
	}

	var bids []Bid
	for _, b := range apsResp.Bids {
		bid := Bid{
			SlotID:   b.SlotID,
			Price:    nil, // encoded; awaits mediator decoding
			Bidder:   p.ID(),
			Width:    b.Width,
			Height:   b.Height,
			Metadata: map[string]any{"amznbid": b.AmznBid},
		}
		if b.AdDomain != "" {
			bid.AdDomain = []string{b.AdDomain}
		}
		bids = append(bids, bid)
	}

	elapsed := time.Since(start).Milliseconds()
	if len(bids) == 0 {
		return noBidResponse(p.ID(), elapsed)
	}
	return successResponse(p.ID(), bids, elapsed)
}
