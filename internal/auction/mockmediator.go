package auction

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"
)

// MockMediator selects the highest effective-price bid per slot across
// every provider response and, when the winning bid carries no inline
// creative (e.g. it arrived from a mediation-only source), fetches iframe
// HTML from a mock upstream ad server keyed by the winning bidder and slot.
//
// It decodes APS's "amznbid" token via a fixed lookup table the same way
// the mock upstream does, rather than an invertible price encoding — this
// is a stand-in for whatever private decoding scheme the real provider
// uses, good enough to make the mediation path exercisable.
type MockMediator struct {
	serverURL        string
	client           *http.Client
	amznPriceByToken map[string]float64
}

// NewMockMediator builds a mediator. serverURL is the mock ad server's
// creative-fetch endpoint, called only for winning bids missing creative.
func NewMockMediator(serverURL string, client *http.Client) *MockMediator {
	if client == nil {
		client = http.DefaultClient
	}
	return &MockMediator{
		serverURL: serverURL,
		client:    client,
		amznPriceByToken: map[string]float64{
			"amzn_low":  0.50,
			"amzn_mid":  2.25,
			"amzn_high": 5.00,
		},
	}
}

func (m *MockMediator) ID() string { return "adserver_mock" }

type mockCreativeRequest struct {
	SlotID string `json:"slotID"`
	Bidder string `json:"bidder"`
}

type mockCreativeResponse struct {
	HTML string `json:"html"`
}

// Bid is invoked once per auction round with Context.ProviderResponses
// populated. It never bids on its own behalf — it decodes and re-ranks the
// bids other providers already produced, returning one winning (decoded)
// Bid per slot.
func (m *MockMediator) Bid(ctx context.Context, req *Request, actx Context) Response {
	start := time.Now()

	type candidate struct {
		bid   Bid
		price float64
	}
	bySlot := make(map[string]candidate)

	for _, resp := range actx.ProviderResponses {
		for _, bid := range resp.Bids {
			price, ok := m.effectivePrice(bid)
			if !ok {
				continue
			}
			current, exists := bySlot[bid.SlotID]
			if !exists || price > current.price {
				bySlot[bid.SlotID] = candidate{bid: bid, price: price}
			}
		}
	}

	bids := make([]Bid, 0, len(bySlot))
	for slotID, c := range bySlot {
		winner := c.bid
		winner.Price = &c.price
		if winner.Creative == "" {
			if html, err := m.fetchCreative(ctx, slotID, winner.Bidder); err == nil {
				winner.Creative = html
			}
		}
		bids = append(bids, winner)
	}

	elapsed := time.Since(start).Milliseconds()
	if len(bids) == 0 {
		return noBidResponse(m.ID(), elapsed)
	}
	return successResponse(m.ID(), bids, elapsed)
}

// effectivePrice returns a bid's comparable price: its own Price if set,
// or the decoded APS amznbid token otherwise.
func (m *MockMediator) effectivePrice(bid Bid) (float64, bool) {
	if bid.Price != nil {
		return *bid.Price, true
	}
	token, _ := bid.Metadata["amznbid"].(string)
	if token == "" {
		return 0, false
	}
	if price, ok := m.amznPriceByToken[token]; ok {
		return price, true
	}
	// Unknown token: fall back to parsing it as a literal decimal price,
	// in case the upstream started sending cleartext values.
	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return f, true
	}
	return 0, false
}

func (m *MockMediator) fetchCreative(ctx context.Context, slotID, bidder string) (string, error) {
	body, err := json.Marshal(mockCreativeRequest{SlotID: slotID, Bidder: bidder})
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.serverURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	var out mockCreativeResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", err
	}
	return out.HTML, nil
}
